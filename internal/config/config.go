package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data     DataConfig     `yaml:"data" mapstructure:"data"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Fire     FireConfig     `yaml:"fire" mapstructure:"fire"`
	Quake    QuakeConfig    `yaml:"quake" mapstructure:"quake"`
	Features FeatureConfig  `yaml:"features" mapstructure:"features"`
	Weather  WeatherConfig  `yaml:"weather" mapstructure:"weather"`
	Dataset  DatasetConfig  `yaml:"dataset" mapstructure:"dataset"`
	Forecast ForecastConfig `yaml:"forecast" mapstructure:"forecast"`
	Routes   RoutesConfig   `yaml:"routes" mapstructure:"routes"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the external event sources and the site registry.
type DataConfig struct {
	FIRMSFiles []string `yaml:"firms_files" mapstructure:"firms_files"`
	USGSFile   string   `yaml:"usgs_file" mapstructure:"usgs_file"`
	SitesFile  string   `yaml:"sites_file" mapstructure:"sites_file"`
	RoutesFile string   `yaml:"routes_file" mapstructure:"routes_file"`
	OutputDir  string   `yaml:"output_dir" mapstructure:"output_dir"`
}

// StoreConfig configures the sqlite artifact store.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// FireConfig holds wildfire labeling thresholds. The label radius is
// deliberately larger than the feature radius: labels ask "will anything
// burn near here", features ask "what burned right here".
type FireConfig struct {
	ConfidenceMin float64 `yaml:"confidence_min" mapstructure:"confidence_min"`
	MinFRP        float64 `yaml:"min_frp" mapstructure:"min_frp"`
	DaylightOnly  bool    `yaml:"daylight_only" mapstructure:"daylight_only"`
	MinDetections int     `yaml:"min_detections" mapstructure:"min_detections"`
	RadiusKM      float64 `yaml:"radius_km" mapstructure:"radius_km"`
	HorizonHours  int     `yaml:"horizon_hours" mapstructure:"horizon_hours"`
}

// QuakeConfig holds earthquake labeling thresholds.
type QuakeConfig struct {
	MinMagnitude   float64 `yaml:"min_magnitude" mapstructure:"min_magnitude"`
	SignificantMag float64 `yaml:"significant_mag" mapstructure:"significant_mag"`
	MinEvents      int     `yaml:"min_events" mapstructure:"min_events"`
	RadiusKM       float64 `yaml:"radius_km" mapstructure:"radius_km"`
	HorizonHours   int     `yaml:"horizon_hours" mapstructure:"horizon_hours"`
}

// FeatureConfig holds feature-extraction windows and thresholds.
type FeatureConfig struct {
	RadiusKM          float64 `yaml:"radius_km" mapstructure:"radius_km"`
	LookbackShortDays int     `yaml:"lookback_short_days" mapstructure:"lookback_short_days"`
	LookbackLongDays  int     `yaml:"lookback_long_days" mapstructure:"lookback_long_days"`
	QuakeMinMagnitude float64 `yaml:"quake_min_magnitude" mapstructure:"quake_min_magnitude"`
}

// WeatherConfig configures the Open-Meteo client.
type WeatherConfig struct {
	ArchiveBaseURL  string  `yaml:"archive_base_url" mapstructure:"archive_base_url"`
	ForecastBaseURL string  `yaml:"forecast_base_url" mapstructure:"forecast_base_url"`
	TimeoutSecs     int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec      float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	LookbackDays    int     `yaml:"lookback_days" mapstructure:"lookback_days"`
	ForecastDays    int     `yaml:"forecast_days" mapstructure:"forecast_days"`
}

// DatasetConfig configures dataset assembly and splitting. Fire and quake
// carry separate date ranges because the FIRMS archive is far shorter than
// the USGS catalog.
type DatasetConfig struct {
	FireStart     string  `yaml:"fire_start" mapstructure:"fire_start"`
	FireEnd       string  `yaml:"fire_end" mapstructure:"fire_end"`
	QuakeStart    string  `yaml:"quake_start" mapstructure:"quake_start"`
	QuakeEnd      string  `yaml:"quake_end" mapstructure:"quake_end"`
	StrideDays    int     `yaml:"stride_days" mapstructure:"stride_days"`
	Workers       int     `yaml:"workers" mapstructure:"workers"`
	Split         string  `yaml:"split" mapstructure:"split"`
	SplitDate     string  `yaml:"split_date" mapstructure:"split_date"`
	TestFraction  float64 `yaml:"test_fraction" mapstructure:"test_fraction"`
	SplitSeed     int64   `yaml:"split_seed" mapstructure:"split_seed"`
	FetchWeather  bool    `yaml:"fetch_weather" mapstructure:"fetch_weather"`
	ProgressEvery int     `yaml:"progress_every" mapstructure:"progress_every"`
}

// ForecastConfig configures the forecast runner.
type ForecastConfig struct {
	FireModelFile  string `yaml:"fire_model_file" mapstructure:"fire_model_file"`
	QuakeModelFile string `yaml:"quake_model_file" mapstructure:"quake_model_file"`
}

// RoutesConfig configures route risk processing.
type RoutesConfig struct {
	MatchRadiusKM float64 `yaml:"match_radius_km" mapstructure:"match_radius_km"`
}

// ServerConfig configures the JSON API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RISKRADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.firms_files", []string{"data/firms_archive.csv", "data/firms_nrt.csv"})
	v.SetDefault("data.usgs_file", "data/usgs_historical.csv")
	v.SetDefault("data.sites_file", "data/sites.csv")
	v.SetDefault("data.routes_file", "data/routes.csv")
	v.SetDefault("data.output_dir", "outputs")
	v.SetDefault("store.path", "outputs/riskradar.db")
	v.SetDefault("fire.confidence_min", 70.0)
	v.SetDefault("fire.min_frp", 30.0)
	v.SetDefault("fire.daylight_only", true)
	v.SetDefault("fire.min_detections", 1)
	v.SetDefault("fire.radius_km", 100.0)
	v.SetDefault("fire.horizon_hours", 72)
	v.SetDefault("quake.min_magnitude", 2.0)
	v.SetDefault("quake.significant_mag", 4.0)
	v.SetDefault("quake.min_events", 1)
	v.SetDefault("quake.radius_km", 150.0)
	v.SetDefault("quake.horizon_hours", 72)
	v.SetDefault("features.radius_km", 50.0)
	v.SetDefault("features.lookback_short_days", 7)
	v.SetDefault("features.lookback_long_days", 30)
	v.SetDefault("features.quake_min_magnitude", 2.5)
	v.SetDefault("weather.archive_base_url", "https://archive-api.open-meteo.com/v1/archive")
	v.SetDefault("weather.forecast_base_url", "https://api.open-meteo.com/v1/forecast")
	v.SetDefault("weather.timeout_secs", 10)
	v.SetDefault("weather.rate_per_sec", 5.0)
	v.SetDefault("weather.lookback_days", 7)
	v.SetDefault("weather.forecast_days", 3)
	v.SetDefault("dataset.fire_start", "2024-01-01")
	v.SetDefault("dataset.fire_end", "2025-11-01")
	v.SetDefault("dataset.quake_start", "2015-01-01")
	v.SetDefault("dataset.quake_end", "2025-11-01")
	v.SetDefault("dataset.stride_days", 7)
	v.SetDefault("dataset.workers", 4)
	v.SetDefault("dataset.split", "stratified")
	v.SetDefault("dataset.split_date", "2025-07-01")
	v.SetDefault("dataset.test_fraction", 0.20)
	v.SetDefault("dataset.split_seed", 42)
	v.SetDefault("dataset.fetch_weather", false)
	v.SetDefault("dataset.progress_every", 100)
	v.SetDefault("forecast.fire_model_file", "outputs/fire_model.json")
	v.SetDefault("forecast.quake_model_file", "outputs/quake_model.json")
	v.SetDefault("routes.match_radius_km", 100.0)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks numeric parameters for obvious misconfiguration.
func (c *Config) Validate() error {
	switch {
	case c.Fire.RadiusKM <= 0:
		return eris.New("config: fire.radius_km must be positive")
	case c.Quake.RadiusKM <= 0:
		return eris.New("config: quake.radius_km must be positive")
	case c.Features.RadiusKM <= 0:
		return eris.New("config: features.radius_km must be positive")
	case c.Fire.HorizonHours <= 0 || c.Quake.HorizonHours <= 0:
		return eris.New("config: horizon_hours must be positive")
	case c.Features.LookbackShortDays <= 0 || c.Features.LookbackLongDays <= 0:
		return eris.New("config: lookback days must be positive")
	case c.Features.LookbackShortDays > c.Features.LookbackLongDays:
		return eris.New("config: lookback_short_days must not exceed lookback_long_days")
	case c.Dataset.TestFraction <= 0 || c.Dataset.TestFraction >= 1:
		return eris.New("config: dataset.test_fraction must be in (0,1)")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
