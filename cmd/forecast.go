package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/riskradar/riskradar/internal/featureset"
	"github.com/riskradar/riskradar/internal/forecast"
	"github.com/riskradar/riskradar/internal/risk"
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Score current risk for every site and persist the predictions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		sites, err := loadSites()
		if err != nil {
			return err
		}
		fires, err := loadFires()
		if err != nil {
			return err
		}
		quakes, err := loadQuakes()
		if err != nil {
			return err
		}

		fireModel, err := forecast.LoadLogistic(cfg.Forecast.FireModelFile, featureset.FireFeatureNames())
		if err != nil {
			return err
		}
		quakeModel, err := forecast.LoadLogistic(cfg.Forecast.QuakeModelFile, featureset.QuakeFeatureNames())
		if err != nil {
			return err
		}

		runner := forecast.NewRunner(newExtractor(true), sites, fires, quakes,
			fireModel, quakeModel, cfg.Dataset.Workers, nil)
		results, err := runner.Run(ctx)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		runID, err := st.SavePredictions(ctx, runner.Target(), results)
		if err != nil {
			return err
		}
		zap.L().Info("forecast saved", zap.String("run_id", runID), zap.Int("sites", len(results)))

		for _, sr := range results {
			fmt.Printf("%-24s fire %5.1f%%  quake %5.1f%%  combined %5.1f%%  %s\n",
				sr.Site, risk.Percent(sr.FireProb), risk.Percent(sr.QuakeProb),
				risk.Percent(sr.Combined), sr.Level)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(forecastCmd)
}
