package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/riskradar/riskradar/internal/risk"
	"github.com/riskradar/riskradar/internal/route"
)

var routesFile string

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Accumulate the latest site predictions along travel routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		path := routesFile
		if path == "" {
			path = cfg.Data.RoutesFile
		}

		var (
			routes []route.Route
			err    error
		)
		if strings.HasSuffix(strings.ToLower(path), ".shp") {
			routes, err = route.LoadShapefile(path)
		} else {
			routes, err = route.LoadCSV(path)
		}
		if err != nil {
			return err
		}

		sites, err := loadSites()
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		runID, target, err := st.LatestForecastRun(ctx)
		if err != nil {
			return err
		}
		if runID == "" {
			return eris.New("no predictions found, run forecast first")
		}
		risks, _, err := st.LatestPredictions(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("using predictions", zap.Time("target", target), zap.Int("sites", len(risks)))

		route.AssignRisks(routes, risks, sites, cfg.Routes.MatchRadiusKM)

		summaries := make([]route.Summary, 0, len(routes))
		for _, r := range routes {
			summaries = append(summaries, route.Accumulate(r))
		}

		if err := st.SaveRouteSummaries(ctx, runID, summaries); err != nil {
			return err
		}

		for _, s := range summaries {
			fmt.Printf("%-16s %6.0f km  %2d/%2d matched  combined %5.1f%%  dominant %-5s  %s\n",
				s.RouteID, s.TotalKM, s.MatchedPoints, s.Waypoints,
				risk.Percent(s.CombinedRisk), s.DominantHazard, s.Level)
		}
		return nil
	},
}

func init() {
	routesCmd.Flags().StringVar(&routesFile, "file", "", "routes file (default from config)")
	rootCmd.AddCommand(routesCmd)
}
