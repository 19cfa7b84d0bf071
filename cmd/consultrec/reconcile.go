package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/service"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/storage"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/metrics"
)

func reconcileCmd() *cobra.Command {
	var from, to string
	var failOnFindings bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Report videos without records and records whose video is missing",
		Long: "Scans the date folders in [--from, --to] (DD-MM-YYYY, both optional) and " +
			"prints a JSON report. Nothing is deleted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			fromT, err := parseFlagDate("from", from)
			if err != nil {
				return err
			}
			toT, err := parseFlagDate("to", to)
			if err != nil {
				return err
			}

			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			repos, err := openRepositories(cmd.Context(), cfg, log, false)
			if err != nil {
				return err
			}
			defer func() { _ = repos.close(cmd.Context()) }()

			m := metrics.NewCollector(cfg.App.Name, prometheus.NewRegistry())
			svc := service.NewReconcileService(storage.NewFileStore(cfg.Storage), repos.consultations, m, log)

			report, err := svc.Run(cmd.Context(), fromT, toT)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}

			if failOnFindings && len(report.OrphanVideos)+len(report.MissingVideos) > 0 {
				return fmt.Errorf("%d orphan and %d missing videos", len(report.OrphanVideos), len(report.MissingVideos))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First date folder to scan (DD-MM-YYYY)")
	cmd.Flags().StringVar(&to, "to", "", "Last date folder to scan (DD-MM-YYYY)")
	cmd.Flags().BoolVar(&failOnFindings, "fail-on-findings", false, "Exit non-zero when anything is reported")
	return cmd
}

func parseFlagDate(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	folder, err := storage.ParseFolder(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be DD-MM-YYYY: %w", name, err)
	}
	return time.Parse(storage.DateLayout, folder)
}
