package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-stock/models"
	"github.com/aluiziolira/go-scrape-stock/notify"
	"github.com/aluiziolira/go-scrape-stock/parser"
	"github.com/aluiziolira/go-scrape-stock/pipeline"
	"github.com/aluiziolira/go-scrape-stock/report"
	"github.com/aluiziolira/go-scrape-stock/scraper"
)

func newRunCmd(a *app) *cobra.Command {
	var metricsAddr, reportOut, reportFormat string
	var delay, randomDelay time.Duration
	var respectRobots bool

	cmd := &cobra.Command{
		Use:   "run BRAND...",
		Short: "Scrape each brand's storefront, append listings to the ledger and report unavailable ones.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("metrics-addr") {
				a.cfg.MetricsAddr = metricsAddr
			}
			if cmd.Flags().Changed("report") {
				a.cfg.ReportOut = reportOut
			}
			if cmd.Flags().Changed("report-format") {
				a.cfg.ReportFormat = reportFormat
			}
			if cmd.Flags().Changed("delay") {
				a.cfg.Delay = delay
			}
			if cmd.Flags().Changed("random-delay") {
				a.cfg.RandomDelay = randomDelay
			}
			if cmd.Flags().Changed("respect-robots") {
				a.cfg.RespectRobotsTxt = respectRobots
			}
			if err := a.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return a.run(cmd, args)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	cmd.Flags().StringVarP(&reportOut, "report", "o", "", "Export outcomes to this file")
	cmd.Flags().StringVar(&reportFormat, "report-format", "", "Export format: csv, json or dual")
	cmd.Flags().DurationVar(&delay, "delay", 0, "Delay between requests to the same storefront host")
	cmd.Flags().DurationVar(&randomDelay, "random-delay", 0, "Random jitter added to the delay")
	cmd.Flags().BoolVar(&respectRobots, "respect-robots", false, "Respect robots.txt directives")
	return cmd
}

func (a *app) run(cmd *cobra.Command, brands []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := a.openStores(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	metrics := scraper.NewMetrics()
	fetcher, err := scraper.NewFetcher(a.cfg, metrics)
	if err != nil {
		return fmt.Errorf("initialise fetcher: %w", err)
	}

	var metricsServer *http.Server
	if a.cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    a.cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", a.cfg.MetricsAddr))
	}

	for _, brand := range brands {
		if _, ok := st.directory.Lookup(brand); ok {
			continue
		}
		attrs := []any{slog.String("brand", brand), slog.String("url", st.directory.Resolve(brand).StorefrontURL)}
		if nearby := st.directory.Suggest(brand, 3); len(nearby) > 0 {
			names := make([]string, 0, len(nearby))
			for _, e := range nearby {
				names = append(names, e.Name)
			}
			attrs = append(attrs, slog.Any("did_you_mean", names))
		}
		slog.Warn("brand not in registry, using fallback url", attrs...)
	}

	orchestrator := pipeline.NewOrchestrator(st.directory, fetcher, parser.NewListingParser(a.cfg.Locators), st.ledger, st.filter)
	orchestrator.Metrics = metrics

	start := time.Now()
	outcomes := orchestrator.Run(ctx, brands)
	duration := time.Since(start)

	report.RenderOutcomes(cmd.OutOrStdout(), outcomes)

	if a.cfg.ReportOut != "" {
		if err := exportOutcomes(a.cfg.ReportFormat, a.cfg.ReportOut, outcomes); err != nil {
			slog.Error("report export failed", slog.Any("error", err))
		}
	}

	if err := notify.NewEmailNotifier(a.cfg.Notify).Notify(ctx, outcomes); err != nil {
		slog.Error("notification failed", slog.Any("error", err))
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	summary := orchestrator.GetMetrics()
	slog.Info("run complete",
		slog.Duration("duration", duration),
		slog.Any("persisted_records", summary["persisted_records"]),
		slog.Any("outcomes", summary["outcomes"]),
	)

	failed := 0
	for _, o := range outcomes {
		if o.Status == models.StatusFailed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d brands failed", failed, len(outcomes))
	}
	return nil
}

func exportOutcomes(format, filename string, outcomes []models.BrandOutcome) error {
	writer, err := report.NewWriter(format, filename)
	if err != nil {
		return err
	}
	if err := writer.Write(outcomes); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Validate(); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	slog.Info("report written", slog.String("path", filename), slog.String("format", format))
	return nil
}
