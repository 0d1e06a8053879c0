package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/elonfeng/parksync/internal/config"
	"github.com/elonfeng/parksync/internal/etl"
	"github.com/elonfeng/parksync/internal/observability"
	"github.com/elonfeng/parksync/internal/store"
	"github.com/elonfeng/parksync/pkg/alert"
	"github.com/elonfeng/parksync/pkg/nps"
	"github.com/elonfeng/parksync/pkg/server"
	"github.com/elonfeng/parksync/pkg/snapshot"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func loadConfig() (*config.Config, error) {
	// A missing .env is normal in production.
	_ = godotenv.Load(".env")

	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func buildArchiver(ctx context.Context, cfg *config.Config) (snapshot.Archiver, error) {
	if !cfg.Archive.S3.Enabled {
		return nil, nil
	}
	return snapshot.NewS3Archiver(ctx, snapshot.S3Config{
		Bucket:    cfg.Archive.S3.Bucket,
		Region:    cfg.Archive.S3.Region,
		Endpoint:  cfg.Archive.S3.Endpoint,
		Prefix:    cfg.Archive.S3.Prefix,
		PathStyle: cfg.Archive.S3.PathStyle,
	})
}

func buildNews(cfg *config.Config, logger *slog.Logger) etl.NewsSource {
	if !cfg.News.Enabled || len(cfg.News.Feeds) == 0 {
		return nil
	}
	feeds := make([]nps.Feed, len(cfg.News.Feeds))
	for i, f := range cfg.News.Feeds {
		feeds[i] = nps.Feed{Name: f.Name, ParkCode: f.ParkCode, URL: f.URL}
	}
	return nps.NewNews(feeds, logger)
}

func buildAlertManager(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}

func runSync() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	archiver, err := buildArchiver(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build archive: %w", err)
	}

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	writer := snapshot.NewWriter(cfg.Output.DataDir, cfg.Output.LogsDir, clockwork.NewRealClock(), archiver)
	client := nps.NewClient(cfg.API.Key, logger)
	pipeline := etl.New(client, writer, db, buildNews(cfg, logger), metrics, logger)

	report, runErr := pipeline.Run(ctx)

	notify(ctx, buildAlertManager(cfg), report, runErr, logger)

	if cfg.Metrics.Textfile != "" {
		if err := observability.WriteTextfile(cfg.Metrics.Textfile, reg); err != nil {
			logger.Warn("write metrics textfile", "path", cfg.Metrics.Textfile, "error", err)
		}
	}

	if runErr != nil {
		return runErr
	}
	logger.Info("sync complete", "duration", report.Duration.Round(time.Millisecond))
	return nil
}

func notify(ctx context.Context, mgr *alert.Manager, report *etl.Report, runErr error, logger *slog.Logger) {
	if !mgr.HasNotifiers() {
		return
	}

	n := &alert.Notification{
		Status:   alert.StatusSucceeded,
		Title:    "parksync: sync succeeded",
		Loaded:   report.Loaded,
		Totals:   report.Totals,
		Duration: report.Duration,
		Finished: time.Now().UTC(),
	}
	if runErr != nil {
		n.Status = alert.StatusFailed
		n.Title = "parksync: sync failed"
		n.Error = runErr.Error()
	}

	// Report even when the run was interrupted.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := mgr.Broadcast(sendCtx, n); err != nil {
		logger.Warn("send sync report", "error", err)
	}
}

func runParks(state string, limit int, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	db, err := store.New(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	parks, err := db.ListParks(ctx, store.ParkListOpts{State: state, Limit: limit})
	if err != nil {
		return fmt.Errorf("list parks: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(parks)
	}

	if len(parks) == 0 {
		fmt.Println("no parks found (try syncing first: parksync sync)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tSTATES\tLAT\tLON\tNAME")
	for _, p := range parks {
		fmt.Fprintf(w, "%s\t%s\t%.4f\t%.4f\t%s\n",
			deref(p.ParkCode), deref(p.States), p.Latitude, p.Longitude, deref(p.FullName))
	}
	return w.Flush()
}

func runAmenities(park string, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	db, err := store.New(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	amenities, err := db.ListAmenities(ctx, store.AmenityListOpts{ParkCode: park})
	if err != nil {
		return fmt.Errorf("list amenities: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(amenities)
	}

	if len(amenities) == 0 {
		fmt.Println("no amenities found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	for _, a := range amenities {
		fmt.Fprintf(w, "%s\t%s\n", deref(a.ID), deref(a.Name))
	}
	return w.Flush()
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)

	if port == 0 {
		port = cfg.Server.Port
	}

	ctx := context.Background()
	db, err := store.New(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)
	if counts, err := db.Stats(ctx); err == nil {
		for table, n := range counts {
			metrics.TableRows.WithLabelValues(table).Set(float64(n))
		}
	}

	srv := server.New(db, reg, port, logger)
	return srv.ListenAndServe()
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
