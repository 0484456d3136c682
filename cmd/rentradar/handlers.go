package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/elonfeng/rentradar/internal/catalog"
	"github.com/elonfeng/rentradar/internal/config"
	"github.com/elonfeng/rentradar/internal/logging"
	"github.com/elonfeng/rentradar/internal/scheduler"
	"github.com/elonfeng/rentradar/internal/store"
	"github.com/elonfeng/rentradar/pkg/alert"
	"github.com/elonfeng/rentradar/pkg/export"
	"github.com/elonfeng/rentradar/pkg/listing"
	"github.com/elonfeng/rentradar/pkg/score"
	"github.com/elonfeng/rentradar/pkg/server"
	"github.com/elonfeng/rentradar/pkg/source"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func buildLogger(cfg *config.Config) *logging.Logger {
	return logging.New(logging.ParseLevel(cfg.Log.Level)).WithFile(logging.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
}

func buildFetcher(cfg *config.Config, log *logging.Logger) source.Fetcher {
	opts := source.FetchOptions{
		Headless:  cfg.Scraper.Headless,
		ChromeBin: cfg.Scraper.ChromeBin,
		Timeout:   cfg.Scraper.ParseTimeout(),
		UserAgent: cfg.Scraper.UserAgent,
		Headers:   cfg.Scraper.Headers,
		MinDelay:  time.Second,
		MaxDelay:  3 * time.Second,
	}
	if cfg.Scraper.Mode == "http" {
		return source.NewHTTPFetcher(opts)
	}
	return source.NewBrowserFetcher(opts, log)
}

func buildAcquirer(cfg *config.Config, log *logging.Logger) *source.Acquirer {
	var distance source.DistanceLookup
	if cfg.Maps.APIKey != "" {
		distance = source.NewDistanceClient(cfg.Maps.APIKey, cfg.Maps.BaseURL)
	} else {
		log.Warn("[config] no maps api key, commute distances will be left blank")
	}
	retry := source.Retry{
		Attempts:  cfg.Scraper.Retries,
		BaseDelay: 2 * time.Second,
		Log:       log,
	}
	return source.NewAcquirer(buildFetcher(cfg, log), source.NewImageFetcher(cfg.Scraper.Headers), distance, retry, log)
}

func buildDiscoverer(cfg *config.Config, log *logging.Logger) *source.FeedDiscoverer {
	feeds := make([]source.Feed, len(cfg.Feeds))
	for i, f := range cfg.Feeds {
		feeds[i] = source.Feed{Name: f.Name, URL: f.URL, Include: f.Include, Exclude: f.Exclude}
	}
	return source.NewFeedDiscoverer(feeds, cfg.Scraper.UserAgent, log)
}

func buildAlertManager(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Discord.Enabled && cfg.Alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(cfg.Alerts.Discord.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}

// app bundles what every command opens.
type app struct {
	cfg     *config.Config
	log     *logging.Logger
	db      store.Store
	catalog *catalog.Catalog
}

func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := buildLogger(cfg)

	db, err := store.Open(cfg.Database)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	c, err := catalog.New(db, buildAcquirer(cfg, log), catalog.Options{
		Origin:    cfg.Origin,
		SpielPath: cfg.Spiel.Path,
		Weights:   cfg.Scoring.Weights,
		Scoring:   cfg.Scoring.Options(),
	}, log)
	if err != nil {
		db.Close()
		log.Close()
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	return &app{cfg: cfg, log: log, db: db, catalog: c}, nil
}

func (a *app) Close() error {
	return errors.Join(a.db.Close(), a.log.Close())
}

func runServe(port int, withScheduler bool) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if port == 0 {
		port = a.cfg.Server.Port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if withScheduler {
		if len(a.cfg.Feeds) == 0 {
			a.log.Warn("[scheduler] no feeds configured, only the server will run")
		} else {
			alerts := buildAlertManager(a.cfg)
			if alerts.HasNotifiers() {
				a.log.Info("[alert] notifiers: %v", alerts.Names())
			}
			sched := scheduler.New(a.catalog, buildDiscoverer(a.cfg, a.log), alerts, scheduler.Options{
				Interval:  a.cfg.Schedule.ParseCollectInterval(),
				Occupants: a.cfg.Schedule.Occupants,
				Rating:    a.cfg.Schedule.Rating,
			}, a.log)

			go func() {
				if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
					a.log.Error("[scheduler] %v", err)
				}
			}()
		}
	}

	return server.New(a.catalog, port, a.log).ListenAndServe(ctx)
}

func runAdd(url, htmlFile string, roommates, rating int, group string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	req := catalog.AddRequest{URL: url, Group: group}
	if roommates > 0 {
		req.Occupants = &roommates
	}
	if rating > 0 {
		req.Rating = &rating
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var l listing.Listing
	if htmlFile != "" {
		page, err := os.ReadFile(htmlFile)
		if err != nil {
			return fmt.Errorf("read %s: %w", htmlFile, err)
		}
		l, err = a.catalog.AddFromHTML(ctx, string(page), req)
		if err != nil {
			return err
		}
	} else {
		l, err = a.catalog.AddFromURL(ctx, req)
		if err != nil {
			return err
		}
	}

	fmt.Printf("added %d: %s (score %.2f)\n", l.ID, l.Address, l.Score)
	return nil
}

func runList(sortBy string, jsonOutput bool, limit int) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	listings, err := a.catalog.List(context.Background(), sortBy)
	if err != nil {
		return err
	}
	if limit > 0 && len(listings) > limit {
		listings = listings[:limit]
	}

	if jsonOutput {
		if listings == nil {
			listings = []listing.Listing{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(listings)
	}

	if len(listings) == 0 {
		fmt.Println("no listings yet (try: rentradar add <url>)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCORE\tRENT\tSQFT\tBD\tBA\tMILES\t$/OCC\tGROUP\tADDRESS")
	for _, l := range listings {
		fmt.Fprintf(w, "%d\t%.2f\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			l.ID, l.Score,
			money(l.Price), intCell(l.Area), intCell(l.Bedrooms),
			floatCell(l.Bathrooms, 1), floatCell(l.Distance, 1),
			money(l.CostPerOccupant), l.Group, l.Address)
	}
	return w.Flush()
}

func runScore() error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	report, err := a.catalog.Rescore(ctx)
	if err != nil {
		return err
	}
	printReport(report)

	top, err := a.catalog.Top(ctx)
	if err != nil {
		return err
	}
	if top != nil {
		fmt.Printf("best: %s (score %.2f, %s/mo)\n", top.Address, top.Score, money(top.Price))
	}
	return nil
}

func runExport(out, sortBy string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	listings, err := a.catalog.List(context.Background(), sortBy)
	if err != nil {
		return err
	}
	if err := export.WriteFile(out, listings); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %d listings to %s\n", len(listings), out)
	return nil
}

func runSettings(origin string, weights map[string]float64) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if origin != "" || len(weights) > 0 {
		var w *score.Weights
		if len(weights) > 0 {
			cur := a.catalog.Settings().Weights
			for name, v := range weights {
				switch name {
				case "rent":
					cur.Rent = v
				case "sqft":
					cur.Sqft = v
				case "bedrooms":
					cur.Bedrooms = v
				case "bathrooms":
					cur.Bathrooms = v
				case "distance":
					cur.Distance = v
				}
			}
			w = &cur
		}
		report, err := a.catalog.UpdateSettings(context.Background(), origin, w)
		if err != nil {
			return err
		}
		printReport(report)
	}

	s := a.catalog.Settings()
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "origin\t%s\n", orDash(s.Origin))
	fmt.Fprintf(tw, "weights\trent %.2f, sqft %.2f, bedrooms %.2f, bathrooms %.2f, distance %.2f\n",
		s.Weights.Rent, s.Weights.Sqft, s.Weights.Bedrooms, s.Weights.Bathrooms, s.Weights.Distance)
	fmt.Fprintf(tw, "rating axis\t%t (weight %.2f)\n", s.RatingAxis, s.Weights.RatingWeight())
	return tw.Flush()
}

func printReport(r score.Report) {
	fmt.Fprintf(os.Stderr, "scored %d listings (%d scorable, %d missing data)\n", r.Total, r.Scorable, r.Unscorable)
}

func money(v *float64) string {
	if v == nil {
		return listing.NotAvailable
	}
	return "$" + strconv.FormatFloat(*v, 'f', 0, 64)
}

func intCell(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func floatCell(v *float64, prec int) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
