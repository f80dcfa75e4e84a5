package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"unisync/internal/config"
	"unisync/internal/gcal"
	"unisync/internal/ics"
	appLog "unisync/internal/log"
	"unisync/internal/model"
	"unisync/internal/parse"
	"unisync/internal/project"
	"unisync/internal/scrape"
	"unisync/internal/snapshot"
)

type flagConfig struct {
	configPath   string
	fromSnapshot bool
	review       bool
	dryRun       bool
	icsPath      string
	preview      int
	watch        bool
	headful      bool
	verbose      bool
}

func main() {
	flags := parseFlags()
	if err := flags.validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if flags.verbose {
		appLog.SetLevel(appLog.LevelDebug)
	}
	defer appLog.Sync()

	appLog.Info("unisync starting", "version", "0.1.0")

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"timezone", conf.Timezone,
		"default_start_date", conf.DefaultStartDate.String(),
		"default_end_date", conf.DefaultEndDate.String(),
		"default_event_color", conf.DefaultEventColor,
		"excluded_dates", len(conf.ExcludedDates),
		"run_headless_browser", conf.RunHeadlessBrowser,
		"calendar_summary", conf.CalendarSummary,
		"from_snapshot", flags.fromSnapshot,
		"dry_run", flags.dryRun,
		"watch", flags.watch,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.watch {
		if err := runWatch(ctx, conf, flags); err != nil {
			appLog.Error("watch mode failed", err)
			os.Exit(1)
		}
		return
	}

	if err := runOnce(ctx, conf, flags); err != nil {
		appLog.Error("sync failed", err)
		os.Exit(1)
	}
	appLog.Info("unisync done")
}

// runWatch repeats runOnce on the configured cron schedule until the context
// is canceled. A failed cycle is logged and the schedule keeps going.
func runWatch(ctx context.Context, conf *config.Config, flags flagConfig) error {
	if conf.SyncCron == "" {
		return errors.New("watch mode requires sync_cron in the config")
	}

	c := cron.New()
	_, err := c.AddFunc(conf.SyncCron, func() {
		if err := runOnce(ctx, conf, flags); err != nil {
			appLog.Error("scheduled sync failed", err)
			return
		}
		appLog.Info("scheduled sync completed")
	})
	if err != nil {
		return fmt.Errorf("invalid sync_cron %q: %w", conf.SyncCron, err)
	}

	appLog.Info("watch mode started", "schedule", conf.SyncCron)
	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	return nil
}

func runOnce(ctx context.Context, conf *config.Config, flags flagConfig) error {
	courses, err := loadCourses(ctx, conf, flags)
	if err != nil {
		return err
	}

	enrolled := model.FilterEnrolled(courses)
	appLog.Info("courses ready", "parsed", len(courses), "enrolled", len(enrolled))

	if !flags.fromSnapshot {
		if err := snapshot.Save(conf.SnapshotPath, enrolled); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		appLog.Info("snapshot saved", "path", conf.SnapshotPath)
	}

	if flags.review {
		appLog.Info("review mode: edit the snapshot, then re-run with -from-snapshot", "path", conf.SnapshotPath)
		return nil
	}

	events, err := project.New(conf).FromCourses(enrolled)
	if err != nil {
		return fmt.Errorf("project events: %w", err)
	}
	appLog.Info("events projected", "count", len(events))

	if flags.icsPath != "" {
		if err := ics.WriteFile(flags.icsPath, events); err != nil {
			return fmt.Errorf("write ics export: %w", err)
		}
		appLog.Info("ics export written", "path", flags.icsPath)
	}

	if flags.preview > 0 {
		if err := printPreview(events, flags.preview); err != nil {
			return err
		}
	}

	if flags.dryRun {
		return printEvents(events)
	}

	client, err := gcal.New(ctx, conf)
	if err != nil {
		return err
	}
	if err := client.EnsureCalendar(ctx, conf.CalendarSummary, conf.Timezone); err != nil {
		return err
	}
	if err := client.Clear(ctx); err != nil {
		return err
	}
	return client.Insert(ctx, events)
}

func loadCourses(ctx context.Context, conf *config.Config, flags flagConfig) ([]model.Course, error) {
	if flags.fromSnapshot {
		courses, err := snapshot.Load(conf.SnapshotPath)
		if err != nil {
			return nil, err
		}
		appLog.Info("snapshot loaded", "path", conf.SnapshotPath, "courses", len(courses))
		return courses, nil
	}

	creds, err := scrape.CredentialsFromEnv()
	if err != nil {
		return nil, err
	}

	headless := conf.RunHeadlessBrowser && !flags.headful
	fragments, err := scrape.FetchCourseFragments(ctx, creds, scrape.Options{Headless: headless})
	if err != nil {
		return nil, err
	}

	return parse.New(conf).ParseAll(fragments), nil
}

func printPreview(events []model.CalendarEvent, limit int) error {
	for _, event := range events {
		occurrences, err := project.Occurrences(event, limit)
		if err != nil {
			return fmt.Errorf("preview %q: %w", event.Summary, err)
		}
		fmt.Printf("%s @ %s\n", event.Summary, event.Location)
		for _, occ := range occurrences {
			fmt.Printf("  %s - %s\n",
				occ.Start.Format("Mon 2006-01-02 15:04"),
				occ.End.Format("15:04"))
		}
	}
	return nil
}

func printEvents(events []model.CalendarEvent) error {
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// validate rejects flag combinations that cannot do useful work.
func (f flagConfig) validate() error {
	if f.review && f.fromSnapshot {
		return errors.New("-review and -from-snapshot are mutually exclusive: -review writes the snapshot that -from-snapshot reads")
	}
	return nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "config.yaml", "Path to config file")
	flag.BoolVar(&cfg.fromSnapshot, "from-snapshot", false, "Skip scraping and load courses from the snapshot file")
	flag.BoolVar(&cfg.review, "review", false, "Scrape, parse and save the snapshot, then exit for manual review")
	flag.BoolVar(&cfg.dryRun, "dry-run", false, "Print projected events as JSON instead of syncing")
	flag.StringVar(&cfg.icsPath, "ics", "", "Also write projected events to this iCalendar file")
	flag.IntVar(&cfg.preview, "preview", 0, "Print the first N occurrences of every projected event")
	flag.BoolVar(&cfg.watch, "watch", false, "Keep running and sync on the config's sync_cron schedule")
	flag.BoolVar(&cfg.headful, "headful", false, "Force a visible browser window for the scrape")
	flag.BoolVar(&cfg.verbose, "verbose", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
