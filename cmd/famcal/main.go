package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"famcal/internal/capture"
	"famcal/internal/config"
	appLog "famcal/internal/log"
	"famcal/internal/source"
	"famcal/internal/view"
	"famcal/internal/web"
)

const defaultConfigPath = "/etc/famcal/config.yaml"

func main() {
	// Load .env first; absence is fine.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "famcal",
		Usage: "Household scheduling dashboard: shared family agenda with month/week/day views.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   defaultConfigPath,
				Usage:   "Path to the YAML config file",
				EnvVars: []string{"FAMCAL_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Verbose logging and relative cache paths",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			snapshotCommand(),
			configCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		appLog.Error("famcal failed", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web server and the scheduled event refresh.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "HTTP listen address (overrides config if set)"},
			&cli.BoolFlag{Name: "once", Usage: "Refresh the event sources once and exit"},
		},
		Action: func(c *cli.Context) error {
			debug := c.Bool("debug")
			if debug {
				appLog.SetLevel(appLog.LevelDebug)
			}

			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if listen := c.String("listen"); listen != "" {
				cfg.Listen = listen
			}

			appLog.Info("famcal starting",
				"listen", cfg.Listen,
				"timezone", cfg.Timezone,
				"week_start", cfg.WeekStart,
				"refresh", cfg.RefreshCron,
				"members", len(cfg.Members),
				"ics_count", len(cfg.ICS),
			)

			engine, store := buildPipeline(cfg, debug)

			// Root context canceled on SIGINT/SIGTERM.
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				sig := <-sigCh
				appLog.Info("signal received, shutting down", "signal", sig.String())
				cancel()
			}()

			// Initial refresh so the first page load has data.
			refreshCtx, refreshCancel := context.WithTimeout(ctx, 60*time.Second)
			if err := store.Refresh(refreshCtx); err != nil {
				appLog.Error("initial refresh failed", err)
			}
			refreshCancel()

			if c.Bool("once") {
				appLog.Info("single refresh completed, exiting", "events", len(store.Events()))
				return nil
			}

			// Periodic refresh on the configured cron schedule.
			sched := cron.New()
			if _, err := sched.AddFunc(cfg.RefreshCron, func() {
				rc, rcCancel := context.WithTimeout(ctx, 60*time.Second)
				defer rcCancel()
				if err := store.Refresh(rc); err != nil {
					appLog.Error("scheduled refresh failed", err)
				}
			}); err != nil {
				return fmt.Errorf("invalid refresh schedule %q: %w", cfg.RefreshCron, err)
			}
			sched.Start()
			defer sched.Stop()

			return web.ListenAndServe(ctx, web.NewServer(cfg, engine, store, debug))
		},
	}
}

func snapshotCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Capture a PNG snapshot of the dashboard UI (for kiosk displays).",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://127.0.0.1:8080/", Usage: "Dashboard URL to capture"},
			&cli.StringFlag{Name: "out", Value: "/var/lib/famcal/preview.png", Usage: "Output PNG path"},
			&cli.IntFlag{Name: "width", Value: capture.DefaultWidth, Usage: "Viewport width"},
			&cli.IntFlag{Name: "height", Value: capture.DefaultHeight, Usage: "Viewport height"},
			&cli.DurationFlag{Name: "timeout", Value: capture.DefaultTimeout, Usage: "Capture timeout"},
		},
		Action: func(c *cli.Context) error {
			out := c.String("out")
			if c.Bool("debug") {
				out = "./cache/preview.png"
			}

			err := capture.SnapshotPNG(c.Context, capture.Options{
				URL:        c.String("url"),
				OutputPath: out,
				Width:      c.Int("width"),
				Height:     c.Int("height"),
				Timeout:    c.Duration("timeout"),
			})
			if err != nil {
				return err
			}
			appLog.Info("snapshot written", "path", out)
			return nil
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect or initialize the configuration file.",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write a default config file if none exists.",
				Action: func(c *cli.Context) error {
					path := c.String("config")
					if _, err := os.Stat(path); err == nil {
						return fmt.Errorf("config already exists at %s", path)
					}
					if err := config.Save(path, config.DefaultConfig()); err != nil {
						return err
					}
					appLog.Info("default config written", "path", path)
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "Print the effective (normalized) configuration as YAML.",
				Action: func(c *cli.Context) error {
					cfg, err := config.Load(c.String("config"))
					if err != nil {
						return err
					}
					data, err := yaml.Marshal(cfg)
					if err != nil {
						return err
					}
					_, err = os.Stdout.Write(data)
					return err
				},
			},
		},
	}
}

// buildPipeline wires the view engine and the event store from config:
// configured ICS subscriptions feed the store; with none configured the
// built-in demo fixture keeps a fresh install populated.
func buildPipeline(cfg *config.Config, debug bool) (*view.Engine, *source.Store) {
	loc := cfg.Location()
	clock := func() time.Time { return time.Now().In(loc) }

	engine := view.New(view.Config{
		WeekStart:           cfg.WeekStartDay(),
		VisibleStartHour:    cfg.View.VisibleStartHour,
		VisibleEndHour:      cfg.View.VisibleEndHour,
		PxPerMinute:         cfg.View.PxPerMinute,
		MinEventHeightPx:    cfg.View.MinEventHeightPx,
		PreferredScrollHour: cfg.View.PreferredScrollHour,
		LaneLayout:          cfg.View.LaneLayout,
		FallbackColor:       cfg.FallbackColor,
	}, clock)

	cacheDir := "/var/lib/famcal/ics-cache"
	if debug {
		cacheDir = "./cache/ics-cache"
	}

	var providers []source.Provider
	if ics := source.NewICSProvider(cfg.ICS, cacheDir, loc); ics.SourceCount() > 0 {
		providers = append(providers, ics)
	} else {
		appLog.Info("no ICS sources configured, using demo fixture")
		providers = append(providers, source.NewFixture(clock))
	}

	return engine, source.NewStore(providers, clock)
}
