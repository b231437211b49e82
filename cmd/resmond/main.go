package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/gethomeport/resmon/internal/activity"
	"github.com/gethomeport/resmon/internal/alert"
	"github.com/gethomeport/resmon/internal/alertlog"
	"github.com/gethomeport/resmon/internal/api"
	"github.com/gethomeport/resmon/internal/config"
	"github.com/gethomeport/resmon/internal/display"
	"github.com/gethomeport/resmon/internal/logger"
	"github.com/gethomeport/resmon/internal/monitor"
	"github.com/gethomeport/resmon/internal/process"
	"github.com/gethomeport/resmon/internal/stats"
	"github.com/gethomeport/resmon/internal/store"
	"github.com/gethomeport/resmon/internal/version"
)

func main() {
	devMode := flag.Bool("dev", false, "Run in development mode (local paths, debug logging)")
	configPath := flag.String("config", "", "Path to config file")
	listenAddr := flag.String("listen", "", "Override listen address (e.g., :8787)")
	console := flag.Bool("console", false, "Also print every snapshot and alert to stdout")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("INFO: No .env file found, relying on system environment variables")
	}

	// Load config
	var cfg *config.Config
	var err error

	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	} else if *devMode {
		cfg = config.DefaultDev()
	} else {
		cfg = config.Default()
	}

	cfg.DevMode = cfg.DevMode || *devMode
	cfg.ApplyEnv()

	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	appLog := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	// Ensure directories exist
	if err := cfg.EnsureDirs(); err != nil {
		log.Fatalf("Failed to create directories: %v", err)
	}

	// Initialize store
	st, err := store.New(cfg.DBPath())
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	alerts := alertlog.New(cfg.LogFile)
	act := activity.New(activity.DefaultSize)

	sink := alert.Fanout{
		alerts,
		store.AlertSink{Store: st},
		act,
	}

	mon := monitor.New(
		stats.NewProvider(cfg.DiskPath, cfg.CPUSampleWindow),
		process.NewRanker(process.NewSystemSource()),
		sink,
		appLog.With("component", "monitor"),
		monitor.Options{
			Interval: cfg.Interval,
			TopN:     cfg.TopN,
			Cooldown: cfg.Cooldown,
			Thresholds: alert.Thresholds{
				CPU:  cfg.Thresholds.CPU,
				RAM:  cfg.Thresholds.RAM,
				Disk: cfg.Thresholds.Disk,
			},
		},
	)

	server := api.NewServer(cfg, mon, st, alerts, act, appLog.With("component", "api"))
	mon.Subscribe(server.Hub())
	if *console {
		mon.Subscribe(display.NewConsole(os.Stdout))
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	appLog.Info("resmon daemon starting",
		"version", version.GetVersion(),
		"dev_mode", cfg.DevMode,
		"listen", cfg.ListenAddr,
		"data_dir", cfg.DataDir,
		"log_file", cfg.LogFile,
		"disk_path", cfg.DiskPath,
		"interval", cfg.Interval,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return mon.Run(gCtx)
	})

	g.Go(func() error {
		return server.Hub().Run(gCtx)
	})

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		appLog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLog.Error("daemon failed", "error", err)
		st.Close()
		os.Exit(1)
	}

	appLog.Info("daemon stopped gracefully")
}
