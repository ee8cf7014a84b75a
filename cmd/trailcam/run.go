package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ayusman/trailcam/internal/app"
	"github.com/ayusman/trailcam/internal/config"
	"github.com/ayusman/trailcam/internal/detector"
	"github.com/ayusman/trailcam/internal/metric"
	"github.com/ayusman/trailcam/internal/server"
	"github.com/ayusman/trailcam/internal/store"
	"github.com/ayusman/trailcam/internal/tray"
)

// loadSettings resolves settings in increasing precedence: preset, config
// file, environment, command line flags.
func loadSettings(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String(flagConfig), c.String(flagPreset))
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return config.Config{}, err
	}

	if c.IsSet(flagSource) {
		cfg.Source = c.String(flagSource)
	}
	if c.IsSet(flagAddr) {
		cfg.Addr = c.String(flagAddr)
	}
	if c.IsSet(flagDB) {
		cfg.DBPath = c.String(flagDB)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath()
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runAction(c *cli.Context, log *zap.SugaredLogger) error {
	cfg, err := loadSettings(c)
	if err != nil {
		return err
	}

	det, err := detector.NewYOLODetector(cfg.Detector)
	if err != nil {
		if errors.Is(err, detector.ErrModelMissing) {
			return fmt.Errorf("%w (run \"trailcam download\" first)", err)
		}
		return err
	}
	defer det.Close()

	var st *store.Store
	if cfg.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
		st, err = store.New(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
	}

	m := metric.New(cfg.DetectBuckets)

	pipeline := app.New(app.Config{
		Settings:    cfg,
		Classes:     det.Classes(),
		Store:       st,
		Metric:      m,
		PublishJPEG: cfg.Addr != "",
		Logger:      log,
	})
	pipeline.SetDetector(det)

	headless := c.Bool(flagHeadless) || c.Bool(flagTray)
	if !headless {
		win := app.NewWindowDisplay("Trailcam")
		defer win.Close()
		pipeline.SetDisplay(win)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Addr != "" {
		srv := server.New(server.Config{
			StaticDir: resolveStaticDir(c.String(flagStatic)),
			Pipeline:  pipeline,
			Classes:   det.Classes(),
			Store:     st,
			Metric:    m,
			Logger:    log,
		})
		go func() {
			if err := srv.Run(ctx, cfg.Addr); err != nil {
				log.Errorw("http server stopped", "error", err)
			}
		}()
	}

	if !c.Bool(flagTray) {
		return pipeline.Run(ctx)
	}
	return runWithTray(ctx, pipeline)
}

// runWithTray runs the pipeline in the background while the tray owns the
// calling goroutine, which some platforms require for menu events.
func runWithTray(ctx context.Context, pipeline *app.App) error {
	t := tray.New(pipeline)
	t.OnQuit(pipeline.Stop)

	errCh := make(chan error, 1)
	go func() {
		errCh <- pipeline.Run(ctx)
		t.Quit()
	}()

	t.Run()
	pipeline.Stop()
	return <-errCh
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".trailcam", "trailcam.db")
}

// resolveStaticDir returns dir when set, otherwise the first web directory
// found in the usual locations, or "" when there is none.
func resolveStaticDir(dir string) string {
	if dir != "" {
		return dir
	}

	candidates := []string{"web", "../web", "../../web"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".trailcam", "web"))
	}

	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
