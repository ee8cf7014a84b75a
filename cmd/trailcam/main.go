// Command trailcam detects objects in a video file or camera feed and draws
// the trail each tracked object leaves behind.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ayusman/trailcam/internal/config"
	"github.com/ayusman/trailcam/internal/detector"
)

const (
	// Flags.
	flagPreset   = "preset"
	flagSource   = "source"
	flagConfig   = "config"
	flagHeadless = "headless"
	flagAddr     = "addr"
	flagDB       = "db"
	flagTray     = "tray"
	flagDebug    = "debug"
	flagModelDir = "model-dir"
	flagStatic   = "static"
)

func main() {
	var logger *zap.SugaredLogger

	app := &cli.App{
		Name:  "trailcam",
		Usage: "track objects in video and draw their trails",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			var (
				l   *zap.Logger
				err error
			)
			if c.Bool(flagDebug) {
				l, err = zap.NewDevelopment()
			} else {
				l, err = zap.NewProduction()
			}
			if err != nil {
				return err
			}
			logger = l.Sugar()
			return nil
		},
		After: func(c *cli.Context) error {
			if logger != nil {
				logger.Sync() //nolint:errcheck
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "track objects in a video file or camera feed",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    flagPreset,
						Aliases: []string{"p"},
						Value:   config.PresetFile,
						Usage:   "settings preset, file or live",
					},
					&cli.StringFlag{
						Name:    flagSource,
						Aliases: []string{"s"},
						Usage:   "video file path or camera index (defaults to the preset's source)",
					},
					&cli.StringFlag{
						Name:    flagConfig,
						Aliases: []string{"c"},
						Usage:   "Load configuration overrides from `FILE`",
					},
					&cli.BoolFlag{
						Name:  flagHeadless,
						Usage: "do not open a display window",
					},
					&cli.StringFlag{
						Name:  flagAddr,
						Usage: "HTTP listen address, empty to disable the server",
					},
					&cli.StringFlag{
						Name:  flagDB,
						Usage: "session history database `FILE`",
					},
					&cli.StringFlag{
						Name:  flagStatic,
						Usage: "directory of web UI files",
					},
					&cli.BoolFlag{
						Name:  flagTray,
						Usage: "show a system tray menu (implies --headless)",
					},
				},
				Action: func(c *cli.Context) error {
					return runAction(c, logger)
				},
			},
			{
				Name:  "download",
				Usage: "download the YOLOv4 model files",
				Flags: []cli.Flag{modelDirFlag()},
				Action: func(c *cli.Context) error {
					return downloadAction(c, logger)
				},
			},
			{
				Name:  "check",
				Usage: "verify the model files are present",
				Flags: []cli.Flag{modelDirFlag()},
				Action: func(c *cli.Context) error {
					return checkAction(c)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func modelDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    flagModelDir,
		Aliases: []string{"m"},
		Value:   detector.DefaultModelDir,
		Usage:   "directory holding the model files",
	}
}
