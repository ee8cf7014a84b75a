package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ayusman/trailcam/internal/models"
)

func downloadAction(c *cli.Context, log *zap.SugaredLogger) error {
	dir := c.String(flagModelDir)

	var lastPct int64 = -1
	d := &models.Downloader{
		Progress: func(name string, done, total int64) {
			if total <= 0 {
				return
			}
			if pct := done * 100 / total; pct != lastPct && pct%10 == 0 {
				lastPct = pct
				log.Infow("downloading", "file", name, "percent", pct)
			}
		},
	}

	fetched, err := d.Download(c.Context, dir, models.Files())
	if err != nil {
		return err
	}
	if len(fetched) == 0 {
		fmt.Fprintf(c.App.Writer, "All model files already present in %s\n", dir)
		return nil
	}
	fmt.Fprintf(c.App.Writer, "Downloaded %d file(s) to %s\n", len(fetched), dir)
	return nil
}

func checkAction(c *cli.Context) error {
	dir := c.String(flagModelDir)

	statuses, err := models.Check(dir, models.Files())
	for _, st := range statuses {
		mark := "ok"
		if !st.OK() {
			mark = "missing"
			if st.Size > 0 {
				mark = "too small"
			}
		}
		fmt.Fprintf(c.App.Writer, "%-16s %-10s %10.1f MB\n", st.File.Name, mark, float64(st.Size)/(1<<20))
	}
	if err != nil {
		return fmt.Errorf("model files in %s are incomplete: %w", dir, err)
	}
	return nil
}
