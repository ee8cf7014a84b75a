// Package models downloads and verifies the YOLOv4 model files.
package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/ayusman/trailcam/internal/detector"
	"go.uber.org/multierr"
)

// ErrTooSmall is reported by Check for a file below its expected size,
// which usually means an interrupted download or an HTML error page.
var ErrTooSmall = errors.New("file too small")

// File is one model file and where to fetch it.
type File struct {
	Name    string
	URL     string
	MinSize int64
}

// Files returns the weights, network config and class names.
func Files() []File {
	return []File{
		{
			Name:    detector.DefaultWeightsFile,
			URL:     "https://github.com/AlexeyAB/darknet/releases/download/darknet_yolo_v3_optimal/yolov4.weights",
			MinSize: 245_000_000,
		},
		{
			Name:    detector.DefaultConfigFile,
			URL:     "https://raw.githubusercontent.com/AlexeyAB/darknet/master/cfg/yolov4.cfg",
			MinSize: 10_000,
		},
		{
			Name:    detector.DefaultClassesFile,
			URL:     "https://raw.githubusercontent.com/AlexeyAB/darknet/master/data/coco.names",
			MinSize: 500,
		},
	}
}

// Progress is called while a file downloads. total is -1 when the server
// did not send a length.
type Progress func(name string, done, total int64)

// Downloader fetches model files over HTTP.
type Downloader struct {
	Client   *http.Client
	Progress Progress
}

// Download fetches every file missing from dir. Existing files are left
// alone. Each file is written to a temporary name and renamed into place
// once complete, so an interrupted run never leaves a partial model behind.
// It returns the names that were downloaded.
func (d *Downloader) Download(ctx context.Context, dir string, files []File) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create model dir: %w", err)
	}

	var fetched []string
	for _, f := range files {
		dst := filepath.Join(dir, f.Name)
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		if err := d.fetch(ctx, f, dst); err != nil {
			return fetched, fmt.Errorf("download %s: %w", f.Name, err)
		}
		fetched = append(fetched, f.Name)
	}
	return fetched, nil
}

func (d *Downloader) fetch(ctx context.Context, f File, dst string) (err error) {
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), f.Name+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, os.Remove(tmp.Name()))
		}
	}()

	var body io.Reader = resp.Body
	if d.Progress != nil {
		body = &progressReader{r: resp.Body, name: f.Name, total: resp.ContentLength, fn: d.Progress}
	}

	if _, err = io.Copy(tmp, body); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

type progressReader struct {
	r     io.Reader
	name  string
	done  int64
	total int64
	fn    Progress
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.done += int64(n)
	p.fn(p.name, p.done, p.total)
	return n, err
}

// Status describes one model file on disk.
type Status struct {
	File File
	Path string
	Size int64
	Err  error
}

// OK reports whether the file is present and large enough.
func (s Status) OK() bool {
	return s.Err == nil
}

// Check reports the state of each file in dir. The returned error combines
// every missing or undersized file and is nil when all are usable.
func Check(dir string, files []File) ([]Status, error) {
	var (
		statuses []Status
		errs     error
	)
	for _, f := range files {
		st := Status{File: f, Path: filepath.Join(dir, f.Name)}

		info, err := os.Stat(st.Path)
		switch {
		case err != nil:
			st.Err = err
		case info.Size() < f.MinSize:
			st.Size = info.Size()
			st.Err = fmt.Errorf("%w: %d bytes, expected at least %d", ErrTooSmall, info.Size(), f.MinSize)
		default:
			st.Size = info.Size()
		}

		if st.Err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", f.Name, st.Err))
		}
		statuses = append(statuses, st)
	}
	return statuses, errs
}
