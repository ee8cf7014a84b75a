package models

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"
)

func testFiles(baseURL string) []File {
	return []File{
		{Name: "net.weights", URL: baseURL + "/net.weights", MinSize: 16},
		{Name: "net.cfg", URL: baseURL + "/net.cfg", MinSize: 4},
	}
}

func newModelServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		switch r.URL.Path {
		case "/net.weights":
			w.Write([]byte(strings.Repeat("w", 32)))
		case "/net.cfg":
			w.Write([]byte("[net]\nwidth=416\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestFiles(t *testing.T) {
	files := Files()
	if len(files) != 3 {
		t.Fatalf("len(Files()) = %d, want 3", len(files))
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
		if !strings.HasPrefix(f.URL, "https://") {
			t.Errorf("%s: URL %q is not https", f.Name, f.URL)
		}
		if f.MinSize <= 0 {
			t.Errorf("%s: MinSize = %d", f.Name, f.MinSize)
		}
	}

	want := []string{"yolov4.weights", "yolov4.cfg", "classes.txt"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestDownload(t *testing.T) {
	var hits int32
	ts := newModelServer(t, &hits)
	dir := filepath.Join(t.TempDir(), "dnn_model")

	var last int64
	d := &Downloader{
		Client:   ts.Client(),
		Progress: func(name string, done, total int64) { last = done },
	}

	fetched, err := d.Download(context.Background(), dir, testFiles(ts.URL))
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if diff := cmp.Diff([]string{"net.weights", "net.cfg"}, fetched); diff != "" {
		t.Errorf("fetched mismatch (-want +got):\n%s", diff)
	}
	if last == 0 {
		t.Error("progress callback never reported bytes")
	}

	data, err := os.ReadFile(filepath.Join(dir, "net.cfg"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[net]\nwidth=416\n" {
		t.Errorf("net.cfg = %q", data)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}
}

func TestDownload_SkipsExisting(t *testing.T) {
	var hits int32
	ts := newModelServer(t, &hits)
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "net.weights"), []byte("local copy"), 0o644); err != nil {
		t.Fatal(err)
	}

	d := &Downloader{Client: ts.Client()}
	fetched, err := d.Download(context.Background(), dir, testFiles(ts.URL))
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if diff := cmp.Diff([]string{"net.cfg"}, fetched); diff != "" {
		t.Errorf("fetched mismatch (-want +got):\n%s", diff)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("server hits = %d, want 1", got)
	}

	data, _ := os.ReadFile(filepath.Join(dir, "net.weights"))
	if string(data) != "local copy" {
		t.Errorf("existing file was overwritten: %q", data)
	}
}

func TestDownload_HTTPError(t *testing.T) {
	var hits int32
	ts := newModelServer(t, &hits)
	dir := t.TempDir()

	files := []File{{Name: "missing.bin", URL: ts.URL + "/missing.bin"}}
	d := &Downloader{Client: ts.Client()}

	if _, err := d.Download(context.Background(), dir, files); err == nil {
		t.Fatal("Download() error = nil, want status error")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("dir has %d entries after failed download, want 0", len(entries))
	}
}

func TestDownload_Cancelled(t *testing.T) {
	var hits int32
	ts := newModelServer(t, &hits)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &Downloader{Client: ts.Client()}
	_, err := d.Download(ctx, t.TempDir(), testFiles(ts.URL))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Download() error = %v, want context.Canceled", err)
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	files := []File{
		{Name: "ok.bin", MinSize: 4},
		{Name: "small.bin", MinSize: 100},
		{Name: "absent.bin", MinSize: 1},
	}
	os.WriteFile(filepath.Join(dir, "ok.bin"), []byte("12345"), 0o644)
	os.WriteFile(filepath.Join(dir, "small.bin"), []byte("1"), 0o644)

	statuses, err := Check(dir, files)
	if err == nil {
		t.Fatal("Check() error = nil, want problems reported")
	}
	if n := len(multierr.Errors(err)); n != 2 {
		t.Errorf("Check() reported %d problems, want 2", n)
	}

	if !statuses[0].OK() || statuses[0].Size != 5 {
		t.Errorf("ok.bin status = %+v", statuses[0])
	}
	if !errors.Is(statuses[1].Err, ErrTooSmall) {
		t.Errorf("small.bin error = %v, want ErrTooSmall", statuses[1].Err)
	}
	if !errors.Is(statuses[2].Err, fs.ErrNotExist) {
		t.Errorf("absent.bin error = %v, want fs.ErrNotExist", statuses[2].Err)
	}
}

func TestCheck_AllPresent(t *testing.T) {
	dir := t.TempDir()
	files := []File{{Name: "a", MinSize: 1}}
	os.WriteFile(filepath.Join(dir, "a"), []byte("x"), 0o644)

	if _, err := Check(dir, files); err != nil {
		t.Errorf("Check() error = %v", err)
	}
}
