package store

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/trailcam/internal/tracker"
	"github.com/google/go-cmp/cmp"
)

// newTestStore creates a Store backed by a file in a temp directory.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func newTestSession(t *testing.T, s *Store) *Session {
	t.Helper()

	sess := &Session{Source: "clip.mp4", Preset: "file", Threshold: 50, MaxTrajectory: 30}
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return sess
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatal("database file should not exist before creating store")
	}

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file should exist after creating store")
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", s.Path(), dbPath)
	}
}

func TestNewStore_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	for _, table := range []string{"sessions", "track_history", "screenshots"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q should exist after migrations: %v", table, err)
		}
	}
}

func TestNewStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	sess := newTestSession(t, s)
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	if _, err := s.Sessions().GetByID(sess.ID); err != nil {
		t.Errorf("session should survive reopen: %v", err)
	}
}

func TestStore_Close(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("close should not return error: %v", err)
	}
	if _, err := s.DB().Exec("SELECT 1"); err == nil {
		t.Error("DB operations should fail after close")
	}
}

func TestStore_ForeignKeysEnabled(t *testing.T) {
	s := newTestStore(t)

	var fkEnabled int
	if err := s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		t.Fatalf("failed to check foreign keys pragma: %v", err)
	}
	if fkEnabled != 1 {
		t.Error("foreign keys should be enabled")
	}
}

func TestSessionRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	sess := newTestSession(t, s)

	if sess.ID == "" {
		t.Fatal("Create should assign an ID")
	}
	if sess.StartedAt.IsZero() {
		t.Error("Create should set StartedAt")
	}

	got, err := s.Sessions().GetByID(sess.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Source != "clip.mp4" || got.Preset != "file" || got.Threshold != 50 || got.MaxTrajectory != 30 {
		t.Errorf("GetByID() = %+v", got)
	}
	if got.EndedAt != nil {
		t.Error("unfinished session should have no end time")
	}
}

func TestSessionRepository_Finish(t *testing.T) {
	s := newTestStore(t)
	sess := newTestSession(t, s)

	if err := s.Sessions().Finish(sess.ID, 300, 12); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	got, err := s.Sessions().GetByID(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Frames != 300 || got.Tracks != 12 {
		t.Errorf("counters = %d/%d, want 300/12", got.Frames, got.Tracks)
	}
	if got.EndedAt == nil {
		t.Error("finished session should have an end time")
	}

	if err := s.Sessions().Finish("missing", 1, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Finish(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSessionRepository_List(t *testing.T) {
	s := newTestStore(t)
	newTestSession(t, s)
	newTestSession(t, s)

	sessions, err := s.Sessions().List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("List() returned %d sessions, want 2", len(sessions))
	}
}

func TestSessionRepository_NotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Sessions().GetByID("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
	if err := s.Sessions().Delete("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestTrackRepository_RecordAndList(t *testing.T) {
	s := newTestStore(t)
	sess := newTestSession(t, s)
	repo := s.Tracks()

	tracks := []tracker.Track{
		{ID: 3, ClassID: 2, Score: 0.75, FirstTick: 1, LastTick: 9, Trajectory: []image.Point{{10, 10}, {12, 11}}},
		{ID: 1, ClassID: 0, Score: 0.5, FirstTick: 1, LastTick: 1, Trajectory: []image.Point{{5, 5}}},
	}
	for _, tr := range tracks {
		if err := repo.Record(sess.ID, tr); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	got, err := repo.ListBySession(sess.ID)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListBySession() returned %d records, want 2", len(got))
	}
	if got[0].TrackID != 1 || got[1].TrackID != 3 {
		t.Errorf("records not ordered by track id: %d, %d", got[0].TrackID, got[1].TrackID)
	}
	if diff := cmp.Diff(tracks[0].Trajectory, got[1].Trajectory); diff != "" {
		t.Errorf("trajectory mismatch (-want +got):\n%s", diff)
	}
	if got[1].Score != 0.75 || got[1].LastTick != 9 {
		t.Errorf("record = %+v", got[1])
	}

	n, err := repo.CountBySession(sess.ID)
	if err != nil || n != 2 {
		t.Errorf("CountBySession() = %d, %v", n, err)
	}
}

func TestTrackRepository_CascadeDelete(t *testing.T) {
	s := newTestStore(t)
	sess := newTestSession(t, s)

	if err := s.Tracks().Record(sess.ID, tracker.Track{ID: 0, Trajectory: []image.Point{{1, 1}}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Screenshots().Create(&Screenshot{SessionID: sess.ID, Path: "a.jpg", Frame: 1}); err != nil {
		t.Fatal(err)
	}

	if err := s.Sessions().Delete(sess.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if n, _ := s.Tracks().CountBySession(sess.ID); n != 0 {
		t.Errorf("track history should be deleted with the session, got %d", n)
	}
	shots, _ := s.Screenshots().ListBySession(sess.ID)
	if len(shots) != 0 {
		t.Errorf("screenshots should be deleted with the session, got %d", len(shots))
	}
}

func TestTrackRepository_UnknownSession(t *testing.T) {
	s := newTestStore(t)

	if err := s.Tracks().Record("missing", tracker.Track{}); err == nil {
		t.Error("recording under an unknown session should violate the foreign key")
	}
}

func TestScreenshotRepository(t *testing.T) {
	s := newTestStore(t)
	sess := newTestSession(t, s)
	repo := s.Screenshots()

	for _, frame := range []int{40, 12} {
		shot := &Screenshot{SessionID: sess.ID, Path: "shot.jpg", Frame: frame, Tracks: 2}
		if err := repo.Create(shot); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if shot.ID == 0 {
			t.Error("Create should assign an ID")
		}
	}

	shots, err := repo.ListBySession(sess.ID)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(shots) != 2 || shots[0].Frame != 12 || shots[1].Frame != 40 {
		t.Errorf("ListBySession() = %+v", shots)
	}
}
