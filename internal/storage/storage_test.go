package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"mdserver/internal/domain"
	"mdserver/internal/infra"
)

func newStore(t *testing.T) *ArtifactStore {
	t.Helper()
	s, err := NewArtifactStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewArtifactStore: %v", err)
	}
	return s
}

func TestArtifactRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	raw := "ITEM: TIMESTEP\n0\nITEM: NUMBER OF ATOMS\n1\nITEM: ATOMS id x y z\n1 0 0 0\n"

	if err := s.SaveTrajectory(ctx, "art-1", strings.NewReader(raw)); err != nil {
		t.Fatalf("SaveTrajectory: %v", err)
	}
	rc, err := s.OpenTrajectory(ctx, "art-1")
	if err != nil {
		t.Fatalf("OpenTrajectory: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(got) != raw {
		t.Fatalf("round trip mismatch: got %q", got)
	}
}

func TestArtifactNotFound(t *testing.T) {
	s := newStore(t)
	_, err := s.OpenTrajectory(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestArtifactRemoveIdempotent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if err := s.SaveTrajectory(ctx, "art-1", strings.NewReader("data")); err != nil {
		t.Fatal(err)
	}
	ok, err := s.RemoveTrajectory(ctx, "art-1")
	if err != nil || !ok {
		t.Fatalf("first remove = %v, %v", ok, err)
	}
	ok, err = s.RemoveTrajectory(ctx, "art-1")
	if err != nil || ok {
		t.Fatalf("second remove = %v, %v, want no-op", ok, err)
	}
}

func TestArtifactRejectsTraversalKeys(t *testing.T) {
	s := newStore(t)
	for _, key := range []string{"", "../escape", "a/b"} {
		if err := s.SaveTrajectory(context.Background(), key, strings.NewReader("x")); err == nil {
			t.Fatalf("key %q accepted", key)
		}
	}
}

type stubJobs struct {
	jobs    map[string]*domain.SimulationJob
	deleted []string
}

func (s *stubJobs) Create(ctx context.Context, job *domain.SimulationJob) error { return nil }

func (s *stubJobs) GetByID(ctx context.Context, id string) (*domain.SimulationJob, error) {
	if j, ok := s.jobs[id]; ok {
		return j, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubJobs) Claim(ctx context.Context) (*domain.SimulationJob, *domain.SimulationInput, error) {
	return nil, nil, domain.ErrJobNotClaimed
}

func (s *stubJobs) Complete(ctx context.Context, jobID string, result *domain.JobResult) error {
	return nil
}

func (s *stubJobs) Fail(ctx context.Context, jobID string, failure *domain.Failure) error {
	return nil
}

func (s *stubJobs) ListExpired(ctx context.Context, cutoff time.Time) ([]domain.SimulationJob, error) {
	var out []domain.SimulationJob
	for _, j := range s.jobs {
		if j.Status.Terminal() && j.FinishedAt != nil && j.FinishedAt.Before(cutoff) {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (s *stubJobs) Delete(ctx context.Context, jobID string) (bool, error) {
	if _, ok := s.jobs[jobID]; !ok {
		return false, nil
	}
	delete(s.jobs, jobID)
	s.deleted = append(s.deleted, jobID)
	return true, nil
}

func retentionFixture(t *testing.T) (*Retention, *stubJobs, *ArtifactStore) {
	t.Helper()
	store := newStore(t)
	old := time.Now().Add(-48 * time.Hour)
	artID := "art-old"
	jobs := &stubJobs{jobs: map[string]*domain.SimulationJob{
		"job-old": {
			ID: "job-old", Status: domain.JobStatusCompleted,
			TrajectoryArtifactID: &artID, FinishedAt: &old,
		},
		"job-active": {ID: "job-active", Status: domain.JobStatusRunning},
	}}
	if err := store.SaveTrajectory(context.Background(), artID, strings.NewReader("dump")); err != nil {
		t.Fatal(err)
	}
	return &Retention{Jobs: jobs, Artifacts: store, Logger: infra.NewLogger("test")}, jobs, store
}

func TestSweepRemovesAgedTerminalJobs(t *testing.T) {
	r, jobs, store := retentionFixture(t)
	ctx := context.Background()

	removed, err := r.Sweep(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := store.OpenTrajectory(ctx, "art-old"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("artifact still retrievable: %v", err)
	}
	if _, ok := jobs.jobs["job-active"]; !ok {
		t.Fatal("sweep deleted an active job")
	}

	// Idempotency: the same sweep again removes nothing further.
	removed, err = r.Sweep(ctx, 24*time.Hour)
	if err != nil || removed != 0 {
		t.Fatalf("second sweep = %d, %v, want 0, nil", removed, err)
	}
}

func TestRemoveByID(t *testing.T) {
	r, jobs, _ := retentionFixture(t)
	ctx := context.Background()

	removed, err := r.Remove(ctx, "job-old", "job-active", "job-unknown")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1 (active and unknown skipped)", removed)
	}
	if _, ok := jobs.jobs["job-active"]; !ok {
		t.Fatal("remove purged an active job")
	}

	removed, err = r.Remove(ctx, "job-old")
	if err != nil || removed != 0 {
		t.Fatalf("repeat remove = %d, %v, want 0, nil", removed, err)
	}
}
