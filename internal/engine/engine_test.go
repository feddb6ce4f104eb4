package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"mdserver/internal/domain"
	"mdserver/internal/infra"
)

const stageScript = `units lj
atom_style atomic
create_box 1 box
dump 1 all custom 100 traj.dump id type x y z vx vy vz
run 100
`

type fakeExec struct {
	res   ExecResult
	err   error
	onRun func(workDir string)
	calls int
}

func (f *fakeExec) Run(ctx context.Context, workDir string, args []string) (ExecResult, error) {
	f.calls++
	if f.onRun != nil {
		f.onRun(workDir)
	}
	return f.res, f.err
}

func testLogger() infra.Logger {
	return infra.NewLogger("test")
}

func stageJob(t *testing.T, scriptContent string) (*Stager, *JobContext) {
	t.Helper()
	s := &Stager{BaseDir: t.TempDir()}
	jc, err := s.Stage("job-1", scriptContent)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	return s, jc
}

func TestStageWritesScriptIntoExclusiveDir(t *testing.T) {
	s, jc := stageJob(t, stageScript)
	data, err := os.ReadFile(jc.ScriptPath)
	if err != nil {
		t.Fatalf("read staged script: %v", err)
	}
	// The script sets no masses; staging must inject defaults.
	if !strings.Contains(string(data), "mass 1 1.0") {
		t.Fatalf("staged script lacks injected mass:\n%s", data)
	}
	if jc.Dumps.Velocity != "traj.dump" || !jc.Dumps.VelocityHasPositions {
		t.Fatalf("dumps = %+v", jc.Dumps)
	}
	if jc.Units != "lj" {
		t.Fatalf("units = %q", jc.Units)
	}

	// Same job id again must not reuse the directory.
	if _, err := s.Stage("job-1", stageScript); err == nil {
		t.Fatal("Stage reused an existing working directory")
	}
}

func TestStageRejectsInvalidScript(t *testing.T) {
	s := &Stager{BaseDir: t.TempDir()}
	_, err := s.Stage("job-2", "   ")
	var f *domain.Failure
	if !errors.As(err, &f) || f.Kind != domain.FailValidation {
		t.Fatalf("got %v, want validation failure", err)
	}
}

func TestResolverMaterializesPotential(t *testing.T) {
	_, jc := stageJob(t, stageScript)
	repo := stubPotentials{
		"pot-1": {ID: "pot-1", Filename: "Cu_u3.eam", Content: "pair data"},
	}
	r := &Resolver{Potentials: repo}

	id := "pot-1"
	if err := r.Materialize(context.Background(), jc, &id); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(jc.WorkDir, "Cu_u3.eam"))
	if err != nil {
		t.Fatalf("potential not written: %v", err)
	}
	if string(data) != "pair data" {
		t.Fatalf("potential content = %q", data)
	}
}

func TestResolverUnknownID(t *testing.T) {
	_, jc := stageJob(t, stageScript)
	r := &Resolver{Potentials: stubPotentials{}}
	id := "nope"
	err := r.Materialize(context.Background(), jc, &id)
	var f *domain.Failure
	if !errors.As(err, &f) || f.Kind != domain.FailResolution {
		t.Fatalf("got %v, want resolution failure", err)
	}
}

func TestResolverNoReference(t *testing.T) {
	_, jc := stageJob(t, stageScript)
	r := &Resolver{Potentials: stubPotentials{}}
	if err := r.Materialize(context.Background(), jc, nil); err != nil {
		t.Fatalf("Materialize(nil) = %v, want nil", err)
	}
}

type stubPotentials map[string]domain.PotentialFile

func (s stubPotentials) Create(ctx context.Context, f *domain.PotentialFile) error { return nil }

func (s stubPotentials) GetByID(ctx context.Context, id string) (*domain.PotentialFile, error) {
	if f, ok := s[id]; ok {
		return &f, nil
	}
	return nil, domain.ErrNotFound
}

func TestRunnerSuccess(t *testing.T) {
	_, jc := stageJob(t, stageScript)
	exec := &fakeExec{onRun: func(workDir string) {
		if err := os.WriteFile(filepath.Join(workDir, "traj.dump"), []byte("ITEM: TIMESTEP\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}}
	r := &Runner{Exec: exec, Timeout: time.Minute, Logger: testLogger()}

	out, err := r.Run(context.Background(), jc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Format != FormatCustomDump || filepath.Base(out.TrajectoryPath) != "traj.dump" {
		t.Fatalf("output = %+v", out)
	}
	if out.VelocityPath != "" {
		t.Fatalf("unexpected separate velocity dump: %q", out.VelocityPath)
	}
}

func TestRunnerNonzeroExit(t *testing.T) {
	_, jc := stageJob(t, stageScript)
	exec := &fakeExec{res: ExecResult{ExitCode: 1, Stderr: "ERROR: Unknown command: wiggle"}}
	r := &Runner{Exec: exec, Timeout: time.Minute, Logger: testLogger()}

	_, err := r.Run(context.Background(), jc)
	var f *domain.Failure
	if !errors.As(err, &f) || f.Kind != domain.FailEngine {
		t.Fatalf("got %v, want engine failure", err)
	}
	if !strings.Contains(f.Message, "Unknown command") {
		t.Fatalf("message %q lacks stderr tail", f.Message)
	}
}

func TestTailKeepsRuneBoundaries(t *testing.T) {
	if got := tail("ERROR: bad input", stderrTailLimit); got != "ERROR: bad input" {
		t.Fatalf("short input altered: %q", got)
	}

	// 3-byte runes put the naive cut point mid-rune.
	long := strings.Repeat("日", 1000)
	got := tail(long, stderrTailLimit)
	if !strings.HasPrefix(got, "...") {
		t.Fatalf("truncated tail lacks marker: %q", got[:12])
	}
	if !utf8.ValidString(got) {
		t.Fatal("truncated tail is not valid UTF-8")
	}
	if len(got) > stderrTailLimit+len("...") {
		t.Fatalf("tail length %d exceeds limit", len(got))
	}
}

func TestRunnerTimeout(t *testing.T) {
	_, jc := stageJob(t, stageScript)
	exec := &fakeExec{err: context.DeadlineExceeded}
	r := &Runner{Exec: exec, Timeout: time.Minute, Logger: testLogger()}

	_, err := r.Run(context.Background(), jc)
	var f *domain.Failure
	if !errors.As(err, &f) || f.Kind != domain.FailTimeout {
		t.Fatalf("got %v, want timeout failure", err)
	}
	if !strings.Contains(f.Message, "wall-clock") {
		t.Fatalf("message %q does not indicate a timeout", f.Message)
	}
}

func TestRunnerOutputMissing(t *testing.T) {
	_, jc := stageJob(t, stageScript)
	tests := []struct {
		name  string
		onRun func(workDir string)
	}{
		{name: "no file", onRun: nil},
		{name: "empty file", onRun: func(workDir string) {
			_ = os.WriteFile(filepath.Join(workDir, "traj.dump"), nil, 0o644)
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := &Runner{Exec: &fakeExec{onRun: tc.onRun}, Timeout: time.Minute, Logger: testLogger()}
			_, err := r.Run(context.Background(), jc)
			var f *domain.Failure
			if !errors.As(err, &f) || f.Kind != domain.FailOutputMissing {
				t.Fatalf("got %v, want output_missing failure", err)
			}
		})
	}
}

func TestRunnerSeparateVelocityDump(t *testing.T) {
	scriptWithBoth := `units lj
atom_style atomic
create_box 1 box
mass 1 1.0
dump 1 all xyz 100 traj.xyz
dump 2 all custom 100 vel.dump id vx vy vz
run 100
`
	_, jc := stageJob(t, scriptWithBoth)
	exec := &fakeExec{onRun: func(workDir string) {
		_ = os.WriteFile(filepath.Join(workDir, "traj.xyz"), []byte("1\n"), 0o644)
		_ = os.WriteFile(filepath.Join(workDir, "vel.dump"), []byte("ITEM: TIMESTEP\n"), 0o644)
	}}
	r := &Runner{Exec: exec, Timeout: time.Minute, Logger: testLogger()}

	out, err := r.Run(context.Background(), jc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Format != FormatXYZ || filepath.Base(out.TrajectoryPath) != "traj.xyz" {
		t.Fatalf("output = %+v", out)
	}
	if filepath.Base(out.VelocityPath) != "vel.dump" {
		t.Fatalf("velocity dump = %q", out.VelocityPath)
	}
}
