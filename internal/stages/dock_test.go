package stages

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/fsutil"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/pipeline"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/results"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/runlog"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/testutil"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/toolexec"
)

const (
	receptorsDir = "results/docking/receptors"
	ligandsDir   = "results/docking/ligands"
	vinaOutDir   = "results/docking/vina_outputs"
)

// vinaRunner simulates vina: it streams a result table carrying the
// given affinity and writes the --out pose file.
func vinaRunner(fs fsutil.FileSystem, affinity float64) *toolexec.MockRunner {
	return &toolexec.MockRunner{
		RunFunc: func(inv toolexec.Invocation, sink runlog.Logger) (toolexec.Result, error) {
			for _, line := range strings.Split(strings.TrimRight(testutil.VinaLogFixture(affinity), "\n"), "\n") {
				sink.Print(line)
			}
			_ = fs.WriteFile(argAfter(inv.Args, "--out"), []byte("MODEL 1"), 0644)
			return toolexec.Result{}, nil
		},
	}
}

func TestRunDock_DocksEveryPair(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	seedFile(t, fs, filepath.Join(receptorsDir, "2AZ5.pdbqt"),
		testutil.PDBQTFixture([3]float64{0, 0, 0}, [3]float64{10, 0, 0}))
	seedFile(t, fs, filepath.Join(ligandsDir, "ATENOLOL.pdbqt"), "LIGAND")
	seedFile(t, fs, filepath.Join(ligandsDir, "MEROPENEM.pdbqt"), "LIGAND")

	runner := vinaRunner(fs, -7.5)
	p, log := newTestPipeline(t, testConfig(), fs, runner)

	if status := p.RunDock(context.Background()); status != 0 {
		t.Fatalf("status = %d, log: %q", status, log.Lines())
	}

	invs := runner.Invocations()
	if len(invs) != 2 {
		t.Fatalf("got %d invocations, want one per pair", len(invs))
	}
	for _, inv := range invs {
		if inv.Path != "vina" {
			t.Errorf("executable = %q", inv.Path)
		}
		if got := argAfter(inv.Args, "--exhaustiveness"); got != "8" {
			t.Errorf("--exhaustiveness = %q", got)
		}
		if got := argAfter(inv.Args, "--verbosity"); got != "2" {
			t.Errorf("--verbosity = %q", got)
		}
	}
	// Ligands dock in sorted order against each receptor.
	if got := argAfter(invs[0].Args, "--ligand"); got != filepath.Join(ligandsDir, "ATENOLOL.pdbqt") {
		t.Errorf("first ligand = %q", got)
	}

	for _, pair := range []string{"2AZ5__ATENOLOL", "2AZ5__MEROPENEM"} {
		if !fs.Exists(filepath.Join(vinaOutDir, pair+"_out.pdbqt")) {
			t.Errorf("missing pose output for %s", pair)
		}
		if !fs.Exists(filepath.Join(vinaOutDir, pair+".log")) {
			t.Errorf("missing capture log for %s", pair)
		}
	}

	if !log.Contains("Running docking: 2AZ5 + ATENOLOL") {
		t.Errorf("missing pair banner: %q", log.Lines())
	}
	if !log.Contains("[OK] Docking complete. Output: " + filepath.Join(vinaOutDir, "2AZ5__ATENOLOL_out.pdbqt")) {
		t.Errorf("missing OK line: %q", log.Lines())
	}
	if !log.Contains("=== Docking Summary ===") {
		t.Errorf("missing summary table: %q", log.Lines())
	}

	var summaryRows int
	for _, line := range log.Lines() {
		if strings.HasPrefix(line, "2AZ5.pdbqt") && strings.HasSuffix(line, "-7.50") {
			summaryRows++
		}
	}
	if summaryRows != 2 {
		t.Errorf("got %d summary rows with the parsed affinity, want 2", summaryRows)
	}
}

func TestRunDock_ComputedBoxArgs(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	// Extent 10 on x; margin 8 gives 18, clamped up to the 20 minimum.
	seedFile(t, fs, filepath.Join(receptorsDir, "2AZ5.pdbqt"),
		testutil.PDBQTFixture([3]float64{0, 0, 0}, [3]float64{10, 0, 0}))
	seedFile(t, fs, filepath.Join(ligandsDir, "ATENOLOL.pdbqt"), "LIGAND")

	runner := vinaRunner(fs, -7.5)
	p, log := newTestPipeline(t, testConfig(), fs, runner)

	if status := p.RunDock(context.Background()); status != 0 {
		t.Fatalf("status = %d", status)
	}

	args := runner.Invocations()[0].Args
	if got := argAfter(args, "--center_x"); got != "5" {
		t.Errorf("--center_x = %q, want 5", got)
	}
	if got := argAfter(args, "--size_x"); got != "20" {
		t.Errorf("--size_x = %q, want 20", got)
	}
	if got := argAfter(args, "--size_y"); got != "20" {
		t.Errorf("--size_y = %q, want 20", got)
	}
	if !log.Contains(" Search box: center=(5.00, 0.00, 0.00), size=(20.00, 20.00, 20.00)") {
		t.Errorf("missing box line: %q", log.Lines())
	}
}

func TestRunDock_ManualBoxWinsVerbatim(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	// Coordinates far from the curated pocket; the manual box must win.
	seedFile(t, fs, filepath.Join(receptorsDir, "5CRB.pdbqt"),
		testutil.PDBQTFixture([3]float64{100, 100, 100}, [3]float64{110, 110, 110}))
	seedFile(t, fs, filepath.Join(ligandsDir, "ATENOLOL.pdbqt"), "LIGAND")

	runner := vinaRunner(fs, -8.4)
	p, log := newTestPipeline(t, testConfig(), fs, runner)

	if status := p.RunDock(context.Background()); status != 0 {
		t.Fatalf("status = %d", status)
	}

	args := runner.Invocations()[0].Args
	if got := argAfter(args, "--center_x"); got != "11.9145" {
		t.Errorf("--center_x = %q, want the curated 11.9145", got)
	}
	if got := argAfter(args, "--center_z"); got != "40.986" {
		t.Errorf("--center_z = %q", got)
	}
	if got := argAfter(args, "--size_x"); got != "28" {
		t.Errorf("--size_x = %q", got)
	}
	if !log.Contains(" Search box: center=(11.91, 38.90, 40.99), size=(28.00, 28.00, 28.00)") {
		t.Errorf("missing box line: %q", log.Lines())
	}
}

func TestRunDock_DefaultBoxWhenNoCoordinates(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	seedFile(t, fs, filepath.Join(receptorsDir, "2AZ5.pdbqt"), "REMARK  no atoms here\n")
	seedFile(t, fs, filepath.Join(ligandsDir, "ATENOLOL.pdbqt"), "LIGAND")

	runner := vinaRunner(fs, -7.5)
	p, log := newTestPipeline(t, testConfig(), fs, runner)

	if status := p.RunDock(context.Background()); status != 0 {
		t.Fatalf("status = %d", status)
	}
	if !log.Contains("using default search box") {
		t.Errorf("missing default box warning: %q", log.Lines())
	}

	args := runner.Invocations()[0].Args
	if got := argAfter(args, "--center_x"); got != "0" {
		t.Errorf("--center_x = %q, want 0", got)
	}
	if got := argAfter(args, "--size_x"); got != "24" {
		t.Errorf("--size_x = %q, want 24", got)
	}
}

func TestRunDock_FailedPairContinues(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	seedFile(t, fs, filepath.Join(receptorsDir, "2AZ5.pdbqt"),
		testutil.PDBQTFixture([3]float64{0, 0, 0}))
	seedFile(t, fs, filepath.Join(ligandsDir, "ATENOLOL.pdbqt"), "LIGAND")
	seedFile(t, fs, filepath.Join(ligandsDir, "MEROPENEM.pdbqt"), "LIGAND")

	runner := &toolexec.MockRunner{
		RunFunc: func(inv toolexec.Invocation, sink runlog.Logger) (toolexec.Result, error) {
			if strings.Contains(argAfter(inv.Args, "--ligand"), "ATENOLOL") {
				return toolexec.Result{ExitCode: 1}, nil
			}
			for _, line := range strings.Split(strings.TrimRight(testutil.VinaLogFixture(-6.2), "\n"), "\n") {
				sink.Print(line)
			}
			_ = fs.WriteFile(argAfter(inv.Args, "--out"), []byte("MODEL 1"), 0644)
			return toolexec.Result{}, nil
		},
	}
	p, log := newTestPipeline(t, testConfig(), fs, runner)

	if status := p.RunDock(context.Background()); status != 0 {
		t.Errorf("status = %d; a failed pair must not abort the stage", status)
	}
	if !log.Contains("[ERROR] Docking failed for 2AZ5 + ATENOLOL (exit 1)") {
		t.Errorf("missing failure line: %q", log.Lines())
	}
	if fs.Exists(filepath.Join(vinaOutDir, "2AZ5__ATENOLOL.log")) {
		t.Error("failed pair left its capture log behind")
	}
	if !fs.Exists(filepath.Join(vinaOutDir, "2AZ5__MEROPENEM_out.pdbqt")) {
		t.Error("the pair after the failure did not run")
	}

	var rows int
	for _, line := range log.Lines() {
		if strings.HasPrefix(line, "2AZ5.pdbqt") {
			rows++
		}
	}
	if rows != 1 {
		t.Errorf("summary rows = %d, want only the successful pair", rows)
	}
}

func TestRunDock_NoInputsIsFatal(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	p, log := newTestPipeline(t, testConfig(), fs, &toolexec.MockRunner{})

	if status := p.RunDock(context.Background()); status != 1 {
		t.Errorf("status = %d, want 1", status)
	}
	if !log.Contains("no receptor PDBQT files found in results/docking/receptors") {
		t.Errorf("missing receptor error: %q", log.Lines())
	}

	seedFile(t, fs, filepath.Join(receptorsDir, "2AZ5.pdbqt"), "ATOM")
	p2, log2 := newTestPipeline(t, testConfig(), fs, &toolexec.MockRunner{})
	if status := p2.RunDock(context.Background()); status != 1 {
		t.Errorf("status = %d, want 1", status)
	}
	if !log2.Contains("no ligand PDBQT files found in results/docking/ligands") {
		t.Errorf("missing ligand error: %q", log2.Lines())
	}
}

func TestRunDock_SecondRunSkipsDockedPairs(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	seedFile(t, fs, filepath.Join(receptorsDir, "2AZ5.pdbqt"),
		testutil.PDBQTFixture([3]float64{0, 0, 0}))
	seedFile(t, fs, filepath.Join(ligandsDir, "ATENOLOL.pdbqt"), "LIGAND")
	seedFile(t, fs, filepath.Join(vinaOutDir, "2AZ5__ATENOLOL_out.pdbqt"), "MODEL 1")
	seedFile(t, fs, filepath.Join(vinaOutDir, "2AZ5__ATENOLOL.log"), testutil.VinaLogFixture(-8.4))

	runner := &toolexec.MockRunner{}
	p, log := newTestPipeline(t, testConfig(), fs, runner)

	if status := p.RunDock(context.Background()); status != 0 {
		t.Fatalf("status = %d", status)
	}
	if runner.CallCount() != 0 {
		t.Errorf("%d invocations; the pair was already docked", runner.CallCount())
	}
	if !log.Contains("[SKIP] Docking output exists -> " + filepath.Join(vinaOutDir, "2AZ5__ATENOLOL_out.pdbqt")) {
		t.Errorf("missing skip line: %q", log.Lines())
	}

	// The skipped pair still appears in the summary, scored from its
	// existing capture log.
	var found bool
	for _, line := range log.Lines() {
		if strings.HasPrefix(line, "2AZ5.pdbqt") && strings.HasSuffix(line, "-8.40") {
			found = true
		}
	}
	if !found {
		t.Errorf("skipped pair missing from summary: %q", log.Lines())
	}
}

func TestRunDock_TeesVinaOutputIntoCaptureLog(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	seedFile(t, fs, filepath.Join(receptorsDir, "2AZ5.pdbqt"),
		testutil.PDBQTFixture([3]float64{0, 0, 0}))
	seedFile(t, fs, filepath.Join(ligandsDir, "ATENOLOL.pdbqt"), "LIGAND")

	runner := vinaRunner(fs, -7.5)
	p, log := newTestPipeline(t, testConfig(), fs, runner)

	if status := p.RunDock(context.Background()); status != 0 {
		t.Fatalf("status = %d", status)
	}

	data, err := fs.ReadFile(filepath.Join(vinaOutDir, "2AZ5__ATENOLOL.log"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "invoking: vina --receptor") {
		t.Errorf("capture log missing the command line: %q", content)
	}
	if !strings.Contains(content, "REMARK VINA RESULT:") {
		t.Errorf("capture log missing vina output: %q", content)
	}
	if !log.Contains("REMARK VINA RESULT:     -7.500      0.000      0.000 mode 1") {
		t.Errorf("vina output not streamed to the run log: %q", log.Lines())
	}
}

func TestRunDock_InterruptStopsTheStage(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	seedFile(t, fs, filepath.Join(receptorsDir, "2AZ5.pdbqt"),
		testutil.PDBQTFixture([3]float64{0, 0, 0}))
	seedFile(t, fs, filepath.Join(ligandsDir, "ATENOLOL.pdbqt"), "LIGAND")
	seedFile(t, fs, filepath.Join(ligandsDir, "MEROPENEM.pdbqt"), "LIGAND")

	runner := &toolexec.MockRunner{
		RunFunc: func(inv toolexec.Invocation, sink runlog.Logger) (toolexec.Result, error) {
			return toolexec.Result{ExitCode: 130, Interrupted: true}, nil
		},
	}
	p, log := newTestPipeline(t, testConfig(), fs, runner)

	if status := p.RunDock(context.Background()); status != pipeline.InterruptedStatus {
		t.Errorf("status = %d, want %d", status, pipeline.InterruptedStatus)
	}
	if runner.CallCount() != 1 {
		t.Errorf("%d invocations; nothing may run after an interrupt", runner.CallCount())
	}
	if fs.Exists(filepath.Join(vinaOutDir, "2AZ5__ATENOLOL.log")) {
		t.Error("interrupted pair left a partial capture log")
	}
	if log.Contains("=== Docking Summary ===") {
		t.Error("summary printed for an interrupted stage")
	}
}

func TestRunDock_RecordsResults(t *testing.T) {
	db, err := results.Open(filepath.Join(t.TempDir(), "biodock.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}

	fs := fsutil.NewMemoryFileSystem()
	seedFile(t, fs, filepath.Join(receptorsDir, "2AZ5.pdbqt"),
		testutil.PDBQTFixture([3]float64{0, 0, 0}, [3]float64{10, 0, 0}))
	seedFile(t, fs, filepath.Join(ligandsDir, "ATENOLOL.pdbqt"), "LIGAND")

	runner := vinaRunner(fs, -7.5)
	log := &runlog.MemoryLogger{}
	p := New(testConfig(), Deps{FS: fs, Runner: runner, Log: log, DB: db})

	ctx := pipeline.WithRunID(context.Background(), "run-42")
	if status := p.RunDock(ctx); status != 0 {
		t.Fatalf("status = %d", status)
	}

	stored, err := db.Results()
	if err != nil {
		t.Fatalf("Results failed: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("stored %d results, want 1", len(stored))
	}
	got := stored[0]
	if got.RunID != "run-42" || got.Receptor != "2AZ5" || got.Ligand != "ATENOLOL" {
		t.Errorf("stored row = %+v", got)
	}
	if !got.Affinity.Valid || got.Affinity.Float64 != -7.5 {
		t.Errorf("stored affinity = %+v", got.Affinity)
	}
	if got.BoxProvenance != "computed" {
		t.Errorf("stored provenance = %q, want computed", got.BoxProvenance)
	}
	if got.BoxCenter[0] != 5 || got.BoxSize[0] != 20 {
		t.Errorf("stored box = center %v size %v", got.BoxCenter, got.BoxSize)
	}
}
