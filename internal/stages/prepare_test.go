package stages

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/config"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/fsutil"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/runlog"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/toolexec"
)

// prepareRunner answers MGLTools invocations: the splitter does
// nothing, and the prepare scripts succeed for every file not listed
// in failFor (matched against the -r/-l argument's base name).
func prepareRunner(fs fsutil.FileSystem, failFor map[string]bool) *toolexec.MockRunner {
	return &toolexec.MockRunner{
		RunFunc: func(inv toolexec.Invocation, sink runlog.Logger) (toolexec.Result, error) {
			script := filepath.Base(inv.Args[0])
			switch script {
			case splitAltLocsScript:
				return toolexec.Result{}, nil
			case prepareReceptorScript:
				// Write the output before failing, like a tool dying
				// partway through; the stage must discard it.
				_ = fs.WriteFile(argAfter(inv.Args, "-o"), []byte("RECEPTOR"), 0644)
				if failFor[filepath.Base(argAfter(inv.Args, "-r"))] {
					return toolexec.Result{ExitCode: 1}, nil
				}
				return toolexec.Result{}, nil
			case prepareLigandScript:
				if failFor[argAfter(inv.Args, "-l")] {
					return toolexec.Result{ExitCode: 1}, nil
				}
				_ = fs.WriteFile(argAfter(inv.Args, "-o"), []byte("LIGAND"), 0644)
				return toolexec.Result{}, nil
			}
			return toolexec.Result{ExitCode: 2}, nil
		},
	}
}

func TestRunPrepare_PreparesReceptorsAndLigands(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	seedUtilities(t, fs)
	seedFile(t, fs, "data/proteins/5CRB.pdb", "ATOM")
	seedFile(t, fs, "data/ligands/ATENOLOL.sdf", "MOL")

	runner := prepareRunner(fs, nil)
	p, log := newTestPipeline(t, testConfig(), fs, runner)

	if status := p.RunPrepare(context.Background()); status != 0 {
		t.Fatalf("status = %d, log: %q", status, log.Lines())
	}

	if !log.Contains("--- Starting Molecular File Preparation ---") ||
		!log.Contains("Processing protein files from: data/proteins") ||
		!log.Contains("--- File Preparation Complete ---") {
		t.Errorf("missing framing lines: %q", log.Lines())
	}
	if !log.Contains("[OK] Receptor -> " + filepath.Join("results/docking/receptors", "5CRB.pdbqt")) {
		t.Errorf("missing receptor OK line: %q", log.Lines())
	}
	if !log.Contains("[OK] Ligand  -> " + filepath.Join("results/docking/ligands", "ATENOLOL.pdbqt")) {
		t.Errorf("missing ligand OK line: %q", log.Lines())
	}
	if !log.Contains("Receptors prepared: 1 / 1  ->  results/docking/receptors") ||
		!log.Contains("Ligands prepared:   1 / 1  ->  results/docking/ligands") {
		t.Errorf("missing count lines: %q", log.Lines())
	}

	var recInv, ligInv *toolexec.Invocation
	for _, inv := range runner.Invocations() {
		switch filepath.Base(inv.Args[0]) {
		case prepareReceptorScript:
			recInv = &inv
		case prepareLigandScript:
			ligInv = &inv
		}
	}
	if recInv == nil || ligInv == nil {
		t.Fatalf("missing prepare invocations: %v", runner.Invocations())
	}

	if recInv.Path != "python2" {
		t.Errorf("receptor interpreter = %q, want python2", recInv.Path)
	}
	if got := argAfter(recInv.Args, "-r"); got != "data/proteins/5CRB.pdb" {
		t.Errorf("receptor -r = %q", got)
	}
	if got := argAfter(recInv.Args, "-A"); got != "hydrogens" {
		t.Errorf("receptor -A = %q", got)
	}
	if got := argAfter(recInv.Args, "-U"); got != "nphs_lps_waters" {
		t.Errorf("receptor -U = %q", got)
	}

	if ligInv.Dir != "data/ligands" {
		t.Errorf("ligand working dir = %q; prepare_ligand4 needs the ligand's directory", ligInv.Dir)
	}
	if got := argAfter(ligInv.Args, "-l"); got != "ATENOLOL.sdf" {
		t.Errorf("ligand -l = %q, want the bare file name", got)
	}
	wantOut, _ := filepath.Abs(filepath.Join("results/docking/ligands", "ATENOLOL.pdbqt"))
	if got := argAfter(ligInv.Args, "-o"); got != wantOut {
		t.Errorf("ligand -o = %q, want absolute %q", got, wantOut)
	}
	if got := argAfter(ligInv.Args, "-A"); got != "checkhydrogens" {
		t.Errorf("ligand -A = %q", got)
	}
}

func TestRunPrepare_SecondRunSkips(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	seedUtilities(t, fs)
	seedFile(t, fs, "data/proteins/5CRB.pdb", "ATOM")
	seedFile(t, fs, "data/ligands/ATENOLOL.sdf", "MOL")
	seedFile(t, fs, "results/docking/receptors/5CRB.pdbqt", "RECEPTOR")
	seedFile(t, fs, "results/docking/ligands/ATENOLOL.pdbqt", "LIGAND")

	runner := prepareRunner(fs, nil)
	p, log := newTestPipeline(t, testConfig(), fs, runner)

	if status := p.RunPrepare(context.Background()); status != 0 {
		t.Fatalf("status = %d", status)
	}
	if runner.CallCount() != 0 {
		t.Errorf("%d tool invocations; everything was already prepared", runner.CallCount())
	}
	if !log.Contains("[SKIP] Receptor exists -> " + filepath.Join("results/docking/receptors", "5CRB.pdbqt")) ||
		!log.Contains("[SKIP] Ligand exists -> " + filepath.Join("results/docking/ligands", "ATENOLOL.pdbqt")) {
		t.Errorf("missing skip lines: %q", log.Lines())
	}
	if !log.Contains("Receptors prepared: 1 / 1  ->  results/docking/receptors") {
		t.Errorf("skipped artifacts must still count as prepared: %q", log.Lines())
	}
}

func TestRunPrepare_ForceRebuildRedoesEverything(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	seedUtilities(t, fs)
	seedFile(t, fs, "data/proteins/5CRB.pdb", "ATOM")
	seedFile(t, fs, "results/docking/receptors/5CRB.pdbqt", "STALE")

	cfg := &config.Config{
		MGLToolsUtilities: strPtr("mgl/utils"),
		ForceRebuild:      boolPtr(true),
	}
	runner := prepareRunner(fs, nil)
	p, log := newTestPipeline(t, cfg, fs, runner)

	if status := p.RunPrepare(context.Background()); status != 0 {
		t.Fatalf("status = %d", status)
	}
	if runner.CallCount() == 0 {
		t.Error("force rebuild must re-run the tools")
	}
	for _, line := range log.Lines() {
		if strings.HasPrefix(line, "[SKIP]") {
			t.Errorf("skip line under force rebuild: %q", line)
		}
	}
}

func TestRunPrepare_AllReceptorsFailingIsFatal(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	seedUtilities(t, fs)
	seedFile(t, fs, "data/proteins/5CRB.pdb", "ATOM")

	runner := prepareRunner(fs, map[string]bool{"5CRB.pdb": true})
	p, log := newTestPipeline(t, testConfig(), fs, runner)

	if status := p.RunPrepare(context.Background()); status != 2 {
		t.Errorf("status = %d, want 2 when no receptor could be prepared", status)
	}
	if !log.Contains("[ERROR] prepare_receptor failed for 5CRB.pdb: exit status 1") {
		t.Errorf("missing failure line: %q", log.Lines())
	}
	if fs.Exists("results/docking/receptors/5CRB.pdbqt") {
		t.Error("failed receptor left a partial output behind")
	}
}

func TestRunPrepare_PartialFailureIsNotFatal(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	seedUtilities(t, fs)
	seedFile(t, fs, "data/proteins/2AZ5.pdb", "ATOM")
	seedFile(t, fs, "data/proteins/5CRB.pdb", "ATOM")
	seedFile(t, fs, "data/ligands/ATENOLOL.sdf", "MOL")

	runner := prepareRunner(fs, map[string]bool{"2AZ5.pdb": true})
	p, log := newTestPipeline(t, testConfig(), fs, runner)

	if status := p.RunPrepare(context.Background()); status != 0 {
		t.Errorf("status = %d; one failure among successes is not fatal", status)
	}
	if !log.Contains("Receptors prepared: 1 / 2  ->  results/docking/receptors") {
		t.Errorf("missing count line: %q", log.Lines())
	}
}

func TestRunPrepare_UsesSplitAltLocFile(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	seedUtilities(t, fs)
	seedFile(t, fs, "data/proteins/5CRB.pdb", "ATOM")

	splitName := "5CRB_split.pdb_A.pdb"
	runner := &toolexec.MockRunner{
		RunFunc: func(inv toolexec.Invocation, sink runlog.Logger) (toolexec.Result, error) {
			if filepath.Base(inv.Args[0]) == splitAltLocsScript {
				_ = fs.WriteFile(filepath.Join("data/proteins", splitName), []byte("ATOM"), 0644)
			}
			return toolexec.Result{}, nil
		},
	}
	p, log := newTestPipeline(t, testConfig(), fs, runner)

	if status := p.RunPrepare(context.Background()); status != 0 {
		t.Fatalf("status = %d", status)
	}
	if !log.Contains("[INFO] Using split alt-loc file: " + splitName) {
		t.Errorf("missing split info line: %q", log.Lines())
	}

	for _, inv := range runner.Invocations() {
		if filepath.Base(inv.Args[0]) == prepareReceptorScript {
			if got := argAfter(inv.Args, "-r"); got != filepath.Join("data/proteins", splitName) {
				t.Errorf("receptor -r = %q, want the split file", got)
			}
			if got := argAfter(inv.Args, "-o"); got != filepath.Join("results/docking/receptors", "5CRB.pdbqt") {
				t.Errorf("receptor -o = %q; output must keep the original stem", got)
			}
		}
		if filepath.Base(inv.Args[0]) == splitAltLocsScript {
			if got := argAfter(inv.Args, "-o"); got != filepath.Join("data/proteins", "5CRB_split.pdb") {
				t.Errorf("splitter -o = %q", got)
			}
		}
	}
}

func TestRunPrepare_SplitFailureFallsBackSilently(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	seedUtilities(t, fs)
	seedFile(t, fs, "data/proteins/5CRB.pdb", "ATOM")

	runner := &toolexec.MockRunner{
		RunFunc: func(inv toolexec.Invocation, sink runlog.Logger) (toolexec.Result, error) {
			if filepath.Base(inv.Args[0]) == splitAltLocsScript {
				return toolexec.Result{ExitCode: 1}, nil
			}
			return toolexec.Result{}, nil
		},
	}
	p, log := newTestPipeline(t, testConfig(), fs, runner)

	if status := p.RunPrepare(context.Background()); status != 0 {
		t.Fatalf("status = %d", status)
	}
	if log.Contains("[INFO] Using split alt-loc file") {
		t.Errorf("split info line despite failed split: %q", log.Lines())
	}
	for _, inv := range runner.Invocations() {
		if filepath.Base(inv.Args[0]) == prepareReceptorScript {
			if got := argAfter(inv.Args, "-r"); got != "data/proteins/5CRB.pdb" {
				t.Errorf("receptor -r = %q, want the original file", got)
			}
		}
	}
}

func TestRunPrepare_ConvertedLigandShadowsRawSDF(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	seedUtilities(t, fs)
	seedFile(t, fs, "data/ligands/ATENOLOL.sdf", "MOL")
	seedFile(t, fs, "data/ligands_pdb/ATENOLOL.pdb", "ATOM")
	seedFile(t, fs, "data/ligands/MEROPENEM.sdf", "MOL")

	runner := prepareRunner(fs, nil)
	p, log := newTestPipeline(t, testConfig(), fs, runner)

	if status := p.RunPrepare(context.Background()); status != 0 {
		t.Fatalf("status = %d", status)
	}
	if !log.Contains("Processing ligand files from (priority): data/ligands_pdb , data/ligands") {
		t.Errorf("missing priority line: %q", log.Lines())
	}
	if !log.Contains("Ligands prepared:   2 / 2  ->  results/docking/ligands") {
		t.Errorf("missing count line: %q", log.Lines())
	}

	dirs := map[string]string{}
	for _, inv := range runner.Invocations() {
		if filepath.Base(inv.Args[0]) == prepareLigandScript {
			dirs[argAfter(inv.Args, "-l")] = inv.Dir
		}
	}
	if dirs["ATENOLOL.pdb"] != "data/ligands_pdb" {
		t.Errorf("ATENOLOL should come from the converted PDB dir, got %v", dirs)
	}
	if dirs["MEROPENEM.sdf"] != "data/ligands" {
		t.Errorf("MEROPENEM should come from the raw SDF dir, got %v", dirs)
	}
	if _, ok := dirs["ATENOLOL.sdf"]; ok {
		t.Error("shadowed raw SDF was prepared anyway")
	}
}

func TestRunPrepare_MissingUtilityIsFatal(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	seedFile(t, fs, "data/proteins/5CRB.pdb", "ATOM")

	p, log := newTestPipeline(t, testConfig(), fs, &toolexec.MockRunner{})

	if status := p.RunPrepare(context.Background()); status != 1 {
		t.Errorf("status = %d, want 1", status)
	}
	if !log.Contains("[ERROR] Missing utility under mgl/utils: prepare_receptor4.py") {
		t.Errorf("missing utility error: %q", log.Lines())
	}
}

func TestRunPrepare_NothingToPrepare(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	seedUtilities(t, fs)

	p, log := newTestPipeline(t, testConfig(), fs, &toolexec.MockRunner{})

	if status := p.RunPrepare(context.Background()); status != 0 {
		t.Errorf("status = %d; empty inputs are not an error", status)
	}
	if !log.Contains("[INFO] No .pdb files found in data/proteins.") {
		t.Errorf("missing protein info line: %q", log.Lines())
	}
	if !log.Contains("[INFO] No ligand files (.pdb/.mol2/.sdf) found in data/ligands_pdb , data/ligands.") {
		t.Errorf("missing ligand info line: %q", log.Lines())
	}
}
