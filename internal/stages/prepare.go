package stages

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/pipeline"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/toolexec"
)

// MGLTools utility scripts driven by the prepare stage.
const (
	prepareReceptorScript = "prepare_receptor4.py"
	prepareLigandScript   = "prepare_ligand4.py"
	splitAltLocsScript    = "prepare_pdb_split_alt_confs.py"
)

var prepareUtilities = []string{
	prepareReceptorScript,
	prepareLigandScript,
	splitAltLocsScript,
}

// ligandExts are the input formats prepare_ligand4 accepts.
var ligandExts = []string{".pdb", ".mol2", ".sdf"}

// RunPrepare converts every downloaded receptor and ligand into PDBQT
// form with MGLTools. Failures are counted per file; the stage only
// fails (status 2) when a category had candidates and produced nothing,
// since docking would then be pointless.
func (p *Pipeline) RunPrepare(ctx context.Context) int {
	p.log.Print("--- Starting Molecular File Preparation ---")

	for _, dir := range []string{p.cfg.ReceptorsOutDir(), p.cfg.LigandsOutDir()} {
		if err := p.fs.MkdirAll(dir, 0o755); err != nil {
			p.log.Printf("[ERROR] Could not create %s: %v", dir, err)
			return 1
		}
	}
	if !p.checkUtilities() {
		return 1
	}

	proteinsDir := p.cfg.ProteinsDir()
	p.log.Print("")
	p.log.Printf("Processing protein files from: %s", proteinsDir)
	proteins := p.listFiles(proteinsDir, ".pdb")
	if len(proteins) == 0 {
		p.log.Printf("[INFO] No .pdb files found in %s.", proteinsDir)
	}

	okReceptors := 0
	for _, name := range proteins {
		if ctx.Err() != nil {
			return pipeline.InterruptedStatus
		}
		if p.prepareReceptor(filepath.Join(proteinsDir, name)) {
			okReceptors++
		}
	}

	ligandDirs := []string{p.cfg.LigandsPDBDir(), p.cfg.LigandsDir()}
	p.log.Print("")
	p.log.Printf("Processing ligand files from (priority): %s", strings.Join(ligandDirs, " , "))
	ligands := p.mergedLigands(ligandDirs)
	if len(ligands) == 0 {
		p.log.Printf("[INFO] No ligand files (.pdb/.mol2/.sdf) found in %s.", strings.Join(ligandDirs, " , "))
	}

	okLigands := 0
	for _, path := range ligands {
		if ctx.Err() != nil {
			return pipeline.InterruptedStatus
		}
		if p.prepareLigand(path) {
			okLigands++
		}
	}

	p.log.Print("")
	p.log.Print("--- File Preparation Complete ---")
	p.log.Printf("Receptors prepared: %d / %d  ->  %s", okReceptors, len(proteins), p.cfg.ReceptorsOutDir())
	p.log.Printf("Ligands prepared:   %d / %d  ->  %s", okLigands, len(ligands), p.cfg.LigandsOutDir())

	if (okReceptors == 0 && len(proteins) > 0) || (okLigands == 0 && len(ligands) > 0) {
		return 2
	}
	return 0
}

func (p *Pipeline) checkUtilities() bool {
	utils := p.cfg.GetMGLToolsUtilities()
	for _, script := range prepareUtilities {
		if !p.fs.Exists(filepath.Join(utils, script)) {
			p.log.Printf("[ERROR] Missing utility under %s: %s", utils, script)
			return false
		}
	}
	return true
}

// prepareReceptor turns one protein PDB into a receptor PDBQT. The
// output keeps the original stem even when docking against a split
// alt-loc variant, so docking pairs stay named after the PDB ID.
func (p *Pipeline) prepareReceptor(pdbPath string) bool {
	if !p.fs.Exists(pdbPath) {
		p.log.Printf("[ERROR] Protein not found: %s", pdbPath)
		return false
	}

	fileName := filepath.Base(pdbPath)
	outPDBQT := filepath.Join(p.cfg.ReceptorsOutDir(), stemOf(fileName)+".pdbqt")
	if !p.store.ShouldBuild(p.log, "Receptor", outPDBQT) {
		return true
	}

	receptorPDB := p.splitAltLocs(pdbPath)
	if receptorPDB != pdbPath {
		p.log.Printf("[INFO] Using split alt-loc file: %s", filepath.Base(receptorPDB))
	}

	inv := toolexec.Invocation{
		Path: p.cfg.GetMGLToolsPython(),
		Args: []string{
			filepath.Join(p.cfg.GetMGLToolsUtilities(), prepareReceptorScript),
			"-r", receptorPDB,
			"-o", outPDBQT,
			"-A", "hydrogens",
			"-U", p.cfg.GetReceptorCleanFlag(),
		},
	}
	res, err := p.runner.Run(inv, p.log)
	if err != nil {
		p.log.Printf("[ERROR] Could not run MGLTools: %v", err)
		return false
	}
	if res.ExitCode != 0 {
		p.store.Discard(outPDBQT)
		p.log.Printf("[ERROR] prepare_receptor failed for %s: exit status %d", fileName, res.ExitCode)
		return false
	}

	p.log.Printf("[OK] Receptor -> %s", outPDBQT)
	return true
}

// splitAltLocs asks MGLTools to split alternate-location conformers
// out of the receptor. Splitting is best effort: any failure docks
// against the original file instead.
func (p *Pipeline) splitAltLocs(pdbPath string) string {
	dir := filepath.Dir(pdbPath)
	stem := stemOf(pdbPath)
	splitPrefix := filepath.Join(dir, stem+"_split.pdb")

	inv := toolexec.Invocation{
		Path: p.cfg.GetMGLToolsPython(),
		Args: []string{
			filepath.Join(p.cfg.GetMGLToolsUtilities(), splitAltLocsScript),
			"-r", pdbPath,
			"-o", splitPrefix,
		},
	}
	res, err := p.runner.Run(inv, p.log)
	if err != nil || res.ExitCode != 0 {
		return pdbPath
	}

	// The splitter appends conformer suffixes to the -o prefix.
	for _, suffix := range []string{"_A.pdb", "_B.pdb"} {
		if candidate := splitPrefix + suffix; p.fs.Exists(candidate) {
			return candidate
		}
	}
	if newest := p.newestMatch(filepath.Join(dir, stem+"_split*.pdb")); newest != "" {
		return newest
	}
	return pdbPath
}

// newestMatch returns the most recently modified file matching the
// glob pattern, or "" when nothing matches.
func (p *Pipeline) newestMatch(pattern string) string {
	matches, err := p.fs.Glob(pattern)
	if err != nil {
		return ""
	}

	var newest string
	var newestTime time.Time
	for _, m := range matches {
		info, err := p.fs.Stat(m)
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = m
			newestTime = info.ModTime()
		}
	}
	return newest
}

// mergedLigands merges candidate ligand files across the given
// directories. The first directory claiming a stem wins, so converted
// PDB ligands shadow the raw SDF downloads they were derived from.
func (p *Pipeline) mergedLigands(dirs []string) []string {
	byStem := make(map[string]string)
	for _, dir := range dirs {
		for _, name := range p.listFiles(dir, ligandExts...) {
			stem := stemOf(name)
			if _, claimed := byStem[stem]; !claimed {
				byStem[stem] = filepath.Join(dir, name)
			}
		}
	}

	stems := make([]string, 0, len(byStem))
	for stem := range byStem {
		stems = append(stems, stem)
	}
	sort.Strings(stems)

	paths := make([]string, 0, len(stems))
	for _, stem := range stems {
		paths = append(paths, byStem[stem])
	}
	return paths
}

// prepareLigand turns one ligand file into PDBQT form.
func (p *Pipeline) prepareLigand(ligandPath string) bool {
	if !p.fs.Exists(ligandPath) {
		p.log.Printf("[ERROR] Ligand not found: %s", ligandPath)
		return false
	}

	fileName := filepath.Base(ligandPath)
	outPDBQT := filepath.Join(p.cfg.LigandsOutDir(), stemOf(fileName)+".pdbqt")
	if !p.store.ShouldBuild(p.log, "Ligand", outPDBQT) {
		return true
	}

	// prepare_ligand4 resolves -l against its working directory, so
	// run it in the ligand's directory with an absolute output path.
	outArg := outPDBQT
	if abs, err := filepath.Abs(outPDBQT); err == nil {
		outArg = abs
	}

	inv := toolexec.Invocation{
		Path: p.cfg.GetMGLToolsPython(),
		Args: []string{
			filepath.Join(p.cfg.GetMGLToolsUtilities(), prepareLigandScript),
			"-l", fileName,
			"-o", outArg,
			"-A", p.cfg.GetLigandAddFlag(),
		},
		Dir: filepath.Dir(ligandPath),
	}
	res, err := p.runner.Run(inv, p.log)
	if err != nil {
		p.log.Printf("[ERROR] Could not run MGLTools: %v", err)
		return false
	}
	if res.ExitCode != 0 {
		p.store.Discard(outPDBQT)
		p.log.Printf("[ERROR] prepare_ligand failed for %s: exit status %d", fileName, res.ExitCode)
		return false
	}

	p.log.Printf("[OK] Ligand  -> %s", outPDBQT)
	return true
}
