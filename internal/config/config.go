// Package config holds the validated pipeline configuration.
//
// The configuration is built once at startup (file, then environment
// overrides), validated, and passed by reference to every component.
// Nothing mutates it after Load returns.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/security"
)

// DefaultConfigPath is the path to the canonical defaults file. This is
// the single source of truth for the shipped roster and tool defaults.
const DefaultConfigPath = "config/biodock.defaults.json"

// ManualBox is a hand-tuned search box for one receptor. When present
// it is used verbatim; no blending with computed values.
type ManualBox struct {
	Center [3]float64 `json:"center"`
	Size   [3]float64 `json:"size"`
}

// Config represents the root pipeline configuration. Pointer fields
// distinguish "not set" from zero values; the Get* methods provide
// fallback defaults for any field not specified in the JSON, so
// partial configs are safe.
type Config struct {
	// Workspace layout
	WorkspaceDir *string `json:"workspace_dir,omitempty"`
	DatabasePath *string `json:"database_path,omitempty"`

	// Runtime environments. Bare names resolve through PATH; absolute
	// paths are checked directly.
	MGLToolsPython    *string `json:"mgltools_python,omitempty"`
	MGLToolsUtilities *string `json:"mgltools_utilities,omitempty"`
	VizPython         *string `json:"viz_python,omitempty"`
	VinaExecutable    *string `json:"vina_executable,omitempty"`
	ConverterScript   *string `json:"converter_script,omitempty"`
	VisualizerScript  *string `json:"visualizer_script,omitempty"`

	// Docking parameters
	Exhaustiveness *int     `json:"exhaustiveness,omitempty"`
	Verbosity      *int     `json:"verbosity,omitempty"`
	BoxMargin      *float64 `json:"box_margin,omitempty"`
	BoxMinSize     *float64 `json:"box_min_size,omitempty"`
	BoxMaxSize     *float64 `json:"box_max_size,omitempty"`

	// Behavior toggles. The FORCE_REBUILD, LIGAND_ADD_FLAG,
	// RECEPTOR_CLEAN_FLAG and VIZ_IGNORE_PY_CHECK environment
	// variables override these when set.
	ForceRebuild           *bool   `json:"force_rebuild,omitempty"`
	LigandAddFlag          *string `json:"ligand_add_flag,omitempty"`
	ReceptorCleanFlag      *string `json:"receptor_clean_flag,omitempty"`
	SkipVizCheck           *bool   `json:"skip_viz_check,omitempty"`
	InstallMissingPackages *bool   `json:"install_missing_packages,omitempty"`

	// Data sources
	RCSBBaseURL    *string `json:"rcsb_base_url,omitempty"`
	PubChemBaseURL *string `json:"pubchem_base_url,omitempty"`

	// Rosters
	Proteins        map[string]string    `json:"proteins,omitempty"` // gene name -> PDB ID
	Ligands         []string             `json:"ligands,omitempty"`
	AntibodyLigands []string             `json:"antibody_ligands,omitempty"`
	ManualBoxes     map[string]ManualBox `json:"manual_boxes,omitempty"`
	VizModules      []string             `json:"viz_modules,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyConfig returns a Config with all fields set to nil. The Get*
// methods then supply the shipped defaults for every value.
func EmptyConfig() *Config {
	return &Config{}
}

// LoadConfig loads a Config from a JSON file, applies environment
// overrides, and validates the result.
// The file is validated to ensure it has a .json extension and is under
// the max file size.
func LoadConfig(path string) (*Config, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	cfg.applyEnvironment()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ResolveConfig loads the named config file, or the canonical defaults
// file when path is empty, or a bare environment-only config when
// neither exists.
func ResolveConfig(path string) (*Config, error) {
	if path != "" {
		return LoadConfig(path)
	}
	if _, err := os.Stat(DefaultConfigPath); err == nil {
		return LoadConfig(DefaultConfigPath)
	}

	cfg := EmptyConfig()
	cfg.applyEnvironment()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// truthy reports whether an environment toggle value is one of the
// accepted true spellings.
func truthy(v string) bool {
	return v == "1" || v == "true" || v == "True"
}

// applyEnvironment overrides config fields from the legacy environment
// variables. A set variable wins over the file; an unset one leaves the
// file value in place.
func (c *Config) applyEnvironment() {
	if v, ok := os.LookupEnv("FORCE_REBUILD"); ok {
		c.ForceRebuild = ptrBool(truthy(v))
	}
	if v, ok := os.LookupEnv("LIGAND_ADD_FLAG"); ok && v != "" {
		c.LigandAddFlag = ptrString(v)
	}
	if v, ok := os.LookupEnv("RECEPTOR_CLEAN_FLAG"); ok && v != "" {
		c.ReceptorCleanFlag = ptrString(v)
	}
	if v, ok := os.LookupEnv("VIZ_IGNORE_PY_CHECK"); ok {
		c.SkipVizCheck = ptrBool(truthy(v))
	}
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.Exhaustiveness != nil && *c.Exhaustiveness < 1 {
		return fmt.Errorf("exhaustiveness must be >= 1, got %d", *c.Exhaustiveness)
	}

	if c.Verbosity != nil && (*c.Verbosity < 0 || *c.Verbosity > 2) {
		return fmt.Errorf("verbosity must be between 0 and 2, got %d", *c.Verbosity)
	}

	if c.BoxMargin != nil && *c.BoxMargin < 0 {
		return fmt.Errorf("box_margin must be non-negative, got %f", *c.BoxMargin)
	}

	minSize := c.GetBoxMinSize()
	maxSize := c.GetBoxMaxSize()
	if minSize <= 0 {
		return fmt.Errorf("box_min_size must be positive, got %f", minSize)
	}
	if maxSize < minSize {
		return fmt.Errorf("box_max_size %f is smaller than box_min_size %f", maxSize, minSize)
	}

	for name, pdbID := range c.Proteins {
		if err := security.ValidateStructureName(name); err != nil {
			return fmt.Errorf("invalid protein name: %w", err)
		}
		if err := security.ValidateStructureName(pdbID); err != nil {
			return fmt.Errorf("invalid PDB ID for %s: %w", name, err)
		}
	}

	for _, lig := range c.Ligands {
		if err := security.ValidateStructureName(lig); err != nil {
			return fmt.Errorf("invalid ligand name: %w", err)
		}
	}

	for rec := range c.ManualBoxes {
		if err := security.ValidateStructureName(rec); err != nil {
			return fmt.Errorf("invalid manual box receptor: %w", err)
		}
	}

	return nil
}

// GetWorkspaceDir returns the workspace root or the default.
func (c *Config) GetWorkspaceDir() string {
	if c.WorkspaceDir == nil || *c.WorkspaceDir == "" {
		return "."
	}
	return *c.WorkspaceDir
}

// GetDatabasePath returns the results database path or the default.
func (c *Config) GetDatabasePath() string {
	if c.DatabasePath == nil || *c.DatabasePath == "" {
		return filepath.Join(c.ResultsDir(), "biodock.db")
	}
	return *c.DatabasePath
}

// GetMGLToolsPython returns the MGLTools Python 2 interpreter or the default.
func (c *Config) GetMGLToolsPython() string {
	if c.MGLToolsPython == nil || *c.MGLToolsPython == "" {
		return "python2"
	}
	return *c.MGLToolsPython
}

// GetMGLToolsUtilities returns the AutoDockTools Utilities24 directory
// or the conventional install location.
func (c *Config) GetMGLToolsUtilities() string {
	if c.MGLToolsUtilities == nil || *c.MGLToolsUtilities == "" {
		return "/opt/mgltools/MGLToolsPckgs/AutoDockTools/Utilities24"
	}
	return *c.MGLToolsUtilities
}

// GetVizPython returns the visualization environment interpreter or the default.
func (c *Config) GetVizPython() string {
	if c.VizPython == nil || *c.VizPython == "" {
		return "python3"
	}
	return *c.VizPython
}

// GetVinaExecutable returns the docking executable or the default.
func (c *Config) GetVinaExecutable() string {
	if c.VinaExecutable == nil || *c.VinaExecutable == "" {
		return "vina"
	}
	return *c.VinaExecutable
}

// GetConverterScript returns the SDF to PDB converter driver script.
func (c *Config) GetConverterScript() string {
	if c.ConverterScript == nil || *c.ConverterScript == "" {
		return filepath.Join(c.GetWorkspaceDir(), "scripts", "convert_sdf_to_pdb.py")
	}
	return *c.ConverterScript
}

// GetVisualizerScript returns the visualization driver script.
func (c *Config) GetVisualizerScript() string {
	if c.VisualizerScript == nil || *c.VisualizerScript == "" {
		return filepath.Join(c.GetWorkspaceDir(), "scripts", "visualize.py")
	}
	return *c.VisualizerScript
}

// GetExhaustiveness returns the docking exhaustiveness or the default.
func (c *Config) GetExhaustiveness() int {
	if c.Exhaustiveness == nil {
		return 8
	}
	return *c.Exhaustiveness
}

// GetVerbosity returns the docking tool verbosity or the default.
func (c *Config) GetVerbosity() int {
	if c.Verbosity == nil {
		return 2
	}
	return *c.Verbosity
}

// GetBoxMargin returns the search box margin in Angstroms.
func (c *Config) GetBoxMargin() float64 {
	if c.BoxMargin == nil {
		return 8.0
	}
	return *c.BoxMargin
}

// GetBoxMinSize returns the minimum search box extent in Angstroms.
func (c *Config) GetBoxMinSize() float64 {
	if c.BoxMinSize == nil {
		return 20.0
	}
	return *c.BoxMinSize
}

// GetBoxMaxSize returns the maximum search box extent in Angstroms.
func (c *Config) GetBoxMaxSize() float64 {
	if c.BoxMaxSize == nil {
		return 28.0
	}
	return *c.BoxMaxSize
}

// GetForceRebuild reports whether existing artifacts should be rebuilt.
func (c *Config) GetForceRebuild() bool {
	if c.ForceRebuild == nil {
		return false
	}
	return *c.ForceRebuild
}

// GetLigandAddFlag returns the ligand hydrogen handling mode.
func (c *Config) GetLigandAddFlag() string {
	if c.LigandAddFlag == nil || *c.LigandAddFlag == "" {
		return "checkhydrogens"
	}
	return *c.LigandAddFlag
}

// GetReceptorCleanFlag returns the receptor cleanup options.
func (c *Config) GetReceptorCleanFlag() string {
	if c.ReceptorCleanFlag == nil || *c.ReceptorCleanFlag == "" {
		return "nphs_lps_waters"
	}
	return *c.ReceptorCleanFlag
}

// GetSkipVizCheck reports whether the visualizer interpreter identity
// check is bypassed.
func (c *Config) GetSkipVizCheck() bool {
	if c.SkipVizCheck == nil {
		return false
	}
	return *c.SkipVizCheck
}

// GetInstallMissingPackages reports whether the doctor stage may
// pip-install missing visualization modules.
func (c *Config) GetInstallMissingPackages() bool {
	if c.InstallMissingPackages == nil {
		return true
	}
	return *c.InstallMissingPackages
}

// GetRCSBBaseURL returns the RCSB download endpoint or the default.
func (c *Config) GetRCSBBaseURL() string {
	if c.RCSBBaseURL == nil || *c.RCSBBaseURL == "" {
		return "https://files.rcsb.org/download"
	}
	return *c.RCSBBaseURL
}

// GetPubChemBaseURL returns the PubChem PUG REST endpoint or the default.
func (c *Config) GetPubChemBaseURL() string {
	if c.PubChemBaseURL == nil || *c.PubChemBaseURL == "" {
		return "https://pubchem.ncbi.nlm.nih.gov"
	}
	return *c.PubChemBaseURL
}

// GetProteins returns the protein roster or the shipped default set.
func (c *Config) GetProteins() map[string]string {
	if len(c.Proteins) == 0 {
		return map[string]string{
			"IL1B":   "4G6J",
			"CD163":  "5CRB",
			"ACY3":   "1IVS",
			"P2RY12": "4NTJ",
			"TNF":    "2AZ5",
		}
	}
	return c.Proteins
}

// GetLigands returns the ligand roster or the shipped default set.
func (c *Config) GetLigands() []string {
	if len(c.Ligands) == 0 {
		return []string{
			"CANAKINUMAB",
			"PENTAMIDINE",
			"GLUCOSAMINE",
			"FLUTICASONE",
			"BISOPROLOL",
			"ATENOLOL",
			"CANGRELOR",
			"PRASUGREL",
			"GOLIMUMAB",
			"MEROPENEM",
		}
	}
	return c.Ligands
}

// GetAntibodyLigands returns the ligands skipped during small-molecule
// download, or the shipped default set.
func (c *Config) GetAntibodyLigands() []string {
	if len(c.AntibodyLigands) == 0 {
		return []string{"CANAKINUMAB", "GOLIMUMAB"}
	}
	return c.AntibodyLigands
}

// IsAntibody reports whether the named ligand is an antibody.
func (c *Config) IsAntibody(ligand string) bool {
	for _, a := range c.GetAntibodyLigands() {
		if a == ligand {
			return true
		}
	}
	return false
}

// GetManualBoxes returns the manual search box table or the shipped
// default table.
func (c *Config) GetManualBoxes() map[string]ManualBox {
	if len(c.ManualBoxes) == 0 {
		return map[string]ManualBox{
			"5CRB": {
				Center: [3]float64{11.9145, 38.904, 40.986},
				Size:   [3]float64{28.0, 28.0, 28.0},
			},
		}
	}
	return c.ManualBoxes
}

// GetVizModules returns the Python modules the visualization
// environment must provide.
func (c *Config) GetVizModules() []string {
	if len(c.VizModules) == 0 {
		return []string{"pymol", "rdkit"}
	}
	return c.VizModules
}

// Workspace layout helpers. The directory shape below is part of the
// persisted compatibility contract and is not configurable beyond the
// workspace root.

// DataDir returns the raw input data directory.
func (c *Config) DataDir() string {
	return filepath.Join(c.GetWorkspaceDir(), "data")
}

// ProteinsDir returns the downloaded protein PDB directory.
func (c *Config) ProteinsDir() string {
	return filepath.Join(c.DataDir(), "proteins")
}

// LigandsDir returns the downloaded ligand SDF directory.
func (c *Config) LigandsDir() string {
	return filepath.Join(c.DataDir(), "ligands")
}

// LigandsPDBDir returns the converted ligand PDB directory.
func (c *Config) LigandsPDBDir() string {
	return filepath.Join(c.DataDir(), "ligands_pdb")
}

// ResultsDir returns the results root.
func (c *Config) ResultsDir() string {
	return filepath.Join(c.GetWorkspaceDir(), "results")
}

// DockingDir returns the docking workspace root.
func (c *Config) DockingDir() string {
	return filepath.Join(c.ResultsDir(), "docking")
}

// ReceptorsOutDir returns the prepared receptor PDBQT directory.
func (c *Config) ReceptorsOutDir() string {
	return filepath.Join(c.DockingDir(), "receptors")
}

// LigandsOutDir returns the prepared ligand PDBQT directory.
func (c *Config) LigandsOutDir() string {
	return filepath.Join(c.DockingDir(), "ligands")
}

// VinaOutputsDir returns the docking pose and log directory.
func (c *Config) VinaOutputsDir() string {
	return filepath.Join(c.DockingDir(), "vina_outputs")
}

// VisualizationsDir returns the rendered image directory.
func (c *Config) VisualizationsDir() string {
	return filepath.Join(c.ResultsDir(), "visualizations")
}

// EnergiesCSVPath returns the binding energies CSV path.
func (c *Config) EnergiesCSVPath() string {
	return filepath.Join(c.ResultsDir(), "binding_energies.csv")
}
