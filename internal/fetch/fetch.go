// Package fetch downloads receptor structures from RCSB and ligand
// structures from PubChem. Failures are reported per item and never
// abort the whole download pass.
package fetch

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/artifact"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/fsutil"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/httputil"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/runlog"
)

// Downloader fetches structure files over HTTP.
type Downloader struct {
	Client  httputil.HTTPClient
	FS      fsutil.FileSystem
	Store   *artifact.Store
	RCSB    string // base URL for PDB downloads
	PubChem string // base URL for the PubChem PUG REST API
}

// DownloadProteins fetches the PDB entry for every receptor in the
// map (receptor name -> PDB ID) into dir. Returns how many files were
// saved; existing files are skipped unless force-rebuild is on.
func (d *Downloader) DownloadProteins(proteins map[string]string, dir string, log runlog.Logger) int {
	ids := make([]string, 0, len(proteins))
	for _, pdbID := range proteins {
		ids = append(ids, pdbID)
	}
	sort.Strings(ids)

	saved := 0
	for _, pdbID := range ids {
		if d.downloadPDB(pdbID, dir, log) {
			saved++
		}
	}
	return saved
}

func (d *Downloader) downloadPDB(pdbID, dir string, log runlog.Logger) bool {
	path := filepath.Join(dir, pdbID+".pdb")
	if !d.Store.ShouldBuild(log, "Protein PDB", path) {
		return false
	}

	log.Printf("Downloading PDB for %s...", pdbID)
	url := fmt.Sprintf("%s/%s.pdb", strings.TrimRight(d.RCSB, "/"), pdbID)
	data, ok := d.get(url)
	if !ok {
		log.Printf("Failed to download PDB %s", pdbID)
		return false
	}

	if err := d.Store.WriteAtomic(path, data); err != nil {
		log.Printf("Failed to save PDB %s: %v", pdbID, err)
		return false
	}
	log.Printf("Saved %s", path)
	return true
}

// DownloadLigands fetches the 3D SDF for every non-antibody ligand
// into dir, resolving each name to a PubChem CID first. Returns how
// many files were saved.
func (d *Downloader) DownloadLigands(ligands []string, isAntibody func(string) bool, dir string, log runlog.Logger) int {
	saved := 0
	for _, name := range ligands {
		if isAntibody(name) {
			log.Printf("Skipping antibody ligand %s", name)
			continue
		}

		path := filepath.Join(dir, name+".sdf")
		if !d.Store.ShouldBuild(log, "Ligand SDF", path) {
			continue
		}

		cid, ok := d.lookupCID(name, log)
		if !ok {
			log.Printf("Skipping %s due to missing CID", name)
			continue
		}
		if d.downloadSDF(cid, name, path, log) {
			saved++
		}
	}
	return saved
}

func (d *Downloader) lookupCID(name string, log runlog.Logger) (int64, bool) {
	log.Printf("Searching CID for %s...", name)
	url := fmt.Sprintf("%s/rest/pug/compound/name/%s/cids/JSON", strings.TrimRight(d.PubChem, "/"), name)
	data, ok := d.get(url)
	if !ok {
		log.Printf("CID not found for %s", name)
		return 0, false
	}

	var payload struct {
		IdentifierList struct {
			CID []int64 `json:"CID"`
		} `json:"IdentifierList"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.IdentifierList.CID) == 0 {
		log.Printf("CID not found for %s", name)
		return 0, false
	}
	return payload.IdentifierList.CID[0], true
}

func (d *Downloader) downloadSDF(cid int64, name, path string, log runlog.Logger) bool {
	log.Printf("Downloading SDF for CID %d (%s)...", cid, name)
	url := fmt.Sprintf("%s/rest/pug/compound/cid/%d/SDF?record_type=3d", strings.TrimRight(d.PubChem, "/"), cid)
	data, ok := d.get(url)
	if !ok {
		log.Printf("Failed to download SDF for %s", name)
		return false
	}

	if err := d.Store.WriteAtomic(path, data); err != nil {
		log.Printf("Failed to save SDF for %s: %v", name, err)
		return false
	}
	log.Printf("Saved %s", path)
	return true
}

// get fetches url and returns the body on a 200 response.
func (d *Downloader) get(url string) ([]byte, bool) {
	resp, err := d.Client.Get(url)
	if err != nil {
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false
	}
	return data, true
}
