package stages

import (
	"context"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/fetch"
)

// RunFetch downloads receptor PDB files and ligand SDF files into the
// data tree. Individual download failures are logged and skipped;
// later stages report what is actually missing, so this stage always
// succeeds.
func (p *Pipeline) RunFetch(ctx context.Context) int {
	d := &fetch.Downloader{
		Client:  p.client,
		FS:      p.fs,
		Store:   p.store,
		RCSB:    p.cfg.GetRCSBBaseURL(),
		PubChem: p.cfg.GetPubChemBaseURL(),
	}

	d.DownloadProteins(p.cfg.GetProteins(), p.cfg.ProteinsDir(), p.log)
	d.DownloadLigands(p.cfg.GetLigands(), p.cfg.IsAntibody, p.cfg.LigandsDir(), p.log)
	return 0
}
