package stages

import (
	"context"
	"net/http"
	"testing"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/config"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/fsutil"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/httputil"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/runlog"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/toolexec"
)

func TestRunFetch_DownloadFailuresAreNotFatal(t *testing.T) {
	cfg := &config.Config{
		Proteins: map[string]string{"CD163": "5CRB"},
		Ligands:  []string{"ATENOLOL"},
	}
	client := httputil.NewMockHTTPClient()
	client.DoFunc = func(req *http.Request) (*http.Response, error) {
		return httputil.NewMockResponse(500, "server error"), nil
	}

	fs := fsutil.NewMemoryFileSystem()
	log := &runlog.MemoryLogger{}
	p := New(cfg, Deps{FS: fs, Runner: &toolexec.MockRunner{}, Client: client, Log: log})

	if status := p.RunFetch(context.Background()); status != 0 {
		t.Errorf("status = %d; download failures must not abort the workflow", status)
	}
	if !log.Contains("Failed to download PDB 5CRB") {
		t.Errorf("missing failure line: %q", log.Lines())
	}
}

func TestRunFetch_SavesStructures(t *testing.T) {
	cfg := &config.Config{
		Proteins: map[string]string{"CD163": "5CRB"},
		Ligands:  []string{"ATENOLOL"},
	}
	client := httputil.NewMockHTTPClient()
	client.DoFunc = func(req *http.Request) (*http.Response, error) {
		switch {
		case req.URL.Path == "/download/5CRB.pdb":
			return httputil.NewMockResponse(200, "HEADER    5CRB"), nil
		case req.URL.Path == "/rest/pug/compound/name/ATENOLOL/cids/JSON":
			return httputil.NewMockResponse(200, `{"IdentifierList":{"CID":[2249]}}`), nil
		case req.URL.Path == "/rest/pug/compound/cid/2249/SDF":
			return httputil.NewMockResponse(200, "SDF DATA"), nil
		default:
			return httputil.NewMockResponse(404, "unexpected "+req.URL.Path), nil
		}
	}

	fs := fsutil.NewMemoryFileSystem()
	log := &runlog.MemoryLogger{}
	p := New(cfg, Deps{FS: fs, Runner: &toolexec.MockRunner{}, Client: client, Log: log})

	if status := p.RunFetch(context.Background()); status != 0 {
		t.Fatalf("status = %d", status)
	}
	if !fs.Exists("data/proteins/5CRB.pdb") {
		t.Error("protein PDB not saved under data/proteins")
	}
	if !fs.Exists("data/ligands/ATENOLOL.sdf") {
		t.Error("ligand SDF not saved under data/ligands")
	}
}
