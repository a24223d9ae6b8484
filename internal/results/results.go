package results

import (
	"database/sql"
	"encoding/csv"
	"io"
	"strconv"
)

// DockingResult is the best binding affinity recorded for a receptor/ligand
// pair, along with the search box that produced it.
type DockingResult struct {
	RunID         string
	Receptor      string
	Ligand        string
	Affinity      sql.NullFloat64
	BoxCenter     [3]float64
	BoxSize       [3]float64
	BoxProvenance string
}

// UpsertResult inserts or replaces the stored result for the pair.
func (db *DB) UpsertResult(res DockingResult) error {
	_, err := db.Exec(`
		INSERT INTO docking_results (
			run_id, receptor, ligand, affinity,
			box_center_x, box_center_y, box_center_z,
			box_size_x, box_size_y, box_size_z,
			box_provenance
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (receptor, ligand) DO UPDATE SET
			run_id         = excluded.run_id,
			affinity       = excluded.affinity,
			box_center_x   = excluded.box_center_x,
			box_center_y   = excluded.box_center_y,
			box_center_z   = excluded.box_center_z,
			box_size_x     = excluded.box_size_x,
			box_size_y     = excluded.box_size_y,
			box_size_z     = excluded.box_size_z,
			box_provenance = excluded.box_provenance,
			created_at     = CURRENT_TIMESTAMP`,
		res.RunID, res.Receptor, res.Ligand, res.Affinity,
		res.BoxCenter[0], res.BoxCenter[1], res.BoxCenter[2],
		res.BoxSize[0], res.BoxSize[1], res.BoxSize[2],
		res.BoxProvenance,
	)
	return err
}

// UpsertAffinity inserts or updates just the affinity for the pair.
// Box columns written by the docking stage survive the update, so
// re-extracting from captured logs never erases box provenance.
func (db *DB) UpsertAffinity(runID, receptor, ligand string, affinity sql.NullFloat64) error {
	_, err := db.Exec(`
		INSERT INTO docking_results (run_id, receptor, ligand, affinity)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (receptor, ligand) DO UPDATE SET
			affinity = excluded.affinity`,
		runID, receptor, ligand, affinity,
	)
	return err
}

// Results returns all stored pairs ordered by receptor then ligand.
func (db *DB) Results() ([]DockingResult, error) {
	return db.queryResults(`
		SELECT run_id, receptor, ligand, affinity,
		       box_center_x, box_center_y, box_center_z,
		       box_size_x, box_size_y, box_size_z,
		       box_provenance
		FROM docking_results
		ORDER BY receptor, ligand`)
}

// ResultsByAffinity returns all stored pairs strongest binding first. Pairs
// with no recorded affinity sort last.
func (db *DB) ResultsByAffinity() ([]DockingResult, error) {
	return db.queryResults(`
		SELECT run_id, receptor, ligand, affinity,
		       box_center_x, box_center_y, box_center_z,
		       box_size_x, box_size_y, box_size_z,
		       box_provenance
		FROM docking_results
		ORDER BY affinity IS NULL, affinity, receptor, ligand`)
}

func (db *DB) queryResults(query string) ([]DockingResult, error) {
	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DockingResult
	for rows.Next() {
		var r DockingResult
		if err := rows.Scan(&r.RunID, &r.Receptor, &r.Ligand, &r.Affinity,
			&r.BoxCenter[0], &r.BoxCenter[1], &r.BoxCenter[2],
			&r.BoxSize[0], &r.BoxSize[1], &r.BoxSize[2],
			&r.BoxProvenance); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// EnergiesHeader is the first row of the binding-energies CSV.
var EnergiesHeader = []string{"Protein", "Ligand", "Binding Affinity (kcal/mol)"}

// EnergyRow is one line of the binding-energies CSV. A missing affinity
// renders as an empty cell.
type EnergyRow struct {
	Protein  string
	Ligand   string
	Affinity sql.NullFloat64
}

// EnergyRows converts stored docking results to CSV rows.
func EnergyRows(results []DockingResult) []EnergyRow {
	rows := make([]EnergyRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, EnergyRow{Protein: r.Receptor, Ligand: r.Ligand, Affinity: r.Affinity})
	}
	return rows
}

// WriteEnergiesCSV writes rows in the canonical binding-energies layout.
func WriteEnergiesCSV(w io.Writer, rows []EnergyRow) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write(EnergiesHeader); err != nil {
		return err
	}
	for _, row := range rows {
		affinity := ""
		if row.Affinity.Valid {
			affinity = strconv.FormatFloat(row.Affinity.Float64, 'f', -1, 64)
		}
		if err := cw.Write([]string{row.Protein, row.Ligand, affinity}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
