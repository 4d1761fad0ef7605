package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gammalab-data/specfit/internal/runinfo"
)

// RunStore provides persistence for run metadata.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// Save persists run metadata keyed by (run, subrun). Saving the same key
// again replaces the stored row.
func (s *RunStore) Save(ri *runinfo.Info) error {
	var badCyclesStr interface{}
	if cycles := ri.BadCycles(); len(cycles) > 0 {
		encoded, err := json.Marshal(cycles)
		if err != nil {
			return fmt.Errorf("encode bad cycles: %w", err)
		}
		badCyclesStr = string(encoded)
	}

	var startNs, stopNs int64
	if !ri.Start.IsZero() {
		startNs = ri.Start.UnixNano()
	}
	if !ri.Stop.IsZero() {
		stopNs = ri.Stop.UnixNano()
	}

	query := `
		INSERT INTO runs (
			run_number, subrun, title, comment, start_ns, stop_ns, length_ns,
			systems, array_pos, bad_cycles
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_number, subrun) DO UPDATE SET
			title = excluded.title,
			comment = excluded.comment,
			start_ns = excluded.start_ns,
			stop_ns = excluded.stop_ns,
			length_ns = excluded.length_ns,
			systems = excluded.systems,
			array_pos = excluded.array_pos,
			bad_cycles = excluded.bad_cycles
	`

	return retryOnBusy(func() error {
		_, err := s.db.Exec(query,
			ri.Run,
			ri.SubRun,
			nullString(ri.Title),
			nullString(ri.Comment),
			nullInt64(startNs),
			nullInt64(stopNs),
			nullInt64(int64(ri.Length)),
			int64(ri.Systems),
			ri.ArrayPos,
			badCyclesStr,
		)
		if err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		return nil
	})
}

// Get loads run metadata by run and subrun number.
func (s *RunStore) Get(run, subrun int) (*runinfo.Info, error) {
	row := s.db.QueryRow(`
		SELECT run_number, subrun, title, comment, start_ns, stop_ns, length_ns,
		       systems, array_pos, bad_cycles
		FROM runs
		WHERE run_number = ? AND subrun = ?`, run, subrun)

	ri, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d/%d not found", run, subrun)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return ri, nil
}

// List returns stored runs, newest run and subrun first. A limit of zero
// or less falls back to 100.
func (s *RunStore) List(limit int) ([]*runinfo.Info, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(`
		SELECT run_number, subrun, title, comment, start_ns, stop_ns, length_ns,
		       systems, array_pos, bad_cycles
		FROM runs
		ORDER BY run_number DESC, subrun DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*runinfo.Info
	for rows.Next() {
		ri, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, ri)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs rows: %w", err)
	}

	return runs, nil
}

// Delete removes run metadata by run and subrun number.
func (s *RunStore) Delete(run, subrun int) error {
	return retryOnBusy(func() error {
		result, err := s.db.Exec(`DELETE FROM runs WHERE run_number = ? AND subrun = ?`, run, subrun)
		if err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("run %d/%d not found", run, subrun)
		}
		return nil
	})
}

// scanRun rebuilds an Info from one row, restoring zero times and the
// bad-cycle list.
func scanRun(scan func(dest ...interface{}) error) (*runinfo.Info, error) {
	ri := runinfo.New(0, -1)
	var title, comment, badCyclesStr sql.NullString
	var startNs, stopNs, lengthNs sql.NullInt64
	var systems int64

	err := scan(
		&ri.Run,
		&ri.SubRun,
		&title,
		&comment,
		&startNs,
		&stopNs,
		&lengthNs,
		&systems,
		&ri.ArrayPos,
		&badCyclesStr,
	)
	if err != nil {
		return nil, err
	}

	if title.Valid {
		ri.Title = title.String
	}
	if comment.Valid {
		ri.Comment = comment.String
	}
	if startNs.Valid {
		ri.Start = time.Unix(0, startNs.Int64)
	}
	if stopNs.Valid {
		ri.Stop = time.Unix(0, stopNs.Int64)
	}
	if lengthNs.Valid {
		ri.Length = time.Duration(lengthNs.Int64)
	}
	ri.Systems = runinfo.Subsystem(systems)

	if badCyclesStr.Valid && badCyclesStr.String != "" {
		var cycles []int
		if err := json.Unmarshal([]byte(badCyclesStr.String), &cycles); err != nil {
			return nil, fmt.Errorf("decode bad cycles: %w", err)
		}
		for _, c := range cycles {
			ri.AddBadCycle(c)
		}
	}

	return ri, nil
}
