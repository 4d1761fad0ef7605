package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Fit is one persisted peak fit: the derived quantities a report prints
// plus the raw parameter vector for reproducing the curve.
type Fit struct {
	FitID       string          `json:"fit_id"`
	SessionID   string          `json:"session_id"`
	Shape       string          `json:"shape"`
	Centroid    float64         `json:"centroid"`
	CentroidErr float64         `json:"centroid_err"`
	Area        float64         `json:"area"`
	AreaErr     float64         `json:"area_err"`
	FWHM        float64         `json:"fwhm"`
	Chi2        float64         `json:"chi2"`
	NDF         int             `json:"ndf"`
	RangeLo     float64         `json:"range_lo"`
	RangeHi     float64         `json:"range_hi"`
	ParamsJSON  json.RawMessage `json:"params_json,omitempty"`
	CreatedAt   int64           `json:"created_at"`
}

// FitStore provides persistence for peak fit results.
type FitStore struct {
	db *sql.DB
}

// NewFitStore creates a new FitStore.
func NewFitStore(db *sql.DB) *FitStore {
	return &FitStore{db: db}
}

// Insert persists a new fit result. If FitID is empty, a UUID is
// generated. Uncertainties recorded as NaN are stored as NULL.
func (s *FitStore) Insert(fit *Fit) error {
	if fit.FitID == "" {
		fit.FitID = uuid.New().String()
	}
	if fit.CreatedAt == 0 {
		fit.CreatedAt = time.Now().UnixNano()
	}

	var paramsStr interface{}
	if len(fit.ParamsJSON) > 0 {
		paramsStr = string(fit.ParamsJSON)
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO fits (
				fit_id, session_id, shape, centroid, centroid_err,
				area, area_err, fwhm, chi2, ndf,
				range_lo, range_hi, params_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			fit.FitID, fit.SessionID, fit.Shape, fit.Centroid, nullFloat64(fit.CentroidErr),
			fit.Area, nullFloat64(fit.AreaErr), nullFloat64(fit.FWHM), fit.Chi2, fit.NDF,
			fit.RangeLo, fit.RangeHi, paramsStr, fit.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert fit: %w", err)
		}
		return nil
	})
}

// ListBySession returns all fits for a session, ordered by centroid so a
// report reads in energy order.
func (s *FitStore) ListBySession(sessionID string) ([]*Fit, error) {
	rows, err := s.db.Query(`
		SELECT fit_id, session_id, shape, centroid, centroid_err,
		       area, area_err, fwhm, chi2, ndf,
		       range_lo, range_hi, params_json, created_at
		FROM fits
		WHERE session_id = ?
		ORDER BY centroid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query fits: %w", err)
	}
	defer rows.Close()

	var fits []*Fit
	for rows.Next() {
		f, err := scanFit(rows)
		if err != nil {
			return nil, err
		}
		fits = append(fits, f)
	}
	return fits, rows.Err()
}

// Get returns a single fit by ID.
func (s *FitStore) Get(fitID string) (*Fit, error) {
	row := s.db.QueryRow(`
		SELECT fit_id, session_id, shape, centroid, centroid_err,
		       area, area_err, fwhm, chi2, ndf,
		       range_lo, range_hi, params_json, created_at
		FROM fits
		WHERE fit_id = ?`, fitID)

	var f Fit
	var centroidErr, areaErr, fwhm sql.NullFloat64
	var paramsStr sql.NullString
	err := row.Scan(
		&f.FitID, &f.SessionID, &f.Shape, &f.Centroid, &centroidErr,
		&f.Area, &areaErr, &fwhm, &f.Chi2, &f.NDF,
		&f.RangeLo, &f.RangeHi, &paramsStr, &f.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("fit %s not found", fitID)
		}
		return nil, fmt.Errorf("scan fit: %w", err)
	}
	mapNullableFitFields(&f, centroidErr, areaErr, fwhm, paramsStr)
	return &f, nil
}

// Delete removes a fit by ID.
func (s *FitStore) Delete(fitID string) error {
	return retryOnBusy(func() error {
		result, err := s.db.Exec(`DELETE FROM fits WHERE fit_id = ?`, fitID)
		if err != nil {
			return fmt.Errorf("delete fit: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("fit %s not found", fitID)
		}
		return nil
	})
}

// scanFit scans a fit row from a sql.Rows cursor.
func scanFit(rows *sql.Rows) (*Fit, error) {
	var f Fit
	var centroidErr, areaErr, fwhm sql.NullFloat64
	var paramsStr sql.NullString
	err := rows.Scan(
		&f.FitID, &f.SessionID, &f.Shape, &f.Centroid, &centroidErr,
		&f.Area, &areaErr, &fwhm, &f.Chi2, &f.NDF,
		&f.RangeLo, &f.RangeHi, &paramsStr, &f.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan fit row: %w", err)
	}
	mapNullableFitFields(&f, centroidErr, areaErr, fwhm, paramsStr)
	return &f, nil
}

// mapNullableFitFields writes nullable columns back onto the struct,
// restoring NaN for uncertainties that were never computed.
func mapNullableFitFields(f *Fit, centroidErr, areaErr, fwhm sql.NullFloat64, paramsStr sql.NullString) {
	f.CentroidErr = math.NaN()
	if centroidErr.Valid {
		f.CentroidErr = centroidErr.Float64
	}
	f.AreaErr = math.NaN()
	if areaErr.Valid {
		f.AreaErr = areaErr.Float64
	}
	f.FWHM = math.NaN()
	if fwhm.Valid {
		f.FWHM = fwhm.Float64
	}
	if paramsStr.Valid && paramsStr.String != "" {
		f.ParamsJSON = json.RawMessage(paramsStr.String)
	}
}

// nullFloat64 maps NaN to NULL so unknown uncertainties round-trip.
func nullFloat64(f float64) interface{} {
	if math.IsNaN(f) {
		return nil
	}
	return f
}

// nullString maps the empty string to NULL.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nullInt64 maps zero to NULL, used for optional timestamps.
func nullInt64(i int64) interface{} {
	if i == 0 {
		return nil
	}
	return i
}
