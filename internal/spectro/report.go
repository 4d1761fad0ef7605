package spectro

import (
	"io"
	"strings"
)

// FitReport is a read-only façade over a fitted peak model. It carries no
// state of its own; every accessor reflects the model's current parameters,
// so a report taken before and after a refit prints different numbers.
type FitReport struct {
	model PeakModel
}

// NewFitReport wraps m for reporting.
func NewFitReport(m PeakModel) *FitReport {
	return &FitReport{model: m}
}

// Shape returns the model's shape family name.
func (r *FitReport) Shape() string { return r.model.Name() }

// Centroid returns the fitted peak position.
func (r *FitReport) Centroid() float64 { return r.model.Centroid() }

// CentroidErr returns the uncertainty on the peak position.
func (r *FitReport) CentroidErr() float64 { return r.model.CentroidErr() }

// Area returns the fitted peak area.
func (r *FitReport) Area() float64 { return r.model.Area() }

// AreaErr returns the uncertainty on the peak area.
func (r *FitReport) AreaErr() float64 { return r.model.AreaErr() }

// Summary formats the derived quantities in the fixed report order:
// centroid with its uncertainty, then area with its uncertainty.
func (r *FitReport) Summary() string {
	var b strings.Builder
	_ = WriteSummary(&b, r.model)
	return b.String()
}

// WriteTo writes the summary to w, implementing io.WriterTo.
func (r *FitReport) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, r.Summary())
	return int64(n), err
}
