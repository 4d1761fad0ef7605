package spectro

import (
	"bytes"
	"strings"
	"testing"
)

func TestFitReportReflectsModel(t *testing.T) {
	g := NewGaussian(0, 100)
	g.TotalFunc().SetParameters([]float64{10, 42.5, 2, 0, 0})
	g.TotalFunc().SetParameterErrors([]float64{0, 0.25, 0, 0, 0})

	r := NewFitReport(g)
	if got := r.Shape(); got != "gaussian" {
		t.Errorf("Shape = %q, want %q", got, "gaussian")
	}
	if got := r.Centroid(); got != 42.5 {
		t.Errorf("Centroid = %g, want 42.5", got)
	}
	if got := r.CentroidErr(); got != 0.25 {
		t.Errorf("CentroidErr = %g, want 0.25", got)
	}
	if got := r.Area(); got != g.Area() {
		t.Errorf("Area = %g, want %g", got, g.Area())
	}

	// The report holds no state: a refit shows through.
	g.TotalFunc().SetParameter(gaussParCentroid, 50)
	if got := r.Centroid(); got != 50 {
		t.Errorf("Centroid after refit = %g, want 50", got)
	}
}

func TestFitReportSummaryFormat(t *testing.T) {
	g := NewGaussian(0, 100)
	g.TotalFunc().SetParameters([]float64{10, 42.5, 2, 0, 0})
	g.TotalFunc().SetParameterErrors([]float64{0, 0.25, 0, 0, 0})

	sum := NewFitReport(g).Summary()
	lines := strings.Split(strings.TrimRight(sum, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("summary has %d lines, want 2:\n%s", len(lines), sum)
	}
	if lines[0] != "Centroid = 42.5 +/- 0.25" {
		t.Errorf("centroid line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Area = ") || !strings.Contains(lines[1], " +/- ") {
		t.Errorf("area line = %q", lines[1])
	}
}

func TestFitReportWriteTo(t *testing.T) {
	g := NewGaussian(0, 100)
	r := NewFitReport(g)

	var buf bytes.Buffer
	n, err := r.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if n != int64(buf.Len()) {
		t.Errorf("WriteTo reported %d bytes, buffer has %d", n, buf.Len())
	}
	if buf.String() != r.Summary() {
		t.Error("WriteTo output differs from Summary")
	}
}
