package monitor

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/gammalab-data/specfit/internal/httputil"
	"github.com/gammalab-data/specfit/internal/spectro"
)

// echartsAssetsPrefix is where rendered charts load the echarts runtime
// from, so the monitor needs no local static file serving.
const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// curveSamples is how many points each fitted curve is sampled at.
const curveSamples = 300

// parseMaxPoints reads the max_points query parameter (default 8000).
func parseMaxPoints(r *http.Request) int {
	maxPoints := 8000
	if mp := r.URL.Query().Get("max_points"); mp != "" {
		if v, err := strconv.Atoi(mp); err == nil && v > 100 && v <= 50000 {
			maxPoints = v
		}
	}
	return maxPoints
}

// sampleCurve evaluates c across its bound range and returns chart points.
func sampleCurve(c *spectro.Func, n int) []opts.ScatterData {
	lo, hi := c.Range()
	if hi <= lo || n < 2 {
		return nil
	}
	pts := make([]opts.ScatterData, 0, n)
	step := (hi - lo) / float64(n-1)
	for i := 0; i < n; i++ {
		x := lo + float64(i)*step
		pts = append(pts, opts.ScatterData{Value: []interface{}{x, c.Eval(x)}})
	}
	return pts
}

// addCurve samples c through the CurveRenderer contract, the same path the
// PNG backend uses, and adds the result as one dense series.
func addCurve(chart *charts.Scatter, name, color string, c *spectro.Func) error {
	return spectro.RendererFunc(func(fc *spectro.Func) error {
		pts := sampleCurve(fc, curveSamples)
		if len(pts) == 0 {
			return fmt.Errorf("curve %q: empty range", fc.Name())
		}
		chart.AddSeries(name, pts,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: color}))
		return nil
	}).DrawCurve(c)
}

// handleSpectrumChart renders the loaded spectrum (HTML) with every fitted
// curve overlaid: counts as dots, each composite fit in red, its background
// component in grey.
// Query params:
//   - max_points (optional; default 8000) to reduce payload size
func (ws *WebServer) handleSpectrumChart(w http.ResponseWriter, r *http.Request) {
	ws.specMu.RLock()
	defer ws.specMu.RUnlock()

	s := ws.spectrum
	if s == nil {
		httputil.NotFound(w, "no spectrum loaded")
		return
	}

	maxPoints := parseMaxPoints(r)

	// Downsample by stride to stay within maxPoints
	stride := 1
	if s.NumBins() > maxPoints {
		stride = int(math.Ceil(float64(s.NumBins()) / float64(maxPoints)))
	}

	data := make([]opts.ScatterData, 0, s.NumBins()/stride+1)
	maxCount := 0.0
	for i := 0; i < s.NumBins(); i += stride {
		y := s.At(i)
		if y > maxCount {
			maxCount = y
		}
		data = append(data, opts.ScatterData{Value: []interface{}{s.BinCenter(i), y}})
	}

	// Add a small padding so the tallest peak is not clipped
	pad := maxCount * 1.05
	if pad == 0 {
		pad = 1.0
	}

	lo, hi := s.Range()

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Spectrum", Theme: ws.chartTheme, Width: "1200px", Height: "700px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: s.Name(), Subtitle: fmt.Sprintf("bins=%d peaks=%d stride=%d", s.NumBins(), len(ws.peaks), stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: lo, Max: hi, Name: "Energy (keV)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: pad, Name: "Counts", NameLocation: "middle", NameGap: 40}),
	)

	scatter.AddSeries("counts", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))

	for _, p := range ws.peaks {
		total := p.Model.TotalFunc()
		if total == nil {
			continue
		}
		label := fmt.Sprintf("fit %.1f keV", p.Model.Centroid())
		if err := addCurve(scatter, label, "#ff5252", total); err != nil {
			continue
		}
		if bg := p.Model.BackgroundFunc(); bg != nil {
			_ = addCurve(scatter, fmt.Sprintf("bg %.1f keV", p.Model.Centroid()), "#9e9e9e", bg)
		}
	}

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleResidualsChart renders normalized fit residuals (HTML), one series
// per fitted peak: (y - fit) / sqrt(max(y, 1)) over each fit range, the same
// weighting the chi-square objective uses.
func (ws *WebServer) handleResidualsChart(w http.ResponseWriter, r *http.Request) {
	ws.specMu.RLock()
	defer ws.specMu.RUnlock()

	s := ws.spectrum
	if s == nil {
		httputil.NotFound(w, "no spectrum loaded")
		return
	}
	if len(ws.peaks) == 0 {
		httputil.NotFound(w, "no fitted peaks")
		return
	}

	names := make([]string, 0, len(ws.peaks))
	series := make([][]opts.ScatterData, 0, len(ws.peaks))
	maxAbs := 0.0
	for _, p := range ws.peaks {
		total := p.Model.TotalFunc()
		if total == nil {
			continue
		}
		flo, fhi := total.Range()
		xs, ys := s.Slice(flo, fhi)
		pts := make([]opts.ScatterData, 0, len(xs))
		for i := range xs {
			res := (ys[i] - total.Eval(xs[i])) / math.Sqrt(math.Max(ys[i], 1))
			if math.Abs(res) > maxAbs {
				maxAbs = math.Abs(res)
			}
			pts = append(pts, opts.ScatterData{Value: []interface{}{xs[i], res}})
		}
		names = append(names, fmt.Sprintf("fit %.1f keV", p.Model.Centroid()))
		series = append(series, pts)
	}

	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}

	lo, hi := s.Range()

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Fit Residuals", Theme: ws.chartTheme, Width: "1200px", Height: "500px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Normalized residuals", Subtitle: fmt.Sprintf("spectrum=%s peaks=%d", s.Name(), len(series))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: lo, Max: hi, Name: "Energy (keV)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "(y - fit) / sqrt(y)", NameLocation: "middle", NameGap: 40}),
	)

	for i := range series {
		scatter.AddSeries(names[i], series[i], charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	}

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render residuals chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
