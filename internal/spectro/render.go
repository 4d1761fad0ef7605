package spectro

// CurveRenderer is the narrow contract the fitting core draws through. The
// core never knows what backend is behind it; plotview renders to PNG via
// gonum/plot and the monitor renders the same curves as HTML charts.
type CurveRenderer interface {
	// DrawCurve renders c over its bound range. The renderer must not
	// retain c: composites handed to it are transient.
	DrawCurve(c *Func) error
}

// RendererFunc adapts a function to the CurveRenderer interface.
type RendererFunc func(c *Func) error

// DrawCurve calls f(c).
func (f RendererFunc) DrawCurve(c *Func) error { return f(c) }
