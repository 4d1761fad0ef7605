package spectro

import (
	"math"
	"testing"
)

func TestFuncParameterAccess(t *testing.T) {
	f := NewFunc("line", func(x float64, p []float64) float64 {
		return p[0] + p[1]*x
	}, 0, 10, 2)

	if got := f.NumParams(); got != 2 {
		t.Fatalf("NumParams = %d, want 2", got)
	}
	if err := f.SetParameter(0, 3); err != nil {
		t.Fatalf("SetParameter(0): %v", err)
	}
	if err := f.SetParameter(1, 0.5); err != nil {
		t.Fatalf("SetParameter(1): %v", err)
	}
	if err := f.SetParameter(2, 1); err == nil {
		t.Error("SetParameter past the parameter count should fail")
	}
	if got := f.Parameter(1); got != 0.5 {
		t.Errorf("Parameter(1) = %g, want 0.5", got)
	}
	if got := f.Parameter(9); got != 0 {
		t.Errorf("Parameter out of range = %g, want 0", got)
	}
	if got := f.Eval(4); got != 5 {
		t.Errorf("Eval(4) = %g, want 5", got)
	}
}

func TestFuncParametersCopies(t *testing.T) {
	f := NewFunc("f", nil, 0, 1, 3)
	f.SetParameters([]float64{1, 2, 3})

	p := f.Parameters()
	p[0] = 99
	if got := f.Parameter(0); got != 1 {
		t.Errorf("mutating the returned slice changed internal state: %g", got)
	}
}

func TestFuncSetParametersClamps(t *testing.T) {
	f := NewFunc("f", nil, 0, 1, 2)
	f.SetParameters([]float64{7, 8, 9, 10})
	if got := f.Parameters(); got[0] != 7 || got[1] != 8 {
		t.Errorf("Parameters = %v, want [7 8]", got)
	}

	// Shorter input touches only the leading entries.
	f.SetParameters([]float64{1})
	if got := f.Parameters(); got[0] != 1 || got[1] != 8 {
		t.Errorf("Parameters after short set = %v, want [1 8]", got)
	}
}

func TestFuncEvalPar(t *testing.T) {
	f := NewFunc("scale", func(x float64, p []float64) float64 {
		return p[0] * x
	}, 0, 1, 1)
	f.SetParameters([]float64{2})

	// EvalPar must use the supplied vector, not the stored one.
	if got := f.EvalPar(3, []float64{10}); got != 30 {
		t.Errorf("EvalPar = %g, want 30", got)
	}
	if got := f.Eval(3); got != 6 {
		t.Errorf("Eval after EvalPar = %g, want 6 (stored parameters untouched)", got)
	}

	var empty Func
	if got := empty.EvalPar(3, []float64{10}); got != 0 {
		t.Errorf("EvalPar with nil evaluator = %g, want 0", got)
	}
}

func TestFuncRangeAndStyle(t *testing.T) {
	f := NewFunc("f", nil, -5, 5, 0)
	if lo, hi := f.Range(); lo != -5 || hi != 5 {
		t.Errorf("Range = [%g, %g], want [-5, 5]", lo, hi)
	}
	f.SetRange(0, 100)
	if lo, hi := f.Range(); lo != 0 || hi != 100 {
		t.Errorf("Range after SetRange = [%g, %g], want [0, 100]", lo, hi)
	}

	if f.LineStyle() != LineSolid {
		t.Errorf("default line style = %v, want solid", f.LineStyle())
	}
	f.SetLineStyle(LineDotted)
	if f.LineStyle() != LineDotted {
		t.Errorf("LineStyle = %v, want dotted", f.LineStyle())
	}
}

func TestLineStyleString(t *testing.T) {
	cases := []struct {
		style LineStyle
		want  string
	}{
		{LineSolid, "solid"},
		{LineDashed, "dashed"},
		{LineDotted, "dotted"},
		{LineStyle(42), "solid"},
	}
	for _, tc := range cases {
		if got := tc.style.String(); got != tc.want {
			t.Errorf("LineStyle(%d).String() = %q, want %q", tc.style, got, tc.want)
		}
	}
}

func TestFuncIntegral(t *testing.T) {
	f := NewFunc("line", func(x float64, p []float64) float64 {
		return p[0] + p[1]*x
	}, 0, 10, 2)
	f.SetParameters([]float64{1, 2})

	// Integral of 1 + 2x over [0, 4] is 4 + 16 = 20.
	if got := f.Integral(0, 4); math.Abs(got-20) > 1e-9 {
		t.Errorf("Integral = %g, want 20", got)
	}
}

func TestFuncClone(t *testing.T) {
	f := NewFunc("orig", func(x float64, p []float64) float64 {
		return p[0]
	}, 2, 8, 1)
	f.SetParameters([]float64{5})
	f.SetParameterErrors([]float64{0.5})
	f.SetLineStyle(LineDashed)

	c := f.Clone()
	if c == f {
		t.Fatal("Clone returned the receiver")
	}
	if c.Name() != f.Name() || c.NumParams() != f.NumParams() {
		t.Error("Clone lost identity")
	}
	if c.Parameter(0) != 5 || c.ParameterError(0) != 0.5 {
		t.Error("Clone lost parameter state")
	}

	c.SetParameters([]float64{42})
	if f.Parameter(0) != 5 {
		t.Error("mutating the clone changed the original")
	}
}
