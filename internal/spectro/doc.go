// Package spectro implements the peak-fitting core of the analysis pipeline:
// parametric curve models, peak-shape families, chi-square fitting, histogram
// spectra, and peak candidate search.
//
// The central abstraction is the decomposition of one fitted multi-parameter
// curve into independently evaluable peak and background sub-functions. Every
// peak shape shares a single parameter vector between its peak and background
// pieces; an ordered role table records which index belongs to which piece.
// The fitted total function is always peak(x, p) + background(x, p).
//
// Rendering against a shared wide-range background is done by synthesizing a
// transient composite function whose parameter vector concatenates the peak
// model's parameters with the global background's. The composite lives only
// for the duration of a single Draw call and is never retained.
package spectro
