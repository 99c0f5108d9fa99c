// Package normalize computes per-field statistics over the float fields of a
// store and derives affine parameters that map each field's observed range
// onto a target interval [a, b]:
//
//	y = slope*x + bias,  slope = (b-a)/(max-min),  bias = a - slope*min
//
// A Collector streams a store once, keeping only per-field minima and maxima,
// so memory is proportional to the number of fields and independent of the
// number of records. Params can be applied to a store (Apply), inverted
// (Params.Inverse) to undo a normalization, and saved to or loaded from a
// YAML file so inference code can denormalize predictions later.
//
// Applying the same Params twice is not the identity; only the inverse undoes
// an application.
package normalize
