// Package lockstep drives several ordered stores in unison.
//
// A Set is a group of stores that, by invariant, hold the same key sequence:
// an "images" store and a "labels" store written side by side, for example.
// A Cursor walks every store of a Set one step at a time and checks, at each
// step, that all iterators agree on validity and that all current keys are
// byte-identical. The first disagreement ends the traversal with a
// *ValidationError; there is no partial result.
//
// The number of keys a Cursor produces is the authoritative record count used
// by every tool that partitions or permutes a Set.
package lockstep
