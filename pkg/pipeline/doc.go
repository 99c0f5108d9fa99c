// Package pipeline runs the dataset tools: verify, divide, shuffle, split,
// normalize and denormalize.
//
// Every tool follows the same protocol. Input stores are opened read-only and
// validated, the partition, permutation, schema or statistics are computed,
// and only then are output stores created and written. A run that fails
// validation or computation therefore leaves no output behind. A run that
// fails while writing keeps whatever was already written; re-running with
// overwrite enabled is the recovery path.
package pipeline
