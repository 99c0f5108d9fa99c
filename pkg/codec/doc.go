// Package codec provides record serialization and key generation for datumkit.
//
// # Record Format
//
// A Record is the payload stored under every key of a dataset store. It is
// encoded in the protobuf wire format, field-compatible with the Datum
// message used by Caffe-style training pipelines, so stores produced by this
// package can be consumed by existing data layers and vice versa:
//
//	channels   = 1  (varint)
//	height     = 2  (varint)
//	width      = 3  (varint)
//	data       = 4  (bytes, channel-major c*h*w buffer)
//	label      = 5  (varint)
//	float_data = 6  (repeated fixed32, packed or unpacked on decode)
//	encoded    = 7  (bool)
//
// Fields not listed above are skipped on decode and dropped on re-encode.
//
// # Keys
//
// Renumbered stores use fixed-width, zero-padded decimal keys produced by
// EncodeKey. Because every key has the same width, lexicographic byte order
// matches integer order, so an ordered store enumerates renumbered records in
// ascending index order.
//
//	key, err := codec.EncodeKey(42, codec.DefaultKeyWidth) // "00000042"
//
// # Schema
//
// A store does not carry its own schema. InferSchema derives one from the
// first record of a store; callers decide whether subsequent records are
// checked against it (Schema.Check) or trusted.
package codec
