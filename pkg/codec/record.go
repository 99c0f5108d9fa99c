package codec

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	fieldChannels  protowire.Number = 1
	fieldHeight    protowire.Number = 2
	fieldWidth     protowire.Number = 3
	fieldData      protowire.Number = 4
	fieldLabel     protowire.Number = 5
	fieldFloatData protowire.Number = 6
	fieldEncoded   protowire.Number = 7
)

// Shape is the (channels, height, width) layout of a record's primary payload.
type Shape struct {
	Channels int `json:"channels"`
	Height   int `json:"height"`
	Width    int `json:"width"`
}

// Size returns the number of bytes a raw payload of this shape occupies.
func (s Shape) Size() int {
	return s.Channels * s.Height * s.Width
}

func (s Shape) String() string {
	return fmt.Sprintf("%d %d %d", s.Channels, s.Height, s.Width)
}

// Record is one decoded dataset entry. Records are values: operations that
// transform a record build a new one instead of modifying the input.
type Record struct {
	Channels  int32     // Number of channels of Data
	Height    int32     // Height of Data
	Width     int32     // Width of Data
	Data      []byte    // Raw primary payload, channel-major
	Label     int32     // Optional class label
	FloatData []float32 // Ordered float fields
	Encoded   bool      // Data holds an encoded image rather than raw pixels
}

// Shape returns the record's declared payload shape.
func (r *Record) Shape() Shape {
	return Shape{Channels: int(r.Channels), Height: int(r.Height), Width: int(r.Width)}
}

// Validate checks that a raw payload matches the declared shape.
func (r *Record) Validate() error {
	if r.Channels < 0 || r.Height < 0 || r.Width < 0 {
		return errors.Wrapf(ErrMalformed, "negative shape %s", r.Shape())
	}
	if r.Encoded || len(r.Data) == 0 {
		return nil
	}
	if want := r.Shape().Size(); len(r.Data) != want {
		return errors.Wrapf(ErrMalformed, "data length %d does not match shape %s (%d bytes)",
			len(r.Data), r.Shape(), want)
	}
	return nil
}

// Marshal encodes a record into its wire format.
func Marshal(r *Record) []byte {
	b := make([]byte, 0, len(r.Data)+5*len(r.FloatData)+16)

	b = protowire.AppendTag(b, fieldChannels, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(int64(r.Channels)))
	b = protowire.AppendTag(b, fieldHeight, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(int64(r.Height)))
	b = protowire.AppendTag(b, fieldWidth, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(int64(r.Width)))

	if len(r.Data) > 0 {
		b = protowire.AppendTag(b, fieldData, protowire.BytesType)
		b = protowire.AppendBytes(b, r.Data)
	}
	if r.Label != 0 {
		b = protowire.AppendTag(b, fieldLabel, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(r.Label)))
	}
	// proto2 repeated scalars default to unpacked
	for _, f := range r.FloatData {
		b = protowire.AppendTag(b, fieldFloatData, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(f))
	}
	if r.Encoded {
		b = protowire.AppendTag(b, fieldEncoded, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	return b
}

// Unmarshal decodes a record from its wire format.
func Unmarshal(b []byte) (*Record, error) {
	r := &Record{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, malformed(protowire.ParseError(n), "tag")
		}
		b = b[n:]

		switch {
		case num == fieldFloatData && typ == protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return nil, malformed(protowire.ParseError(n), "float_data")
			}
			r.FloatData = append(r.FloatData, math.Float32frombits(v))
			b = b[n:]

		case num == fieldFloatData && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, malformed(protowire.ParseError(n), "float_data")
			}
			if len(packed)%4 != 0 {
				return nil, errors.Wrapf(ErrMalformed, "packed float_data length %d is not a multiple of 4", len(packed))
			}
			for len(packed) > 0 {
				v, m := protowire.ConsumeFixed32(packed)
				r.FloatData = append(r.FloatData, math.Float32frombits(v))
				packed = packed[m:]
			}
			b = b[n:]

		case num == fieldData && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, malformed(protowire.ParseError(n), "data")
			}
			r.Data = append([]byte(nil), v...)
			b = b[n:]

		case typ == protowire.VarintType && num >= fieldChannels && num <= fieldEncoded && num != fieldData && num != fieldFloatData:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, malformed(protowire.ParseError(n), "varint")
			}
			switch num {
			case fieldChannels:
				r.Channels = int32(v)
			case fieldHeight:
				r.Height = int32(v)
			case fieldWidth:
				r.Width = int32(v)
			case fieldLabel:
				r.Label = int32(v)
			case fieldEncoded:
				r.Encoded = protowire.DecodeBool(v)
			}
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, malformed(protowire.ParseError(n), fmt.Sprintf("field %d", num))
			}
			b = b[n:]
		}
	}
	return r, nil
}

func malformed(cause error, what string) error {
	return errors.Mark(errors.Wrapf(cause, "decoding %s", what), ErrMalformed)
}

// RecordCodec handles serialization and deserialization of records
type RecordCodec struct{}

// NewRecordCodec creates a new record codec instance
func NewRecordCodec() *RecordCodec {
	return &RecordCodec{}
}

// Encode validates and serializes a record.
func (c *RecordCodec) Encode(r *Record) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return Marshal(r), nil
}

// Decode deserializes a record and validates its shape.
func (c *RecordCodec) Decode(data []byte) (*Record, error) {
	r, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
