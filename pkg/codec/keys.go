package codec

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	// DefaultKeyWidth is the width of renumbered keys unless configured otherwise.
	DefaultKeyWidth = 8

	// MaxKeyWidth keeps 10^width - 1 within int64.
	MaxKeyWidth = 18
)

// KeyCodec turns dense integer indices into fixed-width sortable keys.
type KeyCodec struct {
	Width int
}

// NewKeyCodec returns a codec for the given width, or an error if the width
// is outside [1, MaxKeyWidth].
func NewKeyCodec(width int) (KeyCodec, error) {
	if width < 1 || width > MaxKeyWidth {
		return KeyCodec{}, errors.Newf("key width %d outside [1, %d]", width, MaxKeyWidth)
	}
	return KeyCodec{Width: width}, nil
}

// MaxIndex returns the largest index representable at this width.
func (k KeyCodec) MaxIndex() int64 {
	return MaxIndex(k.Width)
}

// Encode returns the key for index i.
func (k KeyCodec) Encode(i int64) ([]byte, error) {
	s, err := EncodeKey(i, k.Width)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// MaxIndex returns 10^width - 1.
func MaxIndex(width int) int64 {
	limit := int64(1)
	for i := 0; i < width; i++ {
		limit *= 10
	}
	return limit - 1
}

// EncodeKey zero-pads i in base 10 to width characters.
func EncodeKey(i int64, width int) (string, error) {
	if width < 1 || width > MaxKeyWidth {
		return "", errors.Newf("key width %d outside [1, %d]", width, MaxKeyWidth)
	}
	if i < 0 {
		return "", errors.Newf("negative index %d", i)
	}
	if limit := MaxIndex(width); i > limit {
		return "", errors.Wrapf(ErrOverflow,
			"index %d exceeds %d for key width %d; increase the key width", i, limit, width)
	}
	s := strconv.FormatInt(i, 10)
	return strings.Repeat("0", width-len(s)) + s, nil
}

// DecodeKey parses a key produced by EncodeKey.
func DecodeKey(key []byte) (int64, error) {
	i, err := strconv.ParseInt(string(key), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "key %q is not a numeric index", key)
	}
	return i, nil
}
