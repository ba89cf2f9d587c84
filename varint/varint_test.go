package varint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 300, 1 << 20, 1<<64 - 1}
	for _, v := range cases {
		buf := Encode(v, nil)
		assert.Equal(t, Length(v), len(buf))

		got, n, err := Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, len(buf), n)
		assert.Equal(t, v, got)
	}
}

func TestDecodeTruncated(t *testing.T) {
	// 0x80 alone signals "more bytes follow" but none do.
	_, _, err := Decode([]byte{0x80})
	assert.ErrorIs(t, err, ErrInvalidVarint)
}

func TestDecodeEmpty(t *testing.T) {
	_, _, err := Decode(nil)
	assert.ErrorIs(t, err, ErrInvalidVarint)
}

func TestEncodeAppends(t *testing.T) {
	buf := []byte{0xff}
	out := Encode(20, buf)
	assert.Equal(t, []byte{0xff, 0x14}, out)
}

func TestReferenceVectorBytes(t *testing.T) {
	// From the spec.md §6.1 reference vectors: ttl=1 and limit=20 both
	// fit in a single byte.
	assert.Equal(t, []byte{0x01}, Encode(1, nil))
	assert.Equal(t, []byte{0x14}, Encode(20, nil))
	assert.Equal(t, []byte{0x00}, Encode(0, nil))
}
