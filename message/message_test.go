package message

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahdinosaur/cable-go/varint"
)

func reqID(b ...byte) ReqId {
	var r ReqId
	copy(r[:], b)
	return r
}

func hexBytes(t *testing.T, s string) []byte {
	t.Helper()
	s = strings.ReplaceAll(s, " ", "")
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func threeHashes() []Hash {
	var a, b, c Hash
	a[0], a[1] = 0x15, 0xed
	b[0], b[1] = 0x97, 0xfc
	c[0], c[1] = 0x9c, 0x29
	return []Hash{a, b, c}
}

func hashBytesHex() string {
	// 96 bytes: three 32-byte hashes, only first two bytes of each matter
	// for this test's assertions; the remainder is zero-filled.
	hs := threeHashes()
	var sb strings.Builder
	for _, h := range hs {
		sb.WriteString(hex.EncodeToString(h[:]))
	}
	return sb.String()
}

func TestReferenceVectorPostRequest(t *testing.T) {
	msg := Message{
		Header: Header{ReqId: reqID(0x04, 0xba, 0xaf, 0xfb)},
		Body:   PostRequest{TTL: 1, Hashes: threeHashes()},
	}
	want := hexBytes(t, "6b 02 00000000 04baaffb 01 03"+hashBytesHex())

	got, err := Encode(msg)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	decoded, n, err := Decode(want)
	require.NoError(t, err)
	assert.Equal(t, len(want), n)
	assert.Equal(t, msg, decoded)
}

func TestReferenceVectorCancelRequest(t *testing.T) {
	msg := Message{
		Header: Header{ReqId: reqID(0x04, 0xba, 0xaf, 0xfb)},
		Body:   CancelRequest{TTL: 1, CancelID: reqID(0x31, 0xb5, 0xc9, 0xe1)},
	}
	want := hexBytes(t, "0e 03 00000000 04baaffb 01 31b5c9e1")

	got, err := Encode(msg)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	decoded, n, err := Decode(want)
	require.NoError(t, err)
	assert.Equal(t, len(want), n)
	assert.Equal(t, msg, decoded)
}

func TestReferenceVectorChannelTimeRange(t *testing.T) {
	msg := Message{
		Header: Header{ReqId: reqID(0x04, 0xba, 0xaf, 0xfb)},
		Body: ChannelTimeRangeRequest{
			TTL: 1, Channel: "default", TimeStart: 0, TimeEnd: 100, Limit: 20,
		},
	}
	want := hexBytes(t, "15 04 00000000 04baaffb 01 07"+hex.EncodeToString([]byte("default"))+"00 64 14")

	got, err := Encode(msg)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	decoded, n, err := Decode(want)
	require.NoError(t, err)
	assert.Equal(t, len(want), n)
	assert.Equal(t, msg, decoded)
}

func TestReferenceVectorChannelState(t *testing.T) {
	msg := Message{
		Header: Header{ReqId: reqID(0x04, 0xba, 0xaf, 0xfb)},
		Body:   ChannelStateRequest{TTL: 1, Channel: "default", Future: 0},
	}
	want := hexBytes(t, "13 05 00000000 04baaffb 01 07"+hex.EncodeToString([]byte("default"))+"00")

	got, err := Encode(msg)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	decoded, n, err := Decode(want)
	require.NoError(t, err)
	assert.Equal(t, len(want), n)
	assert.Equal(t, msg, decoded)
}

func TestReferenceVectorChannelList(t *testing.T) {
	msg := Message{
		Header: Header{ReqId: reqID(0x04, 0xba, 0xaf, 0xfb)},
		Body:   ChannelListRequest{TTL: 1, Skip: 0, Limit: 20},
	}
	want := hexBytes(t, "0c 06 00000000 04baaffb 01 00 14")

	got, err := Encode(msg)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	decoded, n, err := Decode(want)
	require.NoError(t, err)
	assert.Equal(t, len(want), n)
	assert.Equal(t, msg, decoded)
}

func TestReferenceVectorHashResponse(t *testing.T) {
	msg := Message{
		Header: Header{ReqId: reqID(0x04, 0xba, 0xaf, 0xfb)},
		Body:   HashResponse{Hashes: threeHashes()},
	}
	want := hexBytes(t, "6a 00 00000000 04baaffb 03"+hashBytesHex())

	got, err := Encode(msg)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	decoded, n, err := Decode(want)
	require.NoError(t, err)
	assert.Equal(t, len(want), n)
	assert.Equal(t, msg, decoded)
}

func TestReferenceVectorChannelListResponse(t *testing.T) {
	msg := Message{
		Header: Header{ReqId: reqID(0x04, 0xba, 0xaf, 0xfb)},
		Body:   ChannelListResponse{Channels: []string{"default", "dev", "introduction"}},
	}
	want := hexBytes(t, "23 07 00000000 04baaffb"+
		"07"+hex.EncodeToString([]byte("default"))+
		"03"+hex.EncodeToString([]byte("dev"))+
		"0c"+hex.EncodeToString([]byte("introduction"))+
		"00")

	got, err := Encode(msg)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	decoded, n, err := Decode(want)
	require.NoError(t, err)
	assert.Equal(t, len(want), n)
	assert.Equal(t, msg, decoded)
}

func TestFrameSelfDescribing(t *testing.T) {
	msg := Message{
		Header: Header{ReqId: reqID(1, 2, 3, 4)},
		Body:   PostRequest{TTL: 3, Hashes: threeHashes()},
	}
	buf, err := Encode(msg)
	require.NoError(t, err)

	msgLen, n, err := varint.Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf)-n, int(msgLen))
}

func TestPostResponseRoundTrip(t *testing.T) {
	msg := Message{
		Header: Header{ReqId: reqID(9, 9, 9, 9)},
		Body:   PostResponse{Posts: [][]byte{[]byte("hello"), []byte("world!")}},
	}
	buf, err := Encode(msg)
	require.NoError(t, err)

	decoded, n, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, msg, decoded)
}

func TestPostResponseEmpty(t *testing.T) {
	msg := Message{Header: Header{}, Body: PostResponse{}}
	buf, err := Encode(msg)
	require.NoError(t, err)
	decoded, _, err := Decode(buf)
	require.NoError(t, err)
	assert.Nil(t, decoded.Body.(PostResponse).Posts)
}

func TestUnrecognizedRoundTrip(t *testing.T) {
	// type 99 is outside {0..7}; hand-build a frame for it.
	body := []byte{0xaa, 0xbb, 0xcc}
	inner := append([]byte{99}, []byte{0, 0, 0, 0}...)
	inner = append(inner, []byte{0, 0, 0, 0}...)
	inner = append(inner, body...)
	buf := append([]byte{byte(len(inner))}, inner...)

	decoded, n, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, Unrecognized{Type: 99}, decoded.Body)
}

func TestEncodeUnrecognizedFails(t *testing.T) {
	msg := Message{Body: Unrecognized{Type: 42}}
	_, err := Encode(msg)
	assert.ErrorIs(t, err, ErrWriteUnrecognizedType)
}

func TestDecodeEmptyInput(t *testing.T) {
	_, _, err := Decode(nil)
	assert.ErrorIs(t, err, ErrMessageEmpty)
}

func TestDecodeShortBuffer(t *testing.T) {
	// Declares 100 bytes of body but provides none.
	_, _, err := Decode([]byte{100})
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestDecodeHashTruncated(t *testing.T) {
	inner := []byte{byte(TypeHashResponse), 0, 0, 0, 0, 0, 0, 0, 0, 1 /* n=1 */}
	inner = append(inner, make([]byte, 10)...) // only 10 of 32 bytes
	buf := append(varint.Encode(uint64(len(inner)), nil), inner...)
	_, _, err := Decode(buf)
	assert.ErrorIs(t, err, ErrHashTruncated)
}

func TestDecodeInvalidChannelEncoding(t *testing.T) {
	invalidUTF8 := []byte{0xff, 0xfe}
	inner := []byte{byte(TypeChannelTimeRange), 0, 0, 0, 0, 0, 0, 0, 0}
	inner = append(inner, 1 /* ttl */)
	inner = append(inner, byte(len(invalidUTF8)))
	inner = append(inner, invalidUTF8...)
	inner = append(inner, 0, 0, 0) // time_start, time_end, limit
	buf := append(varint.Encode(uint64(len(inner)), nil), inner...)
	_, _, err := Decode(buf)
	assert.ErrorIs(t, err, ErrInvalidChannelEncoding)
}
