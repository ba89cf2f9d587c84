package post

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	pub, sec, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	p := Text("default", nil, 100, "hello, cable")
	signed, err := p.Sign(pub, sec)
	require.NoError(t, err)
	require.True(t, signed.IsSigned())
	require.True(t, signed.Verify())
}

func TestVerifyFailsOnTamperedText(t *testing.T) {
	pub, sec, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	signed, err := Text("default", nil, 100, "hello").Sign(pub, sec)
	require.NoError(t, err)
	signed.Text = "goodbye"
	require.False(t, signed.Verify())
}

func TestFromBytesRoundTrip(t *testing.T) {
	pub, sec, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	signed, err := Topic("default", nil, 42, "today's discussion").Sign(pub, sec)
	require.NoError(t, err)

	n, decoded, err := FromBytes(signed.Bytes())
	require.NoError(t, err)
	require.Equal(t, len(signed.Bytes()), n)
	require.Equal(t, signed.Topic, decoded.Topic)
	require.Equal(t, signed.Channel, decoded.Channel)
	require.True(t, decoded.Verify())
	require.Equal(t, signed.Hash(), decoded.Hash())
}

func TestHashStable(t *testing.T) {
	pub, sec, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	signed, err := Join("default", nil, 7).Sign(pub, sec)
	require.NoError(t, err)
	require.Equal(t, signed.Hash(), signed.Hash())
}
