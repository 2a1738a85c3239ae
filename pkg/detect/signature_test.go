package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignature(t *testing.T) {
	sig, err := ParseSignature("ole2:0:D0CF11E0")
	require.NoError(t, err)
	assert.Equal(t, "ole2", sig.Name)
	assert.Equal(t, 0, sig.Offset)
	assert.Equal(t, []byte{0xd0, 0xcf, 0x11, 0xe0}, sig.Magic)
	assert.Equal(t, "ole2:0:d0cf11e0", sig.String())

	for _, bad := range []string{"", "ole2", "ole2:0", ":0:aa", "x:-1:aa", "x:y:aa", "x:0:zz", "x:0:"} {
		_, err := ParseSignature(bad)
		assert.ErrorIs(t, err, ErrInvalidSignature, bad)
	}
}

func TestSignatureMatch(t *testing.T) {
	sig := Signature{Name: "mid", Offset: 2, Magic: []byte("ab")}

	assert.True(t, sig.Match([]byte("xxabyy")))
	assert.False(t, sig.Match([]byte("abxxyy")))
	assert.False(t, sig.Match([]byte("xxa")))
	assert.False(t, Signature{Name: "empty"}.Match([]byte("anything")))
}

func TestParseSignatures(t *testing.T) {
	sigs, err := ParseSignatures([]string{"a:0:01", "b:1:02"})
	require.NoError(t, err)
	assert.Len(t, sigs, 2)

	_, err = ParseSignatures([]string{"a:0:01", "broken"})
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
