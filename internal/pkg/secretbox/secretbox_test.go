package secretbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = strings.Repeat("ab", 32)

func TestSealOpen(t *testing.T) {
	box, err := NewFromHex(testKey)
	require.NoError(t, err)

	sealed, err := box.Seal([]byte(`{"last_four":"4242"}`))
	require.NoError(t, err)
	assert.NotContains(t, sealed, "4242")

	plain, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, `{"last_four":"4242"}`, string(plain))
}

func TestOpenWithWrongKeyFails(t *testing.T) {
	box, err := NewFromHex(testKey)
	require.NoError(t, err)
	other, err := NewFromHex(strings.Repeat("cd", 32))
	require.NoError(t, err)

	sealed, err := box.Seal([]byte("secret"))
	require.NoError(t, err)

	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestNewFromHexRejectsBadKeys(t *testing.T) {
	_, err := NewFromHex("abcd")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewFromHex(strings.Repeat("zz", 32))
	assert.ErrorIs(t, err, ErrInvalidKey)
}
