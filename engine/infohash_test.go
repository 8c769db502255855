package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoHashV1(t *testing.T) {
	s := strings.Repeat("ab", 20)
	h, err := InfoHashFromHex(s)
	require.NoError(t, err)
	assert.Equal(t, 20, h.Len())
	assert.False(t, h.V2())
	assert.False(t, h.IsZero())
	assert.Equal(t, s, h.String())

	h2, err := InfoHashFromBytes(h.Bytes())
	require.NoError(t, err)
	assert.Equal(t, h, h2)
}

func TestInfoHashV2(t *testing.T) {
	s := strings.Repeat("cd", 32)
	h, err := InfoHashFromHex(s)
	require.NoError(t, err)
	assert.Equal(t, 32, h.Len())
	assert.True(t, h.V2())
	assert.Equal(t, s, h.String())
}

func TestInfoHashZero(t *testing.T) {
	var h InfoHash
	assert.True(t, h.IsZero())
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, "", h.String())
}

func TestInfoHashInvalid(t *testing.T) {
	_, err := InfoHashFromHex("abcd")
	assert.Error(t, err)
	_, err = InfoHashFromHex(strings.Repeat("zz", 20))
	assert.Error(t, err)
	_, err = InfoHashFromBytes(make([]byte, 19))
	assert.Error(t, err)
}

func TestInfoHashMapKey(t *testing.T) {
	h1, err := InfoHashFromHex(strings.Repeat("ab", 20))
	require.NoError(t, err)
	h2, err := InfoHashFromHex(strings.Repeat("ab", 20))
	require.NoError(t, err)
	m := map[InfoHash]int{h1: 1}
	assert.Equal(t, 1, m[h2])
}
