package banlist

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddContains(t *testing.T) {
	l := New()
	assert.True(t, l.Add(netip.MustParseAddr("10.0.0.2")))
	assert.False(t, l.Add(netip.MustParseAddr("10.0.0.2")))
	assert.True(t, l.Contains(netip.MustParseAddr("10.0.0.2")))
	assert.False(t, l.Contains(netip.MustParseAddr("10.0.0.3")))
	assert.Equal(t, 1, l.Len())
}

func TestSortedOrder(t *testing.T) {
	l := New()
	for _, s := range []string{"10.0.0.9", "2001:db8::1", "10.0.0.1", "192.168.1.1"} {
		require.NoError(t, l.AddString(s))
	}
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.9", "192.168.1.1", "2001:db8::1"}, l.Strings())
}

func TestUnmap(t *testing.T) {
	l := New()
	l.Add(netip.MustParseAddr("::ffff:10.0.0.2"))
	assert.True(t, l.Contains(netip.MustParseAddr("10.0.0.2")))
	assert.Equal(t, 1, l.Len())
}

func TestRemove(t *testing.T) {
	l := New()
	l.Add(netip.MustParseAddr("10.0.0.2"))
	assert.True(t, l.Remove(netip.MustParseAddr("10.0.0.2")))
	assert.False(t, l.Remove(netip.MustParseAddr("10.0.0.2")))
	assert.Equal(t, 0, l.Len())
}

func TestAddStringInvalid(t *testing.T) {
	l := New()
	assert.Error(t, l.AddString("not-an-ip"))
	assert.Error(t, l.AddString("10.0.0.0/8"))
}
