package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndexOf(t *testing.T) {
	data := []string{"100", "200", "300"}
	require.Equal(t, 1, IndexOf("200", data))
	require.Equal(t, -1, IndexOf("400", data))
	require.Equal(t, -1, IndexOf("100", nil))
}

func TestParseCustomEmote(t *testing.T) {
	name, id, ok := ParseCustomEmote("<:blobwave:123456789>")
	require.True(t, ok)
	require.Equal(t, "blobwave", name)
	require.Equal(t, "123456789", id)

	name, id, ok = ParseCustomEmote("<a:partyblob:987654321>")
	require.True(t, ok)
	require.Equal(t, "partyblob", name)
	require.Equal(t, "987654321", id)

	_, _, ok = ParseCustomEmote("\U0001F44D")
	require.False(t, ok)

	_, _, ok = ParseCustomEmote("<:broken>")
	require.False(t, ok)
}
