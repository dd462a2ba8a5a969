package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePersian(t *testing.T) {
	require.Equal(t, "مهندسی کامپیوتر", NormalizePersian("مهندسي كامپيوتر"))
	require.Equal(t, "already persian", NormalizePersian("already persian"))
	require.Equal(t, "", NormalizePersian(""))
}

func TestCollapseWhitespace(t *testing.T) {
	require.Equal(t, "a b c", CollapseWhitespace("  a \n b\t\tc "))
	require.Equal(t, "", CollapseWhitespace("   "))
}

func TestStripMarkup(t *testing.T) {
	require.Equal(t, "3", StripMarkup("<B>3</B>"))
	require.Equal(t, "ab", StripMarkup("a<BR>b"))
	require.Equal(t, "plain", StripMarkup("plain"))
}
