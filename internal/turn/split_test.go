package turn

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestSplit_Empty(t *testing.T) {
	require.Equal(t, []string{""}, Split("", 2000))
}

func TestSplit_ShortText(t *testing.T) {
	require.Equal(t, []string{"hello"}, Split("hello", 2000))
}

func TestSplit_ExactMultiple(t *testing.T) {
	got := Split(strings.Repeat("a", 4000), 2000)
	require.Len(t, got, 2)
	require.Len(t, got[0], 2000)
	require.Len(t, got[1], 2000)
}

func TestSplit_Lengths4500(t *testing.T) {
	text := strings.Repeat("x", 4500)
	got := Split(text, DefaultMaxFragment)
	require.Len(t, got, 3)
	require.Equal(t, []int{2000, 2000, 500}, []int{len(got[0]), len(got[1]), len(got[2])})
	require.Equal(t, text, strings.Join(got, ""))
}

func TestSplit_NonPositiveMaxUsesDefault(t *testing.T) {
	got := Split(strings.Repeat("b", 2001), 0)
	require.Len(t, got, 2)
	require.Len(t, got[1], 1)
}

func TestSplit_MultibyteCountsRunes(t *testing.T) {
	text := strings.Repeat("é👋", 5)
	got := Split(text, 3)
	require.Equal(t, text, strings.Join(got, ""))
	for i, f := range got {
		require.True(t, utf8.ValidString(f), "fragment %d", i)
		if i < len(got)-1 {
			require.Equal(t, 3, utf8.RuneCountInString(f))
		}
	}
}

func TestSplit_Properties(t *testing.T) {
	texts := []string{
		"a",
		"The quick brown fox jumps over the lazy dog",
		strings.Repeat("0123456789", 77),
		"line one\nline two\n\nline four — with dashes ✓",
	}
	for _, text := range texts {
		for _, limit := range []int{1, 2, 7, 10, 64, 2000} {
			got := Split(text, limit)
			require.Equal(t, text, strings.Join(got, ""), "limit=%d", limit)
			for i, f := range got {
				n := utf8.RuneCountInString(f)
				require.LessOrEqual(t, n, limit)
				if i < len(got)-1 {
					require.Equal(t, limit, n)
				}
			}
			require.Equal(t, got, Split(strings.Join(got, ""), limit), "idempotent")
		}
	}
}
