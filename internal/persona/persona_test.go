package persona

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_KnownCategories(t *testing.T) {
	require.Len(t, Categories, 9)
	for _, c := range Categories {
		tmpl := Resolve(c)
		assert.Contains(t, tmpl, "{username}", c)
	}
	assert.Contains(t, Resolve("Chef"), "chef")
	assert.NotEqual(t, Resolve("Chef"), Resolve("Lawyer"))
}

func TestResolve_UnknownFallsBackToDefault(t *testing.T) {
	require.Equal(t, Resolve(DefaultCategory), Resolve("UnknownXYZ"))
	require.Equal(t, Resolve(DefaultCategory), Resolve(""))
	require.Equal(t, Resolve(DefaultCategory), Resolve("engineer"), "keys are case-sensitive")
}

func TestSystemPrompt(t *testing.T) {
	got := Spec{Category: "Engineer", Formality: "Formal", Detail: "Exhaustive", Humor: "Playful"}.SystemPrompt("alice")

	require.True(t, strings.HasPrefix(got, "You are a technical and detail-oriented engineer. You offer solutions to alice as a peer"))
	require.True(t, strings.HasSuffix(got, " Respond with a formal tone, provide exhaustive information, and maintain a playful attitude."))
	require.NotContains(t, got, "{username}")
}

func TestSystemPrompt_NoToneIsBareTemplate(t *testing.T) {
	want := strings.ReplaceAll(Resolve(DefaultCategory), "{username}", "bob")

	require.Equal(t, want, Spec{}.SystemPrompt("bob"))
	require.Equal(t, want, Spec{Category: DefaultCategory, Temperature: DefaultTemperature}.SystemPrompt("bob"))
}

func TestSystemPrompt_WithDefaultsAppendsTone(t *testing.T) {
	got := Spec{}.WithDefaults().SystemPrompt("bob")

	require.True(t, strings.HasPrefix(got, strings.ReplaceAll(Resolve("IT"), "{username}", "bob")))
	require.True(t, strings.HasSuffix(got, " Respond with a casual tone, provide brief information, and maintain a serious attitude."))
}

func TestSystemPrompt_PartialToneLeavesOthersEmpty(t *testing.T) {
	got := Spec{Humor: "Dry"}.SystemPrompt("c")
	require.Contains(t, got, "Respond with a  tone, provide  information, and maintain a dry attitude.")
}

func TestSystemPrompt_FreeFormToneIsEchoed(t *testing.T) {
	got := Spec{Formality: "Pirate-ish", Detail: "ELI5", Humor: "Dad jokes"}.SystemPrompt("c")
	require.Contains(t, got, "a pirate-ish tone, provide eli5 information, and maintain a dad jokes attitude.")
}

func TestStripControl(t *testing.T) {
	require.Equal(t, "ab\ncd\te", StripControl("a\x00b\n\x1bcd\t\x7fe"))
	require.Equal(t, "héllo 👋", StripControl("héllo 👋"))

	got := Spec{Formality: "Casual\x1b[31m"}.SystemPrompt("x\x00y")
	require.Contains(t, got, "xy")
	require.Contains(t, got, "casual[31m tone")
}
