package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_CollapsesWhitespace(t *testing.T) {
	in := "Consent   is\trequired.\n\nData  principals\r\nhave rights."
	out := Normalize(in)

	assert.Equal(t, "Consent is required. Data principals have rights.", out)
}

func TestNormalize_StripsControlCharacters(t *testing.T) {
	in := "Personal\x00data\x07must be protected."
	out := Normalize(in)

	assert.NotContains(t, out, "\x00")
	assert.NotContains(t, out, "\x07")
	assert.Contains(t, out, "Personal data")
}

func TestNormalize_PreservesPunctuation(t *testing.T) {
	in := "Is consent required? Yes! See section 7(1), clause [a]: \"explicit\" opt-in."
	out := Normalize(in)

	assert.Equal(t, in, out)
}

func TestNormalize_Idempotent(t *testing.T) {
	in := "  DPDP   Act, 2023 &  an overview!  "
	once := Normalize(in)
	twice := Normalize(once)

	assert.Equal(t, once, twice)
}

func TestFromMarkdown_FlattensStructure(t *testing.T) {
	source := []byte(`# DPDP Act

Personal data must be **protected**.

- Consent is required.
- Notice must be given.

` + "```\nprocess(data)\n```\n")

	out, err := FromMarkdown(source)
	require.NoError(t, err)

	assert.Contains(t, out, "DPDP Act")
	assert.Contains(t, out, "Personal data must be protected.")
	assert.Contains(t, out, "Consent is required.")
	assert.Contains(t, out, "process(data)")
	assert.NotContains(t, out, "#")
	assert.NotContains(t, out, "**")
}

func TestFromMarkdown_SoftBreaksBecomeSpaces(t *testing.T) {
	source := []byte("first line\nsecond line\n")

	out, err := FromMarkdown(source)
	require.NoError(t, err)

	assert.True(t, strings.Contains(out, "first line second line"), "got %q", out)
}
