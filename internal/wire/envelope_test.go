package wire

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeParseRoundTrip(t *testing.T) {
	e := Envelope{
		OutPath:    "/tmp/headlesh_out_1",
		ErrPath:    "/tmp/headlesh_err_1",
		StatusPath: "/tmp/headlesh_status_1",
		Script:     []byte("echo hi\n"),
	}
	parsed, err := Parse(Encode(e))
	require.NoError(t, err)
	assert.Equal(t, e, parsed)
}

func TestParseScriptContainingNewlines(t *testing.T) {
	e := Envelope{
		OutPath:    "/a",
		ErrPath:    "/b",
		StatusPath: "/c",
		Script:     []byte("line one\nline two\n\x00binary"),
	}
	parsed, err := Parse(Encode(e))
	require.NoError(t, err)
	assert.Equal(t, e.Script, parsed.Script)
}

func TestParseMissingSeparator(t *testing.T) {
	_, err := Parse([]byte("/a\n/b\nno-third-field"))
	require.Error(t, err)
	var malformed *ErrMalformed
	assert.ErrorAs(t, err, &malformed)
}

func TestParsePathFieldTooLong(t *testing.T) {
	raw := strings.Repeat("x", PathFieldMax+1) + "\n/b\n/c\nscript"
	_, err := Parse([]byte(raw))
	require.Error(t, err)
}

func TestIsExitSentinel(t *testing.T) {
	assert.True(t, IsExitSentinel([]byte(ExitSentinel)))
	assert.False(t, IsExitSentinel([]byte(ExitSentinel+" ")))
	assert.False(t, IsExitSentinel([]byte("echo hi")))
}

func TestMaxScriptLen(t *testing.T) {
	got := MaxScriptLen(10, 10, 10)
	assert.Equal(t, EnvelopeMax-10-10-10-3, got)
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, ValidatePath("/tmp/headlesh_out_1"))
	assert.Error(t, ValidatePath(""))
	assert.Error(t, ValidatePath("relative/path"))
	assert.Error(t, ValidatePath("/has\x00null"))
	assert.Error(t, ValidatePath("/"+strings.Repeat("x", PathFieldMax)))
}
