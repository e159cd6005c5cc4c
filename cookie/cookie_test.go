package cookie

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBasic(t *testing.T) {
	got := Parse("a=1; b=2; c=3")
	assert.Equal(t, map[string]string{"a": "1", "b": "2", "c": "3"}, got)
}

func TestParseFirstWinsOnDuplicate(t *testing.T) {
	got := Parse("a=first; a=second")
	assert.Equal(t, "first", got["a"])
}

func TestParseSkipsInvalidName(t *testing.T) {
	got := Parse(`bad name=1; good=2`)
	_, hasBad := got["bad name"]
	assert.False(t, hasBad)
	assert.Equal(t, "2", got["good"])
}

func TestParseQuotedValue(t *testing.T) {
	got := Parse(`a="quoted value"`)
	assert.Equal(t, "quoted value", got["a"])
}

func TestParseEmptyHeader(t *testing.T) {
	got := Parse("")
	assert.Empty(t, got)
}
