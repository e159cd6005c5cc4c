package filetransport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRangeFull(t *testing.T) {
	r, ok := ParseRange("bytes=0-99")
	assert.True(t, ok)
	assert.Equal(t, FullRange(0, 99), r)
}

func TestParseRangeSuffix(t *testing.T) {
	r, ok := ParseRange("bytes=-500")
	assert.True(t, ok)
	assert.Equal(t, FromEnd(500), r)
}

func TestParseRangeFromStart(t *testing.T) {
	r, ok := ParseRange("bytes=200-")
	assert.True(t, ok)
	assert.Equal(t, FromStart(200), r)
}

func TestParseRangeInvalid(t *testing.T) {
	cases := []string{
		"",
		"bytes=",
		"bytes=abc-99",
		"bytes=99-10",
		"bytes=0-1,2-3",
		"items=0-99",
	}
	for _, c := range cases {
		_, ok := ParseRange(c)
		assert.False(t, ok, "expected %q to be rejected", c)
	}
}

func TestRangeResolve(t *testing.T) {
	start, length, ok := FullRange(0, 99).Resolve(1000)
	assert.True(t, ok)
	assert.Equal(t, int64(0), start)
	assert.Equal(t, int64(100), length)

	start, length, ok = FromEnd(10).Resolve(100)
	assert.True(t, ok)
	assert.Equal(t, int64(90), start)
	assert.Equal(t, int64(10), length)

	_, _, ok = FullRange(500, 600).Resolve(100)
	assert.False(t, ok)
}
