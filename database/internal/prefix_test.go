package internal_test

import (
	"testing"

	"github.com/sagarc03/rookery"
	"github.com/sagarc03/rookery/database/internal"
	"github.com/stretchr/testify/assert"
)

func TestEscapeLikePattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "plain/path", want: "plain/path"},
		{in: "100%", want: `100\%`},
		{in: "snake_case", want: `snake\_case`},
		{in: `back\slash`, want: `back\\slash`},
		{in: `%_\`, want: `\%\_\\`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, internal.EscapeLikePattern(tt.in))
		})
	}
}

func TestDescendantPattern(t *testing.T) {
	assert.Equal(t, `my\_dir/%`, internal.DescendantPattern(rookery.MustParsePath("my_dir")))
}

func TestDescendantPrefix(t *testing.T) {
	prefix, n := internal.DescendantPrefix(rookery.MustParsePath("café/x"))
	assert.Equal(t, "café/x/", prefix)
	assert.Equal(t, 7, n)
}

func TestRebaseOffset(t *testing.T) {
	assert.Equal(t, 6, internal.RebaseOffset(rookery.MustParsePath("café")))
	assert.Equal(t, 4, internal.RebaseOffset(rookery.MustParsePath("a/b")))
}
