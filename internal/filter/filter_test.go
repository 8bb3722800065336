package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldProcess(t *testing.T) {
	names := []string{"index.js", "named-chunk-foo.js", "named-chunk-bar.js"}

	testCases := []struct {
		name    string
		include []string
		exclude []string
		want    []bool
	}{
		{"no patterns", nil, nil, []bool{true, true, true}},
		{"include", []string{"(index|bar)"}, nil, []bool{true, false, true}},
		{"exclude", nil, []string{"bar"}, []bool{true, true, false}},
		{"exclude wins over include", []string{"chunk"}, []string{"bar"}, []bool{false, true, false}},
		{"include list", []string{"^index", "foo"}, nil, []bool{true, true, false}},
		{"substring semantics", []string{"chunk-b"}, nil, []bool{false, false, true}},
		{"anchored regexp", []string{`\.js$`}, []string{`^named-chunk-foo\.js$`}, []bool{true, false, true}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := New(tc.include, tc.exclude)
			require.NoError(t, err)

			for i, n := range names {
				assert.Equal(t, tc.want[i], f.ShouldProcess(n), n)
			}
		})
	}
}

func TestShouldProcessMatchesLogicalPath(t *testing.T) {
	f, err := New([]string{"^js/"}, nil)
	require.NoError(t, err)

	assert.True(t, f.ShouldProcess("js/app.js"))
	assert.False(t, f.ShouldProcess("/var/build/js/app.js"))
}

func TestNewRejectsBadPatterns(t *testing.T) {
	testCases := []struct {
		name    string
		include []string
		exclude []string
		field   string
	}{
		{"unbalanced include", []string{"(index"}, nil, "include"},
		{"empty exclude", nil, []string{" "}, "exclude"},
		{"bad exclude after good include", []string{"ok"}, []string{"[z-a]"}, "exclude"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := New(tc.include, tc.exclude)
			assert.Nil(t, f)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrFilterConfig)

			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tc.field, cerr.Field)
		})
	}
}

func TestNilFilterAcceptsEverything(t *testing.T) {
	var f *Filter
	assert.True(t, f.ShouldProcess("anything.js"))
}
