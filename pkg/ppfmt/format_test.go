package ppfmt

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dagger/testctx"
	"github.com/dagger/testctx/oteltest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"

	"github.com/aureatesting/geppetto/pkg/layout"
	"github.com/aureatesting/geppetto/pkg/pp"
)

func TestMain(m *testing.M) {
	os.Exit(oteltest.Main(m))
}

type FormatSuite struct{}

func TestFormat(tT *testing.T) {
	testctx.New(tT,
		oteltest.WithTracing[*testing.T](),
		oteltest.WithLogging[*testing.T](),
	).RunTests(FormatSuite{})
}

func (FormatSuite) TestStatements(ctx context.Context, t *testctx.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "collapses runs of blank lines",
			input:    "$x = 1\n\n\n\n$y = 2\n",
			expected: "$x = 1\n\n$y = 2\n",
		},
		{
			name:     "canonical spacing",
			input:    "$x=[1,2 ,3]",
			expected: "$x = [1, 2, 3]\n",
		},
		{
			name:     "calls hug their parentheses",
			input:    "notice('a',  'b')",
			expected: "notice('a', 'b')\n",
		},
		{
			name:     "access hugs its brackets",
			input:    "$facts['os']['family']\n",
			expected: "$facts['os']['family']\n",
		},
		{
			name:     "empty block closes up",
			input:    "class foo {\n}\n",
			expected: "class foo {}\n",
		},
		{
			name:     "block statements are indented",
			input:    "if $x { $y = 1 $z = 2 }",
			expected: "if $x {\n  $y = 1\n  $z = 2\n}\n",
		},
		{
			name:     "trailing comment stays on its line",
			input:    "$x = 1 # one\n$y = 2\n",
			expected: "$x = 1 # one\n$y = 2\n",
		},
		{
			name:     "selector",
			input:    "$y = $x ? {true=>1,default=>- 2}",
			expected: "$y = $x ? { true => 1, default => -2 }\n",
		},
		{
			name:     "relationship",
			input:    "Package['a']->Service['a']",
			expected: "Package['a'] -> Service['a']\n",
		},
		{
			name:     "unless",
			input:    "unless $z in [1,2] { fail('no') }",
			expected: "unless $z in [1, 2] {\n  fail('no')\n}\n",
		},
		{
			name:     "empty input",
			input:    "\n\n",
			expected: "",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(ctx context.Context, t *testctx.T) {
			res, err := Source("test.pp", test.input, Options{})
			require.NoError(t, err)
			require.Equal(t, test.expected, res.Formatted)
			require.Equal(t, test.input != test.expected, res.Changed)
		})
	}
}

func (FormatSuite) TestListFitsOnOneLine(ctx context.Context, t *testctx.T) {
	res, err := Fragment(pp.DefinitionArgumentList, "(a,b,c)", Options{Config: Config{MaxWidth: 80}})
	require.NoError(t, err)
	require.Equal(t, "(a, b, c)\n", res.Formatted)
}

func (FormatSuite) TestListBreaksAndAligns(ctx context.Context, t *testctx.T) {
	res, err := Fragment(pp.DefinitionArgumentList, "(alpha=1, b=2, longname=3)", Options{Config: Config{MaxWidth: 20}})
	require.NoError(t, err)
	require.Equal(t, "(\n  alpha    = 1,\n  b        = 2,\n  longname = 3)\n", res.Formatted)
	require.Empty(t, res.Issues)
}

func (FormatSuite) TestAlignmentClusters(ctx context.Context, t *testctx.T) {
	src := "(ab=1, abc=2, abcdefghijklmnopqrst=3)"

	// Clusters only compare against their current maximum, so with a
	// dispersion of 20 the widths 2, 3 and 20 all end up in one cluster.
	res, err := Fragment(pp.DefinitionArgumentList, src, Options{Config: Config{MaxWidth: 20, ClusterDispersion: 20}})
	require.NoError(t, err)
	require.Equal(t, "(\n  ab                   = 1,\n  abc                  = 2,\n  abcdefghijklmnopqrst = 3)\n", res.Formatted)

	res, err = Fragment(pp.DefinitionArgumentList, src, Options{Config: Config{MaxWidth: 20, ClusterDispersion: 10}})
	require.NoError(t, err)
	require.Equal(t, "(\n  ab  = 1,\n  abc = 2,\n  abcdefghijklmnopqrst = 3)\n", res.Formatted)
}

func (FormatSuite) TestDeeplyNestedArrays(ctx context.Context, t *testctx.T) {
	for _, depth := range []int{10, 22, 40} {
		src := "$x = " + strings.Repeat("[", depth) + "1" + strings.Repeat("]", depth) + "\n"
		start := time.Now()
		res, err := Source("nested.pp", src, Options{})
		require.NoError(t, err)
		require.Less(t, time.Since(start), 5*time.Second, "depth %d", depth)
		require.Empty(t, res.Issues)

		again, err := Source("nested.pp", res.Formatted, Options{})
		require.NoError(t, err)
		require.Equal(t, res.Formatted, again.Formatted, "depth %d", depth)
	}
}

func (FormatSuite) TestGolden(ctx context.Context, t *testctx.T) {
	opts := Options{Config: Config{MaxWidth: 40}}
	res, err := FormatFile(filepath.Join("testdata", "messy.pp"), opts)
	require.NoError(t, err)
	require.True(t, res.Changed)
	golden.Assert(t, res.Formatted, "messy.golden")

	again, err := Source("messy.golden", res.Formatted, opts)
	require.NoError(t, err)
	require.Equal(t, res.Formatted, again.Formatted)
	require.False(t, again.Changed)
}

func (FormatSuite) TestRegion(ctx context.Context, t *testctx.T) {
	res, err := Source("test.pp", "$a=1\n$b=2\n", Options{Region: &layout.Region{Offset: 0, Length: 4}})
	require.NoError(t, err)
	require.Equal(t, "$a = 1\n$b=2\n", res.Formatted)
}

func (FormatSuite) TestPreserveWhitespace(ctx context.Context, t *testctx.T) {
	res, err := Source("test.pp", "$a   =  1\n", Options{Config: Config{PreserveWhitespace: true}})
	require.NoError(t, err)
	require.Equal(t, "$a   =  1\n", res.Formatted)
	require.False(t, res.Changed)
}

func (FormatSuite) TestLineSeparator(ctx context.Context, t *testctx.T) {
	res, err := Source("test.pp", "$x = 1\n$y = 2", Options{Config: Config{LineSeparator: "\r\n"}})
	require.NoError(t, err)
	require.Equal(t, "$x = 1\r\n$y = 2\r\n", res.Formatted)
}

func (FormatSuite) TestSyntaxError(ctx context.Context, t *testctx.T) {
	_, err := Source("bad.pp", "class {", Options{})
	require.Error(t, err)
	var serr *pp.SyntaxError
	require.True(t, errors.As(err, &serr))
	require.Equal(t, 1, serr.Line)
}

func (FormatSuite) TestFormatFiles(ctx context.Context, t *testctx.T) {
	dir := t.TempDir()
	clean := filepath.Join(dir, "a.pp")
	dirty := filepath.Join(dir, "sub", "b.pp")
	require.NoError(t, os.MkdirAll(filepath.Dir(dirty), 0755))
	require.NoError(t, os.WriteFile(clean, []byte("$x = 1\n"), 0644))
	require.NoError(t, os.WriteFile(dirty, []byte("$x=1"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("hi"), 0644))

	paths, err := Expand([]string{dir})
	require.NoError(t, err)
	require.Equal(t, []string{clean, dirty}, paths)

	results, err := FormatFiles(ctx, paths, Options{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, clean, results[0].Name)
	assert.False(t, results[0].Changed)
	assert.Equal(t, dirty, results[1].Name)
	assert.True(t, results[1].Changed)
	assert.Equal(t, "$x = 1\n", results[1].Formatted)

	_, err = FormatFiles(ctx, []string{filepath.Join(dir, "missing.pp")}, Options{})
	require.Error(t, err)
}
