package pptp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const templateFunction = `Puppet::Parser::Functions::newfunction(:template, :type => :rvalue, :doc => <<-'EOS'
  Evaluate a template and return its value.

  Multiple templates are concatenated.
  EOS
) do |vals|
  vals.collect do |file|
    wrapper = Puppet::Parser::TemplateWrapper.new(self)
    begin
      wrapper.result
    rescue => detail
      raise Puppet::ParseError, "Failed to parse template #{file}: #{detail}"
    end
  end.join("")
end
`

const includeFunction = `Puppet::Parser::Functions::newfunction(:include, :doc => "Evaluate one or more classes.") do |vals|
  vals = [vals] unless vals.is_a?(Array)
  vals.each do |val|
    compiler.evaluate_classes(val, self)
  end
end
`

const modernFunction = `Puppet::Functions.create_function(:'lookup_value') do
  dispatch :lookup do
    param 'String', :key
  end

  def lookup(key)
    key.upcase
  end
end
`

const fileType = `Puppet::Type.newtype(:file) do
  @doc = "Manages files, including their content, ownership, and perms."

  newparam(:path) do
    desc <<-EOT
      The path to the file to manage.  Must be fully qualified.
    EOT
    isnamevar

    validate do |value|
      unless value =~ /^\/|^[a-z]:/i
        fail Puppet::Error, "File paths must be fully qualified, not '#{value}'"
      end
    end
  end

  newparam(:backup) do
    desc "Whether files should be backed up."
    defaultto :puppet
  end

  ensurable do
    desc "Whether the file should exist."
    newvalue(:present)
  end

  newproperty(:owner) do
    desc "The user to whom the file should belong."
  end
end
`

const contentProperty = `module Puppet
  Puppet::Type.type(:file).newproperty(:content) do
    desc "The desired contents of a file, as a string."
  end
end
`

const orphanProperty = `Puppet::Type.type(:nosuch).newproperty(:x) do
end
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// distro lays out a small Puppet distribution and returns its lib/puppet
// directory.
func distro(t *testing.T) string {
	dir := filepath.Join(t.TempDir(), "puppet", "2.7.1", "lib", "puppet")
	writeFile(t, filepath.Join(dir, "parser", "functions", "include.rb"), includeFunction)
	writeFile(t, filepath.Join(dir, "parser", "functions", "template.rb"), templateFunction)
	writeFile(t, filepath.Join(dir, "parser", "functions", "README"), "not ruby")
	writeFile(t, filepath.Join(dir, "type", "file.rb"), fileType)
	writeFile(t, filepath.Join(dir, "type", "file", "content.rb"), contentProperty)
	writeFile(t, filepath.Join(dir, "type", "file", "orphan.rb"), orphanProperty)
	return dir
}

func TestScanFunctions(t *testing.T) {
	s, err := scanSource("template.rb", templateFunction)
	require.NoError(t, err)
	assert.Equal(t, []FunctionInfo{{
		Name:          "template",
		RValue:        true,
		Documentation: "Evaluate a template and return its value.\n\nMultiple templates are concatenated.",
	}}, s.functions())

	s, err = scanSource("include.rb", includeFunction)
	require.NoError(t, err)
	assert.Equal(t, []FunctionInfo{{Name: "include", Documentation: "Evaluate one or more classes."}}, s.functions())

	s, err = scanSource("lookup_value.rb", modernFunction)
	require.NoError(t, err)
	assert.Equal(t, []FunctionInfo{{Name: "lookup_value", RValue: true}}, s.functions())
}

func TestScanTypes(t *testing.T) {
	s, err := scanSource("file.rb", fileType)
	require.NoError(t, err)
	types := s.types(false)
	require.Len(t, types, 1)
	file := types[0]
	assert.Equal(t, "file", file.Name)
	assert.Equal(t, "Manages files, including their content, ownership, and perms.", file.Documentation)
	assert.Equal(t, []Entry{
		{Name: "path", Documentation: "The path to the file to manage.  Must be fully qualified.", Required: true},
		{Name: "backup", Documentation: "Whether files should be backed up."},
	}, file.Parameters)
	assert.Equal(t, []Entry{
		{Name: "ensure", Documentation: "Whether the file should exist."},
		{Name: "owner", Documentation: "The user to whom the file should belong."},
	}, file.Properties)

	// Chained additions are ignored when scanning for declarations.
	s, err = scanSource("content.rb", contentProperty)
	require.NoError(t, err)
	assert.Empty(t, s.types(false))
}

func TestScanTypeProperties(t *testing.T) {
	s, err := scanSource("content.rb", contentProperty)
	require.NoError(t, err)
	assert.Equal(t, []TypeInfo{{
		Name:       "file",
		Properties: []Entry{{Name: "content", Documentation: "The desired contents of a file, as a string."}},
	}}, s.types(true))
}

func TestScanNamevarArgument(t *testing.T) {
	s, err := scanSource("t.rb", "Puppet::Type.newtype(:user, :doc => 'Users.') do\n  newparam :name, :namevar => true do\n  end\nend\n")
	require.NoError(t, err)
	types := s.types(false)
	require.Len(t, types, 1)
	assert.Equal(t, "Users.", types[0].Documentation)
	assert.Equal(t, []Entry{{Name: "name", Required: true}}, types[0].Parameters)
}

func TestSyntaxErrors(t *testing.T) {
	for _, tc := range []struct {
		src     string
		line    int
		message string
	}{
		{"newfunction(:x, :doc => \"abc)\n", 1, "unterminated string"},
		{"def x\n  if y\n    1\n", 2, "missing end"},
		{"x = 1\nend\n", 2, "unexpected end"},
		{"desc <<-EOT\nabc\n", 1, "unterminated heredoc EOT"},
		{"=begin\nabc\n", 1, "unterminated =begin comment"},
		{"x = /abc\n", 1, "unterminated regexp"},
	} {
		_, err := scanSource("bad.rb", tc.src)
		var serr *SyntaxError
		require.True(t, errors.As(err, &serr), "%q: %v", tc.src, err)
		assert.Equal(t, tc.line, serr.Line, tc.src)
		assert.Equal(t, tc.message, serr.Message, tc.src)
		assert.Equal(t, "bad.rb", serr.File)
	}
}

func TestScanAcceptsModifiersAndLoops(t *testing.T) {
	src := `def check(x)
  return if x.nil?
  y = if x then 1 else 2 end
  while x > 0 do
    x -= 1
  end
  x / 2
end
`
	_, err := scanSource("ok.rb", src)
	require.NoError(t, err)
}

func TestScanFileNotFound(t *testing.T) {
	_, err := ScanService{}.FunctionInfo(filepath.Join(t.TempDir(), "nope.rb"))
	require.ErrorIs(t, err, ErrFileNotFound)
}

func TestLoadDistroTarget(t *testing.T) {
	dir := distro(t)
	l := &Loader{Services: ScanService{}}
	target, err := l.LoadDistroTarget(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, "puppet 2.7.1", target.Name)
	assert.Equal(t, "2.7.1", target.Version)
	assert.Equal(t, dir, target.Dir)
	assert.False(t, target.Degraded)

	require.Len(t, target.Functions, 2)
	assert.Equal(t, "include", target.Functions[0].Name)
	require.NotNil(t, target.Function("template"))
	assert.True(t, target.Function("template").RValue)

	file := target.Type("file")
	require.NotNil(t, file)
	require.NotNil(t, file.Parameter("path"))
	assert.True(t, file.Parameter("path").Required)
	var props []string
	for _, p := range file.Properties {
		props = append(props, p.Name)
	}
	assert.Equal(t, []string{"ensure", "owner", "content"}, props)
	assert.Nil(t, target.Type("nosuch"))
}

func TestLoadDistroTargetWithoutServices(t *testing.T) {
	cache := &Cache{Dir: t.TempDir()}
	l := &Loader{Cache: cache}
	target, err := l.LoadDistroTarget(context.Background(), distro(t))
	require.NoError(t, err)
	assert.True(t, target.Degraded)
	assert.Empty(t, target.Functions)
	assert.Empty(t, target.Types)

	entries, err := os.ReadDir(cache.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "degraded targets are not cached")
}

func TestLoadDistroTargetErrors(t *testing.T) {
	l := &Loader{Services: ScanService{}}
	_, err := l.LoadDistroTarget(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, ErrFileNotFound)

	dir := distro(t)
	writeFile(t, filepath.Join(dir, "parser", "functions", "broken.rb"), "newfunction(:broken) do\n")
	_, err = l.LoadDistroTarget(context.Background(), dir)
	var serr *SyntaxError
	require.True(t, errors.As(err, &serr), "%v", err)
	assert.Equal(t, "missing end", serr.Message)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.LoadDistroTarget(ctx, distro(t))
	require.ErrorIs(t, err, context.Canceled)
}

type countingService struct {
	ScanService
	calls int
}

func (s *countingService) FunctionInfo(path string) ([]FunctionInfo, error) {
	s.calls++
	return s.ScanService.FunctionInfo(path)
}

func TestCache(t *testing.T) {
	dir := distro(t)
	svc := &countingService{}
	l := &Loader{Services: svc, Cache: &Cache{Dir: t.TempDir()}}

	first, err := l.LoadDistroTarget(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, svc.calls)

	second, err := l.LoadDistroTarget(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, svc.calls, "second load is served from the cache")
	assert.Equal(t, first, second)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "parser", "functions", "include.rb"), later, later))
	_, err = l.Cache.Load(dir)
	require.ErrorIs(t, err, ErrStale)

	_, err = l.LoadDistroTarget(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 4, svc.calls)
}
