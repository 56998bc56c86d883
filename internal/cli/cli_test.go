package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	var stdout, stderr bytes.Buffer
	opts, users, err := Parse([]string{"alice", " ", "bob"}, &stdout, &stderr)
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "bob"}, users)
	assert.Equal(t, 10*time.Second, opts.Timeout)
	assert.Zero(t, opts.Deadline)
	assert.Equal(t, 32, opts.Concurrency)
	assert.Zero(t, opts.MaxConnsPerHost)
	assert.Equal(t, []string{"csv"}, opts.Formats)
	assert.Equal(t, "results", opts.ResultsDir)
	assert.Empty(t, opts.DataFile)
	assert.False(t, opts.Verbose)
}

func TestParseFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer
	opts, users, err := Parse([]string{
		"--no-color", "--timeout", "3", "--deadline", "30", "--concurrency", "4",
		"--max-conns-per-host", "6", "--rate", "2", "--format", "csv,xlsx", "--sites", "GitHub, Reddit",
		"--catalog", "data.json", "-t", "carol",
	}, &stdout, &stderr)
	require.NoError(t, err)

	assert.Equal(t, []string{"carol"}, users)
	assert.True(t, opts.NoColor)
	assert.True(t, opts.WithTor)
	assert.Equal(t, 3*time.Second, opts.Timeout)
	assert.Equal(t, 30*time.Second, opts.Deadline)
	assert.Equal(t, 4, opts.Concurrency)
	assert.Equal(t, 6, opts.MaxConnsPerHost)
	assert.Equal(t, 2.0, opts.Rate)
	assert.Equal(t, []string{"csv", "xlsx"}, opts.Formats)
	assert.Equal(t, []string{"GitHub", "Reddit"}, opts.Sites)
	assert.Equal(t, "data.json", opts.DataFile)
	assert.True(t, opts.Verbose, "--sites implies verbose")
}

func TestParseInvalidTimeoutFallsBack(t *testing.T) {
	var stdout, stderr bytes.Buffer
	opts, _, err := Parse([]string{"--no-color", "--timeout", "0", "alice"}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, opts.Timeout)
	assert.Contains(t, stdout.String(), "Invalid timeout value")
}

func TestParseRejectsUnknownFormat(t *testing.T) {
	var stdout, stderr bytes.Buffer
	_, _, err := Parse([]string{"--format", "pdf", "alice"}, &stdout, &stderr)
	assert.Error(t, err)
}

func TestParseHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	_, _, err := Parse([]string{"-h"}, &stdout, &stderr)
	assert.True(t, errors.Is(err, ErrHelp))
	assert.Contains(t, stdout.String(), "usercheck [flags] USERNAME")
}

func TestParseConfigFileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usercheck.yml")
	require.NoError(t, os.WriteFile(path, []byte("concurrency: 5\ntimeout: 20\nmax_conns_per_host: 3\n"), 0o600))

	var stdout, stderr bytes.Buffer
	opts, _, err := Parse([]string{"--config", path, "--timeout", "2", "alice"}, &stdout, &stderr)
	require.NoError(t, err)

	assert.Equal(t, path, opts.ConfigFile)
	assert.Equal(t, 5, opts.Concurrency)
	assert.Equal(t, 3, opts.MaxConnsPerHost)
	assert.Equal(t, 2*time.Second, opts.Timeout)
}
