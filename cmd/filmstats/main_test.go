package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/filmstats/internal/app"
)

const page = `<html><body><table class="wikitable">
<tr><th>Rank</th><th>Peak</th><th>Title</th><th>Worldwide gross</th><th>Year</th></tr>
<tr><td>1</td><td>1</td><td>Avatar</td><td>$2,923,706,026</td><td>2009</td></tr>
<tr><td>2</td><td>2</td><td>Titanic</td><td>$2,264,812,968</td><td>1997</td></tr>
</table></body></html>`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, app.VersionString()+"\n", out)
}

func TestAnalyzeHTML_WritesResult(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, app.PageFile), []byte(page), 0o644))

	out, err := execute(t, "analyze", "html", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Titanic")

	b, err := os.ReadFile(filepath.Join(dir, app.ResultFile))
	require.NoError(t, err)
	var arr []any
	require.NoError(t, json.Unmarshal(b, &arr))
	require.Len(t, arr, 4)
	assert.Equal(t, 1.0, arr[0])
	assert.Equal(t, "Titanic", arr[1])
}

func TestAnalyzeCSV_DegradedRunExitsCleanly(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "analyze", "csv", dir)
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(dir, app.ResultFile))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), "Analysis failed: FileNotFound - "), string(b))
}

func TestAnalyze_ConfigFileApplies(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, app.PageFile), []byte(page), 0o644))
	cfgPath := filepath.Join(t.TempDir(), "filmstats.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("analysis:\n  countBeforeYear: 2010\n"), 0o644))

	_, err := execute(t, "--config", cfgPath, "analyze", "html", dir)
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dir, app.ResultFile))
	require.NoError(t, err)
	var arr []any
	require.NoError(t, json.Unmarshal(b, &arr))
	assert.Equal(t, 2.0, arr[0])
}

func TestAnalyze_RequiresJobDir(t *testing.T) {
	_, err := execute(t, "analyze", "html")
	assert.Error(t, err)
}

func TestAnalyze_BadConfigFileFails(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "analyze", "html", t.TempDir())
	assert.Error(t, err)
}
