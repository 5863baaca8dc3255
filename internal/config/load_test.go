package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadNetworks_ReadsAllFilesSorted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.json", `{"slug":"b","rpc_endpoints":[{"url":"http://b","weight":1}]}`)
	writeFile(t, dir, "a.json", `{"slug":"a","rpc_endpoints":[{"url":"http://a","weight":1}]}`)

	networks, err := LoadNetworks(dir)
	require.NoError(t, err)
	require.Len(t, networks, 2)
	assert.Equal(t, "a", networks[0].Slug)
	assert.Equal(t, "b", networks[1].Slug)
}

func TestLoadNetworks_RejectsMissingSlug(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "n.json", `{"rpc_endpoints":[{"url":"http://a","weight":1}]}`)

	_, err := LoadNetworks(dir)
	require.Error(t, err)
}

func TestLoadNetworks_RejectsNoEndpoints(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "n.json", `{"slug":"n"}`)

	_, err := LoadNetworks(dir)
	require.Error(t, err)
}

func TestLoadMonitors_ReadsFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "m.json", `{"name":"m","networks":["n"]}`)

	monitors, err := LoadMonitors(dir)
	require.NoError(t, err)
	require.Len(t, monitors, 1)
	assert.Equal(t, "m", monitors[0].Name)
}

func TestLoadTriggers_SingleFileForm(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "triggers.json", `{
		"slack-ops": {"kind":"slack","slack":{"webhook_url":"https://hooks.example/ops"}}
	}`)

	triggers, err := LoadTriggers(dir)
	require.NoError(t, err)
	require.Len(t, triggers, 1)
	assert.Equal(t, "slack-ops", triggers[0].Name)
}

func TestLoadTriggers_PerFileForm(t *testing.T) {
	dir := t.TempDir()
	subdir := filepath.Join(dir, "triggers")
	require.NoError(t, os.MkdirAll(subdir, 0o755))
	writeFile(t, subdir, "ops.json", `{"name":"ops","kind":"slack","slack":{"webhook_url":"https://hooks.example/ops"}}`)

	triggers, err := LoadTriggers(dir)
	require.NoError(t, err)
	require.Len(t, triggers, 1)
	assert.Equal(t, "ops", triggers[0].Name)
}

func TestLoadTriggers_RejectsMultipleSinkKinds(t *testing.T) {
	dir := t.TempDir()
	subdir := filepath.Join(dir, "triggers")
	require.NoError(t, os.MkdirAll(subdir, 0o755))
	writeFile(t, subdir, "bad.json", `{
		"name":"bad",
		"kind":"slack",
		"slack":{"webhook_url":"https://hooks.example/ops"},
		"discord":{"webhook_url":"https://hooks.example/discord"}
	}`)

	_, err := LoadTriggers(dir)
	require.Error(t, err)
}

func TestLoadTriggers_RejectsZeroSinkKinds(t *testing.T) {
	dir := t.TempDir()
	subdir := filepath.Join(dir, "triggers")
	require.NoError(t, os.MkdirAll(subdir, 0o755))
	writeFile(t, subdir, "bad.json", `{"name":"bad","kind":"slack"}`)

	_, err := LoadTriggers(dir)
	require.Error(t, err)
}
