package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midbel/xform/output"
)

const sampleConfig = `
mode = "summary"
strict = true
trace = "stderr"
log-level = "debug"

[output]
method = "html"
indent = true
cdata-section-elements = ["script"]

[params]
title = "report"
limit = 10
`

func TestLoadConfig(t *testing.T) {
	file := filepath.Join(t.TempDir(), "xform.toml")
	require.NoError(t, os.WriteFile(file, []byte(sampleConfig), 0o644))

	cfg, err := loadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, "summary", cfg.Mode)
	assert.True(t, cfg.Strict)
	assert.Equal(t, "report", cfg.Params["title"])
	assert.EqualValues(t, 10, cfg.Params["limit"])

	out, err := cfg.Output.Declaration()
	require.NoError(t, err)
	assert.Equal(t, output.MethodHTML, out.Method)
	assert.True(t, out.Indent)
	require.Len(t, out.CDataElements, 1)
	assert.Equal(t, "script", out.CDataElements[0].Name)

	options, err := cfg.Options(Params{"title": "override"})
	require.NoError(t, err)
	assert.Len(t, options, 7)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	unknown := filepath.Join(dir, "unknown.toml")
	require.NoError(t, os.WriteFile(unknown, []byte("verbose = true\n"), 0o644))
	_, err := loadConfig(unknown)
	assert.Error(t, err)

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Mode)

	_, err = Config{Trace: "file"}.Tracer()
	assert.Error(t, err)

	_, err = OutputConfig{Method: "json"}.Declaration()
	assert.Error(t, err)
}

func TestParams(t *testing.T) {
	params := make(Params)
	require.NoError(t, params.Set("title=hello=world"))
	assert.Equal(t, "hello=world", params["title"])
	assert.Error(t, params.Set("title"))
	assert.Error(t, params.Set("=value"))
}
