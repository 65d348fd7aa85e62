package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/engine"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/output"
)

func TestSplitSeverities(t *testing.T) {
	assert.Nil(t, splitSeverities(""))
	assert.Equal(t, []string{"critical", "high"}, splitSeverities("critical, high"))
	assert.Equal(t, []string{"low"}, splitSeverities("low,"))
}

func TestCollectCFGFiles_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.json")
	assert.NoError(t, os.WriteFile(path, []byte(`{"functions": {}}`), 0o644))

	files, order, err := collectCFGFiles([]string{path})
	assert.NoError(t, err)
	assert.Equal(t, []string{path}, order)
	assert.Equal(t, []byte(`{"functions": {}}`), files[path])
}

func TestCollectCFGFiles_DirectoryWalk(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"), []byte("{}"), 0o644))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte("{}"), 0o644))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	_, order, err := collectCFGFiles([]string{dir})
	assert.NoError(t, err)
	assert.Len(t, order, 2)
	// Sorted for deterministic analysis order.
	assert.Equal(t, filepath.Join(dir, "a.json"), order[0])
	assert.Equal(t, filepath.Join(dir, "b.json"), order[1])
}

func TestCollectCFGFiles_Missing(t *testing.T) {
	_, _, err := collectCFGFiles([]string{"/does/not/exist.json"})
	assert.Error(t, err)
}

func TestFormatState_Routing(t *testing.T) {
	state := &engine.AnalysisState{FunctionsAnalyzed: 1}
	info := output.ScanInfo{}

	var text bytes.Buffer
	assert.NoError(t, formatState(&text, state, info, output.NewDefaultOptions(), "text"))
	assert.Contains(t, text.String(), "Dataflow Analysis Report")

	var jsonBuf bytes.Buffer
	assert.NoError(t, formatState(&jsonBuf, state, info, output.NewDefaultOptions(), "json"))
	assert.Contains(t, jsonBuf.String(), "\"tool\"")

	var sarifBuf bytes.Buffer
	assert.NoError(t, formatState(&sarifBuf, state, info, output.NewDefaultOptions(), "sarif"))
	assert.Contains(t, sarifBuf.String(), "2.1.0")
}
