package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"pagecraft/internal/config"
	"pagecraft/internal/domain"
	"pagecraft/internal/export"
	"pagecraft/internal/service"
	"pagecraft/internal/storage"
	"pagecraft/internal/store"
)

// isolate points HOME, the working directory and the database at a fresh
// temp dir so no real config or data is touched.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("PAGECRAFT_STORAGE_PATH", filepath.Join(dir, "data", "pagecraft.db"))
	t.Chdir(dir)
	return dir
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := New().RootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func rect(x, y, w, h float64) domain.Element {
	return domain.Element{X: x, Y: y, Width: w, Height: h, Style: domain.DefaultStyle(), Constraints: domain.DefaultConstraints()}
}

// projectJSON builds a header and a body section, plus extra boxes.
func projectJSON(t *testing.T, extra ...domain.Element) []byte {
	t.Helper()
	s := service.NewSession(nil)
	s.Add(rect(0, 0, 1440, 80), "")
	s.Add(rect(0, 80, 1440, 600), "")
	for _, e := range extra {
		s.Add(e, "")
	}
	data, err := s.ToJSON()
	require.NoError(t, err)
	return data
}

func writeProject(t *testing.T, path string, extra ...domain.Element) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, projectJSON(t, extra...), 0644))
}

func zipNames(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

var archiveFiles = []string{export.IndexFile, export.StyleFile, export.ScriptFile, export.ReadmeFile}

func TestSetVersion(t *testing.T) {
	t.Cleanup(func() { SetVersion("dev", "", "") })
	isolate(t)

	SetVersion("1.2.3", "abc123", "2026-01-02")
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "pagecraft 1.2.3")
	assert.Contains(t, out, "commit: abc123")
	assert.Contains(t, out, "built:  2026-01-02")

	out, err = executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3\n", out)
}

func TestExportCommand(t *testing.T) {
	dir := isolate(t)
	writeProject(t, "landing.json")

	out, err := executeCommand(t, "export", "landing.json", "-o", filepath.Join(dir, "out", "site.zip"), "--title", "Demo")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", "site.zip"), strings.TrimSpace(out))
	assert.Equal(t, archiveFiles, zipNames(t, filepath.Join(dir, "out", "site.zip")))

	out, err = executeCommand(t, "export", "landing.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("dist", "landing.zip"), strings.TrimSpace(out))

	first, err := os.ReadFile(filepath.Join("dist", "landing.zip"))
	require.NoError(t, err)
	_, err = executeCommand(t, "export", "landing.json")
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join("dist", "landing.zip"))
	require.NoError(t, err)
	assert.Equal(t, first, second, "archives are reproducible")
}

func TestExportCommand_Errors(t *testing.T) {
	isolate(t)

	_, err := executeCommand(t, "export")
	assert.Error(t, err)

	_, err = executeCommand(t, "export", "missing.json")
	assert.ErrorContains(t, err, "read project")

	require.NoError(t, os.WriteFile("bad.json", []byte(`{"version":7}`), 0644))
	_, err = executeCommand(t, "export", "bad.json")
	assert.ErrorIs(t, err, store.ErrUnsupportedVersion)
}

func TestAnalyzeCommand(t *testing.T) {
	isolate(t)
	writeProject(t, "landing.json")

	out, err := executeCommand(t, "analyze", "landing.json", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "role: header")

	out, err = executeCommand(t, "analyze", "landing.json")
	require.NoError(t, err)
	var tree []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &tree))
	assert.Len(t, tree, 2)

	_, err = executeCommand(t, "analyze", "landing.json", "-f", "toml")
	assert.ErrorContains(t, err, "unknown summary format")

	_, err = executeCommand(t, "analyze", "landing.json", "--write")
	require.NoError(t, err)
	data, err := os.ReadFile("landing.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"role": "header"`)
}

func TestValidateCommand(t *testing.T) {
	isolate(t)
	writeProject(t, "good.json")
	require.NoError(t, os.WriteFile("broken.json", []byte(`{"version":1,"elements":[],"rootIds":["ghost"]}`), 0644))

	out, err := executeCommand(t, "validate", "good.json")
	require.NoError(t, err)
	assert.Equal(t, "good.json: ok (2 elements)\n", out)

	out, err = executeCommand(t, "validate", "good.json", "broken.json")
	assert.ErrorContains(t, err, "1 of 2 project files are invalid")
	assert.Contains(t, out, "broken.json: ")
}

func TestConfigFlag(t *testing.T) {
	isolate(t)
	writeProject(t, "landing.json")

	_, err := executeCommand(t, "-c", "missing.yaml", "validate", "landing.json")
	assert.Error(t, err)

	require.NoError(t, os.WriteFile("custom.yaml", []byte("export:\n  output_dir: site\n"), 0644))
	out, err := executeCommand(t, "-c", "custom.yaml", "export", "landing.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("site", "landing.zip"), strings.TrimSpace(out))

	require.NoError(t, os.WriteFile("invalid.yaml", []byte("editor:\n  grid_size: 0\n"), 0644))
	_, err = executeCommand(t, "-c", "invalid.yaml", "validate", "landing.json")
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestRunWatch_ReexportsAndRecordsRevisions(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "landing.json")
	archive := filepath.Join(dir, "dist", "landing.zip")
	writeProject(t, input)

	cfg := config.NewDefaultConfig()
	cfg.Storage.Path = filepath.Join(dir, "pagecraft.db")
	cfg.Export.OutputDir = filepath.Join(dir, "dist")
	cfg.Autosave.Schedule = "@every 1s"
	c := &CLI{Config: cfg, Logger: zaptest.NewLogger(t)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.runWatch(ctx, watchOptions{
			export:   service.FileExport{Input: input, Analyze: true},
			project:  "Landing",
			debounce: 20 * time.Millisecond,
		}, io.Discard)
	}()

	var initial []byte
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(archive)
		initial = data
		return err == nil && len(data) > 0
	}, 5*time.Second, 20*time.Millisecond, "initial export")

	changed := projectJSON(t, rect(40, 700, 300, 200))
	require.Eventually(t, func() bool {
		_ = os.WriteFile(input, changed, 0644)
		data, err := os.ReadFile(archive)
		return err == nil && !bytes.Equal(data, initial)
	}, 5*time.Second, 100*time.Millisecond, "re-export after change")

	// Let the last rewrite settle before shutting down.
	time.Sleep(200 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}

	db, err := storage.New(cfg.Storage.Path)
	require.NoError(t, err)
	defer db.Close()
	p, err := storage.NewProjectStore(db).FindByName("Landing")
	require.NoError(t, err)
	assert.Equal(t, 3, p.ElementCount)
	assert.Equal(t, archiveFiles, zipNames(t, archive))
}

func TestRunWatch_InvalidInputFailsFast(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(input, []byte(`not json`), 0644))

	cfg := config.NewDefaultConfig()
	cfg.Export.OutputDir = filepath.Join(dir, "dist")
	c := &CLI{Config: cfg, Logger: zaptest.NewLogger(t)}

	err := c.runWatch(context.Background(), watchOptions{export: service.FileExport{Input: input}}, io.Discard)
	assert.ErrorIs(t, err, store.ErrInvalidProject)
}
