package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/config"
	"docqa/internal/domain"
)

// resetFlags clears values left over from a previous Execute.
func resetFlags(cmds ...*cobra.Command) {
	for _, c := range cmds {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			if t := f.Value.Type(); t != "stringSlice" && t != "stringArray" {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		})
	}
	ingestExcludes = nil
	benchQueries = nil
	deleteAll, listJSON = false, false
	cfgFile, envFile, rootDir = "", "", ""
}

func offlineConfig(t *testing.T, dir string, withStore bool) string {
	t.Helper()
	c := config.DefaultConfig()
	c.Embedding.Provider = "mock"
	c.Embedding.Dimension = 64
	c.Generation.Provider = "echo"
	c.Chunk.Size = 4
	c.Chunk.Overlap = 1
	c.Logging.Level = "error"
	if withStore {
		c.Store.Path = filepath.Join(dir, "docqa.db")
	}
	path := filepath.Join(dir, "docqa.yaml")
	require.NoError(t, c.Save(path))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd, ingestCmd, askCmd, serveCmd, benchCmd, listCmd, deleteCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAskFileContextOnly(t *testing.T) {
	dir := t.TempDir()
	cfgPath := offlineConfig(t, dir, false)
	doc := filepath.Join(dir, "animals.txt")
	require.NoError(t, os.WriteFile(doc, []byte("A cat sat. A dog ran. A bird flew."), 0o644))

	out, err := run(t, "--config", cfgPath, "ask", "--file", doc, "-q", "cat", "--context-only", "--json", "-k", "2")
	require.NoError(t, err)

	var passages []passageResult
	require.NoError(t, json.Unmarshal([]byte(out), &passages))
	assert.Len(t, passages, 2)
}

func TestAskFileAnswer(t *testing.T) {
	dir := t.TempDir()
	cfgPath := offlineConfig(t, dir, false)
	doc := filepath.Join(dir, "animals.md")
	require.NoError(t, os.WriteFile(doc, []byte("A cat sat. A dog ran. A bird flew."), 0o644))

	out, err := run(t, "--config", cfgPath, "ask", "--file", doc, "-q", "Which animal sat?", "--json")
	require.NoError(t, err)

	var answer domain.Answer
	require.NoError(t, json.Unmarshal([]byte(out), &answer))
	assert.NotEmpty(t, answer.Text)
	assert.Equal(t, 3, answer.FragmentsUsed)
}

func TestIngestThenAskByID(t *testing.T) {
	dir := t.TempDir()
	cfgPath := offlineConfig(t, dir, true)
	docs := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "animals.txt"), []byte("A cat sat. A dog ran. A bird flew."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "plants.md"), []byte("Oak trees grow slowly."), 0o644))

	out, err := run(t, "--config", cfgPath, "ingest", filepath.Join(docs, "*.{txt,md}"), "--quiet")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	fields := strings.Fields(lines[0])
	require.Len(t, fields, 3)
	assert.Equal(t, "animals.txt", fields[1])
	assert.Equal(t, "3", fields[2])

	out, err = run(t, "--config", cfgPath, "ask", "--id", fields[0], "-q", "cat", "--context-only", "--json")
	require.NoError(t, err)
	var passages []passageResult
	require.NoError(t, json.Unmarshal([]byte(out), &passages))
	assert.Len(t, passages, 3)
}

func TestIngestRequiresStore(t *testing.T) {
	dir := t.TempDir()
	cfgPath := offlineConfig(t, dir, false)
	doc := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(doc, []byte("text"), 0o644))

	_, err := run(t, "--config", cfgPath, "ingest", doc, "--quiet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.path")
}

func TestAskUnknownID(t *testing.T) {
	dir := t.TempDir()
	cfgPath := offlineConfig(t, dir, true)

	_, err := run(t, "--config", cfgPath, "ask", "--id", "missing", "-q", "cat", "--context-only")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestBuildEmbedderUnknownProvider(t *testing.T) {
	c := config.DefaultConfig()
	c.Embedding.Provider = "carrier-pigeon"
	_, err := buildEmbedder(c, nil)
	assert.Error(t, err)

	c.Generation.Provider = "carrier-pigeon"
	_, err = buildGenerator(c)
	assert.Error(t, err)
}

func TestDocIDForPathStable(t *testing.T) {
	assert.Equal(t, docIDForPath("/a/b.pdf"), docIDForPath("/a/b.pdf"))
	assert.NotEqual(t, docIDForPath("/a/b.pdf"), docIDForPath("/a/c.pdf"))
	assert.Len(t, docIDForPath("/a/b.pdf"), 16)
}

func TestBench(t *testing.T) {
	dir := t.TempDir()
	cfgPath := offlineConfig(t, dir, false)
	doc := filepath.Join(dir, "animals.txt")
	require.NoError(t, os.WriteFile(doc, []byte("A cat sat. A dog ran. A bird flew."), 0o644))

	out, err := run(t, "--config", cfgPath, "bench", "--file", doc, "-q", "cat sat", "-q", "bird flew", "-k", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Fragments:  3 (size 4, overlap 1)")
	assert.Contains(t, out, `Question: "bird flew"`)
	assert.Contains(t, out, "Average top-1 similarity")
}

func TestRating(t *testing.T) {
	assert.Equal(t, "HIGH", rating(0.9))
	assert.Equal(t, "GOOD", rating(0.6))
	assert.Equal(t, "OK", rating(0.4))
	assert.Equal(t, "LOW", rating(0.1))
}

func TestAskFileLeavesStoreUntouched(t *testing.T) {
	dir := t.TempDir()
	cfgPath := offlineConfig(t, dir, true)
	doc := filepath.Join(dir, "animals.txt")
	require.NoError(t, os.WriteFile(doc, []byte("A cat sat. A dog ran. A bird flew."), 0o644))

	_, err := run(t, "--config", cfgPath, "ask", "--file", doc, "-q", "cat", "--context-only")
	require.NoError(t, err)
	_, err = run(t, "--config", cfgPath, "bench", "--file", doc, "-q", "cat")
	require.NoError(t, err)

	out, err := run(t, "--config", cfgPath, "list")
	require.NoError(t, err)
	assert.Equal(t, "0 documents\n", out)
}

func TestListAndDelete(t *testing.T) {
	dir := t.TempDir()
	cfgPath := offlineConfig(t, dir, true)
	docs := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "animals.txt"), []byte("A cat sat. A dog ran. A bird flew."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "plants.md"), []byte("Oak trees grow slowly."), 0o644))

	_, err := run(t, "--config", cfgPath, "ingest", docs, "--quiet")
	require.NoError(t, err)

	out, err := run(t, "--config", cfgPath, "list", "--json")
	require.NoError(t, err)
	var listed []domain.DocumentInfo
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 2)

	out, err = run(t, "--config", cfgPath, "delete", listed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "deleted "+listed[0].ID+"\n", out)

	_, err = run(t, "--config", cfgPath, "delete", "missing")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	out, err = run(t, "--config", cfgPath, "list")
	require.NoError(t, err)
	assert.Contains(t, out, listed[1].ID)
	assert.Contains(t, out, "1 documents")

	out, err = run(t, "--config", cfgPath, "delete", "--all")
	require.NoError(t, err)
	assert.Equal(t, "deleted 1 documents\n", out)

	_, err = run(t, "--config", cfgPath, "delete")
	assert.Error(t, err)
}
