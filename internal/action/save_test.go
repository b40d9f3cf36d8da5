package action

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oaiharvest/internal/logger"
	"oaiharvest/internal/metadata"
)

func savedRecord(t *testing.T, id string) *metadata.Record {
	t.Helper()

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString("<dc><title>T</title></dc>"))

	return metadata.NewFactory().NewRecord(id, "oai_dc", doc, "Alpha Repo")
}

func TestSave_WritesRecordTree(t *testing.T) {
	root := t.TempDir()
	save := NewSave(root, logger.Discard())

	out, ok := save.Perform([]*metadata.Record{savedRecord(t, "oai:repo:1")})
	require.True(t, ok)
	require.Len(t, out, 1)

	path := filepath.Join(root, "Alpha_Repo", "oai_dc", "oai_repo_1.xml")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<title>T</title>")
}

func TestSave_NoTempFilesLeftBehind(t *testing.T) {
	root := t.TempDir()
	save := NewSave(root, logger.Discard())

	_, ok := save.Perform([]*metadata.Record{savedRecord(t, "a"), savedRecord(t, "b")})
	require.True(t, ok)

	var files []string
	require.NoError(t, filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files = append(files, d.Name())
		}

		return err
	}))

	require.Len(t, files, 2)

	for _, name := range files {
		assert.False(t, strings.HasSuffix(name, ".tmp"), "temp file left behind: %s", name)
	}
}

func TestSave_MissingIdentifierFails(t *testing.T) {
	save := NewSave(t.TempDir(), logger.Discard())

	_, ok := save.Perform([]*metadata.Record{savedRecord(t, "")})
	assert.False(t, ok)
}

func TestSave_Equality(t *testing.T) {
	a := NewSave("out", logger.Discard())
	b := NewSave("out", logger.Discard())
	c := NewSave("elsewhere", logger.Discard())

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, "save", a.String())
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "oai_repo_1", Sanitize("oai:repo:1"))
	assert.Equal(t, "a_b_c", Sanitize("a/b\\c"))
}
