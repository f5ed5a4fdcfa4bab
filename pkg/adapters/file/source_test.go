package file_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/keel/pkg/adapters/file"
	"github.com/aretw0/keel/pkg/domain"
	contract "github.com/aretw0/keel/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hullYAML = `format: 1.0.0
ops:
  - op: create
    kind: frame
    name: deck
    args:
      position: [0, 0, 2]
  - op: create
    kind: point
    name: bow
    parent: deck
`

const mastJSON = `{"format": "1.0.0", "ops": [{"op": "create", "kind": "frame", "name": "foot"}]}`

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func seeded(t *testing.T) (*file.Source, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "hull.yaml", hullYAML)
	writeFile(t, root, "parts/mast.json", mastJSON)
	writeFile(t, root, "README.md", "not a description")
	return file.New(root), root
}

func TestFileSource_Contract(t *testing.T) {
	src, _ := seeded(t)
	contract.DescriptionSourceContractTest(t, src, map[string]*domain.Description{
		"hull.yaml": {Ops: []domain.Op{
			{Op: domain.OpCreate, Kind: domain.KindFrame, Name: "deck"},
			{Op: domain.OpCreate, Kind: domain.KindPoint, Name: "bow"},
		}},
		"parts/mast.json": {Ops: []domain.Op{{Op: domain.OpCreate, Kind: domain.KindFrame, Name: "foot"}}},
	})
}

func TestFileSource_Fetch(t *testing.T) {
	src, _ := seeded(t)
	desc, err := src.Fetch("hull.yaml")
	require.NoError(t, err)
	assert.Equal(t, "deck", desc.Ops[1].Parent)
	assert.Equal(t, []any{0, 0, 2}, desc.Ops[0].Args["position"])

	_, err = src.Fetch("../escape.yaml")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = src.Fetch("README.md")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestFileSource_SaveRoundTrip(t *testing.T) {
	src, root := seeded(t)
	desc := &domain.Description{
		Format:   domain.FormatVersion,
		Settings: domain.DefaultSettings(),
		Ops:      []domain.Op{{Op: domain.OpCreate, Kind: domain.KindFrame, Name: "keel"}},
	}
	require.NoError(t, src.Save("out/copy.yaml", desc))

	got, err := src.Fetch("out/copy.yaml")
	require.NoError(t, err)
	assert.Equal(t, desc.Settings, got.Settings)
	assert.Equal(t, "keel", got.Ops[0].Name)

	entries, err := os.ReadDir(filepath.Join(root, "out"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")

	paths, err := src.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"hull.yaml", "out/copy.yaml", "parts/mast.json"}, paths)
}

func TestFileSource_ListMissingRoot(t *testing.T) {
	src := file.New(filepath.Join(t.TempDir(), "absent"))
	paths, err := src.List()
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestFileSource_Watch(t *testing.T) {
	src, root := seeded(t)
	src = file.New(root, file.WithDebounce(20*time.Millisecond))
	ch, err := src.Watch(t.Context())
	require.NoError(t, err)

	writeFile(t, root, "parts/mast.json", mastJSON)
	writeFile(t, root, "parts/mast.json", mastJSON)

	select {
	case path := <-ch:
		assert.Equal(t, "parts/mast.json", path)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for change notification")
	}
}
