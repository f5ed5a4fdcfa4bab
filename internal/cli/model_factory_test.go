package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/aretw0/keel/internal/logging"
	"github.com/aretw0/keel/pkg/adapters/file"
	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetermineEntryPoint(t *testing.T) {
	// Helper to create a temp dir with specific files
	createDir := func(t *testing.T, files []string) string {
		dir := t.TempDir()
		for _, f := range files {
			err := os.WriteFile(filepath.Join(dir, f), []byte("ops: []"), 0644)
			require.NoError(t, err)
		}
		return dir
	}

	t.Run("Default to main if exists", func(t *testing.T) {
		dir := createDir(t, []string{"main.json", "hull.yaml"})
		assert.Equal(t, "main.json", determineEntryPoint(dir))
	})

	t.Run("Fallback to DirectoryName", func(t *testing.T) {
		tmpRoot := t.TempDir()
		modelDir := filepath.Join(tmpRoot, "barge")
		require.NoError(t, os.Mkdir(modelDir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(modelDir, "barge.yml"), []byte("ops: []"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(modelDir, "winch.yaml"), []byte("ops: []"), 0644))

		assert.Equal(t, "barge.yml", determineEntryPoint(modelDir))
	})

	t.Run("Single description", func(t *testing.T) {
		dir := createDir(t, []string{"tug.yaml", "notes.md"})
		assert.Equal(t, "tug.yaml", determineEntryPoint(dir))
	})

	t.Run("Default to main.yaml if nothing matches", func(t *testing.T) {
		dir := createDir(t, []string{"a.yaml", "b.yaml"})
		assert.Equal(t, "main.yaml", determineEntryPoint(dir))
	})
}

func TestOpenModel_InvalidRedisURL(t *testing.T) {
	_, err := openModel(Options{Dir: t.TempDir(), RedisURL: "ftp://nowhere"}, logging.NewNop(), domain.LifecycleHooks{})
	assert.ErrorContains(t, err, "invalid redis url")
}

func TestOpenModel_RedisOverridesSurviveReopen(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	src := file.New(dir)
	require.NoError(t, src.Save("main.yaml", &domain.Description{Ops: []domain.Op{
		{Op: domain.OpCreate, Kind: domain.KindComponent, Name: "rig", Args: map[string]any{"path": "rig.yaml"}},
	}}))
	require.NoError(t, src.Save("rig.yaml", &domain.Description{Ops: []domain.Op{
		{Op: domain.OpCreate, Kind: domain.KindFrame, Name: "deck"},
	}}))
	opts := Options{Dir: dir, RedisURL: "redis://" + mr.Addr()}

	first, err := openModel(opts, logging.NewNop(), domain.LifecycleHooks{})
	require.NoError(t, err)
	deck, err := first.Scene().Resolve("rig/deck")
	require.NoError(t, err)
	require.NoError(t, first.Scene().SetPosition(deck.Handle(), [3]float64{0, 0, 4}))

	second, err := openModel(opts, logging.NewNop(), domain.LifecycleHooks{})
	require.NoError(t, err)
	deck, err = second.Scene().Resolve("rig/deck")
	require.NoError(t, err)
	assert.Equal(t, [3]float64{0, 0, 4}, deck.Data().(*scene.FrameData).Position)
}
