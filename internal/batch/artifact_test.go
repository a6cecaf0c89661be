package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackcheck/seedimport/internal/seed"
)

func TestWriteArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sql-mapped")

	g, err := NewGenerator(500)
	require.NoError(t, err)

	batches, err := g.Generate(&seed.Dataset{
		Supplements:  []seed.SupplementRecord{{ID: "1", Name: "Zinc", Category: "Mineral"}},
		Medications:  []seed.MedicationRecord{{ID: "10", Name: "Warfarin", DrugClass: "Anticoagulant"}},
		Interactions: interactions(1200),
	})
	require.NoError(t, err)

	manifest, err := WriteArtifacts(dir, batches, g.BatchSize())
	require.NoError(t, err)

	want := []string{
		"01_supplements.sql",
		"02_medications.sql",
		"03_interactions_batch_01.sql",
		"03_interactions_batch_02.sql",
		"03_interactions_batch_03.sql",
	}
	assert.Equal(t, want, manifest.Files())
	assert.Equal(t, 500, manifest.BatchSize)
	assert.Equal(t, 200, manifest.Artifacts[4].Rows)
	assert.Equal(t, 3, manifest.Artifacts[4].Batch)

	for i, name := range want {
		content, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, batches[i].SQL(), string(content))
	}

	read, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, manifest.Artifacts, read.Artifacts)

	list, err := ArtifactList(dir)
	require.NoError(t, err)
	assert.Equal(t, want, list)
}

func TestArtifactList_WithoutManifest(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{
		"03_interactions_batch_02.sql",
		"01_supplements.sql",
		"03_interactions_batch_01.sql",
		"02_medications.sql",
		"99_verify_counts.sql",
		"notes.txt",
		"scratch.sql",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600))
	}

	list, err := ArtifactList(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"01_supplements.sql",
		"02_medications.sql",
		"03_interactions_batch_01.sql",
		"03_interactions_batch_02.sql",
		"99_verify_counts.sql",
	}, list)
}

func TestArtifactList_WithoutManifestOrdersBatchesNumerically(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{
		"03_interactions_batch_100.sql",
		"03_interactions_batch_11.sql",
		"02_medications.sql",
		"03_interactions_batch_02.sql",
		"03_interactions_batch_99.sql",
		"01_supplements.sql",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600))
	}

	list, err := ArtifactList(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"01_supplements.sql",
		"02_medications.sql",
		"03_interactions_batch_02.sql",
		"03_interactions_batch_11.sql",
		"03_interactions_batch_99.sql",
		"03_interactions_batch_100.sql",
	}, list)
}

func TestArtifactList_Empty(t *testing.T) {
	_, err := ArtifactList(t.TempDir())
	assert.ErrorIs(t, err, ErrNoArtifacts)
}

func TestArtifactList_InvalidManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte("artifacts: [unterminated"), 0o600))

	_, err := ArtifactList(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse manifest")
}

func TestConfig(t *testing.T) {
	t.Setenv("SEED_DATA_DIR", "/data/seed")
	t.Setenv("SEED_BATCH_SIZE", "250")
	t.Setenv("SEED_INTERACTIONS_FILE", "/elsewhere/interactions_2500.csv")

	cfg := LoadConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 250, cfg.BatchSize)
	assert.Equal(t, defaultOutputDir, cfg.OutputDir)

	paths := cfg.Paths()
	assert.Equal(t, filepath.Join("/data/seed", defaultSupplementsFile), paths.Supplements)
	assert.Equal(t, "/elsewhere/interactions_2500.csv", paths.Interactions)

	cfg.BatchSize = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidBatchSize)
}
