package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the name of the manifest written next to the SQL artifacts.
const ManifestFile = "manifest.yaml"

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// ErrNoArtifacts is returned when a directory holds neither a manifest nor any SQL artifact.
var ErrNoArtifacts = errors.New("no batch artifacts found")

// artifactPattern matches generated file names: 01_supplements.sql, 03_interactions_batch_07.sql.
var artifactPattern = regexp.MustCompile(`^\d{2}_[a-z0-9_]+\.sql$`)

// artifactParts splits a name into its order prefix, table stem and batch number.
var artifactParts = regexp.MustCompile(`^(\d+)_([a-z0-9_]+?)(?:_batch_(\d+))?\.sql$`)

type (
	// Manifest records the ordered artifacts of one generate run.
	//
	//nolint:tagliatelle // snake_case is intentional for YAML files
	Manifest struct {
		GeneratedAt time.Time       `yaml:"generated_at"`
		BatchSize   int             `yaml:"batch_size"`
		Artifacts   []ManifestEntry `yaml:"artifacts"`
	}

	// ManifestEntry describes one artifact.
	ManifestEntry struct {
		File   string `yaml:"file"`
		Entity Entity `yaml:"entity"`
		Batch  int    `yaml:"batch,omitempty"`
		Rows   int    `yaml:"rows"`
	}
)

// Files returns the artifact names in apply order.
func (m *Manifest) Files() []string {
	files := make([]string, 0, len(m.Artifacts))
	for _, a := range m.Artifacts {
		files = append(files, a.File)
	}

	return files
}

// WriteArtifacts writes one SQL file per batch into dir followed by the manifest.
func WriteArtifacts(dir string, batches []StatementBatch, batchSize int) (*Manifest, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manifest := &Manifest{
		GeneratedAt: time.Now().UTC(),
		BatchSize:   batchSize,
		Artifacts:   make([]ManifestEntry, 0, len(batches)),
	}

	for _, b := range batches {
		path := filepath.Join(dir, b.Name())
		if err := os.WriteFile(path, []byte(b.SQL()), filePerm); err != nil { //nolint:gosec // artifacts are not secret
			return nil, fmt.Errorf("failed to write %s: %w", b.Name(), err)
		}

		manifest.Artifacts = append(manifest.Artifacts, ManifestEntry{
			File:   b.Name(),
			Entity: b.Entity,
			Batch:  b.Index,
			Rows:   b.Len(),
		})
	}

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, filePerm); err != nil { //nolint:gosec
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	return manifest, nil
}

// ReadManifest loads the manifest from dir.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile)) //nolint:gosec // dir is operator configuration
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	return &m, nil
}

// ArtifactList returns the ordered artifact names for dir. The manifest wins
// when present; otherwise generated-looking SQL files are ordered by prefix,
// table and then batch number, so batch_100 runs after batch_99.
func ArtifactList(dir string) ([]string, error) {
	m, err := ReadManifest(dir)
	if err == nil {
		if len(m.Artifacts) == 0 {
			return nil, ErrNoArtifacts
		}

		return m.Files(), nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact directory: %w", err)
	}

	var files []string

	for _, entry := range entries {
		if entry.IsDir() || !artifactPattern.MatchString(entry.Name()) {
			continue
		}

		files = append(files, entry.Name())
	}

	if len(files) == 0 {
		return nil, ErrNoArtifacts
	}

	sort.SliceStable(files, func(i, j int) bool {
		return artifactLess(files[i], files[j])
	})

	return files, nil
}

func artifactLess(a, b string) bool {
	ma, mb := artifactParts.FindStringSubmatch(a), artifactParts.FindStringSubmatch(b)
	if ma == nil || mb == nil {
		return a < b
	}

	if oa, ob := atoiOrZero(ma[1]), atoiOrZero(mb[1]); oa != ob {
		return oa < ob
	}

	if ma[2] != mb[2] {
		return ma[2] < mb[2]
	}

	return atoiOrZero(ma[3]) < atoiOrZero(mb[3])
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}

	return n
}
