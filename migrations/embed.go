// Package migrations embeds the seed schema and applies it with golang-migrate.
package migrations

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

//go:embed *.sql
var embedded embed.FS

// migrationFilename matches 001_name.up.sql and 001_name.down.sql.
var migrationFilename = regexp.MustCompile(`^(\d{3})_([a-z0-9_]+)\.(up|down)\.sql$`)

var (
	// ErrNoMigrations is returned when the source holds no migration files.
	ErrNoMigrations = errors.New("no embedded migration files found")

	// ErrUnpairedMigration is returned when an up file has no down file or vice versa.
	ErrUnpairedMigration = errors.New("unpaired migration")

	// ErrSequenceGap is returned when sequence numbers do not run 001, 002, ... without gaps.
	ErrSequenceGap = errors.New("gap in migration sequence")

	// ErrChecksumMismatch is returned when a migration changed after it was first validated.
	ErrChecksumMismatch = errors.New("migration checksum mismatch")
)

type (
	// Source validates and exposes a set of migration files.
	Source struct {
		fs        fs.FS
		checksums map[string]string
	}

	// File describes one parsed migration filename.
	File struct {
		Sequence  int
		Name      string
		Direction string
		Filename  string
	}
)

// NewSource wraps filesystem; nil selects the embedded seed schema.
func NewSource(filesystem fs.FS) *Source {
	if filesystem == nil {
		filesystem = embedded
	}

	return &Source{
		fs:        filesystem,
		checksums: make(map[string]string),
	}
}

// FS returns the underlying filesystem.
func (s *Source) FS() fs.FS {
	return s.fs
}

// Files returns the migration files in lexical order. Files not following the
// naming convention are ignored.
func (s *Source) Files() ([]File, error) {
	entries, err := fs.ReadDir(s.fs, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var files []File

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if f, ok := parseFilename(entry.Name()); ok {
			files = append(files, f)
		}
	}

	slices.SortFunc(files, func(a, b File) int {
		return strings.Compare(a.Filename, b.Filename)
	})

	return files, nil
}

// MaxVersion returns the highest sequence number available, or 0.
func (s *Source) MaxVersion() int {
	files, err := s.Files()
	if err != nil {
		return 0
	}

	highest := 0
	for _, f := range files {
		highest = max(highest, f.Sequence)
	}

	return highest
}

// Validate checks pairing, sequence and content integrity. The first call records
// checksums; later calls fail if any file changed since.
func (s *Source) Validate() error {
	files, err := s.Files()
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return ErrNoMigrations
	}

	if err := validatePairing(files); err != nil {
		return err
	}

	if err := validateSequence(files); err != nil {
		return err
	}

	for _, f := range files {
		content, err := fs.ReadFile(s.fs, f.Filename)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", f.Filename, err)
		}

		sum := sha256.Sum256(content)
		checksum := hex.EncodeToString(sum[:])

		if prev, ok := s.checksums[f.Filename]; ok && prev != checksum {
			return fmt.Errorf("%w: %s", ErrChecksumMismatch, f.Filename)
		}

		s.checksums[f.Filename] = checksum
	}

	return nil
}

func parseFilename(name string) (File, bool) {
	m := migrationFilename.FindStringSubmatch(name)
	if m == nil {
		return File{}, false
	}

	seq, err := strconv.Atoi(m[1])
	if err != nil {
		return File{}, false
	}

	return File{Sequence: seq, Name: m[2], Direction: m[3], Filename: name}, true
}

func validatePairing(files []File) error {
	directions := make(map[string]map[string]bool)

	for _, f := range files {
		key := fmt.Sprintf("%03d_%s", f.Sequence, f.Name)
		if directions[key] == nil {
			directions[key] = make(map[string]bool)
		}

		directions[key][f.Direction] = true
	}

	keys := make([]string, 0, len(directions))
	for key := range directions {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	for _, key := range keys {
		switch {
		case !directions[key]["up"]:
			return fmt.Errorf("%w: %s has no up migration", ErrUnpairedMigration, key)
		case !directions[key]["down"]:
			return fmt.Errorf("%w: %s has no down migration", ErrUnpairedMigration, key)
		}
	}

	return nil
}

func validateSequence(files []File) error {
	seen := make(map[int]bool)

	var sequences []int

	for _, f := range files {
		if !seen[f.Sequence] {
			seen[f.Sequence] = true
			sequences = append(sequences, f.Sequence)
		}
	}

	slices.Sort(sequences)

	for i, seq := range sequences {
		if want := i + 1; seq != want {
			return fmt.Errorf("%w: expected %03d, found %03d", ErrSequenceGap, want, seq)
		}
	}

	return nil
}
