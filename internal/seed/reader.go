package seed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors for source file problems. Both abort generation.
var (
	// ErrMissingColumn is returned when a required column is absent from the header or the row.
	ErrMissingColumn = errors.New("missing required column")
	// ErrEmptyField is returned when a required column is present but blank.
	ErrEmptyField = errors.New("empty required field")
	// ErrNoHeader is returned when a source file has no header row.
	ErrNoHeader = errors.New("no header row")
)

// utf8BOM is stripped from the first header cell; spreadsheet exports often carry it.
const utf8BOM = "\ufeff"

// RowError reports which source row and column failed validation.
type RowError struct {
	Source string
	Line   int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s line %d: column %q: %v", e.Source, e.Line, e.Column, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// headerIndex maps a lowercased column name to its position.
type headerIndex map[string]int

// row is a single CSV record viewed through its header.
type row struct {
	source string
	line   int
	cells  []string
	header headerIndex
}

// get returns the raw cell for the first of names present in the header.
func (r row) get(names ...string) (string, bool) {
	for _, name := range names {
		pos, ok := r.header[name]
		if !ok {
			continue
		}

		if pos >= len(r.cells) {
			return "", false
		}

		return r.cells[pos], true
	}

	return "", false
}

// optional returns the cell value or "" when the column is absent.
func (r row) optional(names ...string) string {
	v, _ := r.get(names...)

	return v
}

// required returns the cell value and fails when it is absent or blank.
func (r row) required(names ...string) (string, error) {
	v, ok := r.get(names...)
	if !ok {
		return "", &RowError{Source: r.source, Line: r.line, Column: names[0], Err: ErrMissingColumn}
	}

	if strings.TrimSpace(v) == "" {
		return "", &RowError{Source: r.source, Line: r.line, Column: names[0], Err: ErrEmptyField}
	}

	return v, nil
}

// identifier is required with surrounding whitespace dropped. Free text keeps its spacing.
func (r row) identifier(names ...string) (string, error) {
	v, err := r.required(names...)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(v), nil
}

// readRows walks every data row of a CSV stream, stopping at the first error fn returns.
func readRows(r io.Reader, source string, fn func(row) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: %w", source, ErrNoHeader)
	}

	if err != nil {
		return fmt.Errorf("%s: failed to read header: %w", source, err)
	}

	idx := make(headerIndex, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}

		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}

	for {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("%s: %w", source, err)
		}

		line, _ := reader.FieldPos(0)

		if isBlank(cells) {
			continue
		}

		if err := fn(row{source: source, line: line, cells: cells, header: idx}); err != nil {
			return err
		}
	}
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}

	return true
}

// ReadSupplements parses supplement rows. id and name are mandatory.
func ReadSupplements(r io.Reader, source string) ([]SupplementRecord, error) {
	var out []SupplementRecord

	err := readRows(r, source, func(rw row) error {
		id, err := rw.identifier("id")
		if err != nil {
			return err
		}

		name, err := rw.required("name")
		if err != nil {
			return err
		}

		out = append(out, SupplementRecord{ID: id, Name: name, Category: rw.optional("category")})

		return nil
	})

	return out, err
}

// ReadMedications parses medication rows. id and name are mandatory; the class
// column may be headed either "class" or "drug_class".
func ReadMedications(r io.Reader, source string) ([]MedicationRecord, error) {
	var out []MedicationRecord

	err := readRows(r, source, func(rw row) error {
		id, err := rw.identifier("id")
		if err != nil {
			return err
		}

		name, err := rw.required("name")
		if err != nil {
			return err
		}

		out = append(out, MedicationRecord{ID: id, Name: name, DrugClass: rw.optional("class", "drug_class")})

		return nil
	})

	return out, err
}

// ReadInteractions parses interaction rows. Both foreign keys are mandatory;
// severity, mechanism and notes are optional.
func ReadInteractions(r io.Reader, source string) ([]InteractionRecord, error) {
	var out []InteractionRecord

	err := readRows(r, source, func(rw row) error {
		supplementID, err := rw.identifier("supplement_id")
		if err != nil {
			return err
		}

		medicationID, err := rw.identifier("medication_id")
		if err != nil {
			return err
		}

		out = append(out, InteractionRecord{
			SupplementID: supplementID,
			MedicationID: medicationID,
			Severity:     NormalizeSeverity(rw.optional("severity")),
			Mechanism:    rw.optional("mechanism"),
			Notes:        rw.optional("notes"),
		})

		return nil
	})

	return out, err
}

// Paths locates the three source files.
type Paths struct {
	Supplements  string
	Medications  string
	Interactions string
}

// Load reads all three source files. The first malformed row aborts the load.
func Load(paths Paths) (*Dataset, error) {
	ds := &Dataset{}

	var err error

	if ds.Supplements, err = loadFile(paths.Supplements, ReadSupplements); err != nil {
		return nil, err
	}

	if ds.Medications, err = loadFile(paths.Medications, ReadMedications); err != nil {
		return nil, err
	}

	if ds.Interactions, err = loadFile(paths.Interactions, ReadInteractions); err != nil {
		return nil, err
	}

	return ds, nil
}

func loadFile[T any](path string, read func(io.Reader, string) ([]T, error)) ([]T, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	return read(f, filepath.Base(path))
}
