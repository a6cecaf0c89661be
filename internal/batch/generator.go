// Package batch turns seed records into size-bounded, escaped insert statements
// and writes them out as ordered SQL artifacts.
package batch

import (
	"errors"
	"fmt"

	"github.com/stackcheck/seedimport/internal/seed"
)

const (
	// DefaultBatchSize bounds the number of interaction rows per statement.
	DefaultBatchSize = 500

	// DefaultDescription replaces an empty interaction mechanism.
	DefaultDescription = "No description"

	// DefaultRecommendation replaces empty interaction notes.
	DefaultRecommendation = "Consult healthcare provider"
)

var (
	// ErrInvalidBatchSize is returned when the interaction batch size is not positive.
	ErrInvalidBatchSize = errors.New("batch size must be greater than zero")
	// ErrNilDataset is returned when Generate is called without records.
	ErrNilDataset = errors.New("dataset cannot be nil")
	// ErrEmptyIdentifier is returned when a record lacks its identifier.
	ErrEmptyIdentifier = errors.New("record identifier is empty")
)

// Generator builds statement batches from a seed dataset.
type Generator struct {
	batchSize int
}

// NewGenerator returns a Generator that splits interactions into batches of at most batchSize rows.
func NewGenerator(batchSize int) (*Generator, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, batchSize)
	}

	return &Generator{batchSize: batchSize}, nil
}

// BatchSize returns the configured interaction batch size.
func (g *Generator) BatchSize() int {
	return g.batchSize
}

// Generate returns the batches in apply order: one supplement group, one
// medication group, then ceil(n/batchSize) interaction batches. An entity
// with no rows contributes no batch.
func (g *Generator) Generate(ds *seed.Dataset) ([]StatementBatch, error) {
	if ds == nil {
		return nil, ErrNilDataset
	}

	var batches []StatementBatch

	supplements, err := supplementRows(ds.Supplements)
	if err != nil {
		return nil, err
	}

	if len(supplements) > 0 {
		batches = append(batches, StatementBatch{Entity: EntitySupplements, Rows: supplements})
	}

	medications, err := medicationRows(ds.Medications)
	if err != nil {
		return nil, err
	}

	if len(medications) > 0 {
		batches = append(batches, StatementBatch{Entity: EntityMedications, Rows: medications})
	}

	interactions, err := interactionRows(ds.Interactions)
	if err != nil {
		return nil, err
	}

	for i, chunk := range chunk(interactions, g.batchSize) {
		batches = append(batches, StatementBatch{Entity: EntityInteractions, Index: i + 1, Rows: chunk})
	}

	return batches, nil
}

func supplementRows(records []seed.SupplementRecord) ([]string, error) {
	rows := make([]string, 0, len(records))

	for i, r := range records {
		if r.ID == "" {
			return nil, fmt.Errorf("supplement %d: %w", i+1, ErrEmptyIdentifier)
		}

		rows = append(rows, tuple(identifierLiteral(r.ID), Quote(r.Name), Quote(r.Category)))
	}

	return rows, nil
}

func medicationRows(records []seed.MedicationRecord) ([]string, error) {
	rows := make([]string, 0, len(records))

	for i, r := range records {
		if r.ID == "" {
			return nil, fmt.Errorf("medication %d: %w", i+1, ErrEmptyIdentifier)
		}

		rows = append(rows, tuple(identifierLiteral(r.ID), Quote(r.Name), Quote(r.DrugClass)))
	}

	return rows, nil
}

func interactionRows(records []seed.InteractionRecord) ([]string, error) {
	rows := make([]string, 0, len(records))

	for i, r := range records {
		if r.SupplementID == "" || r.MedicationID == "" {
			return nil, fmt.Errorf("interaction %d: %w", i+1, ErrEmptyIdentifier)
		}

		// Defaults are applied after escaping and contain nothing to escape.
		description := Escape(r.Mechanism)
		if description == "" {
			description = DefaultDescription
		}

		recommendation := Escape(r.Notes)
		if recommendation == "" {
			recommendation = DefaultRecommendation
		}

		rows = append(rows, tuple(
			identifierLiteral(r.SupplementID),
			identifierLiteral(r.MedicationID),
			Quote(seed.NormalizeSeverity(r.Severity)),
			"'"+description+"'",
			"'"+recommendation+"'",
		))
	}

	return rows, nil
}

// chunk splits rows into consecutive slices of at most size elements, preserving order.
func chunk(rows []string, size int) [][]string {
	if len(rows) == 0 {
		return nil
	}

	chunks := make([][]string, 0, (len(rows)+size-1)/size)

	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		chunks = append(chunks, rows[start:end])
	}

	return chunks
}
