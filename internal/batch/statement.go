package batch

import (
	"fmt"
	"strings"
)

// Entity names one of the three seed tables.
type Entity string

// Seed entities, in the order their artifacts are generated and applied.
const (
	EntitySupplements  Entity = "supplements"
	EntityMedications  Entity = "medications"
	EntityInteractions Entity = "interactions"
)

// Entities lists every entity in apply order.
var Entities = []Entity{EntitySupplements, EntityMedications, EntityInteractions}

// tableSpec describes the statement shape for one entity.
type tableSpec struct {
	table    string
	columns  []string
	conflict string
	order    int
}

var tableSpecs = map[Entity]tableSpec{
	EntitySupplements: {
		table:    "supplements",
		columns:  []string{"id", "name", "category"},
		conflict: "ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, category = EXCLUDED.category",
		order:    1,
	},
	EntityMedications: {
		table:    "medications",
		columns:  []string{"id", "name", "drug_class"},
		conflict: "ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, drug_class = EXCLUDED.drug_class",
		order:    2,
	},
	EntityInteractions: {
		table:    "interactions",
		columns:  []string{"supplement_id", "medication_id", "severity", "description", "recommendation"},
		conflict: "ON CONFLICT (supplement_id, medication_id) DO NOTHING",
		order:    3,
	},
}

// Table returns the target table name for the entity.
func (e Entity) Table() string {
	return tableSpecs[e].table
}

// StatementBatch is one multi-row insert for a single entity.
// Index is the 1-based batch number for interactions and 0 for the single
// supplement and medication groups.
type StatementBatch struct {
	Entity Entity
	Index  int
	Rows   []string
}

// Len returns the number of value tuples in the batch.
func (b StatementBatch) Len() int {
	return len(b.Rows)
}

// Name returns the deterministic artifact file name for the batch.
func (b StatementBatch) Name() string {
	spec := tableSpecs[b.Entity]
	if b.Index == 0 {
		return fmt.Sprintf("%02d_%s.sql", spec.order, spec.table)
	}

	return fmt.Sprintf("%02d_%s_batch_%02d.sql", spec.order, spec.table, b.Index)
}

// SQL renders the batch as a single statement.
//
// Every value tuple but the last ends with a comma. The last carries the
// conflict clause and the statement terminator.
func (b StatementBatch) SQL() string {
	spec := tableSpecs[b.Entity]

	var sb strings.Builder

	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES\n", spec.table, strings.Join(spec.columns, ", "))

	for i, tuple := range b.Rows {
		sb.WriteString("  ")
		sb.WriteString(tuple)

		if i < len(b.Rows)-1 {
			sb.WriteString(",\n")

			continue
		}

		sb.WriteString(" ")
		sb.WriteString(spec.conflict)
		sb.WriteString(";\n")
	}

	return sb.String()
}

func tuple(values ...string) string {
	return "(" + strings.Join(values, ", ") + ")"
}
