// Package seed defines the reference records loaded from the seed CSV files:
// supplements, medications, and the interactions between them.
package seed

import "strings"

// DefaultSeverity is applied to interactions whose severity is absent.
const DefaultSeverity = "moderate"

type (
	// SupplementRecord is one row of the supplements source file.
	SupplementRecord struct {
		ID       string
		Name     string
		Category string
	}

	// MedicationRecord is one row of the medications source file.
	MedicationRecord struct {
		ID        string
		Name      string
		DrugClass string
	}

	// InteractionRecord links a supplement to a medication.
	// Neither foreign key is checked against the parent sets here; the
	// target store owns referential integrity.
	InteractionRecord struct {
		SupplementID string
		MedicationID string
		Severity     string
		Mechanism    string // stored as the interaction description
		Notes        string // stored as the interaction recommendation
	}

	// Dataset is the full set of records assembled for one run.
	Dataset struct {
		Supplements  []SupplementRecord
		Medications  []MedicationRecord
		Interactions []InteractionRecord
	}
)

// NormalizeSeverity lowercases a severity value and substitutes DefaultSeverity when it is blank.
func NormalizeSeverity(severity string) string {
	severity = strings.ToLower(strings.TrimSpace(severity))
	if severity == "" {
		return DefaultSeverity
	}

	return severity
}
