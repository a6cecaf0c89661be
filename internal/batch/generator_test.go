package batch

import (
	"fmt"
	"strings"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackcheck/seedimport/internal/seed"
)

func interactions(n int) []seed.InteractionRecord {
	out := make([]seed.InteractionRecord, n)
	for i := range out {
		out[i] = seed.InteractionRecord{
			SupplementID: fmt.Sprint(i + 1),
			MedicationID: fmt.Sprint(1000 + i),
			Severity:     "Major",
			Mechanism:    fmt.Sprintf("mechanism %d", i),
			Notes:        fmt.Sprintf("notes %d", i),
		}
	}

	return out
}

// sqlLines returns the statement lines without the trailing empty line.
func sqlLines(b StatementBatch) []string {
	return strings.Split(strings.TrimSuffix(b.SQL(), "\n"), "\n")
}

func TestEscape_RoundTrip(t *testing.T) {
	cases := []string{
		"",
		"plain",
		"O'Brien's Blend",
		"'",
		"''",
		"trailing'",
		"'leading",
		"St. John's Wort; DROP TABLE supplements; --",
	}

	for _, original := range cases {
		escaped := Escape(original)
		assert.Equal(t, original, strings.Join(strings.Split(escaped, "''"), "'"), original)
		assert.Equal(t, strings.Count(original, "'")*2, strings.Count(escaped, "'"))
	}

	roundTrip := func(s string) bool {
		return strings.Join(strings.Split(Escape(s), "''"), "'") == s
	}
	require.NoError(t, quick.Check(roundTrip, nil))
}

func TestNewGenerator_InvalidBatchSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := NewGenerator(size)
		assert.ErrorIs(t, err, ErrInvalidBatchSize)
	}
}

func TestGenerate_InteractionChunking(t *testing.T) {
	tests := []struct {
		n, size int
	}{
		{n: 0, size: 500},
		{n: 1, size: 500},
		{n: 499, size: 500},
		{n: 500, size: 500},
		{n: 501, size: 500},
		{n: 1200, size: 500},
		{n: 2500, size: 500},
		{n: 23, size: 7},
		{n: 5, size: 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d,size=%d", tt.n, tt.size), func(t *testing.T) {
			g, err := NewGenerator(tt.size)
			require.NoError(t, err)

			records := interactions(tt.n)
			batches, err := g.Generate(&seed.Dataset{Interactions: records})
			require.NoError(t, err)

			wantBatches := (tt.n + tt.size - 1) / tt.size
			require.Len(t, batches, wantBatches)

			var seen []string

			for i, b := range batches {
				assert.Equal(t, EntityInteractions, b.Entity)
				assert.Equal(t, i+1, b.Index)

				if i < len(batches)-1 {
					assert.Equal(t, tt.size, b.Len())
				} else {
					assert.Equal(t, tt.n-tt.size*(wantBatches-1), b.Len())
				}

				seen = append(seen, b.Rows...)
			}

			require.Len(t, seen, tt.n)

			for i, row := range seen {
				assert.True(t, strings.HasPrefix(row, fmt.Sprintf("(%d, %d, ", i+1, 1000+i)), row)
			}
		})
	}
}

func TestGenerate_TerminatorOnFinalRowOnly(t *testing.T) {
	g, err := NewGenerator(4)
	require.NoError(t, err)

	ds := &seed.Dataset{
		Supplements:  []seed.SupplementRecord{{ID: "1", Name: "Zinc"}, {ID: "2", Name: "Iron"}},
		Medications:  []seed.MedicationRecord{{ID: "10", Name: "Warfarin"}},
		Interactions: interactions(10),
	}

	batches, err := g.Generate(ds)
	require.NoError(t, err)
	require.Len(t, batches, 5)

	for _, b := range batches {
		lines := sqlLines(b)
		require.Len(t, lines, b.Len()+1, b.Name())
		assert.True(t, strings.HasPrefix(lines[0], "INSERT INTO "+b.Entity.Table()+" ("), lines[0])
		assert.True(t, strings.HasSuffix(lines[0], ") VALUES"), lines[0])

		rows := lines[1:]
		for i, line := range rows {
			if i < len(rows)-1 {
				assert.True(t, strings.HasSuffix(line, "),"), line)
				assert.NotContains(t, line, ";")
			} else {
				assert.True(t, strings.HasSuffix(line, ";"), line)
				assert.False(t, strings.HasSuffix(line, ",;"), line)
				assert.Equal(t, 1, strings.Count(b.SQL(), ";"))
			}
		}
	}
}

func TestGenerate_EscapesApostropheInName(t *testing.T) {
	g, err := NewGenerator(DefaultBatchSize)
	require.NoError(t, err)

	batches, err := g.Generate(&seed.Dataset{Supplements: []seed.SupplementRecord{
		{ID: "1", Name: "Fish Oil", Category: "Omega-3"},
		{ID: "2", Name: "O'Brien's Blend", Category: "Herbal"},
		{ID: "3", Name: "Magnesium", Category: "Mineral"},
	}})
	require.NoError(t, err)
	require.Len(t, batches, 1)

	sql := batches[0].SQL()
	assert.Contains(t, sql, "O''Brien''s Blend")
	assert.Contains(t, sql, "(2, 'O''Brien''s Blend', 'Herbal')")
	assert.Equal(t, "01_supplements.sql", batches[0].Name())
	assert.Contains(t, sql, "ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, category = EXCLUDED.category;")
}

func TestGenerate_SplitsInteractionsIntoBatches(t *testing.T) {
	g, err := NewGenerator(DefaultBatchSize)
	require.NoError(t, err)

	batches, err := g.Generate(&seed.Dataset{Interactions: interactions(1200)})
	require.NoError(t, err)
	require.Len(t, batches, 3)

	sizes := []int{batches[0].Len(), batches[1].Len(), batches[2].Len()}
	assert.Equal(t, []int{500, 500, 200}, sizes)

	names := []string{batches[0].Name(), batches[1].Name(), batches[2].Name()}
	assert.Equal(t, []string{
		"03_interactions_batch_01.sql",
		"03_interactions_batch_02.sql",
		"03_interactions_batch_03.sql",
	}, names)
}

func TestGenerate_InteractionDefaults(t *testing.T) {
	g, err := NewGenerator(DefaultBatchSize)
	require.NoError(t, err)

	batches, err := g.Generate(&seed.Dataset{Interactions: []seed.InteractionRecord{
		{SupplementID: "1", MedicationID: "2"},
		{SupplementID: "3", MedicationID: "4", Severity: "SEVERE", Mechanism: "Inhibits CYP3A4's activity", Notes: "Don't combine"},
	}})
	require.NoError(t, err)
	require.Len(t, batches, 1)

	assert.Equal(t, "(1, 2, 'moderate', 'No description', 'Consult healthcare provider')", batches[0].Rows[0])
	assert.Equal(t, "(3, 4, 'severe', 'Inhibits CYP3A4''s activity', 'Don''t combine')", batches[0].Rows[1])
	assert.Contains(t, batches[0].SQL(), "ON CONFLICT (supplement_id, medication_id) DO NOTHING;")
}

func TestGenerate_Order(t *testing.T) {
	g, err := NewGenerator(2)
	require.NoError(t, err)

	batches, err := g.Generate(&seed.Dataset{
		Supplements:  []seed.SupplementRecord{{ID: "1", Name: "Zinc"}},
		Medications:  []seed.MedicationRecord{{ID: "9", Name: "Metformin", DrugClass: "Biguanide"}},
		Interactions: interactions(3),
	})
	require.NoError(t, err)

	var names []string
	for _, b := range batches {
		names = append(names, b.Name())
	}

	assert.Equal(t, []string{
		"01_supplements.sql",
		"02_medications.sql",
		"03_interactions_batch_01.sql",
		"03_interactions_batch_02.sql",
	}, names)
	assert.Contains(t, batches[1].SQL(), "INSERT INTO medications (id, name, drug_class) VALUES")
	assert.Contains(t, batches[1].SQL(), "drug_class = EXCLUDED.drug_class;")
}

func TestGenerate_Identifiers(t *testing.T) {
	g, err := NewGenerator(DefaultBatchSize)
	require.NoError(t, err)

	batches, err := g.Generate(&seed.Dataset{Supplements: []seed.SupplementRecord{
		{ID: "42", Name: "Zinc"},
		{ID: "supp-o'7", Name: "Iron"},
		{ID: "007", Name: "Copper"},
		{ID: "+5", Name: "Selenium"},
		{ID: "-3", Name: "Boron"},
	}})
	require.NoError(t, err)

	assert.Equal(t, "(42, 'Zinc', '')", batches[0].Rows[0])
	assert.Equal(t, "('supp-o''7', 'Iron', '')", batches[0].Rows[1])
	assert.Equal(t, "('007', 'Copper', '')", batches[0].Rows[2])
	assert.Equal(t, "('+5', 'Selenium', '')", batches[0].Rows[3])
	assert.Equal(t, "(-3, 'Boron', '')", batches[0].Rows[4])

	batches, err = g.Generate(&seed.Dataset{Interactions: []seed.InteractionRecord{
		{SupplementID: "007", MedicationID: "0012", Severity: "minor"},
	}})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(batches[0].Rows[0], "('007', '0012', 'minor', "), batches[0].Rows[0])
}

func TestGenerate_Errors(t *testing.T) {
	g, err := NewGenerator(DefaultBatchSize)
	require.NoError(t, err)

	_, err = g.Generate(nil)
	require.ErrorIs(t, err, ErrNilDataset)

	_, err = g.Generate(&seed.Dataset{Supplements: []seed.SupplementRecord{{Name: "nameless"}}})
	require.ErrorIs(t, err, ErrEmptyIdentifier)

	_, err = g.Generate(&seed.Dataset{Medications: []seed.MedicationRecord{{Name: "nameless"}}})
	require.ErrorIs(t, err, ErrEmptyIdentifier)

	_, err = g.Generate(&seed.Dataset{Interactions: []seed.InteractionRecord{{SupplementID: "1"}}})
	require.ErrorIs(t, err, ErrEmptyIdentifier)
}
