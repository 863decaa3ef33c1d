package features

import "sort"

// AlignedRow is an encoded row reindexed to a training schema. Columns
// always equals the schema's column list.
type AlignedRow struct {
	Columns []string
	Values  []float64
}

// Len returns the number of columns.
func (r AlignedRow) Len() int { return len(r.Columns) }

// Get returns the value of col and whether the row has that column.
func (r AlignedRow) Get(col string) (float64, bool) {
	for i, c := range r.Columns {
		if c == col {
			return r.Values[i], true
		}
	}
	return 0, false
}

// Alignment is the result of Align. Dropped lists the encoded columns the
// schema does not know, sorted by name; it never influences Row.
type Alignment struct {
	Row     AlignedRow
	Dropped []string
}

// Align reindexes row to schema. Schema columns absent from row are 0 and
// row columns absent from the schema are discarded, which is how unseen
// categories end up encoded like the dropped reference category.
func Align(row EncodedRow, schema *Schema) (Alignment, error) {
	if schema.Len() == 0 {
		return Alignment{}, SchemaUnavailableError("")
	}

	cols := schema.Columns()
	values := make([]float64, len(cols))
	for i, col := range cols {
		values[i] = row[col]
	}

	var dropped []string
	for col := range row {
		if !schema.Has(col) {
			dropped = append(dropped, col)
		}
	}
	sort.Strings(dropped)

	return Alignment{
		Row:     AlignedRow{Columns: cols, Values: values},
		Dropped: dropped,
	}, nil
}

// EncodeAndAlign runs both steps. No partial row is returned on error.
func EncodeAndAlign(rec RawRecord, schema *Schema) (Alignment, error) {
	if schema.Len() == 0 {
		return Alignment{}, SchemaUnavailableError("")
	}
	row, err := Encode(rec)
	if err != nil {
		return Alignment{}, err
	}
	return Align(row, schema)
}
