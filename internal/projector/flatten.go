package projector

import "github.com/ukydev/vehicle-ingest/internal/normalize"

// Flatten splits a list of objects into two parallel columns holding the
// subfields a and b of every element, in list order.
func Flatten(list any, a, b string) ([]string, []string) {
	cols := FlattenColumns(list, a, b)
	return cols[0], cols[1]
}

// FlattenColumns returns one column per subfield name. Every column has one
// entry per list element; a missing or null subfield becomes "". A missing or
// non-list value yields empty columns.
func FlattenColumns(list any, subs ...string) [][]string {
	items, _ := list.([]any)
	cols := make([][]string, len(subs))
	for i := range cols {
		cols[i] = make([]string, 0, len(items))
	}
	for _, it := range items {
		obj, _ := it.(map[string]any)
		for i, sub := range subs {
			s, _ := normalize.Text(obj[sub])
			cols[i] = append(cols[i], s)
		}
	}
	return cols
}
