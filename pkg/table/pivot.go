package table

// PivotSpec describes a long-to-wide reshape: one output row per distinct
// combination of index column values, one output column per distinct value
// of the Columns column, cells taken from the Values column.
type PivotSpec struct {
	Index   []string
	Columns string
	Values  string
}

// Pivot reshapes long-format event rows into a wide table. Output rows keep
// the input order of first appearance of each index key; output columns
// follow the index columns in the order the source values first appear.
// When the same (index, column) pair occurs more than once the first
// observed value wins. Cells never observed stay NaN.
func Pivot(t *Table, spec PivotSpec) (*Table, error) {
	indexIdx := make([]int, len(spec.Index))
	for i, name := range spec.Index {
		idx, ok := t.ColumnIndex(name)
		if !ok {
			return nil, &MissingColumnError{Column: name}
		}
		indexIdx[i] = idx
	}
	colIdx, ok := t.ColumnIndex(spec.Columns)
	if !ok {
		return nil, &MissingColumnError{Column: spec.Columns}
	}
	valIdx, ok := t.ColumnIndex(spec.Values)
	if !ok {
		return nil, &MissingColumnError{Column: spec.Values}
	}

	type rowKey struct {
		repr string
	}
	keyOf := func(r int) rowKey {
		repr := ""
		for _, idx := range indexIdx {
			repr += t.rows[r][idx].String() + "\x1f"
		}
		return rowKey{repr: repr}
	}

	out := New(spec.Index...)
	rowPos := make(map[rowKey]int)
	colPos := make(map[string]int)

	for r := range t.rows {
		name := t.rows[r][colIdx].String()
		if _, ok := colPos[name]; ok || t.rows[r][colIdx].IsNaN() {
			continue
		}
		colPos[name] = len(out.cols)
		out.cols = append(out.cols, Column{Name: name})
	}

	width := len(out.cols)
	for r := range t.rows {
		key := keyOf(r)
		pos, seen := rowPos[key]
		if !seen {
			row := make([]Value, width)
			for i := range row {
				row[i] = NaN()
			}
			for i, idx := range indexIdx {
				row[i] = t.rows[r][idx]
			}
			pos = len(out.rows)
			out.rows = append(out.rows, row)
			rowPos[key] = pos
		}
		if t.rows[r][colIdx].IsNaN() {
			continue
		}
		target := colPos[t.rows[r][colIdx].String()]
		if out.rows[pos][target].IsNaN() {
			out.rows[pos][target] = t.rows[r][valIdx]
		}
	}
	return out, nil
}
