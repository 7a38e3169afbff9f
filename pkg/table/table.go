package table

import "fmt"

// Column describes one column of a Table. Once a column has been converted
// to categorical its category order is fixed; one-hot expansion and
// cross-batch column stability both depend on that order.
type Column struct {
	Name        string
	Categorical bool
	Categories  []string
}

// Table is an ordered set of named columns over row-major cells. It is the
// unit all pipeline stages operate on; cells default to the NaN sentinel.
type Table struct {
	cols []Column
	rows [][]Value
}

func New(names ...string) *Table {
	cols := make([]Column, len(names))
	for i, name := range names {
		cols[i] = Column{Name: name}
	}
	return &Table{cols: cols}
}

func (t *Table) NumRows() int {
	return len(t.rows)
}

func (t *Table) NumCols() int {
	return len(t.cols)
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.cols))
	for i, col := range t.cols {
		names[i] = col.Name
	}
	return names
}

func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, col := range t.cols {
		if col.Name == name {
			return i, true
		}
	}
	return 0, false
}

func (t *Table) HasColumn(name string) bool {
	_, ok := t.ColumnIndex(name)
	return ok
}

// Column returns the column descriptor for in-place metadata updates, such
// as fixing a category order.
func (t *Table) Column(name string) (*Column, bool) {
	idx, ok := t.ColumnIndex(name)
	if !ok {
		return nil, false
	}
	return &t.cols[idx], true
}

func (t *Table) AppendRow(values ...Value) error {
	if len(values) != len(t.cols) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(t.cols))
	}
	row := make([]Value, len(values))
	copy(row, values)
	t.rows = append(t.rows, row)
	return nil
}

// Cell returns the value at (row, col) by index.
func (t *Table) Cell(row, col int) Value {
	return t.rows[row][col]
}

// At returns the value at the named column of a row.
func (t *Table) At(row int, name string) (Value, bool) {
	idx, ok := t.ColumnIndex(name)
	if !ok {
		return NaN(), false
	}
	return t.rows[row][idx], true
}

func (t *Table) Set(row int, name string, value Value) error {
	idx, ok := t.ColumnIndex(name)
	if !ok {
		return &MissingColumnError{Column: name}
	}
	t.rows[row][idx] = value
	return nil
}

// AddColumn appends a new column filled with the given value.
func (t *Table) AddColumn(name string, fill Value) error {
	if t.HasColumn(name) {
		return fmt.Errorf("column %q already exists", name)
	}
	t.cols = append(t.cols, Column{Name: name})
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], fill)
	}
	return nil
}

func (t *Table) DropColumn(name string) error {
	idx, ok := t.ColumnIndex(name)
	if !ok {
		return &MissingColumnError{Column: name}
	}
	t.cols = append(t.cols[:idx], t.cols[idx+1:]...)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i][:idx], t.rows[i][idx+1:]...)
	}
	return nil
}

// Reorder rearranges columns to the given order. The order must name every
// column exactly once.
func (t *Table) Reorder(names []string) error {
	if len(names) != len(t.cols) {
		return fmt.Errorf("reorder names %d columns, table has %d", len(names), len(t.cols))
	}
	indices := make([]int, len(names))
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		idx, ok := t.ColumnIndex(name)
		if !ok {
			return &MissingColumnError{Column: name}
		}
		if seen[name] {
			return fmt.Errorf("duplicate column %q in reorder", name)
		}
		seen[name] = true
		indices[i] = idx
	}
	cols := make([]Column, len(names))
	for i, idx := range indices {
		cols[i] = t.cols[idx]
	}
	for r := range t.rows {
		row := make([]Value, len(indices))
		for i, idx := range indices {
			row[i] = t.rows[r][idx]
		}
		t.rows[r] = row
	}
	t.cols = cols
	return nil
}

// RetainRows keeps only the given row indexes, in the given order.
func (t *Table) RetainRows(rows []int) {
	kept := make([][]Value, 0, len(rows))
	for _, r := range rows {
		kept = append(kept, t.rows[r])
	}
	t.rows = kept
}

func (t *Table) Clone() *Table {
	clone := &Table{
		cols: make([]Column, len(t.cols)),
		rows: make([][]Value, len(t.rows)),
	}
	for i, col := range t.cols {
		clone.cols[i] = Column{Name: col.Name, Categorical: col.Categorical}
		if col.Categories != nil {
			clone.cols[i].Categories = append([]string(nil), col.Categories...)
		}
	}
	for i, row := range t.rows {
		clone.rows[i] = append([]Value(nil), row...)
	}
	return clone
}

// Group is a run of row indexes sharing one key value, in input order.
type Group struct {
	Key  Value
	Rows []int
}

// GroupBy partitions row indexes by the value of the named column. Groups
// are ordered by first appearance of the key. Keys are expected to be int or
// string cells (patient identifiers in practice).
func (t *Table) GroupBy(name string) ([]Group, error) {
	idx, ok := t.ColumnIndex(name)
	if !ok {
		return nil, &MissingColumnError{Column: name}
	}
	var groups []Group
	position := make(map[Value]int)
	for r := range t.rows {
		key := t.rows[r][idx]
		if pos, ok := position[key]; ok {
			groups[pos].Rows = append(groups[pos].Rows, r)
			continue
		}
		position[key] = len(groups)
		groups = append(groups, Group{Key: key, Rows: []int{r}})
	}
	return groups, nil
}

// Concat appends every table to a copy of the first, aligning columns by
// name. All inputs must share the same column set; the result keeps the
// first table's column order.
func Concat(tables []*Table) (*Table, error) {
	if len(tables) == 0 {
		return New(), nil
	}
	result := tables[0].Clone()
	for _, other := range tables[1:] {
		if err := result.appendAligned(other); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (t *Table) appendAligned(other *Table) error {
	if len(other.cols) != len(t.cols) {
		for _, col := range other.cols {
			if !t.HasColumn(col.Name) {
				return &ColumnMismatchError{Column: col.Name}
			}
		}
		for _, col := range t.cols {
			if !other.HasColumn(col.Name) {
				return &ColumnMismatchError{Column: col.Name}
			}
		}
	}
	mapping := make([]int, len(t.cols))
	for i, col := range t.cols {
		idx, ok := other.ColumnIndex(col.Name)
		if !ok {
			return &ColumnMismatchError{Column: col.Name}
		}
		mapping[i] = idx
	}
	for _, row := range other.rows {
		aligned := make([]Value, len(t.cols))
		for i, idx := range mapping {
			aligned[i] = row[idx]
		}
		t.rows = append(t.rows, aligned)
	}
	return nil
}
