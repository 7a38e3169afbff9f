package table

import "fmt"

// MissingColumnError signals that a required input column is absent. It is a
// schema violation and is never swallowed.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("required column %q is missing", e.Column)
}

// NotCategoricalError signals that a one-hot expansion was requested for a
// column that was never converted to a categorical representation.
type NotCategoricalError struct {
	Column string
}

func (e *NotCategoricalError) Error() string {
	return fmt.Sprintf("column %q is not categorical, cannot one-hot encode", e.Column)
}

// ColumnMismatchError signals that two tables being concatenated do not
// share the same column set.
type ColumnMismatchError struct {
	Column string
}

func (e *ColumnMismatchError) Error() string {
	return fmt.Sprintf("column %q is not present in both tables", e.Column)
}
