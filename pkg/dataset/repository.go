package dataset

import (
	"context"
	"fmt"
	"time"

	"github.com/fleming-ai/platform/pkg/table"
	"gorm.io/gorm"
)

// Querier is the external query capability the pipeline is built against:
// it accepts a query string and returns a tabular result with named columns.
// Failures propagate untouched and terminate the run.
type Querier interface {
	Query(ctx context.Context, query string) (*table.Table, error)
}

// OMOPRepository runs raw SQL against the OMOP database and scans results
// into tables, mapping SQL NULL to the NaN sentinel.
type OMOPRepository struct {
	db *gorm.DB
}

func NewOMOPRepository(db *gorm.DB) *OMOPRepository {
	return &OMOPRepository{db: db}
}

func (r *OMOPRepository) Query(ctx context.Context, query string) (*table.Table, error) {
	rows, err := r.db.WithContext(ctx).Raw(query).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	result := table.New(columns...)

	for rows.Next() {
		raw := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		values := make([]table.Value, len(columns))
		for i, cell := range raw {
			values[i] = toValue(cell)
		}
		if err := result.AppendRow(values...); err != nil {
			return nil, err
		}
	}
	return result, rows.Err()
}

func toValue(cell interface{}) table.Value {
	switch v := cell.(type) {
	case nil:
		return table.NaN()
	case time.Time:
		return table.Time(v)
	case int64:
		return table.Int(v)
	case int32:
		return table.Int(int64(v))
	case int:
		return table.Int(int64(v))
	case float64:
		return table.Float(v)
	case float32:
		return table.Float(float64(v))
	case []byte:
		return table.String(string(v))
	case string:
		return table.String(v)
	case bool:
		if v {
			return table.Int(1)
		}
		return table.Int(0)
	default:
		return table.String(fmt.Sprint(v))
	}
}
