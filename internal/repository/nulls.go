package repository

import (
	"database/sql"
	"encoding/json"
	"math"
)

// Conversions between nullable columns and the pointer fields used by the
// JSON models.

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// bindValue prepares a decoded JSON value for binding.  Scalars pass
// through and the column affinity decides how they are stored.  Whole
// numbers bind as integers, booleans become 1 or 0, and objects and arrays
// are stored as their JSON text.
func bindValue(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x), nil
		}
		return x, nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
	return v, nil
}

// bindValues applies bindValue to each argument.
func bindValues(vs ...any) ([]any, error) {
	out := make([]any, len(vs))
	for i, v := range vs {
		b, err := bindValue(v)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}
