package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/tavola-backend/pkg/errors"
)

// invalidRecord tags a failed JSON-column check with the row it came from so
// bulk writes report which record broke the batch.
func invalidRecord(table string, id uuid.UUID, err error) error {
	return pkgerrors.Validation(err.Error()).WithDetails(map[string]any{
		"table": table,
		"id":    id,
	})
}

func negativePrice(price decimal.NullDecimal) bool {
	return price.Valid && price.Decimal.IsNegative()
}
