package validators

import (
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/tavola-backend/pkg/errors"
)

// maxTokenLen bounds enum-like body fields (level, side) before parsing so a
// junk value is never echoed back at length.
const maxTokenLen = 16

// ParseUUIDField parses a body field as a uuid; errors name the field.
func ParseUUIDField(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, field+" must be a uuid").
			WithDetails(map[string]any{"field": field})
	}
	return id, nil
}

// Token trims an optional enum field and caps its length.
func Token(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) > maxTokenLen {
		return trimmed[:maxTokenLen]
	}
	return trimmed
}
