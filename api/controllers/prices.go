package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tavola-backend/api/middleware"
	"github.com/angelmondragon/tavola-backend/api/responses"
	"github.com/angelmondragon/tavola-backend/api/validators"
	"github.com/angelmondragon/tavola-backend/internal/pricechanges"
	"github.com/angelmondragon/tavola-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tavola-backend/pkg/errors"
	"github.com/angelmondragon/tavola-backend/pkg/logger"
	"github.com/angelmondragon/tavola-backend/pkg/pagination"
)

const historyIDParam = "historyId"

type bulkPriceChangeRequest struct {
	Type      string           `json:"type" validate:"required,oneof=INCREASE DECREASE"`
	ValueType string           `json:"value_type" validate:"required,oneof=PERCENTAGE FIXED"`
	Value     *decimal.Decimal `json:"value" validate:"required"`
	Target    string           `json:"target,omitempty" validate:"omitempty,oneof=ITEMS MODIFIERS"`
}

func (r bulkPriceChangeRequest) toInput() (pricechanges.BulkPriceChangeInput, error) {
	changeType, err := enums.ParsePriceChangeType(r.Type)
	if err != nil {
		return pricechanges.BulkPriceChangeInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type")
	}
	valueType, err := enums.ParsePriceValueType(r.ValueType)
	if err != nil {
		return pricechanges.BulkPriceChangeInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid value_type")
	}
	input := pricechanges.BulkPriceChangeInput{
		Type:      changeType,
		ValueType: valueType,
		Value:     *r.Value,
	}
	if target := strings.TrimSpace(r.Target); target != "" {
		parsed, err := enums.ParsePriceChangeTarget(target)
		if err != nil {
			return pricechanges.BulkPriceChangeInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target")
		}
		input.Target = parsed
	}
	return input, nil
}

// AdminBulkPriceChange applies one percentage or fixed adjustment to every
// item or modifier of the current business.
func AdminBulkPriceChange(svc pricechanges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "price change service unavailable"))
			return
		}
		tenant, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload bulkPriceChangeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ApplyBulkPriceChange(r.Context(), tenant, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminRollbackPriceChange restores the snapshot of an ACTIVE history row.
func AdminRollbackPriceChange(svc pricechanges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "price change service unavailable"))
			return
		}
		tenant, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		historyID, err := validators.ParseUUIDParam(r, historyIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := svc.Rollback(r.Context(), tenant, historyID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func AdminListPriceHistory(svc pricechanges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "price change service unavailable"))
			return
		}
		tenant, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), tenant, page, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AdminGetPriceHistory(svc pricechanges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "price change service unavailable"))
			return
		}
		tenant, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		historyID, err := validators.ParseUUIDParam(r, historyIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Get(r.Context(), tenant, historyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func AdminDeletePriceHistory(svc pricechanges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "price change service unavailable"))
			return
		}
		tenant, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		historyID, err := validators.ParseUUIDParam(r, historyIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), tenant, historyID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func AdminClearPriceHistory(svc pricechanges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "price change service unavailable"))
			return
		}
		tenant, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Clear(r.Context(), tenant)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func tenantFromRequest(r *http.Request) (pricechanges.Tenant, error) {
	businessID := middleware.BusinessIDFromContext(r.Context())
	if businessID == "" {
		return pricechanges.Tenant{}, pkgerrors.New(pkgerrors.CodeForbidden, "business context missing")
	}
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return pricechanges.Tenant{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}

	bid, err := uuid.Parse(businessID)
	if err != nil {
		return pricechanges.Tenant{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid business id")
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return pricechanges.Tenant{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return pricechanges.Tenant{BusinessID: bid, AdminID: uid}, nil
}
