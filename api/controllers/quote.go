package controllers

import (
	"net/http"

	"github.com/angelmondragon/tavola-backend/api/responses"
	"github.com/angelmondragon/tavola-backend/api/validators"
	"github.com/angelmondragon/tavola-backend/internal/pricing"
	"github.com/angelmondragon/tavola-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tavola-backend/pkg/errors"
	"github.com/angelmondragon/tavola-backend/pkg/logger"
)

type quoteRequest struct {
	SizeID    *string                `json:"size_id,omitempty" validate:"omitempty,uuid"`
	Quantity  int                    `json:"quantity,omitempty" validate:"omitempty,gte=1,lte=999"`
	Modifiers []quoteModifierRequest `json:"modifiers,omitempty" validate:"omitempty,dive"`
}

type quoteModifierRequest struct {
	ModifierID    string `json:"modifier_id" validate:"required,uuid"`
	QuantityLevel *int   `json:"quantity_level,omitempty" validate:"omitempty,gte=1"`
	Level         string `json:"level,omitempty" validate:"omitempty,oneof=LIGHT NORMAL EXTRA light normal extra"`
	Side          string `json:"side,omitempty" validate:"omitempty,oneof=LEFT RIGHT WHOLE left right whole"`
}

func (r quoteRequest) toRequest() (pricing.QuoteRequest, error) {
	req := pricing.QuoteRequest{Quantity: r.Quantity}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if r.SizeID != nil {
		id, err := validators.ParseUUIDField(*r.SizeID, "size_id")
		if err != nil {
			return pricing.QuoteRequest{}, err
		}
		req.SizeID = &id
	}

	for _, m := range r.Modifiers {
		id, err := validators.ParseUUIDField(m.ModifierID, "modifier_id")
		if err != nil {
			return pricing.QuoteRequest{}, err
		}
		choice := pricing.QuoteModifier{ModifierID: id, QuantityLevel: m.QuantityLevel}
		if level := validators.Token(m.Level); level != "" {
			parsed, err := enums.ParseModifierLevel(level)
			if err != nil {
				return pricing.QuoteRequest{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid level")
			}
			choice.Level = parsed
		}
		if side := validators.Token(m.Side); side != "" {
			parsed, err := enums.ParseSide(side)
			if err != nil {
				return pricing.QuoteRequest{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid side")
			}
			choice.Side = parsed
		}
		req.Modifiers = append(req.Modifiers, choice)
	}
	return req, nil
}

// MenuQuoteItem resolves the effective price of one item selection.
func MenuQuoteItem(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload quoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req, err := payload.toRequest()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.QuoteItem(r.Context(), itemID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}
