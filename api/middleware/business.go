package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/tavola-backend/api/responses"
	"github.com/angelmondragon/tavola-backend/pkg/db"
	"github.com/angelmondragon/tavola-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tavola-backend/pkg/errors"
	"github.com/angelmondragon/tavola-backend/pkg/logger"
)

type currentBusiness interface {
	Current(ctx context.Context) (*models.Business, error)
}

// BusinessContext makes sure a business id is on the context. Tokens without
// a business_id claim fall back to the deployment's single business.
func BusinessContext(lookup currentBusiness, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if BusinessIDFromContext(r.Context()) != "" {
				next.ServeHTTP(w, r)
				return
			}
			if lookup == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "business context missing"))
				return
			}

			business, err := lookup.Current(r.Context())
			if err != nil {
				if db.IsNotFound(err) {
					responses.WriteError(r.Context(), logg, w, pkgerrors.NotFound("no business configured"))
					return
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve current business"))
				return
			}

			ctx := WithBusinessID(r.Context(), business.ID.String())
			if logg != nil {
				ctx = logg.WithBusinessID(ctx, business.ID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
