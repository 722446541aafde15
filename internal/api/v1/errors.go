package v1

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/flowboard/internal/domain"
	"github.com/gosuda/flowboard/internal/server/middleware"
)

// actorFromContext pulls the authenticated actor out of the request
// context, or fails the request with a 401.
func actorFromContext(ctx context.Context) (domain.ActorContext, error) {
	actor, ok := middleware.ActorFromContext(ctx)
	if !ok {
		return domain.ActorContext{}, huma.Error401Unauthorized("missing actor context")
	}
	return actor, nil
}

// mapEngineError translates domain sentinels into the HTTP error taxonomy:
// validation 400, not-found 404, forbidden 403, version-conflict 409
// (retryable, the client may resubmit). Anything else is a generic 500
// without internal detail.
func mapEngineError(err error, msg string) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return huma.Error400BadRequest(verr.Field + ": " + verr.Msg)
	case errors.Is(err, domain.ErrValidation):
		return huma.Error400BadRequest(msg)
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound(msg)
	case errors.Is(err, domain.ErrForbidden):
		return huma.Error403Forbidden(msg)
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict("concurrent update, please retry")
	default:
		return huma.Error500InternalServerError(msg, err)
	}
}
