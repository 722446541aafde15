package v1

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/flowboard/internal/domain"
	"github.com/gosuda/flowboard/internal/server/middleware"
)

func statusOf(t *testing.T, err error) int {
	t.Helper()

	var model *huma.ErrorModel
	require.ErrorAs(t, err, &model)
	return model.Status
}

func TestMapEngineError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "field validation error",
			err:        domain.NewValidationError("title", "must not be empty"),
			wantStatus: 400,
		},
		{
			name:       "bare validation sentinel",
			err:        fmt.Errorf("card: %w", domain.ErrValidation),
			wantStatus: 400,
		},
		{
			name:       "not found",
			err:        fmt.Errorf("card abc: %w", domain.ErrNotFound),
			wantStatus: 404,
		},
		{
			name:       "forbidden",
			err:        domain.ErrForbidden,
			wantStatus: 403,
		},
		{
			name:       "version conflict",
			err:        fmt.Errorf("card abc: %w", domain.ErrConflict),
			wantStatus: 409,
		},
		{
			name:       "unknown error",
			err:        errors.New("connection reset"),
			wantStatus: 500,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := mapEngineError(tc.err, "failed to update card")
			assert.Equal(t, tc.wantStatus, statusOf(t, got))
		})
	}

	t.Run("validation detail carries the field", func(t *testing.T) {
		t.Parallel()

		got := mapEngineError(domain.NewValidationError("title", "must not be empty"), "ignored")

		var model *huma.ErrorModel
		require.ErrorAs(t, got, &model)
		assert.Contains(t, model.Detail, "title: must not be empty")
	})

	t.Run("conflict detail tells the client to retry", func(t *testing.T) {
		t.Parallel()

		got := mapEngineError(domain.ErrConflict, "ignored")

		var model *huma.ErrorModel
		require.ErrorAs(t, got, &model)
		assert.Contains(t, model.Detail, "retry")
	})
}

func TestActorFromContext(t *testing.T) {
	t.Parallel()

	t.Run("returns the authenticated actor", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		ctx := context.WithValue(context.Background(), middleware.ContextKeyUserID, userID)
		ctx = context.WithValue(ctx, middleware.ContextKeyGlobalRole, domain.GlobalRoleMember)

		actor, err := actorFromContext(ctx)

		require.NoError(t, err)
		assert.Equal(t, userID, actor.UserID)
	})

	t.Run("missing actor is a 401", func(t *testing.T) {
		t.Parallel()

		_, err := actorFromContext(context.Background())

		assert.Equal(t, 401, statusOf(t, err))
	})
}
