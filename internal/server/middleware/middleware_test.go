package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/flowboard/internal/domain"
	"github.com/gosuda/flowboard/internal/server/middleware"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// contextHandler captures context values set by middleware so tests can
// assert that the correct user and role were injected.
type contextHandler struct {
	userID uuid.UUID
	role   domain.GlobalRole
	called bool
}

func (h *contextHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.userID, _ = middleware.UserIDFromContext(r.Context())
	h.role, _ = middleware.GlobalRoleFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

// signToken issues an HS256 token with the given claims.
func signToken(t *testing.T, secret string, userID uuid.UUID, role string, expiry time.Time) string {
	t.Helper()

	claims := jwt.MapClaims{
		"uid":  userID.String(),
		"role": role,
		"exp":  expiry.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

// ---------------------------------------------------------------------------
// 1. Auth.
// ---------------------------------------------------------------------------

func TestAuth(t *testing.T) {
	t.Parallel()

	t.Run("valid token injects user and role", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		token := signToken(t, testSecret, userID, "admin", time.Now().Add(time.Hour))

		next := &contextHandler{}
		handler := middleware.Auth(testSecret)(next)

		req := httptest.NewRequest(http.MethodGet, "/boards", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.True(t, next.called)
		assert.Equal(t, userID, next.userID)
		assert.Equal(t, domain.GlobalRoleAdmin, next.role)
	})

	t.Run("unknown role falls back to member", func(t *testing.T) {
		t.Parallel()

		token := signToken(t, testSecret, uuid.New(), "wizard", time.Now().Add(time.Hour))

		next := &contextHandler{}
		handler := middleware.Auth(testSecret)(next)

		req := httptest.NewRequest(http.MethodGet, "/boards", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.True(t, next.called)
		assert.Equal(t, domain.GlobalRoleMember, next.role)
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		t.Parallel()

		next := &contextHandler{}
		handler := middleware.Auth(testSecret)(next)

		req := httptest.NewRequest(http.MethodGet, "/boards", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, next.called)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		t.Parallel()

		token := signToken(t, testSecret, uuid.New(), "member", time.Now().Add(-time.Hour))

		next := &contextHandler{}
		handler := middleware.Auth(testSecret)(next)

		req := httptest.NewRequest(http.MethodGet, "/boards", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, next.called)
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		t.Parallel()

		token := signToken(t, "another-secret-another-secret-xx", uuid.New(), "member", time.Now().Add(time.Hour))

		next := &contextHandler{}
		handler := middleware.Auth(testSecret)(next)

		req := httptest.NewRequest(http.MethodGet, "/boards", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, next.called)
	})

	t.Run("malformed uid claim is rejected", func(t *testing.T) {
		t.Parallel()

		claims := jwt.MapClaims{
			"uid":  "not-a-uuid",
			"role": "member",
			"exp":  time.Now().Add(time.Hour).Unix(),
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)

		next := &contextHandler{}
		handler := middleware.Auth(testSecret)(next)

		req := httptest.NewRequest(http.MethodGet, "/boards", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, next.called)
	})
}

// ---------------------------------------------------------------------------
// 2. ActorFromContext.
// ---------------------------------------------------------------------------

func TestActorFromContext(t *testing.T) {
	t.Parallel()

	t.Run("assembles the actor from context values", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		ctx := context.WithValue(context.Background(), middleware.ContextKeyUserID, userID)
		ctx = context.WithValue(ctx, middleware.ContextKeyGlobalRole, domain.GlobalRoleSuperadmin)

		actor, ok := middleware.ActorFromContext(ctx)

		require.True(t, ok)
		assert.Equal(t, userID, actor.UserID)
		assert.Equal(t, domain.GlobalRoleSuperadmin, actor.GlobalRole)
	})

	t.Run("missing values report not ok", func(t *testing.T) {
		t.Parallel()

		_, ok := middleware.ActorFromContext(context.Background())
		assert.False(t, ok)
	})
}

// ---------------------------------------------------------------------------
// 3. RateLimit.
// ---------------------------------------------------------------------------

func TestRateLimit(t *testing.T) {
	t.Parallel()

	t.Run("requests beyond the burst are rejected", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		limited := middleware.RateLimit(ctx, 1, 2)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		userID := uuid.New()
		codes := make([]int, 0, 3)
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodGet, "/boards", nil)
			reqCtx := context.WithValue(req.Context(), middleware.ContextKeyUserID, userID)
			rec := httptest.NewRecorder()
			limited.ServeHTTP(rec, req.WithContext(reqCtx))
			codes = append(codes, rec.Code)
		}

		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	})

	t.Run("limits are tracked per user", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		limited := middleware.RateLimit(ctx, 1, 1)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		// Exhaust the first user's burst.
		first := uuid.New()
		req := httptest.NewRequest(http.MethodGet, "/boards", nil)
		reqCtx := context.WithValue(req.Context(), middleware.ContextKeyUserID, first)
		limited.ServeHTTP(httptest.NewRecorder(), req.WithContext(reqCtx))

		// A second user starts with a fresh bucket.
		second := uuid.New()
		req = httptest.NewRequest(http.MethodGet, "/boards", nil)
		reqCtx = context.WithValue(req.Context(), middleware.ContextKeyUserID, second)
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req.WithContext(reqCtx))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("requests without a user pass through", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		limited := middleware.RateLimit(ctx, 1, 1)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		for i := 0; i < 5; i++ {
			rec := httptest.NewRecorder()
			limited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})
}
