package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

// testSecret is long enough to pass the 32-character minimum.
const testSecret = "0123456789abcdef0123456789abcdef"

// ---------------------------------------------------------------------------
// Helper function tests
// ---------------------------------------------------------------------------

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string // nil = don't set; pointer to distinguish "" from unset
		fallback string
		want     string
	}{
		{name: "returns fallback when unset", key: "FLOWBOARD_TEST_GETENV_UNSET", setVal: nil, fallback: "default", want: "default"},
		{name: "returns env value when set", key: "FLOWBOARD_TEST_GETENV_SET", setVal: strPtr("custom"), fallback: "default", want: "custom"},
		{name: "returns fallback when empty string", key: "FLOWBOARD_TEST_GETENV_EMPTY", setVal: strPtr(""), fallback: "default", want: "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got := getEnv(tc.key, tc.fallback)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback int
		want     int
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "FLOWBOARD_TEST_INT_UNSET", setVal: nil, fallback: 42, want: 42},
		{name: "parses valid int", key: "FLOWBOARD_TEST_INT_VALID", setVal: strPtr("8080"), fallback: 0, want: 8080},
		{name: "returns fallback for empty string", key: "FLOWBOARD_TEST_INT_EMPTY", setVal: strPtr(""), fallback: 25, want: 25},
		{name: "errors on non-numeric", key: "FLOWBOARD_TEST_INT_NAN", setVal: strPtr("abc"), fallback: 0, wantErr: true},
		{name: "errors on float", key: "FLOWBOARD_TEST_INT_FLOAT", setVal: strPtr("3.14"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvInt(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvFloat(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback float64
		want     float64
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "FLOWBOARD_TEST_FLOAT_UNSET", setVal: nil, fallback: 100, want: 100},
		{name: "parses valid float", key: "FLOWBOARD_TEST_FLOAT_VALID", setVal: strPtr("12.5"), fallback: 0, want: 12.5},
		{name: "parses integer literal", key: "FLOWBOARD_TEST_FLOAT_INT", setVal: strPtr("50"), fallback: 0, want: 50},
		{name: "errors on non-numeric", key: "FLOWBOARD_TEST_FLOAT_NAN", setVal: strPtr("fast"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvFloat(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback time.Duration
		want     time.Duration
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "FLOWBOARD_TEST_DUR_UNSET", setVal: nil, fallback: 10 * time.Second, want: 10 * time.Second},
		{name: "parses duration", key: "FLOWBOARD_TEST_DUR_VALID", setVal: strPtr("1m30s"), fallback: 0, want: 90 * time.Second},
		{name: "errors on bare number", key: "FLOWBOARD_TEST_DUR_BARE", setVal: strPtr("30"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvDuration(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvList(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback []string
		want     []string
	}{
		{name: "returns fallback when unset", key: "FLOWBOARD_TEST_LIST_UNSET", setVal: nil, fallback: []string{"a"}, want: []string{"a"}},
		{name: "splits on comma", key: "FLOWBOARD_TEST_LIST_SPLIT", setVal: strPtr("a,b,c"), fallback: nil, want: []string{"a", "b", "c"}},
		{name: "trims whitespace and drops empties", key: "FLOWBOARD_TEST_LIST_TRIM", setVal: strPtr(" a , ,b "), fallback: nil, want: []string{"a", "b"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got := getEnvList(tc.key, tc.fallback)
			assert.Equal(t, tc.want, got)
		})
	}
}

// ---------------------------------------------------------------------------
// Load + validate
// ---------------------------------------------------------------------------

func TestLoad(t *testing.T) {
	t.Run("defaults with a valid secret", func(t *testing.T) {
		t.Setenv("FLOWBOARD_JWT_SECRET", testSecret)

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, 25, cfg.Database.MaxConns)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
		assert.Equal(t, float64(100), cfg.Server.RateLimitRPS)
		assert.Equal(t, 200, cfg.Server.RateLimitBurst)
		assert.Equal(t, "#flowboard", cfg.Slack.Channel)
	})

	t.Run("missing JWT secret is rejected", func(t *testing.T) {
		_, err := Load()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "FLOWBOARD_JWT_SECRET")
	})

	t.Run("short JWT secret is rejected", func(t *testing.T) {
		t.Setenv("FLOWBOARD_JWT_SECRET", "too-short")

		_, err := Load()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "32 characters")
	})

	t.Run("out-of-range DB port is rejected", func(t *testing.T) {
		t.Setenv("FLOWBOARD_JWT_SECRET", testSecret)
		t.Setenv("FLOWBOARD_DB_PORT", "70000")

		_, err := Load()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "FLOWBOARD_DB_PORT")
	})

	t.Run("non-positive rate limit is rejected", func(t *testing.T) {
		t.Setenv("FLOWBOARD_JWT_SECRET", testSecret)
		t.Setenv("FLOWBOARD_RATE_LIMIT_RPS", "0")

		_, err := Load()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "FLOWBOARD_RATE_LIMIT_RPS")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()

	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "flowboard",
		Password: "hunter2",
		DBName:   "flowboard_prod",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.internal port=5433 user=flowboard password=hunter2 dbname=flowboard_prod sslmode=require",
		cfg.DSN(),
	)
}
