package utils

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDurationEnv(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "10", want: 10 * time.Second},
		{in: "5m", want: 5 * time.Minute},
		{in: `"10s"`, want: 10 * time.Second},
		{in: "'1h'", want: time.Hour},
		{in: "", wantErr: true},
		{in: "soon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDurationEnv(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRedisURL(t *testing.T) {
	addr, password, db, err := ParseRedisURL("rediss://user:pw@redis.example.com:6380/3")
	require.NoError(t, err)
	assert.Equal(t, "redis.example.com:6380", addr)
	assert.Equal(t, "pw", password)
	assert.Equal(t, 3, db)

	_, _, _, err = ParseRedisURL("http://redis.example.com")
	assert.Error(t, err)

	_, _, _, err = ParseRedisURL("redis://redis.example.com/abc")
	assert.Error(t, err)
}

func TestPGViolations(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	assert.Equal(t, "users_email_key", PGConstraintName(err))
	assert.Empty(t, PGConstraintName(errors.New("boom")))
	assert.True(t, IsPGUniqueViolation(err))
	assert.False(t, IsPGForeignKeyViolation(err))

	assert.False(t, IsPGCheckViolation(err))

	assert.True(t, IsPGForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsPGCheckViolation(fmt.Errorf("update: %w", &pgconn.PgError{Code: "23514"})))
	assert.False(t, IsPGUniqueViolation(errors.New("boom")))
}
