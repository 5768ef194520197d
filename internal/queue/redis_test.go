package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		name         string
		redisURL     string
		wantAddr     string
		wantPassword string
		wantDB       int
		wantTLS      bool
		wantError    bool
	}{
		{
			name:     "legacy host:port",
			redisURL: "localhost:6379",
			wantAddr: "localhost:6379",
		},
		{
			name:     "redis scheme",
			redisURL: "redis://localhost:6379",
			wantAddr: "localhost:6379",
		},
		{
			name:         "redis with password and db",
			redisURL:     "redis://:secret@redis.example.com:6380/2",
			wantAddr:     "redis.example.com:6380",
			wantPassword: "secret",
			wantDB:       2,
		},
		{
			name:     "rediss enables TLS",
			redisURL: "rediss://redis.example.com:6380",
			wantAddr: "redis.example.com:6380",
			wantTLS:  true,
		},
		{
			name:      "unsupported scheme",
			redisURL:  "http://localhost:6379",
			wantError: true,
		},
		{
			name:      "missing host",
			redisURL:  "redis://",
			wantError: true,
		},
		{
			name:      "invalid db number",
			redisURL:  "redis://localhost:6379/abc",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRedisURL(tt.redisURL)
			if tt.wantError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, got.Addr)
			assert.Equal(t, tt.wantPassword, got.Password)
			assert.Equal(t, tt.wantDB, got.DB)
			assert.Equal(t, tt.wantTLS, got.TLSConfig != nil)
		})
	}
}
