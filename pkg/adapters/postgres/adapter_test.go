package postgres

import (
	"testing"

	"github.com/leapstack-labs/sqlfront/pkg/adapter"
	"github.com/leapstack-labs/sqlfront/pkg/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsDSN(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   string
	}{
		{
			name: "defaults",
			want: "host=localhost port=5432 sslmode=disable",
		},
		{
			name: "all fields",
			params: map[string]any{
				"host":     "db.internal",
				"port":     "6543",
				"database": "shop",
				"user":     "app",
				"password": "secret",
				"sslmode":  "require",
			},
			want: "host=db.internal port=6543 dbname=shop sslmode=require user=app password=secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := parseParams(tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.DSN())
		})
	}
}

func TestRegistered(t *testing.T) {
	assert.True(t, adapter.IsRegistered("postgres"))

	a, err := adapter.NewAdapter(adapter.Config{Driver: "postgres"}, nil)
	require.NoError(t, err)
	assert.Same(t, dialect.Postgres, a.Dialect())
	assert.Nil(t, a.DB())
}
