package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseSQLAdapter_Disconnect(t *testing.T) {
	tests := []struct {
		name    string
		setupDB bool
	}{
		{name: "disconnect with nil DB"},
		{name: "disconnect with open DB", setupDB: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}
			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				mock.ExpectClose()
				base.Handle = db
			}

			require.NoError(t, base.Disconnect())
			assert.False(t, base.IsConnected())
			assert.Nil(t, base.DB())
		})
	}
}

func TestBaseSQLAdapter_Exec(t *testing.T) {
	tests := []struct {
		name      string
		setupDB   bool
		setupMock func(mock sqlmock.Sqlmock)
		sql       string
		want      int64
		errMsg    string
	}{
		{
			name:   "exec without connection",
			sql:    "SELECT 1",
			errMsg: "database connection not established",
		},
		{
			name:    "exec success",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("DELETE FROM users").WillReturnResult(sqlmock.NewResult(0, 3))
			},
			sql:  "DELETE FROM users",
			want: 3,
		},
		{
			name:    "exec with error",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INVALID SQL").WillReturnError(assert.AnError)
			},
			sql:    "INVALID SQL",
			errMsg: "failed to execute SQL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}
			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				defer db.Close()
				tt.setupMock(mock)
				base.Handle = db
			}

			n, err := base.Exec(context.Background(), tt.sql)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestBaseSQLAdapter_Query(t *testing.T) {
	tests := []struct {
		name      string
		setupDB   bool
		setupMock func(mock sqlmock.Sqlmock)
		wantLen   int
		errMsg    string
	}{
		{
			name:   "query without connection",
			errMsg: "database connection not established",
		},
		{
			name:    "query success",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "name"}).
					AddRow(int64(1), "alice").
					AddRow(int64(2), "bob")
				mock.ExpectQuery("SELECT").WillReturnRows(rows)
			},
			wantLen: 2,
		},
		{
			name:    "query with error",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)
			},
			errMsg: "failed to execute query",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}
			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				defer db.Close()
				tt.setupMock(mock)
				base.Handle = db
			}

			rows, err := base.Query(context.Background(), "SELECT id, name FROM users")
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, rows.Len())
		})
	}
}

func TestBaseSQLAdapter_Open(t *testing.T) {
	base := &BaseSQLAdapter{}
	err := base.Open(context.Background(), "no_such_driver", "", Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open no_such_driver connection")
	assert.False(t, base.IsConnected())
}
