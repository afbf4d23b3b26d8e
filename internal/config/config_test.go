package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedactDSN(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{
			name: "user and password",
			dsn:  "numislive:s3cret@tcp(localhost:3306)/numislive?parseTime=true",
			want: "numislive:***@tcp(localhost:3306)/numislive?parseTime=true",
		},
		{
			name: "user without password",
			dsn:  "numislive@tcp(localhost:3306)/numislive",
			want: "numislive@tcp(localhost:3306)/numislive",
		},
		{
			name: "no credentials",
			dsn:  "tcp(localhost:3306)/numislive",
			want: "tcp(localhost:3306)/numislive",
		},
		{
			name: "empty",
			dsn:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, redactDSN(tt.dsn))
		})
	}
}

func TestGetConfigStringHidesPassword(t *testing.T) {
	cfg := &Config{
		MySQL: MySQLConfig{DSN: "numislive:hunter2@tcp(db:3306)/numislive"},
	}

	out := cfg.GetConfigString()
	require.NotContains(t, out, "hunter2")
	require.Contains(t, out, "numislive:***@tcp(db:3306)/numislive")
}
