package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DB_DSN", "")
	t.Setenv("MYSQL_DSN", "")
	t.Setenv("PAIRING_CRON", "")

	cfg := New()

	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Equal(t, "root:root@tcp(localhost:3306)/coffee_chat?parseTime=true&charset=utf8mb4&loc=UTC", cfg.DB.DSN)
	assert.Equal(t, "0 9 * * 1", cfg.Schedule.Cron)
	assert.Equal(t, "UTC", cfg.Schedule.Timezone)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestNew_PostgresDSN(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "")
	t.Setenv("MYSQL_DSN", "")
	t.Setenv("DB_HOST", "pg")
	t.Setenv("DB_NAME", "coffee")

	cfg := New()

	assert.Equal(t, "host=pg port=5432 user=root password=root dbname=coffee sslmode=disable TimeZone=UTC", cfg.DB.DSN)
}

func TestNew_ExplicitDSNWins(t *testing.T) {
	t.Setenv("DB_DSN", "  file:test.db  ")
	t.Setenv("DB_DRIVER", "SQLite")

	cfg := New()

	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "file:test.db", cfg.DB.DSN)
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", " on "} {
		assert.True(t, isTruthy(v), v)
	}
	for _, v := range []string{"", "0", "off", "nope"} {
		assert.False(t, isTruthy(v), v)
	}
}
