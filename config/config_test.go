package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("JWT_ACCESS_TTL", "")
	t.Setenv("ES_TIMEOUT", "")

	cfg := Load()
	assert.Equal(t, "mongo", cfg.StoreDriver)
	assert.Equal(t, time.Hour, cfg.AccessTTL)
	assert.True(t, cfg.MailSendEnabled)
	assert.Empty(t, cfg.ESAddrs())
	assert.Equal(t, 5*time.Second, cfg.ESTimeout)
	assert.Equal(t, 5*time.Second, cfg.DBPingTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("JWT_ACCESS_TTL", "15m")
	t.Setenv("MAIL_SEND_ENABLED", "false")
	t.Setenv("SMTP_PORT", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", " http://a.test , ,http://b.test")

	cfg := Load()
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.False(t, cfg.MailSendEnabled)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins())
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "5432", DBName: "d", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", cfg.PostgresDSN())
}
