package infra

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	// Файла конфигурации в рабочей директории теста нет — загрузка
	// должна пройти на одних дефолтах.
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 9090, cfg.Server.MetricsPort)
	assert.Equal(t, int32(15), cfg.Database.MaxConns)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10000, cfg.Governance.AuditBufferSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Governance.AuditFlushInterval)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoadKeyResourcePrefersEnv(t *testing.T) {
	t.Setenv("AUTH_PUBLIC_KEY_DATA", "-----BEGIN PUBLIC KEY-----")

	data := loadKeyResource("/no/such/file.pem", "AUTH_PUBLIC_KEY_DATA")
	assert.Equal(t, []byte("-----BEGIN PUBLIC KEY-----"), data)

	// ENV пуст, файла нет — ключ отсутствует
	data = loadKeyResource("/no/such/file.pem", "AUTH_MISSING_KEY_DATA")
	assert.Nil(t, data)
}
