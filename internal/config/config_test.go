package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DEPARTMENT_ADMIN_TRANSITIONS", "false")
	t.Setenv("ORPHAN_UPLOAD_TTL", "24h")
	t.Setenv("ORPHAN_CLEANUP_SCHEDULE", "@every 12h")
	t.Setenv("RATE_LIMIT_SUBMIT", "45s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.DepartmentAdminTransitions)
	assert.Equal(t, 24*time.Hour, cfg.OrphanUploadTTL)
	assert.Equal(t, "@every 12h", cfg.OrphanCleanupSchedule)
	assert.Equal(t, 45*time.Second, cfg.SubmitCooldown)
}

func TestLoadDepartmentExtension(t *testing.T) {
	t.Setenv("DEPARTMENT_ADMIN_TRANSITIONS", "true")
	t.Setenv("ORPHAN_UPLOAD_TTL", "90m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.DepartmentAdminTransitions)
	assert.Equal(t, 90*time.Minute, cfg.OrphanUploadTTL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("ORPHAN_UPLOAD_TTL", "24h")
	t.Setenv("DEPARTMENT_ADMIN_TRANSITIONS", "sometimes")
	_, err := Load()
	assert.ErrorContains(t, err, "DEPARTMENT_ADMIN_TRANSITIONS")

	t.Setenv("DEPARTMENT_ADMIN_TRANSITIONS", "false")
	t.Setenv("ORPHAN_UPLOAD_TTL", "a day")
	_, err = Load()
	assert.ErrorContains(t, err, "ORPHAN_UPLOAD_TTL")

	t.Setenv("ORPHAN_UPLOAD_TTL", "24h")
	t.Setenv("RATE_LIMIT_SUBMIT", "soon")
	_, err = Load()
	assert.ErrorContains(t, err, "RATE_LIMIT_SUBMIT")
}
