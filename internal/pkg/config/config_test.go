package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acquisitions/acquisitions-api/internal/core/domain"
	"github.com/acquisitions/acquisitions-api/internal/infrastructure/classifier"
)

func load(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	return LoadFrom(context.Background(), envconfig.MapLookuper(env))
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := load(t, map[string]string{"JWT_SECRET": "dev"})
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "token", cfg.Auth.CookieName)
	assert.Equal(t, "live", cfg.Admission.Mode)
	assert.Equal(t, "memory", cfg.Admission.Backend)
	assert.Equal(t, 2*time.Second, cfg.Admission.ClassifierTimeout)
	assert.False(t, cfg.Admission.PreAuthenticate)
	assert.False(t, cfg.Auth.AllowAdminSignUp)
	assert.Equal(t, "none", cfg.Audit.Sink)
}

func TestLoadFrom_SecretRequired(t *testing.T) {
	_, err := load(t, map[string]string{})
	assert.Error(t, err)
}

func TestLoadFrom_ShortSecretOutsideDevelopment(t *testing.T) {
	_, err := load(t, map[string]string{"JWT_SECRET": "short", "ENV": "production"})
	assert.Error(t, err)

	_, err = load(t, map[string]string{"JWT_SECRET": "a-long-enough-production-secret", "ENV": "production"})
	assert.NoError(t, err)
}

func TestLoadFrom_RejectsUnknownEnums(t *testing.T) {
	cases := map[string]map[string]string{
		"mode":     {"ADMISSION_MODE": "shadow"},
		"backend":  {"ADMISSION_BACKEND": "memcached"},
		"sink":     {"AUDIT_SINK": "kafka"},
		"samesite": {"COOKIE_SAMESITE": "none"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			env["JWT_SECRET"] = "dev"
			_, err := load(t, env)
			assert.Error(t, err)
		})
	}
}

func TestAdmissionConfig_BudgetsFromEnv(t *testing.T) {
	cfg, err := load(t, map[string]string{"JWT_SECRET": "dev"})
	require.NoError(t, err)

	budgets, err := cfg.Admission.Budgets(nil)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultBudgets(), budgets)
}

func TestAdmissionConfig_BudgetsRejectInverted(t *testing.T) {
	cfg, err := load(t, map[string]string{"JWT_SECRET": "dev", "ADMISSION_GUEST_LIMIT": "50"})
	require.NoError(t, err)

	_, err = cfg.Admission.Budgets(nil)
	assert.Error(t, err)
}

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadPolicy_Overlay(t *testing.T) {
	path := writePolicy(t, `
budgets:
  admin: {window: 30s, max_requests: 100}
  guest: {max_requests: 2}
bot:
  deny_user_agents: ["curl"]
  block_empty_user_agent: false
shield:
  inspect_headers: ["X-Forwarded-Host"]
`)
	p, err := LoadPolicy(path)
	require.NoError(t, err)

	cfg, err := load(t, map[string]string{"JWT_SECRET": "dev"})
	require.NoError(t, err)

	budgets, err := cfg.Admission.Budgets(p)
	require.NoError(t, err)
	assert.Equal(t, domain.Budget{Class: domain.ClassAdmin, Window: 30 * time.Second, MaxRequests: 100}, budgets[domain.ClassAdmin])
	assert.Equal(t, domain.Budget{Class: domain.ClassGuest, Window: time.Minute, MaxRequests: 2}, budgets[domain.ClassGuest])
	assert.Equal(t, 10, budgets[domain.ClassUser].MaxRequests)

	rules := p.Rules()
	assert.Equal(t, []string{"curl"}, rules.BotDeny)
	assert.False(t, rules.BlockEmptyUserAgent)
	assert.Equal(t, []string{"X-Forwarded-Host"}, rules.InspectHeaders)
	assert.NotEmpty(t, rules.ShieldPatterns)
}

func TestLoadPolicy_UnknownField(t *testing.T) {
	path := writePolicy(t, "budgets:\n  guest: {max_request: 2}\n")
	_, err := LoadPolicy(path)
	assert.Error(t, err)
}

func TestLoadPolicy_UnknownClass(t *testing.T) {
	path := writePolicy(t, "budgets:\n  robot: {max_requests: 2}\n")
	p, err := LoadPolicy(path)
	require.NoError(t, err)

	cfg, err := load(t, map[string]string{"JWT_SECRET": "dev"})
	require.NoError(t, err)
	_, err = cfg.Admission.Budgets(p)
	assert.Error(t, err)
}

func TestLoadPolicy_MissingFile(t *testing.T) {
	_, err := LoadPolicy(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestPolicyRules_NilKeepsDefaults(t *testing.T) {
	var p *AdmissionPolicy
	assert.Equal(t, classifier.DefaultRulesConfig(), p.Rules())
}
