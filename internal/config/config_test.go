package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("MINIO_ACCESS_KEY_ID", "minio")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "minio-secret")
	t.Setenv("SUPABASE_JWT_SECRET", "jwt-secret")
	t.Setenv("GROQ_API_KEY", "groq")
	t.Setenv("DEEPSEEK_API_KEY", "deepseek")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.API.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.API.Origins())
	assert.Equal(t, "jwt", cfg.Auth.Mode)
	assert.Equal(t, "groq", cfg.AI.EnhanceProvider)
	assert.Equal(t, "deepseek-chat", cfg.AI.DeepSeekModel)
	assert.Equal(t, 2000, cfg.AI.EnhanceMaxTokens)
	assert.Equal(t, 8192, cfg.AI.GenerateMaxTokens)
	assert.Equal(t, 5*time.Minute, cfg.AI.RequestTimeout)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "8088")
	t.Setenv("FRONTEND_URL", "https://a.example, https://b.example ,")
	t.Setenv("AUTH_MODE", "gotrue")
	t.Setenv("SUPABASE_URL", "https://abc.supabase.co")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.API.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.API.Origins())
	assert.Equal(t, "gotrue", cfg.Auth.Mode)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "missing deepseek key", env: map[string]string{"DEEPSEEK_API_KEY": ""}, want: "deepseek api key is required"},
		{name: "unknown auth mode", env: map[string]string{"AUTH_MODE": "magic"}, want: `unknown auth mode "magic"`},
		{name: "gemini without key", env: map[string]string{"ENHANCE_PROVIDER": "gemini"}, want: "gemini api key is required"},
		{name: "gotrue without url", env: map[string]string{"AUTH_MODE": "gotrue"}, want: "supabase url and service role key are required in gotrue auth mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, Name: "app", User: "u", Password: "p", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=app sslmode=disable", d.DSN())
}
