package config

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	for _, key := range []string{"RUN_ADDRESS", "LOG_LEVEL", "DATABASE_URI", "MODEL_PATH", "RULES_PATH", "MAX_UPLOAD_BYTES", "CORS_ORIGINS"} {
		t.Setenv(key, "")
	}

	o := NewOptions()
	require.NoError(t, o.Parse(flag.NewFlagSet("test", flag.ContinueOnError), nil))

	assert.Equal(t, ":8080", o.RunAddr())
	assert.Equal(t, "info", o.LogLevel())
	assert.Empty(t, o.DataBaseDSN())
	assert.Empty(t, o.ModelPath())
	assert.Equal(t, int64(16<<20), o.MaxUploadBytes())
	assert.Equal(t, []string{"*"}, o.CORSOrigins())
}

func TestParse_EnvThenFlags(t *testing.T) {
	t.Setenv("RUN_ADDRESS", ":9000")
	t.Setenv("DATABASE_URI", "postgres://env")
	t.Setenv("MODEL_PATH", "/env/model.json")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")

	o := NewOptions()
	err := o.Parse(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-d", "postgres://flag", "-r", "rules.yaml"})
	require.NoError(t, err)

	assert.Equal(t, ":9000", o.RunAddr())
	assert.Equal(t, "postgres://flag", o.DataBaseDSN())
	assert.Equal(t, "/env/model.json", o.ModelPath())
	assert.Equal(t, "rules.yaml", o.RulesPath())
	assert.Equal(t, int64(1024), o.MaxUploadBytes())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, o.CORSOrigins())
}

func TestParse_InvalidUploadLimitFallsBack(t *testing.T) {
	t.Setenv("MAX_UPLOAD_BYTES", "lots")

	o := NewOptions()
	require.NoError(t, o.Parse(flag.NewFlagSet("test", flag.ContinueOnError), nil))
	assert.Equal(t, defaultMaxUploadBytes, o.MaxUploadBytes())
}
