package app

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drstein77/furniturepredictor/internal/config"
	"github.com/drstein77/furniturepredictor/internal/logger"
)

const exampleModel = "../../configs/model.example.json"

func testOptions(t *testing.T, args ...string) *config.Options {
	t.Helper()
	for _, key := range []string{"DATABASE_URI", "MODEL_PATH", "MODEL_BLOB_URL", "MODEL_BLOB_CONNECTION_STRING", "RULES_PATH"} {
		t.Setenv(key, "")
	}

	o := config.NewOptions()
	require.NoError(t, o.Parse(flag.NewFlagSet("test", flag.ContinueOnError), append([]string{"-a", "127.0.0.1:0"}, args...)))
	return o
}

func TestNewServer_WiredBeforeServe(t *testing.T) {
	server, err := newServer(context.Background(), testOptions(t, "-m", exampleModel), logger.Nop())
	require.NoError(t, err)

	assert.NotNil(t, server.srv)
	assert.NotNil(t, server.ledger)
	assert.True(t, server.ready)

	assert.NotPanics(t, func() { server.Shutdown(time.Second) })
}

func TestNewServer_ModelNotMatchingRules(t *testing.T) {
	rules := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte(`
required_fields: [gender, order_priority, product]
categorical_fields: [gender, order_priority, product]
`), 0o600))

	server, err := newServer(context.Background(), testOptions(t, "-m", exampleModel, "-r", rules), logger.Nop())
	require.NoError(t, err)
	defer server.Shutdown(time.Second)

	assert.False(t, server.ready)
}

func TestNewServer_MissingModelStillStarts(t *testing.T) {
	server, err := newServer(context.Background(), testOptions(t, "-m", filepath.Join(t.TempDir(), "none.json")), logger.Nop())
	require.NoError(t, err)
	defer server.Shutdown(time.Second)

	assert.False(t, server.ready)
}

func TestNewServer_BadRules(t *testing.T) {
	_, err := newServer(context.Background(), testOptions(t, "-r", filepath.Join(t.TempDir(), "none.yaml")), logger.Nop())
	assert.ErrorContains(t, err, "failed to load pipeline rules")
}
