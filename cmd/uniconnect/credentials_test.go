package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/uniconnect/config"
	"github.com/BaSui01/uniconnect/types"
)

func mapEnv(m map[string]string) envLookup {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestProviderEnvKey(t *testing.T) {
	assert.Equal(t, "OPENAI_API_KEY", providerEnvKey("openai"))
	assert.Equal(t, "MY_PROXY_API_KEY", providerEnvKey("my-proxy"))
}

func TestResolveCredential(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		env      map[string]string
		want     string
	}{
		{"flag wins", "flag", map[string]string{"ACME_API_KEY": "p", "API_KEY": "g"}, "flag"},
		{"provider env", "", map[string]string{"ACME_API_KEY": "p", "API_KEY": "g"}, "p"},
		{"generic env", "", map[string]string{"API_KEY": "g"}, "g"},
		{"empty provider value falls through", "", map[string]string{"ACME_API_KEY": "", "API_KEY": "g"}, "g"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveCredential(tt.explicit, "acme", mapEnv(tt.env))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := resolveCredential("", "acme", mapEnv(nil))
	assert.ErrorIs(t, err, types.ErrMissingCredential)
	assert.Contains(t, err.Error(), "ACME_API_KEY")
}

func TestLayeredEnv(t *testing.T) {
	lookup := layeredEnv(mapEnv(map[string]string{"A": "process"}),
		map[string]string{"A": "file", "B": "file"},
		map[string]string{"C": "second"},
	)
	v, _ := lookup("A")
	assert.Equal(t, "process", v)
	v, _ = lookup("B")
	assert.Equal(t, "file", v)
	v, _ = lookup("C")
	assert.Equal(t, "second", v)
	_, ok := lookup("D")
	assert.False(t, ok)

	v, ok = layeredEnv(nil, map[string]string{"X": "1"})("X")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nOPENAI_API_KEY=sk-1\nexport API_KEY=\"quoted\"\n"), 0o600))

	values, err := loadDotEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-1", values["OPENAI_API_KEY"])
	assert.Equal(t, "quoted", values["API_KEY"])

	values, err = loadDotEnv(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
	assert.Nil(t, values)

	values, err = loadDotEnv("")
	assert.NoError(t, err)
	assert.Nil(t, values)
}

func TestInitLogger(t *testing.T) {
	cfg := config.DefaultLogConfig()
	cfg.Level = "warn"
	logger := initLogger(cfg)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	cfg.Level = "chatty"
	cfg.Format = "json"
	logger = initLogger(cfg)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}
