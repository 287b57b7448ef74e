package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitConfigMissingFile(t *testing.T) {
	cfg, err := InitConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Nil(t, err)
	assert.Equal(t, "8000", cfg.ListenPort)
	assert.Equal(t, "https://api.replicate.com", cfg.ApiBase)
	assert.Equal(t, 4, cfg.MaxOutputs)
}

func TestInitConfigOverlay(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "config.yaml")
	body := "listenPort: \"9000\"\npollInterval: 2\nimageOutputDir: /data/images\n"
	assert.Nil(t, os.WriteFile(fn, []byte(body), 0666))

	cfg, err := InitConfig(fn)
	assert.Nil(t, err)
	assert.Equal(t, "9000", cfg.ListenPort)
	assert.Equal(t, int32(2), cfg.PollInterval)
	assert.Equal(t, "/data/images", cfg.ImageOutputDir)
	// untouched keys keep defaults
	assert.Equal(t, int32(300), cfg.WaitCeiling)
}

func TestInitConfigMalformedFallsBack(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "config.yaml")
	assert.Nil(t, os.WriteFile(fn, []byte("{{{ nope"), 0666))

	cfg, err := InitConfig(fn)
	assert.NotNil(t, err)
	assert.Equal(t, "8000", cfg.ListenPort)
}

func TestTokenFromEnv(t *testing.T) {
	t.Setenv(API_TOKEN, "r8_env_token")
	cfg, err := InitConfig("")
	assert.Nil(t, err)
	assert.Equal(t, "r8_env_token", cfg.ApiToken)
}
