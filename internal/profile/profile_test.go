package profile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileFromEnv_Defaults(t *testing.T) {
	p := &Profile{}
	require.NoError(t, p.FromEnv())

	assert.Equal(t, "openai", p.AI.LLMProvider)
	assert.Equal(t, "gpt-4o-mini", p.AI.LLMModel)
	assert.Equal(t, 0.3, p.Runtime.ConfidenceThreshold)
	assert.Equal(t, 10, p.Runtime.MaxHops)
	assert.Equal(t, 30*time.Second, p.Runtime.LLMTimeout)
	assert.Equal(t, "Asia/Almaty", p.Runtime.Timezone)
}

func TestProfileFromEnv_Overrides(t *testing.T) {
	t.Setenv("SECRETARY_LLM_API_KEY", "sk-test")
	t.Setenv("SECRETARY_LLM_MODEL", "deepseek-chat")
	t.Setenv("SECRETARY_CONFIDENCE_THRESHOLD", "0.45")
	t.Setenv("SECRETARY_MAX_HOPS", "4")
	t.Setenv("SECRETARY_LLM_TIMEOUT", "5s")

	p := &Profile{}
	require.NoError(t, p.FromEnv())

	assert.Equal(t, "deepseek-chat", p.AI.LLMModel)
	assert.Equal(t, 0.45, p.Runtime.ConfidenceThreshold)
	assert.Equal(t, 4, p.Runtime.MaxHops)
	assert.Equal(t, 5*time.Second, p.Runtime.LLMTimeout)
	assert.True(t, p.IsAIEnabled())
	// Embedding credentials fall back to the LLM ones.
	assert.Equal(t, "sk-test", p.AI.EmbeddingAPIKey)
}

func TestProfileFromEnv_InvalidValue(t *testing.T) {
	t.Setenv("SECRETARY_MAX_HOPS", "many")

	p := &Profile{}
	assert.Error(t, p.FromEnv())
}

func TestProfileValidate(t *testing.T) {
	dir := t.TempDir()

	t.Run("sqlite dsn derived from data dir", func(t *testing.T) {
		p := &Profile{Mode: "dev", Data: dir, Runtime: RuntimeConfig{ConfidenceThreshold: 0.3}}
		require.NoError(t, p.Validate())
		assert.Equal(t, "sqlite", p.Driver)
		assert.Equal(t, filepath.Join(dir, "secretary_dev.db"), p.DSN)
		assert.Equal(t, 10, p.Runtime.MaxHops)
	})

	t.Run("unknown mode falls back to demo", func(t *testing.T) {
		p := &Profile{Mode: "staging", Data: dir}
		require.NoError(t, p.Validate())
		assert.Equal(t, "demo", p.Mode)
	})

	t.Run("missing data dir", func(t *testing.T) {
		p := &Profile{Mode: "dev", Data: filepath.Join(dir, "nope")}
		assert.Error(t, p.Validate())
	})

	t.Run("threshold out of range", func(t *testing.T) {
		p := &Profile{Mode: "dev", Data: dir, Runtime: RuntimeConfig{ConfidenceThreshold: 1.5}}
		assert.Error(t, p.Validate())
	})
}
