package cli

import (
	"bufio"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsShowCmd_Executes(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.settings.LLM.Provider = "openai"
	ts.settings.settings.LLM.APIKey = "sk-test-1234567890"

	out, err := execute(t, "settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Address: :8000")
	assert.Contains(t, out, "Provider: OpenAI (cloud)")
	assert.Contains(t, out, "API Key: sk-t...7890")
	assert.NotContains(t, out, "sk-test-1234567890")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestSettingsShowCmd_WarnsOnInvalidSettings(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.getErr = errors.New("llm.api_key is required for openai")

	out, err := execute(t, "settings")

	require.NoError(t, err)
	assert.Contains(t, out, "Warning: llm.api_key is required for openai")
}

func TestSettingsSetCmd_MasksAPIKeys(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "settings", "set", "llm.api_key", "sk-test-1234567890")

	require.NoError(t, err)
	assert.Equal(t, "llm.api_key = sk-t...7890\n", out)
	assert.Equal(t, "sk-test-1234567890", ts.settings.values["llm.api_key"])
}

func TestSettingsSetCmd_UnknownKey(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "settings", "set", "search.mode", "hybrid")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown setting")
}

func TestSettingsKeysCmd_ListsKeys(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "settings", "keys")

	require.NoError(t, err)
	assert.Contains(t, out, "embedding.provider\n")
	assert.Contains(t, out, "server.addr\n")
}

func TestSettingsLLMCmd_ConfiguresOpenAI(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	original := settingsInput
	settingsInput = strings.NewReader("2\n\nsk-test-1234567890\n")
	defer func() { settingsInput = original }()

	out, err := execute(t, "settings", "llm")

	require.NoError(t, err)
	assert.Contains(t, out, "LLM provider configured: OpenAI (cloud) (gpt-4o-mini)")
	assert.Equal(t, map[string]string{
		"llm.provider": "openai",
		"llm.model":    "gpt-4o-mini",
		"llm.api_key":  "sk-test-1234567890",
	}, ts.settings.values)
}

func TestSettingsEmbeddingCmd_DefaultsToOllama(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	original := settingsInput
	settingsInput = strings.NewReader("\nmxbai-embed-large\n")
	defer func() { settingsInput = original }()

	_, err := execute(t, "settings", "embedding")

	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"embedding.provider": "ollama",
		"embedding.model":    "mxbai-embed-large",
	}, ts.settings.values)
}

func TestSettingsLLMCmd_RequiresAPIKey(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	original := settingsInput
	settingsInput = strings.NewReader("2\n\n\n")
	defer func() { settingsInput = original }()

	_, err := execute(t, "settings", "llm")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		input      string
		maxVal     int
		defaultVal int
		want       int
	}{
		{"", 2, 1, 1},
		{"2", 2, 1, 2},
		{"3", 2, 1, 1},
		{"0", 2, 1, 1},
		{"abc", 2, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseChoice(tt.input, tt.maxVal, tt.defaultVal), tt.input)
	}
}

func TestReadLine_TrimsWhitespace(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("  llama3.2  \nnext\n"))
	assert.Equal(t, "llama3.2", readLine(reader))
	assert.Equal(t, "next", readLine(reader))
	assert.Equal(t, "", readLine(reader))
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "****", maskAPIKey("12345678"))
	assert.Equal(t, "sk-a...wxyz", maskAPIKey("sk-abcdefghijklmnopqrstuvwxyz"))
}

func TestSettingsCmds_ServiceNotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	SetServices(Services{})

	for _, args := range [][]string{{"settings", "show"}, {"settings", "set", "a", "b"}, {"settings", "keys"}} {
		_, err := execute(t, args...)
		require.Error(t, err, args)
		assert.Contains(t, err.Error(), "settings service not configured")
	}
}
