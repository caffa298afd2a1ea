package services

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// EnvPrefix prefixes environment overrides: embedding.api_key is read
// from DOCQA_EMBEDDING_API_KEY.
const EnvPrefix = "DOCQA_"

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyServerAddr      = "server.addr"
	keyDataDir         = "storage.data_dir"
	keyIndexDir        = "storage.index_dir"
	keyUploadDir       = "storage.upload_dir"
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedTimeout    = "embedding.timeout"
	keyEmbedRate       = "embedding.requests_per_second"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyLLMTimeout      = "llm.timeout"
	keyChunkSize       = "chunking.chunk_size"
	keyChunkOverlap    = "chunking.overlap"
	keyTopK            = "retrieval.top_k"
	keyIngestWorkers   = "ingestion.workers"
	keyIngestQueueSize = "ingestion.queue_size"
	keyIngestTimeout   = "ingestion.timeout"
)

type valueKind int

const (
	kindString valueKind = iota
	kindProvider
	kindInt
	kindFloat
	kindDuration
)

var settingKinds = map[string]valueKind{
	keyServerAddr:      kindString,
	keyDataDir:         kindString,
	keyIndexDir:        kindString,
	keyUploadDir:       kindString,
	keyEmbedProvider:   kindProvider,
	keyEmbedModel:      kindString,
	keyEmbedBaseURL:    kindString,
	keyEmbedAPIKey:     kindString,
	keyEmbedTimeout:    kindDuration,
	keyEmbedRate:       kindFloat,
	keyLLMProvider:     kindProvider,
	keyLLMModel:        kindString,
	keyLLMBaseURL:      kindString,
	keyLLMAPIKey:       kindString,
	keyLLMTimeout:      kindDuration,
	keyChunkSize:       kindInt,
	keyChunkOverlap:    kindInt,
	keyTopK:            kindInt,
	keyIngestWorkers:   kindInt,
	keyIngestQueueSize: kindInt,
	keyIngestTimeout:   kindDuration,
}

// SettingsService builds domain.AppSettings from the config store with
// environment overrides applied on top.
type SettingsService struct {
	configStore driven.ConfigStore
	lookupEnv   func(string) (string, bool)
	homeDir     func() (string, error)
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		lookupEnv:   os.LookupEnv,
		homeDir:     os.UserHomeDir,
	}
}

// LoadEnvFile loads KEY=value pairs from a .env file into the process
// environment. Variables already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Get returns validated settings. Missing or malformed values fall back to
// defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Server: domain.ServerSettings{
			Addr: s.getString(keyServerAddr, defaults.Server.Addr),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			BaseURL:           s.getString(keyEmbedBaseURL, ""),
			APIKey:            s.getString(keyEmbedAPIKey, ""),
			Timeout:           s.getDuration(keyEmbedTimeout, defaults.Embedding.Timeout),
			RequestsPerSecond: s.getFloat(keyEmbedRate, defaults.Embedding.RequestsPerSecond),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			BaseURL:  s.getString(keyLLMBaseURL, ""),
			APIKey:   s.getString(keyLLMAPIKey, ""),
			Timeout:  s.getDuration(keyLLMTimeout, defaults.LLM.Timeout),
		},
		Chunking: domain.ChunkingSettings{
			ChunkSize: s.getInt(keyChunkSize, defaults.Chunking.ChunkSize),
			Overlap:   s.getInt(keyChunkOverlap, defaults.Chunking.Overlap),
		},
		Retrieval: domain.RetrievalSettings{
			TopK: s.getInt(keyTopK, defaults.Retrieval.TopK),
		},
		Ingestion: domain.IngestionSettings{
			Workers:   s.getInt(keyIngestWorkers, defaults.Ingestion.Workers),
			QueueSize: s.getInt(keyIngestQueueSize, defaults.Ingestion.QueueSize),
			Timeout:   s.getDuration(keyIngestTimeout, defaults.Ingestion.Timeout),
		},
	}

	// Model defaults follow the chosen provider.
	settings.Embedding.Model = s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[settings.Embedding.Provider])
	settings.LLM.Model = s.getString(keyLLMModel, domain.DefaultLLMModels()[settings.LLM.Provider])

	settings.Storage.DataDir = s.getString(keyDataDir, s.defaultDataDir())
	settings.Storage.IndexDir = s.getString(keyIndexDir, filepath.Join(settings.Storage.DataDir, "indexes"))
	settings.Storage.UploadDir = s.getString(keyUploadDir, filepath.Join(settings.Storage.DataDir, "uploads"))

	if err := settings.Validate(); err != nil {
		return settings, err
	}
	return settings, nil
}

// Set validates value for key and persists it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	parsed, err := parseValue(kind, strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}
	if p, ok := parsed.(domain.AIProvider); ok {
		parsed = p.String()
	}
	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys returns the settings keys in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// raw returns the override or stored value for key as text.
func (s *SettingsService) raw(key string) (string, bool) {
	if v, ok := s.lookupEnv(EnvName(key)); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), true
	}
	v, ok := s.configStore.Get(key)
	if !ok || v == nil {
		return "", false
	}
	text := strings.TrimSpace(fmt.Sprint(v))
	return text, text != ""
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if v, ok := s.raw(key); ok {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	if v, ok := s.lookup(key, kindProvider); ok {
		return v.(domain.AIProvider)
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if v, ok := s.lookup(key, kindInt); ok {
		return v.(int)
	}
	return defaultVal
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if v, ok := s.lookup(key, kindFloat); ok {
		return v.(float64)
	}
	return defaultVal
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	if v, ok := s.lookup(key, kindDuration); ok {
		d, err := time.ParseDuration(v.(string))
		if err == nil {
			return d
		}
	}
	return defaultVal
}

func (s *SettingsService) lookup(key string, kind valueKind) (any, bool) {
	text, ok := s.raw(key)
	if !ok {
		return nil, false
	}
	v, err := parseValue(kind, text)
	if err != nil {
		logger.Warn("settings: ignoring %s=%q: %v", key, text, err)
		return nil, false
	}
	return v, true
}

func (s *SettingsService) defaultDataDir() string {
	home, err := s.homeDir()
	if err != nil {
		return filepath.Join(".docqa", "data")
	}
	return filepath.Join(home, ".docqa", "data")
}

var errNegative = errors.New("must not be negative")

// parseValue converts text to the stored form for kind. Durations are kept
// as strings so the TOML file stays readable.
func parseValue(kind valueKind, text string) (any, error) {
	switch kind {
	case kindProvider:
		p := domain.AIProvider(strings.ToLower(text))
		if !p.IsValid() {
			return nil, fmt.Errorf("unknown provider %q", text)
		}
		return p, nil
	case kindInt:
		n, err := strconv.Atoi(text)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, errNegative
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, err
		}
		if f < 0 {
			return nil, errNegative
		}
		return f, nil
	case kindDuration:
		d, err := time.ParseDuration(text)
		if err != nil {
			return nil, err
		}
		if d < 0 {
			return nil, errNegative
		}
		return d.String(), nil
	default:
		return text, nil
	}
}
