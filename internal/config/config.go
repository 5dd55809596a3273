package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port      int              `json:"port"`
	LogConfig logger.LogConfig `json:"log_config"`
	DB        DatabaseConfig   `json:"db"`
	AI        AIConfig         `json:"ai"`
	Ingest    IngestConfig     `json:"ingest"`
	CORS      []string         `json:"cors_allowlist"`
	// RateLimitSeconds throttles thread creation per client. 0 disables.
	RateLimitSeconds int `json:"rate_limit_seconds"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type ProviderConfig struct {
	Provider string      `json:"provider"`
	Data     interface{} `json:"data"`
}

type AIConfig struct {
	Providers      []ProviderConfig `json:"providers"`
	ChatModel      string           `json:"chat_model"`
	SummaryModel   string           `json:"summary_model"`
	EmbedModel     string           `json:"embed_model"`
	EmbedDimension int              `json:"embed_dimension"`
	Timeout        int              `json:"timeout"`
	EmbedCacheSize int              `json:"embed_cache_size"`
	EmbedCacheTTL  int              `json:"embed_cache_ttl_seconds"`
}

type IngestConfig struct {
	ParentChunkSize    int      `json:"parent_chunk_size"`
	ParentChunkOverlap int      `json:"parent_chunk_overlap"`
	ChildChunkSize     int      `json:"child_chunk_size"`
	ChildChunkOverlap  int      `json:"child_chunk_overlap"`
	EmbedBatchSize     int      `json:"embed_batch_size"`
	MaxDurationSeconds int64    `json:"max_duration_seconds"`
	Languages          []string `json:"languages"`
	RetrieveTopK       int      `json:"retrieve_top_k"`
	CleanupCron        string   `json:"cleanup_cron"`
	CleanupAgeSeconds  int64    `json:"cleanup_age_seconds"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.DB.DSN == "" && cfg.DB.Host == "" {
		return nil, fmt.Errorf("db.dsn or db.host is required")
	}
	if len(cfg.AI.Providers) == 0 {
		return nil, fmt.Errorf("ai.providers is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.ChatModel == "" {
		cfg.AI.ChatModel = "gemini-2.5-flash"
	}
	if cfg.AI.SummaryModel == "" {
		cfg.AI.SummaryModel = "gemini-2.5-flash-lite"
	}
	if cfg.AI.EmbedModel == "" {
		cfg.AI.EmbedModel = "gemini-embedding-001"
	}
	if cfg.AI.EmbedDimension == 0 {
		cfg.AI.EmbedDimension = 768
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 120
	}
	if cfg.AI.EmbedCacheSize == 0 {
		cfg.AI.EmbedCacheSize = 4096
	}
	if cfg.AI.EmbedCacheTTL == 0 {
		cfg.AI.EmbedCacheTTL = 7200
	}
	applyIngestDefaults(&cfg.Ingest)
	return &cfg, nil
}

func applyIngestDefaults(cfg *IngestConfig) {
	if cfg.ParentChunkSize == 0 {
		cfg.ParentChunkSize = 2000
	}
	if cfg.ParentChunkOverlap == 0 {
		cfg.ParentChunkOverlap = 200
	}
	if cfg.ChildChunkSize == 0 {
		cfg.ChildChunkSize = 500
	}
	if cfg.ChildChunkOverlap == 0 {
		cfg.ChildChunkOverlap = 50
	}
	if cfg.EmbedBatchSize == 0 {
		cfg.EmbedBatchSize = 100
	}
	if cfg.MaxDurationSeconds == 0 {
		cfg.MaxDurationSeconds = 1200
	}
	if cfg.RetrieveTopK == 0 {
		cfg.RetrieveTopK = 5
	}
	if cfg.CleanupCron == "" {
		cfg.CleanupCron = "*/30 * * * *"
	}
	if cfg.CleanupAgeSeconds == 0 {
		cfg.CleanupAgeSeconds = 3600
	}
}
