package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Embedder EmbedderConfig `yaml:"embedder"`
	LLM      LLMConfig      `yaml:"llm"`
	Index    IndexConfig    `yaml:"index"`
	RAG      RAGConfig      `yaml:"rag"`
}

type ServerConfig struct {
	Address   string `yaml:"address"`
	BodyLimit string `yaml:"body_limit"`
	Debug     bool   `yaml:"debug"`
}

// EmbedderConfig configures the embedding client. APIKeyEnv names the
// environment variable holding the key so secrets stay out of the file.
type EmbedderConfig struct {
	Provider  string `yaml:"provider"` // "openai" or "ollama"
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

func (c *EmbedderConfig) Key() string { return os.Getenv(c.APIKeyEnv) }

// LLMConfig configures the answer-synthesis client.
type LLMConfig struct {
	Provider  string `yaml:"provider"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

func (c *LLMConfig) Key() string { return os.Getenv(c.APIKeyEnv) }

// IndexConfig selects the vector index backend: "chromem" (embedded,
// persisted under Path) or "pgvector" (Postgres via DSN).
type IndexConfig struct {
	Type     string `yaml:"type"`
	Path     string `yaml:"path"`
	Compress bool   `yaml:"compress"`
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type RAGConfig struct {
	ChunkSize          int `yaml:"chunk_size"`    // characters
	ChunkOverlap       int `yaml:"chunk_overlap"` // characters
	TopK               int `yaml:"top_k"`
	MaxAttempts        int `yaml:"max_attempts"`
	RetryInitialMS     int `yaml:"retry_initial_ms"`
	RequestTimeoutSecs int `yaml:"request_timeout_secs"`
	IndexConcurrency   int `yaml:"index_concurrency"`
}

func (c *RAGConfig) RetryInitial() time.Duration {
	return time.Duration(c.RetryInitialMS) * time.Millisecond
}

func (c *RAGConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a config with all defaults applied, for tools that run
// without a config file.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.BodyLimit == "" {
		cfg.Server.BodyLimit = "32M"
	}
	if cfg.Embedder.Provider == "" {
		cfg.Embedder.Provider = "ollama"
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "nomic-embed-text"
	}
	if cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = 768
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = 32
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = cfg.Embedder.Provider
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 1024
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "chromem"
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = "./chromemdb"
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 1000
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = 150
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = 5
	}
	if cfg.RAG.MaxAttempts == 0 {
		cfg.RAG.MaxAttempts = 3
	}
	if cfg.RAG.RetryInitialMS == 0 {
		cfg.RAG.RetryInitialMS = 250
	}
	if cfg.RAG.RequestTimeoutSecs == 0 {
		cfg.RAG.RequestTimeoutSecs = 60
	}
	if cfg.RAG.IndexConcurrency == 0 {
		cfg.RAG.IndexConcurrency = 4
	}
}
