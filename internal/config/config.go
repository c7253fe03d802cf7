// Package config loads and validates HippoMind configuration.
//
// Configuration is applied in order of increasing precedence: hardcoded
// defaults, user config (~/.config/hippomind/config.yaml), project config
// (.hippomind.yaml in the working directory), then HIPPOMIND_* environment
// variables.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete HippoMind configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Cluster    ClusterConfig    `yaml:"cluster" json:"cluster"`
	Followup   FollowupConfig   `yaml:"followup" json:"followup"`
	Sessions   SessionsConfig   `yaml:"sessions" json:"sessions"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	LLM        LLMConfig        `yaml:"llm" json:"llm"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// PathsConfig configures on-disk locations.
type PathsConfig struct {
	// IndexDir holds the dense index, sparse index, and payload database.
	IndexDir string `yaml:"index_dir" json:"index_dir"`
}

// SearchConfig configures hybrid retrieval and fusion.
type SearchConfig struct {
	// TopK is the number of chunks requested from each retrieval channel.
	TopK int `yaml:"top_k" json:"top_k"`

	// DenseWeight is the fusion weight for dense (semantic) ranks.
	// Must sum to 1.0 with SparseWeight.
	DenseWeight float64 `yaml:"dense_weight" json:"dense_weight"`

	// SparseWeight is the fusion weight for sparse (keyword) ranks.
	SparseWeight float64 `yaml:"sparse_weight" json:"sparse_weight"`

	// RRFConstant is the reciprocal rank fusion smoothing parameter.
	// Higher values reduce the impact of rank differences.
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`

	// DirectMatchThreshold is the normalized top score at or above which
	// a query is answered immediately without clustering.
	DirectMatchThreshold float64 `yaml:"direct_match_threshold" json:"direct_match_threshold"`
}

// ClusterConfig configures density clustering of candidate files.
type ClusterConfig struct {
	// MinClusterSize is the floor for cluster membership; the effective
	// minimum also scales with the candidate count.
	MinClusterSize int `yaml:"min_cluster_size" json:"min_cluster_size"`

	// MaxClusters caps how many groups are offered per round.
	MaxClusters int `yaml:"max_clusters" json:"max_clusters"`

	// Epsilon is the neighborhood radius on normalized vectors.
	Epsilon float64 `yaml:"epsilon" json:"epsilon"`

	// ExhaustedFileThreshold is the candidate count at or below which a
	// round reports the remaining files instead of clustering further.
	ExhaustedFileThreshold int `yaml:"exhausted_file_threshold" json:"exhausted_file_threshold"`

	// LabelCacheTTL bounds how long generated cluster labels are reused.
	LabelCacheTTL time.Duration `yaml:"label_cache_ttl" json:"label_cache_ttl"`
}

// FollowupConfig configures clarification questions.
type FollowupConfig struct {
	// Max is the ceiling on follow-up questions per session.
	Max int `yaml:"max" json:"max"`
}

// SessionsConfig configures the in-memory session registry.
type SessionsConfig struct {
	// InactivityTimeout is how long an untouched session survives.
	InactivityTimeout time.Duration `yaml:"inactivity_timeout" json:"inactivity_timeout"`

	// SweepInterval is how often expired sessions are reaped.
	SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the embedder: "ollama" or "static".
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
}

// LLMConfig configures the generative model used for query expansion,
// cluster labelling, and follow-up questions.
type LLMConfig struct {
	Host       string        `yaml:"host" json:"host"`
	Model      string        `yaml:"model" json:"model"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries int           `yaml:"max_retries" json:"max_retries"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			IndexDir: defaultIndexDir(),
		},
		Search: SearchConfig{
			TopK:                 100,
			DenseWeight:          0.7,
			SparseWeight:         0.3,
			RRFConstant:          60,
			DirectMatchThreshold: 0.85,
		},
		Cluster: ClusterConfig{
			MinClusterSize:         5,
			MaxClusters:            4,
			Epsilon:                0.35,
			ExhaustedFileThreshold: 3,
			LabelCacheTTL:          15 * time.Minute,
		},
		Followup: FollowupConfig{
			Max: 3,
		},
		Sessions: SessionsConfig{
			InactivityTimeout: 30 * time.Minute,
			SweepInterval:     5 * time.Minute,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "ollama",
			Model:      "nomic-embed-text",
			Dimensions: 768,
			OllamaHost: "http://localhost:11434",
		},
		LLM: LLMConfig{
			Host:       "http://localhost:11434",
			Model:      "llama3.2",
			Timeout:    20 * time.Second,
			MaxRetries: 2,
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

// defaultIndexDir returns the default index directory, ~/.hippomind/index.
func defaultIndexDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".hippomind", "index")
	}
	return filepath.Join(home, ".hippomind", "index")
}

// GetUserConfigPath returns the path to the user configuration file.
// It follows the XDG Base Directory convention:
//   - $XDG_CONFIG_HOME/hippomind/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/hippomind/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hippomind", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "hippomind", "config.yaml")
	}
	return filepath.Join(home, ".config", "hippomind", "config.yaml")
}

// Load loads configuration from the specified directory.
// Precedence, lowest to highest: defaults, user config, project config,
// HIPPOMIND_* environment variables. The merged result is validated.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	userPath := GetUserConfigPath()
	if fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if err := cfg.loadFromDir(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromDir loads .hippomind.yaml or .hippomind.yml from dir if present.
func (c *Config) loadFromDir(dir string) error {
	for _, name := range []string{".hippomind.yaml", ".hippomind.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	// No project config is fine, defaults apply.
	return nil
}

// loadYAML loads a YAML file and merges its non-zero values into c.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Paths.IndexDir != "" {
		c.Paths.IndexDir = other.Paths.IndexDir
	}

	if other.Search.TopK != 0 {
		c.Search.TopK = other.Search.TopK
	}
	if other.Search.DenseWeight != 0 {
		c.Search.DenseWeight = other.Search.DenseWeight
	}
	if other.Search.SparseWeight != 0 {
		c.Search.SparseWeight = other.Search.SparseWeight
	}
	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.DirectMatchThreshold != 0 {
		c.Search.DirectMatchThreshold = other.Search.DirectMatchThreshold
	}

	if other.Cluster.MinClusterSize != 0 {
		c.Cluster.MinClusterSize = other.Cluster.MinClusterSize
	}
	if other.Cluster.MaxClusters != 0 {
		c.Cluster.MaxClusters = other.Cluster.MaxClusters
	}
	if other.Cluster.Epsilon != 0 {
		c.Cluster.Epsilon = other.Cluster.Epsilon
	}
	if other.Cluster.ExhaustedFileThreshold != 0 {
		c.Cluster.ExhaustedFileThreshold = other.Cluster.ExhaustedFileThreshold
	}
	if other.Cluster.LabelCacheTTL != 0 {
		c.Cluster.LabelCacheTTL = other.Cluster.LabelCacheTTL
	}

	if other.Followup.Max != 0 {
		c.Followup.Max = other.Followup.Max
	}

	if other.Sessions.InactivityTimeout != 0 {
		c.Sessions.InactivityTimeout = other.Sessions.InactivityTimeout
	}
	if other.Sessions.SweepInterval != 0 {
		c.Sessions.SweepInterval = other.Sessions.SweepInterval
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}

	if other.LLM.Host != "" {
		c.LLM.Host = other.LLM.Host
	}
	if other.LLM.Model != "" {
		c.LLM.Model = other.LLM.Model
	}
	if other.LLM.Timeout != 0 {
		c.LLM.Timeout = other.LLM.Timeout
	}
	if other.LLM.MaxRetries != 0 {
		c.LLM.MaxRetries = other.LLM.MaxRetries
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

// applyEnvOverrides applies HIPPOMIND_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("HIPPOMIND_INDEX_DIR"); v != "" {
		c.Paths.IndexDir = v
	}
	if v := os.Getenv("HIPPOMIND_DENSE_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.DenseWeight = f
		}
	}
	if v := os.Getenv("HIPPOMIND_SPARSE_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.SparseWeight = f
		}
	}
	if v := os.Getenv("HIPPOMIND_RRF_CONSTANT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.RRFConstant = n
		}
	}
	if v := os.Getenv("HIPPOMIND_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.TopK = n
		}
	}
	if v := os.Getenv("HIPPOMIND_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
		c.LLM.Host = v
	}
	if v := os.Getenv("HIPPOMIND_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("HIPPOMIND_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("HIPPOMIND_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("HIPPOMIND_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("HIPPOMIND_SESSION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Sessions.InactivityTimeout = d
		}
	}
}

// Validate checks the merged configuration for consistency.
func (c *Config) Validate() error {
	if c.Search.TopK <= 0 {
		return fmt.Errorf("search.top_k must be positive, got %d", c.Search.TopK)
	}
	if c.Search.DenseWeight < 0 || c.Search.DenseWeight > 1 {
		return fmt.Errorf("search.dense_weight must be between 0 and 1, got %f", c.Search.DenseWeight)
	}
	if c.Search.SparseWeight < 0 || c.Search.SparseWeight > 1 {
		return fmt.Errorf("search.sparse_weight must be between 0 and 1, got %f", c.Search.SparseWeight)
	}

	sum := c.Search.DenseWeight + c.Search.SparseWeight
	if math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("search.dense_weight + search.sparse_weight must equal 1.0, got %.2f", sum)
	}

	if c.Search.RRFConstant <= 0 {
		return fmt.Errorf("search.rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	if c.Search.DirectMatchThreshold <= 0 || c.Search.DirectMatchThreshold > 1 {
		return fmt.Errorf("search.direct_match_threshold must be in (0, 1], got %f", c.Search.DirectMatchThreshold)
	}

	if c.Cluster.MinClusterSize < 2 {
		return fmt.Errorf("cluster.min_cluster_size must be at least 2, got %d", c.Cluster.MinClusterSize)
	}
	if c.Cluster.MaxClusters < 1 {
		return fmt.Errorf("cluster.max_clusters must be at least 1, got %d", c.Cluster.MaxClusters)
	}
	if c.Cluster.Epsilon <= 0 || c.Cluster.Epsilon >= 2 {
		return fmt.Errorf("cluster.epsilon must be in (0, 2), got %f", c.Cluster.Epsilon)
	}
	if c.Cluster.ExhaustedFileThreshold < 1 {
		return fmt.Errorf("cluster.exhausted_file_threshold must be at least 1, got %d", c.Cluster.ExhaustedFileThreshold)
	}

	if c.Followup.Max < 0 {
		return fmt.Errorf("followup.max must be non-negative, got %d", c.Followup.Max)
	}

	if c.Sessions.InactivityTimeout <= 0 {
		return fmt.Errorf("sessions.inactivity_timeout must be positive, got %s", c.Sessions.InactivityTimeout)
	}
	if c.Sessions.SweepInterval <= 0 {
		return fmt.Errorf("sessions.sweep_interval must be positive, got %s", c.Sessions.SweepInterval)
	}

	validProviders := map[string]bool{"ollama": true, "static": true}
	if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
		return fmt.Errorf("embeddings.provider must be 'ollama' or 'static', got %s", c.Embeddings.Provider)
	}
	if c.Embeddings.Dimensions <= 0 {
		return fmt.Errorf("embeddings.dimensions must be positive, got %d", c.Embeddings.Dimensions)
	}

	validTransports := map[string]bool{"stdio": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// LoadFile loads configuration from one explicit YAML file, skipping
// the user/project discovery. Environment overrides still apply.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()

	if !fileExists(path) {
		return nil, fmt.Errorf("config file %s does not exist", path)
	}
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
