package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/barrybecker4/applets-sub001/internal/analysis"
	"github.com/barrybecker4/applets-sub001/internal/cache"
	"github.com/barrybecker4/applets-sub001/internal/cachestore"
	"github.com/barrybecker4/applets-sub001/internal/search"
)

// Client is an API client allowed to request access tokens.
type Client struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SecretHash string `json:"secretHash"` // bcrypt
}

type Config struct {
	Environment string `json:"environment"`
	Server      struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	} `json:"server"`
	MongoDB struct {
		URI      string `json:"uri"` // empty runs without persistence
		Database string `json:"database"`
	} `json:"mongodb"`
	Frontend struct {
		URL string `json:"url"`
	} `json:"frontend"`
	JWT struct {
		AccessSecret string `json:"accessSecret"`
		AccessTTL    int    `json:"accessTtl"` // in minutes
	} `json:"jwt"`
	Clients  []Client       `json:"clients"`
	Search   search.Options `json:"search"`
	Analysis struct {
		Seed              int64 `json:"seed"`
		MaxLookAhead      int   `json:"maxLookAhead"`
		MaxBatch          int   `json:"maxBatch"`
		BatchWorkers      int   `json:"batchWorkers"`
		SessionTTLMinutes int   `json:"sessionTtlMinutes"`
		StaleAfterSeconds int   `json:"staleAfterSeconds"`
		ProgressMillis    int   `json:"progressMillis"`
	} `json:"analysis"`
	Cache      cache.Config      `json:"cache"`
	CacheStore cachestore.Config `json:"cacheStore"`
	RateLimit  struct {
		RequestsPerSecond float64 `json:"requestsPerSecond"`
		Burst             int     `json:"burst"`
	} `json:"rateLimit"`
}

// Default is the configuration every file is layered over, so a file
// only needs the settings it changes.
func Default() *Config {
	var cfg Config
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 9029
	cfg.MongoDB.Database = "gamesearch"
	cfg.Frontend.URL = "http://localhost:5173"
	cfg.JWT.AccessTTL = 60
	cfg.Search = search.DefaultOptions()
	cfg.Cache = cache.DefaultConfig()
	cfg.CacheStore.InMemory = true

	d := analysis.DefaultConfig()
	cfg.Analysis.Seed = d.Seed
	cfg.Analysis.MaxLookAhead = d.MaxLookAhead
	cfg.Analysis.MaxBatch = d.MaxBatch
	cfg.Analysis.BatchWorkers = d.BatchWorkers
	cfg.Analysis.SessionTTLMinutes = int(d.SessionTTL / time.Minute)
	cfg.Analysis.StaleAfterSeconds = int(d.StaleAfter / time.Second)
	cfg.Analysis.ProgressMillis = int(d.ProgressInterval / time.Millisecond)

	cfg.RateLimit.RequestsPerSecond = 5
	cfg.RateLimit.Burst = 20
	return &cfg
}

func Load(env string) (*Config, error) {
	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		// Default to configs directory relative to working directory
		configDir = "configs"
	}

	filename := fmt.Sprintf("config.%s.json", env)
	configPath := filepath.Join(configDir, filename)

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	cfg.Environment = env
	return cfg, nil
}

// Parse expands ${VAR} references in data and decodes it over Default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := json.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR_NAME} with environment variable values.
// Bare $ sequences, such as those in bcrypt hashes, are left alone.
func expandEnvVars(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
}

// Validate reports every setting the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if c.MongoDB.URI != "" && c.MongoDB.Database == "" {
		errs = append(errs, errors.New("mongodb.database is required with a uri"))
	}
	if len(c.JWT.AccessSecret) < 32 {
		errs = append(errs, errors.New("jwt.accessSecret must be at least 32 characters"))
	}
	if c.JWT.AccessTTL <= 0 {
		errs = append(errs, errors.New("jwt.accessTtl must be positive"))
	}
	seen := make(map[string]bool)
	for i, cl := range c.Clients {
		switch {
		case cl.ID == "":
			errs = append(errs, fmt.Errorf("clients[%d] has no id", i))
		case seen[cl.ID]:
			errs = append(errs, fmt.Errorf("client %q is listed twice", cl.ID))
		case cl.SecretHash == "":
			errs = append(errs, fmt.Errorf("client %q has no secretHash", cl.ID))
		}
		seen[cl.ID] = true
	}
	if err := c.Search.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("search: %w", err))
	}
	if err := c.Cache.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("cache: %w", err))
	}
	if !c.CacheStore.InMemory && c.CacheStore.Path == "" {
		errs = append(errs, errors.New("cacheStore.path is required unless inMemory is set"))
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("rateLimit.requestsPerSecond and rateLimit.burst must be positive"))
	}
	a := c.Analysis
	if time.Duration(a.ProgressMillis)*time.Millisecond >= time.Duration(a.StaleAfterSeconds)*time.Second {
		errs = append(errs, fmt.Errorf("analysis.progressMillis %d must be shorter than staleAfterSeconds %d", a.ProgressMillis, a.StaleAfterSeconds))
	}
	return errors.Join(errs...)
}

// AnalysisConfig is the analysis service configuration these settings describe.
func (c *Config) AnalysisConfig() analysis.Config {
	a := c.Analysis
	cfg := analysis.DefaultConfig()
	cfg.Search = c.Search
	cfg.Cache = c.Cache
	cfg.Seed = a.Seed
	cfg.MaxLookAhead = a.MaxLookAhead
	cfg.MaxBatch = a.MaxBatch
	cfg.BatchWorkers = a.BatchWorkers
	cfg.SessionTTL = time.Duration(a.SessionTTLMinutes) * time.Minute
	cfg.StaleAfter = time.Duration(a.StaleAfterSeconds) * time.Second
	cfg.ProgressInterval = time.Duration(a.ProgressMillis) * time.Millisecond
	return cfg
}

func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.JWT.AccessTTL) * time.Minute
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func GetEnv() string {
	env := os.Getenv("SEARCH_ENV")
	if env == "" {
		return "dev"
	}
	return env
}
