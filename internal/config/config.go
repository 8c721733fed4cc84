package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kiranshivaraju/postpilot/pkg/models"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for PostPilot.
type Config struct {
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Content   ContentConfig   `yaml:"content"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	AI        AIConfig        `yaml:"ai"`
	Research  ResearchConfig  `yaml:"research"`
	Store     StoreConfig     `yaml:"store"`
	Redis     RedisConfig     `yaml:"redis"`
	LinkedIn  LinkedInConfig  `yaml:"linkedin"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type SchedulerConfig struct {
	Tick            time.Duration `yaml:"tick"`
	MaxConcurrent   int           `yaml:"max_concurrent"`
	DefaultSchedule string        `yaml:"default_schedule"`
}

type ContentConfig struct {
	Topics              []string          `yaml:"topics"`
	MaxSources          int               `yaml:"max_sources"`
	TargetLength        int               `yaml:"target_length"`
	RotationProbability float64           `yaml:"rotation_probability"`
	Weekdays            map[string]string `yaml:"weekdays"`
}

type PipelineConfig struct {
	Retries          int           `yaml:"retries"`
	Backoff          time.Duration `yaml:"backoff"`
	MaxBackoff       time.Duration `yaml:"max_backoff"`
	ResearchTimeout  time.Duration `yaml:"research_timeout"`
	SynthesisTimeout time.Duration `yaml:"synthesis_timeout"`
	EnhanceTimeout   time.Duration `yaml:"enhance_timeout"`
	RenderTimeout    time.Duration `yaml:"render_timeout"`
	PublishTimeout   time.Duration `yaml:"publish_timeout"`
}

type AIConfig struct {
	Providers   []string          `yaml:"providers"`
	Timeout     time.Duration     `yaml:"timeout"`
	Enhance     bool              `yaml:"enhance"`
	Temperature float64           `yaml:"temperature"`
	MaxTokens   int               `yaml:"max_tokens"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	Anthropic   AnthropicConfig   `yaml:"anthropic"`
	Ollama      OllamaConfig      `yaml:"ollama"`
	HuggingFace HuggingFaceConfig `yaml:"huggingface"`
}

type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type OllamaConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type HuggingFaceConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type ResearchConfig struct {
	Feeds          []string      `yaml:"feeds"`
	Subreddits     []string      `yaml:"subreddits"`
	GitHubTrending bool          `yaml:"github_trending"`
	MaxAge         time.Duration `yaml:"max_age"`
	SourceTimeout  time.Duration `yaml:"source_timeout"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	UserAgent      string        `yaml:"user_agent"`
	Pages          []PageConfig  `yaml:"pages"`
}

// PageConfig describes an HTML listing page. Strategy names a built-in
// extractor; without one the CSS selectors are used.
type PageConfig struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Strategy string `yaml:"strategy"`
	Item     string `yaml:"item"`
	Title    string `yaml:"title"`
	Link     string `yaml:"link"`
	Excerpt  string `yaml:"excerpt"`
}

type StoreConfig struct {
	Driver          string        `yaml:"driver"`
	Path            string        `yaml:"path"`
	DatabaseURL     string        `yaml:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type LinkedInConfig struct {
	AccessToken       string `yaml:"access_token"`
	PersonID          string `yaml:"person_id"`
	BaseURL           string `yaml:"base_url"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	DryRun            bool   `yaml:"dry_run"`
}

type ServerConfig struct {
	Addr               string `yaml:"addr"`
	APITokenHash       string `yaml:"api_token_hash"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

var validProviders = map[string]bool{
	"openai":      true,
	"anthropic":   true,
	"ollama":      true,
	"huggingface": true,
}

// Default returns the built-in configuration before file and env overrides.
func Default() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			Tick:            60 * time.Second,
			MaxConcurrent:   1,
			DefaultSchedule: "every 24h",
		},
		Content: ContentConfig{
			Topics:              []string{"artificial intelligence", "machine learning", "technology trends"},
			MaxSources:          5,
			TargetLength:        1200,
			RotationProbability: 0.3,
		},
		Pipeline: PipelineConfig{
			Retries:          2,
			Backoff:          2 * time.Second,
			MaxBackoff:       30 * time.Second,
			ResearchTimeout:  60 * time.Second,
			SynthesisTimeout: 3 * time.Minute,
			EnhanceTimeout:   30 * time.Second,
			RenderTimeout:    60 * time.Second,
			PublishTimeout:   30 * time.Second,
		},
		AI: AIConfig{
			Providers:   []string{"openai", "huggingface"},
			Timeout:     60 * time.Second,
			Enhance:     true,
			Temperature: 0.7,
			MaxTokens:   2000,
			OpenAI:      OpenAIConfig{Model: "gpt-4o-mini"},
			Anthropic:   AnthropicConfig{Model: "claude-sonnet-4-5-20250929"},
			Ollama:      OllamaConfig{BaseURL: "http://localhost:11434", Model: "llama3"},
			HuggingFace: HuggingFaceConfig{Model: "mistralai/Mistral-7B-Instruct-v0.2"},
		},
		Research: ResearchConfig{
			Feeds: []string{
				"https://techcrunch.com/feed/",
				"https://www.wired.com/feed/rss",
				"https://www.theverge.com/rss/index.xml",
				"https://feeds.arstechnica.com/arstechnica/index",
				"https://feeds.bbci.co.uk/news/technology/rss.xml",
			},
			Subreddits:     []string{"technology", "MachineLearning", "artificial", "programming", "science"},
			GitHubTrending: true,
			MaxAge:         7 * 24 * time.Hour,
			SourceTimeout:  20 * time.Second,
			CacheTTL:       time.Hour,
			UserAgent:      "postpilot/1.0 (+https://github.com/kiranshivaraju/postpilot)",
		},
		Store: StoreConfig{
			Driver:          StoreFile,
			Path:            filepath.Join(".postpilot", "jobs.json"),
			MaxOpenConns:    5,
			MaxIdleConns:    1,
			ConnMaxLifetime: 5 * time.Minute,
		},
		LinkedIn: LinkedInConfig{
			BaseURL:           "https://api.linkedin.com",
			RequestsPerMinute: 10,
		},
		Server: ServerConfig{
			Addr:               ":8080",
			RateLimitPerMinute: 60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at path
// (falling back to POSTPILOT_CONFIG), and environment variables, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("POSTPILOT_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Scheduler.Tick = envDuration("POSTPILOT_TICK", c.Scheduler.Tick)
	c.Scheduler.MaxConcurrent = envInt("POSTPILOT_MAX_CONCURRENT", c.Scheduler.MaxConcurrent)
	c.Scheduler.DefaultSchedule = envString("POSTPILOT_DEFAULT_SCHEDULE", c.Scheduler.DefaultSchedule)

	c.Content.Topics = envList("POSTPILOT_TOPICS", c.Content.Topics)
	c.Content.MaxSources = envInt("POSTPILOT_MAX_SOURCES", c.Content.MaxSources)
	c.Content.TargetLength = envInt("POSTPILOT_TARGET_LENGTH", c.Content.TargetLength)
	c.Content.RotationProbability = envFloat("POSTPILOT_ROTATION_PROBABILITY", c.Content.RotationProbability)

	c.Pipeline.Retries = envInt("POSTPILOT_RETRIES", c.Pipeline.Retries)
	c.Pipeline.Backoff = envDuration("POSTPILOT_BACKOFF", c.Pipeline.Backoff)

	c.AI.Providers = envList("POSTPILOT_AI_PROVIDERS", c.AI.Providers)
	c.AI.Timeout = envDurationSecs("POSTPILOT_AI_TIMEOUT_SECS", c.AI.Timeout)
	c.AI.Enhance = envBool("POSTPILOT_AI_ENHANCE", c.AI.Enhance)
	c.AI.OpenAI.APIKey = envString("OPENAI_API_KEY", c.AI.OpenAI.APIKey)
	c.AI.OpenAI.Model = envString("OPENAI_MODEL", c.AI.OpenAI.Model)
	c.AI.Anthropic.APIKey = envString("ANTHROPIC_API_KEY", c.AI.Anthropic.APIKey)
	c.AI.Anthropic.Model = envString("ANTHROPIC_MODEL", c.AI.Anthropic.Model)
	c.AI.Ollama.BaseURL = envString("OLLAMA_BASE_URL", c.AI.Ollama.BaseURL)
	c.AI.Ollama.Model = envString("OLLAMA_MODEL", c.AI.Ollama.Model)
	c.AI.HuggingFace.APIKey = envString("HUGGINGFACE_API_KEY", c.AI.HuggingFace.APIKey)
	c.AI.HuggingFace.Model = envString("HUGGINGFACE_MODEL", c.AI.HuggingFace.Model)

	c.Research.Feeds = envList("POSTPILOT_FEEDS", c.Research.Feeds)
	c.Research.Subreddits = envList("POSTPILOT_SUBREDDITS", c.Research.Subreddits)
	c.Research.MaxAge = envDuration("POSTPILOT_RESEARCH_MAX_AGE", c.Research.MaxAge)
	c.Research.CacheTTL = envDuration("POSTPILOT_RESEARCH_CACHE_TTL", c.Research.CacheTTL)

	c.Store.Driver = envString("POSTPILOT_STORE", c.Store.Driver)
	c.Store.Path = envString("POSTPILOT_STORE_PATH", c.Store.Path)
	c.Store.DatabaseURL = envString("DATABASE_URL", c.Store.DatabaseURL)

	c.Redis.URL = envString("REDIS_URL", c.Redis.URL)

	c.LinkedIn.AccessToken = envString("LINKEDIN_ACCESS_TOKEN", c.LinkedIn.AccessToken)
	c.LinkedIn.PersonID = envString("LINKEDIN_PERSON_ID", c.LinkedIn.PersonID)
	c.LinkedIn.BaseURL = envString("LINKEDIN_BASE_URL", c.LinkedIn.BaseURL)
	c.LinkedIn.DryRun = envBool("POSTPILOT_DRY_RUN", c.LinkedIn.DryRun)

	c.Server.Addr = envString("POSTPILOT_ADDR", c.Server.Addr)
	c.Server.APITokenHash = envString("POSTPILOT_API_TOKEN_HASH", c.Server.APITokenHash)

	c.Logging.Level = envString("POSTPILOT_LOG_LEVEL", c.Logging.Level)
	c.Logging.File = envString("POSTPILOT_LOG_FILE", c.Logging.File)
}

// Validate checks the configuration for values the rest of the program cannot work with.
func (c *Config) Validate() error {
	if c.Scheduler.Tick <= 0 {
		return fmt.Errorf("scheduler tick must be positive, got %s", c.Scheduler.Tick)
	}
	if c.Scheduler.MaxConcurrent < 1 {
		return fmt.Errorf("scheduler max_concurrent must be at least 1, got %d", c.Scheduler.MaxConcurrent)
	}
	if strings.TrimSpace(c.Scheduler.DefaultSchedule) == "" {
		return fmt.Errorf("scheduler default_schedule is required")
	}

	if len(c.Content.Topics) == 0 {
		return fmt.Errorf("POSTPILOT_TOPICS is required: at least one topic must be configured")
	}
	if c.Content.MaxSources <= 0 {
		return fmt.Errorf("content max_sources must be positive, got %d", c.Content.MaxSources)
	}
	if p := c.Content.RotationProbability; p < 0 || p > 1 {
		return fmt.Errorf("content rotation_probability must be within [0,1], got %v", p)
	}
	for day, ct := range c.Content.Weekdays {
		if _, ok := ParseWeekday(day); !ok {
			return fmt.Errorf("content weekdays: unknown weekday %q", day)
		}
		if _, err := models.ParseContentType(ct); err != nil {
			return fmt.Errorf("content weekdays: %w", err)
		}
	}

	if c.Pipeline.Retries < 0 {
		return fmt.Errorf("POSTPILOT_RETRIES must not be negative, got %d", c.Pipeline.Retries)
	}

	for _, p := range c.AI.Providers {
		if !validProviders[p] {
			return fmt.Errorf("POSTPILOT_AI_PROVIDERS entries must be one of openai, anthropic, ollama, huggingface; got %q", p)
		}
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("ai timeout must be positive, got %s", c.AI.Timeout)
	}

	switch c.Store.Driver {
	case StoreFile:
		if c.Store.Path == "" {
			return fmt.Errorf("POSTPILOT_STORE_PATH is required when POSTPILOT_STORE is file")
		}
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when POSTPILOT_STORE is postgres")
		}
	default:
		return fmt.Errorf("POSTPILOT_STORE must be one of file, postgres; got %q", c.Store.Driver)
	}

	for i, page := range c.Research.Pages {
		if page.Name == "" {
			return fmt.Errorf("research pages[%d]: name is required", i)
		}
		if page.Strategy == "" && (page.Item == "" || page.Title == "") {
			return fmt.Errorf("research pages[%d]: item and title selectors are required without a strategy", i)
		}
		if !strings.HasPrefix(page.URL, "http://") && !strings.HasPrefix(page.URL, "https://") {
			return fmt.Errorf("research pages[%d]: url must start with http:// or https://, got %q", i, page.URL)
		}
	}

	if c.Redis.URL != "" && !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, got %q", c.Redis.URL)
	}

	if !strings.HasPrefix(c.LinkedIn.BaseURL, "http://") && !strings.HasPrefix(c.LinkedIn.BaseURL, "https://") {
		return fmt.Errorf("LINKEDIN_BASE_URL must start with http:// or https://, got %q", c.LinkedIn.BaseURL)
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}

	return nil
}

// PublishingEnabled reports whether real LinkedIn credentials are configured.
func (c *Config) PublishingEnabled() bool {
	return !c.LinkedIn.DryRun && c.LinkedIn.AccessToken != "" && c.LinkedIn.PersonID != ""
}

// ParseWeekday accepts full or three-letter English weekday names.
func ParseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, true
		}
	}
	return 0, false
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}

// envList splits a comma-separated variable, dropping blank entries.
func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
