package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config holds every setting the server and CLI need. Durations are kept as
// strings in the file and parsed by Validate.
type Config struct {
	Port            string `toml:"port"`
	MaxUploadSize   int64  `toml:"max_upload_size"`
	UploadDir       string `toml:"upload_dir"`
	TempMaxAge      string `toml:"temp_max_age"`
	JanitorSchedule string `toml:"janitor_schedule"`
	LogLevel        string `toml:"log_level"`
	LogFormat       string `toml:"log_format"`

	Results     ResultsConfig     `toml:"results"`
	Database    DatabaseConfig    `toml:"database"`
	Transcriber TranscriberConfig `toml:"transcriber"`
	Classifier  ClassifierConfig  `toml:"classifier"`

	tempMaxAge  time.Duration
	resultTTL   time.Duration
	httpTimeout time.Duration
}

type ResultsConfig struct {
	Backend  string `toml:"backend"` // file, sqlite, postgres or redis
	Dir      string `toml:"dir"`
	TTL      string `toml:"ttl"`
	RedisURL string `toml:"redis_url"`
}

type DatabaseConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	User       string `toml:"user"`
	Password   string `toml:"password"`
	Name       string `toml:"name"`
	SQLitePath string `toml:"sqlite_path"`
}

type TranscriberConfig struct {
	Backend      string `toml:"backend"` // faster-whisper or openai
	Model        string `toml:"model"`
	Device       string `toml:"device"`
	ComputeType  string `toml:"compute_type"`
	Language     string `toml:"language"`
	PythonPath   string `toml:"python_path"`
	FFmpegPath   string `toml:"ffmpeg_path"`
	OpenAIAPIKey string `toml:"openai_api_key"`
	OpenAIModel  string `toml:"openai_model"`
}

type ClassifierConfig struct {
	Backend     string `toml:"backend"` // huggingface or transformers
	Model       string `toml:"model"`
	APIToken    string `toml:"api_token"`
	BaseURL     string `toml:"base_url"`
	BatchSize   int    `toml:"batch_size"`
	PythonPath  string `toml:"python_path"`
	CacheDir    string `toml:"cache_dir"`
	HTTPTimeout string `toml:"http_timeout"`
}

// Default returns the configuration used when nothing else is provided.
func Default() *Config {
	return &Config{
		Port:            "8080",
		MaxUploadSize:   104857600,
		UploadDir:       "./temp_uploads",
		TempMaxAge:      "1h",
		JanitorSchedule: "@every 10m",
		LogLevel:        "info",
		LogFormat:       "text",
		Results: ResultsConfig{
			Backend: BackendFile,
			Dir:     "./results",
			TTL:     "30m",
		},
		Database: DatabaseConfig{
			Host:       "localhost",
			Port:       5432,
			User:       "speechguard",
			Password:   "speechguard_dev",
			Name:       "speechguard",
			SQLitePath: "./speechguard.db",
		},
		Transcriber: TranscriberConfig{
			Backend:     TranscriberFasterWhisper,
			Model:       "small",
			Device:      "cpu",
			ComputeType: "int8",
			PythonPath:  "python3",
			FFmpegPath:  "ffmpeg",
			OpenAIModel: "whisper-1",
		},
		Classifier: ClassifierConfig{
			Backend:     ClassifierHuggingFace,
			Model:       "WhiterBB/multilingual-hatespeech-detection",
			BaseURL:     "https://api-inference.huggingface.co",
			BatchSize:   32,
			PythonPath:  "python3",
			CacheDir:    "./model_cache",
			HTTPTimeout: "2m",
		},
	}
}

// Load builds the configuration from defaults, an optional TOML file, a .env
// file in the working directory and the process environment, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("SPEECHGUARD_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = env("PORT", c.Port)
	c.MaxUploadSize = envInt64("MAX_UPLOAD_SIZE", c.MaxUploadSize)
	c.UploadDir = env("UPLOAD_DIR", c.UploadDir)
	c.TempMaxAge = env("TEMP_MAX_AGE", c.TempMaxAge)
	c.JanitorSchedule = env("JANITOR_SCHEDULE", c.JanitorSchedule)
	c.LogLevel = env("LOG_LEVEL", c.LogLevel)
	c.LogFormat = env("LOG_FORMAT", c.LogFormat)

	c.Results.Backend = env("RESULT_STORE", c.Results.Backend)
	c.Results.Dir = env("RESULTS_DIR", c.Results.Dir)
	c.Results.TTL = env("RESULT_TTL", c.Results.TTL)
	c.Results.RedisURL = env("REDIS_URL", c.Results.RedisURL)

	c.Database.Host = env("DB_HOST", c.Database.Host)
	c.Database.Port = envInt("DB_PORT", c.Database.Port)
	c.Database.User = env("DB_USER", c.Database.User)
	c.Database.Password = env("DB_PASSWORD", c.Database.Password)
	c.Database.Name = env("DB_NAME", c.Database.Name)
	c.Database.SQLitePath = env("DB_PATH", c.Database.SQLitePath)

	c.Transcriber.Backend = env("TRANSCRIBER", c.Transcriber.Backend)
	c.Transcriber.Model = env("WHISPER_MODEL", c.Transcriber.Model)
	c.Transcriber.Device = env("WHISPER_DEVICE", c.Transcriber.Device)
	c.Transcriber.ComputeType = env("WHISPER_COMPUTE_TYPE", c.Transcriber.ComputeType)
	c.Transcriber.Language = env("WHISPER_LANGUAGE", c.Transcriber.Language)
	c.Transcriber.PythonPath = env("PYTHON_PATH", c.Transcriber.PythonPath)
	c.Transcriber.FFmpegPath = env("FFMPEG_PATH", c.Transcriber.FFmpegPath)
	c.Transcriber.OpenAIAPIKey = env("OPENAI_API_KEY", c.Transcriber.OpenAIAPIKey)
	c.Transcriber.OpenAIModel = env("OPENAI_TRANSCRIBE_MODEL", c.Transcriber.OpenAIModel)

	c.Classifier.Backend = env("CLASSIFIER", c.Classifier.Backend)
	c.Classifier.Model = env("HF_MODEL", c.Classifier.Model)
	c.Classifier.APIToken = env("HF_API_TOKEN", c.Classifier.APIToken)
	c.Classifier.BaseURL = env("HF_BASE_URL", c.Classifier.BaseURL)
	c.Classifier.BatchSize = envInt("CLASSIFIER_BATCH_SIZE", c.Classifier.BatchSize)
	c.Classifier.PythonPath = env("PYTHON_PATH", c.Classifier.PythonPath)
	c.Classifier.CacheDir = env("MODEL_CACHE_DIR", c.Classifier.CacheDir)
}

// TempMaxAgeDuration is the age after which an upload left in UploadDir is
// considered orphaned.
func (c *Config) TempMaxAgeDuration() time.Duration { return c.tempMaxAge }

// ResultTTL is the retention window of stored analysis results.
func (c *Config) ResultTTL() time.Duration { return c.resultTTL }

func (c *Config) ClassifierHTTPTimeout() time.Duration { return c.httpTimeout }

func (c *Config) ListenAddr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
