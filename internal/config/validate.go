package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"
)

const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"

	TranscriberFasterWhisper = "faster-whisper"
	TranscriberOpenAI        = "openai"

	ClassifierHuggingFace  = "huggingface"
	ClassifierTransformers = "transformers"
)

// Validate normalizes enum values, parses durations and reports every
// problem it finds at once.
func (c *Config) Validate() error {
	var problems []error

	c.Results.Backend = strings.ToLower(strings.TrimSpace(c.Results.Backend))
	c.Transcriber.Backend = strings.ToLower(strings.TrimSpace(c.Transcriber.Backend))
	c.Classifier.Backend = strings.ToLower(strings.TrimSpace(c.Classifier.Backend))

	if c.MaxUploadSize <= 0 {
		problems = append(problems, fmt.Errorf("max_upload_size must be positive, got %d", c.MaxUploadSize))
	}
	if strings.TrimSpace(c.UploadDir) == "" {
		problems = append(problems, errors.New("upload_dir is required"))
	}

	var err error
	if c.tempMaxAge, err = parsePositiveDuration("temp_max_age", c.TempMaxAge); err != nil {
		problems = append(problems, err)
	}
	if c.resultTTL, err = parsePositiveDuration("results.ttl", c.Results.TTL); err != nil {
		problems = append(problems, err)
	}
	if c.httpTimeout, err = parsePositiveDuration("classifier.http_timeout", c.Classifier.HTTPTimeout); err != nil {
		problems = append(problems, err)
	}

	if _, err := cron.ParseStandard(strings.TrimSpace(c.JanitorSchedule)); err != nil {
		problems = append(problems, fmt.Errorf("janitor_schedule %q: %w", c.JanitorSchedule, err))
	}

	switch c.Results.Backend {
	case BackendFile:
		if strings.TrimSpace(c.Results.Dir) == "" {
			problems = append(problems, errors.New("results.dir is required for the file store"))
		}
	case BackendSQLite:
		if strings.TrimSpace(c.Database.SQLitePath) == "" {
			problems = append(problems, errors.New("database.sqlite_path is required for the sqlite store"))
		}
	case BackendPostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			problems = append(problems, errors.New("database.host and database.name are required for the postgres store"))
		}
	case BackendRedis:
		if strings.TrimSpace(c.Results.RedisURL) == "" {
			problems = append(problems, errors.New("results.redis_url is required for the redis store"))
		}
	default:
		problems = append(problems, fmt.Errorf("unsupported result store %q", c.Results.Backend))
	}

	switch c.Transcriber.Backend {
	case TranscriberFasterWhisper:
	case TranscriberOpenAI:
		if c.Transcriber.OpenAIAPIKey == "" {
			problems = append(problems, errors.New("OPENAI_API_KEY is required for the openai transcriber"))
		}
	default:
		problems = append(problems, fmt.Errorf("unsupported transcriber %q", c.Transcriber.Backend))
	}

	if lang := strings.TrimSpace(c.Transcriber.Language); lang != "" {
		tag, err := language.Parse(lang)
		if err != nil {
			problems = append(problems, fmt.Errorf("transcriber.language %q: %w", lang, err))
		} else {
			base, _ := tag.Base()
			c.Transcriber.Language = base.String()
		}
	}

	switch c.Classifier.Backend {
	case ClassifierHuggingFace, ClassifierTransformers:
	default:
		problems = append(problems, fmt.Errorf("unsupported classifier %q", c.Classifier.Backend))
	}
	if c.Classifier.BatchSize <= 0 {
		problems = append(problems, fmt.Errorf("classifier.batch_size must be positive, got %d", c.Classifier.BatchSize))
	}

	return errors.Join(problems...)
}

func parsePositiveDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, value)
	}
	return d, nil
}
