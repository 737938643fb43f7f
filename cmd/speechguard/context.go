package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/kdimtricp/speechguard/internal/analysis"
	"github.com/kdimtricp/speechguard/internal/classify"
	"github.com/kdimtricp/speechguard/internal/config"
	"github.com/kdimtricp/speechguard/internal/logging"
	"github.com/kdimtricp/speechguard/internal/results"
	"github.com/kdimtricp/speechguard/internal/storage"
	"github.com/kdimtricp/speechguard/internal/transcribe"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	logger     *slog.Logger
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		logger, err := logging.New(logging.Options{
			Level:  cfg.LogLevel,
			Format: cfg.LogFormat,
			Output: os.Stderr,
		})
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.logger = logger
	})
	return c.config, c.configErr
}

// pipeline holds everything the analysis service needs. Close releases the
// result store and any helper scripts written to disk.
type pipeline struct {
	service *analysis.Service
	storage *storage.LocalStorage
	store   results.Store
	closers []func() error
}

func (p *pipeline) Close() {
	for _, fn := range p.closers {
		fn()
	}
}

func (c *commandContext) openStore(ctx context.Context) (results.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := results.Open(ctx, cfg, c.logger)
	if err != nil {
		return nil, fmt.Errorf("open result store: %w", err)
	}
	return store, nil
}

func (c *commandContext) buildPipeline(ctx context.Context) (*pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	p := &pipeline{}

	p.storage, err = storage.NewLocalStorage(cfg.UploadDir, c.logger)
	if err != nil {
		return nil, err
	}

	p.store, err = c.openStore(ctx)
	if err != nil {
		return nil, err
	}
	p.closers = append(p.closers, p.store.Close)

	transcriber, err := transcribe.New(cfg.Transcriber, c.logger)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("init transcriber: %w", err)
	}
	if closer, ok := transcriber.(interface{ Close() error }); ok {
		p.closers = append(p.closers, closer.Close)
	}

	classifier, err := classify.New(cfg.Classifier, cfg.ClassifierHTTPTimeout(), c.logger)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("init classifier: %w", err)
	}
	if closer, ok := classifier.(interface{ Close() error }); ok {
		p.closers = append(p.closers, closer.Close)
	}

	p.service = analysis.NewService(transcriber, classifier, p.storage, p.store,
		analysis.Config{Retention: cfg.ResultTTL(), MaxSize: cfg.MaxUploadSize}, c.logger)

	return p, nil
}
