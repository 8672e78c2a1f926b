package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// ErrConfiguration marks every failure that must abort a run before judging.
var ErrConfiguration = errors.New("configuration error")

// Defaults applied to zero-valued fields.
const (
	DefaultRawThreshold        = 0.3
	DefaultNormalizedThreshold = 0.8
	DefaultWorkers             = 8
	DefaultMaxPatterns         = 100000
	DefaultOutputDir           = "./output"
)

// Loader reads a YAML config file and watches it for changes.
type Loader struct {
	path     string
	mu       sync.RWMutex
	current  *JudgeConfig
	onChange []func(*JudgeConfig)
	logger   *slog.Logger
}

// NewLoader creates a Loader and performs the initial load.
func NewLoader(path string, logger *slog.Logger) (*Loader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{path: path, logger: logger}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	l.current = cfg
	return l, nil
}

// Config returns the current (latest) configuration.
func (l *Loader) Config() *JudgeConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the config reloads.
func (l *Loader) OnChange(fn func(*JudgeConfig)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts a background goroutine that reloads the config on file changes.
// Call the returned stop function to clean up.
func (l *Loader) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Add(l.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("config watcher add %s: %w", l.path, err)
	}

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					if _, err := l.Reload(); err != nil {
						l.logger.Warn("config reload failed, keeping previous config", "path", l.path, "err", err)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.logger.Warn("config watcher error", "err", err)
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

// Reload forces an immediate re-read of the config file.
func (l *Loader) Reload() (*JudgeConfig, error) {
	cfg, err := Load(l.path)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = cfg
	callbacks := make([]func(*JudgeConfig), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
	return cfg, nil
}

// Load reads path, expands environment variables and applies defaults.
func Load(path string) (*JudgeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read config %s: %w", ErrConfiguration, path, err)
	}
	var cfg JudgeConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse config %s: %w", ErrConfiguration, path, err)
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// ApplyDefaults fills zero-valued fields.
func ApplyDefaults(cfg *JudgeConfig) {
	if cfg.Judgement.Strategy == "" {
		cfg.Judgement.Strategy = "raw"
	}
	if cfg.Judgement.Threshold == 0 {
		if cfg.Judgement.Strategy == "normalized" {
			cfg.Judgement.Threshold = DefaultNormalizedThreshold
		} else {
			cfg.Judgement.Threshold = DefaultRawThreshold
		}
	}
	if cfg.Judgement.BlockKey == "" {
		cfg.Judgement.BlockKey = "channel_url"
	}
	if cfg.Judgement.MaxPatterns == 0 {
		cfg.Judgement.MaxPatterns = DefaultMaxPatterns
	}
	if cfg.Engine.Workers == 0 {
		cfg.Engine.Workers = DefaultWorkers
	}
	if cfg.Input.CommentDir == "" {
		cfg.Input.CommentDir = "./input/comment"
	}
	if cfg.Input.NGChannelDir == "" {
		cfg.Input.NGChannelDir = "./input/ng_channel"
	}
	if cfg.Input.NGCommentDir == "" {
		cfg.Input.NGCommentDir = "./input/ng_comment"
	}
	if cfg.Input.NGPatternDir == "" {
		cfg.Input.NGPatternDir = "./input/ng_pattern"
	}
	if cfg.Input.LangLenPath == "" {
		cfg.Input.LangLenPath = "./input/lang_len.tsv"
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = DefaultOutputDir
	}
}
