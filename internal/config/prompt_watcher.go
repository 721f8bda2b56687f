package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"atsforge/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// PromptWatcher watches prompt override files and reloads them on change, so
// prompt tuning does not require a restart. Editors replace files rather than
// write in place, so the watcher observes parent directories and filters by
// path, with a debounce to coalesce bursts of events.
type PromptWatcher struct {
	mu sync.Mutex

	cfg           *Config
	watched       map[string]struct{}
	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan chan struct{}
	logger   *errors.Logger
	running  bool
}

// NewPromptWatcher creates a watcher over every configured prompt file
func NewPromptWatcher(cfg *Config, logger *errors.Logger) *PromptWatcher {
	delay := cfg.AI.PromptReload.DebounceDelay
	if delay == 0 {
		delay = time.Second
	}

	watched := make(map[string]struct{})
	for _, p := range cfg.PromptFilePaths() {
		if abs, err := filepath.Abs(p); err == nil {
			watched[abs] = struct{}{}
		}
	}

	return &PromptWatcher{
		cfg:           cfg,
		watched:       watched,
		debounceDelay: delay,
		stopChan:      make(chan struct{}),
		logger:        logger,
	}
}

// Start begins watching. Returns without error when no prompt files are
// configured; there is nothing to watch.
func (pw *PromptWatcher) Start() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.running {
		return fmt.Errorf("prompt watcher is already running")
	}
	if len(pw.watched) == 0 {
		pw.logger.Debug("No prompt override files configured, prompt watcher idle")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	pw.fsWatcher = watcher

	dirs := make(map[string]struct{})
	for path := range pw.watched {
		dirs[filepath.Dir(path)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			pw.logger.Warn("Failed to watch prompt directory", "dir", dir, "error", err)
		}
	}

	pw.running = true
	go pw.watchLoop()

	pw.logger.Info("Prompt file watcher started",
		"files", len(pw.watched),
		"debounce_delay", pw.debounceDelay.String())
	return nil
}

func (pw *PromptWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-pw.fsWatcher.Events:
			if !ok {
				return
			}
			pw.handleEvent(event)
		case err, ok := <-pw.fsWatcher.Errors:
			if !ok {
				return
			}
			pw.logger.Warn("Prompt watcher error", "error", err)
		case <-pw.stopChan:
			return
		}
	}
}

func (pw *PromptWatcher) handleEvent(event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
		return
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	if _, ok := pw.watched[abs]; !ok {
		return
	}

	pw.mu.Lock()
	defer pw.mu.Unlock()
	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}
	pw.debounceTimer = time.AfterFunc(pw.debounceDelay, pw.reload)
}

func (pw *PromptWatcher) reload() {
	if err := pw.cfg.loadPromptsFromFiles(); err != nil {
		pw.logger.LogError(err, "Prompt reload failed, keeping previous prompts")
		return
	}
	pw.logger.Info("Prompt override files reloaded")
}

// Stop halts the watcher
func (pw *PromptWatcher) Stop() {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if !pw.running {
		return
	}
	close(pw.stopChan)
	if pw.fsWatcher != nil {
		if err := pw.fsWatcher.Close(); err != nil {
			pw.logger.LogError(err, "Failed to close prompt file watcher")
		}
	}
	pw.running = false
}
