// Package logging wraps log/slog with per-module loggers, runtime-adjustable
// levels and a bounded history of recent entries. The history backs the
// console's status/log area: every error path in the client ends up here
// instead of crashing the session.
package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

const historySize = 1000

// Config controls global and per-module log levels and the output format.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"` // "text" or "json"
	Journal bool              `toml:"journal"`
	Modules map[string]string `toml:"modules"`
}

var (
	mu        sync.RWMutex
	cfg       Config
	ready     bool
	loggers   = make(map[string]*slog.Logger)
	levelVars = make(map[string]*slog.LevelVar)
	history   *History
)

// Initialize sets up the logging system. Loggers handed out before
// Initialize are rebuilt so they pick up the configured handler chain.
func Initialize(c Config) {
	mu.Lock()
	defer mu.Unlock()

	cfg = c
	ready = true
	history = NewHistory(historySize)

	for module, lv := range levelVars {
		lv.Set(moduleLevel(module))
		loggers[module] = slog.New(buildHandler(lv)).With("module", module)
	}

	root := &slog.LevelVar{}
	root.Set(moduleLevel(""))
	slog.SetDefault(slog.New(buildHandler(root)))
}

// GetLogger returns the logger for a module, creating it on first use.
func GetLogger(module string) *slog.Logger {
	mu.RLock()
	if l, ok := loggers[module]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[module]; ok {
		return l
	}

	lv := &slog.LevelVar{}
	lv.Set(moduleLevel(module))
	levelVars[module] = lv

	l := slog.New(buildHandler(lv)).With("module", module)
	loggers[module] = l
	return l
}

// SetModuleLevel changes a module's level at runtime.
func SetModuleLevel(module, level string) {
	mu.Lock()
	defer mu.Unlock()
	if lv, ok := levelVars[module]; ok {
		lv.Set(parseLevel(level))
	}
}

// GetHistory returns the shared log history, or nil before Initialize.
func GetHistory() *History {
	mu.RLock()
	defer mu.RUnlock()
	return history
}

// buildHandler assembles the handler chain: console output, history capture
// and, when configured, the systemd journal. Caller holds mu.
func buildHandler(lv slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: lv}

	var out slog.Handler
	if cfg.Format == "json" {
		out = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		out = slog.NewTextHandler(os.Stderr, opts)
	}

	handlers := []slog.Handler{out}
	if history != nil {
		handlers = append(handlers, NewHistoryHandler(history, lv))
	}
	if cfg.Journal {
		handlers = append(handlers, NewJournalHandler(lv))
	}
	if len(handlers) == 1 {
		return out
	}
	return NewMultiHandler(handlers...)
}

// moduleLevel resolves the configured level for a module, falling back to
// the global level and then to info. Caller holds mu.
func moduleLevel(module string) slog.Level {
	if s, ok := cfg.Modules[module]; ok && ready {
		return parseLevel(s)
	}
	if ready {
		return parseLevel(cfg.Level)
	}
	return slog.LevelInfo
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func levelToString(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "error"
	case l >= slog.LevelWarn:
		return "warn"
	case l >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
