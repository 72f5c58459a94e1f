// Package logger owns the process-wide zap core. Library packages
// receive component-scoped children via New; before Init is called
// every logger is a nop, so the packages stay usable as a library
// without forcing log output on the embedding program.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Config controls the global core. Zero values fall back to console
// output at info level on stdout.
type Config struct {
	Level      string
	Format     string
	FilePath   string
	Version    string
	MaxSize    int
	MaxBackups int
	MaxAge     int
}

// Option mutates the Config during Init.
type Option func(*Config)

func WithLevel(lvl string) Option    { return func(c *Config) { c.Level = lvl } }
func WithFormat(format string) Option { return func(c *Config) { c.Format = format } }
func WithFile(path string) Option    { return func(c *Config) { c.FilePath = path } }
func WithVersion(v string) Option    { return func(c *Config) { c.Version = v } }
func WithRotation(size, backups, age int) Option {
	return func(c *Config) { c.MaxSize, c.MaxBackups, c.MaxAge = size, backups, age }
}

var (
	mu     sync.RWMutex
	root   *zap.Logger
	level  zap.AtomicLevel
	active bool
)

// Init builds the global core. Calling it again replaces the previous
// core after flushing it.
func Init(opts ...Option) error {
	cfg := &Config{Level: "info", Format: "console", MaxSize: 100, MaxBackups: 5, MaxAge: 30}
	for _, apply := range opts {
		apply(cfg)
	}

	enc, err := buildEncoder(cfg.Format)
	if err != nil {
		return err
	}
	ws, err := buildWriter(cfg)
	if err != nil {
		return err
	}
	lvl, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if active && root != nil {
		_ = root.Sync()
	}
	level = lvl
	root = zap.New(zapcore.NewCore(enc, ws, level),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("version", cfg.Version)),
	)
	active = true
	return nil
}

// Shutdown flushes buffered entries.
func Shutdown() error {
	mu.RLock()
	defer mu.RUnlock()
	if !active || root == nil {
		return nil
	}
	if err := root.Sync(); err != nil && !isPathErr(err) {
		return err
	}
	return nil
}

// UpdateLevel changes the level of the running core.
func UpdateLevel(lvl string) error {
	mu.RLock()
	defer mu.RUnlock()
	if !active {
		return fmt.Errorf("logger not initialized")
	}
	parsed, err := zap.ParseAtomicLevel(lvl)
	if err != nil {
		return err
	}
	level.SetLevel(parsed.Level())
	return nil
}

// New returns a component-scoped child logger, or a nop logger before
// Init.
func New(component string) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if !active {
		return zap.NewNop()
	}
	return root.With(zap.String("component", component))
}

func Debug(msg string, fields ...zap.Field) { get().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { get().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { get().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { get().Error(msg, fields...) }

func get() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if !active {
		return zap.NewNop()
	}
	return root
}

func buildEncoder(format string) (zapcore.Encoder, error) {
	switch format {
	case "json":
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), nil
	case "console", "":
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewConsoleEncoder(cfg), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

func buildWriter(cfg *Config) (zapcore.WriteSyncer, error) {
	if cfg.FilePath == "" {
		return zapcore.AddSync(os.Stdout), nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o750); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   true,
	}), nil
}

func isPathErr(err error) bool {
	_, ok := err.(*os.PathError)
	return ok
}
