// Package logging implements a two-stream (system + access) logger
// built on go.uber.org/zap — grounded on the pack's own direct use of zap
// (aws-karpenter-provider-aws wires zap.Logger/zap.NewNop() straight
// into its controllers rather than through the stdlib log package).
//
// "Pre-init buffering": config must be loaded before the real log path
// and level are known, but startup failures before that point still
// need to be logged. Bootstrap returns a Logger backed by an in-memory
// buffer; Init later builds the real, configured core and replays the
// buffered bytes into it.
package logging

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tyx3211/edgeserve/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger exposes the two streams: LogSystem and LogAccess.
type Logger struct {
	system *zap.Logger
	access *zap.Logger

	bootstrap *bytes.Buffer
}

// Bootstrap returns a Logger usable before configuration is loaded. All
// system-level output is buffered in memory instead of going to any
// real sink, since the destination
// (file vs stdout, and which directory) isn't known yet.
func Bootstrap() *Logger {
	buf := &bytes.Buffer{}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(buf),
		zapcore.DebugLevel,
	)
	return &Logger{
		system:    zap.New(core),
		bootstrap: buf,
	}
}

// Init builds the configured system and access cores and replays
// anything buffered during Bootstrap into the system stream.
func (l *Logger) Init(cfg config.Config) error {
	var systemSync, accessSync zapcore.WriteSyncer
	if cfg.LogToStdout {
		systemSync = zapcore.Lock(os.Stdout)
		accessSync = zapcore.Lock(os.Stdout)
	} else {
		if err := os.MkdirAll(cfg.LogPath, 0o755); err != nil {
			return err
		}
		sysFile, err := os.OpenFile(filepath.Join(cfg.LogPath, "system.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		accFile, err := os.OpenFile(filepath.Join(cfg.LogPath, "access.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		systemSync = zapcore.Lock(zapcore.AddSync(sysFile))
		accessSync = zapcore.Lock(zapcore.AddSync(accFile))
	}

	if l.bootstrap != nil && l.bootstrap.Len() > 0 {
		if _, err := systemSync.Write(l.bootstrap.Bytes()); err != nil {
			return err
		}
	}
	l.bootstrap = nil

	level := toZapLevel(cfg.LogLevel)
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())

	systemCore := zapcore.NewCore(encoder, systemSync, level)
	accessCore := zapcore.NewCore(encoder, accessSync, zapcore.InfoLevel)

	l.system = zap.New(systemCore)
	l.access = zap.New(accessCore)
	return nil
}

func toZapLevel(lvl config.LogLevel) zapcore.Level {
	switch lvl {
	case config.LevelDebug:
		return zapcore.DebugLevel
	case config.LevelWarning:
		return zapcore.WarnLevel
	case config.LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// LogSystem writes a structured system-log entry, mirroring
// original_source's log_system(level, fmt, …).
func (l *Logger) LogSystem(level config.LogLevel, msg string, fields ...zap.Field) {
	switch level {
	case config.LevelDebug:
		l.system.Debug(msg, fields...)
	case config.LevelWarning:
		l.system.Warn(msg, fields...)
	case config.LevelError:
		l.system.Error(msg, fields...)
	default:
		l.system.Info(msg, fields...)
	}
}

// LogAccess writes one access-log line, mirroring original_source's
// log_access(ip, method, raw_uri, status).
func (l *Logger) LogAccess(ip, method, rawURI string, status int) {
	if l.access == nil {
		l.system.Info(fmt.Sprintf("%s %s %s %d", ip, method, rawURI, status))
		return
	}
	l.access.Info("request",
		zap.String("ip", ip),
		zap.String("method", method),
		zap.String("uri", rawURI),
		zap.Int("status", status),
	)
}

// Sync flushes both streams.
func (l *Logger) Sync() {
	if l.system != nil {
		_ = l.system.Sync()
	}
	if l.access != nil {
		_ = l.access.Sync()
	}
}
