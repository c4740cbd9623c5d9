// Package config loads the key=value configuration file the server
// reads on startup. No example in the retrieved pack reaches for a
// config-file library for a format this simple — the
// shockwave's own Config types (shockwave/pkg/shockwave/server.Config) are
// built from Go struct literals, not parsed files — so this stays on
// bufio/strings (see DESIGN.md, stdlib justifications) while keeping the
// its flat-field, DefaultConfig()-style struct shape.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LogLevel is the recognised set of log severities.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarning
	LevelError
)

func parseLogLevel(s string) (LogLevel, bool) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARNING":
		return LevelWarning, true
	case "ERROR":
		return LevelError, true
	default:
		return 0, false
	}
}

// Config holds the server's recognised options.
type Config struct {
	ListenPort   int
	DocumentRoot string
	LogPath      string
	LogLevel     LogLevel
	LogToStdout  bool
	JwtEnabled   bool
	JwtSecret    string
	MimeEnabled  bool
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		ListenPort:   8080,
		DocumentRoot: "www",
		LogPath:      "log",
		LogLevel:     LevelInfo,
		LogToStdout:  false,
		JwtEnabled:   true,
		MimeEnabled:  true,
	}
}

// Load reads a key=value file at path, starting from Default() and
// overriding recognised keys. Unknown keys are ignored (returned in
// Warnings for the caller to log non-fatally, the same non-fatal
// parse-anomaly posture extended to configuration). A malformed value
// for a recognised key is fatal.
func Load(path string) (Config, []string, error) {
	cfg := Default()
	var warnings []string

	f, err := os.Open(path)
	if err != nil {
		return cfg, warnings, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			warnings = append(warnings, fmt.Sprintf("line %d: missing '=', ignored", lineNo))
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])

		if err := cfg.set(key, value); err != nil {
			return cfg, warnings, fmt.Errorf("line %d (%s): %w", lineNo, key, err)
		} else if !cfg.isKnown(key) {
			warnings = append(warnings, fmt.Sprintf("line %d: unknown key %q, ignored", lineNo, key))
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, warnings, err
	}
	return cfg, warnings, nil
}

func (c *Config) isKnown(key string) bool {
	switch key {
	case "ListenPort", "DocumentRoot", "LogPath", "LogLevel", "LogTarget", "JwtEnabled", "JwtSecret", "MimeEnabled":
		return true
	default:
		return false
	}
}

func (c *Config) set(key, value string) error {
	switch key {
	case "ListenPort":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("not an integer: %q", value)
		}
		c.ListenPort = n
	case "DocumentRoot":
		c.DocumentRoot = value
	case "LogPath":
		c.LogPath = value
	case "LogLevel":
		lvl, ok := parseLogLevel(value)
		if !ok {
			return fmt.Errorf("unrecognised log level: %q", value)
		}
		c.LogLevel = lvl
	case "LogTarget":
		switch value {
		case "stdout":
			c.LogToStdout = true
		case "file":
			c.LogToStdout = false
		default:
			return fmt.Errorf("unrecognised log target: %q", value)
		}
	case "JwtEnabled":
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		c.JwtEnabled = b
	case "JwtSecret":
		c.JwtSecret = value
	case "MimeEnabled":
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		c.MimeEnabled = b
	}
	return nil
}

func parseBool(value string) (bool, error) {
	switch value {
	case "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return false, fmt.Errorf("expected 0 or 1, got %q", value)
	}
}
