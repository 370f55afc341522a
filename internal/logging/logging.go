// Package logging wraps zerolog with agentcore's defaults: console output,
// optional pretty-printing for interactive use, and an optional timestamped
// log file sink for long-running sessions (the file is not rotated).
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the package-wide logger instance, usable before Init is called
// thanks to the default logger installed by init().
var Logger zerolog.Logger

// logFile is the currently open log file, if LogToFile is enabled.
var logFile *os.File

// Level aliases zerolog's level type so callers don't need to import zerolog
// directly for basic configuration.
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config controls how Init sets up the global logger.
type Config struct {
	// Level is the minimum level that gets written.
	Level Level
	// Output is the console sink. Defaults to os.Stderr.
	Output io.Writer
	// Pretty switches the console sink to zerolog's human-readable writer.
	Pretty bool
	// TimeFormat overrides zerolog's timestamp format. Defaults to RFC3339.
	TimeFormat string
	// LogToFile additionally writes every record to a timestamped file.
	LogToFile bool
	// LogDir is where that file is created. Defaults to /tmp.
	LogDir string
}

// DefaultConfig returns console-only logging at info level.
func DefaultConfig() Config {
	return Config{
		Level:      InfoLevel,
		Output:     os.Stderr,
		Pretty:     false,
		TimeFormat: time.RFC3339,
		LogToFile:  false,
		LogDir:     "/tmp",
	}
}

// Init (re)configures the global Logger. Safe to call more than once; a
// previously open log file is closed before a new one is opened.
func Init(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}
	if cfg.LogDir == "" {
		cfg.LogDir = "/tmp"
	}

	zerolog.TimeFieldFormat = cfg.TimeFormat

	var writers []io.Writer

	var consoleOutput io.Writer = cfg.Output
	if cfg.Pretty {
		consoleOutput = zerolog.ConsoleWriter{
			Out:        cfg.Output,
			TimeFormat: cfg.TimeFormat,
		}
	}
	writers = append(writers, consoleOutput)

	if cfg.LogToFile {
		if logFile != nil {
			logFile.Close()
		}

		timestamp := time.Now().Format("20060102-150405")
		logPath := filepath.Join(cfg.LogDir, fmt.Sprintf("agentcore-%s.log", timestamp))

		var err error
		logFile, err = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			writers = append(writers, logFile)
		}
	}

	var output io.Writer
	if len(writers) == 1 {
		output = writers[0]
	} else {
		output = zerolog.MultiLevelWriter(writers...)
	}

	Logger = zerolog.New(output).
		Level(cfg.Level).
		With().
		Timestamp().
		Logger()
}

// GetLogFilePath returns the path of the currently open log file, or "" if
// LogToFile is not active.
func GetLogFilePath() string {
	if logFile != nil {
		return logFile.Name()
	}
	return ""
}

// Close closes the open log file, if any.
func Close() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// ParseLevel parses a case-insensitive level name (DEBUG/INFO/WARN/ERROR/
// FATAL), falling back to InfoLevel for anything unrecognized.
func ParseLevel(level string) Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DebugLevel
	case "INFO":
		return InfoLevel
	case "WARN", "WARNING":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	case "FATAL":
		return FatalLevel
	default:
		return InfoLevel
	}
}

func Debug() *zerolog.Event {
	return Logger.Debug()
}

func Info() *zerolog.Event {
	return Logger.Info()
}

func Warn() *zerolog.Event {
	return Logger.Warn()
}

func Error() *zerolog.Event {
	return Logger.Error()
}

// Fatal starts a fatal-level event; Msg/Send on it calls os.Exit(1).
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

// With starts a child-logger context for attaching fields.
func With() zerolog.Context {
	return Logger.With()
}

func init() {
	Init(DefaultConfig())
}
