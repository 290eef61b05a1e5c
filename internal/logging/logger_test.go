package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:  "debug",
		Pretty: false,
		Output: &buf,
	})

	logger.Debug().Msg("debug message")
	logger.Info().Msg("info message")

	output := buf.String()

	if !strings.Contains(output, "debug message") {
		t.Error("Expected debug message to be logged at debug level")
	}
	if !strings.Contains(output, "info message") {
		t.Error("Expected info message to be logged at debug level")
	}
}

func TestNew_InfoLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:  "info",
		Pretty: false,
		Output: &buf,
	})

	logger.Debug().Msg("debug message")
	logger.Info().Msg("info message")

	output := buf.String()

	if strings.Contains(output, "debug message") {
		t.Error("Expected debug message to NOT be logged at info level")
	}
	if !strings.Contains(output, "info message") {
		t.Error("Expected info message to be logged at info level")
	}
}

func TestNew_WarnLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:  "warn",
		Pretty: false,
		Output: &buf,
	})

	logger.Info().Msg("info message")
	logger.Warn().Msg("warn message")

	output := buf.String()

	if strings.Contains(output, "info message") {
		t.Error("Expected info message to NOT be logged at warn level")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("Expected warn message to be logged at warn level")
	}
}

func TestNewWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithComponent(Config{
		Level:  "info",
		Pretty: false,
		Output: &buf,
	}, "test-component")

	logger.Info().Msg("test message")

	output := buf.String()

	if !strings.Contains(output, "test-component") {
		t.Error("Expected log to contain component name 'test-component'")
	}
	if !strings.Contains(output, "test message") {
		t.Error("Expected log to contain message 'test message'")
	}
}

func TestNew_DefaultOutput(t *testing.T) {
	// Test that logger doesn't panic when Output is nil.
	logger := New(Config{
		Level:  "info",
		Pretty: false,
		Output: nil, // Should default to os.Stderr.
	})

	// This should not panic.
	logger.Info().Msg("test message")
}

func TestNew_InvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:  "invalid",
		Pretty: false,
		Output: &buf,
	})

	// Invalid level should default to info.
	logger.Debug().Msg("debug message")
	logger.Info().Msg("info message")

	output := buf.String()

	if strings.Contains(output, "debug message") {
		t.Error("Expected debug message to NOT be logged with invalid level (should default to info)")
	}
	if !strings.Contains(output, "info message") {
		t.Error("Expected info message to be logged with invalid level (should default to info)")
	}
}

func TestNew_LevelHierarchy(t *testing.T) {
	levels := []struct {
		level    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
	}

	for _, tc := range levels {
		t.Run(tc.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(Config{
				Level:  tc.level,
				Pretty: false,
				Output: &buf,
			})

			if logger.GetLevel() != tc.expected {
				t.Errorf("Expected level %v, got %v", tc.expected, logger.GetLevel())
			}
		})
	}
}

func TestNewFileLogger(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "shoal.log")

	logger, closeFn, err := NewFileLogger(Config{Level: "info"}, path)
	if err != nil {
		t.Fatalf("NewFileLogger() error: %v", err)
	}

	logger.Info().Str("component", "test").Msg("file message")

	if err := closeFn(); err != nil {
		t.Fatalf("close error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "file message") {
		t.Error("Expected log file to contain message 'file message'")
	}
}
