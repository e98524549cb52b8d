package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetupLogging(t *testing.T) {
	originalLogger := log.Logger
	defer func() {
		log.Logger = originalLogger
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}()

	t.Run("json format emits parseable logs", func(t *testing.T) {
		setupLogging("info", "json")

		var buf bytes.Buffer
		log.Logger = zerolog.New(&buf).With().Timestamp().Logger()

		log.Info().Int64("report", 17).Msg("report claimed")

		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry); err != nil {
			t.Fatalf("Failed to parse log as JSON: %v\nOutput: %s", err, buf.String())
		}
		if entry["report"] != float64(17) {
			t.Errorf("Expected report=17, got %v", entry["report"])
		}
		if entry["message"] != "report claimed" {
			t.Errorf("Unexpected message: %v", entry["message"])
		}
	})

	t.Run("level filtering", func(t *testing.T) {
		setupLogging("warn", "json")

		var buf bytes.Buffer
		log.Logger = zerolog.New(&buf)

		log.Info().Msg("dropped")
		log.Warn().Msg("kept")

		out := buf.String()
		if strings.Contains(out, "dropped") {
			t.Errorf("Info log not filtered at warn level: %s", out)
		}
		if !strings.Contains(out, "kept") {
			t.Errorf("Warn log missing: %s", out)
		}
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		setupLogging("verbose", "json")
		if zerolog.GlobalLevel() != zerolog.InfoLevel {
			t.Errorf("Expected info level, got %v", zerolog.GlobalLevel())
		}
	})
}
