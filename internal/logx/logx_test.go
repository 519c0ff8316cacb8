package logx

import (
	"bytes"
	"encoding/json"
	stdlog "log"
	"strings"
	"testing"

	"github.com/rs/zerolog/log"

	"github.com/Simplici0/margingate/internal/config"
)

func TestInitProductionWritesJSONAtInfo(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	Init(LoggerOpts{Environment: config.Production, Output: &buf})

	Debug().Msg("hidden")
	Info().Int64("quote_id", 42).Str("event", "send").Msg("quote transition")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected only the info line, got %q", buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("production log is not JSON: %v", err)
	}
	if entry["level"] != "info" || entry["event"] != "send" || entry["quote_id"] != float64(42) {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestInitDevelopmentLogsDebug(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	Init(LoggerOpts{Environment: config.Development, Output: &buf})

	Debug().Msg("visible in dev")
	if !strings.Contains(buf.String(), "visible in dev") {
		t.Fatalf("debug line missing: %q", buf.String())
	}
}

func TestLoggerBacksStandardLog(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	Init(LoggerOpts{Environment: config.Production, Output: &buf})

	stdlog.New(Logger(), "", 0).Print("http: TLS handshake error")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("bridged log is not JSON: %v (%q)", err, buf.String())
	}
	if entry["message"] != "http: TLS handshake error" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}
