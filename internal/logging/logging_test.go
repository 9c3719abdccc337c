package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit_JSONWithComponent(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	if err := Init(Options{Level: "debug", JSON: true, Out: &buf}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	l := Component("collector")
	l.Debug().Str("repo", "acme/widget").Msg("collected")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["component"] != "collector" || entry["repo"] != "acme/widget" || entry["level"] != "debug" {
		t.Errorf("entry = %v", entry)
	}
}

func TestInit_QuietDropsInfo(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	if err := Init(Options{Quiet: true, JSON: true, Out: &buf}); err != nil {
		t.Fatal(err)
	}
	l := Component("x")
	l.Info().Msg("hidden")
	l.Error().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("output = %q, want only the error line", out)
	}
}

func TestInit_RejectsUnknownLevel(t *testing.T) {
	if err := Init(Options{Level: "loud"}); err == nil {
		t.Fatal("Init accepted unknown level")
	}
}

func TestInit_ConsoleByDefault(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	if err := Init(Options{Out: &buf}); err != nil {
		t.Fatal(err)
	}
	l := Component("reader")
	l.Debug().Msg("too verbose")
	l.Warn().Msg("read failed")

	out := buf.String()
	if strings.Contains(out, "too verbose") {
		t.Errorf("debug line written at info level: %q", out)
	}
	if !strings.Contains(out, "read failed") || strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("output = %q, want a console line", out)
	}
}
