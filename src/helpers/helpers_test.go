package helpers

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestAbsolutePathFunction(t *testing.T) {
	found := AbsolutePath("file", "/root/to/")
	expected := "/root/to/file"
	if found != expected {
		t.Errorf("Expected %s but got %s", expected, found)
	}

	found = AbsolutePath("/file", "/root/to/")
	expected = "/file"
	if found != expected {
		t.Errorf("Expected %s but got %s", expected, found)
	}
}

// TestInitLogging makes sure that logs will be stored in the log file and
// written to the console after logging has been set up.
func TestInitLogging(t *testing.T) {
	defer func(logger zerolog.Logger, level zerolog.Level) {
		log.Logger = logger
		zerolog.SetGlobalLevel(level)
	}(log.Logger, zerolog.GlobalLevel())

	var console bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "some", "place", "localmedia.log")

	if err := InitLogging(&console, logFile, false); err != nil {
		t.Fatalf("setting up logging failed: %s", err)
	}

	const testLogMessage = "test message"
	log.Info().Msg(testLogMessage)
	log.Debug().Msg("hidden message")

	logData, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("error reading the log file: %s", err)
	}

	for _, out := range []string{string(logData), console.String()} {
		if !strings.Contains(out, testLogMessage) {
			t.Errorf("log did not contain `%s`. It was:\n%s", testLogMessage, out)
		}
		if strings.Contains(out, "hidden message") {
			t.Errorf("debug message logged at info level:\n%s", out)
		}
	}
}

func TestInitLoggingDebug(t *testing.T) {
	defer func(logger zerolog.Logger, level zerolog.Level) {
		log.Logger = logger
		zerolog.SetGlobalLevel(level)
	}(log.Logger, zerolog.GlobalLevel())

	var console bytes.Buffer
	if err := InitLogging(&console, "", true); err != nil {
		t.Fatalf("setting up logging failed: %s", err)
	}

	log.Debug().Msg("debug message")
	if !strings.Contains(console.String(), "debug message") {
		t.Errorf("debug message was not logged:\n%s", console.String())
	}
}
