package engine

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoggerBasicLogging(t *testing.T) {
	var buf bytes.Buffer

	logger := NewLogger()
	logger.Start()
	logger.logger.SetOutput(&buf)

	testMessage := "this is a test message."
	logger.Log("test", testMessage)

	time.Sleep(10 * time.Millisecond)
	logger.Stop()

	assert.Contains(t, buf.String(), testMessage)
}

func TestLoggerFallsBackToStderrBeforeStart(t *testing.T) {
	originalStderr := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	os.Stderr = w

	logger := NewLogger()
	testMessage := "not started yet."
	logger.Log("test", testMessage)

	os.Stderr = originalStderr
	w.Close()

	var buf bytes.Buffer
	io.Copy(&buf, r)
	r.Close()

	assert.Contains(t, buf.String(), testMessage)
}

func TestLoggerFallsBackToStderrAfterStop(t *testing.T) {
	originalStderr := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	os.Stderr = w

	logger := NewLogger()
	logger.Start()
	logger.Stop()

	testMessage := "this message goes to stderr."
	logger.Log("test", testMessage)

	os.Stderr = originalStderr
	w.Close()

	var buf bytes.Buffer
	io.Copy(&buf, r)
	r.Close()

	assert.Contains(t, buf.String(), testMessage)
}

func TestLoggerConcurrency(t *testing.T) {
	var buf bytes.Buffer

	logger := NewLogger()
	logger.Start()
	logger.logger.SetOutput(&buf)

	var wg sync.WaitGroup
	n := 100
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger.Log("test", fmt.Sprintf("message %d", id))
		}(i)
	}
	wg.Wait()
	logger.Stop()

	assert.Equal(t, n, len(strings.Split(strings.TrimSpace(buf.String()), "\n")))
}

func TestLoggerNilReceiverWritesToStderr(t *testing.T) {
	originalStderr := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	os.Stderr = w

	var logger *Logger
	logger.Log("test", "nil logger message")

	os.Stderr = originalStderr
	w.Close()

	var buf bytes.Buffer
	io.Copy(&buf, r)
	r.Close()

	assert.Contains(t, buf.String(), "nil logger message")
}

func TestLoggerPanicsOnStopWithoutStart(t *testing.T) {
	logger := NewLogger()
	assert.Panics(t, func() {
		logger.Stop()
	})
}

func TestLoggerPanicsOnDoubleStart(t *testing.T) {
	logger := NewLogger()
	logger.Start()
	defer logger.Stop()
	assert.Panics(t, func() {
		logger.Start()
	})
}

// TestLoggerSeverityLevels covers SPEC_FULL.md §4.5's leveled logging: Log
// is debug, Warn and Error are their own levels, and all three carry the
// segment id as a structured field rather than a hand-formatted prefix.
func TestLoggerSeverityLevels(t *testing.T) {
	var buf bytes.Buffer

	logger := NewLogger()
	logger.Start()
	logger.logger.SetOutput(&buf)

	logger.Log("navigate", "routine lookup")
	logger.Warn("watch", "backing file watch error: boom")
	logger.Error("defrag", "defragmentation failed: boom")

	time.Sleep(10 * time.Millisecond)
	logger.Stop()

	output := buf.String()
	assert.Contains(t, output, "level=debug")
	assert.Contains(t, output, "level=warning")
	assert.Contains(t, output, "level=error")
	assert.Contains(t, output, `segment=navigate`)
	assert.Contains(t, output, `segment=watch`)
	assert.Contains(t, output, `segment=defrag`)
}
