// Package trace implements the engine's append-only JSONL audit trail.
//
// Every event carries the SHA-256 of the previous line, so a trail that was
// edited or truncated in the middle fails Verify.
package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all trace event types.
type EventType string

const (
	EventRunStart        EventType = "run_start"
	EventStepStart       EventType = "step_start"
	EventCommandComplete EventType = "command_complete"
	EventActionResolved  EventType = "action_resolved"
	EventPromptAnswered  EventType = "prompt_answered"
	EventRunComplete     EventType = "run_complete"
	EventRunError        EventType = "run_error"
)

// genesisHash is the prev_hash of the first event in a trail.
var genesisHash = strings.Repeat("0", 64)

// Event is a single trace event written to the JSONL stream.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	PrevHash  string         `json:"prev_hash"`
	Data      map[string]any `json:"data,omitempty"`
}

// Writer writes trace events to an append-only JSONL stream.
type Writer struct {
	mu       sync.Mutex
	w        io.Writer
	closer   io.Closer
	runID    string
	prevHash string
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.New().String()
}

// NewWriter creates a trace writer that writes to the given io.Writer.
func NewWriter(w io.Writer, runID string) *Writer {
	return &Writer{
		w:        w,
		runID:    runID,
		prevHash: genesisHash,
	}
}

// NewFileWriter creates a trace writer on a new JSONL file. An existing
// file is truncated: one file holds one run's chain.
func NewFileWriter(path, runID string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	tw := NewWriter(f, runID)
	tw.closer = f
	return tw, nil
}

// RunID returns the run identifier stamped on every event.
func (tw *Writer) RunID() string { return tw.runID }

// Close closes the underlying file, if the writer owns one.
func (tw *Writer) Close() error {
	if tw.closer == nil {
		return nil
	}
	return tw.closer.Close()
}

// Emit writes a single trace event.
func (tw *Writer) Emit(eventType EventType, data map[string]any) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	evt := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RunID:     tw.runID,
		PrevHash:  tw.prevHash,
		Data:      data,
	}
	line, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	sum := sha256.Sum256(line)
	if _, err := tw.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write %s event: %w", eventType, err)
	}
	tw.prevHash = hex.EncodeToString(sum[:])
	return nil
}

// EmitRunStart emits a run_start event with workflow info.
func (tw *Writer) EmitRunStart(workflow, mode string, steps int) error {
	return tw.Emit(EventRunStart, map[string]any{
		"workflow": workflow,
		"mode":     mode,
		"steps":    steps,
	})
}

// EmitStepStart emits a step_start event.
func (tw *Writer) EmitStepStart(step int, description string, iteration int) error {
	return tw.Emit(EventStepStart, map[string]any{
		"step":        step,
		"description": description,
		"iteration":   iteration,
	})
}

// EmitCommandComplete emits a command_complete event.
func (tw *Writer) EmitCommandComplete(step, exitCode int, success bool, duration time.Duration) error {
	return tw.Emit(EventCommandComplete, map[string]any{
		"step":      step,
		"exit_code": exitCode,
		"success":   success,
		"duration":  duration.String(),
	})
}

// EmitActionResolved emits an action_resolved event. source is where the
// action came from: conditions, implicit or mode_fallback.
func (tw *Writer) EmitActionResolved(step int, action, source string) error {
	return tw.Emit(EventActionResolved, map[string]any{
		"step":   step,
		"action": action,
		"source": source,
	})
}

// EmitPromptAnswered emits a prompt_answered event.
func (tw *Writer) EmitPromptAnswered(step int, prompt string, affirmed bool) error {
	return tw.Emit(EventPromptAnswered, map[string]any{
		"step":     step,
		"prompt":   prompt,
		"affirmed": affirmed,
	})
}

// EmitRunComplete emits a run_complete event.
func (tw *Writer) EmitRunComplete(outcome, message string, duration time.Duration) error {
	data := map[string]any{
		"outcome":  outcome,
		"duration": duration.String(),
	}
	if message != "" {
		data["message"] = message
	}
	return tw.Emit(EventRunComplete, data)
}

// EmitRunError emits a run_error event for a fatal execution error.
func (tw *Writer) EmitRunError(step int, err error) error {
	return tw.Emit(EventRunError, map[string]any{
		"step":  step,
		"error": err.Error(),
	})
}
