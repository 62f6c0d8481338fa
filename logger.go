package recipeagent

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// TurnLogger is the interface for structured per-turn summary logging.
type TurnLogger interface {
	LogTurn(turn TurnLog) error
}

// NewTurnLogFilePath returns a file path based on a cleaned up model name or id to make it easier to identify logs produced with various models.
func NewTurnLogFilePath(model string) string {
	return fmt.Sprintf(
		"./logs/%d.%s.json",
		time.Now().Unix(),
		strings.ReplaceAll(strings.ToLower(model), ":", "_"),
	)
}

// TurnLog is the structured summary of what one conversation turn did. Every
// branch of the orchestrator emits one, including early-exit branches.
type TurnLog struct {
	TurnID        string    `json:"turn_id"`
	Username      string    `json:"username"`
	Timestamp     time.Time `json:"timestamp"`
	Mode          string    `json:"mode"`
	Outcome       string    `json:"outcome"`
	Query         string    `json:"query,omitempty"`
	FocusNutrient string    `json:"focus_nutrient,omitempty"`
	Fetched       int       `json:"fetched"`
	Compliant     int       `json:"compliant"`
	Returned      int       `json:"returned"`
	SaveError     string    `json:"save_error,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// FileTurnLogger logs to a file, accumulating turns and flushing at the end
type FileTurnLogger struct {
	turns  []TurnLog
	writer io.Writer
}

// NewFileTurnLogger creates a new file-based turn logger
func NewFileTurnLogger(writer io.Writer) *FileTurnLogger {
	return &FileTurnLogger{
		turns:  make([]TurnLog, 0),
		writer: writer,
	}
}

// LogTurn logs a turn to the buffer (does not flush immediately)
func (ftl *FileTurnLogger) LogTurn(turn TurnLog) error {
	ftl.turns = append(ftl.turns, turn)
	return nil
}

// Flush flushes all accumulated turns to the writer
func (ftl *FileTurnLogger) Flush() error {
	if ftl.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"recommendation_session": map[string]any{
			"timestamp": time.Now(),
			"turns":     ftl.turns,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal turn log: %w", err)
	}

	if _, err := ftl.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write turn log: %w", err)
	}

	// Clear the buffer after successful write
	ftl.turns = ftl.turns[:0]
	return nil
}

// NoOpTurnLogger is a logger that discards all log entries
type NoOpTurnLogger struct{}

// NewNoOpTurnLogger creates a new no-op turn logger
func NewNoOpTurnLogger() *NoOpTurnLogger {
	return &NoOpTurnLogger{}
}

// LogTurn discards the turn log (no-op)
func (nop *NoOpTurnLogger) LogTurn(turn TurnLog) error {
	return nil
}

// StdoutTurnLogger logs each turn as a JSON line to stdout (for Lambda/CloudWatch)
type StdoutTurnLogger struct{}

// NewStdoutTurnLogger creates a new stdout-based turn logger
func NewStdoutTurnLogger() *StdoutTurnLogger {
	return &StdoutTurnLogger{}
}

// LogTurn writes the turn as a JSON line to os.Stdout
func (l *StdoutTurnLogger) LogTurn(turn TurnLog) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
