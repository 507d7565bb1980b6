package vecdb

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with helpers for the database's operations.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler. A nil handler falls
// back to a text handler writing to stderr at Info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that writes JSON to stderr at level.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NewTextLogger creates a Logger that writes human-readable text to stderr
// at level.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(1000)}))}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(id uint32, dimension int, err error) {
	if err != nil {
		l.Error("insert failed", "dimension", dimension, "error", err)
		return
	}
	l.Debug("insert completed", "id", id, "dimension", dimension)
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(id uint32, err error) {
	if err != nil {
		l.Error("delete failed", "id", id, "error", err)
		return
	}
	l.Debug("delete completed", "id", id)
}

// LogUpdate logs an update operation.
func (l *Logger) LogUpdate(oldID, newID uint32, err error) {
	if err != nil {
		l.Error("update failed", "old_id", oldID, "error", err)
		return
	}
	l.Debug("update completed", "old_id", oldID, "new_id", newID)
}

// LogQuery logs a k-nearest-neighbors query.
func (l *Logger) LogQuery(k, found int, err error) {
	if err != nil {
		l.Error("query failed", "k", k, "error", err)
		return
	}
	l.Debug("query completed", "k", k, "found", found)
}

// LogRebuild logs a full index rebuild.
func (l *Logger) LogRebuild(before, after int, err error) {
	if err != nil {
		l.Error("rebuild failed", "error", err)
		return
	}
	l.Info("rebuild completed", "before", before, "after", after)
}

// LogSave logs a save-to-path operation.
func (l *Logger) LogSave(path string, err error) {
	if err != nil {
		l.Error("save failed", "path", path, "error", err)
		return
	}
	l.Info("save completed", "path", path)
}

// LogLoad logs a load-from-path operation.
func (l *Logger) LogLoad(path string, err error) {
	if err != nil {
		l.Error("load failed", "path", path, "error", err)
		return
	}
	l.Info("load completed", "path", path)
}

// LogTrainQuantizer logs a quantizer training pass.
func (l *Logger) LogTrainQuantizer(vectors int, err error) {
	if err != nil {
		l.Error("train_quantizer failed", "vectors", vectors, "error", err)
		return
	}
	l.Info("train_quantizer completed", "vectors", vectors)
}
