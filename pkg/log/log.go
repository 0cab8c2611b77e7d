// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/walteh/fileops/pkg/model"
)

// 🎨 Display configuration
const (
	opIndent     = 4  // spaces to indent operation lines
	idWidth      = 12 // width for the operation id
	kindWidth    = 8  // width for the operation kind
	statusWidth  = 13 // width for the status text
	shortIDWidth = idWidth - 1
)

// 📦 Batch describes a group of operations printed together
type Batch struct {
	Title string // what the batch is, e.g. "operations"
	Total int    // total reported by the backend
}

// 🎯 Logger prints operation events for humans and mirrors them to zerolog
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
	batch   *Batch
	printed int
}

// 🏭 New creates a new logger writing to console and mirroring to zlog
func New(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

func statusSymbol(s model.Status) (rune, color.Attribute) {
	switch s {
	case model.StatusCompleted:
		return '✓', color.FgGreen
	case model.StatusFailed:
		return '✗', color.FgRed
	case model.StatusRolledBack:
		return '↺', color.FgMagenta
	case model.StatusInProgress:
		return '⟳', color.FgBlue
	case model.StatusValidated:
		return '•', color.FgCyan
	default:
		return '-', color.FgYellow
	}
}

func shortID(id string) string {
	runes := []rune(id)
	if len(runes) > idWidth {
		return string(runes[:shortIDWidth]) + "…"
	}
	return id
}

// 📝 formatOperation formats an operation for display
func (l *Logger) formatOperation(op model.Operation) string {
	symbol, symbolColor := statusSymbol(op.Status)

	var kindColor color.Attribute
	switch op.Kind {
	case model.KindDelete:
		kindColor = color.FgRed
	case model.KindMove:
		kindColor = color.FgBlue
	default:
		kindColor = color.FgCyan
	}

	paths := op.SourcePath
	if op.TargetPath != "" {
		paths += " → " + op.TargetPath
	}

	return fmt.Sprintf("%s%s %s %s %s %s",
		fmt.Sprintf("%*s", opIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", idWidth, shortID(op.ID)),
		color.New(kindColor).Sprint(fmt.Sprintf("%-*s", kindWidth, op.Kind)),
		fmt.Sprintf("%-*s", statusWidth, op.Status),
		paths)
}

// 📝 LogOperation prints one operation line
func (l *Logger) LogOperation(ctx context.Context, op model.Operation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.printed++
	fmt.Fprintln(l.console, l.formatOperation(op))

	ev := l.zlog.Info().
		Str("operation", op.ID).
		Str("kind", string(op.Kind)).
		Str("status", string(op.Status)).
		Str("source", op.SourcePath)
	if op.TargetPath != "" {
		ev = ev.Str("target", op.TargetPath)
	}
	if op.BackupPath != "" {
		ev = ev.Str("backup", op.BackupPath)
	}
	if op.ErrorMessage != "" {
		ev = ev.Str("error", op.ErrorMessage)
	}
	ev.Msg("file operation")
}

// 📝 StartBatch prints a batch header
func (l *Logger) StartBatch(ctx context.Context, b Batch) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.batch = &b
	l.printed = 0

	fmt.Fprintf(l.console, "%s %s %s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprint(b.Title),
		color.New(color.Faint).Sprint("•"),
		color.New(color.FgYellow).Sprintf("%d total", b.Total))

	l.zlog.Info().
		Str("batch", b.Title).
		Int("total", b.Total).
		Msg("starting batch")
}

// 📝 EndBatch ends the current batch
func (l *Logger) EndBatch(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.batch == nil {
		return
	}

	l.zlog.Info().
		Str("batch", l.batch.Title).
		Int("printed", l.printed).
		Msg("batch complete")

	l.batch = nil
	l.printed = 0
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("fileops")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}
