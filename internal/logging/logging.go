// Package logging is a thin, colored wrapper over log/slog, generalizing
// the teacher's hand-rolled ANSI logger into the slog ecosystem's
// equivalent. It is used by cmd/enet-echo-server only — the enet engine
// package never logs.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Level names mirror the teacher's Debug/Info/Warn/Error/Success tiers.
// slog has no native "success" level, so it is modeled as a custom
// slog.Level (levelSuccess) between Info and Warn.
const (
	LevelDebug   = slog.LevelDebug
	LevelInfo    = slog.LevelInfo
	LevelWarn    = slog.LevelWarn
	LevelError   = slog.LevelError
	levelSuccess = slog.Level(1) // between Info(0) and Warn(4)
)

var defaultLogger = New(os.Stdout, LevelInfo)

// New builds a tint-backed slog.Logger writing to w at minLevel.
func New(w io.Writer, minLevel slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      minLevel,
		TimeFormat: "15:04:05",
	}))
}

// SetDefault replaces the package-level logger used by Debug/Info/Warn/
// Error/Success.
func SetDefault(l *slog.Logger) { defaultLogger = l }

func Debug(msg string, args ...any)   { defaultLogger.Debug(msg, args...) }
func Info(msg string, args ...any)    { defaultLogger.Info(msg, args...) }
func Warn(msg string, args ...any)    { defaultLogger.Warn(msg, args...) }
func Error(msg string, args ...any)   { defaultLogger.Error(msg, args...) }
func Success(msg string, args ...any) {
	defaultLogger.Log(context.Background(), levelSuccess, msg, args...)
}

// Fatal logs msg at Error and exits the process, mirroring the
// teacher's logger.Fatal.
func Fatal(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
	os.Exit(1)
}

// Section prints a boxed section header to stdout, matching the
// teacher's pkg/logger.Section banner style.
func Section(title string) {
	border := "═══════════════════════════════════════════════════════════"
	fmt.Printf("\n╔%s╗\n", border)
	fmt.Printf("║ %-57s ║\n", title)
	fmt.Printf("╚%s╝\n\n", border)
}

// Banner prints the startup banner, matching the teacher's
// pkg/logger.Banner but naming this module instead.
func Banner(title, version string) {
	fmt.Printf("\n=== %s v%s === %s\n\n", title, version, time.Now().Format(time.RFC3339))
}
