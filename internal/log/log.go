package log

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"log/slog"
	"os"
	"runtime"
	"time"
)

func Green(format string, v ...interface{}) string {
	return fmt.Sprintf("\033[32m"+format+"\033[0m", v...)
}

func Yellow(format string, v ...interface{}) string {
	return fmt.Sprintf("\033[33m"+format+"\033[0m", v...)
}

func Red(format string, v ...interface{}) string {
	return fmt.Sprintf("\033[31m"+format+"\033[0m", v...)
}

func Cyan(format string, v ...interface{}) string {
	return fmt.Sprintf("\033[36m"+format+"\033[0m", v...)
}

func Gray(format string, v ...interface{}) string {
	return fmt.Sprintf("\033[90m"+format+"\033[0m", v...)
}

// Handler renders slog records as colorized single-line terminal output with
// the caller's file:line appended.
type Handler struct {
	w     io.Writer
	level slog.Level
}

func NewHandler(w io.Writer, level slog.Level) *Handler {
	return &Handler{w: w, level: level}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var file string
	var line int
	if r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		file = f.File
		line = f.Line
	}

	timeStr := r.Time.Format("2006/01/02 15:04:05")

	// scope, if set, is folded into the level tag: [WARN/sandbox]
	scope := ""
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "_scope" {
			scope = a.Value.String()
			return false
		}
		return true
	})

	levelStr := ""
	switch r.Level {
	case slog.LevelDebug:
		if scope != "" {
			levelStr = Cyan("[DEBUG/%s]", scope)
		} else {
			levelStr = Cyan("[DEBUG]")
		}
	case slog.LevelInfo:
		if scope != "" {
			levelStr = Green(fmt.Sprintf("[INFO/%s]", scope))
		} else {
			levelStr = Green("[INFO]")
		}
	case slog.LevelWarn:
		if scope != "" {
			levelStr = Yellow(fmt.Sprintf("[WARN/%s]", scope))
		} else {
			levelStr = Yellow("[WARN]")
		}
	case slog.LevelError:
		if scope != "" {
			levelStr = Red(fmt.Sprintf("[ERROR/%s]", scope))
		} else {
			levelStr = Red("[ERROR]")
		}
	}

	var msg string
	if file != "" {
		msg = fmt.Sprintf("%s %s %s %s",
			timeStr,
			levelStr,
			r.Message,
			Gray(fmt.Sprintf("(%s:%d)", file, line)))
	} else {
		msg = fmt.Sprintf("%s %s %s", timeStr, levelStr, r.Message)
	}

	r.Attrs(func(a slog.Attr) bool {
		if a.Key != "_scope" {
			msg += fmt.Sprintf(" %s=%s", Cyan(a.Key), Yellow(fmt.Sprintf("%v", a.Value)))
		}
		return true
	})

	msg += "\n"
	_, err := h.w.Write([]byte(msg))
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return h
}

// SetupGlobalLogger installs the handler as the slog default and reroutes the
// standard library log package through it.
func SetupGlobalLogger(level slog.Level) {
	handler := NewHandler(os.Stdout, level)
	slog.SetDefault(slog.New(handler))

	stdlog.SetOutput(&writerAdapter{handler: handler, level: level})
	stdlog.SetFlags(0)
	stdlog.SetPrefix("")
}

// writerAdapter bridges io.Writer style logging (std log, gin debug output)
// into the slog handler.
type writerAdapter struct {
	handler slog.Handler
	level   slog.Level
}

func (w *writerAdapter) Write(p []byte) (n int, err error) {
	msg := string(p)
	if len(msg) > 0 && msg[len(msg)-1] == '\n' {
		msg = msg[:len(msg)-1]
	}

	var pcs [1]uintptr
	runtime.Callers(4, pcs[:]) // skip [Callers, Write, log.Output, log.Printf/etc]

	r := slog.NewRecord(time.Now(), w.level, msg, pcs[0])
	return len(p), w.handler.Handle(context.Background(), r)
}

// GetWriter returns an io.Writer backed by the default slog handler.
func GetWriter() io.Writer {
	handler := slog.Default().Handler()
	return &writerAdapter{handler: handler, level: slog.LevelInfo}
}
