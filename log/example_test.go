package log_test

import (
	"log/slog"
	"os"

	"github.com/ardnew/lineprof/log"
)

func Example_basic() {
	logger := log.Make(os.Stdout,
		log.WithFormat(log.FormatText),
		log.WithPretty(false),
		log.WithTimeLayout("none"))

	logger.Info("profile complete", slog.Int("files", 3))
	// Output: level=INFO msg="profile complete" files=3
}

func Example_levels() {
	logger := log.Make(os.Stdout,
		log.WithLevel(log.LevelWarn),
		log.WithFormat(log.FormatText),
		log.WithPretty(false),
		log.WithTimeLayout("none"))

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("clamped", slog.String("thread", "t1"))
	// Output: level=WARN msg=clamped thread=t1
}

func Example_withAttributes() {
	logger := log.Make(os.Stdout,
		log.WithFormat(log.FormatText),
		log.WithPretty(false),
		log.WithTimeLayout("none"))

	logger = logger.With(slog.String("session", "demo"))
	logger.Info("installed")
	// Output: level=INFO msg=installed session=demo
}
