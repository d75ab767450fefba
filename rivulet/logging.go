package rivulet

import (
	"context"
	"os"

	"github.com/datawire/dlib/dlog"
	"github.com/sirupsen/logrus"
)

// DefaultLogContext builds a context carrying a logrus-backed dlog.Logger,
// level taken from LOG_LEVEL (info if unset or unparsable), for callers
// that want WithLogContext wired up without bringing their own logger.
func DefaultLogContext(ctx context.Context) context.Context {
	return dlog.WithLogger(ctx, dlog.WrapLogrus(defaultLogrusLogger()))
}

func defaultLogrusLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})
	logger.SetReportCaller(false)

	const defaultLevel = logrus.InfoLevel
	level := defaultLevel
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		level = lvl
	}
	logger.SetLevel(level)
	return logger
}
