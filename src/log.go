package skysched

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the scheduler's structured logger, replacing the
// teacher's file-based Tracet/TraceLevel pair (common.go) with logrus's
// level-gated JSON/text output: Tracet's numeric level argument becomes
// logrus's named Level, and traceswap's periodic file rotation is left
// to the caller's io.Writer (e.g. lumberjack) rather than reimplemented
// here.
func NewLogger(level logrus.Level, out io.Writer) *logrus.Logger {
	if out == nil {
		out = os.Stderr
	}
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log
}
