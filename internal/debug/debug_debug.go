//go:build debug

package debug

import "go.uber.org/zap"

var logger = zap.Must(zap.NewDevelopment()).Sugar().Named("jsonhttp")

// Printf logs a debug trace line.  Only built with the debug tag.
func Printf(msg string, args ...any) {
	logger.Debugf(msg, args...)
}

const On = true
