// Package loggertest provides loggers for tests.
package loggertest

import (
	"testing"

	"cs-portal/internal/logger"

	"go.uber.org/zap/zaptest"
)

// New returns a Logger that writes through t.
func New(t testing.TB) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}
