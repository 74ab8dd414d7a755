// Package zlog holds the single package-level logger shared by the tree,
// transaction processor, watch manager, and snapshot codec.
//
// spec.md §9 singles out logging as the one piece of global state this
// system is allowed to have ("Logging is the only global"); this package is
// that global. Tests and embedders may call SetLogger to redirect or
// silence output instead of reaching into package internals.
package zlog

import "github.com/sirupsen/logrus"

var log = logrus.StandardLogger()

// SetLogger replaces the package-level logger. Intended for embedders that
// want their own logrus instance/formatter, and for tests that want a
// buffered or discarding logger.
func SetLogger(l *logrus.Logger) {
	if l == nil {
		return
	}
	log = l
}

// L returns the current package-level logger.
func L() *logrus.Logger {
	return log
}

// WithFields is a convenience wrapper around L().WithFields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return log.WithFields(fields)
}
