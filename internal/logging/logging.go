// Package logging constructs the process-wide structured logger, following
// the teacher's mixed logrus-everywhere idiom (cmd/dexserver/main.go,
// core/storage.go).
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logrus logger configured from DEBUG (spec.md §6): debug
// enables verbose tracing.
func New(debug bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}
