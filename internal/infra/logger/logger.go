// internal/infra/logger/logger.go
package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds the process logger. JSON output keeps Cloud Run log parsing
// happy; unknown levels fall back to info.
func New(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	lv, err := logrus.ParseLevel(strings.TrimSpace(strings.ToLower(level)))
	if err != nil {
		lv = logrus.InfoLevel
	}
	log.SetLevel(lv)
	return log
}
