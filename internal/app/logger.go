package app

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger from cfg. cfg must have passed
// FixupAndValidate.
func NewLogger(cfg Logging) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(level)
	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}
