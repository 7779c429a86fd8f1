package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// LogFile is the name of the log written inside each session directory.
const LogFile = "processing.log"

const sessionLayout = "2006-01-02_15-04-05"

// New builds a logger for mode ("development" or "production"). When dir is
// set, a fresh session directory <dir>/<timestamp> is created and the log is
// written there as well as to stderr; its path is returned.
func New(mode, dir string) (*zap.Logger, string, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}

	var session string
	if dir != "" {
		session = filepath.Join(dir, time.Now().Format(sessionLayout))
		if err := os.MkdirAll(session, 0755); err != nil {
			return nil, "", fmt.Errorf("failed to create log directory: %w", err)
		}
		cfg.OutputPaths = append(cfg.OutputPaths, filepath.Join(session, LogFile))
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, "", fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, session, nil
}
