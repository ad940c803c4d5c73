package app

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// App is a wired client with a running sync engine.
type App struct {
	*Wire
	Logger *logrus.Logger
}

// Open loads the configuration for home, lets override adjust it (for
// command-line flags), and wires the client. Logs go to logOut.
func Open(home string, logOut io.Writer, override func(*Config)) (*App, error) {
	cfg, err := LoadConfig(home)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(&cfg)
	}
	logger, err := NewLogger(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}
	w, err := NewWire(cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	return &App{Wire: w, Logger: logger}, nil
}

// Start arms the periodic sync.
func (a *App) Start() {
	a.Sync.Start()
}

// Close stops the sync engine and sends the exit beacon.
func (a *App) Close(ctx context.Context) error {
	return a.Sync.Close(ctx)
}
