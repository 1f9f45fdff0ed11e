package fixapi

import (
	"bytes"
	"fmt"
	"os"

	"github.com/quickfixgo/quickfix"
	"go.uber.org/zap"
)

type GatewayConfig struct {
	ConfigFilepath string
	TickSize       string
}

// Gateway is a FIX acceptor translating NewOrderSingle into engine orders.
type Gateway struct {
	acceptor *quickfix.Acceptor
	app      *Application
	logger   *zap.Logger
}

func NewGateway(cfg GatewayConfig, e Submitter, logger *zap.Logger) (*Gateway, error) {
	conv, err := NewConverter(cfg.TickSize)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(cfg.ConfigFilepath)
	if err != nil {
		return nil, fmt.Errorf("error opening %v: %w", cfg.ConfigFilepath, err)
	}
	appSettings, err := quickfix.ParseSettings(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("error reading cfg: %w", err)
	}

	app := newApplication(e, conv, logger)
	logFactory, err := quickfix.NewFileLogFactory(appSettings)
	if err != nil {
		return nil, fmt.Errorf("unable to create fix log factory: %w", err)
	}
	acceptor, err := quickfix.NewAcceptor(app, quickfix.NewMemoryStoreFactory(), appSettings, logFactory)
	if err != nil {
		return nil, fmt.Errorf("unable to create acceptor: %w", err)
	}

	return &Gateway{acceptor: acceptor, app: app, logger: logger}, nil
}

func (g *Gateway) Start() error {
	if err := g.acceptor.Start(); err != nil {
		return fmt.Errorf("unable to start FIX acceptor: %w", err)
	}
	g.logger.Info("fix gateway started")
	return nil
}

func (g *Gateway) Stop() {
	g.acceptor.Stop()
	g.logger.Info("fix gateway stopped")
}
