package cluster

import (
	"net/http"

	"go.uber.org/zap"

	nasc "github.com/toutaio/toutago-nasc-testkit"
)

// Module is the baseline module every test container includes. It binds
// *Config, *zap.Logger and AdminClient.
//
// A zero Module binds DefaultConfig, a no-op logger and an HTTPAdminClient.
// Client replaces the HTTP client, which is how tests fake the cluster.
type Module struct {
	Config     *Config
	Logger     *zap.Logger
	HTTPClient *http.Client
	Client     AdminClient
}

func (m *Module) Configure(b *nasc.Binder) error {
	cfg := m.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := m.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := nasc.BindInstance(b, cfg); err != nil {
		return err
	}
	if err := nasc.BindInstance(b, logger); err != nil {
		return err
	}

	if m.Client != nil {
		return nasc.BindInstance(b, m.Client)
	}
	return nasc.BindSingleton[AdminClient](b, func(*nasc.Container) (AdminClient, error) {
		return NewHTTPAdminClient(cfg, m.HTTPClient, logger.Named("cluster")), nil
	})
}
