package cluster

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Role is one kind of cluster process.
type Role string

const (
	RoleCoordinator Role = "coordinator"
	RoleIndexer     Role = "indexer"
	RoleBroker      Role = "broker"
	RoleRouter      Role = "router"
)

// HealthPath is polled on every role.
const HealthPath = "/status/health"

// AdminClient waits for cluster roles to become ready.
// Each wait blocks until the role is healthy or its retry budget runs out.
type AdminClient interface {
	WaitUntilCoordinatorReady(ctx context.Context) error
	WaitUntilIndexerReady(ctx context.Context) error
	WaitUntilBrokerReady(ctx context.Context) error
	WaitUntilRouterReady(ctx context.Context) error
}

// NotReadyError is returned when a role did not become healthy within its budget.
type NotReadyError struct {
	Role  Role
	URL   string
	Cause error
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("%s at %q not ready: %v", e.Role, e.URL, e.Cause)
}

func (e *NotReadyError) Unwrap() error {
	return e.Cause
}

// HTTPAdminClient polls each role's health endpoint with exponential backoff.
type HTTPAdminClient struct {
	cfg    *Config
	client *http.Client
	logger *zap.Logger
}

// NewHTTPAdminClient returns a client for cfg. A nil http.Client uses one with
// a ten second timeout; a nil logger discards output.
func NewHTTPAdminClient(cfg *Config, client *http.Client, logger *zap.Logger) *HTTPAdminClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPAdminClient{cfg: cfg, client: client, logger: logger}
}

func (c *HTTPAdminClient) WaitUntilCoordinatorReady(ctx context.Context) error {
	return c.waitUntilReady(ctx, RoleCoordinator, c.cfg.CoordinatorURL)
}

func (c *HTTPAdminClient) WaitUntilIndexerReady(ctx context.Context) error {
	return c.waitUntilReady(ctx, RoleIndexer, c.cfg.IndexerURL)
}

func (c *HTTPAdminClient) WaitUntilBrokerReady(ctx context.Context) error {
	return c.waitUntilReady(ctx, RoleBroker, c.cfg.BrokerURL)
}

func (c *HTTPAdminClient) WaitUntilRouterReady(ctx context.Context) error {
	return c.waitUntilReady(ctx, RoleRouter, c.cfg.RouterURL)
}

func (c *HTTPAdminClient) waitUntilReady(ctx context.Context, role Role, baseURL string) error {
	if baseURL == "" {
		return &NotReadyError{Role: role, Cause: fmt.Errorf("no URL configured")}
	}

	logger := c.logger.With(zap.String("role", string(role)), zap.String("url", baseURL))
	started := time.Now()

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, c.checkHealth(ctx, baseURL)
	}, c.retryOptions(logger)...)
	if err != nil {
		logger.Error("role not ready", zap.Error(err), zap.Duration("waited", time.Since(started)))
		return &NotReadyError{Role: role, URL: baseURL, Cause: err}
	}

	logger.Info("role ready", zap.Duration("waited", time.Since(started)))
	return nil
}

func (c *HTTPAdminClient) retryOptions(logger *zap.Logger) []backoff.RetryOption {
	r := c.cfg.Readiness

	b := backoff.NewExponentialBackOff()
	if r.InitialInterval > 0 {
		b.InitialInterval = r.InitialInterval
	}
	if r.MaxInterval > 0 {
		b.MaxInterval = r.MaxInterval
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Debug("role not healthy yet", zap.Error(err), zap.Duration("retry_in", next))
		}),
	}
	if r.MaxTries > 0 {
		opts = append(opts, backoff.WithMaxTries(r.MaxTries))
	}
	if r.Timeout > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(r.Timeout))
	}
	return opts
}

// checkHealth expects HTTP 200 with body "true".
func (c *HTTPAdminClient) checkHealth(ctx context.Context, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(baseURL, "/")+HealthPath, nil)
	if err != nil {
		return backoff.Permanent(err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %s", resp.Status)
	}
	if strings.TrimSpace(string(body)) != "true" {
		return fmt.Errorf("health check returned %q", strings.TrimSpace(string(body)))
	}
	return nil
}
