package extension

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	nasc "github.com/toutaio/toutago-nasc-testkit"
	"github.com/toutaio/toutago-nasc-testkit/cluster"
)

type roleWait struct {
	role cluster.Role
	wait func(context.Context) error
}

// WaitUntilInstanceReady blocks until the coordinator, indexer and broker are
// ready, in that order, and then the router when a router URL is configured.
// The admin client and configuration always come from the baseline container.
// The first failed wait is returned and later roles are not waited for.
func (e *Extension) WaitUntilInstanceReady(ctx context.Context) error {
	baseline := e.Baseline()

	client, err := resolveFrom[cluster.AdminClient](baseline)
	if err != nil {
		return err
	}
	cfg, err := resolveFrom[*cluster.Config](baseline)
	if err != nil {
		return err
	}

	waits := []roleWait{
		{cluster.RoleCoordinator, client.WaitUntilCoordinatorReady},
		{cluster.RoleIndexer, client.WaitUntilIndexerReady},
		{cluster.RoleBroker, client.WaitUntilBrokerReady},
	}
	if cfg.HasRouter() {
		waits = append(waits, roleWait{cluster.RoleRouter, client.WaitUntilRouterReady})
	}

	for _, w := range waits {
		if err := w.wait(ctx); err != nil {
			return fmt.Errorf("waiting for %s: %w", w.role, err)
		}
		e.logger.Debug("cluster role ready", zap.String("role", string(w.role)))
	}
	return nil
}

func resolveFrom[T any](c *nasc.Container) (T, error) {
	var zero T
	v, err := c.GetInstance(nasc.KeyOf[T]())
	if err != nil {
		return zero, fmt.Errorf("resolving %v from the baseline container: %w", nasc.KeyOf[T](), err)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("baseline container bound %v to %T", nasc.KeyOf[T](), v)
	}
	return t, nil
}
