package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"prescripto-auth/internal/client"
	"prescripto-auth/internal/config"
	"prescripto-auth/internal/redis"
	"prescripto-auth/internal/session"
)

// env is everything a command needs to talk to the backend.
type env struct {
	cfg     config.ClientConfig
	api     *client.Client
	manager *session.Manager
	catalog *session.Catalog
	close   func()
}

func newEnv(ctx context.Context) (*env, error) {
	cfg := config.LoadClient()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	api := client.New(cfg.BackendURL, nil)
	manager := session.NewManager(api, store, session.WithResolveTimeout(cfg.ResolveTimeout))

	e := &env{
		cfg:     cfg,
		api:     api,
		manager: manager,
		catalog: session.NewCatalog(api),
	}
	e.close = func() {
		manager.Close()
		closeStore()
	}

	manager.Subscribe(printNotice)
	e.catalog.Subscribe(func(n session.Notice) {
		fmt.Fprintln(os.Stderr, n.Message)
	})
	return e, nil
}

func openStore(ctx context.Context, cfg config.ClientConfig) (session.Store, func(), error) {
	if cfg.RedisAddr == "" {
		if cfg.TokenFile == "" {
			return nil, nil, fmt.Errorf("no credential store: set TOKEN_FILE or REDIS_ADDR")
		}
		return session.NewFileStore(cfg.TokenFile), func() {}, nil
	}

	rdb, err := redis.New(ctx, redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return nil, nil, err
	}
	return session.NewRedisStore(rdb.Client, cfg.RedisKey), func() { _ = rdb.Close() }, nil
}

func printNotice(ev session.Event) {
	if ev.Notice != nil {
		fmt.Fprintln(os.Stderr, ev.Notice.Message)
	}
}

// settle starts the manager from the stored credential and waits until
// resolution leaves Authenticating.
func (e *env) settle(ctx context.Context) (session.Snapshot, error) {
	done := make(chan session.Snapshot, 1)
	unsubscribe := e.manager.Subscribe(func(ev session.Event) {
		if ev.Snapshot.Status == session.Authenticating {
			return
		}
		select {
		case done <- ev.Snapshot:
		default:
		}
	})
	defer unsubscribe()

	if err := e.manager.Start(ctx); err != nil {
		return session.Snapshot{}, err
	}
	if snap := e.manager.Snapshot(); snap.Status != session.Authenticating {
		return snap, nil
	}

	wait := e.cfg.ResolveTimeout + time.Second
	select {
	case snap := <-done:
		return snap, nil
	case <-time.After(wait):
		return e.manager.Snapshot(), nil
	case <-ctx.Done():
		return session.Snapshot{}, ctx.Err()
	}
}

// await waits for the attempt started by Login to settle.
func (e *env) await(ctx context.Context) session.Snapshot {
	deadline := time.NewTimer(e.cfg.ResolveTimeout + time.Second)
	defer deadline.Stop()
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()

	for {
		snap := e.manager.Snapshot()
		if snap.Status != session.Authenticating {
			return snap
		}
		select {
		case <-tick.C:
		case <-deadline.C:
			return snap
		case <-ctx.Done():
			return snap
		}
	}
}

func describe(snap session.Snapshot) string {
	switch snap.Status {
	case session.Authenticated:
		return fmt.Sprintf("Logged in as %s <%s>", snap.Identity.Name, snap.Identity.Email)
	case session.Degraded:
		return "Logged in (profile unavailable: " + snap.Classification.String() + ")"
	case session.Authenticating:
		return "Still resolving session"
	default:
		return "Not logged in"
	}
}
