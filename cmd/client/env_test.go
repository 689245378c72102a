package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prescripto-auth/internal/auth"
	"prescripto-auth/internal/config"
	"prescripto-auth/internal/session"
)

func TestOpenStorePrefersRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	store, closeStore, err := openStore(context.Background(), config.ClientConfig{
		RedisAddr: mr.Addr(),
		RedisKey:  "test:token",
		TokenFile: filepath.Join(t.TempDir(), "token"),
	})
	require.NoError(t, err)
	defer closeStore()

	require.IsType(t, &session.RedisStore{}, store)
	require.NoError(t, store.Save(context.Background(), "tok"))
	assert.True(t, mr.Exists("test:token"))
}

func TestOpenStoreFallsBackToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")

	store, closeStore, err := openStore(context.Background(), config.ClientConfig{TokenFile: path})
	require.NoError(t, err)
	defer closeStore()
	assert.IsType(t, &session.FileStore{}, store)

	_, _, err = openStore(context.Background(), config.ClientConfig{})
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Not logged in", describe(session.Snapshot{}))
	assert.Equal(t, "Logged in as Ada <ada@example.com>", describe(session.Snapshot{
		Status:   session.Authenticated,
		Identity: &auth.Identity{Name: "Ada", Email: "ada@example.com"},
	}))
	assert.Contains(t, describe(session.Snapshot{
		Status:         session.Degraded,
		Classification: session.ClassUnreachable,
	}), "profile unavailable")
}
