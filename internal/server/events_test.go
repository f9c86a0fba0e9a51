package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"postboard/internal/auth"
	"postboard/internal/config"
	"postboard/internal/middleware"
	"postboard/internal/notifications"
	"postboard/internal/testutil"

	prom "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestWatchEvents_ObservesPublishedActivity(t *testing.T) {
	cfg := &config.Config{Env: "test", Port: "0", SessionTTL: time.Hour, BcryptCost: bcrypt.MinCost, DBDriver: "sqlite"}
	db := testutil.NewSQLiteDB(t)
	client, _ := testutil.NewRedis(t)
	sessions, err := auth.NewSessions(auth.SessionConfig{Secret: testSecret, TTL: cfg.SessionTTL})
	require.NoError(t, err)
	s, err := NewServerWithDeps(cfg, db, client, sessions)
	require.NoError(t, err)
	env := &testEnv{server: s, app: s.App(), db: db, sessions: sessions}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.WatchEvents(ctx))

	counter := middleware.EventsObserved.WithLabelValues(notifications.EventPostCreated)
	before := prom.ToFloat64(counter)

	token := env.signup(t, "watcher").Token
	status, body := env.do(t, http.MethodPost, "/v1/posts", token, map[string]string{"body": "hello"})
	require.Equal(t, http.StatusCreated, status, string(body))

	assert.Eventually(t, func() bool {
		return prom.ToFloat64(counter) == before+1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatchEvents_WithoutRedisIsNoop(t *testing.T) {
	env := newTestEnv(t)
	assert.NoError(t, env.server.WatchEvents(context.Background()))
}
