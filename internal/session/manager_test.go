package session

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"prescripto-auth/internal/auth"
	"prescripto-auth/internal/client"
	"prescripto-auth/internal/logger"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// apiFunc adapts a function to IdentityAPI and counts calls.
type apiFunc struct {
	calls atomic.Int32
	fn    func(ctx context.Context, tok string) client.Result
}

func newAPI(fn func(ctx context.Context, tok string) client.Result) *apiFunc {
	return &apiFunc{fn: fn}
}

func (a *apiFunc) Profile(ctx context.Context, tok string) client.Result {
	a.calls.Add(1)
	return a.fn(ctx, tok)
}

func resolvedAs(id string) client.Result {
	return client.Resolved{Identity: &auth.Identity{ID: id, Name: "user " + id}}
}

// recorder collects events delivered to a subscriber.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notice
	for _, ev := range r.events {
		if ev.Notice != nil {
			out = append(out, *ev.Notice)
		}
	}
	return out
}

func (r *recorder) statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Snapshot.Status)
	}
	return out
}

func newTestManager(t *testing.T, api IdentityAPI, store Store, opts ...Option) (*Manager, *recorder) {
	t.Helper()
	opts = append([]Option{
		WithBackoff(func() retry.Backoff { return retry.NewConstant(time.Millisecond) }),
	}, opts...)
	m := NewManager(api, store, opts...)
	rec := &recorder{}
	m.Subscribe(rec.record)
	return m, rec
}

func waitStatus(t *testing.T, m *Manager, want Status) Snapshot {
	t.Helper()
	require.Eventually(t, func() bool {
		return m.Snapshot().Status == want
	}, 2*time.Second, 2*time.Millisecond, "waiting for %s", want)
	return m.Snapshot()
}

func storedToken(t *testing.T, s Store) string {
	t.Helper()
	tok, err := s.Load(context.Background())
	require.NoError(t, err)
	return tok
}

func TestLoginResolvesIdentity(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := NewMemoryStore("")
	api := newAPI(func(_ context.Context, tok string) client.Result { return resolvedAs("42") })
	m, rec := newTestManager(t, api, store)
	defer m.Close()

	require.NoError(t, m.Login(context.Background(), "tok-42"))
	assert.Equal(t, "tok-42", storedToken(t, store))

	snap := waitStatus(t, m, Authenticated)
	assert.Equal(t, "tok-42", snap.Token)
	require.NotNil(t, snap.Identity)
	assert.Equal(t, "42", snap.Identity.ID)
	assert.Equal(t, ClassNone, snap.Classification)

	assert.Equal(t, []Status{Authenticating, Authenticated}, rec.statuses())
	assert.Empty(t, rec.notices())
}

func TestLoginRejectsEmptyToken(t *testing.T) {
	m := NewManager(newAPI(nil), NewMemoryStore(""))
	defer m.Close()

	assert.ErrorIs(t, m.Login(context.Background(), ""), ErrNoCredential)
	assert.Equal(t, LoggedOut, m.Snapshot().Status)
}

func TestStartWithoutCredentialMakesNoRequest(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := newAPI(func(context.Context, string) client.Result { return resolvedAs("x") })
	m, rec := newTestManager(t, api, NewMemoryStore(""))
	defer m.Close()

	require.NoError(t, m.Start(context.Background()))

	assert.Equal(t, LoggedOut, m.Snapshot().Status)
	assert.Zero(t, api.calls.Load())
	assert.Empty(t, rec.statuses())
}

func TestStartRestoresStoredCredential(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := newAPI(func(_ context.Context, tok string) client.Result {
		assert.Equal(t, "stored", tok)
		return resolvedAs("7")
	})
	m, _ := newTestManager(t, api, NewMemoryStore("stored"))
	defer m.Close()

	require.NoError(t, m.Start(context.Background()))

	snap := waitStatus(t, m, Authenticated)
	assert.Equal(t, "7", snap.Identity.ID)
}

type failingStore struct {
	MemoryStore
	loadErr error
	saveErr error
}

func (f *failingStore) Load(ctx context.Context) (string, error) {
	if f.loadErr != nil {
		return "", f.loadErr
	}
	return f.MemoryStore.Load(ctx)
}

func (f *failingStore) Save(ctx context.Context, tok string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.MemoryStore.Save(ctx, tok)
}

func TestStoreFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("disk gone")
	api := newAPI(func(context.Context, string) client.Result { return resolvedAs("x") })

	m, _ := newTestManager(t, api, &failingStore{loadErr: boom})
	assert.ErrorIs(t, m.Start(context.Background()), boom)
	assert.Equal(t, LoggedOut, m.Snapshot().Status)
	m.Close()

	m, _ = newTestManager(t, api, &failingStore{saveErr: boom})
	assert.ErrorIs(t, m.Login(context.Background(), "tok"), boom)
	assert.Equal(t, LoggedOut, m.Snapshot().Status)
	m.Close()

	assert.Zero(t, api.calls.Load())
}

func TestTransportFailureKeepsCredential(t *testing.T) {
	defer goleak.VerifyNone(t)

	var down atomic.Bool
	store := NewMemoryStore("")
	api := newAPI(func(context.Context, string) client.Result {
		if down.Load() {
			return client.Unavailable{Err: errors.New("connection refused")}
		}
		return resolvedAs("42")
	})
	m, rec := newTestManager(t, api, store)
	defer m.Close()

	require.NoError(t, m.Login(context.Background(), "tok"))
	waitStatus(t, m, Authenticated)

	down.Store(true)
	res, err := m.Refresh(context.Background())
	require.NoError(t, err)
	assert.IsType(t, client.Unavailable{}, res)

	snap := m.Snapshot()
	assert.Equal(t, Degraded, snap.Status)
	assert.Equal(t, "tok", snap.Token)
	assert.Nil(t, snap.Identity)
	assert.Equal(t, ClassUnreachable, snap.Classification)
	assert.Equal(t, "tok", storedToken(t, store))

	down.Store(false)
	_, err = m.Refresh(context.Background())
	require.NoError(t, err)

	snap = m.Snapshot()
	assert.Equal(t, Authenticated, snap.Status)
	assert.Equal(t, "tok", snap.Token)
	assert.Equal(t, ClassNone, snap.Classification)

	notices := rec.notices()
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeServerUnreachable, notices[0].Kind)
}

func TestRepeatedTransportFailuresNotifyOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	var down atomic.Bool
	down.Store(true)
	api := newAPI(func(context.Context, string) client.Result {
		if down.Load() {
			return client.Unavailable{Err: errors.New("network error")}
		}
		return resolvedAs("42")
	})
	m, rec := newTestManager(t, api, NewMemoryStore(""))
	defer m.Close()

	require.NoError(t, m.Login(context.Background(), "tok"))
	waitStatus(t, m, Degraded)

	for i := 0; i < 3; i++ {
		_, err := m.Refresh(context.Background())
		require.NoError(t, err)
	}
	assert.Len(t, rec.notices(), 1)

	// a success resets the memory; the next outage is reported again
	down.Store(false)
	_, err := m.Refresh(context.Background())
	require.NoError(t, err)
	down.Store(true)
	_, err = m.Refresh(context.Background())
	require.NoError(t, err)

	notices := rec.notices()
	require.Len(t, notices, 2)
	assert.Equal(t, NoticeServerUnreachable, notices[1].Kind)
}

func TestInvalidCredentialIsDiscarded(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := NewMemoryStore("")
	api := newAPI(func(context.Context, string) client.Result {
		return client.Invalid{Message: "Invalid or expired token. Please login again."}
	})
	m, rec := newTestManager(t, api, store)

	require.NoError(t, m.Login(context.Background(), "stale"))
	snap := waitStatus(t, m, LoggedOut)
	m.Close()

	assert.Empty(t, snap.Token)
	assert.Nil(t, snap.Identity)
	assert.Equal(t, ClassInvalid, snap.Classification)
	assert.Empty(t, storedToken(t, store))

	notices := rec.notices()
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeSessionExpired, notices[0].Kind)
	assert.Equal(t, "Session expired. Please login again.", notices[0].Message)

	// a later start finds nothing to resolve
	calls := api.calls.Load()
	restarted, _ := newTestManager(t, api, store)
	defer restarted.Close()
	require.NoError(t, restarted.Start(context.Background()))

	assert.Equal(t, LoggedOut, restarted.Snapshot().Status)
	assert.Equal(t, calls, api.calls.Load())
}

func TestRejectedKeepsCredentialAndSurfacesMessage(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := NewMemoryStore("")
	api := newAPI(func(context.Context, string) client.Result {
		return client.Rejected{Status: 404, Message: "User not found"}
	})
	m, rec := newTestManager(t, api, store)
	defer m.Close()

	require.NoError(t, m.Login(context.Background(), "tok"))
	snap := waitStatus(t, m, Degraded)

	assert.Equal(t, "tok", snap.Token)
	assert.Equal(t, ClassRejected, snap.Classification)
	assert.Equal(t, "tok", storedToken(t, store))

	notices := rec.notices()
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeRejected, notices[0].Kind)
	assert.Equal(t, "User not found", notices[0].Message)
}

func TestTimeoutIsUnreachable(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := newAPI(func(ctx context.Context, _ string) client.Result {
		<-ctx.Done()
		return client.Unavailable{Err: ctx.Err()}
	})
	m, _ := newTestManager(t, api, NewMemoryStore(""), WithResolveTimeout(20*time.Millisecond))
	defer m.Close()

	require.NoError(t, m.Login(context.Background(), "tok"))
	snap := waitStatus(t, m, Degraded)

	assert.Equal(t, "tok", snap.Token)
	assert.Equal(t, ClassUnreachable, snap.Classification)
}

func TestSupersededAttemptIsDiscarded(t *testing.T) {
	for name, late := range map[string]client.Result{
		"late success": resolvedAs("a"),
		"late invalid": client.Invalid{Message: "expired"},
		"late outage":  client.Unavailable{Err: errors.New("refused")},
	} {
		t.Run(name, func(t *testing.T) {
			defer goleak.VerifyNone(t)

			releaseA := make(chan struct{})
			store := NewMemoryStore("")
			api := newAPI(func(_ context.Context, tok string) client.Result {
				if tok == "A" {
					// ignores cancellation to model a response already on the wire
					<-releaseA
					return late
				}
				return resolvedAs("b")
			})
			m, _ := newTestManager(t, api, store)

			require.NoError(t, m.Login(context.Background(), "A"))
			require.NoError(t, m.Login(context.Background(), "B"))
			waitStatus(t, m, Authenticated)

			close(releaseA)
			m.Close()

			snap := m.Snapshot()
			assert.Equal(t, Authenticated, snap.Status)
			assert.Equal(t, "B", snap.Token)
			assert.Equal(t, "b", snap.Identity.ID)
			assert.Equal(t, "B", storedToken(t, store))
		})
	}
}

func TestLogoutCancelsInFlightAttempt(t *testing.T) {
	defer goleak.VerifyNone(t)

	started := make(chan struct{})
	store := NewMemoryStore("")
	api := newAPI(func(ctx context.Context, _ string) client.Result {
		close(started)
		<-ctx.Done()
		return client.Unavailable{Err: ctx.Err()}
	})
	m, rec := newTestManager(t, api, store)
	defer m.Close()

	require.NoError(t, m.Login(context.Background(), "tok"))
	<-started
	require.NoError(t, m.Logout(context.Background()))

	assert.Equal(t, LoggedOut, m.Snapshot().Status)
	assert.Empty(t, storedToken(t, store))

	m.Close()
	assert.Equal(t, LoggedOut, m.Snapshot().Status)
	assert.Empty(t, rec.notices())
}

func TestDoTearsDownOnInvalid(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := NewMemoryStore("")
	api := newAPI(func(context.Context, string) client.Result { return resolvedAs("42") })
	m, rec := newTestManager(t, api, store)
	defer m.Close()

	require.NoError(t, m.Login(context.Background(), "tok"))
	waitStatus(t, m, Authenticated)

	outage := client.Unavailable{Err: errors.New("reset by peer")}
	err := m.Do(context.Background(), func(_ context.Context, tok string) error {
		assert.Equal(t, "tok", tok)
		return outage
	})
	assert.ErrorIs(t, err, outage)
	assert.Equal(t, Authenticated, m.Snapshot().Status)

	err = m.Do(context.Background(), func(context.Context, string) error {
		return client.Invalid{Message: "revoked"}
	})
	assert.Error(t, err)

	snap := m.Snapshot()
	assert.Equal(t, LoggedOut, snap.Status)
	assert.Equal(t, ClassInvalid, snap.Classification)
	assert.Empty(t, storedToken(t, store))
	require.Len(t, rec.notices(), 1)

	err = m.Do(context.Background(), func(context.Context, string) error {
		t.Fatal("must not run without a credential")
		return nil
	})
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestReconnectBacksOffUntilReachable(t *testing.T) {
	defer goleak.VerifyNone(t)

	var n atomic.Int32
	api := newAPI(func(context.Context, string) client.Result {
		if n.Add(1) <= 3 {
			return client.Unavailable{Err: errors.New("refused")}
		}
		return resolvedAs("42")
	})
	m, rec := newTestManager(t, api, NewMemoryStore(""))
	defer m.Close()

	require.NoError(t, m.Login(context.Background(), "tok"))
	waitStatus(t, m, Degraded)

	require.NoError(t, m.Reconnect(context.Background()))

	assert.Equal(t, Authenticated, m.Snapshot().Status)
	assert.EqualValues(t, 4, api.calls.Load())
	assert.Len(t, rec.notices(), 1)
}

func TestReconnectStopsOnInvalid(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := newAPI(func(context.Context, string) client.Result {
		return client.Invalid{Message: "expired"}
	})
	m, _ := newTestManager(t, api, NewMemoryStore("tok"))
	defer m.Close()

	require.NoError(t, m.Start(context.Background()))
	waitStatus(t, m, LoggedOut)

	assert.ErrorIs(t, m.Reconnect(context.Background()), ErrNoCredential)
}

func TestReconnectReturnsTerminalResult(t *testing.T) {
	defer goleak.VerifyNone(t)

	var n atomic.Int32
	api := newAPI(func(context.Context, string) client.Result {
		if n.Add(1) == 1 {
			return resolvedAs("42")
		}
		return client.Invalid{Message: "expired"}
	})
	m, _ := newTestManager(t, api, NewMemoryStore(""))
	defer m.Close()

	require.NoError(t, m.Login(context.Background(), "tok"))
	waitStatus(t, m, Authenticated)

	err := m.Reconnect(context.Background())
	var invalid client.Invalid
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, LoggedOut, m.Snapshot().Status)
}

func TestReconnectHonoursContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := newAPI(func(context.Context, string) client.Result {
		return client.Unavailable{Err: errors.New("refused")}
	})
	m, _ := newTestManager(t, api, NewMemoryStore(""))
	defer m.Close()

	require.NoError(t, m.Login(context.Background(), "tok"))
	waitStatus(t, m, Degraded)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, m.Reconnect(ctx), context.DeadlineExceeded)
	snap := m.Snapshot()
	assert.Equal(t, Degraded, snap.Status)
	assert.Equal(t, "tok", snap.Token)
}

func TestRetryFromDegraded(t *testing.T) {
	defer goleak.VerifyNone(t)

	var down atomic.Bool
	down.Store(true)
	api := newAPI(func(context.Context, string) client.Result {
		if down.Load() {
			return client.Unavailable{Err: errors.New("refused")}
		}
		return resolvedAs("42")
	})
	m, _ := newTestManager(t, api, NewMemoryStore(""))
	defer m.Close()

	assert.ErrorIs(t, m.Retry(), ErrNoCredential)

	require.NoError(t, m.Login(context.Background(), "tok"))
	waitStatus(t, m, Degraded)

	down.Store(false)
	require.NoError(t, m.Retry())
	waitStatus(t, m, Authenticated)
}

func TestClosedManagerRefusesWork(t *testing.T) {
	m := NewManager(newAPI(nil), NewMemoryStore("tok"))
	m.Close()

	assert.ErrorIs(t, m.Login(context.Background(), "tok"), ErrClosed)
	assert.ErrorIs(t, m.Start(context.Background()), ErrClosed)
	_, err := m.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestUnsubscribe(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := newAPI(func(context.Context, string) client.Result { return resolvedAs("1") })
	m := NewManager(api, NewMemoryStore(""))
	defer m.Close()

	var count atomic.Int32
	unsubscribe := m.Subscribe(func(Event) { count.Add(1) })
	unsubscribe()
	unsubscribe()

	require.NoError(t, m.Login(context.Background(), "tok"))
	waitStatus(t, m, Authenticated)
	assert.Zero(t, count.Load())
}
