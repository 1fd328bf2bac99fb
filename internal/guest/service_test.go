package guest

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/guest-account/internal/mapper"
	"github.com/hongminglow/guest-account/internal/models"
	"github.com/hongminglow/guest-account/internal/models/dto"
	"github.com/hongminglow/guest-account/internal/storage"
)

type fakeConn struct {
	provider *countingProvider
}

func (c *fakeConn) ExecContext(context.Context, string, ...any) (sql.Result, error) { return nil, nil }
func (c *fakeConn) QueryContext(context.Context, string, ...any) (*sql.Rows, error) { return nil, nil }
func (c *fakeConn) QueryRowContext(context.Context, string, ...any) *sql.Row { return nil }
func (c *fakeConn) Close() error {
	c.provider.released.Add(1)
	return nil
}

// countingProvider tracks how many connections are handed out and returned.
type countingProvider struct {
	acquired  atomic.Int64
	released  atomic.Int64
	err       error
	onAcquire func()
}

func (p *countingProvider) Acquire(ctx context.Context) (storage.Conn, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.acquired.Add(1)
	if p.onAcquire != nil {
		p.onAcquire()
	}
	return &fakeConn{provider: p}, nil
}

func (p *countingProvider) held() int64 {
	return p.acquired.Load() - p.released.Load()
}

type storeFunc func(ctx context.Context, db storage.DBTX, token string) (models.Account, error)

func (f storeFunc) FindOrCreateGuest(ctx context.Context, db storage.DBTX, token string) (models.Account, error) {
	return f(ctx, db, token)
}

// memStore is a thread-safe in-memory account store.
type memStore struct {
	mu      sync.Mutex
	byToken map[string]models.Account
	rows    int
}

func newMemStore() *memStore {
	return &memStore{byToken: make(map[string]models.Account)}
}

func (m *memStore) FindOrCreateGuest(_ context.Context, _ storage.DBTX, token string) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token != "" {
		if acct, ok := m.byToken[token]; ok {
			return acct, nil
		}
	}
	acct := models.Account{ID: uuid.NewString(), Guest: true, CreatedAt: time.Now().UTC()}
	m.rows++
	if token != "" {
		m.byToken[token] = acct
	}
	return acct, nil
}

func newService(p storage.ConnectionProvider, s storage.AccountStore, timeout time.Duration) *Service {
	return NewService(p, s, mapper.MustNew(), timeout, nil)
}

func TestSignIn_Success(t *testing.T) {
	p := &countingProvider{}
	svc := newService(p, newMemStore(), time.Second)

	got, err := svc.SignIn(context.Background(), dto.SignInRequest{})
	require.NoError(t, err)

	assert.True(t, got.Guest)
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.CreatedAt.IsZero())
	assert.EqualValues(t, 1, p.acquired.Load())
	assert.Zero(t, p.held())
}

func TestSignIn_CorrelationTokenReusesAccount(t *testing.T) {
	p := &countingProvider{}
	store := newMemStore()
	svc := newService(p, store, time.Second)

	first, err := svc.SignIn(context.Background(), dto.SignInRequest{CorrelationToken: " device-1 "})
	require.NoError(t, err)
	second, err := svc.SignIn(context.Background(), dto.SignInRequest{CorrelationToken: "device-1"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.rows)
	assert.Zero(t, p.held())
}

func TestSignIn_ConcurrentCallsGetDistinctAccounts(t *testing.T) {
	const n = 64
	p := &countingProvider{}
	svc := newService(p, newMemStore(), time.Second)

	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			acct, err := svc.SignIn(context.Background(), dto.SignInRequest{})
			if err == nil {
				ids[i] = acct.ID
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, n)
	for _, id := range ids {
		require.NotEmpty(t, id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n)
	assert.EqualValues(t, n, p.acquired.Load())
	assert.Zero(t, p.held())
}

func TestSignIn_ConnectionErrorPropagates(t *testing.T) {
	connErr := &storage.ConnectionError{Err: errors.New("connection refused")}
	p := &countingProvider{err: connErr}
	called := false
	store := storeFunc(func(context.Context, storage.DBTX, string) (models.Account, error) {
		called = true
		return models.Account{}, nil
	})

	got, err := newService(p, store, time.Second).SignIn(context.Background(), dto.SignInRequest{})

	require.Error(t, err)
	assert.Same(t, connErr, err)
	assert.Equal(t, dto.Account{}, got)
	assert.False(t, called)
	assert.Zero(t, p.held())
}

func TestSignIn_StoreErrorPropagatesAndReleases(t *testing.T) {
	storeErr := &storage.StoreError{Op: "create guest account", Err: errors.New("constraint violation")}
	p := &countingProvider{}
	store := storeFunc(func(context.Context, storage.DBTX, string) (models.Account, error) {
		return models.Account{}, storeErr
	})

	got, err := newService(p, store, time.Second).SignIn(context.Background(), dto.SignInRequest{})

	assert.Same(t, storeErr, err)
	assert.Equal(t, dto.Account{}, got)
	assert.EqualValues(t, 1, p.acquired.Load())
	assert.Zero(t, p.held())
}

func TestSignIn_CancelledMidOperationReleasesConnection(t *testing.T) {
	p := &countingProvider{}
	entered := make(chan struct{})
	store := storeFunc(func(ctx context.Context, _ storage.DBTX, _ string) (models.Account, error) {
		close(entered)
		<-ctx.Done()
		return models.Account{}, &storage.StoreError{Op: "create guest account", Err: ctx.Err()}
	})
	svc := newService(p, store, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-entered
		cancel()
	}()

	_, err := svc.SignIn(ctx, dto.SignInRequest{})

	var storeErr *storage.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 1, p.acquired.Load())
	assert.Zero(t, p.held())
}

func TestSignIn_CancelledAfterAcquireSkipsStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &countingProvider{onAcquire: cancel}
	called := false
	store := storeFunc(func(context.Context, storage.DBTX, string) (models.Account, error) {
		called = true
		return models.Account{}, nil
	})

	_, err := newService(p, store, time.Second).SignIn(ctx, dto.SignInRequest{})

	var storeErr *storage.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
	assert.Zero(t, p.held())
}

func TestSignIn_TimeoutBoundsStoreWork(t *testing.T) {
	p := &countingProvider{}
	store := storeFunc(func(ctx context.Context, _ storage.DBTX, _ string) (models.Account, error) {
		<-ctx.Done()
		return models.Account{}, &storage.StoreError{Op: "create guest account", Err: ctx.Err()}
	})

	start := time.Now()
	_, err := newService(p, store, 20*time.Millisecond).SignIn(context.Background(), dto.SignInRequest{})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Zero(t, p.held())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "start", StateStart.String())
	assert.Equal(t, "connection_acquired", StateConnectionAcquired.String())
	assert.Equal(t, "record_resolved", StateRecordResolved.String())
	assert.Equal(t, "mapped", StateMapped.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
}
