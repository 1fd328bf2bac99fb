// Package guest implements guest sign-in: it acquires a connection, resolves
// or provisions the guest account and returns its transfer shape.
package guest

import (
	"context"
	"strings"
	"time"

	"github.com/hongminglow/guest-account/internal/logging"
	"github.com/hongminglow/guest-account/internal/mapper"
	"github.com/hongminglow/guest-account/internal/models/dto"
	"github.com/hongminglow/guest-account/internal/storage"
)

// State is a step of a single sign-in.
type State int

const (
	StateStart State = iota
	StateConnectionAcquired
	StateRecordResolved
	StateMapped
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateConnectionAcquired:
		return "connection_acquired"
	case StateRecordResolved:
		return "record_resolved"
	case StateMapped:
		return "mapped"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Service orchestrates guest sign-in.
type Service struct {
	provider storage.ConnectionProvider
	store    storage.AccountStore
	mapper   *mapper.Mapper
	timeout  time.Duration
	logger   logging.Logger
}

// NewService constructs the service. timeout bounds connection acquisition and
// store work for each call; zero leaves it to the caller's context.
func NewService(provider storage.ConnectionProvider, store storage.AccountStore, m *mapper.Mapper, timeout time.Duration, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{
		provider: provider,
		store:    store,
		mapper:   m,
		timeout:  timeout,
		logger:   logger.With("component", "guest"),
	}
}

// SignIn returns the guest account for req. Connection and store failures are
// returned unchanged so the HTTP boundary can translate them.
func (s *Service) SignIn(ctx context.Context, req dto.SignInRequest) (dto.Account, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	state := StateStart
	fail := func(err error) (dto.Account, error) {
		s.logger.Warn(ctx, "guest sign-in failed", "from", state.String(), "state", StateFailed.String(), "error", err.Error())
		return dto.Account{}, err
	}

	conn, err := s.provider.Acquire(ctx)
	if err != nil {
		return fail(err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			s.logger.Warn(ctx, "release connection", "error", cerr.Error())
		}
	}()
	state = StateConnectionAcquired

	if err := ctx.Err(); err != nil {
		return fail(&storage.StoreError{Op: "find or create guest account", Err: err})
	}
	acct, err := s.store.FindOrCreateGuest(ctx, conn, strings.TrimSpace(req.CorrelationToken))
	if err != nil {
		return fail(err)
	}
	state = StateRecordResolved

	out := s.mapper.ToTransfer(acct)
	state = StateMapped

	s.logger.Info(ctx, "guest signed in", "account_id", out.ID, "from", state.String(), "state", StateDone.String())
	return out, nil
}
