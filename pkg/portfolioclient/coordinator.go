package portfolioclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultRefreshTimeout bounds a single refresh call.
const DefaultRefreshTimeout = 30 * time.Second

var (
	// ErrSessionTerminated means the session could not be recovered and the stored credentials were cleared.
	ErrSessionTerminated = errors.New("portfolioclient.session_terminated")
	// ErrNoRefreshToken means a refresh was needed but no refresh credential is stored.
	ErrNoRefreshToken = errors.New("portfolioclient.no_refresh_token")

	errSessionEnded     = errors.New("portfolioclient.session_already_ended")
	errMissingStore     = errors.New("portfolioclient.coordinator.missing_store")
	errMissingRefresher = errors.New("portfolioclient.coordinator.missing_refresher")
)

// RefreshFunc exchanges a refresh credential for new credentials.
// The returned Refresh is empty when the server does not rotate.
type RefreshFunc func(ctx context.Context, refreshToken string) (Credentials, error)

// CoordinatorConfig configures a RefreshCoordinator.
type CoordinatorConfig struct {
	Store               TokenStore
	Refresh             RefreshFunc
	Timeout             time.Duration
	Logger              *zap.Logger
	OnSessionTerminated func(error)
}

type refreshOutcome struct {
	accessToken string
	err         error
}

// RefreshCoordinator serialises credential refreshes: the first request that sees an
// expired access token refreshes, every other one waits for that outcome.
type RefreshCoordinator struct {
	store        TokenStore
	refresh      RefreshFunc
	timeout      time.Duration
	logger       *zap.Logger
	onTerminated func(error)

	mutex      sync.Mutex
	refreshing bool
	pending    []chan refreshOutcome
}

// NewRefreshCoordinator validates configuration and returns an idle coordinator.
func NewRefreshCoordinator(configuration CoordinatorConfig) (*RefreshCoordinator, error) {
	if configuration.Store == nil {
		return nil, errMissingStore
	}
	if configuration.Refresh == nil {
		return nil, errMissingRefresher
	}
	coordinator := &RefreshCoordinator{
		store:        configuration.Store,
		refresh:      configuration.Refresh,
		timeout:      configuration.Timeout,
		logger:       configuration.Logger,
		onTerminated: configuration.OnSessionTerminated,
	}
	if coordinator.timeout <= 0 {
		coordinator.timeout = DefaultRefreshTimeout
	}
	if coordinator.logger == nil {
		coordinator.logger = zap.NewNop()
	}
	return coordinator, nil
}

// Refreshing reports whether a refresh is in flight.
func (coordinator *RefreshCoordinator) Refreshing() bool {
	coordinator.mutex.Lock()
	defer coordinator.mutex.Unlock()
	return coordinator.refreshing
}

// Recover returns the access token to replay a request with after it was rejected
// while carrying rejectedAccess. It joins an in-flight refresh, reuses a token that
// another request already obtained, or starts a refresh itself. A request rejected
// after its session was already cleared fails without signalling termination again.
func (coordinator *RefreshCoordinator) Recover(ctx context.Context, rejectedAccess string) (string, error) {
	coordinator.mutex.Lock()
	if coordinator.refreshing {
		waiter := make(chan refreshOutcome, 1)
		coordinator.pending = append(coordinator.pending, waiter)
		coordinator.mutex.Unlock()
		select {
		case outcome := <-waiter:
			return outcome.accessToken, outcome.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	credentials, loadErr := coordinator.store.Load()
	if loadErr == nil && credentials.Access != "" && credentials.Access != rejectedAccess {
		coordinator.mutex.Unlock()
		return credentials.Access, nil
	}
	if loadErr == nil && rejectedAccess != "" && credentials == (Credentials{}) {
		coordinator.mutex.Unlock()
		return "", fmt.Errorf("%w: %w", ErrSessionTerminated, errSessionEnded)
	}
	coordinator.refreshing = true
	coordinator.mutex.Unlock()

	accessToken, err := coordinator.runRefresh(ctx, credentials, loadErr)
	coordinator.settle(refreshOutcome{accessToken: accessToken, err: err})
	return accessToken, err
}

func (coordinator *RefreshCoordinator) runRefresh(ctx context.Context, credentials Credentials, loadErr error) (string, error) {
	cause := loadErr
	if cause == nil && credentials.Refresh == "" {
		cause = ErrNoRefreshToken
	}
	if cause == nil {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), coordinator.timeout)
		refreshed, refreshErr := coordinator.refresh(refreshCtx, credentials.Refresh)
		cancel()
		switch {
		case refreshErr != nil:
			cause = refreshErr
		case refreshed.Access == "":
			cause = errors.New("refresh response carried no access token")
		default:
			if persistErr := coordinator.persist(refreshed); persistErr != nil {
				cause = persistErr
				break
			}
			coordinator.logger.Debug("access token refreshed", zap.String("code", "client.refresh.success"))
			return refreshed.Access, nil
		}
	}
	return "", coordinator.terminate(cause)
}

func (coordinator *RefreshCoordinator) persist(refreshed Credentials) error {
	if err := coordinator.store.SaveAccess(refreshed.Access); err != nil {
		return err
	}
	if refreshed.Refresh != "" {
		if err := coordinator.store.SaveRefresh(refreshed.Refresh); err != nil {
			return err
		}
	}
	return nil
}

// terminate clears the session and signals termination; only the refreshing goroutine calls it.
func (coordinator *RefreshCoordinator) terminate(cause error) error {
	terminated := fmt.Errorf("%w: %w", ErrSessionTerminated, cause)
	coordinator.logger.Warn("session terminated", zap.String("code", "client.refresh.failed"), zap.Error(cause))
	if clearErr := coordinator.store.Clear(); clearErr != nil {
		coordinator.logger.Error("session clear failed", zap.String("code", "client.session.clear_error"), zap.Error(clearErr))
	}
	if coordinator.onTerminated != nil {
		coordinator.onTerminated(terminated)
	}
	return terminated
}

// settle returns the coordinator to idle and hands outcome to every pending request.
func (coordinator *RefreshCoordinator) settle(outcome refreshOutcome) {
	coordinator.mutex.Lock()
	pending := coordinator.pending
	coordinator.pending = nil
	coordinator.refreshing = false
	coordinator.mutex.Unlock()
	for _, waiter := range pending {
		waiter <- outcome
	}
}
