package portfolioclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

// fakeAPI accepts exactly one access token and exchanges refresh tokens on /api/token/refresh.
type fakeAPI struct {
	t *testing.T

	mutex         sync.Mutex
	validAccess   string
	validRefresh  string
	generation    int
	rotate        bool
	alwaysReject  bool
	refreshStatus int
	bodies        []string
	authHeaders   []string

	refreshCalls     atomic.Int32
	resourceCalls    atomic.Int32
	unauthorized     atomic.Int32
	refreshGate      func()
	resourceResponse func(writer http.ResponseWriter) bool
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{t: t, validAccess: "access-1", validRefresh: "refresh-1", generation: 1, rotate: true}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)
	return api, server
}

func (api *fakeAPI) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	writer.Header().Set("Content-Type", "application/json")
	if request.URL.Path == refreshPath {
		api.serveRefresh(writer, request)
		return
	}
	api.resourceCalls.Add(1)
	body, _ := io.ReadAll(request.Body)
	api.mutex.Lock()
	api.bodies = append(api.bodies, string(body))
	api.authHeaders = append(api.authHeaders, request.Header.Get("Authorization"))
	accepted := !api.alwaysReject && request.Header.Get("Authorization") == "Bearer "+api.validAccess
	api.mutex.Unlock()
	if api.resourceResponse != nil && api.resourceResponse(writer) {
		return
	}
	if !accepted {
		api.unauthorized.Add(1)
		writer.WriteHeader(http.StatusUnauthorized)
		_, _ = writer.Write([]byte(`{"error":"token_not_valid"}`))
		return
	}
	if request.Method == http.MethodPost {
		writer.WriteHeader(http.StatusCreated)
		_, _ = writer.Write([]byte(`{"id":1,"label":"Go"}`))
		return
	}
	_, _ = writer.Write([]byte(`[{"id":1,"label":"Go"}]`))
}

func (api *fakeAPI) serveRefresh(writer http.ResponseWriter, request *http.Request) {
	api.refreshCalls.Add(1)
	if api.refreshGate != nil {
		api.refreshGate()
	}
	var payload struct {
		Refresh string `json:"refresh"`
	}
	_ = json.NewDecoder(request.Body).Decode(&payload)

	api.mutex.Lock()
	defer api.mutex.Unlock()
	if api.refreshStatus != 0 || payload.Refresh != api.validRefresh {
		status := api.refreshStatus
		if status == 0 {
			status = http.StatusUnauthorized
		}
		writer.WriteHeader(status)
		_, _ = writer.Write([]byte(`{"error":"token_not_valid"}`))
		return
	}
	api.generation++
	api.validAccess = "access-" + string(rune('0'+api.generation))
	response := map[string]string{"access": api.validAccess}
	if api.rotate {
		api.validRefresh = "refresh-" + string(rune('0'+api.generation))
		response["refresh"] = api.validRefresh
	}
	_ = json.NewEncoder(writer).Encode(response)
}

func (api *fakeAPI) expireAccess() {
	api.mutex.Lock()
	defer api.mutex.Unlock()
	api.validAccess = "expired-" + api.validAccess
}

type terminationRecorder struct {
	calls atomic.Int32
	last  atomic.Value
}

func (recorder *terminationRecorder) record(err error) {
	recorder.calls.Add(1)
	recorder.last.Store(err)
}

func newTestClient(t *testing.T, baseURL string, store TokenStore, terminated *terminationRecorder, timeout time.Duration) *Client {
	t.Helper()
	configuration := Config{
		BaseURL:        baseURL,
		Store:          store,
		Logger:         zaptest.NewLogger(t),
		RefreshTimeout: timeout,
	}
	if terminated != nil {
		configuration.OnSessionTerminated = terminated.record
	}
	client, err := New(configuration)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func loggedInStore(t *testing.T, access string, refresh string) *MemoryTokenStore {
	t.Helper()
	store := NewMemoryTokenStore()
	if err := store.SaveSession(Credentials{Access: access, Refresh: refresh}, User{ID: 1, Username: "ada"}); err != nil {
		t.Fatalf("save session: %v", err)
	}
	return store
}

func TestConcurrentUnauthorizedRequestsShareOneRefresh(t *testing.T) {
	const concurrency = 8
	api, server := newFakeAPI(t)
	api.expireAccess()
	api.refreshGate = func() {
		deadline := time.Now().Add(5 * time.Second)
		for api.unauthorized.Load() < concurrency && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
	}
	store := loggedInStore(t, "access-1", "refresh-1")
	terminated := &terminationRecorder{}
	client := newTestClient(t, server.URL, store, terminated, 0)

	var group sync.WaitGroup
	errs := make(chan error, concurrency)
	for index := 0; index < concurrency; index++ {
		group.Add(1)
		go func() {
			defer group.Done()
			skills, err := client.Skills.List(context.Background())
			if err == nil && len(skills) != 1 {
				err = errors.New("unexpected skills payload")
			}
			errs <- err
		}()
	}
	group.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
	}

	if calls := api.refreshCalls.Load(); calls != 1 {
		t.Fatalf("expected exactly one refresh, got %d", calls)
	}
	if calls := api.resourceCalls.Load(); calls != 2*concurrency {
		t.Fatalf("expected every request to be sent twice, got %d sends", calls)
	}
	credentials, _ := store.Load()
	if credentials.Access != "access-2" || credentials.Refresh != "refresh-2" {
		t.Fatalf("expected rotated credentials to be persisted, got %+v", credentials)
	}
	if terminated.calls.Load() != 0 {
		t.Fatalf("session must not terminate")
	}
	if client.coordinator.Refreshing() {
		t.Fatalf("coordinator must return to idle")
	}
}

func TestRefreshedTokenIsUsedForLaterRequests(t *testing.T) {
	api, server := newFakeAPI(t)
	api.expireAccess()
	store := loggedInStore(t, "access-1", "refresh-1")
	client := newTestClient(t, server.URL, store, nil, 0)

	if _, err := client.Skills.List(context.Background()); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if _, err := client.Skills.List(context.Background()); err != nil {
		t.Fatalf("second request: %v", err)
	}
	if calls := api.refreshCalls.Load(); calls != 1 {
		t.Fatalf("expected one refresh, got %d", calls)
	}
	api.mutex.Lock()
	defer api.mutex.Unlock()
	expected := []string{"Bearer access-1", "Bearer access-2", "Bearer access-2"}
	if strings.Join(api.authHeaders, ",") != strings.Join(expected, ",") {
		t.Fatalf("unexpected authorization sequence %v", api.authHeaders)
	}
}

func TestRetriedUnauthorizedIsReturnedWithoutAnotherRefresh(t *testing.T) {
	api, server := newFakeAPI(t)
	api.alwaysReject = true
	store := loggedInStore(t, "access-1", "refresh-1")
	terminated := &terminationRecorder{}
	client := newTestClient(t, server.URL, store, terminated, 0)

	_, err := client.Skills.List(context.Background())
	var apiError *APIError
	if !errors.As(err, &apiError) || apiError.StatusCode != http.StatusUnauthorized || apiError.Code != "token_not_valid" {
		t.Fatalf("expected the second 401 to reach the caller, got %v", err)
	}
	if errors.Is(err, ErrSessionTerminated) {
		t.Fatalf("a rejected replay is not a session termination")
	}
	if calls := api.refreshCalls.Load(); calls != 1 {
		t.Fatalf("expected one refresh, got %d", calls)
	}
	if calls := api.resourceCalls.Load(); calls != 2 {
		t.Fatalf("expected exactly one replay, got %d sends", calls)
	}
	if credentials, _ := store.Load(); credentials.Access != "access-2" {
		t.Fatalf("refreshed credentials must be kept, got %+v", credentials)
	}
	if terminated.calls.Load() != 0 {
		t.Fatalf("session must not terminate")
	}
}

func TestRefreshFailureTerminatesSessionOnce(t *testing.T) {
	const concurrency = 5
	api, server := newFakeAPI(t)
	api.expireAccess()
	api.refreshStatus = http.StatusUnauthorized
	api.refreshGate = func() {
		deadline := time.Now().Add(5 * time.Second)
		for api.unauthorized.Load() < concurrency && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
	}
	store := loggedInStore(t, "access-1", "refresh-1")
	terminated := &terminationRecorder{}
	client := newTestClient(t, server.URL, store, terminated, 0)

	var group sync.WaitGroup
	errs := make(chan error, concurrency)
	for index := 0; index < concurrency; index++ {
		group.Add(1)
		go func() {
			defer group.Done()
			_, err := client.Skills.List(context.Background())
			errs <- err
		}()
	}
	group.Wait()
	close(errs)
	for err := range errs {
		if !errors.Is(err, ErrSessionTerminated) {
			t.Fatalf("expected session termination, got %v", err)
		}
	}
	if calls := api.refreshCalls.Load(); calls != 1 {
		t.Fatalf("expected one refresh attempt, got %d", calls)
	}
	if calls := terminated.calls.Load(); calls != 1 {
		t.Fatalf("expected one termination signal, got %d", calls)
	}
	var apiError *APIError
	if lastErr, _ := terminated.last.Load().(error); !errors.As(lastErr, &apiError) || apiError.StatusCode != http.StatusUnauthorized {
		t.Fatalf("termination should carry the refresh failure, got %v", lastErr)
	}
	credentials, _ := store.Load()
	if credentials.Access != "" || credentials.Refresh != "" {
		t.Fatalf("credentials must be cleared, got %+v", credentials)
	}
	if _, found, _ := client.StoredUser(); found {
		t.Fatalf("stored user must be cleared")
	}
}

func TestLateUnauthorizedAfterFailedRefreshDoesNotTerminateAgain(t *testing.T) {
	api, server := newFakeAPI(t)
	api.expireAccess()
	api.refreshStatus = http.StatusUnauthorized
	arrived := make(chan struct{})
	released := make(chan struct{})
	var sends atomic.Int32
	api.resourceResponse = func(writer http.ResponseWriter) bool {
		if sends.Add(1) == 1 {
			close(arrived)
			<-released
		}
		return false
	}
	store := loggedInStore(t, "access-1", "refresh-1")
	terminated := &terminationRecorder{}
	client := newTestClient(t, server.URL, store, terminated, 0)

	late := make(chan error, 1)
	go func() {
		_, err := client.Skills.List(context.Background())
		late <- err
	}()
	<-arrived

	if _, err := client.Skills.List(context.Background()); !errors.Is(err, ErrSessionTerminated) {
		t.Fatalf("expected session termination, got %v", err)
	}
	close(released)
	if err := <-late; !errors.Is(err, ErrSessionTerminated) {
		t.Fatalf("late request: expected session termination, got %v", err)
	}

	if calls := api.refreshCalls.Load(); calls != 1 {
		t.Fatalf("expected one refresh attempt, got %d", calls)
	}
	if calls := terminated.calls.Load(); calls != 1 {
		t.Fatalf("expected one termination signal, got %d", calls)
	}
	if client.coordinator.Refreshing() {
		t.Fatalf("coordinator must return to idle")
	}
}

func TestMissingRefreshTokenSkipsRefreshCall(t *testing.T) {
	api, server := newFakeAPI(t)
	api.expireAccess()
	store := loggedInStore(t, "access-1", "")
	terminated := &terminationRecorder{}
	client := newTestClient(t, server.URL, store, terminated, 0)

	_, err := client.Skills.List(context.Background())
	if !errors.Is(err, ErrSessionTerminated) || !errors.Is(err, ErrNoRefreshToken) {
		t.Fatalf("expected termination for missing refresh token, got %v", err)
	}
	if calls := api.refreshCalls.Load(); calls != 0 {
		t.Fatalf("refresh endpoint must not be called, got %d", calls)
	}
	if calls := terminated.calls.Load(); calls != 1 {
		t.Fatalf("expected one termination signal, got %d", calls)
	}
	if credentials, _ := store.Load(); credentials.Access != "" {
		t.Fatalf("credentials must be cleared")
	}
}

func TestNonUnauthorizedErrorsAreNotRetried(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
		code   string
	}{
		{name: "validation", status: http.StatusBadRequest, body: `{"error":"invalid_request","fields":{"label":"this field is required"}}`, code: "invalid_request"},
		{name: "forbidden", status: http.StatusForbidden, body: `{"error":"forbidden"}`, code: "forbidden"},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, code: "internal_server_error"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			api, server := newFakeAPI(t)
			api.resourceResponse = func(writer http.ResponseWriter) bool {
				writer.WriteHeader(testCase.status)
				_, _ = writer.Write([]byte(testCase.body))
				return true
			}
			client := newTestClient(t, server.URL, loggedInStore(t, "access-1", "refresh-1"), nil, 0)

			_, err := client.Skills.Create(context.Background(), Skill{})
			var apiError *APIError
			if !errors.As(err, &apiError) || apiError.StatusCode != testCase.status || apiError.Code != testCase.code {
				t.Fatalf("unexpected error %v", err)
			}
			if testCase.status == http.StatusBadRequest && apiError.Fields["label"] == "" {
				t.Fatalf("expected field errors, got %+v", apiError)
			}
			if api.resourceCalls.Load() != 1 || api.refreshCalls.Load() != 0 {
				t.Fatalf("expected a single send and no refresh")
			}
		})
	}
}

func TestRequestBodyIsReplayedAfterRefresh(t *testing.T) {
	api, server := newFakeAPI(t)
	api.expireAccess()
	client := newTestClient(t, server.URL, loggedInStore(t, "access-1", "refresh-1"), nil, 0)

	created, err := client.Skills.Create(context.Background(), Skill{Label: "Go"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != 1 {
		t.Fatalf("unexpected created record %+v", created)
	}
	api.mutex.Lock()
	defer api.mutex.Unlock()
	if len(api.bodies) != 2 || api.bodies[0] != api.bodies[1] || !strings.Contains(api.bodies[1], `"label":"Go"`) {
		t.Fatalf("expected identical bodies on both attempts, got %q", api.bodies)
	}
}

func TestRefreshWithoutRotationKeepsRefreshToken(t *testing.T) {
	api, server := newFakeAPI(t)
	api.rotate = false
	api.expireAccess()
	store := loggedInStore(t, "access-1", "refresh-1")
	client := newTestClient(t, server.URL, store, nil, 0)

	if _, err := client.Skills.List(context.Background()); err != nil {
		t.Fatalf("list: %v", err)
	}
	if credentials, _ := store.Load(); credentials.Access != "access-2" || credentials.Refresh != "refresh-1" {
		t.Fatalf("unexpected credentials %+v", credentials)
	}
}

func TestUnauthenticatedRequestCarriesNoAuthorization(t *testing.T) {
	api, server := newFakeAPI(t)
	api.resourceResponse = func(writer http.ResponseWriter) bool {
		_, _ = writer.Write([]byte(`[]`))
		return true
	}
	client := newTestClient(t, server.URL, NewMemoryTokenStore(), nil, 0)

	if _, err := client.Skills.ListByUser(context.Background(), 3); err != nil {
		t.Fatalf("list by user: %v", err)
	}
	api.mutex.Lock()
	defer api.mutex.Unlock()
	if len(api.authHeaders) != 1 || api.authHeaders[0] != "" {
		t.Fatalf("expected no authorization header, got %q", api.authHeaders)
	}
}

func TestRefreshTimeoutTerminatesSession(t *testing.T) {
	api, server := newFakeAPI(t)
	api.expireAccess()
	release := make(chan struct{})
	api.refreshGate = func() { <-release }
	t.Cleanup(func() { close(release) })
	terminated := &terminationRecorder{}
	client := newTestClient(t, server.URL, loggedInStore(t, "access-1", "refresh-1"), terminated, 50*time.Millisecond)

	_, err := client.Skills.List(context.Background())
	if !errors.Is(err, ErrSessionTerminated) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected termination after the refresh timeout, got %v", err)
	}
	if terminated.calls.Load() != 1 {
		t.Fatalf("expected one termination signal")
	}
}

func TestCoordinatorWaiterHonoursContext(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	store := loggedInStore(t, "old", "refresh")
	coordinator, err := NewRefreshCoordinator(CoordinatorConfig{
		Store: store,
		Refresh: func(ctx context.Context, refreshToken string) (Credentials, error) {
			close(started)
			<-release
			return Credentials{Access: "new"}, nil
		},
	})
	if err != nil {
		t.Fatalf("coordinator: %v", err)
	}

	leader := make(chan string, 1)
	go func() {
		token, _ := coordinator.Recover(context.Background(), "old")
		leader <- token
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := coordinator.Recover(ctx, "old"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled waiter, got %v", err)
	}
	close(release)
	if token := <-leader; token != "new" {
		t.Fatalf("unexpected refreshed token %q", token)
	}
	if token, err := coordinator.Recover(context.Background(), "old"); err != nil || token != "new" {
		t.Fatalf("stale token should be replaced without refresh, got %q %v", token, err)
	}
}

func TestNewRefreshCoordinatorValidation(t *testing.T) {
	if _, err := NewRefreshCoordinator(CoordinatorConfig{}); !errors.Is(err, errMissingStore) {
		t.Fatalf("expected missing store error, got %v", err)
	}
	if _, err := NewRefreshCoordinator(CoordinatorConfig{Store: NewMemoryTokenStore()}); !errors.Is(err, errMissingRefresher) {
		t.Fatalf("expected missing refresher error, got %v", err)
	}
	if _, err := New(Config{}); !errors.Is(err, errMissingBaseURL) {
		t.Fatalf("expected missing base url error, got %v", err)
	}
}
