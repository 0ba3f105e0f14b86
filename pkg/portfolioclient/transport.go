package portfolioclient

import (
	"io"
	"net/http"

	"go.uber.org/zap"
)

const maxDrainBytes = 64 << 10

// requestAttempt describes one send of a request; values are replaced, never mutated.
type requestAttempt struct {
	retried     bool
	accessToken string
}

func (attempt requestAttempt) retry(accessToken string) requestAttempt {
	return requestAttempt{retried: true, accessToken: accessToken}
}

// Transport attaches the stored access token to every request and recovers from a
// single 401 per request through the RefreshCoordinator.
type Transport struct {
	Base        http.RoundTripper
	Store       TokenStore
	Coordinator *RefreshCoordinator
	Logger      *zap.Logger
}

// RoundTrip implements http.RoundTripper. The caller's request is never modified.
func (transport *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	attempt := requestAttempt{}
	if transport.Store != nil {
		credentials, err := transport.Store.Load()
		if err != nil {
			transport.logger().Warn("token store unreadable", zap.String("code", "client.store.load_error"), zap.Error(err))
		}
		attempt.accessToken = credentials.Access
	}
	for {
		response, err := transport.send(request, attempt)
		if err != nil || response.StatusCode != http.StatusUnauthorized {
			return response, err
		}
		if attempt.retried || transport.Coordinator == nil || !replayable(request) {
			return response, nil
		}
		discard(response)
		accessToken, recoverErr := transport.Coordinator.Recover(request.Context(), attempt.accessToken)
		if recoverErr != nil {
			return nil, recoverErr
		}
		attempt = attempt.retry(accessToken)
	}
}

func (transport *Transport) send(request *http.Request, attempt requestAttempt) (*http.Response, error) {
	outbound := request.Clone(request.Context())
	if attempt.retried && request.GetBody != nil {
		body, err := request.GetBody()
		if err != nil {
			return nil, err
		}
		outbound.Body = body
	}
	if attempt.accessToken != "" {
		outbound.Header.Set("Authorization", "Bearer "+attempt.accessToken)
	} else {
		outbound.Header.Del("Authorization")
	}
	return transport.base().RoundTrip(outbound)
}

func (transport *Transport) base() http.RoundTripper {
	if transport.Base != nil {
		return transport.Base
	}
	return http.DefaultTransport
}

func (transport *Transport) logger() *zap.Logger {
	if transport.Logger != nil {
		return transport.Logger
	}
	return zap.NewNop()
}

// replayable reports whether the request body can be sent a second time.
func replayable(request *http.Request) bool {
	return request.Body == nil || request.Body == http.NoBody || request.GetBody != nil
}

func discard(response *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, maxDrainBytes))
	_ = response.Body.Close()
}
