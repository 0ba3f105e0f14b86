// Package portfolioclient is a Go client for the portfolio API. Requests carry the
// stored access token; an expired token is refreshed once and the request replayed,
// with concurrent requests sharing a single refresh.
package portfolioclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	refreshPath     = "/api/token/refresh"
	maxErrorBodyLen = 1 << 20
)

var errMissingBaseURL = errors.New("portfolioclient.missing_base_url")

// APIError is a non-2xx response that is not an authentication failure the client recovered from.
type APIError struct {
	StatusCode int               `json:"-"`
	Code       string            `json:"error"`
	Message    string            `json:"message,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
}

func (apiError *APIError) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "portfolio api: %d", apiError.StatusCode)
	if apiError.Code != "" {
		builder.WriteString(" " + apiError.Code)
	}
	if apiError.Message != "" {
		builder.WriteString(": " + apiError.Message)
	}
	for field, message := range apiError.Fields {
		fmt.Fprintf(&builder, "; %s: %s", field, message)
	}
	return builder.String()
}

// Config configures a Client.
type Config struct {
	BaseURL             string
	Store               TokenStore
	HTTPClient          *http.Client
	Logger              *zap.Logger
	RefreshTimeout      time.Duration
	OnSessionTerminated func(error)
}

// Client talks to the portfolio API on behalf of one session.
type Client struct {
	baseURL     string
	store       TokenStore
	httpClient  *http.Client
	plainClient *http.Client
	coordinator *RefreshCoordinator
	logger      *zap.Logger

	Experiences *Resource[Experience]
	Educations  *Resource[Education]
	Skills      *Resource[Skill]
	Socials     *Resource[Social]
	Projects    *Resource[Project]
	Services    *Resource[Service]
	Articles    *Resource[Article]
	Contacts    *Resource[Contact]
	SocialTypes *Resource[SocialType]
	Categories  *Resource[Category]
}

// New builds a Client; a nil Store keeps the session in memory.
func New(configuration Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(configuration.BaseURL), "/")
	if baseURL == "" {
		return nil, errMissingBaseURL
	}
	store := configuration.Store
	if store == nil {
		store = NewMemoryTokenStore()
	}
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	plainClient := configuration.HTTPClient
	if plainClient == nil {
		plainClient = &http.Client{Timeout: 60 * time.Second}
	}
	client := &Client{
		baseURL:     baseURL,
		store:       store,
		plainClient: plainClient,
		logger:      logger,
	}
	coordinator, err := NewRefreshCoordinator(CoordinatorConfig{
		Store:               store,
		Refresh:             client.refresh,
		Timeout:             configuration.RefreshTimeout,
		Logger:              logger,
		OnSessionTerminated: configuration.OnSessionTerminated,
	})
	if err != nil {
		return nil, err
	}
	client.coordinator = coordinator
	authenticated := *plainClient
	authenticated.Transport = &Transport{
		Base:        plainClient.Transport,
		Store:       store,
		Coordinator: coordinator,
		Logger:      logger,
	}
	client.httpClient = &authenticated

	client.Experiences = newResource[Experience](client, "experiences")
	client.Educations = newResource[Education](client, "educations")
	client.Skills = newResource[Skill](client, "skills")
	client.Socials = newResource[Social](client, "socials")
	client.Projects = newResource[Project](client, "projects")
	client.Services = newResource[Service](client, "services")
	client.Articles = newResource[Article](client, "articles")
	client.Contacts = newResource[Contact](client, "contacts")
	client.SocialTypes = newResource[SocialType](client, "social-types")
	client.Categories = newResource[Category](client, "categories")
	return client, nil
}

// Store exposes the session store.
func (client *Client) Store() TokenStore {
	return client.store
}

// refresh calls the refresh endpoint without the coordinating transport.
func (client *Client) refresh(ctx context.Context, refreshToken string) (Credentials, error) {
	var payload struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	err := client.call(ctx, client.plainClient, http.MethodPost, refreshPath, map[string]string{"refresh": refreshToken}, &payload)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{Access: payload.Access, Refresh: payload.Refresh}, nil
}

func (client *Client) do(ctx context.Context, method string, path string, body any, out any) error {
	return client.call(ctx, client.httpClient, method, path, body, out)
}

func (client *Client) call(ctx context.Context, httpClient *http.Client, method string, path string, body any, out any) error {
	var reader io.Reader
	contentType := ""
	switch typed := body.(type) {
	case nil:
	case *multipartBody:
		reader = bytes.NewReader(typed.content)
		contentType = typed.contentType
	default:
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("portfolioclient.encode: %w", err)
		}
		reader = bytes.NewReader(encoded)
		contentType = "application/json"
	}
	request, err := http.NewRequestWithContext(ctx, method, client.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("portfolioclient.request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	response, err := httpClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return decodeAPIError(response)
	}
	if out == nil || response.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("portfolioclient.decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(response *http.Response) error {
	apiError := &APIError{StatusCode: response.StatusCode}
	content, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBodyLen))
	if len(content) > 0 {
		if err := json.Unmarshal(content, apiError); err != nil {
			apiError.Message = strings.TrimSpace(string(content))
		}
	}
	if apiError.Code == "" {
		apiError.Code = strings.ToLower(strings.ReplaceAll(http.StatusText(response.StatusCode), " ", "_"))
	}
	return apiError
}
