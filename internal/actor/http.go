package actor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/foliodev/folio/internal/model"
)

// HTTPFactory builds actors that talk to a folio backend over HTTP.
type HTTPFactory struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPFactory returns an HTTPFactory for baseURL with a default client.
func NewHTTPFactory(baseURL string) *HTTPFactory {
	return &HTTPFactory{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Anonymous returns an actor that sends no credentials.
func (f *HTTPFactory) Anonymous(ctx context.Context) (Actor, error) {
	return &HTTPActor{baseURL: f.BaseURL, client: f.client()}, nil
}

// Authenticated returns an actor that presents id's bearer token.
func (f *HTTPFactory) Authenticated(ctx context.Context, id Identity) (Actor, error) {
	if id == nil {
		return f.Anonymous(ctx)
	}
	return &HTTPActor{baseURL: f.BaseURL, client: f.client(), bearer: id.Token()}, nil
}

func (f *HTTPFactory) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

// HTTPActor implements Actor against the /api/v1 backend routes.
type HTTPActor struct {
	baseURL string
	client  *http.Client
	bearer  string
}

// AuthorizeAdmin presents token to the backend and reports whether the
// caller is now bound to the admin role.
func (a *HTTPActor) AuthorizeAdmin(ctx context.Context, token string) (bool, error) {
	var resp model.AuthorizeResponse
	if err := a.do(ctx, http.MethodPost, "/api/v1/admin/authorize", model.AuthorizeRequest{Token: token}, &resp); err != nil {
		return false, err
	}
	return resp.Authorized, nil
}

// CheckAdminStatus reports whether the caller is an admin.
func (a *HTTPActor) CheckAdminStatus(ctx context.Context) (bool, error) {
	var resp model.AdminStatusResponse
	if err := a.do(ctx, http.MethodGet, "/api/v1/admin/status", nil, &resp); err != nil {
		return false, err
	}
	return resp.IsAdmin, nil
}

// GetAllMessages lists every stored message, oldest first.
func (a *HTTPActor) GetAllMessages(ctx context.Context) ([]model.ContactMessage, error) {
	var resp model.MessageListResponse
	if err := a.do(ctx, http.MethodGet, "/api/v1/messages", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Resource == nil {
		resp.Resource = []model.ContactMessage{}
	}
	return resp.Resource, nil
}

// SubmitMessage stores a contact message.
func (a *HTTPActor) SubmitMessage(ctx context.Context, name, email, message string) error {
	req := model.NewMessageRequest{Name: name, Email: email, Message: message}
	return a.do(ctx, http.MethodPost, "/api/v1/messages", req, nil)
}

func (a *HTTPActor) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+a.bearer)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(method, path, resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", ErrTransport, method, path, err)
	}
	return nil
}

// statusError maps a non-2xx backend response to a sentinel error carrying
// the backend's message.
func statusError(method, path string, resp *http.Response) error {
	var env model.ErrorResponse
	msg := resp.Status
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&env); err == nil && env.Error.Message != "" {
		msg = env.Error.Message
	}

	var sentinel error
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		sentinel = ErrUnauthorized
	case resp.StatusCode >= 500:
		sentinel = ErrTransport
	default:
		sentinel = ErrRejected
	}
	return fmt.Errorf("%w: %s %s: %d %s", sentinel, method, path, resp.StatusCode, msg)
}
