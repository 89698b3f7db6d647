package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/oseayemenre/bookshelf/internal/catalog"
	"github.com/oseayemenre/bookshelf/internal/models"
)

const DefaultBaseURL = "http://localhost:8080/api/v1"

// Error is returned for every non-2xx response.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	return target == catalog.ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client talks to the book REST API. It sets no timeout and never retries;
// cancellation comes from the caller's context.
type Client struct {
	baseURL string
	client  *http.Client
}

var _ catalog.Repository = (*Client)(nil)

func NewClient(baseURL string, transport http.RoundTripper) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Transport: transport},
	}
}

// wireBook accepts records that carry the document store's _id.
type wireBook struct {
	models.Book
	MongoId string `json:"_id,omitempty"`
}

func (w *wireBook) normalize() *models.Book {
	if w.Id == "" {
		w.Id = w.MongoId
	}
	book := w.Book
	return &book
}

func (c *Client) List(ctx context.Context) ([]models.Book, error) {
	var wire []wireBook

	if err := c.do(ctx, http.MethodGet, "/books", nil, &wire); err != nil {
		return nil, err
	}

	books := make([]models.Book, len(wire))
	for i := range wire {
		books[i] = *wire[i].normalize()
	}

	return books, nil
}

func (c *Client) Create(ctx context.Context, draft models.BookDraft) (*models.Book, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	var wire wireBook
	if err := c.do(ctx, http.MethodPost, "/books", draft, &wire); err != nil {
		return nil, err
	}

	return wire.normalize(), nil
}

// Update returns an error matching catalog.ErrNotFound for unknown ids.
func (c *Client) Update(ctx context.Context, id string, patch models.BookPatch) (*models.Book, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var wire wireBook
	if err := c.do(ctx, http.MethodPut, bookPath(id), patch, &wire); err != nil {
		return nil, err
	}

	return wire.normalize(), nil
}

// Delete reports false when the server does not know the id.
func (c *Client) Delete(ctx context.Context, id string) (bool, error) {
	if err := c.do(ctx, http.MethodDelete, bookPath(id), nil, nil); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (c *Client) GetByID(ctx context.Context, id string) (*models.Book, error) {
	var wire wireBook
	if err := c.do(ctx, http.MethodGet, bookPath(id), nil, &wire); err != nil {
		return nil, err
	}

	return wire.normalize(), nil
}

// TestConnection asks the server whether its backing store is reachable.
func (c *Client) TestConnection(ctx context.Context) (*models.ConnectionResponse, error) {
	var resp models.ConnectionResponse
	if err := c.do(ctx, http.MethodGet, "/test-connection", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func bookPath(id string) string {
	return "/books/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method string, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFromResponse(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func errorFromResponse(resp *http.Response) error {
	apiErr := &Error{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("request failed with status %d", resp.StatusCode),
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return apiErr
	}

	var body models.ErrorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
	}

	return apiErr
}
