package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/justyntemme/webby-pager/pkg/models"
)

// defaultTimeout bounds every request, chapter bodies included
const defaultTimeout = 30 * time.Second

// StatusError is a response the server rejected
type StatusError struct {
	Code int
	// Message is the server's error text, or the raw body when the server
	// did not send an error document
	Message string
	decoded bool
}

func (e *StatusError) Error() string {
	if e.decoded {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the server
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Client is the HTTP client for the webby API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// SetToken updates the authentication token
func (c *Client) SetToken(token string) {
	c.token = token
}

// bookPath joins escaped segments under /api/books
func bookPath(id string, parts ...string) string {
	p := "/api/books/" + url.PathEscape(id)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// do sends a JSON request and returns the response; callers close the body
func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.httpClient.Do(req)
}

// decode reads a response, turning 4xx/5xx into a *StatusError
func decode[T any](resp *http.Response) (T, error) {
	var out T
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, err
	}
	if resp.StatusCode >= 400 {
		var er models.ErrorResponse
		if json.Unmarshal(body, &er) == nil && er.Error != "" {
			return out, &StatusError{Code: resp.StatusCode, Message: er.Error, decoded: true}
		}
		return out, &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

func getJSON[T any](ctx context.Context, c *Client, path string) (T, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](resp)
}

// ListBooks returns a page of the library, optionally filtered by search
func (c *Client) ListBooks(ctx context.Context, page, limit int, search string) (*models.BooksResponse, error) {
	params := url.Values{}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if search != "" {
		params.Set("search", search)
	}

	path := "/api/books"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return getJSON[*models.BooksResponse](ctx, c, path)
}

// GetBook returns a single book by ID
func (c *Client) GetBook(ctx context.Context, id string) (*models.Book, error) {
	return getJSON[*models.Book](ctx, c, bookPath(id))
}

// GetTOC returns the table of contents for a book
func (c *Client) GetTOC(ctx context.Context, bookID string) (*models.TOCResponse, error) {
	return getJSON[*models.TOCResponse](ctx, c, bookPath(bookID, "toc"))
}

// GetChapterText returns the content of a chapter
func (c *Client) GetChapterText(ctx context.Context, bookID string, chapter int) (*models.ChapterContent, error) {
	return getJSON[*models.ChapterContent](ctx, c, bookPath(bookID, "text", strconv.Itoa(chapter)))
}

// GetPosition returns the saved reading position, or nil if none is saved
func (c *Client) GetPosition(ctx context.Context, bookID string) (*models.ReadingPosition, error) {
	result, err := getJSON[*models.PositionResponse](ctx, c, bookPath(bookID, "position"))
	if err != nil || result == nil {
		return nil, err
	}
	return result.Position, nil
}

// SavePosition saves the current reading position
func (c *Client) SavePosition(ctx context.Context, pos models.ReadingPosition) error {
	resp, err := c.do(ctx, http.MethodPost, bookPath(pos.BookID, "position"), pos)
	if err != nil {
		return err
	}
	if _, err := decode[json.RawMessage](resp); err != nil {
		return fmt.Errorf("save position: %w", err)
	}
	return nil
}

// Health checks if the server is available
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
