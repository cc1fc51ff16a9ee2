package grateful

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"grateful.app/notifier/internal/domain"
)

// maxBody caps how much of a response is read.
const maxBody = 4 << 20

// Client implements domain.API against the Grateful backend REST endpoints.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// New creates a Client. baseURL is the API root, e.g. "https://api.grateful.app".
func New(baseURL string, tokens TokenSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// List fetches the root notifications. Without a credential it returns an
// empty list. Records of unknown type are skipped.
func (c *Client) List(ctx context.Context) ([]*domain.Notification, error) {
	body, err := c.do(ctx, http.MethodGet, "/notifications")
	if errors.Is(err, domain.ErrNoCredential) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c.decode(body, "")
}

// MarkRead tells the server one notification was read. Without a credential
// there is nothing to sync and it returns nil.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodPost, "/notifications/"+url.PathEscape(id)+"/read")
	if errors.Is(err, domain.ErrNoCredential) {
		return nil
	}
	return err
}

// MarkAllRead tells the server every notification was read.
func (c *Client) MarkAllRead(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/notifications/read-all")
	if errors.Is(err, domain.ErrNoCredential) {
		return nil
	}
	return err
}

// Children fetches the events of a batch. Unlike List, a missing credential
// is an error so that the batch stays collapsed.
func (c *Client) Children(ctx context.Context, batchID string) ([]*domain.Notification, error) {
	body, err := c.do(ctx, http.MethodGet, "/notifications/"+url.PathEscape(batchID)+"/children")
	if err != nil {
		return nil, err
	}
	return c.decode(body, batchID)
}

func (c *Client) decode(body []byte, parentID string) ([]*domain.Notification, error) {
	records, err := decodeList(body)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Notification, 0, len(records))
	for i := range records {
		n, err := records[i].toDomain()
		if err != nil {
			log.Warn().Err(err).Str("id", string(records[i].ID)).Msg("skipping undecodable notification")
			continue
		}
		if parentID != "" {
			n = n.AsChildOf(parentID)
		}
		out = append(out, n)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	return body, nil
}
