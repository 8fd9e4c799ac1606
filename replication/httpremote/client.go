package httpremote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/replication"
)

const defaultClientTimeout = 10 * time.Second

var ErrNilHTTPClient = errors.New("http client must not be nil")

// Client talks to a Handler. It is safe for concurrent use.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	dialer     *websocket.Dialer
	observer   eventstore.Observer
}

// ClientOption defines a functional option for configuring a Client.
type ClientOption func(*Client) error

// WithHTTPClient replaces the default client, e.g. for TLS settings.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) error {
		if httpClient == nil {
			return ErrNilHTTPClient
		}
		c.httpClient = httpClient

		return nil
	}
}

// WithTimeout bounds every request. Zero keeps the default.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) error {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
			c.dialer.HandshakeTimeout = timeout
		}

		return nil
	}
}

func WithLogger(logger eventstore.Logger) ClientOption {
	return func(c *Client) error {
		c.observer.Logger = logger
		return nil
	}
}

// NewClient creates a client for an http or https endpoint.
func NewClient(endpoint string, options ...ClientOption) (*Client, error) {
	base, err := url.Parse(endpoint)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", replication.ErrInvalidEndpoint, endpoint)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")

	c := &Client{
		base:       base,
		httpClient: &http.Client{Timeout: defaultClientTimeout},
		dialer:     &websocket.Dialer{HandshakeTimeout: defaultClientTimeout, Proxy: http.ProxyFromEnvironment},
	}

	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Factory creates clients for the manager, bounded by the configured cycle timeout.
func Factory(options ...ClientOption) replication.RemoteFactory {
	return func(syncOptions replication.Options) (replication.Remote, error) {
		return NewClient(syncOptions.Endpoint, append(options, WithTimeout(syncOptions.CycleTimeout))...)
	}
}

func (c *Client) Push(ctx context.Context, namespace string, events eventstore.Events) (replication.PushResult, error) {
	body, err := json.Marshal(events)
	if err != nil {
		return replication.PushResult{}, fmt.Errorf("encode push: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(eventsPath(namespace), nil), bytes.NewReader(body))
	if err != nil {
		return replication.PushResult{}, err
	}
	req.Header.Set("Content-Type", contentType)

	var result replication.PushResult
	if err := c.do(req, &result); err != nil {
		return replication.PushResult{}, err
	}

	return result, nil
}

func (c *Client) Pull(ctx context.Context, namespace string, afterRevision uint64, limit int) (replication.PullResult, error) {
	query := url.Values{}
	query.Set(paramAfter, formatRevision(afterRevision))
	query.Set(paramLimit, strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(eventsPath(namespace), query), nil)
	if err != nil {
		return replication.PullResult{}, err
	}

	var result replication.PullResult
	if err := c.do(req, &result); err != nil {
		return replication.PullResult{}, err
	}

	return result, nil
}

// Watch opens the websocket of a namespace and forwards every announced revision.
// Announcements are coalesced: a slow reader only sees the latest one.
func (c *Client) Watch(ctx context.Context, namespace string) (<-chan uint64, error) {
	wsURL := *c.base
	wsURL.Scheme = strings.Replace(wsURL.Scheme, "http", "ws", 1)

	conn, resp, err := c.dialer.DialContext(ctx, c.urlFrom(&wsURL, watchPath(namespace), nil), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, errors.Join(replication.ErrSyncConnectivity, fmt.Errorf("watch %s: %w", namespace, err))
	}

	announcements := make(chan uint64, 1)

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	go func() {
		defer close(announcements)

		for {
			var message announcement
			if err := conn.ReadJSON(&message); err != nil {
				if ctx.Err() == nil {
					c.observer.LogWarn(ctx, "watch closed", "namespace", namespace, eventstore.LogAttrError, err.Error())
				}
				return
			}

			select {
			case announcements <- message.Revision:
			default:
				select {
				case <-announcements:
				default:
				}
				announcements <- message.Revision
			}
		}
	}()

	return announcements, nil
}

func (c *Client) do(req *http.Request, target any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Join(replication.ErrSyncConnectivity, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return errors.Join(replication.ErrSyncConnectivity, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode >= 300 {
		return statusError(req, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.Join(replication.ErrSyncConnectivity, ErrUnexpectedBody, err)
	}

	return nil
}

// statusError maps non-2xx answers. Client errors are rejections, everything else is a connectivity failure.
func statusError(req *http.Request, status int, body []byte) error {
	var decoded errorResponse
	_ = json.Unmarshal(body, &decoded)

	err := fmt.Errorf("%s %s: %d %s: %s", req.Method, req.URL.Path, status, http.StatusText(status), decoded.Error)

	if status >= 400 && status < 500 && status != http.StatusTooManyRequests && status != http.StatusRequestTimeout {
		return errors.Join(replication.ErrRemoteRejected, err)
	}

	return errors.Join(replication.ErrSyncConnectivity, err)
}

func (c *Client) url(path string, query url.Values) string {
	return c.urlFrom(c.base, path, query)
}

func (c *Client) urlFrom(base *url.URL, path string, query url.Values) string {
	u := *base
	u.Path = base.Path + path
	u.RawQuery = query.Encode()

	return u.String()
}
