package rln

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rgb-tools/iris-wallet-core/cache"
)

const (
	// DefaultBaseURL is the address the daemon listens on when nothing
	// else is configured.
	DefaultBaseURL = "http://127.0.0.1:3001"

	// DefaultRequestTimeout bounds every daemon call. Some calls, most
	// notably unlock on a cold regtest node, legitimately take tens of
	// seconds.
	DefaultRequestTimeout = 120 * time.Second
)

// WalletState is the lock state of the node wallet as known locally.
type WalletState uint8

const (
	// StateUnknown means the local state tracker has not yet observed
	// the node, so gating is skipped and the daemon is the arbiter.
	StateUnknown WalletState = iota

	// StateLocked means the wallet is locked.
	StateLocked

	// StateUnlocked means the wallet is unlocked.
	StateUnlocked
)

// StatusSource reports the current wallet state. It is usually backed by the
// unlock coordinator.
type StatusSource interface {
	WalletState() WalletState
}

// ClientConfig holds the configuration for the daemon client.
type ClientConfig struct {
	// BaseURL returns the daemon's base URL. It is consulted on every
	// request so a settings change takes effect without rebuilding the
	// client. When nil or returning "", DefaultBaseURL is used.
	BaseURL func() string

	// RequestTimeout is the timeout for individual HTTP requests. Zero
	// means DefaultRequestTimeout.
	RequestTimeout time.Duration

	// Cache, when set, serves responses for allowlisted endpoints and is
	// invalidated after every mutating call.
	Cache *cache.Store

	// Status, when set, gates calls on the wallet lock state so a call
	// that cannot succeed fails without touching the network.
	Status StatusSource

	// DefaultFeeRate returns the user's default fee rate in sat/vB, used
	// when creating UTXOs on behalf of a failed colored operation. When
	// nil a fixed rate of 5 sat/vB is assumed.
	DefaultFeeRate func() float64
}

// Client is a typed HTTP client for the RGB Lightning Node daemon.
type Client struct {
	cfg *ClientConfig

	httpClient *http.Client
}

// NewClient creates a new daemon client with the given configuration.
func NewClient(cfg *ClientConfig) *Client {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = DefaultRequestTimeout
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// baseURL resolves the daemon address for the next request.
func (c *Client) baseURL() string {
	if c.cfg.BaseURL != nil {
		if url := c.cfg.BaseURL(); url != "" {
			return url
		}
	}
	return DefaultBaseURL
}

// walletState returns the locally tracked wallet state, or StateUnknown when
// no tracker is wired.
func (c *Client) walletState() WalletState {
	if c.cfg.Status == nil {
		return StateUnknown
	}
	return c.cfg.Status.WalletState()
}

// requireUnlocked fails fast when the wallet is known to be locked.
func (c *Client) requireUnlocked() error {
	if c.walletState() == StateLocked {
		return &Error{Kind: KindNodeLocked, Msg: msgNodeLocked}
	}
	return nil
}

// requireLocked fails fast when the wallet is known to be unlocked.
func (c *Client) requireLocked() error {
	if c.walletState() == StateUnlocked {
		return &Error{Kind: KindNodeUnlocked, Msg: msgNodeUnlocked}
	}
	return nil
}

// validator is implemented by response types that carry required fields.
type validator interface {
	validate() error
}

// daemonErrorBody is the shape of a non-2xx response body.
type daemonErrorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// transportError classifies a failure that happened before an HTTP status
// was received.
func transportError(err error) *Error {
	kind := KindTransport

	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &nerr) && nerr.Timeout()) {

		kind = KindTimeout
	}

	return &Error{Kind: kind, Err: err}
}

// call performs a daemon request with a JSON body and decodes the response
// into out. Either body or out may be nil.
func (c *Client) call(ctx context.Context, method, endpoint string,
	body, out interface{}) error {

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindDecode, Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	url := c.baseURL() + endpoint
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return &Error{Kind: KindTransport, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debugf("Request %s %s failed after %v: %v", method,
			endpoint, time.Since(start), err)
		return transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(err)
	}

	log.Debugf("Request %s %s returned %d in %v", method, endpoint,
		resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeDaemonError(resp.StatusCode, raw)
	}

	return decodeResponse(raw, out)
}

// decodeDaemonError turns a non-2xx body into a classified Error.
func decodeDaemonError(status int, raw []byte) error {
	var body daemonErrorBody
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		return &Error{
			Kind:   KindUnknown,
			Msg:    string(bytes.TrimSpace(raw)),
			Status: status,
		}
	}
	return newDaemonError(status, body.Error)
}

// decodeResponse unmarshals raw into out and runs required-field checks.
func decodeResponse(raw []byte, out interface{}) error {
	if out == nil {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindDecode, Err: err}
	}

	if v, ok := out.(validator); ok {
		if err := v.validate(); err != nil {
			return &Error{Kind: KindDecode, Err: err}
		}
	}

	return nil
}

// cacheKey builds the cache row key for an endpoint.
func cacheKey(endpoint string) string {
	return endpoint
}

// cachedCall serves a read from the cache when fresh, otherwise performs the
// request and stores the raw response. Only allowlisted endpoints ever reach
// the cache.
func (c *Client) cachedCall(ctx context.Context, method, endpoint string,
	body, out interface{}) error {

	if c.cfg.Cache == nil || !Cacheable(endpoint) {
		return c.call(ctx, method, endpoint, body, out)
	}

	key := cacheKey(endpoint)
	if payload, fresh := c.cfg.Cache.Fetch(key); fresh {
		log.Tracef("Serving %s from cache", endpoint)
		return decodeResponse(payload, out)
	}

	// A stale or missing row means the daemon is asked again. The raw
	// body is re-fetched here rather than re-marshaled from out so the
	// cached payload is byte for byte what the daemon sent.
	raw, err := c.callRaw(ctx, method, endpoint, body)
	if err != nil {
		return err
	}

	c.cfg.Cache.Put(key, raw)

	return decodeResponse(raw, out)
}

// callRaw is call without response decoding, returning the raw 2xx body.
func (c *Client) callRaw(ctx context.Context, method, endpoint string,
	body interface{}) ([]byte, error) {

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Kind: KindDecode, Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	url := c.baseURL() + endpoint
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debugf("Request %s %s failed after %v: %v", method,
			endpoint, time.Since(start), err)
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err)
	}

	log.Debugf("Request %s %s returned %d in %v", method, endpoint,
		resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeDaemonError(resp.StatusCode, raw)
	}

	return raw, nil
}

// postFile uploads a local file as multipart form data.
func (c *Client) postFile(ctx context.Context, endpoint, fieldName,
	filePath string, out interface{}) error {

	f, err := os.Open(filePath)
	if err != nil {
		return &Error{Kind: KindTransport, Err: err}
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(fieldName, filepath.Base(filePath))
	if err != nil {
		return &Error{Kind: KindTransport, Err: err}
	}
	if _, err := io.Copy(part, f); err != nil {
		return &Error{Kind: KindTransport, Err: err}
	}
	if err := writer.Close(); err != nil {
		return &Error{Kind: KindTransport, Err: err}
	}

	url := c.baseURL() + endpoint
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, url, &buf,
	)
	if err != nil {
		return &Error{Kind: KindTransport, Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(err)
	}

	log.Debugf("Upload %s returned %d in %v", endpoint, resp.StatusCode,
		time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeDaemonError(resp.StatusCode, raw)
	}

	return decodeResponse(raw, out)
}

// invalidateCache drops every cached row after a mutating call. A mutation
// can move balances, UTXOs and history all at once, so the whole cache goes.
func (c *Client) invalidateCache() {
	if c.cfg.Cache == nil {
		return
	}
	c.cfg.Cache.Invalidate()
}

// defaultFeeRate resolves the fee rate used for automatic UTXO creation.
func (c *Client) defaultFeeRate() float64 {
	if c.cfg.DefaultFeeRate != nil {
		if rate := c.cfg.DefaultFeeRate(); rate > 0 {
			return rate
		}
	}
	return DefaultFeeRate
}

// withUtxoFallback runs fn and, when it fails because no uncolored UTXOs are
// available, creates a batch of UTXOs of the given size at the default fee
// rate and retries fn exactly once. Any second failure propagates unchanged.
// Channel opens pass ChannelUtxoSize so the new UTXOs can fund the channel;
// everything else passes DefaultUtxoSize.
func (c *Client) withUtxoFallback(ctx context.Context, size int,
	fn func() error) error {

	err := fn()
	if !IsKind(err, KindNoAvailableUtxos) {
		return err
	}

	log.Infof("No uncolored UTXOs available, creating %d of %d sats at "+
		"%v sat/vB and retrying", DefaultUtxoNum, size,
		c.defaultFeeRate())

	_, cerr := c.CreateUTXOs(ctx, CreateUTXOsRequest{
		UpTo:    false,
		Num:     DefaultUtxoNum,
		Size:    size,
		FeeRate: c.defaultFeeRate(),
	})
	if cerr != nil {
		return fmt.Errorf("creating utxos for retry: %w", cerr)
	}

	return fn()
}
