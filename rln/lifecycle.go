package rln

import (
	"context"
	"net/http"
)

// Init creates a new wallet on the node and returns its mnemonic. The node
// must be locked and uninitialized.
func (c *Client) Init(ctx context.Context,
	req InitRequest) (*InitResponse, error) {

	if err := c.requireLocked(); err != nil {
		return nil, err
	}

	var resp InitResponse
	err := c.call(ctx, http.MethodPost, EndpointInit, req, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Unlock unlocks the wallet. Lock state is left to the daemon to arbitrate
// because the unlock coordinator calls this while reconciling state that is
// not yet trusted locally.
func (c *Client) Unlock(ctx context.Context, req UnlockRequest) error {
	var resp Status
	return c.call(ctx, http.MethodPost, EndpointUnlock, req, &resp)
}

// Lock locks the wallet. Like Unlock it is never gated locally.
func (c *Client) Lock(ctx context.Context) error {
	var resp Status
	return c.call(ctx, http.MethodPost, EndpointLock, nil, &resp)
}

// ChangePassword rotates the wallet password. Requires a locked node.
func (c *Client) ChangePassword(ctx context.Context,
	req ChangePasswordRequest) error {

	if err := c.requireLocked(); err != nil {
		return err
	}

	var resp Status
	return c.call(ctx, http.MethodPost, EndpointChangePassword, req, &resp)
}

// Backup writes an encrypted backup archive to the given path. Requires a
// locked node.
func (c *Client) Backup(ctx context.Context, req BackupRequest) error {
	if err := c.requireLocked(); err != nil {
		return err
	}

	var resp Status
	return c.call(ctx, http.MethodPost, EndpointBackup, req, &resp)
}

// Restore restores the wallet from a backup archive. Requires a locked
// node.
func (c *Client) Restore(ctx context.Context, req RestoreRequest) error {
	if err := c.requireLocked(); err != nil {
		return err
	}

	var resp Status
	return c.call(ctx, http.MethodPost, EndpointRestore, req, &resp)
}

// Shutdown asks the daemon to exit.
func (c *Client) Shutdown(ctx context.Context) error {
	var resp Status
	return c.call(ctx, http.MethodPost, EndpointShutdown, nil, &resp)
}

// NodeInfo returns the node's self description. It is also the probe the
// unlock coordinator uses to learn the lock state, so it is never gated
// locally.
func (c *Client) NodeInfo(ctx context.Context) (*NodeInfoResponse, error) {
	var resp NodeInfoResponse
	err := c.call(ctx, http.MethodGet, EndpointNodeInfo, nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// NetworkInfo returns the chain the node follows.
func (c *Client) NetworkInfo(ctx context.Context) (*NetworkInfoResponse,
	error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp NetworkInfoResponse
	err := c.call(ctx, http.MethodGet, EndpointNetworkInfo, nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// SignMessage signs a message with the node key.
func (c *Client) SignMessage(ctx context.Context,
	req SignMessageRequest) (*SignMessageResponse, error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp SignMessageResponse
	err := c.call(ctx, http.MethodPost, EndpointSignMessage, req, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendOnionMessage sends an onion message through the node.
func (c *Client) SendOnionMessage(ctx context.Context,
	req SendOnionMessageRequest) error {

	if err := c.requireUnlocked(); err != nil {
		return err
	}

	var resp Status
	return c.call(ctx, http.MethodPost, EndpointSendOnionMessage, req,
		&resp)
}

// CheckIndexerURL verifies an electrum indexer is reachable and compatible.
// The daemon only accepts this while locked.
func (c *Client) CheckIndexerURL(ctx context.Context,
	indexerURL string) (*CheckIndexerURLResponse, error) {

	if err := c.requireLocked(); err != nil {
		return nil, err
	}

	var resp CheckIndexerURLResponse
	err := c.call(ctx, http.MethodPost, EndpointCheckIndexerURL,
		CheckIndexerURLRequest{IndexerURL: indexerURL}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// CheckProxyEndpoint verifies an RGB proxy endpoint is reachable. The
// daemon only accepts this while locked.
func (c *Client) CheckProxyEndpoint(ctx context.Context,
	proxyEndpoint string) error {

	if err := c.requireLocked(); err != nil {
		return err
	}

	var resp Status
	return c.call(ctx, http.MethodPost, EndpointCheckProxy,
		CheckProxyEndpointRequest{ProxyEndpoint: proxyEndpoint}, &resp)
}
