package rln

import (
	"context"
	"net/http"
)

// Address returns a fresh on-chain receive address.
func (c *Client) Address(ctx context.Context) (*AddressResponse, error) {
	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp AddressResponse
	err := c.call(ctx, http.MethodPost, EndpointAddress, nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// BTCBalance returns the on-chain balance, split between uncolored and
// colored funds. Served from the cache when fresh.
func (c *Client) BTCBalance(ctx context.Context) (*BTCBalanceResponse,
	error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp BTCBalanceResponse
	err := c.cachedCall(ctx, http.MethodPost, EndpointBTCBalance,
		BTCBalanceRequest{}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListTransactions returns the on-chain history. Served from the cache when
// fresh.
func (c *Client) ListTransactions(ctx context.Context) (
	*ListTransactionsResponse, error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp ListTransactionsResponse
	err := c.cachedCall(ctx, http.MethodPost, EndpointListTransactions,
		ListTransactionsRequest{}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListUnspents returns the wallet UTXO set with RGB allocations. Served
// from the cache when fresh.
func (c *Client) ListUnspents(ctx context.Context) (*ListUnspentsResponse,
	error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp ListUnspentsResponse
	err := c.cachedCall(ctx, http.MethodPost, EndpointListUnspents,
		ListUnspentsRequest{}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendBTC spends uncolored funds to an address and invalidates the cache on
// success.
func (c *Client) SendBTC(ctx context.Context,
	req SendBTCRequest) (*SendBTCResponse, error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp SendBTCResponse
	err := c.call(ctx, http.MethodPost, EndpointSendBTC, req, &resp)
	if err != nil {
		return nil, err
	}

	c.invalidateCache()

	return &resp, nil
}

// EstimateFee returns the estimated fee rate in sat/vB for the given
// confirmation target.
func (c *Client) EstimateFee(ctx context.Context,
	blocks int) (*EstimateFeeResponse, error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp EstimateFeeResponse
	err := c.call(ctx, http.MethodPost, EndpointEstimateFee,
		EstimateFeeRequest{Blocks: blocks}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
