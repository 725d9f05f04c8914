package rln

import (
	"context"
	"fmt"
	"net/http"
)

// OpenChannel opens a channel, optionally colored with an RGB asset. A
// colored open that runs out of uncolored UTXOs is retried once after
// creating a batch at the default fee rate. The cache is invalidated on
// success because the funding moves on-chain funds.
func (c *Client) OpenChannel(ctx context.Context,
	req OpenChannelRequest) (*OpenChannelResponse, error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}
	if req.CapacitySat < MinChannelCapacity {
		return nil, &Error{
			Kind: KindUnknown,
			Msg: fmt.Sprintf("channel capacity below the %d sat "+
				"minimum", MinChannelCapacity),
		}
	}

	var resp OpenChannelResponse
	err := c.withUtxoFallback(ctx, ChannelUtxoSize, func() error {
		return c.call(ctx, http.MethodPost, EndpointOpenChannel, req,
			&resp)
	})
	if err != nil {
		return nil, err
	}

	c.invalidateCache()

	return &resp, nil
}

// CloseChannel closes a channel and invalidates the cache on success.
func (c *Client) CloseChannel(ctx context.Context,
	req CloseChannelRequest) error {

	if err := c.requireUnlocked(); err != nil {
		return err
	}

	var resp Status
	err := c.call(ctx, http.MethodPost, EndpointCloseChannel, req, &resp)
	if err != nil {
		return err
	}

	c.invalidateCache()

	return nil
}

// ListChannels returns the node's channel set.
func (c *Client) ListChannels(ctx context.Context) (*ListChannelsResponse,
	error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp ListChannelsResponse
	err := c.call(ctx, http.MethodGet, EndpointListChannels, nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConnectPeer connects to a lightning peer.
func (c *Client) ConnectPeer(ctx context.Context,
	peerPubkeyAndAddr string) error {

	if err := c.requireUnlocked(); err != nil {
		return err
	}

	var resp Status
	return c.call(ctx, http.MethodPost, EndpointConnectPeer,
		ConnectPeerRequest{PeerPubkeyAndAddr: peerPubkeyAndAddr}, &resp)
}

// DisconnectPeer drops a peer connection.
func (c *Client) DisconnectPeer(ctx context.Context, peerPubkey string) error {
	if err := c.requireUnlocked(); err != nil {
		return err
	}

	var resp Status
	return c.call(ctx, http.MethodPost, EndpointDisconnectPeer,
		DisconnectPeerRequest{PeerPubkey: peerPubkey}, &resp)
}

// ListPeers returns the connected peer set.
func (c *Client) ListPeers(ctx context.Context) (*ListPeersResponse, error) {
	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp ListPeersResponse
	err := c.call(ctx, http.MethodGet, EndpointListPeers, nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// KeySend pays a node directly without an invoice and invalidates the
// cache on success.
func (c *Client) KeySend(ctx context.Context,
	req KeySendRequest) (*KeySendResponse, error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp KeySendResponse
	err := c.call(ctx, http.MethodPost, EndpointKeySend, req, &resp)
	if err != nil {
		return nil, err
	}

	c.invalidateCache()

	return &resp, nil
}

// SendPayment pays a lightning invoice and invalidates the cache on
// success.
func (c *Client) SendPayment(ctx context.Context,
	invoice string) (*SendPaymentResponse, error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp SendPaymentResponse
	err := c.call(ctx, http.MethodPost, EndpointSendPayment,
		SendPaymentRequest{Invoice: invoice}, &resp)
	if err != nil {
		return nil, err
	}

	c.invalidateCache()

	return &resp, nil
}

// ListPayments returns the lightning payment history.
func (c *Client) ListPayments(ctx context.Context) (*ListPaymentsResponse,
	error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp ListPaymentsResponse
	err := c.call(ctx, http.MethodGet, EndpointListPayments, nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DecodeLNInvoice decodes a lightning invoice.
func (c *Client) DecodeLNInvoice(ctx context.Context,
	invoice string) (*DecodeLNInvoiceResponse, error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp DecodeLNInvoiceResponse
	err := c.call(ctx, http.MethodPost, EndpointDecodeLNInvoice,
		DecodeLNInvoiceRequest{Invoice: invoice}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// InvoiceStatus returns the settlement state of an invoice.
func (c *Client) InvoiceStatus(ctx context.Context,
	invoice string) (*InvoiceStatusResponse, error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp InvoiceStatusResponse
	err := c.call(ctx, http.MethodPost, EndpointInvoiceStatus,
		InvoiceStatusRequest{Invoice: invoice}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// LNInvoice creates a lightning invoice. An RGB-colored invoice that runs
// out of uncolored UTXOs is retried once after creating a batch.
func (c *Client) LNInvoice(ctx context.Context,
	req LNInvoiceRequest) (*LNInvoiceResponse, error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp LNInvoiceResponse
	err := c.withUtxoFallback(ctx, DefaultUtxoSize, func() error {
		return c.call(ctx, http.MethodPost, EndpointLNInvoice, req,
			&resp)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
