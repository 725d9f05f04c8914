package rln

import (
	"context"
	"net/http"
)

// AssetBalance returns the balance of a single RGB asset.
func (c *Client) AssetBalance(ctx context.Context,
	assetID string) (*AssetBalance, error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp AssetBalance
	err := c.call(ctx, http.MethodPost, EndpointAssetBalance,
		AssetBalanceRequest{AssetID: assetID}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateUTXOs creates uncolored UTXOs sized for RGB allocations and
// invalidates the cache on success.
func (c *Client) CreateUTXOs(ctx context.Context,
	req CreateUTXOsRequest) (*Status, error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	if req.Num == 0 {
		req.Num = DefaultUtxoNum
	}
	if req.Size == 0 {
		req.Size = DefaultUtxoSize
	}
	if req.FeeRate == 0 {
		req.FeeRate = c.defaultFeeRate()
	}

	var resp Status
	err := c.call(ctx, http.MethodPost, EndpointCreateUTXOs, req, &resp)
	if err != nil {
		return nil, err
	}

	c.invalidateCache()

	return &resp, nil
}

// DecodeRGBInvoice decodes an RGB invoice string.
func (c *Client) DecodeRGBInvoice(ctx context.Context,
	invoice string) (*DecodeRGBInvoiceResponse, error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp DecodeRGBInvoiceResponse
	err := c.call(ctx, http.MethodPost, EndpointDecodeRGBInvoice,
		DecodeRGBInvoiceRequest{Invoice: invoice}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// FailTransfers fails a pending batch transfer and invalidates the cache
// when transfers changed.
func (c *Client) FailTransfers(ctx context.Context,
	req FailTransfersRequest) (*FailTransfersResponse, error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp FailTransfersResponse
	err := c.call(ctx, http.MethodPost, EndpointFailTransfers, req, &resp)
	if err != nil {
		return nil, err
	}

	if resp.TransfersChanged {
		c.invalidateCache()
	}

	return &resp, nil
}

// IssueAssetNIA issues a fungible NIA asset. When the wallet has no
// uncolored UTXOs left the issuance is retried once after creating a batch
// at the default fee rate.
func (c *Client) IssueAssetNIA(ctx context.Context,
	req IssueAssetNIARequest) (*IssueAssetResponse, error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp IssueAssetResponse
	err := c.withUtxoFallback(ctx, DefaultUtxoSize, func() error {
		return c.call(ctx, http.MethodPost, EndpointIssueAssetNIA,
			req, &resp)
	})
	if err != nil {
		return nil, err
	}

	c.invalidateCache()

	return &resp, nil
}

// IssueAssetCFA issues a CFA asset, retrying once on missing uncolored
// UTXOs.
func (c *Client) IssueAssetCFA(ctx context.Context,
	req IssueAssetCFARequest) (*IssueAssetResponse, error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp IssueAssetResponse
	err := c.withUtxoFallback(ctx, DefaultUtxoSize, func() error {
		return c.call(ctx, http.MethodPost, EndpointIssueAssetCFA,
			req, &resp)
	})
	if err != nil {
		return nil, err
	}

	c.invalidateCache()

	return &resp, nil
}

// IssueAssetUDA issues a unique UDA asset, retrying once on missing
// uncolored UTXOs.
func (c *Client) IssueAssetUDA(ctx context.Context,
	req IssueAssetUDARequest) (*IssueAssetResponse, error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp IssueAssetResponse
	err := c.withUtxoFallback(ctx, DefaultUtxoSize, func() error {
		return c.call(ctx, http.MethodPost, EndpointIssueAssetUDA,
			req, &resp)
	})
	if err != nil {
		return nil, err
	}

	c.invalidateCache()

	return &resp, nil
}

// ListAssets returns the node's assets grouped by schema. An empty filter
// returns every schema.
func (c *Client) ListAssets(ctx context.Context,
	schemas ...string) (*ListAssetsResponse, error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	if len(schemas) == 0 {
		schemas = []string{"Nia", "Uda", "Cfa"}
	}

	var resp ListAssetsResponse
	err := c.call(ctx, http.MethodPost, EndpointListAssets,
		ListAssetsRequest{FilterAssetSchemas: schemas}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListTransfers returns the transfer history of an asset.
func (c *Client) ListTransfers(ctx context.Context,
	assetID string) (*ListTransfersResponse, error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp ListTransfersResponse
	err := c.call(ctx, http.MethodPost, EndpointListTransfers,
		ListTransfersRequest{AssetID: assetID}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// RefreshTransfers resolves pending transfers against the proxy and
// invalidates the cache.
func (c *Client) RefreshTransfers(ctx context.Context) error {
	if err := c.requireUnlocked(); err != nil {
		return err
	}

	var resp Status
	err := c.call(ctx, http.MethodPost, EndpointRefreshTransfers,
		RefreshTransfersRequest{}, &resp)
	if err != nil {
		return err
	}

	c.invalidateCache()

	return nil
}

// RGBInvoice creates a blinded receive invoice, retrying once on missing
// uncolored UTXOs. The cache is invalidated because the invoice reserves a
// UTXO.
func (c *Client) RGBInvoice(ctx context.Context,
	req RGBInvoiceRequest) (*RGBInvoiceResponse, error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	if req.DurationSeconds == 0 {
		req.DurationSeconds = RGBInvoiceDuration
	}

	var resp RGBInvoiceResponse
	err := c.withUtxoFallback(ctx, DefaultUtxoSize, func() error {
		return c.call(ctx, http.MethodPost, EndpointRGBInvoice, req,
			&resp)
	})
	if err != nil {
		return nil, err
	}

	c.invalidateCache()

	return &resp, nil
}

// SendAsset sends an RGB asset on-chain, retrying once on missing uncolored
// UTXOs, and invalidates the cache on success.
func (c *Client) SendAsset(ctx context.Context,
	req SendAssetRequest) (*SendAssetResponse, error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp SendAssetResponse
	err := c.withUtxoFallback(ctx, DefaultUtxoSize, func() error {
		return c.call(ctx, http.MethodPost, EndpointSendAsset, req,
			&resp)
	})
	if err != nil {
		return nil, err
	}

	c.invalidateCache()

	return &resp, nil
}

// GetAssetMedia fetches asset media bytes by digest.
func (c *Client) GetAssetMedia(ctx context.Context,
	digest string) (*GetAssetMediaResponse, error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp GetAssetMediaResponse
	err := c.call(ctx, http.MethodPost, EndpointGetAssetMedia,
		GetAssetMediaRequest{Digest: digest}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// PostAssetMedia uploads a media file and returns its digest for use in a
// CFA issuance.
func (c *Client) PostAssetMedia(ctx context.Context,
	filePath string) (*PostAssetMediaResponse, error) {

	if err := c.requireUnlocked(); err != nil {
		return nil, err
	}

	var resp PostAssetMediaResponse
	err := c.postFile(ctx, EndpointPostAssetMedia, "file", filePath,
		&resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
