package rln

import "errors"

// Media is an asset media attachment held by the node.
type Media struct {
	FilePath string `json:"file_path"`
	Digest   string `json:"digest"`
	Hex      string `json:"hex,omitempty"`
	Mime     string `json:"mime"`
}

// Token is the unique token of a UDA asset.
type Token struct {
	Index         int              `json:"index"`
	Ticker        string           `json:"ticker,omitempty"`
	Name          string           `json:"name,omitempty"`
	Details       string           `json:"details,omitempty"`
	EmbeddedMedia bool             `json:"embedded_media"`
	Media         Media            `json:"media"`
	Attachments   map[string]Media `json:"attachments"`
	Reserves      bool             `json:"reserves"`
}

// AssetBalance extends the settled/future/spendable split with the amounts
// committed to lightning channels.
type AssetBalance struct {
	Settled          int64 `json:"settled"`
	Future           int64 `json:"future"`
	Spendable        int64 `json:"spendable"`
	OffchainOutbound int64 `json:"offchain_outbound"`
	OffchainInbound  int64 `json:"offchain_inbound"`
}

// Asset is a single RGB asset known to the node.
type Asset struct {
	AssetID      string       `json:"asset_id"`
	AssetIface   string       `json:"asset_iface"`
	Ticker       string       `json:"ticker,omitempty"`
	Name         string       `json:"name"`
	Details      string       `json:"details,omitempty"`
	Precision    int          `json:"precision"`
	IssuedSupply int64        `json:"issued_supply"`
	Timestamp    int64        `json:"timestamp"`
	AddedAt      int64        `json:"added_at"`
	Balance      AssetBalance `json:"balance"`
	Media        *Media       `json:"media,omitempty"`
	Token        *Token       `json:"token,omitempty"`
}

// TransportEndpoint describes an RGB consignment transport.
type TransportEndpoint struct {
	Endpoint      string `json:"endpoint"`
	TransportType string `json:"transport_type"`
	Used          bool   `json:"used"`
}

// Transfer is a single RGB asset transfer.
type Transfer struct {
	Idx                int                 `json:"idx"`
	BatchTransferIdx   int                 `json:"batch_transfer_idx"`
	CreatedAt          int64               `json:"created_at"`
	UpdatedAt          int64               `json:"updated_at"`
	Status             string              `json:"status"`
	Amount             int64               `json:"amount"`
	Kind               string              `json:"kind"`
	TxID               string              `json:"txid,omitempty"`
	RecipientID        string              `json:"recipient_id,omitempty"`
	ReceiveUtxo        string              `json:"receive_utxo,omitempty"`
	ChangeUtxo         string              `json:"change_utxo,omitempty"`
	Expiration         int64               `json:"expiration,omitempty"`
	TransportEndpoints []TransportEndpoint `json:"transport_endpoints,omitempty"`
}

// AssetBalanceRequest queries the balance of one asset.
type AssetBalanceRequest struct {
	AssetID string `json:"asset_id"`
}

// CreateUTXOsRequest creates uncolored UTXOs for RGB allocations.
type CreateUTXOsRequest struct {
	UpTo     bool    `json:"up_to"`
	Num      int     `json:"num"`
	Size     int     `json:"size,omitempty"`
	FeeRate  float64 `json:"fee_rate"`
	SkipSync bool    `json:"skip_sync"`
}

// DecodeRGBInvoiceRequest decodes an RGB invoice string.
type DecodeRGBInvoiceRequest struct {
	Invoice string `json:"invoice"`
}

// DecodeRGBInvoiceResponse is the decoded RGB invoice.
type DecodeRGBInvoiceResponse struct {
	RecipientID         string   `json:"recipient_id"`
	AssetIface          string   `json:"asset_iface,omitempty"`
	AssetID             string   `json:"asset_id,omitempty"`
	Amount              string   `json:"amount,omitempty"`
	Network             string   `json:"network"`
	ExpirationTimestamp int64    `json:"expiration_timestamp"`
	TransportEndpoints  []string `json:"transport_endpoints"`
}

func (r *DecodeRGBInvoiceResponse) validate() error {
	if r.RecipientID == "" {
		return errors.New("rgb invoice decode missing recipient id")
	}
	return nil
}

// FailTransfersRequest fails a pending batch transfer.
type FailTransfersRequest struct {
	BatchTransferIdx int  `json:"batch_transfer_idx"`
	NoAssetOnly      bool `json:"no_asset_only"`
	SkipSync         bool `json:"skip_sync"`
}

// FailTransfersResponse reports whether transfers changed state.
type FailTransfersResponse struct {
	TransfersChanged bool `json:"transfers_changed"`
}

// IssueAssetNIARequest issues a fungible NIA asset.
type IssueAssetNIARequest struct {
	Amounts   []int64 `json:"amounts"`
	Ticker    string  `json:"ticker"`
	Name      string  `json:"name"`
	Precision int     `json:"precision"`
}

// IssueAssetCFARequest issues a CFA asset with a media file digest.
type IssueAssetCFARequest struct {
	Amounts    []int64 `json:"amounts"`
	Name       string  `json:"name"`
	Details    string  `json:"details,omitempty"`
	Precision  int     `json:"precision"`
	FileDigest string  `json:"file_digest,omitempty"`
}

// IssueAssetUDARequest issues a unique UDA asset.
type IssueAssetUDARequest struct {
	Ticker        string `json:"ticker"`
	Name          string `json:"name"`
	Details       string `json:"details,omitempty"`
	Precision     int    `json:"precision"`
	MediaFilePath string `json:"media_file_path,omitempty"`
}

// IssueAssetResponse wraps the newly issued asset.
type IssueAssetResponse struct {
	Asset Asset `json:"asset"`
}

// ListAssetsRequest filters the asset list by schema.
type ListAssetsRequest struct {
	FilterAssetSchemas []string `json:"filter_asset_schemas"`
}

// ListAssetsResponse groups assets by schema.
type ListAssetsResponse struct {
	NIA []Asset `json:"nia"`
	UDA []Asset `json:"uda"`
	CFA []Asset `json:"cfa"`
}

// ListTransfersRequest queries transfers of one asset.
type ListTransfersRequest struct {
	AssetID string `json:"asset_id"`
}

// ListTransfersResponse is the transfer history of an asset.
type ListTransfersResponse struct {
	Transfers []Transfer `json:"transfers"`
}

// RefreshTransfersRequest resolves pending transfers against the proxy.
type RefreshTransfersRequest struct {
	SkipSync bool `json:"skip_sync"`
}

// RGBInvoiceRequest creates a blinded receive invoice.
type RGBInvoiceRequest struct {
	MinConfirmations int    `json:"min_confirmations"`
	AssetID          string `json:"asset_id,omitempty"`
	DurationSeconds  int    `json:"duration_seconds"`
}

// RGBInvoiceResponse is the blinded invoice handed to the payer.
type RGBInvoiceResponse struct {
	RecipientID         string `json:"recipient_id"`
	Invoice             string `json:"invoice"`
	ExpirationTimestamp int64  `json:"expiration_timestamp"`
	BatchTransferIdx    int    `json:"batch_transfer_idx"`
}

func (r *RGBInvoiceResponse) validate() error {
	if r.Invoice == "" {
		return errors.New("rgb invoice response missing invoice")
	}
	return nil
}

// SendAssetRequest sends an RGB asset on-chain.
type SendAssetRequest struct {
	AssetID            string   `json:"asset_id"`
	Amount             int64    `json:"amount"`
	RecipientID        string   `json:"recipient_id"`
	Donation           bool     `json:"donation"`
	FeeRate            float64  `json:"fee_rate"`
	MinConfirmations   int      `json:"min_confirmations"`
	TransportEndpoints []string `json:"transport_endpoints"`
	SkipSync           bool     `json:"skip_sync"`
}

// SendAssetResponse carries the broadcast txid.
type SendAssetResponse struct {
	TxID string `json:"txid"`
}

// GetAssetMediaRequest fetches media bytes by digest.
type GetAssetMediaRequest struct {
	Digest string `json:"digest"`
}

// GetAssetMediaResponse is the hex-encoded media payload.
type GetAssetMediaResponse struct {
	Bytes string `json:"bytes"`
}

// PostAssetMediaResponse is the digest of an uploaded media file.
type PostAssetMediaResponse struct {
	Digest string `json:"digest"`
}
