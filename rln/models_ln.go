package rln

// MinChannelCapacity is the smallest channel the daemon will fund, in sats.
const MinChannelCapacity = 5506

// Channel is a lightning channel as reported by the node.
type Channel struct {
	ChannelID           string `json:"channel_id"`
	FundingTxID         string `json:"funding_txid,omitempty"`
	PeerPubkey          string `json:"peer_pubkey"`
	PeerAlias           string `json:"peer_alias,omitempty"`
	ShortChannelID      int64  `json:"short_channel_id,omitempty"`
	Status              string `json:"status"`
	Ready               bool   `json:"ready"`
	CapacitySat         int64  `json:"capacity_sat"`
	LocalBalanceSat     int64  `json:"local_balance_sat"`
	OutboundBalanceMsat int64  `json:"outbound_balance_msat,omitempty"`
	InboundBalanceMsat  int64  `json:"inbound_balance_msat,omitempty"`
	IsUsable            bool   `json:"is_usable"`
	Public              bool   `json:"public"`
	AssetID             string `json:"asset_id,omitempty"`
	AssetLocalAmount    int64  `json:"asset_local_amount,omitempty"`
	AssetRemoteAmount   int64  `json:"asset_remote_amount,omitempty"`
}

// OpenChannelRequest opens a channel, optionally colored with an asset.
type OpenChannelRequest struct {
	PeerPubkeyAndOptAddr      string `json:"peer_pubkey_and_opt_addr"`
	CapacitySat               int64  `json:"capacity_sat"`
	PushMsat                  int64  `json:"push_msat"`
	AssetAmount               int64  `json:"asset_amount,omitempty"`
	AssetID                   string `json:"asset_id,omitempty"`
	Public                    bool   `json:"public"`
	WithAnchors               bool   `json:"with_anchors"`
	FeeBaseMsat               int64  `json:"fee_base_msat"`
	FeeProportionalMillionths int64  `json:"fee_proportional_millionths"`
}

// OpenChannelResponse carries the pending channel id.
type OpenChannelResponse struct {
	TemporaryChannelID string `json:"temporary_channel_id"`
}

// CloseChannelRequest closes a channel, cooperatively or by force.
type CloseChannelRequest struct {
	ChannelID  string `json:"channel_id"`
	PeerPubkey string `json:"peer_pubkey"`
	Force      bool   `json:"force"`
}

// ListChannelsResponse is the node's channel set.
type ListChannelsResponse struct {
	Channels []Channel `json:"channels"`
}

// Peer is a connected lightning peer.
type Peer struct {
	Pubkey string `json:"pubkey"`
}

// ConnectPeerRequest connects to a peer by pubkey and optional address.
type ConnectPeerRequest struct {
	PeerPubkeyAndAddr string `json:"peer_pubkey_and_addr"`
}

// DisconnectPeerRequest drops a peer connection.
type DisconnectPeerRequest struct {
	PeerPubkey string `json:"peer_pubkey"`
}

// ListPeersResponse is the connected peer set.
type ListPeersResponse struct {
	Peers []Peer `json:"peers"`
}

// Payment is a single lightning payment, sent or received.
type Payment struct {
	AmtMsat     int64  `json:"amt_msat"`
	AssetAmount int64  `json:"asset_amount,omitempty"`
	AssetID     string `json:"asset_id,omitempty"`
	PaymentHash string `json:"payment_hash"`
	Inbound     bool   `json:"inbound"`
	Status      string `json:"status"`
	PayeePubkey string `json:"payee_pubkey"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

// KeySendRequest pays a node directly without an invoice.
type KeySendRequest struct {
	DestPubkey  string `json:"dest_pubkey"`
	AmtMsat     int64  `json:"amt_msat"`
	AssetID     string `json:"asset_id,omitempty"`
	AssetAmount int64  `json:"asset_amount,omitempty"`
}

// KeySendResponse reports the in-flight payment.
type KeySendResponse struct {
	PaymentHash   string `json:"payment_hash"`
	PaymentSecret string `json:"payment_secret"`
	Status        string `json:"status"`
}

// SendPaymentRequest pays a lightning invoice.
type SendPaymentRequest struct {
	Invoice string `json:"invoice"`
}

// SendPaymentResponse reports the in-flight payment.
type SendPaymentResponse struct {
	PaymentHash   string `json:"payment_hash"`
	PaymentSecret string `json:"payment_secret"`
	Status        string `json:"status"`
}

// ListPaymentsResponse is the lightning payment history.
type ListPaymentsResponse struct {
	Payments []Payment `json:"payments"`
}

// DecodeLNInvoiceRequest decodes a lightning invoice.
type DecodeLNInvoiceRequest struct {
	Invoice string `json:"invoice"`
}

// DecodeLNInvoiceResponse is the decoded invoice.
type DecodeLNInvoiceResponse struct {
	AmtMsat       int64  `json:"amt_msat"`
	ExpirySec     int64  `json:"expiry_sec"`
	Timestamp     int64  `json:"timestamp"`
	AssetID       string `json:"asset_id,omitempty"`
	AssetAmount   int64  `json:"asset_amount,omitempty"`
	PaymentHash   string `json:"payment_hash"`
	PaymentSecret string `json:"payment_secret"`
	PayeePubkey   string `json:"payee_pubkey"`
	Network       string `json:"network"`
}

// InvoiceStatusRequest queries the settlement state of an invoice.
type InvoiceStatusRequest struct {
	Invoice string `json:"invoice"`
}

// InvoiceStatusResponse is the settlement state of an invoice.
type InvoiceStatusResponse struct {
	Status string `json:"status"`
}

// LNInvoiceRequest creates a lightning invoice, optionally asking for an
// RGB asset on top of the sats.
type LNInvoiceRequest struct {
	AmtMsat     int64  `json:"amt_msat"`
	ExpirySec   int    `json:"expiry_sec"`
	AssetID     string `json:"asset_id,omitempty"`
	AssetAmount int64  `json:"asset_amount,omitempty"`
}

// LNInvoiceResponse carries the encoded invoice.
type LNInvoiceResponse struct {
	Invoice string `json:"invoice"`
}
