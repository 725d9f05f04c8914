package rln

import "errors"

// Defaults applied to daemon requests when the caller does not override
// them. They mirror the daemon's own expectations for a desktop wallet.
const (
	// DefaultFeeRate is the fallback fee rate in sat/vB.
	DefaultFeeRate = 5

	// DefaultUtxoNum is how many uncolored UTXOs the automatic fallback
	// creates when a colored operation runs out of them.
	DefaultUtxoNum = 2

	// DefaultUtxoSize is the size in sats of each created UTXO.
	DefaultUtxoSize = 1000

	// ChannelUtxoSize is the UTXO size needed to fund a channel open.
	ChannelUtxoSize = 32000

	// RGBInvoiceDuration is the validity window of an RGB invoice in
	// seconds.
	RGBInvoiceDuration = 86400
)

// Status is the generic ack body returned by mutating lifecycle calls.
type Status struct {
	Status bool `json:"status"`
}

// InitRequest creates a new wallet on the node.
type InitRequest struct {
	Password string `json:"password"`
}

// InitResponse carries the freshly generated wallet mnemonic. It is shown
// to the user once and never persisted in plain text.
type InitResponse struct {
	Mnemonic string `json:"mnemonic"`
}

func (r *InitResponse) validate() error {
	if r.Mnemonic == "" {
		return errors.New("init response missing mnemonic")
	}
	return nil
}

// UnlockRequest unlocks the wallet and points the node at the configured
// chain backend.
type UnlockRequest struct {
	Password            string   `json:"password"`
	BitcoindRPCUsername string   `json:"bitcoind_rpc_username"`
	BitcoindRPCPassword string   `json:"bitcoind_rpc_password"`
	BitcoindRPCHost     string   `json:"bitcoind_rpc_host"`
	BitcoindRPCPort     int      `json:"bitcoind_rpc_port"`
	IndexerURL          string   `json:"indexer_url"`
	ProxyEndpoint       string   `json:"proxy_endpoint"`
	AnnounceAddresses   []string `json:"announce_addresses"`
	AnnounceAlias       string   `json:"announce_alias"`
}

// ChangePasswordRequest rotates the wallet password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// BackupRequest asks the node to write an encrypted backup archive.
type BackupRequest struct {
	BackupPath string `json:"backup_path"`
	Password   string `json:"password"`
}

// RestoreRequest restores the wallet from a backup archive.
type RestoreRequest struct {
	BackupPath string `json:"backup_path"`
	Password   string `json:"password"`
}

// SignMessageRequest signs a message with the node key.
type SignMessageRequest struct {
	Message string `json:"message"`
}

// SignMessageResponse carries the signature.
type SignMessageResponse struct {
	SignedMessage string `json:"signed_message"`
}

func (r *SignMessageResponse) validate() error {
	if r.SignedMessage == "" {
		return errors.New("sign message response missing signature")
	}
	return nil
}

// SendOnionMessageRequest sends an onion message through the node.
type SendOnionMessageRequest struct {
	NodeIDs []string `json:"node_ids"`
	TLVType int      `json:"tlv_type"`
	Data    string   `json:"data"`
}

// CheckIndexerURLRequest validates an electrum indexer URL.
type CheckIndexerURLRequest struct {
	IndexerURL string `json:"indexer_url"`
}

// CheckIndexerURLResponse reports the protocol the indexer speaks.
type CheckIndexerURLResponse struct {
	IndexerProtocol string `json:"indexer_protocol"`
}

// CheckProxyEndpointRequest validates an RGB proxy endpoint.
type CheckProxyEndpointRequest struct {
	ProxyEndpoint string `json:"proxy_endpoint"`
}

// NetworkInfoResponse identifies the chain the node follows.
type NetworkInfoResponse struct {
	Network string `json:"network"`
	Height  int64  `json:"height"`
}

func (r *NetworkInfoResponse) validate() error {
	if r.Network == "" {
		return errors.New("network info response missing network")
	}
	return nil
}

// NodeInfoResponse is the node's self description. It doubles as the
// liveness and lock-state probe for the unlock coordinator.
type NodeInfoResponse struct {
	Pubkey                   string `json:"pubkey"`
	NumChannels              int    `json:"num_channels"`
	NumUsableChannels        int    `json:"num_usable_channels"`
	LocalBalanceMsat         int64  `json:"local_balance_msat"`
	NumPeers                 int    `json:"num_peers"`
	OnchainPubkey            string `json:"onchain_pubkey"`
	MaxMediaUploadSizeMB     int    `json:"max_media_upload_size_mb"`
	RGBHtlcMinMsat           int64  `json:"rgb_htlc_min_msat"`
	RGBChannelCapacityMinSat int64  `json:"rgb_channel_capacity_min_sat"`
	ChannelCapacityMinSat    int64  `json:"channel_capacity_min_sat"`
	ChannelCapacityMaxSat    int64  `json:"channel_capacity_max_sat"`
	ChannelAssetMinAmount    int64  `json:"channel_asset_min_amount"`
	ChannelAssetMaxAmount    int64  `json:"channel_asset_max_amount"`
}

func (r *NodeInfoResponse) validate() error {
	if r.Pubkey == "" {
		return errors.New("node info response missing pubkey")
	}
	return nil
}
