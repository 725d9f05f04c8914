package rln

// Daemon endpoints. The set mirrors the HTTP surface exposed by the RGB
// Lightning Node and is grouped by the area of the node it touches.
const (
	// Channels.
	EndpointCloseChannel = "/closechannel"
	EndpointListChannels = "/listchannels"
	EndpointOpenChannel  = "/openchannel"

	// Peers.
	EndpointConnectPeer    = "/connectpeer"
	EndpointDisconnectPeer = "/disconnectpeer"
	EndpointListPeers      = "/listpeers"

	// Payments.
	EndpointKeySend      = "/keysend"
	EndpointListPayments = "/listpayments"
	EndpointSendPayment  = "/sendpayment"

	// Invoices.
	EndpointDecodeLNInvoice = "/decodelninvoice"
	EndpointInvoiceStatus   = "/invoicestatus"
	EndpointLNInvoice       = "/lninvoice"

	// On-chain.
	EndpointAddress          = "/address"
	EndpointBTCBalance       = "/btcbalance"
	EndpointListTransactions = "/listtransactions"
	EndpointListUnspents     = "/listunspents"
	EndpointSendBTC          = "/sendbtc"
	EndpointEstimateFee      = "/estimatefee"

	// RGB.
	EndpointAssetBalance     = "/assetbalance"
	EndpointCreateUTXOs      = "/createutxos"
	EndpointDecodeRGBInvoice = "/decodergbinvoice"
	EndpointFailTransfers    = "/failtransfers"
	EndpointIssueAssetNIA    = "/issueassetnia"
	EndpointIssueAssetCFA    = "/issueassetcfa"
	EndpointIssueAssetUDA    = "/issueassetuda"
	EndpointListAssets       = "/listassets"
	EndpointListTransfers    = "/listtransfers"
	EndpointRefreshTransfers = "/refreshtransfers"
	EndpointRGBInvoice       = "/rgbinvoice"
	EndpointSendAsset        = "/sendasset"
	EndpointGetAssetMedia    = "/getassetmedia"
	EndpointPostAssetMedia   = "/postassetmedia"

	// Node lifecycle and misc.
	EndpointBackup           = "/backup"
	EndpointChangePassword   = "/changepassword"
	EndpointCheckIndexerURL  = "/checkindexerurl"
	EndpointCheckProxy       = "/checkproxyendpoint"
	EndpointInit             = "/init"
	EndpointLock             = "/lock"
	EndpointNetworkInfo      = "/networkinfo"
	EndpointNodeInfo         = "/nodeinfo"
	EndpointRestore          = "/restore"
	EndpointSendOnionMessage = "/sendonionmessage"
	EndpointShutdown         = "/shutdown"
	EndpointSignMessage      = "/signmessage"
	EndpointUnlock           = "/unlock"
)

// cacheableEndpoints is the allowlist of endpoints whose responses may be
// served from the on-disk cache. Only cheap, idempotent balance and history
// reads qualify. Everything else always hits the daemon.
var cacheableEndpoints = map[string]struct{}{
	EndpointBTCBalance:       {},
	EndpointListTransactions: {},
	EndpointListUnspents:     {},
}

// Cacheable reports whether responses for the given endpoint may be stored
// in and served from the cache.
func Cacheable(endpoint string) bool {
	_, ok := cacheableEndpoints[endpoint]
	return ok
}
