package flavour

// NetworkDefaults bundles the per-network daemon configuration the wallet
// falls back to when the user has not overridden an endpoint in settings.
// The values mirror the infrastructure the RLN daemon is deployed against.
type NetworkDefaults struct {
	BitcoindRPCUser     string
	BitcoindRPCPassword string
	BitcoindRPCHost     string
	BitcoindRPCPort     uint16

	IndexerURL    string
	ProxyEndpoint string

	AnnounceAddress string
	AnnounceAlias   string
}

const (
	defaultAnnounceAddress = "pub.addr.example.com:9735"
	defaultAnnounceAlias   = "nodeAlias"
)

var networkDefaults = map[Network]NetworkDefaults{
	NetworkRegtest: {
		BitcoindRPCUser:     "user",
		BitcoindRPCPassword: "password",
		BitcoindRPCHost:     "regtest-bitcoind.rgbtools.org",
		BitcoindRPCPort:     80,
		IndexerURL:          "electrum.rgbtools.org:50041",
		ProxyEndpoint:       "rpcs://proxy.iriswallet.com/0.2/json-rpc",
		AnnounceAddress:     defaultAnnounceAddress,
		AnnounceAlias:       defaultAnnounceAlias,
	},
	NetworkTestnet: {
		BitcoindRPCUser:     "user",
		BitcoindRPCPassword: "password",
		BitcoindRPCHost:     "electrum.iriswallet.com",
		BitcoindRPCPort:     18332,
		IndexerURL:          "ssl://electrum.iriswallet.com:50013",
		ProxyEndpoint:       "rpcs://proxy.iriswallet.com/0.2/json-rpc",
		AnnounceAddress:     defaultAnnounceAddress,
		AnnounceAlias:       defaultAnnounceAlias,
	},
	NetworkMainnet: {
		BitcoindRPCUser:     "user",
		BitcoindRPCPassword: "password",
		BitcoindRPCHost:     "localhost",
		BitcoindRPCPort:     18447,
		IndexerURL:          "http://127.0.0.1:50003",
		ProxyEndpoint:       "http://127.0.0.1:3002/json-rpc",
		AnnounceAddress:     defaultAnnounceAddress,
		AnnounceAlias:       defaultAnnounceAlias,
	},
}

// Defaults returns the built-in daemon configuration for the flavour's
// network.
func (f *Flavour) Defaults() NetworkDefaults {
	return networkDefaults[f.Network]
}
