package rln

import "errors"

// ConfirmationTime pins a transaction to a block.
type ConfirmationTime struct {
	Height    int64 `json:"height"`
	Timestamp int64 `json:"timestamp"`
}

// Transaction is a single on-chain wallet transaction.
type Transaction struct {
	TransactionType  string            `json:"transaction_type"`
	TxID             string            `json:"txid"`
	Received         int64             `json:"received"`
	Sent             int64             `json:"sent"`
	Fee              int64             `json:"fee"`
	ConfirmationTime *ConfirmationTime `json:"confirmation_time,omitempty"`
}

// BalanceStatus breaks a balance down by settlement state, in sats.
type BalanceStatus struct {
	Settled   int64 `json:"settled"`
	Future    int64 `json:"future"`
	Spendable int64 `json:"spendable"`
}

// BTCBalanceRequest queries the on-chain balance.
type BTCBalanceRequest struct {
	SkipSync bool `json:"skip_sync"`
}

// BTCBalanceResponse splits the balance between uncolored (vanilla) and
// RGB-colored funds.
type BTCBalanceResponse struct {
	Vanilla BalanceStatus `json:"vanilla"`
	Colored BalanceStatus `json:"colored"`
}

// AddressResponse carries a fresh receive address.
type AddressResponse struct {
	Address string `json:"address"`
}

func (r *AddressResponse) validate() error {
	if r.Address == "" {
		return errors.New("address response missing address")
	}
	return nil
}

// ListTransactionsRequest queries on-chain history.
type ListTransactionsRequest struct {
	SkipSync bool `json:"skip_sync"`
}

// ListTransactionsResponse is the on-chain history.
type ListTransactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}

// Utxo is a wallet outpoint.
type Utxo struct {
	Outpoint  string `json:"outpoint"`
	BTCAmount int64  `json:"btc_amount"`
	Colorable bool   `json:"colorable"`
}

// RGBAllocation is an RGB asset allocation bound to a UTXO.
type RGBAllocation struct {
	AssetID string `json:"asset_id,omitempty"`
	Amount  int64  `json:"amount"`
	Settled bool   `json:"settled"`
}

// Unspent pairs a UTXO with its RGB allocations.
type Unspent struct {
	Utxo           Utxo            `json:"utxo"`
	RGBAllocations []RGBAllocation `json:"rgb_allocations"`
}

// ListUnspentsRequest queries the wallet UTXO set.
type ListUnspentsRequest struct {
	SkipSync bool `json:"skip_sync"`
}

// ListUnspentsResponse is the wallet UTXO set.
type ListUnspentsResponse struct {
	Unspents []Unspent `json:"unspents"`
}

// SendBTCRequest spends uncolored funds to an address.
type SendBTCRequest struct {
	Amount   int64   `json:"amount"`
	Address  string  `json:"address"`
	FeeRate  float64 `json:"fee_rate"`
	SkipSync bool    `json:"skip_sync"`
}

// SendBTCResponse carries the broadcast txid.
type SendBTCResponse struct {
	TxID string `json:"txid"`
}

func (r *SendBTCResponse) validate() error {
	if r.TxID == "" {
		return errors.New("send btc response missing txid")
	}
	return nil
}

// EstimateFeeRequest asks for a fee estimate at a confirmation target.
type EstimateFeeRequest struct {
	Blocks int `json:"blocks"`
}

// EstimateFeeResponse is the estimated fee rate in sat/vB.
type EstimateFeeResponse struct {
	FeeRate float64 `json:"fee_rate"`
}
