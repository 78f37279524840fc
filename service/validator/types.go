package validator

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// RedeemInput is a caller snapshot of a transaction input spending a coin
// created by a flagged transaction.
type RedeemInput struct {
	TxID   chainhash.Hash
	Script []byte // script of the output being spent
	Amount btcutil.Amount
}

// RedeemOutput is a caller snapshot of one output of the spending
// transaction.
type RedeemOutput struct {
	Script []byte
	Amount btcutil.Amount
}

// Reason explains a redemption verdict.
type Reason string

const (
	ReasonNoRecipients           Reason = "no_recipients"
	ReasonUnknownInfraction      Reason = "unknown_infraction"
	ReasonUnresolvableInput      Reason = "unresolvable_input"
	ReasonUnresolvableRecipient  Reason = "unresolvable_recipient"
	ReasonNothingExploited       Reason = "nothing_exploited"
	ReasonRedeemed               Reason = "redeemed"
	ReasonInsufficientRedemption Reason = "insufficient_redemption"
)

// Verdict is the outcome of reconciling exploited inputs against the
// amounts paid to the redemption address.
type Verdict struct {
	Verified bool
	Reason   Reason

	// TotalExploited sums registry amounts per distinct (txid, address)
	// pair, not the amounts carried on the inputs.
	TotalExploited btcutil.Amount
	TotalRedeemed  btcutil.Amount

	// Index of the input or output that caused a fail-closed rejection,
	// -1 otherwise.
	Index int
}

// Shortfall describes a partial redemption: something was paid to the
// redemption address, but less than required.
type Shortfall struct {
	TxIDs    []chainhash.Hash
	Required btcutil.Amount
	Redeemed btcutil.Amount
}

// Missing returns how much more had to be paid to the redemption address.
func (s Shortfall) Missing() btcutil.Amount {
	return s.Required - s.Redeemed
}

// Status is a point-in-time view of the guard.
type Status struct {
	Network           string
	RedemptionAddress string
	Loaded            bool
	RequireLoaded     bool
	Records           int
	Transactions      int
}
