package validator

import (
	"github.com/brojonat/coinguard/service/address"
	"github.com/brojonat/coinguard/service/infraction"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

type seenKey struct {
	txid    chainhash.Hash
	address string
}

// reconcile decides whether recipients pay enough to redemptionAddr to
// cover every flagged amount reachable from exploited. It never mutates reg.
func reconcile(
	reg *infraction.Registry,
	resolver address.Resolver,
	redemptionAddr string,
	exploited []RedeemInput,
	recipients []RedeemOutput,
) Verdict {
	if len(recipients) == 0 {
		return Verdict{Reason: ReasonNoRecipients, Index: -1}
	}

	var totalExploited btcutil.Amount
	seen := make(map[seenKey]struct{}, len(exploited))
	for i, in := range exploited {
		if !reg.Has(in.TxID) {
			return Verdict{Reason: ReasonUnknownInfraction, Index: i}
		}

		addr, ok := resolver.Resolve(in.Script)
		if !ok {
			return Verdict{Reason: ReasonUnresolvableInput, Index: i}
		}

		key := seenKey{txid: in.TxID, address: addr}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		totalExploited += reg.SumForAddress(in.TxID, addr)
	}

	if totalExploited == 0 {
		return Verdict{Verified: true, Reason: ReasonNothingExploited, Index: -1}
	}

	var totalRedeemed btcutil.Amount
	for i, out := range recipients {
		addr, ok := resolver.Resolve(out.Script)
		if !ok {
			return Verdict{Reason: ReasonUnresolvableRecipient, TotalExploited: totalExploited, Index: i}
		}
		if addr == redemptionAddr {
			totalRedeemed += out.Amount
		}
	}

	v := Verdict{
		Verified:       totalRedeemed >= totalExploited,
		Reason:         ReasonRedeemed,
		TotalExploited: totalExploited,
		TotalRedeemed:  totalRedeemed,
		Index:          -1,
	}
	if !v.Verified {
		v.Reason = ReasonInsufficientRedemption
	}
	return v
}

// distinctTxIDs returns the exploited txids in first-seen order.
func distinctTxIDs(exploited []RedeemInput) []chainhash.Hash {
	seen := make(map[chainhash.Hash]struct{}, len(exploited))
	out := make([]chainhash.Hash, 0, len(exploited))
	for _, in := range exploited {
		if _, ok := seen[in.TxID]; ok {
			continue
		}
		seen[in.TxID] = struct{}{}
		out = append(out, in.TxID)
	}
	return out
}
