// Package address maps output scripts to canonical address strings.
package address

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// Resolver maps a destination script to its canonical address. ok is false
// when the script has no single address form.
type Resolver interface {
	Resolve(script []byte) (addr string, ok bool)
}

// ScriptResolver resolves standard scripts with btcd's txscript using one
// network's address prefixes.
type ScriptResolver struct {
	params *chaincfg.Params
}

// NewScriptResolver returns a resolver encoding addresses for params.
func NewScriptResolver(params *chaincfg.Params) *ScriptResolver {
	return &ScriptResolver{params: params}
}

// Resolve accepts pay-to-pubkey-hash, pay-to-script-hash and pay-to-pubkey
// scripts. Pay-to-pubkey resolves to the pubkey hash address of its key.
func (r *ScriptResolver) Resolve(script []byte) (string, bool) {
	if len(script) == 0 {
		return "", false
	}

	class, addrs, _, err := txscript.ExtractPkScriptAddrs(script, r.params)
	if err != nil || len(addrs) != 1 {
		return "", false
	}

	switch class {
	case txscript.PubKeyHashTy, txscript.ScriptHashTy:
		return addrs[0].EncodeAddress(), true
	case txscript.PubKeyTy:
		pk, ok := addrs[0].(*btcutil.AddressPubKey)
		if !ok {
			return "", false
		}
		return pk.AddressPubKeyHash().EncodeAddress(), true
	default:
		return "", false
	}
}

// PayToAddress decodes addr for params and returns its output script.
func PayToAddress(addr string, params *chaincfg.Params) ([]byte, error) {
	decoded, err := btcutil.DecodeAddress(addr, params)
	if err != nil {
		return nil, fmt.Errorf("failed to decode address %q: %w", addr, err)
	}
	if !decoded.IsForNet(params) {
		return nil, fmt.Errorf("address %q is not for network %s", addr, params.Name)
	}
	script, err := txscript.PayToAddrScript(decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to build script for %q: %w", addr, err)
	}
	return script, nil
}
