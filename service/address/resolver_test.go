package address

import (
	"encoding/hex"
	"testing"

	"github.com/brojonat/coinguard/service/network"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// compressed secp256k1 generator point
const generatorPubKey = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"

func mainParams(t *testing.T) *network.Params {
	t.Helper()
	p, err := network.ByName(network.Main)
	require.NoError(t, err)
	return p
}

func TestResolve_MainnetRedemptionAddress(t *testing.T) {
	p := mainParams(t)
	cfg := p.ChainConfig()

	script, err := PayToAddress(p.RedemptionAddress, cfg)
	require.NoError(t, err)

	// OP_DUP OP_HASH160 <20> OP_EQUALVERIFY OP_CHECKSIG
	assert.Equal(t, "76a914248f2098599fc1c7750ea14fe9f8abb8b9704ae288ac", hex.EncodeToString(script))

	addr, ok := NewScriptResolver(cfg).Resolve(script)
	require.True(t, ok)
	assert.Equal(t, p.RedemptionAddress, addr)
}

func TestResolve_StandardScripts(t *testing.T) {
	cfg := mainParams(t).ChainConfig()
	r := NewScriptResolver(cfg)

	hash := make([]byte, 20)
	for i := range hash {
		hash[i] = byte(i + 1)
	}

	pkh, err := btcutil.NewAddressPubKeyHash(hash, cfg)
	require.NoError(t, err)
	sh, err := btcutil.NewAddressScriptHashFromHash(hash, cfg)
	require.NoError(t, err)

	pubKey, err := hex.DecodeString(generatorPubKey)
	require.NoError(t, err)
	p2pk, err := txscript.NewScriptBuilder().AddData(pubKey).AddOp(txscript.OP_CHECKSIG).Script()
	require.NoError(t, err)
	keyHashAddr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(pubKey), cfg)
	require.NoError(t, err)

	tests := []struct {
		name   string
		script func(t *testing.T) []byte
		want   string
	}{
		{
			name: "pay to pubkey hash",
			script: func(t *testing.T) []byte {
				s, err := txscript.PayToAddrScript(pkh)
				require.NoError(t, err)
				return s
			},
			want: pkh.EncodeAddress(),
		},
		{
			name: "pay to script hash",
			script: func(t *testing.T) []byte {
				s, err := txscript.PayToAddrScript(sh)
				require.NoError(t, err)
				return s
			},
			want: sh.EncodeAddress(),
		},
		{
			name:   "pay to pubkey resolves to key hash",
			script: func(t *testing.T) []byte { return p2pk },
			want:   keyHashAddr.EncodeAddress(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, ok := r.Resolve(tt.script(t))
			require.True(t, ok)
			assert.Equal(t, tt.want, addr)
		})
	}
}

func TestResolve_Unresolvable(t *testing.T) {
	cfg := mainParams(t).ChainConfig()
	r := NewScriptResolver(cfg)

	pubKey, err := hex.DecodeString(generatorPubKey)
	require.NoError(t, err)
	multisig, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_1).AddData(pubKey).AddOp(txscript.OP_1).
		AddOp(txscript.OP_CHECKMULTISIG).Script()
	require.NoError(t, err)
	nullData, err := txscript.NullDataScript([]byte("redeem"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		script []byte
	}{
		{name: "empty", script: nil},
		{name: "garbage", script: []byte{0xde, 0xad, 0xbe, 0xef}},
		{name: "null data", script: nullData},
		{name: "bare multisig", script: multisig},
		{name: "truncated pubkey hash", script: []byte{txscript.OP_DUP, txscript.OP_HASH160, 0x14, 0x01}},
		{name: "invalid pubkey", script: append(append([]byte{0x21, 0x05}, make([]byte, 32)...), txscript.OP_CHECKSIG)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, ok := r.Resolve(tt.script)
			assert.False(t, ok)
			assert.Empty(t, addr)
		})
	}
}

func TestPayToAddress_WrongNetwork(t *testing.T) {
	test, err := network.ByName(network.Test)
	require.NoError(t, err)

	_, err = PayToAddress(mainParams(t).RedemptionAddress, test.ChainConfig())
	assert.Error(t, err)
}
