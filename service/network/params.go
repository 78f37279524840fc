// Package network describes the static per-network parameters the guard
// needs: address encoding prefixes and the redemption address.
package network

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Network identifiers accepted by ByName.
const (
	Main    = "main"
	Test    = "test"
	Regtest = "regtest"
)

// Checkpoint pins a block hash at a height.
type Checkpoint struct {
	Height int32
	Hash   string
}

// Params holds one network profile.
type Params struct {
	Name         string
	Ticker       string
	MessageStart [4]byte
	DefaultPort  uint16

	PubKeyHashAddrID byte
	ScriptHashAddrID byte
	PrivateKeyID     byte
	HDPublicKeyID    [4]byte
	HDPrivateKeyID   [4]byte
	HDCoinType       uint32

	Maturity       int32
	LastPOWBlock   int32
	TargetSpacing  time.Duration
	TargetTimespan time.Duration
	MaxMoney       btcutil.Amount

	Genesis Checkpoint

	// RedemptionAddress is the only destination that legitimizes spending
	// flagged coins.
	RedemptionAddress string
}

var mainParams = Params{
	Name:         Main,
	Ticker:       "BLOCK",
	MessageStart: [4]byte{0xa5, 0xc2, 0xd1, 0xe6},
	DefaultPort:  12244,

	PubKeyHashAddrID: 25,
	ScriptHashAddrID: 85,
	PrivateKeyID:     153,
	HDPublicKeyID:    [4]byte{0x02, 0x2d, 0x25, 0x33},
	HDPrivateKeyID:   [4]byte{0x02, 0x21, 0x31, 0x2b},
	HDCoinType:       0x77,

	Maturity:       20,
	LastPOWBlock:   250,
	TargetSpacing:  30 * time.Second,
	TargetTimespan: time.Minute,
	MaxMoney:       21000000 * btcutil.SatoshiPerBitcoin,

	Genesis: Checkpoint{Height: 0, Hash: "0000035577e169097dcbed1e3dbb1c6c273e0a7968161dbf9133c6be6dc740d3"},

	RedemptionAddress: "B7nPQHKmX8DPkBFaBtaNQWc9SxD3uYpYv6",
}

var testParams = Params{
	Name:         Test,
	Ticker:       "tBLOCK",
	MessageStart: [4]byte{0x53, 0x64, 0x75, 0x86},
	DefaultPort:  22244,

	PubKeyHashAddrID: 140,
	ScriptHashAddrID: 29,
	PrivateKeyID:     240,
	HDPublicKeyID:    [4]byte{0x3a, 0x80, 0x61, 0xa0},
	HDPrivateKeyID:   [4]byte{0x3a, 0x80, 0x58, 0x37},
	HDCoinType:       0x01,

	Maturity:       60,
	LastPOWBlock:   200,
	TargetSpacing:  time.Minute,
	TargetTimespan: time.Minute,
	MaxMoney:       43199500 * btcutil.SatoshiPerBitcoin,

	Genesis: Checkpoint{Height: 0, Hash: "0000040df09b15ba874400ba995f342b82573864b9ee10c255dc4448ce334438"},

	RedemptionAddress: "yMFHXve7QmME257yjhJmppFgFLFiwUVvyo",
}

// regtest shares test address prefixes.
var regtestParams = func() Params {
	p := testParams
	p.Name = Regtest
	p.MessageStart = [4]byte{0x14, 0x54, 0x95, 0x64}
	p.DefaultPort = 32244
	p.TargetTimespan = 24 * time.Hour
	p.Genesis = Checkpoint{}
	return p
}()

// ByName returns a copy of the named profile.
func ByName(name string) (*Params, error) {
	var p Params
	switch name {
	case Main:
		p = mainParams
	case Test:
		p = testParams
	case Regtest:
		p = regtestParams
	default:
		return nil, fmt.Errorf("unknown network %q (want %s, %s or %s)", name, Main, Test, Regtest)
	}
	return &p, nil
}

// Names lists the known profiles.
func Names() []string {
	return []string{Main, Test, Regtest}
}

// WithRedemptionAddress returns a copy of p using addr as redemption address.
func (p *Params) WithRedemptionAddress(addr string) (*Params, error) {
	if err := p.ValidateAddress(addr); err != nil {
		return nil, fmt.Errorf("redemption address: %w", err)
	}
	cp := *p
	cp.RedemptionAddress = addr
	return &cp, nil
}

// ValidateAddress checks that addr is a base58check P2PKH or P2SH address
// for this network.
func (p *Params) ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address is empty")
	}
	payload, version, err := base58.CheckDecode(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if len(payload) != 20 {
		return fmt.Errorf("invalid address %q: payload is %d bytes, want 20", addr, len(payload))
	}
	if version != p.PubKeyHashAddrID && version != p.ScriptHashAddrID {
		return fmt.Errorf("address %q has version byte %d, not valid on %s", addr, version, p.Name)
	}
	return nil
}

// GenesisHash returns the genesis checkpoint hash, or nil when the profile
// does not pin one.
func (p *Params) GenesisHash() (*chainhash.Hash, error) {
	if p.Genesis.Hash == "" {
		return nil, nil
	}
	return chainhash.NewHashFromStr(p.Genesis.Hash)
}

// ChainConfig converts the profile into btcd chain parameters for address
// encoding and script classification. The result is not registered with
// chaincfg.Register, so it never collides with bitcoin networks.
func (p *Params) ChainConfig() *chaincfg.Params {
	return &chaincfg.Params{
		Name:               p.Name,
		Net:                wire.BitcoinNet(binary.LittleEndian.Uint32(p.MessageStart[:])),
		DefaultPort:        strconv.Itoa(int(p.DefaultPort)),
		PubKeyHashAddrID:   p.PubKeyHashAddrID,
		ScriptHashAddrID:   p.ScriptHashAddrID,
		PrivateKeyID:       p.PrivateKeyID,
		HDPublicKeyID:      p.HDPublicKeyID,
		HDPrivateKeyID:     p.HDPrivateKeyID,
		HDCoinType:         p.HDCoinType,
		CoinbaseMaturity:   uint16(p.Maturity),
		TargetTimespan:     p.TargetTimespan,
		TargetTimePerBlock: p.TargetSpacing,
	}
}

// FormatAmount renders amount in coin units with six fractional digits and
// the network ticker.
func (p *Params) FormatAmount(amount btcutil.Amount) string {
	return fmt.Sprintf("%.6f %s", amount.ToBTC(), p.Ticker)
}
