// Package validator is the guard consulted by transaction validation. It
// owns the infraction registry and serializes every access to it.
package validator

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/brojonat/coinguard/service/address"
	"github.com/brojonat/coinguard/service/infraction"
	"github.com/brojonat/coinguard/service/metrics"
	"github.com/brojonat/coinguard/service/network"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Notifier receives shortfall diagnostics. It is called after the registry
// lock is released and its outcome is never consulted.
type Notifier interface {
	NotifyShortfall(s Shortfall)
}

// Options configures a Validator.
type Options struct {
	Network  *network.Params
	Resolver address.Resolver // defaults to a ScriptResolver for Network
	Notifier Notifier         // optional
	Metrics  *metrics.Metrics // optional
	Logger   *slog.Logger     // optional

	// RequireLoaded makes IsCoinValid report every coin invalid until a
	// dataset is loaded.
	RequireLoaded bool
}

// Validator answers coin validity and redemption questions against one
// infraction registry. Create one per process and share the pointer.
type Validator struct {
	mu       sync.Mutex
	registry *infraction.Registry

	params        *network.Params
	resolver      address.Resolver
	notifier      Notifier
	metrics       *metrics.Metrics
	logger        *slog.Logger
	requireLoaded bool
}

// New returns a Validator with an empty, unloaded registry.
func New(opts Options) (*Validator, error) {
	if opts.Network == nil {
		return nil, fmt.Errorf("network params are required")
	}
	if err := opts.Network.ValidateAddress(opts.Network.RedemptionAddress); err != nil {
		return nil, fmt.Errorf("invalid redemption address for %s: %w", opts.Network.Name, err)
	}

	resolver := opts.Resolver
	if resolver == nil {
		resolver = address.NewScriptResolver(opts.Network.ChainConfig())
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	return &Validator{
		registry:      infraction.NewRegistry(),
		params:        opts.Network,
		resolver:      resolver,
		notifier:      opts.Notifier,
		metrics:       opts.Metrics,
		logger:        logger,
		requireLoaded: opts.RequireLoaded,
	}, nil
}

// Load installs the dataset. It returns false without changing anything if
// a dataset is already loaded, and an error if any line is malformed, in
// which case the registry stays empty and unloaded.
func (v *Validator) Load(lines []string) (bool, error) {
	start := time.Now()

	v.mu.Lock()
	err := v.registry.Load(lines)
	records, txs := v.registry.Len(), v.registry.Transactions()
	if err == nil {
		v.recordSize(records, txs)
	}
	v.mu.Unlock()

	duration := time.Since(start).Seconds()

	switch {
	case errors.Is(err, infraction.ErrAlreadyLoaded):
		v.recordLoad("already_loaded", duration)
		v.logger.Warn("infraction registry already loaded, ignoring load request")
		return false, nil
	case err != nil:
		v.recordLoad("malformed", duration)
		v.logger.Error("failed to load infraction registry", "error", err)
		return false, fmt.Errorf("failed to load infraction registry: %w", err)
	}

	v.recordLoad("success", duration)
	v.logger.Info("infraction registry loaded",
		"network", v.params.Name,
		"records", records,
		"transactions", txs,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return true, nil
}

// MustLoad is like Load but panics on a malformed dataset. The dataset is
// curated at build time, so a bad line is a packaging defect and running
// with a partially trusted registry is not an option.
func (v *Validator) MustLoad(lines []string) bool {
	ok, err := v.Load(lines)
	if err != nil {
		panic(err)
	}
	return ok
}

// Reload parses lines into a fresh registry and swaps it in. The previous
// dataset keeps serving until the new one is fully parsed; on error nothing
// changes.
func (v *Validator) Reload(lines []string) error {
	start := time.Now()

	fresh := infraction.NewRegistry()
	if err := fresh.Load(lines); err != nil {
		v.recordLoad("malformed", time.Since(start).Seconds())
		return fmt.Errorf("failed to reload infraction registry: %w", err)
	}

	// fresh is shared once swapped in; read its size first.
	records, txs := fresh.Len(), fresh.Transactions()

	v.mu.Lock()
	v.registry = fresh
	v.recordSize(records, txs)
	v.mu.Unlock()

	v.recordLoad("reloaded", time.Since(start).Seconds())
	v.logger.Info("infraction registry reloaded",
		"network", v.params.Name,
		"records", records,
		"transactions", txs,
	)
	return nil
}

// Clear empties the registry and re-arms Load.
func (v *Validator) Clear() {
	v.mu.Lock()
	v.registry.Clear()
	v.recordSize(0, 0)
	v.mu.Unlock()

	v.logger.Info("infraction registry cleared", "network", v.params.Name)
}

// IsLoaded reports whether a dataset is loaded.
func (v *Validator) IsLoaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.registry.IsLoaded()
}

// IsCoinValid reports whether coins created by txid may be spent freely.
// With an unloaded registry every coin is valid unless RequireLoaded is set.
func (v *Validator) IsCoinValid(txid chainhash.Hash) bool {
	v.mu.Lock()
	loaded := v.registry.IsLoaded()
	flagged := v.registry.Has(txid)
	v.mu.Unlock()

	result := "valid"
	valid := !flagged
	switch {
	case flagged:
		result = "flagged"
	case !loaded && v.requireLoaded:
		result = "unloaded"
		valid = false
	}
	if v.metrics != nil {
		v.metrics.RecordCoinCheck(v.params.Name, result)
	}
	return valid
}

// GetInfractions returns the records for txid, empty when it is not flagged.
func (v *Validator) GetInfractions(txid chainhash.Hash) []infraction.Record {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.registry.Lookup(txid)
}

// GetInfractionsByAddress returns every record paid to address.
func (v *Validator) GetInfractionsByAddress(address string) []infraction.Record {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.registry.LookupByAddress(address)
}

// RedeemAddressVerified reports whether recipients pay at least the flagged
// amount behind exploited to the redemption address.
func (v *Validator) RedeemAddressVerified(exploited []RedeemInput, recipients []RedeemOutput) bool {
	return v.VerifyRedemption(exploited, recipients).Verified
}

// VerifyRedemption is RedeemAddressVerified with the full verdict.
func (v *Validator) VerifyRedemption(exploited []RedeemInput, recipients []RedeemOutput) Verdict {
	v.mu.Lock()
	verdict := reconcile(v.registry, v.resolver, v.params.RedemptionAddress, exploited, recipients)
	v.mu.Unlock()

	if v.metrics != nil {
		v.metrics.RecordRedemptionCheck(v.params.Name, verdict.Verified, string(verdict.Reason))
	}

	if verdict.Verified {
		return verdict
	}

	if verdict.Reason == ReasonInsufficientRedemption && verdict.TotalRedeemed > 0 {
		v.reportShortfall(Shortfall{
			TxIDs:    distinctTxIDs(exploited),
			Required: verdict.TotalExploited,
			Redeemed: verdict.TotalRedeemed,
		})
		return verdict
	}

	v.logger.Debug("redemption rejected",
		"reason", verdict.Reason,
		"index", verdict.Index,
		"exploited_inputs", len(exploited),
		"recipients", len(recipients),
	)
	return verdict
}

// Status returns a snapshot of the registry and configuration.
func (v *Validator) Status() Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Status{
		Network:           v.params.Name,
		RedemptionAddress: v.params.RedemptionAddress,
		Loaded:            v.registry.IsLoaded(),
		RequireLoaded:     v.requireLoaded,
		Records:           v.registry.Len(),
		Transactions:      v.registry.Transactions(),
	}
}

// Network returns the network profile the validator was built with.
func (v *Validator) Network() *network.Params {
	return v.params
}

func (v *Validator) reportShortfall(s Shortfall) {
	txids := make([]string, len(s.TxIDs))
	for i, h := range s.TxIDs {
		txids[i] = h.String()
	}

	v.logger.Warn("failed to redeem: minimum amount required for this transaction (not including network fee)",
		"required", v.params.FormatAmount(s.Required),
		"redeemed", v.params.FormatAmount(s.Redeemed),
		"txids", txids,
	)
	if v.metrics != nil {
		v.metrics.RecordRedemptionShortfall(v.params.Name, s.Missing().ToBTC())
	}
	if v.notifier != nil {
		v.notifier.NotifyShortfall(s)
	}
}

func (v *Validator) recordLoad(status string, duration float64) {
	if v.metrics != nil {
		v.metrics.RecordRegistryLoad(v.params.Name, status, duration)
	}
}

// recordSize publishes the registry gauges. Callers hold v.mu so the gauges
// follow the same order as the registry changes.
func (v *Validator) recordSize(records, txs int) {
	if v.metrics != nil {
		v.metrics.RecordRegistrySize(v.params.Name, records, txs)
	}
}
