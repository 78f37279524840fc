// Package infraction holds the registry of coins known to originate from the
// exploit, keyed by the transaction that created them.
package infraction

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ErrAlreadyLoaded is returned by Load when the registry already holds a
// dataset. Call Clear first to load a different one.
var ErrAlreadyLoaded = errors.New("infraction registry already loaded")

// MalformedRecordError reports the dataset line that failed to parse.
// Line is 1-based.
type MalformedRecordError struct {
	Line int
	Text string
	Err  error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("dataset line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// Registry maps transaction ids to their infraction records, in dataset
// order. It is not safe for concurrent use; validator.Validator owns the lock.
type Registry struct {
	byTx   map[chainhash.Hash][]Record
	loaded bool
}

// NewRegistry returns an empty, unloaded registry.
func NewRegistry() *Registry {
	return &Registry{byTx: make(map[chainhash.Hash][]Record)}
}

// Load parses every line and installs the result. Either every line is
// accepted and the registry becomes loaded, or nothing changes.
func (r *Registry) Load(lines []string) error {
	if r.loaded {
		return ErrAlreadyLoaded
	}

	byTx := make(map[chainhash.Hash][]Record)
	for i, line := range lines {
		rec, err := ParseRecord(line)
		if err != nil {
			return &MalformedRecordError{Line: i + 1, Text: line, Err: err}
		}
		byTx[rec.TxID] = append(byTx[rec.TxID], rec)
	}

	r.byTx = byTx
	r.loaded = true
	return nil
}

// IsLoaded reports whether a dataset has been loaded since the last Clear.
func (r *Registry) IsLoaded() bool {
	return r.loaded
}

// Clear drops all records and re-arms Load.
func (r *Registry) Clear() {
	r.byTx = make(map[chainhash.Hash][]Record)
	r.loaded = false
}

// Has reports whether any record exists for txid.
func (r *Registry) Has(txid chainhash.Hash) bool {
	_, ok := r.byTx[txid]
	return ok
}

// Lookup returns a copy of the records for txid, nil when there are none.
func (r *Registry) Lookup(txid chainhash.Hash) []Record {
	return slices.Clone(r.byTx[txid])
}

// LookupByAddress scans every transaction for records paid to address.
// Results are ordered by txid string, then dataset order.
func (r *Registry) LookupByAddress(address string) []Record {
	txids := make([]chainhash.Hash, 0, len(r.byTx))
	for txid := range r.byTx {
		txids = append(txids, txid)
	}
	slices.SortFunc(txids, func(a, b chainhash.Hash) int {
		return strings.Compare(a.String(), b.String())
	})

	var out []Record
	for _, txid := range txids {
		for _, rec := range r.byTx[txid] {
			if rec.Address == address {
				out = append(out, rec)
			}
		}
	}
	return out
}

// SumForAddress totals the amounts recorded for address within txid.
func (r *Registry) SumForAddress(txid chainhash.Hash, address string) btcutil.Amount {
	var total btcutil.Amount
	for _, rec := range r.byTx[txid] {
		if rec.Address == address {
			total += rec.Amount
		}
	}
	return total
}

// Len returns the number of records.
func (r *Registry) Len() int {
	n := 0
	for _, recs := range r.byTx {
		n += len(recs)
	}
	return n
}

// Transactions returns the number of distinct flagged transactions.
func (r *Registry) Transactions() int {
	return len(r.byTx)
}
