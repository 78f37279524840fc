package infraction

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ErrMalformedRecord is wrapped by every record parsing failure.
var ErrMalformedRecord = errors.New("malformed infraction record")

const fieldSeparator = "\t"

// MaxAddressLength bounds the address field of a record.
const MaxAddressLength = 256

// ValidateAddress reports whether addr can appear in a record. Addresses are
// matched as text, so any non-empty value without control characters is
// accepted.
func ValidateAddress(addr string) error {
	if addr == "" {
		return errors.New("address is empty")
	}
	if len(addr) > MaxAddressLength {
		return fmt.Errorf("address exceeds %d bytes", MaxAddressLength)
	}
	if strings.ContainsFunc(addr, unicode.IsControl) {
		return errors.New("address contains control characters")
	}
	return nil
}

// Record asserts that Amount of the value paid to Address in transaction TxID
// originates from the exploit.
type Record struct {
	TxID          chainhash.Hash
	Address       string
	Amount        btcutil.Amount // smallest monetary unit
	DisplayAmount float64        // coin units, as published in the dataset
}

// String returns the canonical dataset line for the record:
// txid<TAB>address<TAB>amount<TAB>displayAmount.
func (r Record) String() string {
	return strings.Join([]string{
		r.TxID.String(),
		r.Address,
		strconv.FormatInt(int64(r.Amount), 10),
		FormatDisplayAmount(r.DisplayAmount),
	}, fieldSeparator)
}

// FormatDisplayAmount renders a coin amount in fixed notation with six
// fractional digits, the only representation accepted in datasets.
func FormatDisplayAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 6, 64)
}

// ParseRecord parses one dataset line. The line must re-serialize to exactly
// the same text, so lossy or non-canonical numbers and ids are rejected.
func ParseRecord(line string) (Record, error) {
	fields := strings.Split(line, fieldSeparator)
	if len(fields) != 4 {
		return Record{}, fmt.Errorf("%w: expected 4 tab-separated fields, got %d", ErrMalformedRecord, len(fields))
	}
	for i, f := range fields {
		if f == "" {
			return Record{}, fmt.Errorf("%w: field %d is empty", ErrMalformedRecord, i+1)
		}
	}

	txid, err := chainhash.NewHashFromStr(fields[0])
	if err != nil {
		return Record{}, fmt.Errorf("%w: invalid txid %q: %v", ErrMalformedRecord, fields[0], err)
	}

	if err := ValidateAddress(fields[1]); err != nil {
		return Record{}, fmt.Errorf("%w: invalid address %q: %v", ErrMalformedRecord, fields[1], err)
	}

	amount, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: invalid amount %q: %v", ErrMalformedRecord, fields[2], err)
	}
	if amount <= 0 {
		return Record{}, fmt.Errorf("%w: amount must be positive, got %d", ErrMalformedRecord, amount)
	}

	display, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: invalid display amount %q: %v", ErrMalformedRecord, fields[3], err)
	}
	if display <= 0 || math.IsInf(display, 0) || math.IsNaN(display) {
		return Record{}, fmt.Errorf("%w: display amount must be positive, got %q", ErrMalformedRecord, fields[3])
	}

	rec := Record{
		TxID:          *txid,
		Address:       fields[1],
		Amount:        btcutil.Amount(amount),
		DisplayAmount: display,
	}

	if got := rec.String(); got != line {
		return Record{}, fmt.Errorf("%w: line does not round-trip: got %q", ErrMalformedRecord, got)
	}

	return rec, nil
}
