package infraction

import (
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTxA = "f1c3e4b0b7a7c0d2a1f9e8d7c6b5a4938271605f4e3d2c1b0a99887766554433"
	testTxB = "0a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20212223242526272829"
)

func line(fields ...string) string {
	return strings.Join(fields, "\t")
}

func TestParseRecord_Valid(t *testing.T) {
	in := line(testTxA, "B6oykx4SSeVPoqQ6mMU1u2oZv37radUmya", "100000000000", "1000.000000")

	rec, err := ParseRecord(in)
	require.NoError(t, err)

	assert.Equal(t, testTxA, rec.TxID.String())
	assert.Equal(t, "B6oykx4SSeVPoqQ6mMU1u2oZv37radUmya", rec.Address)
	assert.Equal(t, btcutil.Amount(100000000000), rec.Amount)
	assert.Equal(t, 1000.0, rec.DisplayAmount)
	assert.Equal(t, in, rec.String())
}

func TestParseRecord_Rejects(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "empty line", line: ""},
		{name: "too few fields", line: line(testTxA, "addr", "100")},
		{name: "too many fields", line: line(testTxA, "addr", "100", "0.000001", "extra")},
		{name: "space separated", line: testTxA + " addr 100 0.000001"},
		{name: "empty address", line: line(testTxA, "", "100", "0.000001")},
		{name: "address with carriage return", line: line(testTxA, "addr\r", "100", "0.000001")},
		{name: "address too long", line: line(testTxA, strings.Repeat("a", MaxAddressLength+1), "100", "0.000001")},
		{name: "zero amount", line: line(testTxA, "addr", "0", "0.000001")},
		{name: "negative amount", line: line(testTxA, "addr", "-5", "0.000001")},
		{name: "zero display amount", line: line(testTxA, "addr", "100", "0.000000")},
		{name: "negative display amount", line: line(testTxA, "addr", "100", "-0.000001")},
		{name: "negative amount and display amount", line: line(testTxA, "addr", "-100", "-0.000100")},
		{name: "non numeric amount", line: line(testTxA, "addr", "lots", "0.000001")},
		{name: "amount with leading zero", line: line(testTxA, "addr", "0100", "0.000001")},
		{name: "amount with plus sign", line: line(testTxA, "addr", "+100", "0.000001")},
		{name: "display amount not fixed six", line: line(testTxA, "addr", "100000000000", "1000.0")},
		{name: "display amount exponent", line: line(testTxA, "addr", "100", "1e-06")},
		{name: "display amount NaN", line: line(testTxA, "addr", "100", "NaN")},
		{name: "uppercase txid", line: line(strings.ToUpper(testTxA), "addr", "100", "0.000001")},
		{name: "short txid", line: line("abc", "addr", "100", "0.000001")},
		{name: "non hex txid", line: line("tx1", "addr", "100", "0.000001")},
		{name: "trailing carriage return", line: line(testTxA, "addr", "100", "0.000001") + "\r"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecord(tt.line)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestParseRecord_AcceptsNonBase58Address(t *testing.T) {
	in := line(testTxA, "0OIl_addr", "100", "0.000001")
	rec, err := ParseRecord(in)
	require.NoError(t, err)
	assert.Equal(t, "0OIl_addr", rec.Address)
}

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress("B7nPQHKmX8DPkBFaBtaNQWc9SxD3uYpYv6"))
	assert.NoError(t, ValidateAddress("0OIl_addr"))
	assert.NoError(t, ValidateAddress(strings.Repeat("a", MaxAddressLength)))
	assert.Error(t, ValidateAddress(""))
	assert.Error(t, ValidateAddress(strings.Repeat("a", MaxAddressLength+1)))
	assert.Error(t, ValidateAddress("addr\tx"))
	assert.Error(t, ValidateAddress("addr\n"))
}

func TestFormatDisplayAmount(t *testing.T) {
	assert.Equal(t, "1000.000000", FormatDisplayAmount(1000))
	assert.Equal(t, "0.000001", FormatDisplayAmount(0.000001))
	assert.Equal(t, "12.345679", FormatDisplayAmount(12.3456789))
}
