package infraction

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHash(t *testing.T, s string) chainhash.Hash {
	t.Helper()
	h, err := chainhash.NewHashFromStr(s)
	require.NoError(t, err)
	return *h
}

func testDataset() []string {
	return []string{
		line(testTxA, "addrA", "1000", "0.000010"),
		line(testTxA, "addrB", "250", "0.000003"),
		line(testTxA, "addrA", "500", "0.000005"),
		line(testTxB, "addrA", "4200", "0.000042"),
	}
}

func TestRegistry_Load(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.IsLoaded())

	require.NoError(t, r.Load(testDataset()))
	assert.True(t, r.IsLoaded())
	assert.Equal(t, 4, r.Len())
	assert.Equal(t, 2, r.Transactions())

	recs := r.Lookup(mustHash(t, testTxA))
	require.Len(t, recs, 3)
	// dataset order is preserved per transaction
	assert.Equal(t, "addrA", recs[0].Address)
	assert.Equal(t, "addrB", recs[1].Address)
	assert.Equal(t, btcutil.Amount(500), recs[2].Amount)
}

func TestRegistry_LoadIsIdempotent(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Load(testDataset()))

	err := r.Load([]string{line(testTxB, "addrZ", "1", "0.000001")})
	assert.ErrorIs(t, err, ErrAlreadyLoaded)
	assert.Equal(t, 4, r.Len())
	assert.Empty(t, r.LookupByAddress("addrZ"))
}

func TestRegistry_MalformedLineLeavesRegistryUnloaded(t *testing.T) {
	r := NewRegistry()
	lines := append(testDataset(), line(testTxB, "addrC", "0", "0.000001"))

	err := r.Load(lines)
	require.Error(t, err)

	var malformed *MalformedRecordError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 5, malformed.Line)
	assert.ErrorIs(t, err, ErrMalformedRecord)

	assert.False(t, r.IsLoaded())
	assert.Zero(t, r.Len())
	assert.False(t, r.Has(mustHash(t, testTxA)))

	// a failed load does not consume the single load
	require.NoError(t, r.Load(testDataset()))
	assert.True(t, r.IsLoaded())
}

func TestRegistry_Clear(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Load(testDataset()))

	r.Clear()
	assert.False(t, r.IsLoaded())
	assert.Empty(t, r.Lookup(mustHash(t, testTxA)))
	assert.Empty(t, r.LookupByAddress("addrA"))
	assert.Zero(t, r.Len())

	require.NoError(t, r.Load([]string{line(testTxB, "addrZ", "1", "0.000001")}))
	assert.Len(t, r.LookupByAddress("addrZ"), 1)
}

func TestRegistry_LookupAbsent(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Load(testDataset()))

	unknown := mustHash(t, "1111111111111111111111111111111111111111111111111111111111111111")
	assert.Nil(t, r.Lookup(unknown))
	assert.False(t, r.Has(unknown))
	assert.Empty(t, r.LookupByAddress("nobody"))
}

func TestRegistry_LookupReturnsCopy(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Load(testDataset()))

	txid := mustHash(t, testTxA)
	recs := r.Lookup(txid)
	recs[0].Address = "mutated"

	assert.Equal(t, "addrA", r.Lookup(txid)[0].Address)
}

func TestRegistry_LookupByAddress(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Load(testDataset()))

	recs := r.LookupByAddress("addrA")
	require.Len(t, recs, 3)
	// ordered by txid string: testTxB sorts before testTxA
	assert.Equal(t, testTxB, recs[0].TxID.String())
	assert.Equal(t, testTxA, recs[1].TxID.String())
	assert.Equal(t, testTxA, recs[2].TxID.String())
}

func TestRegistry_SumForAddress(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Load(testDataset()))

	txid := mustHash(t, testTxA)
	assert.Equal(t, btcutil.Amount(1500), r.SumForAddress(txid, "addrA"))
	assert.Equal(t, btcutil.Amount(250), r.SumForAddress(txid, "addrB"))
	assert.Zero(t, r.SumForAddress(txid, "addrC"))
}
