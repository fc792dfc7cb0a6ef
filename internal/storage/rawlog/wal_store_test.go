package rawlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/txtally/internal/domain"
)

func TestWALStoreAppendAndReplay(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	records := []domain.RawRecord{
		{"tx_hash": "0x1", "amount": "600"},
		{"tx_hash": "0x2", "amount": "50"},
	}

	require.NoError(t, store.Append("deposit/history", records))
	require.NoError(t, store.Append("trades", []domain.RawRecord{{"trade_id": "7"}}))

	batches, err := store.BatchesAfter(0)
	require.NoError(t, err)
	require.Len(t, batches, 2)

	assert.Equal(t, "deposit/history", batches[0].Batch.Endpoint)
	assert.Len(t, batches[0].Batch.Records, 2)
	assert.Equal(t, "0x1", batches[0].Batch.Records[0].Text("tx_hash"))
	assert.False(t, batches[0].Batch.FetchedAt.IsZero())

	assert.Equal(t, "trades", batches[1].Batch.Endpoint)

	// replay from a later index skips the first batch
	later, err := store.BatchesAfter(batches[0].Index)
	require.NoError(t, err)
	require.Len(t, later, 1)
	assert.Equal(t, "trades", later[0].Batch.Endpoint)
}

func TestWALStoreValidation(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	assert.Error(t, store.Append("", nil))

	var uninitialized *WALStore
	assert.Error(t, uninitialized.Append("trades", nil))
	_, err = uninitialized.BatchesAfter(0)
	assert.Error(t, err)
}
