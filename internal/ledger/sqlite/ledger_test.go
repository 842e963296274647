package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seedsindex/internal/ledger"
)

func createTestLedger(t *testing.T) (*Ledger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := Open(path, WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l, path
}

func key(b byte) ledger.Key {
	var k ledger.Key
	k[0] = b
	return k
}

func recv(t *testing.T, sub ledger.Subscription) ledger.Event {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case err := <-sub.Err():
		t.Fatalf("subscription ended: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}
	return ledger.Event{}
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	_, path := createTestLedger(t)
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	for i := 0; i < 3; i++ {
		l, err := Open(path)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, l.Close())
	}
}

func TestOpen_Pragmas(t *testing.T) {
	l, _ := createTestLedger(t)

	var mode string
	require.NoError(t, l.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var version int
	require.NoError(t, l.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestLedger_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	l, _ := createTestLedger(t)

	r1, err := l.SetValue(ctx, key(2), "two")
	require.NoError(t, err)
	assert.NotEmpty(t, r1.TxHash)
	r2, err := l.SetValue(ctx, key(1), "one")
	require.NoError(t, err)
	assert.Greater(t, r2.Block, r1.Block)

	keys, err := l.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ledger.Key{key(1), key(2)}, keys)

	v, ok, err := l.Value(ctx, key(1))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "one", v)

	_, err = l.SetValue(ctx, key(1), "uno")
	require.NoError(t, err)
	v, _, _ = l.Value(ctx, key(1))
	assert.Equal(t, "uno", v)

	_, err = l.DeleteValue(ctx, key(1))
	require.NoError(t, err)
	_, ok, err = l.Value(ctx, key(1))
	require.NoError(t, err)
	assert.False(t, ok)

	keys, err = l.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ledger.Key{key(2)}, keys)
}

func TestLedger_SetEmptyDeletes(t *testing.T) {
	ctx := context.Background()
	l, _ := createTestLedger(t)

	_, err := l.SetValue(ctx, key(1), "one")
	require.NoError(t, err)
	_, err = l.SetValue(ctx, key(1), "")
	require.NoError(t, err)

	_, ok, err := l.Value(ctx, key(1))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubscribe_LatestSkipsHistory(t *testing.T) {
	ctx := context.Background()
	l, _ := createTestLedger(t)

	_, err := l.SetValue(ctx, key(1), "before")
	require.NoError(t, err)

	sub, err := l.Subscribe(ctx, ledger.Latest)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	_, err = l.SetValue(ctx, key(1), "after")
	require.NoError(t, err)
	_, err = l.DeleteValue(ctx, key(1))
	require.NoError(t, err)

	assert.Equal(t, "after", recv(t, sub).Value)
	assert.True(t, recv(t, sub).Deleted())
}

func TestSubscribe_BoundedRange(t *testing.T) {
	ctx := context.Background()
	l, _ := createTestLedger(t)

	for i := byte(1); i <= 3; i++ {
		_, err := l.SetValue(ctx, key(i), "v")
		require.NoError(t, err)
	}

	from, to := uint64(2), uint64(3)
	sub, err := l.Subscribe(ctx, ledger.BlockRange{From: &from, To: &to})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	assert.Equal(t, key(2), recv(t, sub).Key)
	assert.Equal(t, key(3), recv(t, sub).Key)

	select {
	case err := <-sub.Err():
		assert.ErrorIs(t, err, ledger.ErrRangeComplete)
	case <-time.After(2 * time.Second):
		t.Fatal("bounded subscription did not complete")
	}
}

func TestSubscribe_SeesOtherConnection(t *testing.T) {
	ctx := context.Background()
	l, path := createTestLedger(t)

	sub, err := l.Subscribe(ctx, ledger.Latest)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	other, err := Open(path)
	require.NoError(t, err)
	defer other.Close()

	_, err = other.SetValue(ctx, key(7), "from-elsewhere")
	require.NoError(t, err)

	ev := recv(t, sub)
	assert.Equal(t, key(7), ev.Key)
	assert.Equal(t, "from-elsewhere", ev.Value)
}

func TestSubscribe_FailsAfterClose(t *testing.T) {
	ctx := context.Background()
	l, _ := createTestLedger(t)

	sub, err := l.Subscribe(ctx, ledger.Latest)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, l.Close())

	select {
	case err := <-sub.Err():
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not report the closed database")
	}
}
