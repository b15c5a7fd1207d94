package database

import (
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestTransactionCommitAndRollback(t *testing.T) {
	d := openTestDB(t)
	_, err := d.Exec("CREATE TABLE kv (k TEXT PRIMARY KEY, v INTEGER)")
	require.NoError(t, err)

	require.NoError(t, Transaction(d, func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO kv (k, v) VALUES ('a', 1)")
		return err
	}))

	err = Transaction(d, func(tx *sql.Tx) error {
		if _, err := tx.Exec("UPDATE kv SET v = 2 WHERE k = 'a'"); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	var v int
	require.NoError(t, d.QueryRow("SELECT v FROM kv WHERE k = 'a'").Scan(&v))
	assert.Equal(t, 1, v)
}

// Concurrent read-modify-write cycles on the same row must serialize and
// both commit; neither side may fail its lock upgrade or drop an update.
func TestTransactionSerializesConcurrentWriters(t *testing.T) {
	d := openTestDB(t)
	_, err := d.Exec("CREATE TABLE kv (k TEXT PRIMARY KEY, v INTEGER)")
	require.NoError(t, err)
	_, err = d.Exec("INSERT INTO kv (k, v) VALUES ('a', 0)")
	require.NoError(t, err)

	const writers = 4
	errs := make([]error, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = Transaction(d, func(tx *sql.Tx) error {
				var v int
				if err := tx.QueryRow("SELECT v FROM kv WHERE k = 'a'").Scan(&v); err != nil {
					return err
				}
				time.Sleep(20 * time.Millisecond)
				_, err := tx.Exec("UPDATE kv SET v = ? WHERE k = 'a'", v+1)
				return err
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "writer %d", i)
	}

	var v int
	require.NoError(t, d.QueryRow("SELECT v FROM kv WHERE k = 'a'").Scan(&v))
	assert.Equal(t, writers, v)
}
