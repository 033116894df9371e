package catalogstore

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithReadWithWrite(t *testing.T) {
	store, err := NewEmpty()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	err = store.WithWrite(ctx, func(db *sql.DB) error {
		_, err := db.Exec(`INSERT INTO images (uuid, path, collection, gallery, width, height, file_size)
			VALUES (?, ?, ?, ?, ?, ?, ?)`, "img-1", "a.jpg", "c1", "g1", 100, 100, 1024)
		return err
	})
	require.NoError(t, err)

	var count int
	err = store.WithRead(ctx, func(db *sql.DB) error {
		return db.QueryRow(`SELECT COUNT(*) FROM images`).Scan(&count)
	})
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestWithWritePanicPoisons(t *testing.T) {
	store, err := NewEmpty()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	err = store.WithWrite(ctx, func(db *sql.DB) error {
		panic("boom")
	})
	require.Error(t, err)

	err = store.WithRead(ctx, func(db *sql.DB) error {
		return nil
	})
	require.Error(t, err)
}
