package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/exurl-archiver/internal/archiver"
)

func TestStateStoreRoundTrip(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStateStore(mock, "", "")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	st := archiver.State{Watermarks: archiver.Watermarks{EditData: 11, EditNote: 22}, UpdatedAt: now}

	mock.ExpectExec(`INSERT INTO external_url_archiver\.poller_state`).
		WithArgs("default", int64(11), int64(22), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT edit_data_next, edit_note_next, updated_at`).
		WithArgs("default").
		WillReturnRows(pgxmock.NewRows([]string{"edit_data_next", "edit_note_next", "updated_at"}).
			AddRow(int64(11), int64(22), now))

	require.NoError(t, store.Save(context.Background(), st))
	got, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, st, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStateStoreLoadNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStateStore(mock, "", "replica")
	require.NoError(t, err)

	mock.ExpectQuery(`FROM external_url_archiver\.poller_state`).
		WithArgs("replica").
		WillReturnError(pgx.ErrNoRows)

	_, err = store.Load(context.Background())
	require.ErrorIs(t, err, archiver.ErrStateNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStateStoreSaveError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStateStore(mock, "", "")
	require.NoError(t, err)

	boom := errors.New("read-only transaction")
	mock.ExpectExec(`INSERT INTO external_url_archiver\.poller_state`).
		WithArgs("default", int64(0), int64(0), pgxmock.AnyArg()).
		WillReturnError(boom)

	err = store.Save(context.Background(), archiver.State{})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}
