package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loveinaction/internal/database"
	"loveinaction/internal/models"
)

func setupMockDB(t *testing.T, dialect database.Dialect) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		sqlDB.Close()
	})
	return &database.DB{DB: sqlDB, Dialect: dialect}, mock
}

func TestSessionRepository_CreateAndGet(t *testing.T) {
	db, mock := setupMockDB(t, database.NewSQLiteDialect())
	repo := NewSessionRepository(db)

	expires := time.Now().Add(time.Hour)
	session := &models.Session{ID: "s1", CMSToken: "jwt", UserID: 4, Email: "a@b.com", ExpiresAt: expires}

	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs("s1", "jwt", int64(4), "a@b.com", expires, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.CreateSession(session))
	assert.False(t, session.CreatedAt.IsZero())

	mock.ExpectQuery(`SELECT id, cms_token, user_id, email, expires_at, created_at\s+FROM sessions`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "cms_token", "user_id", "email", "expires_at", "created_at"}).
			AddRow("s1", "jwt", 4, "a@b.com", expires, session.CreatedAt))

	got, err := repo.GetSession("s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "jwt", got.CMSToken)
	assert.Equal(t, int64(4), got.UserID)
}

func TestSessionRepository_GetMissing(t *testing.T) {
	db, mock := setupMockDB(t, database.NewSQLiteDialect())
	repo := NewSessionRepository(db)

	mock.ExpectQuery(`FROM sessions`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "cms_token", "user_id", "email", "expires_at", "created_at"}))

	got, err := repo.GetSession("missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	db, mock := setupMockDB(t, database.NewSQLiteDialect())
	repo := NewSessionRepository(db)

	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at < \?`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpiredSessions()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestDonationRepository_RecordPostgresUsesReturning(t *testing.T) {
	db, mock := setupMockDB(t, database.NewPostgresDialect())
	repo := NewDonationRepository(db)

	mock.ExpectQuery(`INSERT INTO donation_events .* VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8\)\s+RETURNING id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(17))

	event := &models.DonationEvent{TransactionID: "tx_1", Email: "d@x.org", Amount: 25, Currency: "USD", Frequency: "one_time"}
	require.NoError(t, repo.Record(event))
	assert.Equal(t, int64(17), event.ID)
}

func TestDonationRepository_RecordDuplicateLoadsExisting(t *testing.T) {
	columns := []string{"id", "transaction_id", "email", "amount", "currency", "frequency", "forwarded", "forward_error", "received_at"}
	tests := []struct {
		name    string
		dialect database.Dialect
		insert  func(mock sqlmock.Sqlmock)
	}{
		{
			name:    "postgres",
			dialect: database.NewPostgresDialect(),
			insert: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO donation_events`).WillReturnError(&pq.Error{Code: "23505"})
			},
		},
		{
			name:    "mysql",
			dialect: database.NewMySQLDialect(),
			insert: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO donation_events`).WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t, tt.dialect)
			repo := NewDonationRepository(db)

			tt.insert(mock)
			mock.ExpectQuery(`FROM donation_events`).
				WithArgs("tx_7").
				WillReturnRows(sqlmock.NewRows(columns).AddRow(4, "tx_7", "d@x.org", 10.0, "USD", "one_time", true, "", time.Now()))

			event := &models.DonationEvent{TransactionID: "tx_7", Email: "d@x.org", Amount: 10}
			require.NoError(t, repo.Record(event))
			assert.Equal(t, int64(4), event.ID)
			assert.True(t, event.Forwarded)
		})
	}
}

func TestDonationRepository_RecordOtherErrorsFail(t *testing.T) {
	db, mock := setupMockDB(t, database.NewPostgresDialect())
	repo := NewDonationRepository(db)

	mock.ExpectQuery(`INSERT INTO donation_events`).WillReturnError(&pq.Error{Code: "53300"})

	err := repo.Record(&models.DonationEvent{TransactionID: "tx_8"})
	assert.ErrorContains(t, err, "failed to record donation event")
}

func TestDonationRepository_GetByTransactionID(t *testing.T) {
	db, mock := setupMockDB(t, database.NewSQLiteDialect())
	repo := NewDonationRepository(db)

	received := time.Now()
	mock.ExpectQuery(`FROM donation_events\s+WHERE transaction_id = \?`).
		WithArgs("tx_1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "transaction_id", "email", "amount", "currency", "frequency", "forwarded", "forward_error", "received_at"}).
			AddRow(1, "tx_1", "d@x.org", 25.0, "USD", "monthly", true, "", received))

	event, err := repo.GetByTransactionID("tx_1")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.True(t, event.Forwarded)
	assert.Equal(t, "monthly", event.Frequency)
}

func TestDonationRepository_MarkForwarded(t *testing.T) {
	db, mock := setupMockDB(t, database.NewSQLiteDialect())
	repo := NewDonationRepository(db)

	mock.ExpectExec(`UPDATE donation_events SET forwarded = \?, forward_error = \? WHERE id = \?`).
		WithArgs(false, "status 502", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkForwarded(9, false, "status 502"))
}

func TestRepairRepository_RecordAndList(t *testing.T) {
	db, mock := setupMockDB(t, database.NewSQLiteDialect())
	repo := NewRepairRepository(db)

	start := time.Now().Add(-time.Second)
	end := time.Now()
	run := &models.RepairRun{Mode: models.RepairModeRepair, TotalChecked: 5, OrphanedFound: 2,
		RepairsSuccessful: 1, RepairsFailed: 1, StartedAt: start, FinishedAt: end}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO repair_runs`).
		WithArgs("repair", 5, 2, 1, 1, start, end).
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()
	require.NoError(t, repo.Record(run))
	assert.Equal(t, int64(3), run.ID)

	mock.ExpectQuery(`FROM repair_runs\s+ORDER BY started_at DESC\s+LIMIT \?`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "mode", "total_checked", "orphaned_found", "repairs_successful", "repairs_failed", "started_at", "finished_at"}).
			AddRow(3, "repair", 5, 2, 1, 1, start, end))

	runs, err := repo.ListRecent(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "repair", runs[0].Mode)
}

func TestRepairRepository_RecordPrunesHistory(t *testing.T) {
	db, mock := setupMockDB(t, database.NewPostgresDialect())
	repo := NewRepairRepository(db)

	now := time.Now()
	run := &models.RepairRun{Mode: models.RepairModeDetect, StartedAt: now, FinishedAt: now}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO repair_runs .* RETURNING id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(keepRepairRuns + 5))
	mock.ExpectExec(`DELETE FROM repair_runs WHERE id <= \$1`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	require.NoError(t, repo.Record(run))
	assert.Equal(t, int64(keepRepairRuns+5), run.ID)
}

func TestRepairRepository_RecordRollsBackOnPruneFailure(t *testing.T) {
	db, mock := setupMockDB(t, database.NewSQLiteDialect())
	repo := NewRepairRepository(db)

	now := time.Now()
	run := &models.RepairRun{Mode: models.RepairModeDetect, StartedAt: now, FinishedAt: now}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO repair_runs`).
		WillReturnResult(sqlmock.NewResult(keepRepairRuns+1, 1))
	mock.ExpectExec(`DELETE FROM repair_runs`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.Record(run)
	require.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, run.ID)
}
