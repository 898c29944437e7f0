package postgresdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/moodjournal/internal/models"
	"github.com/patric-chuzhbe/moodjournal/internal/user"
)

// host=localhost user=journal password=journal dbname=journal_test sslmode=disable
const testDSNEnv = "JOURNAL_TEST_DATABASE_DSN"

func newTestDB(t *testing.T) *PostgresDB {
	t.Helper()
	dsn := os.Getenv(testDSNEnv)
	if dsn == "" {
		t.Skipf("%s is not set", testDSNEnv)
	}

	db, err := New(context.Background(), dsn, 5*time.Second, WithDBPreReset(true))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	return db
}

func TestPostgresUsers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := &user.User{
		ID:           uuid.NewString(),
		FirstName:    "Ana",
		LastName:     "Lee",
		Email:        "a@x.com",
		PasswordHash: "hash-1",
		CreatedAt:    time.Now().UTC().Add(-time.Minute),
	}
	second := &user.User{
		ID:           uuid.NewString(),
		Email:        "a@x.com",
		PasswordHash: "hash-2",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, db.CreateUser(ctx, first))
	require.NoError(t, db.CreateUser(ctx, second))

	found, err := db.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
	assert.Equal(t, "Ana", found.FirstName)

	_, err = db.GetUserByEmail(ctx, "missing@x.com")
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestPostgresRecordsNewestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := uuid.NewString()
	base := time.Now().UTC().Truncate(time.Millisecond)

	for i, offset := range []time.Duration{0, 2 * time.Hour, time.Hour} {
		require.NoError(t, db.InsertRecord(ctx, &models.Record{
			ID:          uuid.NewString(),
			UserID:      owner,
			CreatedDate: base.Add(offset),
			Emotion:     "calm",
			Content:     []string{"t1", "t3", "t2"}[i],
		}))
	}
	require.NoError(t, db.InsertRecord(ctx, &models.Record{
		ID:          uuid.NewString(),
		UserID:      uuid.NewString(),
		CreatedDate: base,
	}))

	records, err := db.GetUserRecords(ctx, owner)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "t3", records[0].Content)
	assert.Equal(t, "t2", records[1].Content)
	assert.Equal(t, "t1", records[2].Content)
}

// countingDriver hands out connections that reject every statement
// and counts how many of them were opened and closed.
type countingDriver struct {
	opened atomic.Int32
	closed atomic.Int32
}

func (d *countingDriver) Open(string) (driver.Conn, error) {
	d.opened.Add(1)
	return &countingConn{driver: d}, nil
}

type countingConn struct {
	driver *countingDriver
}

func (c *countingConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("statements are not supported")
}

func (c *countingConn) Close() error {
	c.driver.closed.Add(1)
	return nil
}

func (c *countingConn) Begin() (driver.Tx, error) {
	return nil, errors.New("transactions are not supported")
}

const countingDriverName = "journal-counting"

var rejectingDriver = &countingDriver{}

func init() {
	sql.Register(countingDriverName, rejectingDriver)
}

func TestNewReleasesPoolWhenSetupFails(t *testing.T) {
	tests := []struct {
		name    string
		options []InitOption
	}{
		{
			name:    "migrations fail",
			options: []InitOption{WithDriverName(countingDriverName)},
		},
		{
			name:    "reset fails",
			options: []InitOption{WithDriverName(countingDriverName), WithDBPreReset(true)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			openedBefore := rejectingDriver.opened.Load()

			db, err := New(context.Background(), "unused", time.Second, tt.options...)
			require.Error(t, err)
			assert.Nil(t, db)

			assert.Greater(t, rejectingDriver.opened.Load(), openedBefore)
			assert.Equal(t, rejectingDriver.opened.Load(), rejectingDriver.closed.Load())
		})
	}
}
