// Package mockstorage provides a testify-based mock of the journal storage.
// It is used to simulate store behavior, including failures, in handler and service tests.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/moodjournal/internal/models"
	"github.com/patric-chuzhbe/moodjournal/internal/user"
)

// StorageMock implements every storage method used by auth, service and router.
type StorageMock struct {
	mock.Mock
}

func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User) error {
	args := m.Called(ctx, usr)
	return args.Error(0)
}

func (m *StorageMock) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

func (m *StorageMock) InsertRecord(ctx context.Context, record *models.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *StorageMock) GetUserRecords(ctx context.Context, userID string) (models.Records, error) {
	args := m.Called(ctx, userID)
	records, _ := args.Get(0).(models.Records)
	return records, args.Error(1)
}

func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
