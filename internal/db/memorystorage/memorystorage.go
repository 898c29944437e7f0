package memorystorage

import (
	"github.com/patric-chuzhbe/moodjournal/internal/db/jsondb"
)

// MemoryStorage is the process-local store used when no database is configured.
type MemoryStorage struct {
	*jsondb.JSONDB
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: jsondb.NewInMemory(),
	}, nil
}
