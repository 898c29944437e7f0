// Package jsondb keeps users and journal records in memory and mirrors them
// to a JSON file, so a single-process deployment survives restarts without a database.
package jsondb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/moodjournal/internal/models"
	"github.com/patric-chuzhbe/moodjournal/internal/user"
)

type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	Cache    CacheStruct
}

// CacheStruct is the on-disk document. Users and Records keep insertion order.
type CacheStruct struct {
	Users   []user.User
	Records []models.Record
}

func initDBFile(fileName string) error {
	dbFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(dbFile, `{
	"Users": [],
	"Records": []
}`)
	if err != nil {
		return err
	}
	return dbFile.Close()
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	return os.WriteFile(fileName, jsonData, 0644)
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(cache)
}

// New loads fileName, creating an empty database file when it does not exist.
func New(fileName string) (*JSONDB, error) {
	db := &JSONDB{fileName: fileName}

	err := parseJSONFile(db.fileName, &db.Cache)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if err := initDBFile(fileName); err != nil {
			return nil, err
		}
		if err := parseJSONFile(db.fileName, &db.Cache); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// NewInMemory returns a JSONDB that is never written to disk.
func NewInMemory() *JSONDB {
	return &JSONDB{
		Cache: CacheStruct{
			Users:   []user.User{},
			Records: []models.Record{},
		},
	}
}

// flush must be called with mu held.
func (db *JSONDB) flush() error {
	if db.fileName == "" {
		return nil
	}
	return writeToJSONFile(db.fileName, db.Cache)
}

func (db *JSONDB) CreateUser(ctx context.Context, usr *user.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.Cache.Users = append(db.Cache.Users, *usr)
	if err := db.flush(); err != nil {
		db.Cache.Users = db.Cache.Users[:len(db.Cache.Users)-1]
		return err
	}

	return nil
}

// GetUserByEmail returns the earliest registered user with exactly this email.
func (db *JSONDB) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	found := funk.Find(db.Cache.Users, func(u user.User) bool {
		return u.Email == email
	})
	if found == nil {
		return nil, models.ErrUserNotFound
	}
	usr := found.(user.User)

	return &usr, nil
}

func (db *JSONDB) InsertRecord(ctx context.Context, record *models.Record) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.Cache.Records = append(db.Cache.Records, *record)
	if err := db.flush(); err != nil {
		db.Cache.Records = db.Cache.Records[:len(db.Cache.Records)-1]
		return err
	}

	return nil
}

// GetUserRecords returns the user's records, newest first.
// Records created at the same instant keep their insertion order.
func (db *JSONDB) GetUserRecords(ctx context.Context, userID string) (models.Records, error) {
	db.mu.RLock()
	owned := funk.Filter(db.Cache.Records, func(r models.Record) bool {
		return r.UserID == userID
	}).([]models.Record)
	db.mu.RUnlock()

	result := make(models.Records, len(owned))
	copy(result, owned)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedDate.After(result[j].CreatedDate)
	})

	return result, nil
}

func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

func (db *JSONDB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.flush()
}
