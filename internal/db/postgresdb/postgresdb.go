// Package postgresdb provides a PostgreSQL-based implementation of the credential
// and record stores. Connections come from the database/sql pool and are held only
// for the duration of a single statement.
package postgresdb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/patric-chuzhbe/moodjournal/internal/models"
	"github.com/patric-chuzhbe/moodjournal/internal/user"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresDB is a PostgreSQL-backed implementation of the journal storage.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset bool
	DriverName string
}

type InitOption func(*initOptions)

// WithDBPreReset drops the journal tables before migrating. Used by tests.
func WithDBPreReset(dbPreReset bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = dbPreReset
	}
}

// WithDriverName replaces the registered database/sql driver, pgx by default.
func WithDriverName(driverName string) InitOption {
	return func(options *initOptions) {
		options.DriverName = driverName
	}
}

// New opens the pool, verifies connectivity and applies the embedded migrations.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
		DriverName: "pgx",
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open(options.DriverName, databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if err := result.Ping(ctx); err != nil {
		_ = database.Close()
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `result.Ping()` calling: %w",
				err,
			)
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			_ = database.Close()
			return nil,
				fmt.Errorf(
					"in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w",
					err,
				)
		}
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		_ = database.Close()
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w",
				err,
			)
	}

	if err := goose.UpContext(ctx, result.database, "migrations"); err != nil {
		_ = database.Close()
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.Up()` calling: %w",
				err,
			)
	}

	return result, nil
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DROP TABLE IF EXISTS records;
			DROP TABLE IF EXISTS users;
			DROP TABLE IF EXISTS goose_db_version;
		`,
	)

	return err
}

// CreateUser inserts a new user. Email uniqueness is not enforced.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			INSERT INTO users (id, first_name, last_name, email, password_hash, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)
		`,
		usr.ID,
		usr.FirstName,
		usr.LastName,
		usr.Email,
		usr.PasswordHash,
		usr.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// GetUserByEmail returns the earliest registered user with exactly this email,
// or models.ErrUserNotFound.
func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	usr := &user.User{}
	err := db.database.QueryRowContext(
		ctx,
		`
			SELECT id, first_name, last_name, email, password_hash, created_at
				FROM users
				WHERE email = $1
				ORDER BY created_at
				LIMIT 1
		`,
		email,
	).Scan(&usr.ID, &usr.FirstName, &usr.LastName, &usr.Email, &usr.PasswordHash, &usr.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return usr, nil
}

func (db *PostgresDB) InsertRecord(ctx context.Context, record *models.Record) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			INSERT INTO records (id, user_id, created_date, emotion, content, response)
				VALUES ($1, $2, $3, $4, $5, $6)
		`,
		record.ID,
		record.UserID,
		record.CreatedDate,
		record.Emotion,
		record.Content,
		record.Response,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// GetUserRecords returns every record owned by userID, newest first.
func (db *PostgresDB) GetUserRecords(ctx context.Context, userID string) (models.Records, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`
			SELECT id, user_id, created_date, emotion, content, response
				FROM records
				WHERE user_id = $1
				ORDER BY created_date DESC
		`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	result := models.Records{}
	for rows.Next() {
		var record models.Record
		err = rows.Scan(
			&record.ID,
			&record.UserID,
			&record.CreatedDate,
			&record.Emotion,
			&record.Content,
			&record.Response,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (db *PostgresDB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctx)
}

func (db *PostgresDB) Close() error {
	return db.database.Close()
}
