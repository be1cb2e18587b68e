package main

import (
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/apibillme/cache"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

type Store struct {
	db        *sql.DB
	log       *zap.Logger
	userCache cache.Cache
}

const reqTable string = `
  CREATE TABLE IF NOT EXISTS reqdata (
      httpdata BLOB NOT NULL,
      hash TEXT NOT NULL,
      expiry INT NOT NULL
  )
`

const reqIndex string = `
  CREATE INDEX IF NOT EXISTS reqdata_hash ON reqdata (hash)
`

const userTable string = `
  CREATE TABLE IF NOT EXISTS users (
      user TEXT NOT NULL UNIQUE,
      hash TEXT NOT NULL,
      level INT NOT NULL
  )
`

const dbFile string = "data/cache.db"

func NewStore(filename string, log *zap.Logger) (*Store, error) {
	if filename == "" {
		filename = dbFile
	}
	logger := log.Named("store")

	db, err := sql.Open("sqlite3", "file:"+filename+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	for _, stmt := range []string{reqTable, reqIndex, userTable} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &Store{
		db:        db,
		log:       logger,
		userCache: cache.New(256, cache.WithTTL(1*time.Hour)),
	}, nil
}

func (store *Store) Close() error {
	return store.db.Close()
}

func (store *Store) DeleteBefore(expiry int64) error {
	_, err := store.db.Exec("DELETE FROM reqdata WHERE expiry < ?", expiry)
	if err != nil {
		return fmt.Errorf("purge expired responses: %w", err)
	}
	return nil
}

// GetResponse returns the stored response for hash unless it expired before now.
func (store *Store) GetResponse(hash string, now int64) ([]byte, bool) {
	row := store.db.QueryRow(
		"SELECT httpdata FROM reqdata WHERE hash = ? AND expiry >= ? ORDER BY expiry DESC LIMIT 1",
		hash, now,
	)
	var data []byte
	err := row.Scan(&data)
	if err == nil {
		return data, true
	}
	if !errors.Is(err, sql.ErrNoRows) {
		store.log.Warn("Failed to read cached response", zap.String("hash", hash), zap.Error(err))
	}
	return nil, false
}

// StoreResponse replaces any response already stored under hash.
func (store *Store) StoreResponse(hash string, res []byte, expiry int64) error {
	tx, err := store.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM reqdata WHERE hash = ?", hash); err != nil {
		return fmt.Errorf("replace response: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO reqdata VALUES (?,?,?)", res, hash, expiry); err != nil {
		return fmt.Errorf("store response: %w", err)
	}
	return tx.Commit()
}

// AddUser creates or updates a user with an argon2id hash of pass.
func (store *Store) AddUser(user string, pass string, level int) error {
	if user == "" || pass == "" {
		return errors.New("user and password are required")
	}
	hash, err := argon2id.CreateHash(pass, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = store.db.Exec(
		"INSERT INTO users (user, hash, level) VALUES (?,?,?) ON CONFLICT(user) DO UPDATE SET hash = excluded.hash, level = excluded.level",
		user, hash, level,
	)
	if err != nil {
		return fmt.Errorf("add user %s: %w", user, err)
	}
	return nil
}

func (store *Store) TestUser(user string, pass string) bool {
	userPass, ok := store.userCache.Get(user)
	if ok && 1 == subtle.ConstantTimeCompare([]byte(userPass.(string)), []byte(pass)) {
		return true
	}
	row := store.db.QueryRow("SELECT hash FROM users WHERE user = ?", user)
	var hash string
	err := row.Scan(&hash)
	if err == nil {
		match, err := argon2id.ComparePasswordAndHash(pass, hash)
		if err != nil {
			store.log.Warn("Error comparing password hashes", zap.Error(err))
			return false
		}
		if match {
			store.userCache.Set(user, pass)
			return true
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		store.log.Error("Failed to look up user", zap.String("user", user), zap.Error(err))
	}
	return false
}
