package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/gommon/log"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the shared handle behind the Directory and the Ledger. It runs with a
// single open connection so every transaction is the only writer.
type DB struct {
	*sqlx.DB
}

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

var SystemClock Clock = ClockFunc(func() time.Time {
	return time.Now().UTC()
})

func Open(dsn string) (*DB, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return New(db)
}

// New adopts an existing handle and makes sure the schema exists.
func New(db *sqlx.DB) (*DB, error) {
	db.SetMaxOpenConns(1)

	datastore := &DB{db}
	if err := datastore.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return datastore, nil
}

// InTx runs fn in a transaction, committing when it returns nil. fn must only
// use tx; the pool has one connection and tx is holding it.
func (d *DB) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Errorf("rolling back transaction: %+v", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (d *DB) createTables() error {
	_, err := d.Exec(`create table if not exists user(
		ID        text not null primary key,
		CreatedAt DATETIME not null,
		Username  text not null unique,
		Email     text not null unique,
		Password  text not null
	)`)
	if err != nil {
		return fmt.Errorf("creating user table: %w", err)
	}

	_, err = d.Exec(`create table if not exists friendship(
		UserID    text not null references user(ID),
		FriendID  text not null references user(ID),
		CreatedAt DATETIME not null,
		primary key (UserID, FriendID),
		check (UserID <> FriendID)
	)`)
	if err != nil {
		return fmt.Errorf("creating friendship table: %w", err)
	}

	_, err = d.Exec(`create table if not exists friend_request(
		ID        integer not null primary key,
		FromUser  text not null references user(ID),
		ToUser    text not null references user(ID),
		Status    text not null,
		CreatedAt DATETIME not null,
		check (FromUser <> ToUser)
	)`)
	if err != nil {
		return fmt.Errorf("creating friend_request table: %w", err)
	}

	for _, index := range []string{
		`create index if not exists friend_request_pair on friend_request(FromUser, ToUser, Status)`,
		`create index if not exists friend_request_to on friend_request(ToUser, Status)`,
		`create index if not exists friend_request_created on friend_request(CreatedAt)`,
	} {
		if _, err := d.Exec(index); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}

	return nil
}
