package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"uk.co.dudmesh.socialgraph/internal/model"
)

const userColumns = `ID, CreatedAt, Username, Email, Password`

// Directory owns user records and the friendship relation. Each friendship
// is stored in both directions.
type Directory struct {
	db    sqlx.ExtContext
	clock Clock
}

func NewDirectory(db *DB, clock Clock) *Directory {
	return &Directory{db: db, clock: clock}
}

// With returns a view of the directory that runs inside tx.
func (d *Directory) With(tx *sqlx.Tx) *Directory {
	return &Directory{db: tx, clock: d.clock}
}

func (d *Directory) CreateUser(ctx context.Context, user *model.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = d.clock.Now().UTC()
	}

	_, err := sqlx.NamedExecContext(ctx, d.db, `insert into user
		(ID, CreatedAt, Username, Email, Password)
		values(:ID, :CreatedAt, :Username, :Email, :Password)`, user)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			switch {
			case strings.Contains(sqliteErr.Error(), "user.Username"):
				return model.ErrorUsernameTaken
			case strings.Contains(sqliteErr.Error(), "user.Email"):
				return model.ErrorEmailTaken
			}
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (d *Directory) Fetch(ctx context.Context, id model.UserID) (*model.User, error) {
	return d.fetchOne(ctx, `select `+userColumns+` from user where ID = ?`, id)
}

// FindByUsername is an exact, case-sensitive lookup.
func (d *Directory) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return d.fetchOne(ctx, `select `+userColumns+` from user where Username = ?`, username)
}

// FindExact matches email exactly and returns nil without error when nobody
// has it.
func (d *Directory) FindExact(ctx context.Context, email string) (*model.User, error) {
	user, err := d.fetchOne(ctx, `select `+userColumns+` from user where Email = ?`, email)
	if errors.Is(err, model.ErrorUserNotFound) {
		return nil, nil
	}
	return user, err
}

// FindPartial pages through users whose username contains substring,
// ignoring case.
func (d *Directory) FindPartial(ctx context.Context, substring string, page, pageSize int) (*model.UserPage, error) {
	return d.page(ctx, page, pageSize,
		`select count(*) from user where instr(lower(Username), lower(?)) > 0`,
		`select `+userColumns+` from user where instr(lower(Username), lower(?)) > 0
		order by Username, ID limit ? offset ?`,
		substring)
}

func (d *Directory) ListFriends(ctx context.Context, user model.UserID, page, pageSize int) (*model.UserPage, error) {
	return d.page(ctx, page, pageSize,
		`select count(*) from friendship where UserID = ?`,
		`select u.ID, u.CreatedAt, u.Username, u.Email, u.Password
		from friendship f join user u on u.ID = f.FriendID
		where f.UserID = ?
		order by u.Username, u.ID limit ? offset ?`,
		user)
}

// AddFriendship is symmetric and idempotent.
func (d *Directory) AddFriendship(ctx context.Context, a, b model.UserID) error {
	if a == b {
		return model.ErrorSelfFriendship
	}

	now := d.clock.Now().UTC()
	for _, pair := range [][2]model.UserID{{a, b}, {b, a}} {
		_, err := d.db.ExecContext(ctx, `insert or ignore into friendship (UserID, FriendID, CreatedAt) values (?, ?, ?)`,
			pair[0], pair[1], now)
		if err != nil {
			return fmt.Errorf("inserting friendship: %w", err)
		}
	}
	return nil
}

func (d *Directory) AreFriends(ctx context.Context, a, b model.UserID) (bool, error) {
	var count int
	err := sqlx.GetContext(ctx, d.db, &count, `select count(*) from friendship where UserID = ? and FriendID = ?`, a, b)
	if err != nil {
		return false, fmt.Errorf("checking friendship: %w", err)
	}
	return count > 0, nil
}

// DeleteUser removes the user's friendship memberships and then the user.
// Friend requests belong to the Ledger and must be removed first.
func (d *Directory) DeleteUser(ctx context.Context, id model.UserID) error {
	_, err := d.db.ExecContext(ctx, `delete from friendship where UserID = ? or FriendID = ?`, id, id)
	if err != nil {
		return fmt.Errorf("deleting friendships: %w", err)
	}

	res, err := d.db.ExecContext(ctx, `delete from user where ID = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if rows, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	} else if rows == 0 {
		return model.ErrorUserNotFound
	}
	return nil
}

func (d *Directory) fetchOne(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	user := &model.User{}
	err := sqlx.GetContext(ctx, d.db, user, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrorUserNotFound
		}
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	return user, nil
}

func (d *Directory) page(ctx context.Context, page, pageSize int, countQuery, selectQuery string, arg interface{}) (*model.UserPage, error) {
	if pageSize < 1 {
		pageSize = model.DefaultPageSize
	}

	var total int
	if err := sqlx.GetContext(ctx, d.db, &total, countQuery, arg); err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}

	offset, totalPages, err := model.PageBounds(page, pageSize, total)
	if err != nil {
		return nil, err
	}

	results := []model.User{}
	if total > 0 {
		if err := sqlx.SelectContext(ctx, d.db, &results, selectQuery, arg, pageSize, offset); err != nil {
			return nil, fmt.Errorf("listing users: %w", err)
		}
	}

	return &model.UserPage{
		Results:    results,
		PageNumber: page,
		TotalUsers: total,
		TotalPages: totalPages,
	}, nil
}
