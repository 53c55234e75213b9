package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"uk.co.dudmesh.socialgraph/internal/model"
)

const requestQuery = `select r.ID, r.FromUser, r.ToUser, f.Username as FromUsername, t.Username as ToUsername, r.Status, r.CreatedAt
	from friend_request r
	join user f on f.ID = r.FromUser
	join user t on t.ID = r.ToUser`

// Ledger owns friend request records and enforces their state machine.
// Creation is throttled by a Window shared by all senders.
type Ledger struct {
	db     sqlx.ExtContext
	clock  Clock
	window *Window
	lastID *atomic.Int64
}

// NewLedger allocates ids after the highest one on disk and seeds the window
// with requests created within it.
func NewLedger(ctx context.Context, db *DB, clock Clock, window *Window) (*Ledger, error) {
	var maxID sql.NullInt64
	if err := db.GetContext(ctx, &maxID, `select max(ID) from friend_request`); err != nil {
		return nil, fmt.Errorf("reading last friend request id: %w", err)
	}

	recent := []time.Time{}
	since := clock.Now().UTC().Add(-window.Size())
	if err := db.SelectContext(ctx, &recent, `select CreatedAt from friend_request where CreatedAt >= ?`, since); err != nil {
		return nil, fmt.Errorf("reading recent friend requests: %w", err)
	}
	window.Seed(recent)

	lastID := &atomic.Int64{}
	lastID.Store(maxID.Int64)

	return &Ledger{
		db:     db,
		clock:  clock,
		window: window,
		lastID: lastID,
	}, nil
}

// With returns a view of the ledger that runs inside tx. Ids and the window
// are shared with l.
func (l *Ledger) With(tx *sqlx.Tx) *Ledger {
	return &Ledger{
		db:     tx,
		clock:  l.clock,
		window: l.window,
		lastID: l.lastID,
	}
}

func (l *Ledger) Create(ctx context.Context, from, to model.UserID) (*model.FriendRequest, error) {
	if from == to {
		return nil, model.ErrorSelfRequest
	}

	now := l.clock.Now().UTC()
	if !l.window.Reserve(now) {
		return nil, model.ErrorRateLimited
	}

	request, err := l.create(ctx, from, to, now)
	if err != nil {
		l.window.Release(now)
		return nil, err
	}
	return request, nil
}

func (l *Ledger) create(ctx context.Context, from, to model.UserID, now time.Time) (*model.FriendRequest, error) {
	var status model.RequestStatus
	err := sqlx.GetContext(ctx, l.db, &status, `select Status from friend_request
		where FromUser = ? and ToUser = ? and Status in (?, ?)
		order by ID limit 1`,
		from, to, model.RequestStatusPending, model.RequestStatusAccepted)
	switch {
	case err == nil && status == model.RequestStatusPending:
		return nil, model.ErrorDuplicatePending
	case err == nil:
		return nil, model.ErrorAlreadyAccepted
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("checking for duplicate request: %w", err)
	}

	id := model.RequestID(l.lastID.Add(1))
	_, err = l.db.ExecContext(ctx, `insert into friend_request
		(ID, FromUser, ToUser, Status, CreatedAt)
		values(?, ?, ?, ?, ?)`,
		id, from, to, model.RequestStatusPending, now)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return nil, model.ErrorUserNotFound
		}
		return nil, fmt.Errorf("inserting friend request: %w", err)
	}

	return l.Get(ctx, id)
}

func (l *Ledger) Get(ctx context.Context, id model.RequestID) (*model.FriendRequest, error) {
	request := &model.FriendRequest{}
	err := sqlx.GetContext(ctx, l.db, request, requestQuery+` where r.ID = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrorRequestNotFound
		}
		return nil, fmt.Errorf("fetching friend request: %w", err)
	}
	return request, nil
}

// Transition moves a pending request to accepted or rejected on behalf of
// its recipient.
func (l *Ledger) Transition(ctx context.Context, id model.RequestID, to model.RequestStatus, actor model.UserID) (*model.FriendRequest, error) {
	if to != model.RequestStatusAccepted && to != model.RequestStatusRejected {
		return nil, model.ErrorInvalidTransition
	}

	request, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.ToUser != actor {
		return nil, model.ErrorForbidden
	}
	if request.Status != model.RequestStatusPending {
		return nil, model.ErrorInvalidState
	}

	res, err := l.db.ExecContext(ctx, `update friend_request set Status = ? where ID = ? and Status = ?`,
		to, id, model.RequestStatusPending)
	if err != nil {
		return nil, fmt.Errorf("updating friend request: %w", err)
	}
	if rows, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	} else if rows != 1 {
		return nil, model.ErrorInvalidState
	}

	request.Status = to
	return request, nil
}

// Cancel deletes a request on behalf of its sender, whatever its status.
// Friendships made by an accepted request are left alone.
func (l *Ledger) Cancel(ctx context.Context, id model.RequestID, actor model.UserID) error {
	request, err := l.Get(ctx, id)
	if err != nil {
		return err
	}
	if request.FromUser != actor {
		return model.ErrorForbidden
	}

	_, err = l.db.ExecContext(ctx, `delete from friend_request where ID = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting friend request: %w", err)
	}
	return nil
}

// List returns pending requests only, ordered by id. Filters other than
// all, sent and received match nothing.
func (l *Ledger) List(ctx context.Context, filter model.RequestFilter, user model.UserID) ([]model.FriendRequest, error) {
	requests := []model.FriendRequest{}

	query := requestQuery + ` where r.Status = ?`
	args := []interface{}{model.RequestStatusPending}
	switch filter {
	case model.RequestFilterSent:
		query += ` and r.FromUser = ?`
		args = append(args, user)
	case model.RequestFilterReceived:
		query += ` and r.ToUser = ?`
		args = append(args, user)
	case model.RequestFilterAll:
		query += ` and (r.FromUser = ? or r.ToUser = ?)`
		args = append(args, user, user)
	default:
		return requests, nil
	}

	if err := sqlx.SelectContext(ctx, l.db, &requests, query+` order by r.ID`, args...); err != nil {
		return nil, fmt.Errorf("listing friend requests: %w", err)
	}
	return requests, nil
}

// DeleteForUser removes every request the user sent or received.
func (l *Ledger) DeleteForUser(ctx context.Context, user model.UserID) error {
	_, err := l.db.ExecContext(ctx, `delete from friend_request where FromUser = ? or ToUser = ?`, user, user)
	if err != nil {
		return fmt.Errorf("deleting friend requests: %w", err)
	}
	return nil
}
