package graph

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/gommon/log"
	"uk.co.dudmesh.socialgraph/internal/metrics"
	"uk.co.dudmesh.socialgraph/internal/model"
	"uk.co.dudmesh.socialgraph/internal/store"
)

type Config interface {
	PageSize() int
}

// service runs the friend request state machine over the Directory and the
// Ledger. Every mutation of a pair happens under that pair's lock and inside
// one transaction.
type service struct {
	config    Config
	db        *store.DB
	directory *store.Directory
	ledger    *store.Ledger
	pairs     *pairLocks
}

func New(config Config, db *store.DB, directory *store.Directory, ledger *store.Ledger) *service {
	return &service{
		config:    config,
		db:        db,
		directory: directory,
		ledger:    ledger,
		pairs:     newPairLocks(),
	}
}

func (s *service) SendRequest(ctx context.Context, caller model.Caller, toUsername string) (*model.FriendRequest, error) {
	request, err := s.sendRequest(ctx, caller, toUsername)
	metrics.Observe(metrics.OperationSend, err)
	if err != nil {
		return nil, err
	}
	log.Infof("friend request %d sent from %s to %s", request.ID, request.FromUsername, request.ToUsername)
	return request, nil
}

func (s *service) sendRequest(ctx context.Context, caller model.Caller, toUsername string) (*model.FriendRequest, error) {
	if toUsername == "" {
		return nil, model.ErrorMissingRecipient
	}
	if toUsername == caller.Username {
		return nil, model.ErrorSelfRequest
	}

	to, err := s.directory.FindByUsername(ctx, toUsername)
	if err != nil {
		return nil, err
	}

	unlock := s.pairs.lock(caller.ID, to.ID)
	defer unlock()

	// the recipient may have been deleted while we waited for the lock
	var request *model.FriendRequest
	err = s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.directory.With(tx).Fetch(ctx, to.ID); err != nil {
			return err
		}
		request, err = s.ledger.With(tx).Create(ctx, caller.ID, to.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// AcceptRequest flips the request to accepted and makes both users friends
// in the same transaction.
func (s *service) AcceptRequest(ctx context.Context, caller model.Caller, id model.RequestID) (*model.FriendRequest, error) {
	request, err := s.resolve(ctx, caller, id, model.RequestStatusAccepted)
	metrics.Observe(metrics.OperationAccept, err)
	if err != nil {
		return nil, err
	}
	log.Infof("friend request %d accepted, %s and %s are now friends", request.ID, request.FromUsername, request.ToUsername)
	return request, nil
}

func (s *service) RejectRequest(ctx context.Context, caller model.Caller, id model.RequestID) (*model.FriendRequest, error) {
	request, err := s.resolve(ctx, caller, id, model.RequestStatusRejected)
	metrics.Observe(metrics.OperationReject, err)
	if err != nil {
		return nil, err
	}
	log.Infof("friend request %d rejected", request.ID)
	return request, nil
}

func (s *service) resolve(ctx context.Context, caller model.Caller, id model.RequestID, status model.RequestStatus) (*model.FriendRequest, error) {
	current, err := s.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.pairs.lock(current.FromUser, current.ToUser)
	defer unlock()

	var request *model.FriendRequest
	err = s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		request, err = s.ledger.With(tx).Transition(ctx, id, status, caller.ID)
		if err != nil {
			return err
		}
		if status != model.RequestStatusAccepted {
			return nil
		}
		if err := s.directory.With(tx).AddFriendship(ctx, request.FromUser, request.ToUser); err != nil {
			return fmt.Errorf("adding friendship: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

func (s *service) CancelRequest(ctx context.Context, caller model.Caller, id model.RequestID) error {
	err := s.cancelRequest(ctx, caller, id)
	metrics.Observe(metrics.OperationCancel, err)
	if err != nil {
		return err
	}
	log.Infof("friend request %d cancelled by %s", id, caller.Username)
	return nil
}

func (s *service) cancelRequest(ctx context.Context, caller model.Caller, id model.RequestID) error {
	current, err := s.ledger.Get(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.pairs.lock(current.FromUser, current.ToUser)
	defer unlock()

	return s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		return s.ledger.With(tx).Cancel(ctx, id, caller.ID)
	})
}

// GetRequest is visible to either party only.
func (s *service) GetRequest(ctx context.Context, caller model.Caller, id model.RequestID) (*model.FriendRequest, error) {
	request, err := s.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !request.Involves(caller.ID) {
		return nil, model.ErrorForbidden
	}
	return request, nil
}

func (s *service) ListRequests(ctx context.Context, caller model.Caller, filter model.RequestFilter) ([]model.FriendRequest, error) {
	return s.ledger.List(ctx, filter, caller.ID)
}

// SearchUsers tries an exact email match first and only falls back to a
// paginated username search when nobody has that email.
func (s *service) SearchUsers(ctx context.Context, query string, page int) (*model.SearchResult, error) {
	if query == "" {
		return nil, model.ErrorMissingQuery
	}

	exact, err := s.directory.FindExact(ctx, query)
	if err != nil {
		return nil, err
	}
	if exact != nil {
		return &model.SearchResult{Exact: exact}, nil
	}

	users, err := s.directory.FindPartial(ctx, query, page, s.config.PageSize())
	if err != nil {
		return nil, err
	}
	return &model.SearchResult{Page: users}, nil
}

func (s *service) ListFriends(ctx context.Context, caller model.Caller, page int) (*model.UserPage, error) {
	return s.directory.ListFriends(ctx, caller.ID, page, s.config.PageSize())
}

// DeleteAccount removes the caller's requests, friendships and user record
// together.
func (s *service) DeleteAccount(ctx context.Context, caller model.Caller) error {
	err := s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.ledger.With(tx).DeleteForUser(ctx, caller.ID); err != nil {
			return err
		}
		return s.directory.With(tx).DeleteUser(ctx, caller.ID)
	})
	if err != nil {
		return err
	}
	log.Infof("account %s deleted", caller.Username)
	return nil
}
