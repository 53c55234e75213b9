package graph

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nrednav/cuid2"
	"uk.co.dudmesh.socialgraph/internal/model"
	"uk.co.dudmesh.socialgraph/internal/store"
)

type testConfig struct {
	pageSize int
}

func (c testConfig) PageSize() int {
	return c.pageSize
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	service   *service
	db        *store.DB
	directory *store.Directory
	ledger    *store.Ledger
	clock     *fakeClock
}

func newFixture(t *testing.T, maxRequests int) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := store.Open("file:graph-" + cuid2.Generate() + "?mode=memory&cache=shared&_foreign_keys=on")
	if err != nil {
		t.Fatalf("opening database: %+v", err)
	}
	t.Cleanup(func() { db.Close() })

	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	directory := store.NewDirectory(db, clock)
	ledger, err := store.NewLedger(ctx, db, clock, store.NewWindow(time.Minute, maxRequests))
	if err != nil {
		t.Fatalf("creating ledger: %+v", err)
	}

	return &fixture{
		service:   New(testConfig{pageSize: 10}, db, directory, ledger),
		db:        db,
		directory: directory,
		ledger:    ledger,
		clock:     clock,
	}
}

func (f *fixture) signup(t *testing.T, username string) model.Caller {
	t.Helper()
	return f.signupWithEmail(t, username, fmt.Sprintf("%s@example.com", username))
}

func (f *fixture) signupWithEmail(t *testing.T, username, email string) model.Caller {
	t.Helper()
	user := &model.User{ID: model.NewUserID(), Username: username, Email: email, Password: "x"}
	if err := f.directory.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("creating user %s: %+v", username, err)
	}
	return model.Caller{ID: user.ID, Username: user.Username}
}

func (f *fixture) areFriends(t *testing.T, a, b model.Caller) bool {
	t.Helper()
	ok, err := f.directory.AreFriends(context.Background(), a.ID, b.ID)
	if err != nil {
		t.Fatalf("checking friendship: %+v", err)
	}
	return ok
}
