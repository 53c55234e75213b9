package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nrednav/cuid2"
	"uk.co.dudmesh.socialgraph/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
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

func testDSN() string {
	return "file:store-" + cuid2.Generate() + "?mode=memory&cache=shared&_foreign_keys=on"
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(testDSN())
	if err != nil {
		t.Fatalf("opening test database: %+v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createUsers(t *testing.T, directory *Directory, usernames ...string) []*model.User {
	t.Helper()
	users := make([]*model.User, 0, len(usernames))
	for _, username := range usernames {
		user := &model.User{
			ID:       model.NewUserID(),
			Username: username,
			Email:    fmt.Sprintf("%s@example.com", username),
			Password: "x",
		}
		if err := directory.CreateUser(context.Background(), user); err != nil {
			t.Fatalf("creating user %s: %+v", username, err)
		}
		users = append(users, user)
	}
	return users
}
