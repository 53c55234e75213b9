package graph

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"uk.co.dudmesh.socialgraph/internal/model"
)

func TestFriendRequestScenario(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	f := newFixture(t, 3)
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")

	var id model.RequestID

	t.Run("Send", func(t *testing.T) {
		request, err := f.service.SendRequest(ctx, alice, "bob")
		require.Nil(t, err)
		assert.Equal(model.RequestID(1), request.ID)
		assert.Equal(model.RequestStatusPending, request.Status)
		assert.Equal("alice", request.FromUsername)
		assert.Equal("bob", request.ToUsername)
		id = request.ID
	})

	t.Run("Listed for both parties", func(t *testing.T) {
		sent, err := f.service.ListRequests(ctx, alice, model.RequestFilterSent)
		assert.Nil(err)
		assert.Len(sent, 1)

		received, err := f.service.ListRequests(ctx, bob, model.RequestFilterReceived)
		assert.Nil(err)
		assert.Len(received, 1)

		none, err := f.service.ListRequests(ctx, alice, model.RequestFilterReceived)
		assert.Nil(err)
		assert.Empty(none)
	})

	t.Run("Sender cannot accept", func(t *testing.T) {
		_, err := f.service.AcceptRequest(ctx, alice, id)
		assert.ErrorIs(err, model.ErrorForbidden)
		assert.False(f.areFriends(t, alice, bob))
	})

	t.Run("Accept", func(t *testing.T) {
		request, err := f.service.AcceptRequest(ctx, bob, id)
		require.Nil(t, err)
		assert.Equal(model.RequestStatusAccepted, request.Status)
		assert.True(f.areFriends(t, alice, bob))
		assert.True(f.areFriends(t, bob, alice))

		friends, err := f.service.ListFriends(ctx, alice, 1)
		assert.Nil(err)
		assert.Equal(1, friends.TotalUsers)
		assert.Equal("bob", friends.Results[0].Username)
	})

	t.Run("Accepted requests leave the pending lists", func(t *testing.T) {
		all, err := f.service.ListRequests(ctx, bob, model.RequestFilterAll)
		assert.Nil(err)
		assert.Empty(all)
	})

	t.Run("Resend after accept conflicts", func(t *testing.T) {
		_, err := f.service.SendRequest(ctx, alice, "bob")
		assert.Equal(model.KindConflict, model.KindOf(err))
	})

	t.Run("Accept twice", func(t *testing.T) {
		_, err := f.service.AcceptRequest(ctx, bob, id)
		assert.ErrorIs(err, model.ErrorInvalidState)
	})

	t.Run("Cancelling an accepted request keeps the friendship", func(t *testing.T) {
		assert.ErrorIs(f.service.CancelRequest(ctx, bob, id), model.ErrorForbidden)
		assert.Nil(f.service.CancelRequest(ctx, alice, id))
		_, err := f.service.GetRequest(ctx, alice, id)
		assert.ErrorIs(err, model.ErrorRequestNotFound)
		assert.True(f.areFriends(t, alice, bob))
	})
}

func TestSendRequestErrors(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	f := newFixture(t, 3)
	alice := f.signup(t, "alice")
	f.signup(t, "bob")
	f.signup(t, "carol")
	f.signup(t, "dave")

	_, err := f.service.SendRequest(ctx, alice, "")
	assert.ErrorIs(err, model.ErrorMissingRecipient)

	_, err = f.service.SendRequest(ctx, alice, "alice")
	assert.ErrorIs(err, model.ErrorSelfRequest)

	_, err = f.service.SendRequest(ctx, alice, "Bob")
	assert.ErrorIs(err, model.ErrorUserNotFound)

	_, err = f.service.SendRequest(ctx, alice, "bob")
	assert.Nil(err)
	_, err = f.service.SendRequest(ctx, alice, "bob")
	assert.ErrorIs(err, model.ErrorDuplicatePending)

	_, err = f.service.SendRequest(ctx, alice, "carol")
	assert.Nil(err)
	_, err = f.service.SendRequest(ctx, alice, "dave")
	assert.Nil(err)

	t.Run("Fourth request inside a minute is throttled", func(t *testing.T) {
		bob, err := f.directory.FindByUsername(ctx, "bob")
		require.Nil(t, err)
		_, err = f.service.SendRequest(ctx, model.Caller{ID: bob.ID, Username: bob.Username}, "dave")
		assert.ErrorIs(err, model.ErrorRateLimited)

		f.clock.Advance(time.Minute + time.Second)
		_, err = f.service.SendRequest(ctx, model.Caller{ID: bob.ID, Username: bob.Username}, "dave")
		assert.Nil(err)
	})
}

func TestResendAfterRejectOrCancel(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	f := newFixture(t, 100)
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")
	carol := f.signup(t, "carol")

	t.Run("Reject", func(t *testing.T) {
		request, err := f.service.SendRequest(ctx, alice, "bob")
		require.Nil(t, err)

		_, err = f.service.RejectRequest(ctx, carol, request.ID)
		assert.ErrorIs(err, model.ErrorForbidden)

		rejected, err := f.service.RejectRequest(ctx, bob, request.ID)
		assert.Nil(err)
		assert.Equal(model.RequestStatusRejected, rejected.Status)
		assert.False(f.areFriends(t, alice, bob))

		_, err = f.service.AcceptRequest(ctx, bob, request.ID)
		assert.ErrorIs(err, model.ErrorInvalidState)

		_, err = f.service.SendRequest(ctx, alice, "bob")
		assert.Nil(err)
	})

	t.Run("Cancel", func(t *testing.T) {
		request, err := f.service.SendRequest(ctx, carol, "bob")
		require.Nil(t, err)

		assert.ErrorIs(f.service.CancelRequest(ctx, bob, request.ID), model.ErrorForbidden)
		assert.Nil(f.service.CancelRequest(ctx, carol, request.ID))
		assert.ErrorIs(f.service.CancelRequest(ctx, carol, request.ID), model.ErrorRequestNotFound)

		_, err = f.service.AcceptRequest(ctx, bob, request.ID)
		assert.ErrorIs(err, model.ErrorRequestNotFound)

		_, err = f.service.SendRequest(ctx, carol, "bob")
		assert.Nil(err)
	})
}

func TestGetRequest(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	f := newFixture(t, 3)
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")
	eve := f.signup(t, "eve")

	request, err := f.service.SendRequest(ctx, alice, "bob")
	require.Nil(t, err)

	for _, caller := range []model.Caller{alice, bob} {
		got, err := f.service.GetRequest(ctx, caller, request.ID)
		assert.Nil(err)
		assert.Equal(request.ID, got.ID)
	}

	_, err = f.service.GetRequest(ctx, eve, request.ID)
	assert.ErrorIs(err, model.ErrorForbidden)

	_, err = f.service.GetRequest(ctx, alice, request.ID+1)
	assert.ErrorIs(err, model.ErrorRequestNotFound)
}

func TestSearchUsers(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	f := newFixture(t, 3)
	f.signupWithEmail(t, "alice", "alice@x.com")
	f.signupWithEmail(t, "alice@x.com.fan", "fan@example.com")
	for i := 0; i < 25; i++ {
		f.signup(t, fmt.Sprintf("member%02d", i))
	}

	t.Run("Missing query", func(t *testing.T) {
		_, err := f.service.SearchUsers(ctx, "", 1)
		assert.ErrorIs(err, model.ErrorMissingQuery)
		assert.Equal(model.KindValidation, model.KindOf(err))
	})

	t.Run("Exact email wins over partial usernames", func(t *testing.T) {
		result, err := f.service.SearchUsers(ctx, "alice@x.com", 99)
		require.Nil(t, err)
		require.NotNil(t, result.Exact)
		assert.Nil(result.Page)
		assert.Equal("alice", result.Exact.Username)
	})

	t.Run("Partial username pages", func(t *testing.T) {
		for page, want := range map[int]int{1: 10, 2: 10, 3: 5} {
			result, err := f.service.SearchUsers(ctx, "MEMBER", page)
			require.Nil(t, err)
			assert.Nil(result.Exact)
			assert.Len(result.Page.Results, want)
			assert.Equal(25, result.Page.TotalUsers)
			assert.Equal(3, result.Page.TotalPages)
		}

		_, err := f.service.SearchUsers(ctx, "member", 4)
		assert.ErrorIs(err, model.ErrorInvalidPage)
		assert.Equal(model.KindValidation, model.KindOf(err))
	})
}

func TestDeleteAccount(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	f := newFixture(t, 100)
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")
	carol := f.signup(t, "carol")

	accepted, err := f.service.SendRequest(ctx, alice, "bob")
	require.Nil(t, err)
	_, err = f.service.AcceptRequest(ctx, bob, accepted.ID)
	require.Nil(t, err)
	pending, err := f.service.SendRequest(ctx, carol, "alice")
	require.Nil(t, err)

	assert.Nil(f.service.DeleteAccount(ctx, alice))

	assert.False(f.areFriends(t, bob, alice))
	_, err = f.ledger.Get(ctx, accepted.ID)
	assert.ErrorIs(err, model.ErrorRequestNotFound)
	_, err = f.ledger.Get(ctx, pending.ID)
	assert.ErrorIs(err, model.ErrorRequestNotFound)

	_, err = f.service.SendRequest(ctx, carol, "alice")
	assert.ErrorIs(err, model.ErrorUserNotFound)

	assert.ErrorIs(f.service.DeleteAccount(ctx, alice), model.ErrorUserNotFound)
}
