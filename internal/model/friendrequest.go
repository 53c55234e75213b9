package model

import "time"

type RequestID int64

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusRejected RequestStatus = "rejected"
)

type RequestFilter string

const (
	RequestFilterAll      RequestFilter = ""
	RequestFilterSent     RequestFilter = "sent"
	RequestFilterReceived RequestFilter = "received"
	RequestFilterNone     RequestFilter = "none"
)

// ParseRequestFilter maps the list type parameter onto a filter. Unknown
// types select nothing rather than failing.
func ParseRequestFilter(s string) RequestFilter {
	switch f := RequestFilter(s); f {
	case RequestFilterAll, RequestFilterSent, RequestFilterReceived:
		return f
	}
	return RequestFilterNone
}

// FriendRequest is directional. FromUsername and ToUsername are display
// fields filled on read.
type FriendRequest struct {
	ID           RequestID     `db:"ID" json:"id"`
	FromUser     UserID        `db:"FromUser" json:"-"`
	ToUser       UserID        `db:"ToUser" json:"-"`
	FromUsername string        `db:"FromUsername" json:"from_user"`
	ToUsername   string        `db:"ToUsername" json:"to_user"`
	Status       RequestStatus `db:"Status" json:"status"`
	CreatedAt    time.Time     `db:"CreatedAt" json:"created_at"`
}

// Involves reports whether user is either party of the request.
func (r *FriendRequest) Involves(user UserID) bool {
	return r.FromUser == user || r.ToUser == user
}
