package handlers

import (
	"context"

	"github.com/labstack/echo/v4"
	"uk.co.dudmesh.socialgraph/internal/model"
)

type AuthService interface {
	Signup(ctx context.Context, params *model.CreateUserParams) (*model.User, error)
	Login(ctx context.Context, params *model.LoginParams) (string, error)
	Authenticate(ctx context.Context, token string) (*model.Caller, error)
	Logout(ctx context.Context, token string) error
	PublicKey() (string, string, error)
}

type GraphService interface {
	SendRequest(ctx context.Context, caller model.Caller, toUsername string) (*model.FriendRequest, error)
	AcceptRequest(ctx context.Context, caller model.Caller, id model.RequestID) (*model.FriendRequest, error)
	RejectRequest(ctx context.Context, caller model.Caller, id model.RequestID) (*model.FriendRequest, error)
	CancelRequest(ctx context.Context, caller model.Caller, id model.RequestID) error
	GetRequest(ctx context.Context, caller model.Caller, id model.RequestID) (*model.FriendRequest, error)
	ListRequests(ctx context.Context, caller model.Caller, filter model.RequestFilter) ([]model.FriendRequest, error)
	SearchUsers(ctx context.Context, query string, page int) (*model.SearchResult, error)
	ListFriends(ctx context.Context, caller model.Caller, page int) (*model.UserPage, error)
	DeleteAccount(ctx context.Context, caller model.Caller) error
}

type Detail struct {
	Detail string `json:"detail"`
}

const (
	callerKey = "caller"
	tokenKey  = "token"
)

func callerFrom(c echo.Context) model.Caller {
	return c.Get(callerKey).(model.Caller)
}

// pageParam reads the optional 1-indexed page query parameter.
func pageParam(c echo.Context) (int, error) {
	page := 1
	if err := echo.QueryParamsBinder(c).Int("page", &page).BindError(); err != nil {
		return 0, model.ErrorInvalidPage
	}
	return page, nil
}

// Ids that are not integers cannot name a request.
func requestIDParam(c echo.Context) (model.RequestID, error) {
	var id int64
	if err := echo.PathParamsBinder(c).MustInt64("id", &id).BindError(); err != nil {
		return 0, model.ErrorRequestNotFound
	}
	return model.RequestID(id), nil
}
