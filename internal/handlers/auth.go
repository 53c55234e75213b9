package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"uk.co.dudmesh.socialgraph/internal/model"
)

type LoginResponse struct {
	Detail string `json:"detail"`
	Token  string `json:"token"`
}

type PublicKeyResponse struct {
	KeyID string `json:"kid"`
	Key   string `json:"key"`
}

func Signup(authService AuthService) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := &model.CreateUserParams{}
		if err := c.Bind(params); err != nil {
			return err
		}
		if _, err := authService.Signup(c.Request().Context(), params); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, Detail{"user created successfully"})
	}
}

func Login(authService AuthService) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := &model.LoginParams{}
		if err := c.Bind(params); err != nil {
			return err
		}
		token, err := authService.Login(c.Request().Context(), params)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, LoginResponse{"login successful", token})
	}
}

func Logout(authService AuthService) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, _ := c.Get(tokenKey).(string)
		if err := authService.Logout(c.Request().Context(), token); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, Detail{"logged out successfully"})
	}
}

func PublicKey(authService AuthService) echo.HandlerFunc {
	return func(c echo.Context) error {
		keyID, key, err := authService.PublicKey()
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, PublicKeyResponse{keyID, key})
	}
}

// authFailure carries errors that are not about the credentials themselves
// through the key auth middleware.
type authFailure struct {
	err error
}

func (e *authFailure) Error() string {
	return e.err.Error()
}

// RequireCaller authenticates the bearer token and stores the caller on the
// context for the handlers behind it.
func RequireCaller(authService AuthService) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(token string, c echo.Context) (bool, error) {
			caller, err := authService.Authenticate(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, model.ErrorUnauthenticated) {
					return false, nil
				}
				return false, &authFailure{err}
			}
			c.Set(callerKey, *caller)
			c.Set(tokenKey, token)
			return true, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			var failure *authFailure
			if errors.As(err, &failure) {
				return failure.err
			}
			return model.ErrorUnauthenticated
		},
	})
}
