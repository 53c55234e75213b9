package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// Routes mounts the API on server. authRateLimit throttles /auth per client
// IP in requests per second; zero disables it.
func Routes(server *echo.Echo, authService AuthService, graphService GraphService, authRateLimit float64) {
	server.HTTPErrorHandler = ErrorHandler

	requireCaller := RequireCaller(authService)

	auth := server.Group("/auth")
	if authRateLimit > 0 {
		auth.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStore(rate.Limit(authRateLimit)),
			IdentifierExtractor: func(c echo.Context) (string, error) {
				return c.RealIP(), nil
			},
			DenyHandler: func(c echo.Context, identifier string, err error) error {
				return c.JSON(http.StatusTooManyRequests, Detail{"too many requests"})
			},
		}))
	}
	auth.POST("/signup", Signup(authService))
	auth.POST("/login", Login(authService))
	auth.POST("/logout", Logout(authService), requireCaller)
	auth.GET("/publickey", PublicKey(authService))

	friend := server.Group("/friend", requireCaller)
	friend.GET("", ListRequests(graphService))
	friend.POST("/send_request", SendRequest(graphService))
	friend.GET("/:id", GetRequest(graphService))
	friend.POST("/:id/accept_request", AcceptRequest(graphService))
	friend.POST("/:id/reject_request", RejectRequest(graphService))
	friend.POST("/:id/cancel_request", CancelRequest(graphService))

	user := server.Group("/user", requireCaller)
	user.GET("/search", SearchUsers(graphService))
	user.GET("/friends", ListFriends(graphService))
	user.DELETE("/me", DeleteAccount(graphService))
}
