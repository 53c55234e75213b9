package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/nrednav/cuid2"
	"uk.co.dudmesh.socialgraph/internal/boot"
	"uk.co.dudmesh.socialgraph/internal/handlers"
	"uk.co.dudmesh.socialgraph/internal/service/auth"
	"uk.co.dudmesh.socialgraph/internal/service/graph"
	"uk.co.dudmesh.socialgraph/internal/store"
	"uk.co.dudmesh.socialgraph/pkg/crypt"
)

type closer interface {
	Close() error
}

type application struct {
	boot.Config
	authService  handlers.AuthService
	graphService handlers.GraphService
	closers      []closer
}

func newApplication(bootConfig *boot.Config) *application {
	clock := store.SystemClock

	db, err := store.Open(bootConfig.DatabaseURL())
	if err != nil {
		log.Fatalf("opening database: %+v", err)
	}

	window := store.NewWindow(bootConfig.RequestWindow(), bootConfig.MaxRequestsPerWindow())
	ledger, err := store.NewLedger(context.Background(), db, clock, window)
	if err != nil {
		log.Fatalf("opening ledger: %+v", err)
	}
	directory := store.NewDirectory(db, clock)

	revocations, err := store.NewRevocationCache(clock)
	if err != nil {
		log.Fatalf("creating revocation cache: %+v", err)
	}

	signingKey, err := crypt.LoadOrCreateSigningKey(bootConfig.DataDirectory(), bootConfig.SigningKeyPassphrase())
	if err != nil {
		log.Fatalf("loading signing key: %+v", err)
	}
	if bootConfig.DataDirectory() == "" {
		log.Warn("DATA_DIR is not set, tokens will not survive a restart")
	}

	return &application{
		Config:       *bootConfig,
		authService:  auth.New(bootConfig, directory, revocations, clock, signingKey),
		graphService: graph.New(bootConfig, db, directory, ledger),
		closers:      []closer{revocations, db},
	}
}

func (a *application) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			log.Errorf("closing: %+v", err)
		}
	}
}

func main() {
	bootConfig, err := boot.Load()
	if err != nil {
		log.Fatalf("boot: %+v", err)
	}

	app := newApplication(bootConfig)
	defer app.Close()

	server := echo.New()
	server.HideBanner = app.IsProduction()
	server.Use(middleware.BodyLimit("1M"))
	server.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return cuid2.Generate()
		},
	}))
	server.Use(echoprometheus.NewMiddleware("socialgraph"))
	server.Use(middleware.Recover())

	server.Logger.SetLevel(log.INFO)
	log.SetLevel(log.INFO)
	if app.IsDevelopment() {
		log.SetLevel(log.DEBUG)
	}

	headers := []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderXRequestID}
	server.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     app.AllowedOrigins(),
		AllowHeaders:     headers,
		AllowCredentials: true,
	}))

	handlers.Routes(server, app.authService, app.graphService, app.AuthRateLimit())

	metrics := echo.New()
	metrics.HideBanner = true
	metrics.GET("/metrics", echoprometheus.NewHandler())
	go func() {
		if err := metrics.Start(":" + app.Server.MetricsPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	go func() {
		if err := server.Start(":" + app.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		server.Logger.Error(err)
	}
	if err := metrics.Shutdown(ctx); err != nil {
		server.Logger.Error(err)
	}
}
