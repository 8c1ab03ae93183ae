// Package main movie rental API.
//
// @title           Vidly Rental API
// @version         1.0
// @description     Movie rental store: catalog, customers, rentals and returns.
// @contact.name    Halim Iskandar
// @contact.email   halim.iskandar2323@gmail.com
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"movierental/app/echoServer"
	authctrl "movierental/app/echoServer/controller/auth"
	customerctrl "movierental/app/echoServer/controller/customer"
	genrectrl "movierental/app/echoServer/controller/genre"
	moviectrl "movierental/app/echoServer/controller/movie"
	rentalctrl "movierental/app/echoServer/controller/rental"
	"movierental/app/echoServer/validation"
	"movierental/config"
	"movierental/repository"
	"movierental/repository/memory"
	"movierental/repository/mongo"
	"movierental/repository/postgres"
	"movierental/repository/sqlite"
	authsvc "movierental/service/auth"
	catalogsvc "movierental/service/catalog"
	customersvc "movierental/service/customer"
	rentalsvc "movierental/service/rental"
	"movierental/util/database"
	"movierental/util/jwt"
	"movierental/util/metrics"
)

func main() {
	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("db connect failed", "driver", cfg.DBDriver, "err", err)
		os.Exit(1)
	}
	defer store.Close()

	// services
	col := metrics.New()
	signer := jwt.NewSigner(cfg.JWTSecret, cfg.TokenTTL())
	as := authsvc.New(store, signer)
	cs := catalogsvc.New(store)
	cus := customersvc.New(store)
	rs := rentalsvc.New(store,
		rentalsvc.WithTimeout(cfg.TxTimeout),
		rentalsvc.WithMetrics(col),
		rentalsvc.WithLogger(log),
	)

	// controllers
	v := validation.Engine()
	e := echoServer.New(log, col)
	echoServer.Register(e, echoServer.C{
		Auth:     &authctrl.Controller{Svc: as, V: v, Log: log},
		Genre:    &genrectrl.Controller{Svc: cs, V: v, Log: log},
		Movie:    &moviectrl.Controller{Svc: cs, V: v, Log: log},
		Customer: &customerctrl.Controller{Svc: cus, V: v, Log: log},
		Rental:   &rentalctrl.Controller{Svc: rs, V: v, Log: log},

		Tokens:  signer,
		Metrics: col,
		Ping:    store.Ping,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	go func() {
		log.Info("starting server", "port", port, "driver", cfg.DBDriver, "env", cfg.Env)
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "err", err)
	}
}

func openStore(ctx context.Context, cfg config.App) (repository.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := database.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s := postgres.New(db)
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return s, nil
	case config.DriverSQLite:
		return sqlite.Open(ctx, cfg.DatabaseURL)
	case config.DriverMongo:
		return mongo.Open(ctx, cfg.DatabaseURL, cfg.MongoDB)
	default:
		return memory.NewStore(), nil
	}
}
