package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinetalk/cinetalk/pkg/db"
	"github.com/cinetalk/cinetalk/pkg/events"
	"github.com/cinetalk/cinetalk/pkg/logging"
	"github.com/cinetalk/cinetalk/pkg/middleware/requestlog"
	"github.com/cinetalk/cinetalk/services/auth/internal/config"
	"github.com/cinetalk/cinetalk/services/auth/internal/httpserver"
	"github.com/cinetalk/cinetalk/services/auth/internal/models"
	"github.com/cinetalk/cinetalk/services/auth/internal/repo"
	"github.com/cinetalk/cinetalk/services/auth/internal/service"
	"github.com/cinetalk/cinetalk/services/auth/internal/sweeper"
)

func main() {
	cfg := config.Load()
	l := logging.New(cfg.LogLevel, "auth")

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := gdb.AutoMigrate(&models.User{}, &models.RefreshToken{}, &models.RevokedToken{}); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	gormRepo := repo.GormRepo{DB: gdb}

	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
	}

	svc := &service.AuthService{
		Repo:       gormRepo,
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
		Events:     producer,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go (&sweeper.Sweeper{
		Repo:     gormRepo,
		Interval: cfg.SweepInterval,
		Logger:   l,
	}).Run(sweepCtx)

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Use(requestlog.Middleware(l))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: svc},
	})

	go func() {
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("echo shutdown: %v", err)
	}
}
