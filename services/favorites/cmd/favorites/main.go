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

	"github.com/cinetalk/cinetalk/pkg/authclient"
	"github.com/cinetalk/cinetalk/pkg/db"
	"github.com/cinetalk/cinetalk/pkg/logging"
	"github.com/cinetalk/cinetalk/pkg/middleware/requestlog"
	"github.com/cinetalk/cinetalk/pkg/remoteauth"
	"github.com/cinetalk/cinetalk/services/favorites/internal/config"
	"github.com/cinetalk/cinetalk/services/favorites/internal/httpserver"
	"github.com/cinetalk/cinetalk/services/favorites/internal/models"
	"github.com/cinetalk/cinetalk/services/favorites/internal/repo"
)

func main() {
	cfg := config.Load()
	l := logging.New(cfg.LogLevel, "favorites")

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := gdb.AutoMigrate(&models.Favorite{}); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	cache := remoteauth.NewCache(cfg.CacheTTL, remoteauth.DefaultCapacity)
	stopSweep := cache.StartSweeper(cfg.CacheSweepInterval)
	defer stopSweep()

	auth := remoteauth.New(authclient.NewClient(cfg.AuthServiceURL), cache)

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Use(requestlog.Middleware(l))

	httpserver.Register(e, &httpserver.Deps{
		FavoritesHandler: &httpserver.FavoritesHTTP{Repo: &repo.GormRepo{DB: gdb}},
		Auth:             auth,
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
