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
	"github.com/cinetalk/cinetalk/services/discussion/internal/config"
	"github.com/cinetalk/cinetalk/services/discussion/internal/httpserver"
	"github.com/cinetalk/cinetalk/services/discussion/internal/models"
	"github.com/cinetalk/cinetalk/services/discussion/internal/repo"
	"github.com/cinetalk/cinetalk/services/discussion/internal/search"
	"github.com/cinetalk/cinetalk/services/discussion/internal/tmdb"
)

func main() {
	cfg := config.Load()
	l := logging.New(cfg.LogLevel, "discussion")

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := gdb.AutoMigrate(&models.Discussion{}, &models.Comment{}, &models.Vote{}); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	var idx *search.Index
	if cfg.ESURL != "" {
		idx, err = search.New(search.Config{
			URL:      cfg.ESURL,
			Username: cfg.ESUser,
			Password: cfg.ESPassword,
			Index:    cfg.ESIndex,
		}, l)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
	} else {
		l.Warn("search_disabled", "reason", "ES_URL not set")
	}

	var movies *httpserver.MoviesHTTP
	if cfg.TMDBAPIKey != "" {
		movies = &httpserver.MoviesHTTP{TMDB: tmdb.NewClient(cfg.TMDBAPIKey, cfg.TMDBCacheTTL)}
	} else {
		l.Warn("movie_proxy_disabled", "reason", "TMDB_API_KEY not set")
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
		DiscussionHandler: &httpserver.DiscussionHTTP{
			Repo:   &repo.GormRepo{DB: gdb},
			Search: idx,
		},
		MoviesHandler: movies,
		Auth:          auth,
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
