// Package admin serves health, metrics and pool statistics over HTTP.
package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ArtAndreev/timed-computing-service/service"
	"github.com/ArtAndreev/timed-computing-service/stat"
)

const shutdownTimeout = 5 * time.Second

type Snapshotter interface {
	Snapshot() service.Snapshot
}

type Admin struct {
	router  *gin.Engine
	src     Snapshotter
	started time.Time
}

func New(src Snapshotter) *Admin {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	a := &Admin{
		router:  r,
		src:     src,
		started: time.Now(),
	}
	a.registerRoutes()

	return a
}

func (a *Admin) registerRoutes() {
	stat.RegisterMetrics()

	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(a.started).String(),
		})
	})

	a.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.router.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, a.src.Snapshot())
	})
}

func (a *Admin) Handler() http.Handler {
	return a.router
}

// ListenAndServe runs the admin API on addr until ctx is done.
func (a *Admin) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: a.router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
