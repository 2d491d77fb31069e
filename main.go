package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/logger"

	"github.com/ArtAndreev/timed-computing-service/admin"
	"github.com/ArtAndreev/timed-computing-service/config"
	"github.com/ArtAndreev/timed-computing-service/loader"
	"github.com/ArtAndreev/timed-computing-service/server"
	"github.com/ArtAndreev/timed-computing-service/service"
	"github.com/ArtAndreev/timed-computing-service/stat"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		logger.Init("timedcomp", false, false, os.Stdout)
		logger.Fatalf("cannot get config: %s", err)
	}

	defer logger.Init("timedcomp", cfg.Verbose, false, os.Stdout).Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == "load" {
		runLoad(ctx, cfg)
		return
	}

	serve(ctx, cfg)
}

func serve(ctx context.Context, cfg *config.Config) {
	stat.RegisterMetrics()

	wg := new(sync.WaitGroup)

	srv := service.New("compute", cfg.Service)
	srv.Run(wg)

	logger.Infof("worker pool: %d workers, queue %d, timeout %s",
		cfg.Service.Parallel, cfg.Service.MaxClientConn, cfg.Service.Timeout)

	if cfg.AdminAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()

			logger.Infof("admin api on %s", cfg.AdminAddr)
			if err := admin.New(srv).ListenAndServe(ctx, cfg.AdminAddr); err != nil {
				logger.Errorf("admin api stopped: %s", err)
			}
		}()
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		logger.Fatalf("cannot listen on %s: %s", cfg.Addr, err)
	}

	if err := server.New(cfg.Server, srv).Serve(ctx, ln); err != nil {
		logger.Errorf("server stopped: %s", err)
	}

	srv.Close()
	wg.Wait()

	logger.Info("stopped")
}

func runLoad(ctx context.Context, cfg *config.Config) {
	if len(cfg.Loads) == 0 {
		logger.Warningf("load list is empty")
		return
	}

	if _, err := loader.New(cfg).Run(ctx); err != nil {
		logger.Errorf("load failed: %s", err)
	}
}
