package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmiliandi-arch/Mayan-CARIBBEAN/internal/config"
	"github.com/cmiliandi-arch/Mayan-CARIBBEAN/internal/httpapi"
	"github.com/cmiliandi-arch/Mayan-CARIBBEAN/internal/notify"
	"github.com/cmiliandi-arch/Mayan-CARIBBEAN/internal/service"
	"github.com/cmiliandi-arch/Mayan-CARIBBEAN/internal/snapshot"
	"github.com/cmiliandi-arch/Mayan-CARIBBEAN/internal/store/memory"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo := memory.NewSeeded()
	closers := make([]func() error, 0, 1)

	var snapStore snapshot.Store
	switch {
	case cfg.DatabaseURL != "":
		pg, err := snapshot.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start without the configured snapshot store", err)
		}
		snapStore = pg
		closers = append(closers, pg.Close)
		log.Println("snapshots: postgres")
	case cfg.RedisAddr != "":
		rd := snapshot.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := rd.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), snapshots disabled", err)
			snapStore = snapshot.Noop{}
		} else {
			snapStore = rd
			closers = append(closers, rd.Close)
			log.Println("snapshots: redis")
		}
	default:
		fileStore, err := snapshot.NewFileStore(cfg.DataDir)
		if err != nil {
			log.Fatalf("snapshot dir unusable: %v", err)
		}
		snapStore = fileStore
		log.Printf("snapshots: files in %s", cfg.DataDir)
	}

	manager := snapshot.NewManager(snapStore, repo)
	if err := manager.Restore(ctx); err != nil {
		log.Fatalf("failed to restore state snapshot: %v", err)
	}

	svc := service.New(repo, notify.LogNotifier{}, manager)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo, repo)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("delivery backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	// One last mirror so in-flight state survives the restart.
	if err := manager.Persist(shutdownCtx); err != nil {
		log.Printf("final snapshot error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}
