package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"task-sync-backend/pkg/config"
	"task-sync-backend/pkg/database"
	"task-sync-backend/pkg/reminders"
	"task-sync-backend/pkg/server"

	"github.com/spf13/pflag"
)

func main() {
	port := pflag.String("port", "", "listen port (overrides PORT)")
	useMemoryDB := pflag.Bool("memory-db", false, "force the in-memory store")
	debug := pflag.Bool("debug", false, "enable debug output")
	pflag.Parse()

	cfg := config.GetCached()
	if *port != "" {
		cfg.Port = *port
	}
	if *useMemoryDB {
		cfg.UseMemoryDB = true
	}
	if *debug {
		cfg.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("[error] invalid configuration: %v\n", err)
		os.Exit(1)
	}

	db := database.NewDatabase(database.DatabaseConfig{
		UseMemoryDB: cfg.UseMemoryDB,
		PostgresDSN: cfg.PostgresDSN,
		Debug:       cfg.Debug,
	})
	defer db.Close()

	sweeper := reminders.NewSweeper(db, reminders.LogSender{}, cfg.ReminderInterval, cfg.ReminderWindow)
	if err := sweeper.Start(); err != nil {
		fmt.Printf("[error] failed to start reminder sweeper: %v\n", err)
		os.Exit(1)
	}
	defer sweeper.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewRouter(cfg, db),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("Listening on :%s (%s)\n", cfg.Port, cfg.Environment)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			fmt.Printf("[error] server failed: %v\n", err)
			os.Exit(1)
		}
	case sig := <-stop:
		fmt.Printf("Received %v, shutting down\n", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			fmt.Printf("[warn] graceful shutdown incomplete: %v\n", err)
		}
	}
}
