package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joeshaw/bikeshare-traffic/internal/api"
	"github.com/joeshaw/bikeshare-traffic/internal/config"
	"github.com/joeshaw/bikeshare-traffic/internal/loader"
	"github.com/joeshaw/bikeshare-traffic/internal/store"
	"github.com/joeshaw/bikeshare-traffic/internal/traffic"
	"github.com/joeshaw/bikeshare-traffic/internal/updater"
)

var (
	configPath   = flag.String("config", "", "Path to YAML config file")
	listenAddr   = flag.String("listen", "", "HTTP listen address (overrides server.port)")
	tripsPath    = flag.String("trips", "", "Trips CSV or ZIP (overrides data.tripsCSV)")
	stationsPath = flag.String("stations", "", "Stations JSON (overrides data.stationsJSON)")
	sqlitePath   = flag.String("sqlite", "", "SQLite database with trips and stations tables (overrides data.sqlite)")
	debug        = flag.Bool("debug", false, "Log trips whose station id matches no station")
)

func main() {
	flag.Parse()

	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	loc, err := cfg.Data.Location()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Load trips and stations once; the index built from them never changes
	dataLoader := loader.NewLoader(loader.Options{
		TripsPath:    cfg.Data.TripsCSV,
		StationsPath: cfg.Data.StationsJSON,
		SQLitePath:   cfg.Data.SQLite,
		StationKey:   cfg.Data.StationKey,
		Location:     loc,
		StrictKeys:   cfg.Data.StrictKeys,
	})
	dataset, err := dataLoader.Load(context.Background())
	if err != nil {
		log.Fatalf("Failed to load trip data: %v", err)
	}

	dataStore := store.NewStore(dataset, store.Options{
		CacheSize: cfg.Cache.Entries(),
		CacheTTL:  cfg.Cache.TTL,
		Debug:     cfg.Debug,
	})
	log.Printf("Indexed %d trips into %d minute buckets", dataStore.TripCount(), traffic.MinutesPerDay)

	trafficUpdater := updater.NewTrafficUpdater(dataStore)
	if err := trafficUpdater.Update(traffic.Unfiltered); err != nil {
		log.Fatalf("Failed to compute initial traffic: %v", err)
	}

	addr := *listenAddr
	if addr == "" {
		addr = fmt.Sprintf(":%d", cfg.Server.Port)
	}
	apiServer := api.NewServer(dataStore, trafficUpdater)
	server := &http.Server{
		Addr:              addr,
		Handler:           apiServer.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup

	// Coalesce time filter submissions into recomputations
	wg.Add(1)
	go func() {
		defer wg.Done()
		trafficUpdater.Run(ctx)
	}()

	// Start server
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("Server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for termination signal
	<-quit
	log.Println("Shutting down server...")

	// Signal all goroutines to stop
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	wg.Wait()
	log.Println("Server exited properly")
}

// loadConfig reads the config file, if any, and applies flag overrides
func loadConfig() (*config.AppConfig, error) {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return nil, err
		}
	}

	if *tripsPath != "" {
		cfg.Data.TripsCSV = *tripsPath
	}
	if *stationsPath != "" {
		cfg.Data.StationsJSON = *stationsPath
	}
	if *sqlitePath != "" {
		cfg.Data.SQLite = *sqlitePath
	}
	if *debug {
		cfg.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
