package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"tourbook-backend/internal/booking"
	"tourbook-backend/internal/catalog"
	"tourbook-backend/internal/config"
	"tourbook-backend/internal/dedup"
	"tourbook-backend/internal/docstore"
	"tourbook-backend/internal/httpapi"
	"tourbook-backend/internal/identity"
	"tourbook-backend/internal/kstream"
	"tourbook-backend/internal/projections"
	"tourbook-backend/internal/reconcile"
	"tourbook-backend/internal/rejections"
	"tourbook-backend/internal/review"
	"tourbook-backend/internal/wishlist"
)

// seenTTL bounds how long a delivered event id is remembered.
const seenTTL = 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Println("WARNING: JWT_SECRET is not set, every /api request will be rejected")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := connectRedis(ctx, cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	store, closeStore, err := openStore(ctx, cfg, rdb)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer closeStore()
	log.Printf("Store: using %s backend", cfg.StoreBackend)

	var events kstream.Publisher = kstream.NopPublisher{}
	if cfg.KafkaBroker != "" {
		pub := kstream.NewKafkaPublisher(cfg.KafkaBroker)
		defer pub.Close()
		events = pub
	} else {
		log.Println("Kafka: KAFKA_BROKER not set, events are dropped")
	}

	var statsCache booking.StatsCache = booking.NewMemoryStatsCache(cfg.StatsCacheTTL)
	if rdb != nil {
		statsCache = booking.NewRedisStatsCache(rdb, cfg.StatsCacheTTL)
	}

	cat := catalog.NewService(store)
	bookings := booking.NewService(store, cat, events, statsCache)
	reviews := review.NewService(store, cat, events)
	wishlists := wishlist.NewService(store)

	deps := httpapi.Deps{
		Identity:  identity.NewResolver(store),
		Catalog:   cat,
		Bookings:  bookings,
		Reviews:   reviews,
		Wishlists: wishlists,
		JWTSecret: cfg.JWTSecret,
	}

	// Projectors consume the event topics in the background.
	if cfg.KafkaBroker != "" {
		var seen dedup.Filter = dedup.NewMemory(seenTTL)
		var feed *projections.Feed
		if rdb != nil {
			seen = dedup.NewRedis(rdb, seenTTL)
			feed = projections.NewFeed(rdb)
			deps.Feed = feed
		}
		projector := projections.NewProjector(cat, bookings, feed, seen)
		projector.RejectTo(rejections.NewStore(cfg.RejectionsDir))
		go func() {
			log.Println("Starting Projectors consumer...")
			if err := projector.Consume(ctx, cfg.KafkaBroker, "tourbook-projectors"); err != nil {
				log.Printf("Projectors consumer error: %v", err)
			}
		}()
	}

	if cfg.ReconcileSchedule != "" {
		scheduler := reconcile.NewScheduler(reconcile.NewSweeper(cat, cat))
		if err := scheduler.Start(ctx, cfg.ReconcileSchedule); err != nil {
			log.Fatalf("reconcile: %v", err)
		}
		defer scheduler.Stop()
	}

	r := mux.NewRouter()
	httpapi.NewAPI(deps).RegisterRoutes(r)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("Shutting down...")
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), 15*time.Second)
		defer done()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("Tourbook API listening on %s", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// connectRedis returns a client when Redis answers a ping. Redis is required
// for the redis backend and optional otherwise.
func connectRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, done := context.WithTimeout(ctx, cfg.StoreTimeout)
	defer done()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		if cfg.StoreBackend == "redis" {
			log.Fatalf("redis %s: %v", cfg.RedisAddr, err)
		}
		log.Printf("Redis: %s unavailable, using in-process caches: %v", cfg.RedisAddr, err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func openStore(ctx context.Context, cfg *config.Config, rdb *redis.Client) (docstore.Gateway, func(), error) {
	noop := func() {}
	openCtx, done := context.WithTimeout(ctx, cfg.StoreTimeout)
	defer done()

	switch cfg.StoreBackend {
	case "redis":
		return docstore.NewRedis(rdb, nil), noop, nil
	case "mongo":
		db, err := docstore.OpenMongo(openCtx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, noop, err
		}
		return docstore.NewMongo(db, nil), func() { _ = db.Client().Disconnect(context.Background()) }, nil
	case "postgres":
		db, err := docstore.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		closeDB := noop
		if sqlDB, err := db.DB(); err == nil {
			closeDB = func() { _ = sqlDB.Close() }
		}
		return docstore.NewPostgres(db, nil), closeDB, nil
	case "supabase":
		client, err := docstore.OpenSupabase(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			return nil, noop, err
		}
		return docstore.NewSupabase(client, nil), noop, nil
	default:
		return docstore.NewMemory(nil), noop, nil
	}
}
