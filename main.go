package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bidify/internal/auth"
	bidding "bidify/internal/biddingService"
	"bidify/internal/closer"
	"bidify/internal/config"
	model "bidify/internal/models"
	"bidify/internal/notification"
	"bidify/internal/presence"
	"bidify/internal/realtime"
	"bidify/internal/repository"
	"bidify/internal/server"
	"bidify/utils"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, users, err := buildStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize store: %v\n", err)
		os.Exit(1)
	}

	fanout := notification.NewService(store, users)
	biddingSvc := bidding.NewBiddingService(store, users, fanout)
	registry := presence.NewRegistry()

	var verifier realtime.TokenVerifier
	if cfg.JWTSecret != "" {
		verifier = auth.NewJWTVerifier(cfg.JWTSecret)
	}
	gateway := realtime.NewGateway(biddingSvc, registry, verifier)

	sweeper := closer.New(store, fanout, registry, cfg.SweepInterval)
	go sweeper.Run(ctx)

	router := server.SetupRouter(biddingSvc, fanout, gateway)
	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	go func() {
		utils.Info("starting auction server", map[string]any{"addr": cfg.Addr})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	utils.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		utils.Warn("server shutdown incomplete", map[string]any{"error": err.Error()})
	}
}

// buildStore selects the Mongo-backed store when MONGO_URI is set and
// falls back to the in-memory store otherwise.
func buildStore(ctx context.Context, cfg config.Config) (repository.AuctionDB, repository.UserDirectory, error) {
	if cfg.MongoURI != "" {
		repo, err := repository.NewMongoRepo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		utils.Info("connected to mongo store", map[string]any{"database": cfg.MongoDatabase})
		return repo, repo, nil
	}

	repo := repository.NewMemoryRepo()
	prepopulate(ctx, repo)
	utils.Info("using in-memory store", nil)
	return repo, repo, nil
}

// prepopulate seeds the in-memory store with sample users and items so
// the server is usable out of the box.
func prepopulate(ctx context.Context, repo *repository.MemoryRepo) {
	users := []model.User{
		{UserID: "alice", Username: "alice"},
		{UserID: "bob", Username: "bob"},
	}
	for _, u := range users {
		if err := repo.InsertUser(ctx, u); err != nil {
			utils.Warn("failed to seed user", map[string]any{"user_id": u.UserID, "error": err.Error()})
		}
	}

	now := time.Now().UTC()
	items := []model.Item{
		{
			ItemID:              "item1",
			Title:               "Vintage Camera",
			Description:         "A 1960s rangefinder in working order",
			SellerID:            "alice",
			StartingBid:         100,
			LatestBid:           100,
			MinimumBidIncrement: 10,
			Status:              model.ItemStatusActive,
			EndTime:             now.Add(24 * time.Hour),
			CreatedAt:           now,
		},
		{
			ItemID:              "item2",
			Title:               "Mechanical Keyboard",
			Description:         "Custom build with lubed switches",
			SellerID:            "bob",
			StartingBid:         200,
			LatestBid:           200,
			MinimumBidIncrement: 25,
			Status:              model.ItemStatusActive,
			EndTime:             now.Add(48 * time.Hour),
			CreatedAt:           now,
		},
	}
	for _, item := range items {
		if err := repo.InsertItem(ctx, item); err != nil {
			utils.Warn("failed to seed item", map[string]any{"item_id": item.ItemID, "error": err.Error()})
		}
	}
}
