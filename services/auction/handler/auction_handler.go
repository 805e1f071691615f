package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bidify/internal/auctionerrors"
	bidding "bidify/internal/biddingService"
	model "bidify/internal/models"
	"bidify/services/auction/helpers"
	"bidify/utils"

	"github.com/gin-gonic/gin"
)

type BiddingServiceInterface interface {
	PlaceBid(ctx context.Context, itemID, bidderID string, incrementBidAmount float64) (bidding.PlaceBidResult, error)
	GetBidsForItem(ctx context.Context, itemID string, limit int) ([]model.Bid, error)
	GetWinningBid(ctx context.Context, itemID string) (model.Bid, error)
	GetItem(ctx context.Context, itemID string) (model.Item, error)
	CreateItem(ctx context.Context, item model.Item) (model.Item, error)
	RegisterUser(ctx context.Context, username string) (model.User, *model.Notification, error)
}

type NotificationServiceInterface interface {
	GetForUser(ctx context.Context, userID string) ([]model.Notification, error)
	MarkRead(ctx context.Context, notificationID string) (model.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// latestBidsLimit caps the bid history returned per item.
const latestBidsLimit = 10

type AuctionHandler struct {
	bidding       BiddingServiceInterface
	notifications NotificationServiceInterface
}

func NewAuctionHandler(biddingService BiddingServiceInterface, notificationService NotificationServiceInterface) *AuctionHandler {
	return &AuctionHandler{bidding: biddingService, notifications: notificationService}
}

// PlaceBidHandler handles POST /bids
func (h *AuctionHandler) PlaceBidHandler(c *gin.Context) {
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	result, err := h.bidding.PlaceBid(c.Request.Context(), req.ItemID, req.BidderID, req.IncrementBidAmount)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("PlaceBidHandler: failed to place bid", map[string]any{
			"handler":   "PlaceBidHandler",
			"item_id":   req.ItemID,
			"bidder_id": req.BidderID,
			"error":     err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, bidToResponse(result.Bid), "bid placed successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid placed successfully", map[string]any{
		"bid_id":     result.Bid.BidID,
		"item_id":    result.Bid.ItemID,
		"bidder_id":  result.Bid.BidderID,
		"latest_bid": result.Bid.LatestBidAmount,
	})
}

// GetBidsByItemHandler handles GET /items/:item_id/bids
func (h *AuctionHandler) GetBidsByItemHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	bids, err := h.bidding.GetBidsForItem(c.Request.Context(), itemID, latestBidsLimit)
	if err != nil && !errors.Is(err, auctionerrors.ErrNoBids) {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetBidsByItemHandler: error retrieving bids", map[string]any{"item_id": itemID, "error": err.Error()})
		return
	}

	if bids == nil {
		bids = []model.Bid{}
	}

	utils.JSONResponse(c, http.StatusOK, bids, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByItemHandler", "bids retrieved successfully", map[string]any{
		"item_id": itemID,
		"count":   len(bids),
	})
}

// GetWinningBidHandler handles GET /items/:item_id/winning
func (h *AuctionHandler) GetWinningBidHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	bid, err := h.bidding.GetWinningBid(c.Request.Context(), itemID)
	if err != nil {
		if errors.Is(err, auctionerrors.ErrNoBids) {
			utils.JSONError(c, http.StatusNotFound, err, "no winning bid found")
			utils.Info("GetWinningBidHandler: no winning bid found", map[string]any{"item_id": itemID})
			return
		}
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetWinningBidHandler: winning bid error", map[string]any{"item_id": itemID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, bidToResponse(bid), "winning bid retrieved successfully")
	helpers.LogSuccess("GetWinningBidHandler", "winning bid retrieved successfully", map[string]any{
		"bid_id":  bid.BidID,
		"item_id": bid.ItemID,
	})
}

// GetItemHandler handles GET /items/:item_id
func (h *AuctionHandler) GetItemHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	item, err := h.bidding.GetItem(c.Request.Context(), itemID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetItemHandler: error retrieving item", map[string]any{"item_id": itemID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, item, "item retrieved successfully")
}

// CreateItemHandler handles POST /items
func (h *AuctionHandler) CreateItemHandler(c *gin.Context) {
	var req helpers.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateItemHandler", err)
		return
	}

	item, err := h.bidding.CreateItem(c.Request.Context(), model.Item{
		Title:               req.Title,
		Description:         req.Description,
		SellerID:            req.SellerID,
		StartingBid:         req.StartingBid,
		MinimumBidIncrement: req.MinimumBidIncrement,
		EndTime:             req.EndTime.UTC(),
	})
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("CreateItemHandler: failed to create item", map[string]any{"seller_id": req.SellerID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, item, "item created successfully")
	helpers.LogSuccess("CreateItemHandler", "item created successfully", map[string]any{
		"item_id":   item.ItemID,
		"seller_id": item.SellerID,
	})
}

// RegisterUserHandler handles POST /users
func (h *AuctionHandler) RegisterUserHandler(c *gin.Context) {
	var req helpers.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RegisterUserHandler", err)
		return
	}

	user, welcome, err := h.bidding.RegisterUser(c.Request.Context(), req.Username)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("RegisterUserHandler: failed to register user", map[string]any{"username": req.Username, "error": err.Error()})
		return
	}

	data := gin.H{"user": user}
	if welcome != nil {
		data["notification"] = welcome
	}
	utils.JSONResponse(c, http.StatusCreated, data, "user registered successfully")
	helpers.LogSuccess("RegisterUserHandler", "user registered successfully", map[string]any{
		"user_id": user.UserID,
	})
}

// GetNotificationsHandler handles GET /users/:user_id/notifications
func (h *AuctionHandler) GetNotificationsHandler(c *gin.Context) {
	userID := c.Param("user_id")
	notifications, err := h.notifications.GetForUser(c.Request.Context(), userID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetNotificationsHandler: error retrieving notifications", map[string]any{"user_id": userID, "error": err.Error()})
		return
	}

	if notifications == nil {
		notifications = []model.Notification{}
	}

	utils.JSONResponse(c, http.StatusOK, notifications, "notifications retrieved successfully")
	helpers.LogSuccess("GetNotificationsHandler", "notifications retrieved successfully", map[string]any{
		"user_id": userID,
		"count":   len(notifications),
	})
}

// MarkNotificationReadHandler handles PATCH /notifications/:notification_id/read
func (h *AuctionHandler) MarkNotificationReadHandler(c *gin.Context) {
	notificationID := c.Param("notification_id")
	n, err := h.notifications.MarkRead(c.Request.Context(), notificationID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("MarkNotificationReadHandler: failed to mark read", map[string]any{"notification_id": notificationID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, n, "notification marked as read")
}

// MarkAllNotificationsReadHandler handles PATCH /users/:user_id/notifications/read
func (h *AuctionHandler) MarkAllNotificationsReadHandler(c *gin.Context) {
	userID := c.Param("user_id")
	updated, err := h.notifications.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("MarkAllNotificationsReadHandler: failed to mark all read", map[string]any{"user_id": userID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{"updated": updated}, "all notifications marked as read")
}

// bidToResponse converts a bid record to its HTTP response shape.
func bidToResponse(bid model.Bid) helpers.BidResponse {
	return helpers.BidResponse{
		BidID:              bid.BidID,
		ItemID:             bid.ItemID,
		BidderID:           bid.BidderID,
		IncrementBidAmount: bid.IncrementBidAmount,
		LastBidAmount:      bid.LastBidAmount,
		LatestBidAmount:    bid.LatestBidAmount,
		CreatedAt:          bid.CreatedAt.UTC().Format(time.RFC3339),
	}
}
