package helpers

import "time"

// Request/Response DTOs
type PlaceBidRequest struct {
	ItemID             string  `json:"item_id" binding:"required"`
	BidderID           string  `json:"bidder_id" binding:"required"`
	IncrementBidAmount float64 `json:"increment_bid_amount" binding:"required,gt=0"`
}

type BidResponse struct {
	BidID              string  `json:"bid_id"`
	ItemID             string  `json:"item_id"`
	BidderID           string  `json:"bidder_id"`
	IncrementBidAmount float64 `json:"increment_bid_amount"`
	LastBidAmount      float64 `json:"last_bid_amount"`
	LatestBidAmount    float64 `json:"latest_bid_amount"`
	CreatedAt          string  `json:"created_at"`
}

type CreateItemRequest struct {
	Title               string    `json:"title" binding:"required"`
	Description         string    `json:"description"`
	SellerID            string    `json:"seller_id" binding:"required"`
	StartingBid         float64   `json:"starting_bid" binding:"gte=0"`
	MinimumBidIncrement float64   `json:"minimum_bid_increment" binding:"required,gt=0"`
	EndTime             time.Time `json:"end_time" binding:"required"`
}

type RegisterUserRequest struct {
	Username string `json:"username" binding:"required"`
}
