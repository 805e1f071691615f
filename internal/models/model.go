package models

import "time"

// ItemStatus is the lifecycle state of an auction item. An item starts
// active and transitions exactly once to sold or canceled, never back.
type ItemStatus string

const (
	ItemStatusActive   ItemStatus = "active"
	ItemStatusSold     ItemStatus = "sold"
	ItemStatusCanceled ItemStatus = "canceled"
)

// NotificationType classifies a notification record.
type NotificationType string

const (
	NotificationRegistration    NotificationType = "REGISTRATION"
	NotificationBidPlaced       NotificationType = "BID_PLACED"
	NotificationOutbid          NotificationType = "OUTBID"
	NotificationAuctionWon      NotificationType = "AUCTION_WON"
	NotificationAuctionEnd      NotificationType = "AUCTION_END"
	NotificationAuctionCanceled NotificationType = "AUCTION_CANCELED"
)

// User represents a participant in the auction
type User struct {
	UserID   string `json:"user_id" bson:"_id"`
	Username string `json:"username" bson:"username"`
}

// Item represents an auction listing. LatestBid mirrors the most recently
// committed bid's total; LastBidID is empty until the first bid lands.
type Item struct {
	ItemID              string     `json:"item_id" bson:"_id"`
	Title               string     `json:"title" bson:"title"`
	Description         string     `json:"description" bson:"description"`
	SellerID            string     `json:"seller_id" bson:"sellerId"`
	StartingBid         float64    `json:"starting_bid" bson:"startingBid"`
	MinimumBidIncrement float64    `json:"minimum_bid_increment" bson:"minimumBidIncrement"`
	Status              ItemStatus `json:"status" bson:"status"`
	EndTime             time.Time  `json:"end_time" bson:"endTime"`
	LatestBid           float64    `json:"latest_bid" bson:"latestBid"`
	LastBidID           string     `json:"last_bid_id,omitempty" bson:"lastBidId,omitempty"`
	CreatedAt           time.Time  `json:"created_at" bson:"createdAt"`
}

// Biddable reports whether the item can still accept bids at the given time.
func (i Item) Biddable(now time.Time) bool {
	return i.Status == ItemStatusActive && i.EndTime.After(now)
}

// Bid represents a user's bid on an item. Bids are append-only:
// LastBidAmount is the leading amount the bidder saw, LatestBidAmount is
// LastBidAmount + IncrementBidAmount and becomes the new leading amount.
type Bid struct {
	BidID              string    `json:"bid_id" bson:"_id"`
	ItemID             string    `json:"item_id" bson:"itemId"`
	BidderID           string    `json:"bidder_id" bson:"bidderId"`
	IncrementBidAmount float64   `json:"increment_bid_amount" bson:"incrementBidAmount"`
	LastBidAmount      float64   `json:"last_bid_amount" bson:"lastBidAmount"`
	LatestBidAmount    float64   `json:"latest_bid_amount" bson:"latestBidAmount"`
	CreatedAt          time.Time `json:"created_at" bson:"createdAt"`
}

// Notification is a persisted message for one recipient.
type Notification struct {
	NotificationID string           `json:"notification_id" bson:"_id"`
	UserID         string           `json:"user_id" bson:"userId"`
	ItemID         string           `json:"item_id,omitempty" bson:"itemId,omitempty"`
	Type           NotificationType `json:"type" bson:"type"`
	Message        string           `json:"message" bson:"message"`
	Preview        string           `json:"preview" bson:"preview"`
	Read           bool             `json:"read" bson:"read"`
	CreatedAt      time.Time        `json:"created_at" bson:"createdAt"`
}
