package realtime

import model "bidify/internal/models"

// Inbound events, sent by clients.
const (
	EventJoinItemRoom  = "join-item-room"
	EventLeaveItemRoom = "leave-item-room"
	EventPlaceBid      = "place-bid"
)

// Outbound events, pushed to clients.
const (
	EventUserJoinedRoom       = "user-joined-room"
	EventUserLeftRoom         = "user-left-room"
	EventNewBidPlaced         = "new-bid-placed"
	EventPlaceBidNotification = "place-bid-notification"
	EventOutbidNotification   = "outbid-notification"
	EventAuctionWinner        = "auction-winner"
	EventAuctionEnd           = "auction-end"
	EventBidError             = "bid-error"
)

// Envelope is the wire shape of every outbound message.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// RoomPayload announces room membership changes.
type RoomPayload struct {
	ItemID string `json:"item_id"`
	UserID string `json:"user_id"`
}

// BidPayload carries a committed bid to a room.
type BidPayload struct {
	Bid model.Bid `json:"bid"`
}

// NotificationPayload carries one persisted notification to its recipient.
type NotificationPayload struct {
	Notification model.Notification `json:"notification"`
}

// ErrorPayload is delivered only to the connection whose request failed.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
