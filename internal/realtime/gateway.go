package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"bidify/internal/auctionerrors"
	bidding "bidify/internal/biddingService"
	"bidify/internal/presence"
	"bidify/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// BidEngine is the slice of the bidding service the gateway dispatches to.
type BidEngine interface {
	PlaceBid(ctx context.Context, itemID, bidderID string, incrementBidAmount float64) (bidding.PlaceBidResult, error)
}

// TokenVerifier turns a connection token into an authenticated user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Gateway owns the per-item broadcast rooms and dispatches inbound realtime
// events. It performs no retries and no business validation beyond message
// shape: placing bids is the engine's job, routing results is the gateway's.
type Gateway struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]bool // key: itemID

	engine   BidEngine
	presence *presence.Registry
	auth     TokenVerifier
}

// NewGateway creates a Gateway. auth may be nil, in which case connections
// identify themselves via the user_id query parameter (local development).
func NewGateway(engine BidEngine, registry *presence.Registry, auth TokenVerifier) *Gateway {
	return &Gateway{
		rooms:    make(map[string]map[*Client]bool),
		engine:   engine,
		presence: registry,
		auth:     auth,
	}
}

// ServeWS upgrades an HTTP request to a websocket connection and starts the
// client's pumps. The connection is registered in the presence registry
// under its authenticated user id.
func (g *Gateway) ServeWS(c *gin.Context) {
	userID, err := g.identify(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.Warn("realtime: websocket upgrade failed", map[string]any{"error": err.Error()})
		return
	}

	client := &Client{
		UserID:  userID,
		conn:    conn,
		send:    make(chan Envelope, 256),
		gateway: g,
	}
	g.presence.Register(userID, client)
	utils.Info("realtime: client connected", map[string]any{"user_id": userID})

	go client.readPump()
	go client.writePump()
}

func (g *Gateway) identify(c *gin.Context) (string, error) {
	if g.auth != nil {
		return g.auth.Verify(c.Query("token"))
	}
	if userID := c.Query("user_id"); userID != "" {
		return userID, nil
	}
	return "", auctionerrors.ErrUserNotFound
}

// disconnect tears down a client: it leaves every room (announcing the
// departure) and releases its presence entry unless a newer session already
// replaced it.
func (g *Gateway) disconnect(c *Client) {
	g.mu.Lock()
	var left []string
	for itemID, members := range g.rooms {
		if members[c] {
			delete(members, c)
			if len(members) == 0 {
				delete(g.rooms, itemID)
			}
			left = append(left, itemID)
		}
	}
	g.mu.Unlock()

	for _, itemID := range left {
		g.broadcast(itemID, EventUserLeftRoom, RoomPayload{ItemID: itemID, UserID: c.UserID}, c)
	}
	g.presence.Unregister(c.UserID, c)
	c.closeSend()
	utils.Info("realtime: client disconnected", map[string]any{"user_id": c.UserID})
}

func (g *Gateway) handleMessage(c *Client, msg InboundMessage) {
	switch msg.Event {
	case EventJoinItemRoom:
		if itemID := decodeItemID(msg.Data); itemID != "" {
			g.joinRoom(c, itemID)
		}
	case EventLeaveItemRoom:
		if itemID := decodeItemID(msg.Data); itemID != "" {
			g.leaveRoom(c, itemID)
		}
	case EventPlaceBid:
		g.handlePlaceBid(c, msg.Data)
	default:
		utils.Warn("realtime: unhandled event", map[string]any{
			"user_id": c.UserID,
			"event":   msg.Event,
		})
	}
}

// decodeItemID accepts both {"item_id": "..."} objects and bare strings.
func decodeItemID(raw json.RawMessage) string {
	var payload struct {
		ItemID string `json:"item_id"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.ItemID != "" {
		return payload.ItemID
	}
	var itemID string
	if err := json.Unmarshal(raw, &itemID); err == nil {
		return itemID
	}
	return ""
}

func (g *Gateway) joinRoom(c *Client, itemID string) {
	g.mu.Lock()
	members, ok := g.rooms[itemID]
	if !ok {
		members = make(map[*Client]bool)
		g.rooms[itemID] = members
	}
	members[c] = true
	g.mu.Unlock()

	g.broadcast(itemID, EventUserJoinedRoom, RoomPayload{ItemID: itemID, UserID: c.UserID}, c)
}

func (g *Gateway) leaveRoom(c *Client, itemID string) {
	g.mu.Lock()
	if members, ok := g.rooms[itemID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(g.rooms, itemID)
		}
	}
	g.mu.Unlock()

	g.broadcast(itemID, EventUserLeftRoom, RoomPayload{ItemID: itemID, UserID: c.UserID}, c)
}

// broadcast sends an event to every member of the item room except the
// originating client.
func (g *Gateway) broadcast(itemID, event string, payload any, except *Client) {
	g.mu.RLock()
	members := make([]*Client, 0, len(g.rooms[itemID]))
	for member := range g.rooms[itemID] {
		if member != except {
			members = append(members, member)
		}
	}
	g.mu.RUnlock()

	for _, member := range members {
		member.Deliver(event, payload)
	}
}

// handlePlaceBid runs one inbound bid. Failures of any kind are delivered
// only to the requesting connection; only a committed bid is broadcast.
func (g *Gateway) handlePlaceBid(c *Client, raw json.RawMessage) {
	var payload PlaceBidPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.Deliver(EventBidError, ErrorPayload{
			Code:    string(auctionerrors.KindInvalidArgument),
			Message: "malformed place-bid payload",
		})
		return
	}
	if payload.BidderID == "" {
		payload.BidderID = c.UserID
	}

	result, err := g.engine.PlaceBid(context.Background(), payload.ItemID, payload.BidderID, payload.IncrementBidAmount)
	if err != nil {
		c.Deliver(EventBidError, ErrorPayload{
			Code:    string(auctionerrors.KindOf(err)),
			Message: bidErrorMessage(err),
		})
		return
	}

	g.broadcast(payload.ItemID, EventNewBidPlaced, BidPayload{Bid: result.Bid}, c)

	if n := result.Fanout.BidderNotification; n != nil {
		g.presence.Deliver(n.UserID, EventPlaceBidNotification, NotificationPayload{Notification: *n})
	}
	for _, n := range result.Fanout.OutbidNotifications {
		g.presence.Deliver(n.UserID, EventOutbidNotification, NotificationPayload{Notification: n})
	}
}

// bidErrorMessage maps a bid failure to the single taxonomy reason shown to
// the requesting user; internal details never leave the server.
func bidErrorMessage(err error) string {
	switch auctionerrors.KindOf(err) {
	case auctionerrors.KindNotFound:
		return "item not found"
	case auctionerrors.KindForbidden:
		return "seller cannot bid on own item"
	case auctionerrors.KindInvalidArgument:
		return "invalid bid details"
	case auctionerrors.KindInvalidState:
		return "auction is not open for bidding"
	default:
		return "failed to place bid"
	}
}
