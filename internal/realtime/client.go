package realtime

import (
	"encoding/json"
	"sync"

	"bidify/utils"

	"github.com/gorilla/websocket"
)

// InboundMessage is the wire shape of every client-sent message.
type InboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// PlaceBidPayload is the inbound place-bid request body.
type PlaceBidPayload struct {
	ItemID             string  `json:"item_id"`
	BidderID           string  `json:"bidder_id"`
	IncrementBidAmount float64 `json:"increment_bid_amount"`
}

// Client is one live websocket connection bound to an authenticated user.
type Client struct {
	UserID string

	conn    *websocket.Conn
	gateway *Gateway

	mu     sync.Mutex // guards send against close during Deliver
	send   chan Envelope
	closed bool
}

// Deliver queues an event for the connection. A slow consumer's full buffer
// drops the event rather than blocking the caller; persisted notifications
// stay retrievable over HTTP regardless. Deliver after teardown is a no-op:
// broadcasters and the closer snapshot members before sending, so they can
// race a disconnect.
func (c *Client) Deliver(event string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- Envelope{Event: event, Data: payload}:
	default:
		utils.Warn("realtime: dropped event for slow client", map[string]any{
			"user_id": c.UserID,
			"event":   event,
		})
	}
}

// closeSend marks the client torn down and closes the send channel exactly
// once, releasing writePump.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) readPump() {
	defer func() {
		c.gateway.disconnect(c)
		c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg InboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			utils.Warn("realtime: malformed message", map[string]any{
				"user_id": c.UserID,
				"error":   err.Error(),
			})
			continue
		}
		c.gateway.handleMessage(c, msg)
	}
}

func (c *Client) writePump() {
	for env := range c.send {
		if err := c.conn.WriteJSON(env); err != nil {
			break
		}
	}
	c.conn.Close()
}
