package closer

import (
	"context"
	"errors"
	"time"

	"bidify/internal/auctionerrors"
	model "bidify/internal/models"
	"bidify/internal/notification"
	"bidify/internal/realtime"
	"bidify/internal/repository"
	"bidify/utils"
)

// Fanout is the slice of the notification service the closer triggers after
// settling an item.
type Fanout interface {
	OnAuctionClosed(ctx context.Context, item model.Item, winning *model.Bid) (notification.ClosureResult, error)
}

// Deliverer pushes an event to one user's live connection, if any.
type Deliverer interface {
	Deliver(userID, event string, payload any)
}

// errAlreadySettled marks an item another sweep (or a concurrent tick)
// already transitioned; it is a skip, not a failure.
var errAlreadySettled = errors.New("item already settled")

// Closer is the timer-driven sweep that settles expired active auctions.
// Each item is handled in its own transaction, so one bad item never aborts
// the batch, and the status=active re-check inside the transaction makes
// overlapping ticks harmless.
type Closer struct {
	store    repository.AuctionDB
	fanout   Fanout
	delivery Deliverer
	interval time.Duration
}

// New creates a Closer sweeping at the given interval.
func New(store repository.AuctionDB, fanout Fanout, delivery Deliverer, interval time.Duration) *Closer {
	return &Closer{
		store:    store,
		fanout:   fanout,
		delivery: delivery,
		interval: interval,
	}
}

// Run sweeps on a fixed interval until ctx is canceled.
func (c *Closer) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	utils.Info("auction closer started", map[string]any{"interval": c.interval.String()})
	for {
		select {
		case <-ctx.Done():
			utils.Info("auction closer stopped", nil)
			return
		case <-ticker.C:
			c.Sweep(ctx, time.Now().UTC())
		}
	}
}

// Sweep settles every active item whose end time has elapsed and returns
// the number of items transitioned.
func (c *Closer) Sweep(ctx context.Context, now time.Time) int {
	expired, err := c.store.FindExpiredActiveItems(ctx, now)
	if err != nil {
		utils.Error("sweep: failed to query expired items", map[string]any{"error": err.Error()})
		return 0
	}

	settled := 0
	for _, item := range expired {
		if err := c.settle(ctx, item.ItemID, now); err != nil {
			if errors.Is(err, errAlreadySettled) {
				continue
			}
			utils.Error("sweep: failed to settle item", map[string]any{
				"item_id": item.ItemID,
				"error":   err.Error(),
			})
			continue
		}
		settled++
	}
	if settled > 0 {
		utils.Info("sweep settled items", map[string]any{"count": settled})
	}
	return settled
}

// settle transitions one item to sold or canceled and fans out the outcome.
func (c *Closer) settle(ctx context.Context, itemID string, now time.Time) error {
	var (
		closed  model.Item
		winning *model.Bid
	)
	err := c.store.RunTransaction(ctx, itemID, func(tx repository.Tx) error {
		current, err := tx.FindItem(itemID)
		if err != nil {
			return err
		}
		// The status=active filter is the idempotence guard: an item a
		// previous tick transitioned is simply skipped.
		if current.Status != model.ItemStatusActive || current.EndTime.After(now) {
			return errAlreadySettled
		}

		winning = nil
		if current.LastBidID != "" {
			bid, err := tx.FindBid(current.LastBidID)
			if err == nil {
				winning = &bid
			} else if !errors.Is(err, auctionerrors.ErrBidNotFound) {
				return err
			}
		}

		var update repository.ItemUpdate
		if winning != nil {
			status := model.ItemStatusSold
			update = repository.ItemUpdate{
				Status:    &status,
				LatestBid: &winning.LatestBidAmount,
			}
		} else {
			status := model.ItemStatusCanceled
			noBid := ""
			update = repository.ItemUpdate{
				Status:    &status,
				LatestBid: &current.StartingBid,
				LastBidID: &noBid,
			}
		}

		closed, err = tx.UpdateItem(itemID, update)
		return err
	})
	if err != nil {
		return err
	}

	utils.Info("auction settled", map[string]any{
		"item_id": closed.ItemID,
		"status":  string(closed.Status),
	})

	result, err := c.fanout.OnAuctionClosed(ctx, closed, winning)
	if err != nil {
		// The transition is committed; a fan-out failure only costs the
		// realtime pushes.
		utils.Warn("sweep: closure fan-out failed", map[string]any{
			"item_id": closed.ItemID,
			"error":   err.Error(),
		})
		return nil
	}

	if result.WinnerNotification != nil {
		c.delivery.Deliver(result.WinnerNotification.UserID, realtime.EventAuctionWinner,
			realtime.NotificationPayload{Notification: *result.WinnerNotification})
	}
	for _, n := range result.EndedNotifications {
		c.delivery.Deliver(n.UserID, realtime.EventAuctionEnd,
			realtime.NotificationPayload{Notification: n})
	}
	if result.SellerNotification != nil {
		c.delivery.Deliver(result.SellerNotification.UserID, realtime.EventAuctionEnd,
			realtime.NotificationPayload{Notification: *result.SellerNotification})
	}
	return nil
}
