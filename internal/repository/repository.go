package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bidify/internal/auctionerrors"
	model "bidify/internal/models"
)

// AuctionDB defines the persistence interface for the auction system. The
// backing engine is treated as a transactional document store: multi-record
// writes go through RunTransaction, everything else is a single-record read
// or write.
type AuctionDB interface {
	FindItem(ctx context.Context, itemID string) (model.Item, error)
	InsertItem(ctx context.Context, item model.Item) error
	FindExpiredActiveItems(ctx context.Context, now time.Time) ([]model.Item, error)

	FindLatestBidForItem(ctx context.Context, itemID string) (model.Bid, error)
	FindBidsByItem(ctx context.Context, itemID string, limit int) ([]model.Bid, error)
	FindBiddersByItem(ctx context.Context, itemID string) ([]string, error)

	InsertNotification(ctx context.Context, n model.Notification) error
	FindNotificationsByUser(ctx context.Context, userID string) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID string) (model.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)

	// RunTransaction executes fn atomically against the store. itemID names
	// the item row the transaction serializes on: two transactions for the
	// same item never interleave, so a re-read inside fn always observes the
	// previous commit. If fn returns an error every write is discarded.
	RunTransaction(ctx context.Context, itemID string, fn func(tx Tx) error) error
}

// Tx is the view of the store inside a transaction. Reads observe the last
// committed state; writes become visible only when the transaction commits.
type Tx interface {
	FindItem(itemID string) (model.Item, error)
	FindLatestBidForItem(itemID string) (model.Bid, error)
	FindBid(bidID string) (model.Bid, error)
	InsertBid(bid model.Bid) error
	UpdateItem(itemID string, update ItemUpdate) (model.Item, error)
}

// UserDirectory is the user-record collaborator consumed by the fan-out and
// registration flows.
type UserDirectory interface {
	InsertUser(ctx context.Context, user model.User) error
	FindUser(ctx context.Context, userID string) (model.User, error)
	UserExists(ctx context.Context, userID string) (bool, error)
}

// ItemUpdate is a partial update of an item row. Nil fields are untouched.
// An empty *LastBidID clears the reference.
type ItemUpdate struct {
	Status    *model.ItemStatus
	LatestBid *float64
	LastBidID *string
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB and
// UserDirectory. A single mutex guards all state; RunTransaction holds it
// for the whole transaction, which trivially satisfies per-item
// serialization.
type MemoryRepo struct {
	mu            sync.RWMutex
	items         map[string]model.Item
	bids          map[string][]model.Bid // key: itemID -> bids in commit order
	bidsByID      map[string]model.Bid
	users         map[string]model.User
	notifications []model.Notification // commit order
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		items:    make(map[string]model.Item),
		bids:     make(map[string][]model.Bid),
		bidsByID: make(map[string]model.Bid),
		users:    make(map[string]model.User),
	}
}

// FindItem returns the item with the given id
func (r *MemoryRepo) FindItem(_ context.Context, itemID string) (model.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findItemLocked(itemID)
}

func (r *MemoryRepo) findItemLocked(itemID string) (model.Item, error) {
	item, ok := r.items[itemID]
	if !ok {
		return model.Item{}, fmt.Errorf("find item %s: %w", itemID, auctionerrors.ErrItemNotFound)
	}
	return item, nil
}

// InsertItem stores a new item record
func (r *MemoryRepo) InsertItem(_ context.Context, item model.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.ItemID]; ok {
		return fmt.Errorf("insert item %s: %w", item.ItemID, auctionerrors.ErrInvalidItem)
	}
	r.items[item.ItemID] = item
	return nil
}

// FindExpiredActiveItems returns active items whose end time has elapsed
func (r *MemoryRepo) FindExpiredActiveItems(_ context.Context, now time.Time) ([]model.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var expired []model.Item
	for _, item := range r.items {
		if item.Status == model.ItemStatusActive && !item.EndTime.After(now) {
			expired = append(expired, item)
		}
	}
	return expired, nil
}

// FindLatestBidForItem returns the most recently committed bid for an item
func (r *MemoryRepo) FindLatestBidForItem(_ context.Context, itemID string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findLatestBidLocked(itemID)
}

func (r *MemoryRepo) findLatestBidLocked(itemID string) (model.Bid, error) {
	bids := r.bids[itemID]
	if len(bids) == 0 {
		return model.Bid{}, fmt.Errorf("latest bid for item %s: %w", itemID, auctionerrors.ErrNoBids)
	}
	return bids[len(bids)-1], nil
}

// FindBidsByItem returns up to limit bids for an item, newest first.
// limit <= 0 returns all bids.
func (r *MemoryRepo) FindBidsByItem(_ context.Context, itemID string, limit int) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bids := r.bids[itemID]
	if len(bids) == 0 {
		return nil, fmt.Errorf("get bids for item %s: %w", itemID, auctionerrors.ErrNoBids)
	}

	out := make([]model.Bid, 0, len(bids))
	for i := len(bids) - 1; i >= 0; i-- {
		out = append(out, bids[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// FindBiddersByItem returns the distinct bidder ids for an item, in
// first-bid order
func (r *MemoryRepo) FindBiddersByItem(_ context.Context, itemID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var bidders []string
	for _, bid := range r.bids[itemID] {
		if !seen[bid.BidderID] {
			seen[bid.BidderID] = true
			bidders = append(bidders, bid.BidderID)
		}
	}
	return bidders, nil
}

// InsertNotification appends a notification record
func (r *MemoryRepo) InsertNotification(_ context.Context, n model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notifications = append(r.notifications, n)
	return nil
}

// FindNotificationsByUser returns a user's notifications, newest first
func (r *MemoryRepo) FindNotificationsByUser(_ context.Context, userID string) ([]model.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.Notification
	for i := len(r.notifications) - 1; i >= 0; i-- {
		if r.notifications[i].UserID == userID {
			out = append(out, r.notifications[i])
		}
	}
	return out, nil
}

// MarkNotificationRead flips the read flag on one notification
func (r *MemoryRepo) MarkNotificationRead(_ context.Context, notificationID string) (model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.notifications {
		if r.notifications[i].NotificationID == notificationID {
			r.notifications[i].Read = true
			return r.notifications[i], nil
		}
	}
	return model.Notification{}, fmt.Errorf("mark notification %s read: %w", notificationID, auctionerrors.ErrNotificationNotFound)
}

// MarkAllNotificationsRead marks every unread notification of a user as read
// and returns the number updated
func (r *MemoryRepo) MarkAllNotificationsRead(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated int64
	for i := range r.notifications {
		if r.notifications[i].UserID == userID && !r.notifications[i].Read {
			r.notifications[i].Read = true
			updated++
		}
	}
	return updated, nil
}

// InsertUser stores a new user record
func (r *MemoryRepo) InsertUser(_ context.Context, user model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.UserID]; ok {
		return fmt.Errorf("insert user %s: %w", user.UserID, auctionerrors.ErrUserExists)
	}
	r.users[user.UserID] = user
	return nil
}

// FindUser returns the user with the given id
func (r *MemoryRepo) FindUser(_ context.Context, userID string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[userID]
	if !ok {
		return model.User{}, fmt.Errorf("find user %s: %w", userID, auctionerrors.ErrUserNotFound)
	}
	return user, nil
}

// UserExists reports whether a user record exists
func (r *MemoryRepo) UserExists(_ context.Context, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.users[userID]
	return ok, nil
}

// RunTransaction runs fn under the repository lock with buffered writes:
// nothing fn writes is visible until it returns nil. The lock is held for
// the whole call, so transactions are fully serialized.
func (r *MemoryRepo) RunTransaction(_ context.Context, itemID string, fn func(tx Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memoryTx{repo: r}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commitLocked()
	return nil
}

// memoryTx buffers writes against a MemoryRepo until commit. The repo mutex
// is already held by RunTransaction.
type memoryTx struct {
	repo           *MemoryRepo
	pendingBids    []model.Bid
	pendingUpdates []pendingItemUpdate
}

type pendingItemUpdate struct {
	itemID string
	item   model.Item
}

func (t *memoryTx) FindItem(itemID string) (model.Item, error) {
	return t.repo.findItemLocked(itemID)
}

func (t *memoryTx) FindLatestBidForItem(itemID string) (model.Bid, error) {
	return t.repo.findLatestBidLocked(itemID)
}

func (t *memoryTx) FindBid(bidID string) (model.Bid, error) {
	bid, ok := t.repo.bidsByID[bidID]
	if !ok {
		return model.Bid{}, fmt.Errorf("find bid %s: %w", bidID, auctionerrors.ErrBidNotFound)
	}
	return bid, nil
}

func (t *memoryTx) InsertBid(bid model.Bid) error {
	if _, err := t.repo.findItemLocked(bid.ItemID); err != nil {
		return fmt.Errorf("insert bid %s: %w", bid.BidID, auctionerrors.ErrItemNotFound)
	}
	t.pendingBids = append(t.pendingBids, bid)
	return nil
}

func (t *memoryTx) UpdateItem(itemID string, update ItemUpdate) (model.Item, error) {
	item, err := t.repo.findItemLocked(itemID)
	if err != nil {
		return model.Item{}, err
	}

	if update.Status != nil {
		item.Status = *update.Status
	}
	if update.LatestBid != nil {
		item.LatestBid = *update.LatestBid
	}
	if update.LastBidID != nil {
		item.LastBidID = *update.LastBidID
	}

	t.pendingUpdates = append(t.pendingUpdates, pendingItemUpdate{itemID: itemID, item: item})
	return item, nil
}

func (t *memoryTx) commitLocked() {
	for _, bid := range t.pendingBids {
		t.repo.bids[bid.ItemID] = append(t.repo.bids[bid.ItemID], bid)
		t.repo.bidsByID[bid.BidID] = bid
	}
	for _, upd := range t.pendingUpdates {
		t.repo.items[upd.itemID] = upd.item
	}
}
