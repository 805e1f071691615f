package bidding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bidify/internal/auctionerrors"
	"bidify/internal/models"
	"bidify/internal/notification"
	"bidify/internal/repository"
	"bidify/utils"
)

// Fanout is the slice of the notification service the bidding engine
// triggers after a commit.
type Fanout interface {
	OnBidPlaced(ctx context.Context, item models.Item, bid models.Bid) (notification.BidPlacedResult, error)
	OnRegistration(ctx context.Context, user models.User) (models.Notification, error)
}

// BiddingService defines the business logic for auction bidding
type BiddingService struct {
	store  repository.AuctionDB
	users  repository.UserDirectory
	fanout Fanout
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(store repository.AuctionDB, users repository.UserDirectory, fanout Fanout) *BiddingService {
	return &BiddingService{
		store:  store,
		users:  users,
		fanout: fanout,
	}
}

// PlaceBidResult carries the committed bid, the item state after the
// commit, and the notification fan-out for the caller to route.
type PlaceBidResult struct {
	Bid    models.Bid
	Item   models.Item
	Fanout notification.BidPlacedResult
}

// PlaceBid validates and atomically records a bid for an item.
//
// Preconditions are checked in order, each with its own failure: item must
// exist, auction must be active and not past its end time, the bidder must
// not be the seller, and the increment must meet the item's minimum. They
// are re-validated inside the transaction, so a bid racing the closing
// sweep loses cleanly instead of mutating a closed item.
func (s *BiddingService) PlaceBid(ctx context.Context, itemID, bidderID string, incrementBidAmount float64) (PlaceBidResult, error) {
	if itemID == "" || bidderID == "" {
		return PlaceBidResult{}, fmt.Errorf("service: %w - missing itemID or bidderID", auctionerrors.ErrInvalidBid)
	}
	if incrementBidAmount <= 0 {
		return PlaceBidResult{}, fmt.Errorf("service: %w - non-positive increment", auctionerrors.ErrInvalidBid)
	}

	item, err := s.store.FindItem(ctx, itemID)
	if err != nil {
		return PlaceBidResult{}, fmt.Errorf("service: %w", err)
	}
	if err := validateBidAgainstItem(item, bidderID, incrementBidAmount, time.Now().UTC()); err != nil {
		return PlaceBidResult{}, err
	}

	var (
		bid     models.Bid
		updated models.Item
	)
	err = s.store.RunTransaction(ctx, itemID, func(tx repository.Tx) error {
		current, err := tx.FindItem(itemID)
		if err != nil {
			return err
		}
		if err := validateBidAgainstItem(current, bidderID, incrementBidAmount, time.Now().UTC()); err != nil {
			return err
		}

		priorAmount := current.StartingBid
		if last, err := tx.FindLatestBidForItem(itemID); err == nil {
			priorAmount = last.LatestBidAmount
		} else if !errors.Is(err, auctionerrors.ErrNoBids) {
			return err
		}

		bid = models.Bid{
			BidID:              utils.GenerateID(),
			ItemID:             itemID,
			BidderID:           bidderID,
			IncrementBidAmount: incrementBidAmount,
			LastBidAmount:      priorAmount,
			LatestBidAmount:    priorAmount + incrementBidAmount,
			CreatedAt:          time.Now().UTC(),
		}
		if err := tx.InsertBid(bid); err != nil {
			return err
		}

		updated, err = tx.UpdateItem(itemID, repository.ItemUpdate{
			LatestBid: &bid.LatestBidAmount,
			LastBidID: &bid.BidID,
		})
		return err
	})
	if err != nil {
		return PlaceBidResult{}, fmt.Errorf("service: failed to place bid on item %s by user %s: %w", itemID, bidderID, err)
	}

	result := PlaceBidResult{Bid: bid, Item: updated}

	// Delivery is best-effort: the bid is committed regardless of whether
	// notifications could be created.
	fanout, err := s.fanout.OnBidPlaced(ctx, updated, bid)
	if err != nil {
		utils.Warn("service: bid fan-out failed", map[string]any{
			"item_id": itemID,
			"bid_id":  bid.BidID,
			"error":   err.Error(),
		})
	}
	result.Fanout = fanout

	return result, nil
}

// validateBidAgainstItem applies the ordered bid preconditions for an
// already-loaded item.
func validateBidAgainstItem(item models.Item, bidderID string, increment float64, now time.Time) error {
	if !item.Biddable(now) {
		return fmt.Errorf("service: %w - item %s is %s", auctionerrors.ErrAuctionNotBiddable, item.ItemID, item.Status)
	}
	if item.SellerID == bidderID {
		return fmt.Errorf("service: %w - item %s", auctionerrors.ErrSellerBid, item.ItemID)
	}
	if increment < item.MinimumBidIncrement {
		return fmt.Errorf("service: %w - minimum is %.2f", auctionerrors.ErrIncrementTooLow, item.MinimumBidIncrement)
	}
	return nil
}

// GetBidsForItem returns the latest bids for an item, newest first,
// capped at limit.
func (s *BiddingService) GetBidsForItem(ctx context.Context, itemID string, limit int) ([]models.Bid, error) {
	if itemID == "" {
		return nil, fmt.Errorf("service: %w - empty item ID", auctionerrors.ErrInvalidBid)
	}

	bids, err := s.store.FindBidsByItem(ctx, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for item %s: %w", itemID, err)
	}
	return bids, nil
}

// GetWinningBid returns the leading bid for an item: the most recently
// committed one, whose LatestBidAmount is the current price.
func (s *BiddingService) GetWinningBid(ctx context.Context, itemID string) (models.Bid, error) {
	if itemID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - empty item ID", auctionerrors.ErrInvalidBid)
	}

	bid, err := s.store.FindLatestBidForItem(ctx, itemID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to get winning bid for item %s: %w", itemID, err)
	}
	return bid, nil
}

// GetItem returns a single item.
func (s *BiddingService) GetItem(ctx context.Context, itemID string) (models.Item, error) {
	if itemID == "" {
		return models.Item{}, fmt.Errorf("service: %w - empty item ID", auctionerrors.ErrInvalidItem)
	}

	item, err := s.store.FindItem(ctx, itemID)
	if err != nil {
		return models.Item{}, fmt.Errorf("service: %w", err)
	}
	return item, nil
}

// CreateItem validates and stores a new active listing.
func (s *BiddingService) CreateItem(ctx context.Context, item models.Item) (models.Item, error) {
	if item.Title == "" || item.SellerID == "" {
		return models.Item{}, fmt.Errorf("service: %w - missing title or sellerID", auctionerrors.ErrInvalidItem)
	}
	if item.StartingBid < 0 {
		return models.Item{}, fmt.Errorf("service: %w - negative starting bid", auctionerrors.ErrInvalidItem)
	}
	if item.MinimumBidIncrement <= 0 {
		return models.Item{}, fmt.Errorf("service: %w - non-positive minimum increment", auctionerrors.ErrInvalidItem)
	}
	now := time.Now().UTC()
	if !item.EndTime.After(now) {
		return models.Item{}, fmt.Errorf("service: %w - end time must be in the future", auctionerrors.ErrInvalidItem)
	}
	if exists, err := s.users.UserExists(ctx, item.SellerID); err != nil {
		return models.Item{}, fmt.Errorf("service: failed to check seller %s: %w", item.SellerID, err)
	} else if !exists {
		return models.Item{}, fmt.Errorf("service: seller %s: %w", item.SellerID, auctionerrors.ErrUserNotFound)
	}

	item.ItemID = utils.GenerateID()
	item.Status = models.ItemStatusActive
	item.LatestBid = item.StartingBid
	item.LastBidID = ""
	item.CreatedAt = now

	if err := s.store.InsertItem(ctx, item); err != nil {
		return models.Item{}, fmt.Errorf("service: failed to create item: %w", err)
	}
	return item, nil
}

// RegisterUser creates a user record and its welcome notification. The
// notification is best-effort; the account exists either way.
func (s *BiddingService) RegisterUser(ctx context.Context, username string) (models.User, *models.Notification, error) {
	if username == "" {
		return models.User{}, nil, fmt.Errorf("service: %w - empty username", auctionerrors.ErrInvalidUser)
	}

	user := models.User{
		UserID:   utils.GenerateID(),
		Username: username,
	}
	if err := s.users.InsertUser(ctx, user); err != nil {
		return models.User{}, nil, fmt.Errorf("service: failed to register user %s: %w", username, err)
	}

	welcome, err := s.fanout.OnRegistration(ctx, user)
	if err != nil {
		utils.Warn("service: registration notification failed", map[string]any{
			"user_id": user.UserID,
			"error":   err.Error(),
		})
		return user, nil, nil
	}
	return user, &welcome, nil
}
