package notification

import (
	"context"
	"fmt"
	"time"

	"bidify/internal/auctionerrors"
	model "bidify/internal/models"
	"bidify/internal/repository"
	"bidify/utils"
)

// Service creates notification records and computes the recipient set for
// each domain event. Creation is independent per recipient: a failure for
// one user is logged and skipped, never aborting the triggering operation.
type Service struct {
	store repository.AuctionDB
	users repository.UserDirectory
}

// NewService creates a new notification Service instance
func NewService(store repository.AuctionDB, users repository.UserDirectory) *Service {
	return &Service{store: store, users: users}
}

// BidPlacedResult is the fan-out of one successful bid. The gateway routes
// each entry to the matching user's live connection.
type BidPlacedResult struct {
	BidderNotification  *model.Notification
	OutbidNotifications []model.Notification
}

// ClosureResult is the fan-out of one auction closure.
type ClosureResult struct {
	WinnerNotification *model.Notification
	EndedNotifications []model.Notification
	SellerNotification *model.Notification
}

// OnBidPlaced creates a BID_PLACED notification for the bidder and an OUTBID
// notification for every distinct prior bidder on the item other than the
// new bidder.
func (s *Service) OnBidPlaced(ctx context.Context, item model.Item, bid model.Bid) (BidPlacedResult, error) {
	var result BidPlacedResult

	placed, err := s.create(ctx, bid.BidderID, item.ItemID, model.NotificationBidPlaced,
		fmt.Sprintf("You have placed a bid of $%.2f on %s", bid.LatestBidAmount, item.Title),
		"Bid Placed")
	if err != nil {
		utils.Warn("fanout: failed to notify bidder", map[string]any{
			"item_id": item.ItemID, "user_id": bid.BidderID, "error": err.Error(),
		})
	} else {
		result.BidderNotification = &placed
	}

	bidders, err := s.store.FindBiddersByItem(ctx, item.ItemID)
	if err != nil {
		return result, fmt.Errorf("fanout: bidders for item %s: %w", item.ItemID, err)
	}

	for _, userID := range bidders {
		if userID == bid.BidderID {
			continue
		}
		outbid, err := s.create(ctx, userID, item.ItemID, model.NotificationOutbid,
			fmt.Sprintf("You have been outbid on %s. Current bid is $%.2f.", item.Title, bid.LatestBidAmount),
			"Outbid")
		if err != nil {
			utils.Warn("fanout: failed to notify outbid user", map[string]any{
				"item_id": item.ItemID, "user_id": userID, "error": err.Error(),
			})
			continue
		}
		result.OutbidNotifications = append(result.OutbidNotifications, outbid)
	}

	return result, nil
}

// OnAuctionClosed fans out a closure. With a winning bid: AUCTION_WON to the
// winner, AUCTION_END to every other distinct bidder, and AUCTION_END naming
// the winner to the seller. Without one the item was canceled: the seller
// gets AUCTION_CANCELED and there is nobody else to notify.
func (s *Service) OnAuctionClosed(ctx context.Context, item model.Item, winning *model.Bid) (ClosureResult, error) {
	var result ClosureResult

	if winning == nil {
		canceled, err := s.create(ctx, item.SellerID, item.ItemID, model.NotificationAuctionCanceled,
			fmt.Sprintf("The auction for %q has ended with no bids.", item.Title),
			"Auction Canceled")
		if err != nil {
			utils.Warn("fanout: failed to notify seller of canceled auction", map[string]any{
				"item_id": item.ItemID, "user_id": item.SellerID, "error": err.Error(),
			})
			return result, nil
		}
		result.SellerNotification = &canceled
		return result, nil
	}

	won, err := s.create(ctx, winning.BidderID, item.ItemID, model.NotificationAuctionWon,
		fmt.Sprintf("Congratulations! You won the auction for %q.", item.Title),
		"Auction Won")
	if err != nil {
		utils.Warn("fanout: failed to notify winner", map[string]any{
			"item_id": item.ItemID, "user_id": winning.BidderID, "error": err.Error(),
		})
	} else {
		result.WinnerNotification = &won
	}

	bidders, err := s.store.FindBiddersByItem(ctx, item.ItemID)
	if err != nil {
		return result, fmt.Errorf("fanout: bidders for item %s: %w", item.ItemID, err)
	}
	for _, userID := range bidders {
		if userID == winning.BidderID {
			continue
		}
		ended, err := s.create(ctx, userID, item.ItemID, model.NotificationAuctionEnd,
			fmt.Sprintf("The auction for %q has ended.", item.Title),
			"Auction Ended")
		if err != nil {
			utils.Warn("fanout: failed to notify bidder of ended auction", map[string]any{
				"item_id": item.ItemID, "user_id": userID, "error": err.Error(),
			})
			continue
		}
		result.EndedNotifications = append(result.EndedNotifications, ended)
	}

	winnerName := winning.BidderID
	if winner, err := s.users.FindUser(ctx, winning.BidderID); err == nil {
		winnerName = winner.Username
	}
	seller, err := s.create(ctx, item.SellerID, item.ItemID, model.NotificationAuctionEnd,
		fmt.Sprintf("The auction for %q has ended. The winner is %s.", item.Title, winnerName),
		"Auction Ended")
	if err != nil {
		utils.Warn("fanout: failed to notify seller", map[string]any{
			"item_id": item.ItemID, "user_id": item.SellerID, "error": err.Error(),
		})
	} else {
		result.SellerNotification = &seller
	}

	return result, nil
}

// OnRegistration creates the welcome notification for a new account.
func (s *Service) OnRegistration(ctx context.Context, user model.User) (model.Notification, error) {
	return s.create(ctx, user.UserID, "", model.NotificationRegistration,
		"Welcome to Bidify! Your account has been successfully created.",
		"New Account")
}

// create persists one notification after checking the recipient exists.
func (s *Service) create(ctx context.Context, userID, itemID string, typ model.NotificationType, message, preview string) (model.Notification, error) {
	if userID == "" {
		return model.Notification{}, fmt.Errorf("create notification: %w", auctionerrors.ErrUserNotFound)
	}
	exists, err := s.users.UserExists(ctx, userID)
	if err != nil {
		return model.Notification{}, fmt.Errorf("create notification for user %s: %w", userID, err)
	}
	if !exists {
		return model.Notification{}, fmt.Errorf("create notification for user %s: %w", userID, auctionerrors.ErrUserNotFound)
	}

	n := model.Notification{
		NotificationID: utils.GenerateID(),
		UserID:         userID,
		ItemID:         itemID,
		Type:           typ,
		Message:        message,
		Preview:        preview,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.InsertNotification(ctx, n); err != nil {
		return model.Notification{}, fmt.Errorf("persist notification for user %s: %w", userID, err)
	}
	return n, nil
}

// GetForUser returns a user's notifications, newest first.
func (s *Service) GetForUser(ctx context.Context, userID string) ([]model.Notification, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", auctionerrors.ErrUserNotFound)
	}
	notifications, err := s.store.FindNotificationsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get notifications for user %s: %w", userID, err)
	}
	return notifications, nil
}

// MarkRead marks one notification as read and returns the updated record.
func (s *Service) MarkRead(ctx context.Context, notificationID string) (model.Notification, error) {
	if notificationID == "" {
		return model.Notification{}, fmt.Errorf("service: %w - empty notification ID", auctionerrors.ErrNotificationNotFound)
	}
	n, err := s.store.MarkNotificationRead(ctx, notificationID)
	if err != nil {
		return model.Notification{}, fmt.Errorf("service: failed to mark notification %s read: %w", notificationID, err)
	}
	return n, nil
}

// MarkAllRead marks every unread notification of a user as read.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, fmt.Errorf("service: %w - empty user ID", auctionerrors.ErrUserNotFound)
	}
	updated, err := s.store.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("service: failed to mark notifications read for user %s: %w", userID, err)
	}
	return updated, nil
}
