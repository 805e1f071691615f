package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bidify/internal/auctionerrors"
	bidding "bidify/internal/biddingService"
	model "bidify/internal/models"
	"bidify/services/auction/helpers"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func performRequest(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// Test PlaceBidHandler
func TestPlaceBidHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockBidding := NewMockBiddingServiceInterface(ctrl)
	h := NewAuctionHandler(mockBidding, NewMockNotificationServiceInterface(ctrl))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/bids", h.PlaceBidHandler)

	now := time.Now().UTC()

	tests := []struct {
		name           string
		requestBody    any
		mockSetup      func()
		expectedStatus int
		validateData   func(t *testing.T, data map[string]any)
	}{
		{
			name: "success_valid_bid",
			requestBody: helpers.PlaceBidRequest{
				ItemID:             "item1",
				BidderID:           "user1",
				IncrementBidAmount: 50,
			},
			mockSetup: func() {
				mockBidding.EXPECT().
					PlaceBid(gomock.Any(), "item1", "user1", 50.0).
					Return(bidding.PlaceBidResult{
						Bid: model.Bid{
							BidID:              uuid.NewString(),
							ItemID:             "item1",
							BidderID:           "user1",
							IncrementBidAmount: 50,
							LastBidAmount:      100,
							LatestBidAmount:    150,
							CreatedAt:          now,
						},
					}, nil)
			},
			expectedStatus: http.StatusCreated,
			validateData: func(t *testing.T, data map[string]any) {
				_, parseErr := uuid.Parse(data["bid_id"].(string))
				require.NoError(t, parseErr, "BidID should be a valid UUID")
				require.Equal(t, "item1", data["item_id"])
				require.Equal(t, "user1", data["bidder_id"])
				require.Equal(t, 100.0, data["last_bid_amount"])
				require.Equal(t, 150.0, data["latest_bid_amount"])
			},
		},
		{
			name:           "invalid_json",
			requestBody:    `{invalid json}`,
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "missing_required_fields",
			requestBody: helpers.PlaceBidRequest{
				ItemID: "item1",
			},
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "item_not_found",
			requestBody: helpers.PlaceBidRequest{
				ItemID:             "itemX",
				BidderID:           "user1",
				IncrementBidAmount: 50,
			},
			mockSetup: func() {
				mockBidding.EXPECT().
					PlaceBid(gomock.Any(), "itemX", "user1", 50.0).
					Return(bidding.PlaceBidResult{}, fmt.Errorf("service: %w", auctionerrors.ErrItemNotFound))
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "seller_bids_own_item",
			requestBody: helpers.PlaceBidRequest{
				ItemID:             "item1",
				BidderID:           "seller1",
				IncrementBidAmount: 50,
			},
			mockSetup: func() {
				mockBidding.EXPECT().
					PlaceBid(gomock.Any(), "item1", "seller1", 50.0).
					Return(bidding.PlaceBidResult{}, fmt.Errorf("service: %w", auctionerrors.ErrSellerBid))
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name: "increment_below_minimum",
			requestBody: helpers.PlaceBidRequest{
				ItemID:             "item1",
				BidderID:           "user1",
				IncrementBidAmount: 1,
			},
			mockSetup: func() {
				mockBidding.EXPECT().
					PlaceBid(gomock.Any(), "item1", "user1", 1.0).
					Return(bidding.PlaceBidResult{}, fmt.Errorf("service: %w", auctionerrors.ErrIncrementTooLow))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "auction_closed",
			requestBody: helpers.PlaceBidRequest{
				ItemID:             "item1",
				BidderID:           "user1",
				IncrementBidAmount: 50,
			},
			mockSetup: func() {
				mockBidding.EXPECT().
					PlaceBid(gomock.Any(), "item1", "user1", 50.0).
					Return(bidding.PlaceBidResult{}, fmt.Errorf("service: %w", auctionerrors.ErrAuctionNotBiddable))
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "internal_error",
			requestBody: helpers.PlaceBidRequest{
				ItemID:             "item1",
				BidderID:           "user1",
				IncrementBidAmount: 50,
			},
			mockSetup: func() {
				mockBidding.EXPECT().
					PlaceBid(gomock.Any(), "item1", "user1", 50.0).
					Return(bidding.PlaceBidResult{}, fmt.Errorf("service: transaction aborted"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()

			rec := performRequest(t, router, http.MethodPost, "/bids", tc.requestBody)
			require.Equal(t, tc.expectedStatus, rec.Code)

			if tc.validateData != nil {
				body := decodeBody(t, rec)
				data, ok := body["data"].(map[string]any)
				require.True(t, ok)
				tc.validateData(t, data)
			}
		})
	}
}

// Test GetBidsByItemHandler
func TestGetBidsByItemHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockBidding := NewMockBiddingServiceInterface(ctrl)
	h := NewAuctionHandler(mockBidding, NewMockNotificationServiceInterface(ctrl))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/items/:item_id/bids", h.GetBidsByItemHandler)

	t.Run("returns_latest_bids", func(t *testing.T) {
		bids := []model.Bid{
			{BidID: "bid2", ItemID: "item1", BidderID: "user2", LatestBidAmount: 150},
			{BidID: "bid1", ItemID: "item1", BidderID: "user1", LatestBidAmount: 120},
		}
		mockBidding.EXPECT().GetBidsForItem(gomock.Any(), "item1", 10).Return(bids, nil)

		rec := performRequest(t, router, http.MethodGet, "/items/item1/bids", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		data, ok := body["data"].([]any)
		require.True(t, ok)
		require.Len(t, data, 2)
	})

	t.Run("no_bids_is_empty_list", func(t *testing.T) {
		mockBidding.EXPECT().GetBidsForItem(gomock.Any(), "item2", 10).
			Return(nil, fmt.Errorf("service: %w", auctionerrors.ErrNoBids))

		rec := performRequest(t, router, http.MethodGet, "/items/item2/bids", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		data, ok := body["data"].([]any)
		require.True(t, ok)
		require.Empty(t, data)
	})
}

// Test GetWinningBidHandler
func TestGetWinningBidHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockBidding := NewMockBiddingServiceInterface(ctrl)
	h := NewAuctionHandler(mockBidding, NewMockNotificationServiceInterface(ctrl))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/items/:item_id/winning", h.GetWinningBidHandler)

	t.Run("returns_winning_bid", func(t *testing.T) {
		mockBidding.EXPECT().GetWinningBid(gomock.Any(), "item1").
			Return(model.Bid{BidID: "bid1", ItemID: "item1", BidderID: "user1", LatestBidAmount: 150}, nil)

		rec := performRequest(t, router, http.MethodGet, "/items/item1/winning", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		data, ok := body["data"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "bid1", data["bid_id"])
		require.Equal(t, 150.0, data["latest_bid_amount"])
	})

	t.Run("no_bids_is_404", func(t *testing.T) {
		mockBidding.EXPECT().GetWinningBid(gomock.Any(), "item2").
			Return(model.Bid{}, fmt.Errorf("service: %w", auctionerrors.ErrNoBids))

		rec := performRequest(t, router, http.MethodGet, "/items/item2/winning", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

// Test CreateItemHandler
func TestCreateItemHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockBidding := NewMockBiddingServiceInterface(ctrl)
	h := NewAuctionHandler(mockBidding, NewMockNotificationServiceInterface(ctrl))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/items", h.CreateItemHandler)

	future := time.Now().UTC().Add(24 * time.Hour)

	t.Run("creates_item", func(t *testing.T) {
		mockBidding.EXPECT().CreateItem(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, item model.Item) (model.Item, error) {
				require.Equal(t, "Vintage Camera", item.Title)
				require.Equal(t, "seller1", item.SellerID)
				item.ItemID = uuid.NewString()
				item.Status = model.ItemStatusActive
				return item, nil
			})

		rec := performRequest(t, router, http.MethodPost, "/items", helpers.CreateItemRequest{
			Title:               "Vintage Camera",
			SellerID:            "seller1",
			StartingBid:         100,
			MinimumBidIncrement: 10,
			EndTime:             future,
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		body := decodeBody(t, rec)
		data, ok := body["data"].(map[string]any)
		require.True(t, ok)
		require.NotEmpty(t, data["item_id"])
		require.Equal(t, "active", data["status"])
	})

	t.Run("unknown_seller_is_404", func(t *testing.T) {
		mockBidding.EXPECT().CreateItem(gomock.Any(), gomock.Any()).
			Return(model.Item{}, fmt.Errorf("service: %w", auctionerrors.ErrUserNotFound))

		rec := performRequest(t, router, http.MethodPost, "/items", helpers.CreateItemRequest{
			Title:               "Vintage Camera",
			SellerID:            "ghost",
			StartingBid:         100,
			MinimumBidIncrement: 10,
			EndTime:             future,
		})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing_fields_rejected_by_binding", func(t *testing.T) {
		rec := performRequest(t, router, http.MethodPost, "/items", map[string]any{"title": "Lamp"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// Test RegisterUserHandler
func TestRegisterUserHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockBidding := NewMockBiddingServiceInterface(ctrl)
	h := NewAuctionHandler(mockBidding, NewMockNotificationServiceInterface(ctrl))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/users", h.RegisterUserHandler)

	t.Run("registers_user_with_welcome_notification", func(t *testing.T) {
		welcome := model.Notification{
			NotificationID: uuid.NewString(),
			Type:           model.NotificationRegistration,
			Message:        "Welcome to Bidify! Your account has been successfully created.",
		}
		mockBidding.EXPECT().RegisterUser(gomock.Any(), "alice").
			Return(model.User{UserID: uuid.NewString(), Username: "alice"}, &welcome, nil)

		rec := performRequest(t, router, http.MethodPost, "/users", helpers.RegisterUserRequest{Username: "alice"})
		require.Equal(t, http.StatusCreated, rec.Code)

		body := decodeBody(t, rec)
		data, ok := body["data"].(map[string]any)
		require.True(t, ok)
		user, ok := data["user"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "alice", user["username"])
		require.Contains(t, data, "notification")
	})

	t.Run("duplicate_user_is_conflict", func(t *testing.T) {
		mockBidding.EXPECT().RegisterUser(gomock.Any(), "alice").
			Return(model.User{}, nil, fmt.Errorf("service: %w", auctionerrors.ErrUserExists))

		rec := performRequest(t, router, http.MethodPost, "/users", helpers.RegisterUserRequest{Username: "alice"})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing_username", func(t *testing.T) {
		rec := performRequest(t, router, http.MethodPost, "/users", map[string]any{})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// Test notification handlers
func TestNotificationHandlers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockNotifications := NewMockNotificationServiceInterface(ctrl)
	h := NewAuctionHandler(NewMockBiddingServiceInterface(ctrl), mockNotifications)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/users/:user_id/notifications", h.GetNotificationsHandler)
	router.PATCH("/users/:user_id/notifications/read", h.MarkAllNotificationsReadHandler)
	router.PATCH("/notifications/:notification_id/read", h.MarkNotificationReadHandler)

	t.Run("list_notifications", func(t *testing.T) {
		mockNotifications.EXPECT().GetForUser(gomock.Any(), "user1").
			Return([]model.Notification{
				{NotificationID: "n2", UserID: "user1", Type: model.NotificationOutbid},
				{NotificationID: "n1", UserID: "user1", Type: model.NotificationBidPlaced},
			}, nil)

		rec := performRequest(t, router, http.MethodGet, "/users/user1/notifications", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		data, ok := body["data"].([]any)
		require.True(t, ok)
		require.Len(t, data, 2)
	})

	t.Run("empty_list_for_quiet_user", func(t *testing.T) {
		mockNotifications.EXPECT().GetForUser(gomock.Any(), "user2").Return(nil, nil)

		rec := performRequest(t, router, http.MethodGet, "/users/user2/notifications", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		data, ok := body["data"].([]any)
		require.True(t, ok)
		require.Empty(t, data)
	})

	t.Run("mark_one_read", func(t *testing.T) {
		mockNotifications.EXPECT().MarkRead(gomock.Any(), "n1").
			Return(model.Notification{NotificationID: "n1", Read: true}, nil)

		rec := performRequest(t, router, http.MethodPatch, "/notifications/n1/read", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		data, ok := body["data"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, true, data["read"])
	})

	t.Run("mark_missing_notification", func(t *testing.T) {
		mockNotifications.EXPECT().MarkRead(gomock.Any(), "ghost").
			Return(model.Notification{}, fmt.Errorf("service: %w", auctionerrors.ErrNotificationNotFound))

		rec := performRequest(t, router, http.MethodPatch, "/notifications/ghost/read", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("mark_all_read", func(t *testing.T) {
		mockNotifications.EXPECT().MarkAllRead(gomock.Any(), "user1").Return(int64(3), nil)

		rec := performRequest(t, router, http.MethodPatch, "/users/user1/notifications/read", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		data, ok := body["data"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, 3.0, data["updated"])
	})
}
