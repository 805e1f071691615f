package integrationtests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	bidding "bidify/internal/biddingService"
	model "bidify/internal/models"
	"bidify/internal/notification"
	"bidify/internal/repository"
	"bidify/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// testEnv bundles the wired application with direct store access for seeding.
type testEnv struct {
	router *gin.Engine
	repo   *repository.MemoryRepo
}

// setupEnv wires the full HTTP stack on an in-memory store.
func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	fanout := notification.NewService(repo, repo)
	service := bidding.NewBiddingService(repo, repo, fanout)
	router := server.SetupRouter(service, fanout, nil)

	return &testEnv{router: router, repo: repo}
}

// seedUser inserts a user record directly into the store.
func (e *testEnv) seedUser(t *testing.T, userID string) {
	t.Helper()
	require.NoError(t, e.repo.InsertUser(context.Background(), model.User{UserID: userID, Username: userID}))
}

// seedItem inserts an active item ending in an hour.
func (e *testEnv) seedItem(t *testing.T, itemID, sellerID string, startingBid, minIncrement float64) {
	t.Helper()
	require.NoError(t, e.repo.InsertItem(context.Background(), model.Item{
		ItemID:              itemID,
		Title:               itemID + " title",
		Description:         itemID + " description",
		SellerID:            sellerID,
		StartingBid:         startingBid,
		LatestBid:           startingBid,
		MinimumBidIncrement: minIncrement,
		Status:              model.ItemStatusActive,
		EndTime:             time.Now().UTC().Add(time.Hour),
	}))
}

// ExecuteRequestAndParse executes an HTTP request on the router and parses the
// JSON response. For 2xx responses the "data" field is returned.
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if w.Code >= 200 && w.Code < 300 {
			return resp["data"], w
		}
	}
	return resp, w
}

// dataObject asserts the parsed response body is a JSON object.
func dataObject(t *testing.T, data any) map[string]any {
	t.Helper()
	obj, ok := data.(map[string]any)
	require.True(t, ok, "expected object response, got %T", data)
	return obj
}

// dataList asserts the parsed response body is a JSON array.
func dataList(t *testing.T, data any) []any {
	t.Helper()
	if data == nil {
		return nil
	}
	list, ok := data.([]any)
	require.True(t, ok, "expected list response, got %T", data)
	return list
}
