package server

import (
	bidding "bidify/internal/biddingService"
	"bidify/internal/notification"
	"bidify/internal/realtime"
	handler "bidify/services/auction/handler"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(biddingService *bidding.BiddingService, notificationService *notification.Service, gateway *realtime.Gateway) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	auctionHandler := handler.NewAuctionHandler(biddingService, notificationService)

	if gateway != nil {
		router.GET("/ws", gateway.ServeWS)
	}

	bids := router.Group("/bids")
	{
		bids.POST("", auctionHandler.PlaceBidHandler)
	}

	items := router.Group("/items")
	{
		items.POST("", auctionHandler.CreateItemHandler)
		items.GET("/:item_id", auctionHandler.GetItemHandler)
		items.GET("/:item_id/bids", auctionHandler.GetBidsByItemHandler)
		items.GET("/:item_id/winning", auctionHandler.GetWinningBidHandler)
	}

	users := router.Group("/users")
	{
		users.POST("", auctionHandler.RegisterUserHandler)
		users.GET("/:user_id/notifications", auctionHandler.GetNotificationsHandler)
		users.PATCH("/:user_id/notifications/read", auctionHandler.MarkAllNotificationsReadHandler)
	}

	notifications := router.Group("/notifications")
	{
		notifications.PATCH("/:notification_id/read", auctionHandler.MarkNotificationReadHandler)
	}

	return router
}
