package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/link/internal/handlers"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	User         *handlers.UserHandler
	Event        *handlers.EventHandler
	Participant  *handlers.ParticipantHandler
	Availability *handlers.AvailabilityHandler
	Group        *handlers.GroupHandler
	Message      *handlers.HTTPMessageHandler
	AI           *handlers.AIHandler
	WebSocket    *handlers.WebSocketHandler
}

func APIEndpoints(r *gin.Engine, h Handlers, authMW, wsAuthMW gin.HandlerFunc) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Auth endpoints
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/logout", authMW, h.Auth.Logout)
	}

	r.GET("/ws", wsAuthMW, h.WebSocket.HandleWebSocket)

	api := r.Group("/api", authMW)
	{
		users := api.Group("/users")
		users.GET("/me", h.User.GetMe)
		users.PATCH("/me", h.User.UpdateMe)
		users.GET("/nearby", h.User.Nearby)
		users.GET("/:id", h.User.GetUser)
		users.GET("/:id/compatibility", h.User.Compatibility)
		users.GET("/:id/matches", h.User.Matches)

		events := api.Group("/events")
		events.POST("", h.Event.CreateEvent)
		events.GET("", h.Event.ListEvents)
		events.GET("/nearby", h.Event.Nearby)
		events.GET("/recommended", h.Event.Recommended)
		events.GET("/user/:userId", h.Event.UserEvents)
		events.GET("/:id", h.Event.GetEvent)
		events.PATCH("/:id", h.Event.UpdateEvent)
		events.GET("/:id/matches", h.Event.Matches)

		participants := api.Group("/event-participants")
		participants.POST("", h.Participant.Respond)
		participants.GET("/:id", h.Participant.List)
		participants.PATCH("/:id", h.Participant.Update)

		availability := api.Group("/availability")
		availability.POST("", h.Availability.SetAvailability)
		availability.GET("/user/:userId", h.Availability.GetUserAvailability)
		availability.GET("/date/:date", h.Availability.UsersOnDate)
		availability.POST("/mutual", h.Availability.MutualSlots)

		groups := api.Group("/groups")
		groups.POST("", h.Group.CreateGroup)
		groups.GET("/mine", h.Group.GetMyGroups)
		groups.GET("/:id", h.Group.GetGroup)
		groups.GET("/:id/members", h.Group.GetMembers)
		groups.GET("/:id/presence", h.Group.Presence)
		groups.POST("/:id/members", h.Group.AddMember)
		groups.DELETE("/:id/members/:userId", h.Group.RemoveMember)
		groups.GET("/:id/messages", h.Message.GetGroupMessages)
		groups.POST("/:id/messages", h.Message.PostMessage)
		groups.POST("/:id/votes", h.Message.CastVote)
		groups.GET("/:id/votes/:eventId", h.Message.GetVotes)
		groups.GET("/:id/suggested-time", h.Group.SuggestedTime)

		ai := api.Group("/ai")
		ai.POST("/mutual-time", h.AI.MutualTime)
		ai.POST("/generate-tags", h.AI.GenerateTags)
	}
}
