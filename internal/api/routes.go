package api

import (
	"net/http"

	"peakform/coach-app/internal/domain"
	"peakform/coach-app/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	coachService service.CoachService,
	athleteService service.AthleteService,
) {
	authHandler := NewAuthHandler(authService)
	coachHandler := NewCoachHandler(coachService)
	athleteHandler := NewAthleteHandler(athleteService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userIDStr, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			role, _ := getUserRoleFromContext(c)
			c.JSON(http.StatusOK, gin.H{"userId": userIDStr, "role": role})
		})

		// --- Coach Routes ---
		coachGroup := protected.Group("/coach")
		coachGroup.Use(RoleMiddleware(domain.RoleCoach))
		{
			// Roster
			coachGroup.POST("/athletes", coachHandler.AddAthleteByEmail)
			coachGroup.GET("/athletes", coachHandler.GetManagedAthletes)

			// Plans
			coachGroup.POST("/athletes/:athleteId/plans", coachHandler.CreatePlan)
			coachGroup.GET("/athletes/:athleteId/plans", coachHandler.GetPlansForAthlete)
			coachGroup.POST("/plans/:planId/publish", coachHandler.PublishPlan)
			coachGroup.POST("/plans/:planId/materialize", coachHandler.MaterializePlan)

			// Sessions
			coachGroup.POST("/plans/:planId/sessions", coachHandler.AddSession)
			coachGroup.GET("/plans/:planId/sessions", coachHandler.GetSessionsForPlan)
			coachGroup.PUT("/sessions/:sessionId", coachHandler.UpdateSession)
			coachGroup.DELETE("/sessions/:sessionId", coachHandler.DeleteSession)

			// Briefing media attachments
			coachGroup.POST("/sessions/:sessionId/attachment/upload-url", coachHandler.RequestAttachmentUpload)
			coachGroup.POST("/sessions/:sessionId/attachment/confirm", coachHandler.ConfirmAttachmentUpload)
		}

		// --- Athlete Routes ---
		athleteGroup := protected.Group("/athlete")
		athleteGroup.Use(RoleMiddleware(domain.RoleAthlete))
		{
			athleteGroup.GET("/calendar", athleteHandler.GetCalendar)
			athleteGroup.PATCH("/calendar/entries/:entryId", athleteHandler.EditEntry)
			athleteGroup.POST("/calendar/entries/:entryId/restore", athleteHandler.RestoreEntry)
			athleteGroup.GET("/calendar/entries/:entryId/attachment", athleteHandler.GetEntryAttachment)
		}
	}
}
