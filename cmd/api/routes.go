package main

import (
	"voicecampaign-platform/internal/bolna"
	"voicecampaign-platform/internal/httpapi"
	"voicecampaign-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, webhook bolna.StatusWebhookHandler, authMW, guardMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Vendor webhooks (public).
	// NOTE: protect with a shared-secret query token at the edge in production.
	r.POST("/webhooks/bolna/status", webhook.HandleStatusUpdate)

	// protected API group
	v1 := r.Group("/v1")

	// AUTH routes (token issuance) sit outside the auth middleware.
	v1.POST("/auth/login", h.Login)

	protected := v1.Group("")
	protected.Use(authMW)
	protected.Use(guardMW)
	{
		// CALLS routes
		callsGroup := protected.Group("/calls")
		callsGroup.Use(rbac.RequireOrganization())
		callsGroup.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleAgent, rbac.RoleSuperAdmin))
		{
			callsGroup.POST("/dial", h.DialCall)
			callsGroup.GET("", h.ListCalls)
			callsGroup.GET("/:call_id", h.GetCall)
		}

		// DASHBOARD routes
		dashboard := protected.Group("/dashboard")
		dashboard.Use(rbac.RequireOrganization())
		dashboard.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleAgent, rbac.RoleAnalyst, rbac.RoleSuperAdmin))
		{
			dashboard.GET("/metrics", h.DashboardMetrics)
			dashboard.GET("/calls-summary", h.CallsSummary)
		}

		// CAMPAIGNS routes
		campaignsGroup := protected.Group("/campaigns")
		campaignsGroup.Use(rbac.RequireOrganization())
		campaignsGroup.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleAgent, rbac.RoleSuperAdmin))
		{
			campaignsGroup.POST("", h.CreateCampaign)
			campaignsGroup.POST("/:campaign_id/leads", h.AddLeads)
			campaignsGroup.POST("/:campaign_id/start", h.StartCampaign)
		}

		// ADMIN routes
		// Only owner/super_admin can access admin endpoints by default.
		admin := protected.Group("/admin")
		admin.Use(rbac.RequireOrganization())
		admin.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleSuperAdmin))
		{
			admin.GET("/polling/stats", h.PollingStats)
		}
	}
}
