package tenant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"voicecampaign-platform/internal/audit"
	"voicecampaign-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

// tenantIDFields are the payload keys that may carry a tenant identifier.
// Any of them appearing in a request body, query string, or route params
// must match the authenticated caller's organization.
var tenantIDFields = []string{"organization_id", "org_id", "organizationId"}

var ErrUserNotFound = errors.New("tenant: user not found")

// UserDirectory resolves an authenticated user id to its organization
// membership. Implementations return ErrUserNotFound when the user record
// does not exist.
type UserDirectory interface {
	OrganizationForUser(ctx context.Context, userID string) (string, error)
}

// Guard rejects any request whose payload declares a tenant id different
// from the authenticated caller's own organization, before the request
// reaches handlers that touch tenant-scoped data.
//
// Every rejection is logged and recorded in the audit trail; a mismatched
// tenant id in a payload is a potential cross-tenant access attempt.
// Downstream handlers must only ever use the context organization id, never
// a payload-supplied one.
type Guard struct {
	users UserDirectory
	audit *audit.Service
	log   *slog.Logger
}

func NewGuard(users UserDirectory, auditSvc *audit.Service, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}
	return &Guard{users: users, audit: auditSvc, log: log}
}

// Middleware runs after auth.RequireAccessToken in the handler chain.
func (g *Guard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		userID, err := auth.UserID(ctx)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		orgID, err := auth.OrganizationID(ctx)
		if err != nil || orgID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "organization_id required"})
			return
		}

		if g.users != nil {
			resolved, err := g.users.OrganizationForUser(ctx, userID)
			if err != nil {
				if errors.Is(err, ErrUserNotFound) {
					c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "user not found"})
					return
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "user lookup failed"})
				return
			}
			if resolved != orgID {
				g.reject(c, userID, orgID, resolved, "token")
				return
			}
		}

		if claimed, where, ok := g.claimedTenantID(c); ok && claimed != orgID {
			g.reject(c, userID, orgID, claimed, where)
			return
		}

		// Downstream handlers read the org id from here, never from payloads.
		c.Set("organization_id", orgID)
		c.Next()
	}
}

// claimedTenantID scans route params, query string, and JSON body for a
// tenant id field. The body is restored so downstream binding still works.
func (g *Guard) claimedTenantID(c *gin.Context) (value, where string, ok bool) {
	for _, f := range tenantIDFields {
		if v := c.Param(f); v != "" {
			return v, "params", true
		}
	}
	for _, f := range tenantIDFields {
		if v := c.Query(f); v != "" {
			return v, "query", true
		}
	}

	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return "", "", false
	}
	raw, err := io.ReadAll(c.Request.Body)
	_ = c.Request.Body.Close()
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) == 0 {
		return "", "", false
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		// Not a JSON object; nothing to check here.
		return "", "", false
	}
	for _, f := range tenantIDFields {
		if v, present := body[f]; present {
			if s, isStr := v.(string); isStr && s != "" {
				return s, "body", true
			}
		}
	}
	return "", "", false
}

func (g *Guard) reject(c *gin.Context, userID, actualOrgID, attemptedOrgID, where string) {
	g.log.Warn("cross-tenant access rejected",
		"user_id", userID,
		"organization_id", actualOrgID,
		"attempted_organization_id", attemptedOrgID,
		"source", where,
		"path", c.Request.URL.Path,
	)
	if g.audit != nil {
		_ = g.audit.LogTenantMismatch(c.Request.Context(), actualOrgID, userID,
			c.ClientIP(), attemptedOrgID, c.Request.URL.Path)
	}
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
}

// MemoryDirectory is an in-memory UserDirectory for tests and early
// development.
type MemoryDirectory struct {
	// Users maps user id to organization id.
	Users map[string]string
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{Users: map[string]string{}}
}

func (d *MemoryDirectory) OrganizationForUser(ctx context.Context, userID string) (string, error) {
	orgID, ok := d.Users[userID]
	if !ok {
		return "", ErrUserNotFound
	}
	return orgID, nil
}
