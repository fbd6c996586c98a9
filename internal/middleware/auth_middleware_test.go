package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"timeclock_backend/internal/models"
	"timeclock_backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.InitJWT("test-secret")
}

// buildRouter wires the attendance review route shape: auth, then
// self-or-role on the :userId segment.
func buildRouter(allowedRoles ...string) *gin.Engine {
	r := gin.New()
	r.GET("/stores/:storeId/members/:userId/summaries",
		AuthMiddleware(),
		SelfOrRoleAuthMiddleware(allowedRoles...),
		func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt64("userID")})
		})
	return r
}

func bearerFor(t *testing.T, userID int64, role string) string {
	t.Helper()
	tok, err := utils.GenerateAccessToken(userID, "worker", role)
	require.NoError(t, err)
	return "Bearer " + tok
}

func doGet(r *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareRejectsMissingOrBadToken(t *testing.T) {
	r := buildRouter(models.RoleManager, models.RoleOwner)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(r, "/stores/1/members/7/summaries", tt.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestSelfOrRoleAuthorization(t *testing.T) {
	r := buildRouter(models.RoleManager, models.RoleOwner)

	tests := []struct {
		name     string
		userID   int64
		role     string
		path     string
		wantCode int
	}{
		{"staff reads self by id", 7, models.RoleStaff, "/stores/1/members/7/summaries", http.StatusOK},
		{"staff reads self via me alias", 7, models.RoleStaff, "/stores/1/members/me/summaries", http.StatusOK},
		{"staff cannot read another member", 7, models.RoleStaff, "/stores/1/members/8/summaries", http.StatusForbidden},
		{"manager reads anyone", 3, models.RoleManager, "/stores/1/members/8/summaries", http.StatusOK},
		{"owner reads anyone", 2, models.RoleOwner, "/stores/1/members/8/summaries", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(r, tt.path, bearerFor(t, tt.userID, tt.role))
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestRoleAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.POST("/stores/:storeId/qr/rotate",
		AuthMiddleware(),
		RoleAuthMiddleware(models.RoleOwner),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/stores/1/qr/rotate", nil)
	req.Header.Set("Authorization", bearerFor(t, 2, models.RoleOwner))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/stores/1/qr/rotate", nil)
	req.Header.Set("Authorization", bearerFor(t, 3, models.RoleManager))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code, "rotation is owner-only")
}
