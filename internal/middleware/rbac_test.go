package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/academix-api/internal/models"
)

func performWithClaims(t *testing.T, claims *models.JWTClaims, paramID string, mw gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/protected/"+paramID, nil)
	c.Params = gin.Params{{Key: "id", Value: paramID}}
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}
	mw(c)
	if !c.IsAborted() {
		c.Status(http.StatusOK)
	}
	return w
}

func TestRBACAllowsListedRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RolePrincipal}
	w := performWithClaims(t, claims, "s1", RequireRoles(models.RoleAdmin, models.RolePrincipal))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRBACRejectsUnlistedRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}
	w := performWithClaims(t, claims, "s1", RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBACRejectsMissingClaims(t *testing.T) {
	w := performWithClaims(t, nil, "s1", RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRBACSelfAccessOwnRecord(t *testing.T) {
	claims := &models.JWTClaims{UserID: "s1", Role: models.RoleStudent}
	w := performWithClaims(t, claims, "s1", RBAC(string(models.RoleAdmin), "SELF"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRBACSelfAccessOtherRecord(t *testing.T) {
	claims := &models.JWTClaims{UserID: "s1", Role: models.RoleStudent}
	w := performWithClaims(t, claims, "s2", RBAC(string(models.RoleAdmin), "SELF"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
