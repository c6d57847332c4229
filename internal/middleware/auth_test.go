package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"anoa.com/campuscomplaint/internal/entity"
	userRepo "anoa.com/campuscomplaint/internal/modules/user/repository"
	"anoa.com/campuscomplaint/internal/testutil"
	"anoa.com/campuscomplaint/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

func sign(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func claimsFor(sub, role string) Claims {
	return Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func newRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	log, _ := test.NewNullLogger()
	auth := NewAuthMiddleware(userRepo.NewUserRepository(db), testSecret, log)

	r := gin.New()
	r.Use(auth.RequireAuth())
	r.GET("/me", func(c *gin.Context) {
		actor, err := response.GetActor(c)
		if err != nil {
			response.ResponseError(c, err)
			return
		}
		response.Success(c, http.StatusOK, actor, "ok")
	})
	r.GET("/admin", auth.RequireRole(entity.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r, db
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuthResolvesActorAndSyncsUser(t *testing.T) {
	r, db := newRouter(t)

	claims := claimsFor("student-1", "student")
	claims.Faculty = "science"
	claims.Department = "Computer Science"
	claims.Email = "student@campus.example"

	w := do(r, "/me", sign(t, testSecret, claims))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool         `json:"success"`
		Data    entity.Actor `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, entity.Actor{
		UserID:     "student-1",
		Role:       entity.RoleStudent,
		Faculty:    entity.FacultyScience,
		Department: "Computer Science",
	}, body.Data)

	user, err := userRepo.NewUserRepository(db).FindByID(t.Context(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleStudent, user.Role)
	assert.Equal(t, "student@campus.example", user.Email)
	require.NotNil(t, user.Department)
	assert.Equal(t, "Computer Science", *user.Department)

	// a later token with a new role updates the row
	w = do(r, "/me", sign(t, testSecret, claimsFor("student-1", "admin")))
	require.Equal(t, http.StatusOK, w.Code)
	user, err = userRepo.NewUserRepository(db).FindByID(t.Context(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, user.Role)
}

func TestRequireAuthRejectsBadTokens(t *testing.T) {
	r, _ := newRouter(t)

	expired := claimsFor("student-1", "student")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	badFaculty := claimsFor("student-1", "student")
	badFaculty.Faculty = "medicine"

	tests := map[string]string{
		"missing":         "",
		"garbage":         "not-a-jwt",
		"wrong secret":    sign(t, "other-secret", claimsFor("student-1", "student")),
		"expired":         sign(t, testSecret, expired),
		"unknown role":    sign(t, testSecret, claimsFor("student-1", "janitor")),
		"no subject":      sign(t, testSecret, claimsFor("", "student")),
		"unknown faculty": sign(t, testSecret, badFaculty),
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			w := do(r, "/me", token)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"error":"unauthenticated"`)
		})
	}
}

func TestRequireAuthAcceptsQueryToken(t *testing.T) {
	r, _ := newRouter(t)

	w := do(r, "/me?token="+sign(t, testSecret, claimsFor("student-1", "student")), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole(t *testing.T) {
	r, _ := newRouter(t)

	w := do(r, "/admin", sign(t, testSecret, claimsFor("student-1", "student")))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"unauthorized"`)

	w = do(r, "/admin", sign(t, testSecret, claimsFor("admin-1", "admin")))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
