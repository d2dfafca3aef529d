package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dormitory-backend/config"
	"dormitory-backend/internal/model"
	"dormitory-backend/internal/store"
)

func newTestManager() *Manager {
	return NewManager(&config.AuthConfig{JWTSecret: "0123456789abcdef-test", TokenTTL: time.Hour})
}

func TestManager_GenerateParse(t *testing.T) {
	m := newTestManager()
	dorm := int64(4)
	u := &model.User{ID: 12, Role: model.RoleManager, DormitoryID: &dorm}

	token, expires, err := m.Generate(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(12), claims.UserID)
	assert.Equal(t, model.RoleManager, claims.Role)
	require.NotNil(t, claims.DormitoryID)
	assert.Equal(t, int64(4), *claims.DormitoryID)

	other := NewManager(&config.AuthConfig{JWTSecret: "another-secret-value", TokenTTL: time.Hour})
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = m.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestManager_Expired(t *testing.T) {
	m := newTestManager()
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := m.Generate(&model.User{ID: 1, Role: model.RoleAdmin})
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestPassword(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newTestManager()

	r := gin.New()
	r.GET("/me", RequireAuth(m, nil), func(c *gin.Context) {
		scope := Scope(c)
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c), "limited": scope.Limited()})
	})
	r.GET("/admin", RequireAuth(m, nil), RequireRole(model.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	dorm := int64(3)
	managerToken, _, err := m.Generate(&model.User{ID: 7, Role: model.RoleManager, DormitoryID: &dorm})
	require.NoError(t, err)
	adminToken, _, err := m.Generate(&model.User{ID: 1, Role: model.RoleAdmin})
	require.NoError(t, err)

	testCases := []struct {
		name   string
		path   string
		header string
		code   int
		body   string
	}{
		{"no header", "/me", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "/me", "Basic abc", http.StatusUnauthorized, ""},
		{"bad token", "/me", "Bearer abc", http.StatusUnauthorized, ""},
		{"manager scoped", "/me", "Bearer " + managerToken, http.StatusOK, `{"limited":true,"user_id":7}`},
		{"admin unscoped", "/me", "Bearer " + adminToken, http.StatusOK, `{"limited":false,"user_id":1}`},
		{"manager forbidden", "/admin", "Bearer " + managerToken, http.StatusForbidden, ""},
		{"admin allowed", "/admin", "Bearer " + adminToken, http.StatusNoContent, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.code, w.Code)
			if tc.body != "" {
				assert.JSONEq(t, tc.body, w.Body.String())
			}
		})
	}
}

type fakeUsers map[int64]*model.User

func (f fakeUsers) GetUser(_ context.Context, id int64) (*model.User, error) {
	if id == 99 {
		return nil, errors.New("connection reset")
	}
	u, ok := f[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func TestMiddleware_ChecksStoredAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newTestManager()

	dorm := int64(3)
	users := fakeUsers{
		// Promoted to admin and unbound after the token was issued.
		7: {ID: 7, Role: model.RoleAdmin},
	}

	r := gin.New()
	r.GET("/admin", RequireAuth(m, users), RequireRole(model.RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"limited": Scope(c).Limited()})
	})

	token := func(id int64) string {
		tok, _, err := m.Generate(&model.User{ID: id, Role: model.RoleManager, DormitoryID: &dorm})
		require.NoError(t, err)
		return "Bearer " + tok
	}

	testCases := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{"stored role wins", token(7), http.StatusOK, `{"limited":false}`},
		{"deleted account", token(8), http.StatusUnauthorized, `{"error":"account no longer exists"}`},
		{"lookup failure", token(99), http.StatusInternalServerError, `{"error":"internal server error"}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", tc.header)
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.code, w.Code)
			assert.JSONEq(t, tc.body, w.Body.String())
		})
	}
}
