package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"lorecrafter/models"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestWithCookie(c *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if c != nil {
		req.AddCookie(c)
	}
	return req
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "battery staple"))

	// Salted: the same password hashes differently each time.
	again, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again)
}

func TestSessionLifecycle(t *testing.T) {
	m := NewSessionManager([]byte("secret"), false)

	cookie, err := m.Create("user-1")
	require.NoError(t, err)
	assert.Equal(t, SessionCookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 1, m.Len())

	userID, ok := m.CurrentUser(requestWithCookie(cookie))
	assert.True(t, ok)
	assert.Equal(t, "user-1", userID)

	cleared := m.Destroy(requestWithCookie(cookie))
	assert.Equal(t, -1, cleared.MaxAge)
	assert.Empty(t, cleared.Value)
	assert.Equal(t, 0, m.Len())

	// The client may still send the old cookie; it no longer resolves.
	_, ok = m.CurrentUser(requestWithCookie(cookie))
	assert.False(t, ok)
}

func TestSessionRejectsBadCookies(t *testing.T) {
	m := NewSessionManager([]byte("secret"), true)
	cookie, err := m.Create("user-1")
	require.NoError(t, err)
	assert.True(t, cookie.Secure)

	t.Run("No cookie", func(t *testing.T) {
		_, ok := m.CurrentUser(requestWithCookie(nil))
		assert.False(t, ok)
	})

	t.Run("Tampered token", func(t *testing.T) {
		tampered := *cookie
		tampered.Value = cookie.Value + "x"
		_, ok := m.CurrentUser(requestWithCookie(&tampered))
		assert.False(t, ok)
	})

	t.Run("Signed with another secret", func(t *testing.T) {
		other := NewSessionManager([]byte("other"), false)
		foreign, err := other.Create("user-1")
		require.NoError(t, err)
		_, ok := m.CurrentUser(requestWithCookie(foreign))
		assert.False(t, ok)
	})

	t.Run("Valid signature, unknown session", func(t *testing.T) {
		// Same secret, different manager: the session table is server-held.
		restarted := NewSessionManager([]byte("secret"), false)
		_, ok := restarted.CurrentUser(requestWithCookie(cookie))
		assert.False(t, ok)
	})

	t.Run("Destroy without cookie", func(t *testing.T) {
		cleared := m.Destroy(requestWithCookie(nil))
		assert.Equal(t, -1, cleared.MaxAge)
		assert.Equal(t, 1, m.Len())
	})
}

func TestSessionFilter(t *testing.T) {
	m := NewSessionManager([]byte("secret"), false)

	ws := new(restful.WebService)
	ws.Route(ws.GET("/protected").Filter(SessionFilter(m)).To(func(req *restful.Request, resp *restful.Response) {
		userID, ok := CurrentUserID(req)
		require.True(t, ok)
		_ = resp.WriteAsJson(map[string]string{"user_id": userID})
	}))
	container := restful.NewContainer()
	container.Add(ws)

	t.Run("No session", func(t *testing.T) {
		w := httptest.NewRecorder()
		container.ServeHTTP(w, requestWithCookie(nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var body models.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, models.ErrorResponse{Error: "Authentication required"}, body)
	})

	t.Run("Valid session", func(t *testing.T) {
		cookie, err := m.Create("user-42")
		require.NoError(t, err)

		w := httptest.NewRecorder()
		container.ServeHTTP(w, requestWithCookie(cookie))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "user-42")
	})
}
