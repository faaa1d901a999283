package auth

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// SessionCookieName is the cookie that carries the signed session reference.
const SessionCookieName = "lorecrafter_session"

const issuer = "lorecrafter"

var errUnknownSession = errors.New("unknown session")

// sessionClaims binds a server-side session id (jti) to the user it was
// created for (sub). The token never expires on its own; the session ends
// when it is removed from the manager.
type sessionClaims struct {
	jwt.RegisteredClaims
}

// SessionManager keeps the server-side session table. The cookie only holds
// a signed reference into it, so a session dies as soon as it is destroyed
// here, whatever the client still holds.
type SessionManager struct {
	mu         sync.RWMutex
	sessions   map[string]string // session id -> user id
	signingKey []byte
	secure     bool
	now        func() time.Time
}

// NewSessionManager creates an empty session table. secret signs the cookie
// tokens; secure marks issued cookies Secure.
func NewSessionManager(secret []byte, secure bool) *SessionManager {
	return &SessionManager{
		sessions:   make(map[string]string),
		signingKey: secret,
		secure:     secure,
		now:        time.Now,
	}
}

// Create starts a session for userID and returns the cookie referencing it.
func (m *SessionManager) Create(userID string) (*http.Cookie, error) {
	sid := uuid.NewString()
	claims := &sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       sid,
			Subject:  userID,
			Issuer:   issuer,
			IssuedAt: jwt.NewNumericDate(m.now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.signingKey)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	m.mu.Lock()
	m.sessions[sid] = userID
	m.mu.Unlock()

	return m.cookie(signed, 0), nil
}

// CurrentUser returns the user id of the session referenced by r's cookie.
func (m *SessionManager) CurrentUser(r *http.Request) (string, bool) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	_, userID, err := m.resolve(c.Value)
	if err != nil {
		return "", false
	}
	return userID, true
}

// Destroy ends the session referenced by r's cookie, if any, and returns a
// cookie that clears it on the client.
func (m *SessionManager) Destroy(r *http.Request) *http.Cookie {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		if sid, _, err := m.resolve(c.Value); err == nil {
			m.mu.Lock()
			delete(m.sessions, sid)
			m.mu.Unlock()
		}
	}
	return m.cookie("", -1)
}

// Len reports the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *SessionManager) resolve(token string) (sid, userID string, err error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.signingKey, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("parse session token: %w", err)
	}
	if !parsed.Valid || claims.Issuer != issuer {
		return "", "", errUnknownSession
	}

	m.mu.RLock()
	owner, ok := m.sessions[claims.ID]
	m.mu.RUnlock()
	if !ok || owner != claims.Subject {
		return "", "", errUnknownSession
	}
	return claims.ID, owner, nil
}

func (m *SessionManager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
