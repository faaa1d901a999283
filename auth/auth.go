package auth

import (
	"net/http"

	"lorecrafter/models"

	restful "github.com/emicklei/go-restful/v3"
	"golang.org/x/crypto/bcrypt"
)

// UserIDAttribute is the request attribute SessionFilter stores the user id under.
const UserIDAttribute = "user_id"

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// HashPassword returns the salted bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// SessionFilter creates a go-restful FilterFunction that rejects requests
// without a live session and records the session's user id otherwise.
func SessionFilter(sessions *SessionManager) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		userID, ok := sessions.CurrentUser(req.Request)
		if !ok {
			_ = resp.WriteHeaderAndJson(http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"}, restful.MIME_JSON)
			return
		}
		req.SetAttribute(UserIDAttribute, userID)
		chain.ProcessFilter(req, resp)
	}
}

// CurrentUserID extracts the user id set by SessionFilter.
func CurrentUserID(req *restful.Request) (string, bool) {
	userID, ok := req.Attribute(UserIDAttribute).(string)
	return userID, ok && userID != ""
}
