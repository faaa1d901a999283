package controllers

import (
	"net/http"
	"time"

	"lorecrafter/auth"
	"lorecrafter/models"
	"lorecrafter/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"
)

// AuthController serves registration and the session lifecycle.
type AuthController struct {
	authService services.AuthService
	sessions    *auth.SessionManager
	log         *zap.Logger
}

// NewAuthController creates an AuthController instance.
func NewAuthController(authService services.AuthService, sessions *auth.SessionManager, log *zap.Logger) *AuthController {
	return &AuthController{authService: authService, sessions: sessions, log: log.Named("auth")}
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID        string    `json:"_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func mapUser(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
}

// RegisterRoutes adds the public account routes to ws.
func (ctl *AuthController) RegisterRoutes(ws *restful.WebService) {
	tags := []string{"auth"}

	ws.Route(ws.POST("/register").To(ctl.register).
		Doc("Register a new user").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.RegisterInput{}).
		Returns(http.StatusCreated, "User created", UserResponse{}).
		Returns(http.StatusBadRequest, "Missing or invalid fields", ErrorResponse{}).
		Returns(http.StatusConflict, "Email already registered", ErrorResponse{}))

	ws.Route(ws.POST("/login").To(ctl.login).
		Doc("Log in and receive a session cookie").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.LoginInput{}).
		Returns(http.StatusOK, "Logged in", UserResponse{}).
		Returns(http.StatusBadRequest, "Missing fields", ErrorResponse{}).
		Returns(http.StatusUnauthorized, "Invalid credentials", ErrorResponse{}))

	// Clients log out with an empty body and no Content-Type.
	ws.Route(ws.POST("/logout").To(ctl.logout).
		Consumes(restful.MIME_JSON, "*/*").
		Doc("End the current session").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "Logged out", MessageResponse{}))
}

func (ctl *AuthController) register(req *restful.Request, resp *restful.Response) {
	input := new(services.RegisterInput)
	if err := req.ReadEntity(input); err != nil {
		writeError(resp, http.StatusBadRequest, "Request body must be JSON")
		return
	}

	user, err := ctl.authService.Register(req.Request.Context(), input)
	if err != nil {
		writeServiceError(resp, ctl.log, err)
		return
	}
	ctl.log.Info("User registered", zap.String("user_id", user.ID))
	writeJSON(resp, http.StatusCreated, mapUser(user))
}

func (ctl *AuthController) login(req *restful.Request, resp *restful.Response) {
	input := new(services.LoginInput)
	if err := req.ReadEntity(input); err != nil {
		writeError(resp, http.StatusBadRequest, "Request body must be JSON")
		return
	}

	user, err := ctl.authService.Login(req.Request.Context(), input)
	if err != nil {
		writeServiceError(resp, ctl.log, err)
		return
	}
	cookie, err := ctl.sessions.Create(user.ID)
	if err != nil {
		ctl.log.Error("Failed to create session", zap.Error(err))
		writeError(resp, http.StatusInternalServerError, "Failed to create session")
		return
	}
	http.SetCookie(resp.ResponseWriter, cookie)
	writeJSON(resp, http.StatusOK, mapUser(user))
}

// logout always succeeds, with or without a live session.
func (ctl *AuthController) logout(req *restful.Request, resp *restful.Response) {
	http.SetCookie(resp.ResponseWriter, ctl.sessions.Destroy(req.Request))
	writeMessage(resp, "Logged out successfully")
}
