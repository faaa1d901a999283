package controllers

import (
	"net/http"

	"lorecrafter/database"
	"lorecrafter/repositories"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
)

// HealthController serves the unauthenticated liveness routes.
type HealthController struct {
	store repositories.Store // nil when the database is unreachable
}

func NewHealthController(store repositories.Store) *HealthController {
	return &HealthController{store: store}
}

type StatusResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Database string `json:"database,omitempty"`
}

// RegisterRootRoutes adds the welcome route to a WebService rooted at "/".
func (ctl *HealthController) RegisterRootRoutes(ws *restful.WebService) {
	ws.Route(ws.GET("").To(ctl.root).
		Doc("Welcome message").
		Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
		Writes(StatusResponse{}))
}

// RegisterRoutes adds the health route to the /api WebService.
func (ctl *HealthController) RegisterRoutes(ws *restful.WebService) {
	ws.Route(ws.GET("/health").To(ctl.health).
		Doc("Service and database status").
		Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
		Writes(StatusResponse{}))
}

func (ctl *HealthController) root(_ *restful.Request, resp *restful.Response) {
	writeJSON(resp, http.StatusOK, StatusResponse{Status: "ok", Message: "Welcome to the LoreCrafter API!"})
}

func (ctl *HealthController) health(req *restful.Request, resp *restful.Response) {
	db := "disconnected"
	if database.Check(req.Request.Context(), ctl.store) == nil {
		db = "connected"
	}
	writeJSON(resp, http.StatusOK, StatusResponse{Status: "ok", Message: "LoreCrafter API is running!", Database: db})
}
