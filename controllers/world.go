package controllers

import (
	"net/http"

	"lorecrafter/auth"
	"lorecrafter/models"
	"lorecrafter/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"
)

// WorldController serves generation and the owner-scoped world routes.
// Every route runs behind auth.SessionFilter.
type WorldController struct {
	worldService services.WorldService
	sessions     *auth.SessionManager
	log          *zap.Logger
}

// NewWorldController creates a WorldController instance.
func NewWorldController(worldService services.WorldService, sessions *auth.SessionManager, log *zap.Logger) *WorldController {
	return &WorldController{worldService: worldService, sessions: sessions, log: log.Named("world")}
}

type GenerateRequest struct {
	Prompt *string `json:"prompt" description:"Free-text description of the world"`
}

type LinkLocationRequest struct {
	LocationID string `json:"location_id" description:"Id of an owned location"`
}

type CoordsRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

type ColorRequest struct {
	Color string `json:"color" description:"Any CSS color string"`
}

// RegisterRoutes adds the authenticated world routes to ws.
func (ctl *WorldController) RegisterRoutes(ws *restful.WebService) {
	authed := auth.SessionFilter(ctl.sessions)
	idParam := ws.PathParameter("id", "Record identifier").DataType("string")

	ws.Route(ws.POST("/generate/{kind}").Filter(authed).To(ctl.generate).
		Doc("Generate and store a character or location").
		Param(ws.PathParameter("kind", "character or location").DataType("string")).
		Metadata(restfulspec.KeyOpenAPITags, []string{"generate"}).
		Reads(GenerateRequest{}).
		Returns(http.StatusCreated, "Record created", nil).
		Returns(http.StatusBadRequest, "Missing prompt", ErrorResponse{}).
		Returns(http.StatusUnauthorized, "Authentication required", ErrorResponse{}).
		Returns(http.StatusInternalServerError, "Generation or storage failed", ErrorResponse{}))

	for _, kind := range models.Kinds {
		path := "/" + kind.Collection()
		tags := []string{kind.Collection()}

		list := ws.GET(path).Filter(authed).
			Doc("List the caller's " + kind.Collection()).
			Metadata(restfulspec.KeyOpenAPITags, tags).
			Returns(http.StatusUnauthorized, "Authentication required", ErrorResponse{})
		switch kind {
		case models.KindCharacter:
			list = list.To(ctl.listCharacters).Writes([]models.Character{})
		case models.KindLocation:
			list = list.To(ctl.listLocations).Writes([]models.Location{})
		}
		ws.Route(list)

		ws.Route(ws.DELETE(path+"/{id}").Filter(authed).To(ctl.deleteHandler(kind)).
			Doc("Delete an owned "+kind.String()).
			Param(idParam).
			Metadata(restfulspec.KeyOpenAPITags, tags).
			Returns(http.StatusOK, kind.Title()+" deleted", MessageResponse{}).
			Returns(http.StatusUnauthorized, "Authentication required", ErrorResponse{}).
			Returns(http.StatusNotFound, kind.Title()+" not found", ErrorResponse{}))

		ws.Route(ws.PUT(path+"/{id}/color").Filter(authed).To(ctl.colorHandler(kind)).
			Doc("Set the display color of an owned "+kind.String()).
			Param(idParam).
			Metadata(restfulspec.KeyOpenAPITags, tags).
			Reads(ColorRequest{}).
			Returns(http.StatusOK, "Color updated", MessageResponse{}).
			Returns(http.StatusBadRequest, "Missing color", ErrorResponse{}).
			Returns(http.StatusUnauthorized, "Authentication required", ErrorResponse{}).
			Returns(http.StatusNotFound, kind.Title()+" not found", ErrorResponse{}))
	}

	ws.Route(ws.PUT("/characters/{id}/link_location").Filter(authed).To(ctl.linkLocation).
		Doc("Link an owned character to an owned location").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, []string{"characters"}).
		Reads(LinkLocationRequest{}).
		Returns(http.StatusOK, "Character updated", MessageResponse{}).
		Returns(http.StatusBadRequest, "Missing location_id", ErrorResponse{}).
		Returns(http.StatusUnauthorized, "Authentication required", ErrorResponse{}).
		Returns(http.StatusNotFound, "Character or location not found", ErrorResponse{}))

	ws.Route(ws.PUT("/locations/{id}/set_coords").Filter(authed).To(ctl.setCoords).
		Doc("Place an owned location on the map").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, []string{"locations"}).
		Reads(CoordsRequest{}).
		Returns(http.StatusOK, "Coordinates updated", MessageResponse{}).
		Returns(http.StatusBadRequest, "Missing x or y", ErrorResponse{}).
		Returns(http.StatusUnauthorized, "Authentication required", ErrorResponse{}).
		Returns(http.StatusNotFound, "Location not found", ErrorResponse{}))

	ws.Route(ws.GET("/export/json").Filter(authed).To(ctl.export).
		Doc("Export the caller's world").
		Metadata(restfulspec.KeyOpenAPITags, []string{"export"}).
		Writes(services.WorldExport{}).
		Returns(http.StatusUnauthorized, "Authentication required", ErrorResponse{}))

	ws.Route(ws.GET("/graph-data").Filter(authed).To(ctl.graph).
		Doc("The caller's world as graph elements").
		Metadata(restfulspec.KeyOpenAPITags, []string{"export"}).
		Writes(services.GraphData{}).
		Returns(http.StatusUnauthorized, "Authentication required", ErrorResponse{}))
}

func (ctl *WorldController) generate(req *restful.Request, resp *restful.Response) {
	kind, err := models.ParseKind(req.PathParameter("kind"))
	if err != nil {
		writeError(resp, http.StatusNotFound, "Unknown kind")
		return
	}
	input := new(GenerateRequest)
	if err := req.ReadEntity(input); err != nil || input.Prompt == nil {
		writeError(resp, http.StatusBadRequest, "Request body must be JSON and contain a 'prompt' key")
		return
	}

	record, err := ctl.worldService.Generate(req.Request.Context(), ownerID(req), kind, *input.Prompt)
	if err != nil {
		writeServiceError(resp, ctl.log, err)
		return
	}
	writeJSON(resp, http.StatusCreated, record)
}

func (ctl *WorldController) listCharacters(req *restful.Request, resp *restful.Response) {
	out, err := ctl.worldService.ListCharacters(req.Request.Context(), ownerID(req))
	if err != nil {
		writeServiceError(resp, ctl.log, err)
		return
	}
	writeJSON(resp, http.StatusOK, out)
}

func (ctl *WorldController) listLocations(req *restful.Request, resp *restful.Response) {
	out, err := ctl.worldService.ListLocations(req.Request.Context(), ownerID(req))
	if err != nil {
		writeServiceError(resp, ctl.log, err)
		return
	}
	writeJSON(resp, http.StatusOK, out)
}

func (ctl *WorldController) deleteHandler(kind models.Kind) restful.RouteFunction {
	return func(req *restful.Request, resp *restful.Response) {
		err := ctl.worldService.Delete(req.Request.Context(), ownerID(req), kind, req.PathParameter("id"))
		if err != nil {
			writeServiceError(resp, ctl.log, err)
			return
		}
		writeMessage(resp, kind.Title()+" deleted successfully")
	}
}

func (ctl *WorldController) colorHandler(kind models.Kind) restful.RouteFunction {
	return func(req *restful.Request, resp *restful.Response) {
		input := new(ColorRequest)
		if err := req.ReadEntity(input); err != nil {
			writeError(resp, http.StatusBadRequest, "color is required")
			return
		}
		err := ctl.worldService.SetColor(req.Request.Context(), ownerID(req), kind, req.PathParameter("id"), input.Color)
		if err != nil {
			writeServiceError(resp, ctl.log, err)
			return
		}
		writeMessage(resp, kind.Title()+" color updated successfully")
	}
}

func (ctl *WorldController) linkLocation(req *restful.Request, resp *restful.Response) {
	input := new(LinkLocationRequest)
	if err := req.ReadEntity(input); err != nil {
		writeError(resp, http.StatusBadRequest, "location_id is required")
		return
	}
	err := ctl.worldService.LinkLocation(req.Request.Context(), ownerID(req), req.PathParameter("id"), input.LocationID)
	if err != nil {
		writeServiceError(resp, ctl.log, err)
		return
	}
	writeMessage(resp, "Character updated successfully")
}

func (ctl *WorldController) setCoords(req *restful.Request, resp *restful.Response) {
	input := new(CoordsRequest)
	if err := req.ReadEntity(input); err != nil {
		writeError(resp, http.StatusBadRequest, "x and y coordinates are required")
		return
	}
	err := ctl.worldService.SetCoords(req.Request.Context(), ownerID(req), req.PathParameter("id"), input.X, input.Y)
	if err != nil {
		writeServiceError(resp, ctl.log, err)
		return
	}
	writeMessage(resp, "Location coordinates updated successfully")
}

func (ctl *WorldController) export(req *restful.Request, resp *restful.Response) {
	out, err := ctl.worldService.Export(req.Request.Context(), ownerID(req))
	if err != nil {
		writeServiceError(resp, ctl.log, err)
		return
	}
	writeJSON(resp, http.StatusOK, out)
}

func (ctl *WorldController) graph(req *restful.Request, resp *restful.Response) {
	out, err := ctl.worldService.Graph(req.Request.Context(), ownerID(req))
	if err != nil {
		writeServiceError(resp, ctl.log, err)
		return
	}
	writeJSON(resp, http.StatusOK, out)
}
