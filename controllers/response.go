package controllers

import (
	"errors"
	"net/http"

	"lorecrafter/auth"
	"lorecrafter/generation"
	"lorecrafter/models"
	"lorecrafter/services"

	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse = models.ErrorResponse

// MessageResponse is the body of mutations that return no record.
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(resp *restful.Response, status int, body any) {
	_ = resp.WriteHeaderAndJson(status, body, restful.MIME_JSON)
}

func writeError(resp *restful.Response, status int, message string) {
	writeJSON(resp, status, ErrorResponse{Error: message})
}

func writeMessage(resp *restful.Response, message string) {
	writeJSON(resp, http.StatusOK, MessageResponse{Message: message})
}

// writeServiceError translates service errors to HTTP responses.
func writeServiceError(resp *restful.Response, log *zap.Logger, err error) {
	var appErr *services.AppError
	if !errors.As(err, &appErr) {
		log.Error("Unhandled service error", zap.Error(err))
		writeError(resp, http.StatusInternalServerError, "Internal server error")
		return
	}

	body := ErrorResponse{Error: appErr.Error()}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrParse):
		var perr *generation.ParseError
		if errors.As(err, &perr) {
			body.RawResponse = perr.Raw
		}
	}
	if status == http.StatusInternalServerError {
		log.Warn("Request failed", zap.Error(err))
	}
	writeJSON(resp, status, body)
}

// ownerID reads the session user id set by auth.SessionFilter. Routes that
// call it are always behind the filter.
func ownerID(req *restful.Request) string {
	id, _ := auth.CurrentUserID(req)
	return id
}
