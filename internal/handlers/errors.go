package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"uk.co.dudmesh.socialgraph/internal/model"
)

// StatusFor maps an error kind onto the HTTP status the API reports.
func StatusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindValidation, model.KindConflict, model.KindRateLimited, model.KindState:
		return http.StatusBadRequest
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindForbidden, model.KindUnauthenticated:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// ErrorHandler renders every error as {"detail": ...}. Internal errors are
// logged and never shown to the client.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var status int
	var detail string

	var httpError *echo.HTTPError
	var modelError *model.Error
	switch {
	case errors.As(err, &httpError):
		status = httpError.Code
		detail = fmt.Sprint(httpError.Message)
	case errors.As(err, &modelError):
		status = StatusFor(modelError.Kind)
		detail = modelError.Message
	default:
		log.Errorf("request %s failed: %+v", c.Response().Header().Get(echo.HeaderXRequestID), err)
		status = http.StatusInternalServerError
		detail = http.StatusText(status)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, Detail{detail})
	}
	if err != nil {
		log.Errorf("writing error response: %+v", err)
	}
}
