package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"uk.co.dudmesh.socialgraph/internal/model"
)

type SendRequestParams struct {
	ToUser string `json:"to_user"`
}

func ListRequests(graphService GraphService) echo.HandlerFunc {
	return func(c echo.Context) error {
		filter := model.ParseRequestFilter(c.QueryParam("type"))
		requests, err := graphService.ListRequests(c.Request().Context(), callerFrom(c), filter)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, requests)
	}
}

func SendRequest(graphService GraphService) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := &SendRequestParams{}
		if err := c.Bind(params); err != nil {
			return err
		}
		request, err := graphService.SendRequest(c.Request().Context(), callerFrom(c), params.ToUser)
		if err != nil {
			// an unknown recipient is a bad payload, not a missing resource
			if errors.Is(err, model.ErrorUserNotFound) {
				return c.JSON(http.StatusBadRequest, Detail{err.Error()})
			}
			return err
		}
		return c.JSON(http.StatusCreated, request)
	}
}

func GetRequest(graphService GraphService) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := requestIDParam(c)
		if err != nil {
			return err
		}
		request, err := graphService.GetRequest(c.Request().Context(), callerFrom(c), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, request)
	}
}

func AcceptRequest(graphService GraphService) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := requestIDParam(c)
		if err != nil {
			return err
		}
		request, err := graphService.AcceptRequest(c.Request().Context(), callerFrom(c), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, request)
	}
}

func RejectRequest(graphService GraphService) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := requestIDParam(c)
		if err != nil {
			return err
		}
		request, err := graphService.RejectRequest(c.Request().Context(), callerFrom(c), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, request)
	}
}

func CancelRequest(graphService GraphService) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := requestIDParam(c)
		if err != nil {
			return err
		}
		if err := graphService.CancelRequest(c.Request().Context(), callerFrom(c), id); err != nil {
			return err
		}
		return c.NoContent(http.StatusOK)
	}
}
