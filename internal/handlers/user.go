package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"uk.co.dudmesh.socialgraph/internal/model"
)

// SearchUsers answers with a bare user for an exact email match and with a
// page of users otherwise.
func SearchUsers(graphService GraphService) echo.HandlerFunc {
	return func(c echo.Context) error {
		query := c.QueryParam("query")
		if query == "" {
			return model.ErrorMissingQuery
		}
		page, err := pageParam(c)
		if err != nil {
			return err
		}
		result, err := graphService.SearchUsers(c.Request().Context(), query, page)
		if err != nil {
			return err
		}
		if result.Exact != nil {
			return c.JSON(http.StatusOK, result.Exact)
		}
		return c.JSON(http.StatusOK, result.Page)
	}
}

func ListFriends(graphService GraphService) echo.HandlerFunc {
	return func(c echo.Context) error {
		page, err := pageParam(c)
		if err != nil {
			return err
		}
		friends, err := graphService.ListFriends(c.Request().Context(), callerFrom(c), page)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, friends)
	}
}

func DeleteAccount(graphService GraphService) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := graphService.DeleteAccount(c.Request().Context(), callerFrom(c)); err != nil {
			return err
		}
		return c.NoContent(http.StatusOK)
	}
}
