package routes

import (
	"net/http"

	"github.com/kgtext/backend/internal/server/middleware"
	"github.com/kgtext/backend/pkg/visual"

	"github.com/labstack/echo/v4"
)

// GetGraphsHandler returns the catalog of stored graphs ordered by name.
func GetGraphsHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	history, err := app.Graphs.ListHistory(c.Request().Context())
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, history)
}

func GetGraphHandler(c echo.Context) error {
	type getGraphResponse struct {
		GraphID string                 `json:"graph_id"`
		Graph   visual.RenderableGraph `json:"graph"`
	}

	graphID := c.Param("id")
	app := c.(*middleware.AppContext).App
	g, err := app.Graphs.Load(c.Request().Context(), graphID)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, getGraphResponse{GraphID: graphID, Graph: g})
}

// GetGraphSourceHandler returns the text a graph was generated from.
func GetGraphSourceHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	text, err := app.Graphs.Source(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.String(http.StatusOK, text)
}
