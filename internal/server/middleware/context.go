package middleware

import (
	"github.com/kgtext/backend/pkg/graph"

	"github.com/labstack/echo/v4"
)

type App struct {
	Graphs *graph.GraphClient
}

type AppContext struct {
	echo.Context
	App *App
}

// AppContextMiddleware hands the shared application services to every
// handler through AppContext.
func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{Context: c, App: app})
		}
	}
}
