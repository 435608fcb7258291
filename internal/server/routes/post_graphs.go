package routes

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/kgtext/backend/internal/server/middleware"
	"github.com/kgtext/backend/pkg/graph"

	"github.com/labstack/echo/v4"
)

// GenerateGraphHandler builds a graph from a JSON body {name, text} or from
// multipart/form-data with a name field and a .txt file.
func GenerateGraphHandler(c echo.Context) error {
	data := new(graph.GenerateRequest)

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		req, msg := generateRequestFromForm(c)
		if msg != "" {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: msg})
		}
		data = req
	} else if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}

	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	res, err := app.Graphs.Generate(c.Request().Context(), *data)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusCreated, res)
}

// generateRequestFromForm returns a user-facing message when the upload is
// unusable.
func generateRequestFromForm(c echo.Context) (*graph.GenerateRequest, string) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, "A .txt file is required"
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".txt") {
		return nil, "Only .txt files are supported"
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "Failed to read uploaded file"
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, "Failed to read uploaded file"
	}
	if !utf8.Valid(content) {
		return nil, "Uploaded file must be UTF-8 text"
	}

	return &graph.GenerateRequest{
		Name: c.FormValue("name"),
		Text: string(content),
	}, ""
}
