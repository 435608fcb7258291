package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mid "github.com/kgtext/backend/internal/server/middleware"
	"github.com/kgtext/backend/pkg/common"
	"github.com/kgtext/backend/pkg/graph"
	"github.com/kgtext/backend/pkg/store/memory"

	"github.com/labstack/echo/v4"
)

type stubExtractor struct {
	err error
}

func (s stubExtractor) Extract(ctx context.Context, text string) ([]common.Entity, []common.Relationship, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return []common.Entity{
			{ID: "Alice", Type: "Person"},
			{ID: "Acme", Type: "Org"},
		}, []common.Relationship{
			{SourceID: "Alice", TargetID: "Acme", Type: "WORKS_AT"},
		}, nil
}

func newTestServer(t *testing.T, extractor graph.Extractor, st *memory.GraphStore) *echo.Echo {
	t.Helper()
	client, err := graph.NewGraphClient(graph.NewGraphClientParams{Extractor: extractor, Store: st})
	if err != nil {
		t.Fatalf("NewGraphClient() error = %v", err)
	}
	return New(&mid.App{Graphs: client})
}

func do(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

type generateResponse struct {
	GraphID string `json:"graph_id"`
	Name    string `json:"name"`
	Graph   struct {
		Nodes []map[string]any `json:"nodes"`
		Edges []map[string]any `json:"edges"`
	} `json:"graph"`
}

func TestServer_Health(t *testing.T) {
	e := newTestServer(t, stubExtractor{}, memory.New())

	rec := do(e, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestServer_GenerateListLoad(t *testing.T) {
	e := newTestServer(t, stubExtractor{}, memory.New())

	rec := do(e, jsonRequest(http.MethodPost, "/api/graphs", `{"name":"Team","text":"Alice works at Acme."}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/graphs = %d %s", rec.Code, rec.Body.String())
	}
	var created generateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.GraphID == "" || created.Name != "Team" || len(created.Graph.Nodes) != 2 || len(created.Graph.Edges) != 1 {
		t.Fatalf("unexpected generate response: %s", rec.Body.String())
	}
	if created.Graph.Edges[0]["label"] != "works_at" {
		t.Fatalf("unexpected edge: %v", created.Graph.Edges[0])
	}

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/graphs", nil))
	var history []common.GraphMeta
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || len(history) != 1 || history[0].GraphID != created.GraphID {
		t.Fatalf("GET /api/graphs = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/graphs/"+created.GraphID, nil))
	var loaded generateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &loaded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || loaded.GraphID != created.GraphID || len(loaded.Graph.Nodes) != 2 || len(loaded.Graph.Edges) != 1 {
		t.Fatalf("GET /api/graphs/:id = %d %s", rec.Code, rec.Body.String())
	}
}

func TestServer_LoadUnknownGraphIsEmpty(t *testing.T) {
	e := newTestServer(t, stubExtractor{}, memory.New())

	rec := do(e, httptest.NewRequest(http.MethodGet, "/api/graphs/nope", nil))
	var loaded generateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &loaded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || len(loaded.Graph.Nodes) != 0 || len(loaded.Graph.Edges) != 0 {
		t.Fatalf("GET unknown graph = %d %s", rec.Code, rec.Body.String())
	}
}

func TestServer_GenerateFromTextFile(t *testing.T) {
	e := newTestServer(t, stubExtractor{}, memory.New())

	tests := []struct {
		name     string
		filename string
		content  string
		want     int
	}{
		{"txt upload", "notes.txt", "Alice works at Acme.", http.StatusCreated},
		{"wrong extension", "notes.pdf", "Alice works at Acme.", http.StatusBadRequest},
		{"invalid utf-8", "notes.txt", "\xff\xfe", http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var body bytes.Buffer
			w := multipart.NewWriter(&body)
			if err := w.WriteField("name", "Upload"); err != nil {
				t.Fatalf("WriteField: %v", err)
			}
			fw, err := w.CreateFormFile("file", tc.filename)
			if err != nil {
				t.Fatalf("CreateFormFile: %v", err)
			}
			fw.Write([]byte(tc.content))
			w.Close()

			req := httptest.NewRequest(http.MethodPost, "/api/graphs", &body)
			req.Header.Set(echo.HeaderContentType, w.FormDataContentType())

			rec := do(e, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestServer_GenerateErrors(t *testing.T) {
	tests := []struct {
		name      string
		extractor graph.Extractor
		failAfter int
		body      string
		want      int
	}{
		{"malformed json", stubExtractor{}, 0, `{"name":`, http.StatusBadRequest},
		{"missing text", stubExtractor{}, 0, `{"name":"n"}`, http.StatusBadRequest},
		{"blank name", stubExtractor{}, 0, `{"name":" ","text":"t"}`, http.StatusBadRequest},
		{"extraction failure", stubExtractor{err: common.NewExtractionError("extract", errors.New("down"))}, 0, `{"name":"n","text":"t"}`, http.StatusBadGateway},
		{"partial write", stubExtractor{}, 2, `{"name":"n","text":"t"}`, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := memory.New()
			st.FailAfter = tc.failAfter
			e := newTestServer(t, tc.extractor, st)

			rec := do(e, jsonRequest(http.MethodPost, "/api/graphs", tc.body))
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestServer_SourceWithoutArchive(t *testing.T) {
	e := newTestServer(t, stubExtractor{}, memory.New())

	rec := do(e, httptest.NewRequest(http.MethodGet, "/api/graphs/g1/source", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
