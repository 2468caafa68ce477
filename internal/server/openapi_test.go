package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandleOpenAPI(t *testing.T) {
	h := handleOpenAPI()
	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	rec := httptest.NewRecorder()

	h(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "application/json") {
		t.Fatalf("content-type = %q, want application/json", got)
	}

	var doc struct {
		OpenAPI string                     `json:"openapi"`
		Paths   map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decoding spec: %v", err)
	}
	if !strings.HasPrefix(doc.OpenAPI, "3.") {
		t.Errorf("openapi = %q", doc.OpenAPI)
	}
	for _, p := range []string{
		"/healthz",
		"/api/matches/{matchID}/lineups/{teamID}/assign",
		"/api/matches/{matchID}/goals",
		"/api/matches/{matchID}/clock/speed",
	} {
		if _, ok := doc.Paths[p]; !ok {
			t.Errorf("spec missing path %s", p)
		}
	}
}

func TestEveryOperationIsDocumented(t *testing.T) {
	data, err := json.Marshal(newOpenAPISpec())
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}

	for _, op := range operations() {
		item, ok := doc.Paths[op.path]
		if !ok {
			t.Errorf("%s %s: path missing", op.method, op.path)
			continue
		}
		if _, ok := item[strings.ToLower(op.method)]; !ok {
			t.Errorf("%s %s: operation missing", op.method, op.path)
		}
	}
}
