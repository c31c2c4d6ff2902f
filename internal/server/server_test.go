package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yourorg/apiscout/internal/chooser"
	"github.com/yourorg/apiscout/internal/config"
	"github.com/yourorg/apiscout/internal/openapi"
)

const petstoreJSON = `{
  "info": {"title": "Petstore", "version": "1.0.0"},
  "paths": {
    "/pets": {
      "get": {"summary": "List all pets", "operationId": "listPets"},
      "post": {
        "summary": "Create a pet",
        "operationId": "createPet",
        "requestBody": {
          "content": {
            "application/json": {"schema": {"$ref": "#/components/schemas/Pet"}}
          }
        }
      }
    },
    "/health": {
      "get": {"summary": "Health check", "operationId": "healthCheck"}
    }
  },
  "components": {
    "schemas": {
      "Pet": {"type": "object", "properties": {"name": {"type": "string"}}}
    }
  }
}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	doc, err := openapi.Parse([]byte(petstoreJSON))
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}
	cfg := &config.Config{}
	cfg.SetDefaults()
	// A nil backend client makes choices deterministic.
	srv, err := New(cfg, doc, &chooser.Chooser{}, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatalf("missing request id header")
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestCandidates(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/candidates", "application/json",
		strings.NewReader(`{"q": "how do I create a pet"}`))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Candidates []struct {
			Route  string  `json:"route"`
			Method string  `json:"method"`
			Score  float64 `json:"score"`
		} `json:"candidates"`
	}
	decodeBody(t, resp, &body)
	if len(body.Candidates) == 0 {
		t.Fatalf("expected candidates")
	}
	first := body.Candidates[0]
	if first.Route != "/pets" || first.Method != "post" {
		t.Fatalf("top candidate = %+v", first)
	}
	if first.Score <= 0 {
		t.Fatalf("score = %v", first.Score)
	}
}

func TestCandidatesMissingQuestion(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/candidates", "application/json",
		strings.NewReader(`{"q": "  "}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestCandidatesRejectsGet(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/candidates")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestChooseFallback(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/choose", "application/json",
		strings.NewReader(`{"q": "list all pets"}`))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Route   string `json:"route"`
		Method  string `json:"method"`
		Outcome string `json:"outcome"`
	}
	decodeBody(t, resp, &body)
	if body.Route != "/pets" || body.Method != "get" {
		t.Fatalf("choice = %+v", body)
	}
	if body.Outcome != "fallback" {
		t.Fatalf("outcome = %q", body.Outcome)
	}
}

func TestChooseNoMatch(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/choose", "application/json",
		strings.NewReader(`{"q": "zzz qqq"}`))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["error"] != "No matching endpoint found" {
		t.Fatalf("body = %v", body)
	}
}

func TestResolveCurl(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/resolve/curl?route=/pets&method=post")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Curl string `json:"curl"`
	}
	decodeBody(t, resp, &body)
	if !strings.HasPrefix(body.Curl, `curl -X POST "http://<HOST>/pets"`) {
		t.Fatalf("curl = %s", body.Curl)
	}
	if !strings.Contains(body.Curl, `"name":"string_example"`) {
		t.Fatalf("missing sample body: %s", body.Curl)
	}
}

func TestResolveSampleNoBody(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/resolve/sample?route=/pets&method=get")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["error"] != "no request body schema found" {
		t.Fatalf("body = %v", body)
	}
}

func TestResolveUnknownOperation(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/resolve/summary?route=/missing&method=get")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestResolveUnknownKind(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/resolve/bogus?route=/pets&method=get")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestResolveMissingParams(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/resolve/summary?route=/pets")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
