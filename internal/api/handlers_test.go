package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"fatturamerge/internal/config"
	"fatturamerge/internal/pdfkit"
	"fatturamerge/internal/services"
)

// stubEngine fakes the PDF collaborator for transport-level tests.
type stubEngine struct {
	parsed map[string]pdfkit.ParsedDocument
}

func (s *stubEngine) Parse(_ context.Context, name string, _ []byte) (pdfkit.ParsedDocument, error) {
	return s.parsed[name], nil
}

func (s *stubEngine) Merge(_ context.Context, members [][]byte) ([]byte, error) {
	var out []byte
	for _, m := range members {
		out = append(out, m...)
	}
	return out, nil
}

func newTestRouter(engine pdfkit.Engine, maxUploadBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	merger := services.NewMerger(engine, services.MergerConfig{
		Workers:           1,
		GroupingMode:      config.GroupingStrict,
		NamingMode:        config.NamingComposite,
		ReferenceFallback: config.ReferenceNone,
	})
	router := gin.New()
	NewHandler(merger, maxUploadBytes).Register(router)
	return router
}

func doUpload(t *testing.T, router *gin.Engine, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/merge", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestMergeEndpointHappyPath(t *testing.T) {
	engine := &stubEngine{parsed: map[string]pdfkit.ParsedDocument{
		"25-02050.pdf":           {PageCount: 3, Text: "Intestatario: Mario Rossi"},
		"25-02050_Allegato1.pdf": {PageCount: 2},
	}}
	router := newTestRouter(engine, 0)

	resp := doUpload(t, router, map[string][]byte{
		"25-02050.pdf":           []byte("MAIN"),
		"25-02050_Allegato1.pdf": []byte("ATT"),
	})

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.Code, resp.Body.String())
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("content type = %q, want application/zip", ct)
	}
	if got := resp.Header().Get("X-Groups-Merged"); got != "1" {
		t.Errorf("X-Groups-Merged = %q, want 1", got)
	}

	zr, err := zip.NewReader(bytes.NewReader(resp.Body.Bytes()), int64(resp.Body.Len()))
	if err != nil {
		t.Fatalf("response is not a zip archive: %v", err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != "25-02050_Mario Rossi.pdf" {
		t.Fatalf("zip entries = %v, want one entry named for the addressee", entryNames(zr))
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(content, []byte("MAINATT")) {
		t.Errorf("merged entry = %q, want main pages before attachment pages", content)
	}
}

func TestMergeEndpointEmptyResult(t *testing.T) {
	router := newTestRouter(&stubEngine{parsed: map[string]pdfkit.ParsedDocument{}}, 0)

	resp := doUpload(t, router, map[string][]byte{
		"senza_identificativo.pdf": []byte("x"),
	})

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.Code)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body.Error == "" {
		t.Error("empty-result response must carry a distinct error message")
	}
}

func TestMergeEndpointNoFiles(t *testing.T) {
	router := newTestRouter(&stubEngine{parsed: map[string]pdfkit.ParsedDocument{}}, 0)
	resp := doUpload(t, router, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}

func TestMergeEndpointUploadCap(t *testing.T) {
	router := newTestRouter(&stubEngine{parsed: map[string]pdfkit.ParsedDocument{}}, 8)
	resp := doUpload(t, router, map[string][]byte{
		"25-02050.pdf": []byte("0123456789"),
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for oversized upload", resp.Code)
	}
}

func TestMergeEndpointUnreadablePart(t *testing.T) {
	router := newTestRouter(&stubEngine{parsed: map[string]pdfkit.ParsedDocument{}}, 0)

	// A part that parsed fine but whose backing storage is gone by the time
	// the handler reads it. That failure is ours, not the client's.
	req := httptest.NewRequest(http.MethodPost, "/api/merge", nil)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	req.MultipartForm = &multipart.Form{
		File: map[string][]*multipart.FileHeader{
			"files": {{Filename: "25-02050.pdf", Size: 4}},
		},
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 for a server-side read failure", resp.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(&stubEngine{parsed: map[string]pdfkit.ParsedDocument{}}, 0)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
}

func TestIndexServesUploadPage(t *testing.T) {
	router := newTestRouter(&stubEngine{parsed: map[string]pdfkit.ParsedDocument{}}, 0)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	if !bytes.Contains(resp.Body.Bytes(), []byte("/api/merge")) {
		t.Error("index page must post to /api/merge")
	}
}

func entryNames(zr *zip.Reader) []string {
	names := make([]string, len(zr.File))
	for i, f := range zr.File {
		names[i] = f.Name
	}
	return names
}
