package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"cinescript/internal/ai"
	"cinescript/internal/api"
	"cinescript/internal/models"
	"cinescript/internal/production"
	"cinescript/internal/storage"
)

const testAPIKey = "test-ambient-key"

var screenplayPDF = []byte("%PDF-1.4\nFADE IN:\nEXT. LIGHTHOUSE - NIGHT\n%%EOF")

// fakeBackend speaks just enough of the generation REST surface for the
// orchestration to run against it: the list-models probe, structured
// analysis, storyboard stills and the long-running render operation.
type fakeBackend struct {
	Server *httptest.Server

	mu              sync.Mutex
	scene           models.MovieScene
	analysisFault   *backendFault
	storyboardFault *backendFault
	renderFault     *backendFault
	pendingPolls    int
	analysisCalls   int
	renderStarts    int
	renderPolls     int
}

type backendFault struct {
	status  int
	message string
}

func newFakeBackend() *fakeBackend {
	b := &fakeBackend{
		scene: models.MovieScene{
			Title:        "Last Light",
			Description:  "A keeper signals a ship that sailed decades ago.",
			VisualPrompt: "A lone keeper on a storm-battered lighthouse gallery at dusk",
			Genre:        "Sci-fi",
			Mood:         "Epic",
			Characters:   []string{"The Keeper"},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/models", b.handleProbe)
	mux.HandleFunc("/models/script-model:generateContent", b.handleAnalysis)
	mux.HandleFunc("/models/image-model:generateContent", b.handleStoryboard)
	mux.HandleFunc("/models/veo-model:predictLongRunning", b.handleRenderStart)
	mux.HandleFunc("/operations/render-1", b.handleRenderPoll)
	b.Server = httptest.NewServer(mux)
	return b
}

func (b *fakeBackend) checkKey(w http.ResponseWriter, r *http.Request) bool {
	if r.URL.Query().Get("key") == testAPIKey {
		return true
	}
	writeFault(w, &backendFault{http.StatusBadRequest, "API key not valid. Please pass a valid API key."})
	return false
}

func (b *fakeBackend) handleProbe(w http.ResponseWriter, r *http.Request) {
	if !b.checkKey(w, r) {
		return
	}
	fmt.Fprint(w, `{"models":[{"name":"models/script-model"}]}`)
}

func (b *fakeBackend) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if !b.checkKey(w, r) {
		return
	}
	b.mu.Lock()
	b.analysisCalls++
	fault := b.analysisFault
	scene := b.scene
	b.mu.Unlock()

	if fault != nil {
		writeFault(w, fault)
		return
	}

	// Honor the structured-output schema: cues only when the request marked
	// them required.
	var req struct {
		GenerationConfig struct {
			ResponseSchema struct {
				Required []string `json:"required"`
			} `json:"responseSchema"`
		} `json:"generationConfig"`
	}
	json.NewDecoder(r.Body).Decode(&req)
	if slices.Contains(req.GenerationConfig.ResponseSchema.Required, "subtitles") {
		scene.Subtitles = []models.Subtitle{{StartTime: 0, EndTime: 2.5, Text: "We never left."}}
	}

	payload, _ := json.Marshal(scene)
	writeCandidateText(w, string(payload))
}

func (b *fakeBackend) handleStoryboard(w http.ResponseWriter, r *http.Request) {
	if !b.checkKey(w, r) {
		return
	}
	b.mu.Lock()
	fault := b.storyboardFault
	b.mu.Unlock()
	if fault != nil {
		writeFault(w, fault)
		return
	}

	resp := map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{
						"inlineData": map[string]any{"mimeType": "image/png", "data": "c3RpbGw="},
					}},
				},
			},
		},
	}
	json.NewEncoder(w).Encode(resp)
}

func (b *fakeBackend) handleRenderStart(w http.ResponseWriter, r *http.Request) {
	if !b.checkKey(w, r) {
		return
	}
	b.mu.Lock()
	b.renderStarts++
	b.mu.Unlock()
	fmt.Fprint(w, `{"name":"operations/render-1"}`)
}

// handleRenderPoll reports the job pending for the first pendingPolls
// status checks, then resolves it.
func (b *fakeBackend) handleRenderPoll(w http.ResponseWriter, r *http.Request) {
	if !b.checkKey(w, r) {
		return
	}
	b.mu.Lock()
	b.renderPolls++
	pending := b.renderPolls <= b.pendingPolls
	fault := b.renderFault
	b.mu.Unlock()

	if pending {
		fmt.Fprint(w, `{"name":"operations/render-1","done":false}`)
		return
	}
	if fault != nil {
		json.NewEncoder(w).Encode(map[string]any{
			"name": "operations/render-1",
			"done": true,
			"error": map[string]any{
				"code":    fault.status,
				"message": fault.message,
			},
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"name": "operations/render-1",
		"done": true,
		"response": map[string]any{
			"generateVideoResponse": map[string]any{
				"generatedSamples": []any{
					map[string]any{"video": map[string]any{"uri": "https://storage.example.com/render.mp4"}},
				},
			},
		},
	})
}

func (b *fakeBackend) setAnalysisFault(status int, message string) {
	b.mu.Lock()
	b.analysisFault = &backendFault{status, message}
	b.mu.Unlock()
}

func (b *fakeBackend) setStoryboardFault(status int, message string) {
	b.mu.Lock()
	b.storyboardFault = &backendFault{status, message}
	b.mu.Unlock()
}

func (b *fakeBackend) setRenderFault(status int, message string) {
	b.mu.Lock()
	b.renderFault = &backendFault{status, message}
	b.mu.Unlock()
}

func (b *fakeBackend) clearFaults() {
	b.mu.Lock()
	b.analysisFault, b.storyboardFault, b.renderFault = nil, nil, nil
	b.mu.Unlock()
}

func (b *fakeBackend) counts() (analyses, renderStarts, renderPolls int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.analysisCalls, b.renderStarts, b.renderPolls
}

func (b *fakeBackend) setPendingPolls(n int) {
	b.mu.Lock()
	b.pendingPolls = n
	b.mu.Unlock()
}

func writeFault(w http.ResponseWriter, fault *backendFault) {
	w.WriteHeader(fault.status)
	fmt.Fprintf(w, `{"error":{"code":%d,"message":%q,"status":"ERROR"}}`, fault.status, fault.message)
}

func writeCandidateText(w http.ResponseWriter, text string) {
	resp := map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{"text": text}},
				},
			},
		},
	}
	json.NewEncoder(w).Encode(resp)
}

type TestServer struct {
	Server   *httptest.Server
	Backend  *fakeBackend
	App      *api.App
	Service  *production.Service
	SpoolDir string
	TempDir  string
}

func setupTestServer(t *testing.T) *TestServer {
	tempDir, err := os.MkdirTemp("", "cinescript_test_*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	spoolDir := filepath.Join(tempDir, "uploads")
	if err := os.MkdirAll(spoolDir, 0755); err != nil {
		t.Fatalf("Failed to create spool dir: %v", err)
	}

	localStorage, err := storage.NewLocalStorage(spoolDir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	backend := newFakeBackend()

	aiCfg := &ai.Config{
		BaseURL:       backend.Server.URL,
		AnalysisModel: "script-model",
		ImageModel:    "image-model",
		VideoModel:    "veo-model",
		PollInterval:  2 * time.Millisecond,
		PollLimit:     10,
	}
	factory := func(apiKey string) production.GenerationClient {
		return ai.NewClient(aiCfg, apiKey)
	}

	svc := production.NewService(factory, localStorage, testAPIKey)

	app := &api.App{
		Production:    svc,
		MaxUploadSize: 10 * 1024 * 1024, // 10MB
	}

	server := httptest.NewServer(api.NewRouter(app))

	return &TestServer{
		Server:   server,
		Backend:  backend,
		App:      app,
		Service:  svc,
		SpoolDir: spoolDir,
		TempDir:  tempDir,
	}
}

func (ts *TestServer) Cleanup() {
	ts.Server.Close()
	ts.Backend.Server.Close()
	os.RemoveAll(ts.TempDir)
}

func (ts *TestServer) projectURL(projectID, suffix string) string {
	return ts.Server.URL + "/api/projects/" + projectID + suffix
}

func doJSON(t *testing.T, method, url string, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("Failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to perform %s %s: %v", method, url, err)
	}
	return resp
}

func decodeSnapshot(t *testing.T, r io.Reader) production.Snapshot {
	t.Helper()
	var snap production.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		t.Fatalf("Failed to decode snapshot: %v", err)
	}
	return snap
}

func createProject(t *testing.T, ts *TestServer) production.Snapshot {
	t.Helper()
	resp := doJSON(t, http.MethodPost, ts.Server.URL+"/api/projects", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", resp.StatusCode)
	}
	return decodeSnapshot(t, resp.Body)
}

func getSnapshot(t *testing.T, ts *TestServer, projectID string) production.Snapshot {
	t.Helper()
	resp, err := http.Get(ts.projectURL(projectID, ""))
	if err != nil {
		t.Fatalf("Failed to fetch snapshot: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200 for snapshot, got %d", resp.StatusCode)
	}
	return decodeSnapshot(t, resp.Body)
}

func createScreenplayUpload(filename, contentType string, content []byte) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	// CreateFormFile would hardcode application/octet-stream; the MIME gate
	// needs the real content type on the part.
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="screenplay"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(content); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

func uploadScreenplay(t *testing.T, ts *TestServer, projectID, filename, contentType string, content []byte) *http.Response {
	t.Helper()
	body, formType, err := createScreenplayUpload(filename, contentType, content)
	if err != nil {
		t.Fatalf("Failed to build upload: %v", err)
	}
	resp, err := http.Post(ts.projectURL(projectID, "/screenplay"), formType, body)
	if err != nil {
		t.Fatalf("Failed to upload screenplay: %v", err)
	}
	return resp
}

// configureProject applies the standard test configuration and one archetype,
// leaving the project ready for analysis.
func configureProject(t *testing.T, ts *TestServer, projectID string) {
	t.Helper()
	resp := doJSON(t, http.MethodPatch, ts.projectURL(projectID, "/config"), map[string]any{
		"genre":  "Sci-fi",
		"mood":   "Epic",
		"camera": "Static",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Failed to apply config: status %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, ts.projectURL(projectID, "/config/archetypes"), map[string]string{"archetype": "Reluctant Hero"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Failed to toggle archetype: status %d", resp.StatusCode)
	}
}

// waitForPhase polls the snapshot until the project reaches the phase or the
// deadline passes.
func waitForPhase(t *testing.T, ts *TestServer, projectID string, phase production.Phase) production.Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := getSnapshot(t, ts, projectID)
		if snap.Phase == phase {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("Project never reached phase %q, stuck in %q", phase, snap.Phase)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// driveToStoryboard walks a fresh project through upload, configuration and
// analysis, returning its id once the storyboard is ready.
func driveToStoryboard(t *testing.T, ts *TestServer) string {
	t.Helper()
	snap := createProject(t, ts)
	if snap.Phase != production.PhaseUpload {
		t.Fatalf("Expected new project in upload, got %q", snap.Phase)
	}

	resp := uploadScreenplay(t, ts, snap.ID, "screenplay.pdf", "application/pdf", screenplayPDF)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Upload failed: status %d", resp.StatusCode)
	}

	configureProject(t, ts, snap.ID)

	resp = doJSON(t, http.MethodPost, ts.projectURL(snap.ID, "/analysis"), nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("Analysis start failed: status %d", resp.StatusCode)
	}

	waitForPhase(t, ts, snap.ID, production.PhaseStoryboard)
	return snap.ID
}

func spoolFileCount(t *testing.T, ts *TestServer) int {
	t.Helper()
	entries, err := os.ReadDir(ts.SpoolDir)
	if err != nil {
		t.Fatalf("Failed to read spool dir: %v", err)
	}
	return len(entries)
}
