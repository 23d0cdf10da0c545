package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/marchglen/lorekeep/internal/assist"
	"github.com/marchglen/lorekeep/internal/entityservice"
	"github.com/marchglen/lorekeep/internal/models"
	"github.com/marchglen/lorekeep/internal/proposal"
	"github.com/marchglen/lorekeep/internal/storage"
	"github.com/marchglen/lorekeep/internal/store"
)

// testEnv sets up a temp database, attachment store, services, and router.
// authToken="" means auth disabled; a non-empty token enables token mode.
func testEnv(t *testing.T, authToken string) (*assist.Manager, http.Handler) {
	t.Helper()

	dbFile, err := os.CreateTemp("", "lorekeep-api-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	attachments, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	svc := entityservice.NewService(db)
	sessions := assist.NewManager(svc, nil)
	router := NewRouter(svc, sessions, attachments, authToken != "", authToken, nil)
	return sessions, router
}

func createEntity(t *testing.T, router http.Handler, entityType, name string, extra map[string]any) EntityDetail {
	t.Helper()
	fields := map[string]any{"name": name}
	for k, v := range extra {
		fields[k] = v
	}
	body, _ := json.Marshal(map[string]any{"type": entityType, "fields": fields})
	req := httptest.NewRequest(http.MethodPost, "/entities", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create entity = %d, body = %s", w.Code, w.Body.String())
	}
	var detail EntityDetail
	_ = json.Unmarshal(w.Body.Bytes(), &detail)
	return detail
}

func TestCreateAndGetEntity(t *testing.T) {
	_, router := testEnv(t, "")

	created := createEntity(t, router, "character", "Mira Voss", map[string]any{
		"description": "A scout from the **northern** wastes.",
	})
	if created.Checksum == "" {
		t.Error("expected checksum on create response")
	}

	req := httptest.NewRequest(http.MethodGet, "/entities/"+created.ID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got EntityDetail
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Name != "Mira Voss" {
		t.Errorf("name = %q, want Mira Voss", got.Name)
	}
	// Rich text is stored in document form, not as raw Markdown.
	desc, _ := got.Fields["description"].(string)
	if !strings.Contains(desc, `"type":"doc"`) {
		t.Errorf("description not normalized to document form: %q", desc)
	}
}

func TestCreateEntity_InvalidType(t *testing.T) {
	_, router := testEnv(t, "")

	body, _ := json.Marshal(map[string]any{"type": "spaceship", "fields": map[string]any{"name": "x"}})
	req := httptest.NewRequest(http.MethodPost, "/entities", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid type = %d, want 400", w.Code)
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	_, router := testEnv(t, "")
	created := createEntity(t, router, "location", "Duskmere", nil)

	// Update with correct checksum.
	updateBody, _ := json.Marshal(map[string]any{"fields": map[string]any{"name": "Duskmere Keep"}})
	req := httptest.NewRequest(http.MethodPut, "/entities/"+created.ID, bytes.NewReader(updateBody))
	req.Header.Set("If-Match", created.Checksum)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update with correct checksum = %d, body = %s", w.Code, w.Body.String())
	}

	// Update with stale checksum → 409.
	req = httptest.NewRequest(http.MethodPut, "/entities/"+created.ID, bytes.NewReader(updateBody))
	req.Header.Set("If-Match", created.Checksum) // stale now
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("update with stale checksum = %d, want 409", w.Code)
	}
}

func TestUpdateWithoutIfMatch(t *testing.T) {
	_, router := testEnv(t, "")
	created := createEntity(t, router, "item", "Ashen Blade", nil)

	updateBody, _ := json.Marshal(map[string]any{"fields": map[string]any{"name": "Ashen Greatblade"}})
	req := httptest.NewRequest(http.MethodPut, "/entities/"+created.ID, bytes.NewReader(updateBody))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("update without If-Match = %d, want 200", w.Code)
	}
}

func TestDeleteEntity(t *testing.T) {
	_, router := testEnv(t, "")
	created := createEntity(t, router, "quest", "The Long Road", nil)

	req := httptest.NewRequest(http.MethodDelete, "/entities/"+created.ID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/entities/"+created.ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestListEntitiesWithTypeFilter(t *testing.T) {
	_, router := testEnv(t, "")
	createEntity(t, router, "character", "Mira Voss", nil)
	createEntity(t, router, "character", "Tobben Gale", nil)
	createEntity(t, router, "location", "Duskmere", nil)

	req := httptest.NewRequest(http.MethodGet, "/entities?type=character", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp struct {
		Entities []models.Entity `json:"entities"`
		Total    int             `json:"total"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Entities) != 2 || resp.Total != 2 {
		t.Errorf("characters = %d (total %d), want 2", len(resp.Entities), resp.Total)
	}
}

func TestSearch(t *testing.T) {
	_, router := testEnv(t, "")
	createEntity(t, router, "faction", "Order of the Veiled Sun", map[string]any{
		"description": "A secretive order of sun priests.",
	})

	req := httptest.NewRequest(http.MethodGet, "/search?q=Veiled", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Results []SearchResult `json:"results"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}
	if resp.Results[0].Name != "Order of the Veiled Sun" {
		t.Errorf("name = %q", resp.Results[0].Name)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	_, router := testEnv(t, "")
	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("search without q = %d, want 400", w.Code)
	}
}

func TestRelationshipsAndGraph(t *testing.T) {
	_, router := testEnv(t, "")
	mira := createEntity(t, router, "character", "Mira Voss", nil)
	duskmere := createEntity(t, router, "location", "Duskmere", nil)

	body, _ := json.Marshal(map[string]any{
		"sourceId": mira.ID,
		"targetId": duskmere.ID,
		"type":     "lives_in",
	})
	req := httptest.NewRequest(http.MethodPost, "/relationships", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create relationship = %d, body = %s", w.Code, w.Body.String())
	}

	// Duplicate (same source, target, type) conflicts.
	req = httptest.NewRequest(http.MethodPost, "/relationships", bytes.NewReader(body))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate relationship = %d, want 409", w.Code)
	}

	// Listed from the entity side.
	req = httptest.NewRequest(http.MethodGet, "/entities/"+mira.ID+"/relationships", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var relResp struct {
		Relationships []models.Relationship `json:"relationships"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &relResp)
	if len(relResp.Relationships) != 1 {
		t.Fatalf("relationships = %d, want 1", len(relResp.Relationships))
	}
	if relResp.Relationships[0].TargetName != "Duskmere" {
		t.Errorf("target name = %q", relResp.Relationships[0].TargetName)
	}

	// Graph includes both nodes and the link.
	req = httptest.NewRequest(http.MethodGet, "/graph", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var graphResp struct {
		Nodes []entityservice.GraphNode `json:"nodes"`
		Links []entityservice.GraphLink `json:"links"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &graphResp)
	if len(graphResp.Nodes) != 2 || len(graphResp.Links) != 1 {
		t.Errorf("graph = %d nodes / %d links, want 2/1", len(graphResp.Nodes), len(graphResp.Links))
	}
}

func TestSessionProposalLifecycle(t *testing.T) {
	sessions, router := testEnv(t, "")

	// Start a session over HTTP.
	req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("start session = %d", w.Code)
	}
	var sessResp SessionResponse
	_ = json.Unmarshal(w.Body.Bytes(), &sessResp)

	s, err := sessions.Session(sessResp.ID)
	if err != nil {
		t.Fatalf("session lookup: %v", err)
	}

	// The assistant registers a proposal through the tracker.
	p := s.Tracker().AddCreate(proposal.CreateInput{
		EntityType: models.TypeCharacter,
		Data:       map[string]any{"name": "Tobben Gale", "description": "A weathered ferryman."},
		Reasoning:  "mentioned in the session log",
	})

	// It shows up pending.
	req = httptest.NewRequest(http.MethodGet, "/sessions/"+sessResp.ID+"/proposals?status=pending", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var listResp struct {
		Proposals []*proposal.Proposal `json:"proposals"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &listResp)
	if len(listResp.Proposals) != 1 {
		t.Fatalf("pending = %d, want 1", len(listResp.Proposals))
	}

	// Accept applies it.
	req = httptest.NewRequest(http.MethodPost, "/sessions/"+sessResp.ID+"/proposals/"+p.ID+"/accept", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("accept = %d, body = %s", w.Code, w.Body.String())
	}
	var decision struct {
		Proposal *proposal.Proposal `json:"proposal"`
		Outcome  *struct {
			Entity *EntityDetail `json:"entity"`
		} `json:"outcome"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &decision)
	if decision.Proposal.Status != proposal.StatusAccepted {
		t.Errorf("status = %q, want accepted", decision.Proposal.Status)
	}
	if decision.Outcome == nil || decision.Outcome.Entity == nil {
		t.Fatal("expected created entity in outcome")
	}

	// The entity is now persisted.
	req = httptest.NewRequest(http.MethodGet, "/entities/"+decision.Outcome.Entity.ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("get created entity = %d", w.Code)
	}

	// Accepting again fails.
	req = httptest.NewRequest(http.MethodPost, "/sessions/"+sessResp.ID+"/proposals/"+p.ID+"/accept", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusOK {
		t.Error("second accept should not succeed")
	}
}

func TestRejectProposal(t *testing.T) {
	sessions, router := testEnv(t, "")
	s := sessions.StartSession()
	p := s.Tracker().AddCreate(proposal.CreateInput{
		EntityType: models.TypeLore,
		Data:       map[string]any{"name": "The Sundering", "body": "Long ago..."},
	})

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+s.ID+"/proposals/"+p.ID+"/reject", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("reject = %d", w.Code)
	}

	// Nothing was persisted.
	req = httptest.NewRequest(http.MethodGet, "/entities?type=lore", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var resp struct {
		Total int `json:"total"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 0 {
		t.Errorf("lore entities = %d, want 0 after reject", resp.Total)
	}
}

func TestClearProposals(t *testing.T) {
	sessions, router := testEnv(t, "")
	s := sessions.StartSession()
	s.Tracker().AddCreate(proposal.CreateInput{
		EntityType: models.TypeItem,
		Data:       map[string]any{"name": "Lantern of Wick"},
	})

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+s.ID+"/proposals/clear", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("clear = %d", w.Code)
	}
	if len(s.Tracker().List()) != 0 {
		t.Error("tracker not empty after clear")
	}
}

func TestUnknownSession(t *testing.T) {
	_, router := testEnv(t, "")
	req := httptest.NewRequest(http.MethodGet, "/sessions/nope/proposals", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown session = %d, want 404", w.Code)
	}
}

func TestAttachmentUploadAndServe(t *testing.T) {
	_, router := testEnv(t, "")
	e := createEntity(t, router, "location", "Duskmere", nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "map.png")
	_, _ = fw.Write([]byte("fake png bytes"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/entities/"+e.ID+"/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var att storage.Attachment
	_ = json.Unmarshal(w.Body.Bytes(), &att)

	// Listed for the entity.
	req = httptest.NewRequest(http.MethodGet, "/entities/"+e.ID+"/attachments", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var listResp struct {
		Attachments []storage.Attachment `json:"attachments"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &listResp)
	if len(listResp.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(listResp.Attachments))
	}

	// Served back.
	req = httptest.NewRequest(http.MethodGet, "/attachments/"+att.Path, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("serve = %d", w.Code)
	}
	if w.Body.String() != "fake png bytes" {
		t.Errorf("served body = %q", w.Body.String())
	}
}

func TestAuthModes(t *testing.T) {
	_, router := testEnv(t, "secret-token")

	// No token → 401.
	req := httptest.NewRequest(http.MethodGet, "/entities", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}

	// Wrong token → 401.
	req = httptest.NewRequest(http.MethodGet, "/entities", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}

	// Correct token → 200.
	req = httptest.NewRequest(http.MethodGet, "/entities", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("correct token = %d, want 200", w.Code)
	}
}
