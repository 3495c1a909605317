package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/pawlink/recall/internal/config"
	"github.com/pawlink/recall/internal/embedding"
	"github.com/pawlink/recall/internal/keyword"
	"github.com/pawlink/recall/internal/models"
	"github.com/pawlink/recall/internal/ranking"
	"github.com/pawlink/recall/internal/registry"
	"github.com/pawlink/recall/internal/router"
	"github.com/pawlink/recall/internal/storage"
)

const testDim = 16

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "recall.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	faqIndex, err := keyword.NewFAQIndex(filepath.Join(t.TempDir(), "faq.bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { faqIndex.Close() })

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Embedding.Dimensions = testDim
	cfg.Storage.IndexDir = t.TempDir()

	embedder := embedding.NewMockEmbedder(testDim)
	reg := registry.New(registry.Options{IndexDir: cfg.Storage.IndexDir, Dimensions: testDim},
		embedder, registry.Sources(store), nil)
	rt := config.NewRuntime(cfg.Search)
	ranker := ranking.New(store, reg, embedder, rt, nil)
	qr := router.New(reg, ranker, embedder, rt, nil)

	srv := NewServer(qr, reg, faqIndex, cfg, nil)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestQueryEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/query", &models.QueryRequest{
		Intent: models.IntentGeneral, Query: "hello",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var env models.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatal(err)
	}
	if env.Intent != models.IntentGeneral {
		t.Errorf("intent = %q", env.Intent)
	}

	bad := postJSON(t, ts.URL+"/api/v1/query", &models.QueryRequest{
		Intent: "guess", Query: "hello",
	})
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid intent status = %d", bad.StatusCode)
	}
}

func TestAddAndDeleteItem(t *testing.T) {
	_, ts := newTestServer(t)
	itemsURL := ts.URL + "/api/v1/stores/user/items"

	resp := postJSON(t, itemsURL, &addItemRequest{ID: 42, Text: "corgi person in berlin"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add status = %d", resp.StatusCode)
	}

	dup := postJSON(t, itemsURL, &addItemRequest{ID: 42, Text: "same id again"})
	defer dup.Body.Close()
	if dup.StatusCode != http.StatusConflict {
		t.Errorf("duplicate add status = %d", dup.StatusCode)
	}

	up := postJSON(t, itemsURL, &addItemRequest{ID: 42, Text: "moved to hamburg", Upsert: true})
	defer up.Body.Close()
	if up.StatusCode != http.StatusCreated {
		t.Errorf("upsert status = %d", up.StatusCode)
	}

	req, err := http.NewRequest(http.MethodDelete, itemsURL+"/42", nil)
	if err != nil {
		t.Fatal(err)
	}
	del, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer del.Body.Close()
	if del.StatusCode != http.StatusOK {
		t.Errorf("delete status = %d", del.StatusCode)
	}
}

func TestAddItemUnknownEntity(t *testing.T) {
	_, ts := newTestServer(t)
	resp := postJSON(t, ts.URL+"/api/v1/stores/planet/items", &addItemRequest{ID: 1, Text: "x"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestRebuildReturnsJobID(t *testing.T) {
	_, ts := newTestServer(t)
	resp := postJSON(t, ts.URL+"/api/v1/stores/user/rebuild", struct{}{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	jobID := body["job_id"]
	if jobID == "" {
		t.Fatal("no job id")
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		jr, err := http.Get(ts.URL + "/api/v1/jobs/" + jobID)
		if err != nil {
			t.Fatal(err)
		}
		var job struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		}
		err = json.NewDecoder(jr.Body).Decode(&job)
		jr.Body.Close()
		if err != nil {
			t.Fatal(err)
		}
		if job.Status == "done" {
			return
		}
		if job.Status == "failed" {
			t.Fatalf("rebuild failed: %s", job.Error)
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("rebuild job did not finish")
}

func TestJobStatusUnknownID(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/v1/jobs/no-such-job")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestFAQKeywordSearchEndpoint(t *testing.T) {
	srv, ts := newTestServer(t)
	err := srv.faqIndex.Index(context.Background(), &models.FAQ{
		ID: 1, Question: "How do I reset my password?", Answer: "Settings, then security.",
	})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(ts.URL + "/api/v1/faq/keyword-search?q=password")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Results []*keyword.Result `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Results) != 1 || body.Results[0].ID != 1 {
		t.Fatalf("results = %+v", body.Results)
	}

	missing, err := http.Get(ts.URL + "/api/v1/faq/keyword-search")
	if err != nil {
		t.Fatal(err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusBadRequest {
		t.Errorf("missing q status = %d", missing.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	// touch the user store so status has something to report
	resp := postJSON(t, ts.URL+"/api/v1/stores/user/items", &addItemRequest{ID: 7, Text: "hello"})
	resp.Body.Close()

	st, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Body.Close()
	if st.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", st.StatusCode)
	}
	var body struct {
		Entities []string                          `json:"entities"`
		Stores   map[string]map[string]interface{} `json:"stores"`
	}
	if err := json.NewDecoder(st.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Entities) != len(models.EntityTypes) {
		t.Errorf("entities = %v", body.Entities)
	}
	user, ok := body.Stores["user"]
	if !ok {
		t.Fatalf("user store missing from status: %+v", body.Stores)
	}
	if fmt.Sprintf("%v", user["records"]) != "1" {
		t.Errorf("user records = %v", user["records"])
	}
}
