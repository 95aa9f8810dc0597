package odoosync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mmbizsuite/console_backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSyncer struct {
	persisted map[int]string
}

func newFakeSyncer() *fakeSyncer {
	return &fakeSyncer{persisted: map[int]string{}}
}

func (s *fakeSyncer) EntityType() string { return EntityTypeBrand }
func (s *fakeSyncer) Resource() string   { return "brands" }

func (s *fakeSyncer) List(ctx context.Context) ([]SyncItem, error) {
	return nil, errors.New("not used in this test")
}

func (s *fakeSyncer) Load(ctx context.Context, localId int) (*SyncItem, error) {
	return nil, errors.New("not used in this test")
}

func (s *fakeSyncer) PersistOdooId(ctx context.Context, localId int, odooId string) error {
	s.persisted[localId] = odooId
	return nil
}

// fakeAdapter mimics the Odoo adapter REST surface: PUT by natural key,
// POST to create, {id} / {error:{code,message}} envelopes.
type fakeAdapter struct {
	mux *http.ServeMux

	known       map[string]string // natural key -> remote id
	createCalls int
	updateCalls int
	lastPayload map[string]interface{}
}

func newFakeAdapter() *fakeAdapter {
	a := &fakeAdapter{
		mux:   http.NewServeMux(),
		known: map[string]string{},
	}
	a.mux.HandleFunc("PUT /api/v1/brands/{key}", func(w http.ResponseWriter, r *http.Request) {
		a.updateCalls++
		var payload map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		a.lastPayload = payload
		key := r.PathValue("key")
		id, ok := a.known[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]string{"code": "not_found", "message": "entity does not exist"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
	})
	a.mux.HandleFunc("POST /api/v1/brands", func(w http.ResponseWriter, r *http.Request) {
		a.createCalls++
		var payload map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		a.lastPayload = payload

		code, _ := payload["code"].(string)
		if code == "" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]string{"code": "validation_failed", "message": "code is required"},
			})
			return
		}
		id := "odoo-" + code
		a.known[code] = id
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
	})
	return a
}

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	t.Setenv("ODOO_ADAPTER_BASE_URL", "")
	t.Setenv("ODOO_SYNC_RPS", "1000")
	return NewClient(&models.OdooConnection{BaseUrl: baseURL, ApiKey: "test-key"})
}

func testBrandItem(localId int, code string) SyncItem {
	return SyncItem{
		LocalId:    localId,
		NaturalKey: code,
		Label:      "Brand " + code,
		Payload:    map[string]interface{}{"name": "Brand " + code, "active": true},
		CreateOnly: map[string]interface{}{"code": code},
	}
}

func TestUpsertEntity_CreatesOnNotFound(t *testing.T) {
	adapter := newFakeAdapter()
	srv := httptest.NewServer(adapter.mux)
	defer srv.Close()

	client := testClient(t, srv.URL)
	syncer := newFakeSyncer()

	externalId, created, err := UpsertEntity(context.Background(), client, syncer, testBrandItem(7, "BR-001"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "odoo-BR-001", externalId)

	// Update was tried first; create carried the payload plus create-only fields.
	assert.Equal(t, 1, adapter.updateCalls)
	assert.Equal(t, 1, adapter.createCalls)
	assert.Equal(t, "BR-001", adapter.lastPayload["code"])
	assert.Equal(t, "Brand BR-001", adapter.lastPayload["name"])

	// Remote id lands locally only after the round trip succeeded.
	assert.Equal(t, "odoo-BR-001", syncer.persisted[7])
}

func TestUpsertEntity_UpdatePathOnSecondRun(t *testing.T) {
	adapter := newFakeAdapter()
	srv := httptest.NewServer(adapter.mux)
	defer srv.Close()

	client := testClient(t, srv.URL)
	syncer := newFakeSyncer()
	item := testBrandItem(7, "BR-001")

	_, created, err := UpsertEntity(context.Background(), client, syncer, item)
	require.NoError(t, err)
	require.True(t, created)

	externalId, created, err := UpsertEntity(context.Background(), client, syncer, item)
	require.NoError(t, err)
	assert.False(t, created, "second run must not create a duplicate")
	assert.Equal(t, "odoo-BR-001", externalId)
	assert.Equal(t, 1, adapter.createCalls)
	assert.Equal(t, 2, adapter.updateCalls)

	// The update payload never includes create-only fields.
	_, hasCode := adapter.lastPayload["code"]
	assert.False(t, hasCode)
}

func TestUpsertEntity_ValidationErrorIsTerminal(t *testing.T) {
	adapter := newFakeAdapter()
	srv := httptest.NewServer(adapter.mux)
	defer srv.Close()

	client := testClient(t, srv.URL)
	syncer := newFakeSyncer()

	// No create-only code: the adapter rejects the create.
	item := SyncItem{
		LocalId:    9,
		NaturalKey: "BR-MISSING",
		Payload:    map[string]interface{}{"name": "No Code"},
	}
	// The update is addressed by a key the adapter does not know, so the
	// payload reaches the create step with an empty code.
	_, _, err := UpsertEntity(context.Background(), client, syncer, item)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "validation_failed", apiErr.Code)
	assert.False(t, IsRetryable(err))

	// Nothing was persisted locally for the failed record.
	assert.Empty(t, syncer.persisted)
}

func TestUpsertEntity_RequiresNaturalKey(t *testing.T) {
	client := testClient(t, "http://localhost:0")
	_, _, err := UpsertEntity(context.Background(), client, newFakeSyncer(), SyncItem{LocalId: 1})
	require.Error(t, err)
}

func TestIsNotFound(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"404 status", &APIError{Status: 404}, true},
		{"not_found code on 400", &APIError{Status: 400, Code: "not_found"}, true},
		{"legacy text: not found", &APIError{Status: 400, Message: "Brand Not Found"}, true},
		{"legacy text: does not exist", &APIError{Status: 400, Message: "record does not exist"}, true},
		{"legacy text: unknown entity", &APIError{Status: 400, Message: "unknown entity BR-1"}, true},
		{"validation failure", &APIError{Status: 422, Code: "validation_failed", Message: "bad payload"}, false},
		{"server error", &APIError{Status: 500, Message: "boom"}, false},
		{"transport error", errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsNotFound(tc.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(errors.New("connection refused")))
	assert.True(t, IsRetryable(&APIError{Status: 500}))
	assert.True(t, IsRetryable(&APIError{Status: 429}))
	assert.False(t, IsRetryable(&APIError{Status: 422, Code: "validation_failed"}))
	assert.False(t, IsRetryable(&APIError{Status: 404}))
}
