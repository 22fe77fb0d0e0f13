package adjustments

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/ekomart/ekomart-admin/internal/observability"
	"github.com/ekomart/ekomart-admin/internal/rbac"
	"github.com/ekomart/ekomart-admin/internal/shared"
)

type fakePermissions struct {
	granted map[int64][]string
}

func (f fakePermissions) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	return f.granted[userID], nil
}

func sessionInjector(userID int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID > 0 {
				sess := &shared.Session{ID: "test-session"}
				sess.SetUser(userID)
				r = r.WithContext(shared.ContextWithSession(r.Context(), sess))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newTestRouter(t *testing.T, repo *memoryAdjRepo, userID int64, perms ...string) http.Handler {
	t.Helper()
	svc := newTestService(repo)
	source := fakePermissions{granted: map[int64][]string{userID: perms}}
	middleware := rbac.Middleware{Source: source}
	handler := NewHandler(testLogger(), svc, middleware, observability.NewMetrics())

	r := chi.NewRouter()
	r.Use(sessionInjector(userID))
	r.Route("/adjustments", handler.MountRoutes)
	return r
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const createBody = `{
	"warehouse_id": 1,
	"type": "damaged",
	"reason": "Water damage in storage",
	"items": [{"product_id": 10, "previous_quantity": 20, "new_quantity": 15}]
}`

func TestHandlerCreate(t *testing.T) {
	repo := newMemoryAdjRepo()
	router := newTestRouter(t, repo, 7, "inventory.adjust")

	req := httptest.NewRequest(http.MethodPost, "/adjustments/", strings.NewReader(createBody))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusCreated, res.Code)
	var created Adjustment
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &created))
	require.Equal(t, StatusPending, created.Status)
	require.Equal(t, int64(-5), created.Lines[0].Difference)
}

func TestHandlerCreateRejectsBadPayload(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing reason", `{"warehouse_id":1,"type":"damaged","items":[{"product_id":10,"previous_quantity":1,"new_quantity":2}]}`},
		{"empty items", `{"warehouse_id":1,"type":"damaged","reason":"x","items":[]}`},
		{"negative quantity", `{"warehouse_id":1,"type":"damaged","reason":"x","items":[{"product_id":10,"previous_quantity":-1,"new_quantity":2}]}`},
		{"malformed json", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMemoryAdjRepo()
			router := newTestRouter(t, repo, 7, "inventory.adjust")

			req := httptest.NewRequest(http.MethodPost, "/adjustments/", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			res := httptest.NewRecorder()
			router.ServeHTTP(res, req)

			require.Equal(t, http.StatusBadRequest, res.Code)
			require.Empty(t, repo.adjustments)
		})
	}
}

func TestHandlerCreateUnknownWarehouse(t *testing.T) {
	repo := newMemoryAdjRepo()
	router := newTestRouter(t, repo, 7, "inventory.adjust")

	body := `{"warehouse_id":99,"type":"damaged","reason":"x","items":[{"product_id":10,"previous_quantity":1,"new_quantity":2}]}`
	req := httptest.NewRequest(http.MethodPost, "/adjustments/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusNotFound, res.Code)
	require.Empty(t, repo.adjustments)
}

func TestHandlerApproveFlow(t *testing.T) {
	repo := newMemoryAdjRepo()
	svc := newTestService(repo)
	created, err := svc.Create(context.Background(), shared.Actor{ID: 7}, validInput())
	require.NoError(t, err)

	router := newTestRouter(t, repo, 8, "inventory.approve")

	req := httptest.NewRequest(http.MethodPost, "/adjustments/"+created.ID.String()+"/approve", strings.NewReader(`{"note":"checked"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var decided Adjustment
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &decided))
	require.Equal(t, StatusApproved, decided.Status)

	// A second decision conflicts.
	req = httptest.NewRequest(http.MethodPost, "/adjustments/"+created.ID.String()+"/reject", nil)
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusConflict, res.Code)
}

func TestHandlerDecisionRequiresPermission(t *testing.T) {
	repo := newMemoryAdjRepo()
	svc := newTestService(repo)
	created, err := svc.Create(context.Background(), shared.Actor{ID: 7}, validInput())
	require.NoError(t, err)

	// inventory.adjust alone cannot approve.
	router := newTestRouter(t, repo, 7, "inventory.adjust")
	req := httptest.NewRequest(http.MethodPost, "/adjustments/"+created.ID.String()+"/approve", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusForbidden, res.Code)

	stored, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, stored.Status)
}

func TestHandlerRequiresSession(t *testing.T) {
	repo := newMemoryAdjRepo()
	router := newTestRouter(t, repo, 0)

	req := httptest.NewRequest(http.MethodGet, "/adjustments/", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestHandlerShowInvalidID(t *testing.T) {
	repo := newMemoryAdjRepo()
	router := newTestRouter(t, repo, 7, "inventory.view")

	req := httptest.NewRequest(http.MethodGet, "/adjustments/not-a-uuid", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestHandlerListIncludesStats(t *testing.T) {
	repo := newMemoryAdjRepo()
	svc := newTestService(repo)
	_, err := svc.Create(context.Background(), shared.Actor{ID: 7}, validInput())
	require.NoError(t, err)

	router := newTestRouter(t, repo, 7, "inventory.view")
	req := httptest.NewRequest(http.MethodGet, "/adjustments/?status=pending", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var body struct {
		Adjustments []Adjustment      `json:"adjustments"`
		Stats       Stats             `json:"stats"`
		Pagination  shared.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Len(t, body.Adjustments, 1)
	require.Equal(t, int64(1), body.Stats.Pending)
}
