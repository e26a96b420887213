package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mydays/internal/date"
	"github.com/roach88/mydays/internal/state"
	"github.com/roach88/mydays/internal/store"
	"github.com/roach88/mydays/internal/task"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func strptr(s string) *string { return &s }

func sampleRow(id string) Row {
	records := task.Records{
		task.TemplateRecord(task.Template{
			ID:         "t1",
			Date:       date.MustParse("2025-01-01"),
			Title:      "Gym",
			Priority:   task.PriorityMedium,
			Recurrence: task.RecurrenceWeekly,
		}),
		task.CompletionRecord(task.MarkerKey{TemplateID: "t1", Date: date.MustParse("2025-01-08")}),
	}
	return Row{
		ID:    id,
		Owner: "u1",
		Data: state.Document{
			Theme: strptr("forest"),
			Tasks: &records,
		},
		UpdatedAt: time.Date(2025, 1, 8, 10, 0, 0, 0, time.UTC),
	}
}

func newTestServer(t *testing.T, docs DocumentStore) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(docs).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func sqliteDocs(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type failingDocs struct{}

func (failingDocs) ReadDocument(context.Context, string) (store.Document, error) {
	return store.Document{}, errors.New("disk on fire")
}

func (failingDocs) UpsertDocument(context.Context, store.Document) error {
	return errors.New("disk on fire")
}

func TestClient_RoundTripThroughServer(t *testing.T) {
	srv := newTestServer(t, sqliteDocs(t))
	c := NewClient(srv.URL+"/", time.Second)
	ctx := context.Background()

	_, err := c.Fetch(ctx, RowID("u1"))
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsNetworkFailure(err))

	want := sampleRow(RowID("u1"))
	require.NoError(t, c.Upsert(ctx, want))

	got, err := c.Fetch(ctx, RowID("u1"))
	require.NoError(t, err)
	assert.Equal(t, "state_u1", got.ID)
	assert.Equal(t, "u1", got.Owner)
	assert.True(t, got.UpdatedAt.Equal(want.UpdatedAt))
	require.NotNil(t, got.Data.Theme)
	assert.Equal(t, "forest", *got.Data.Theme)
	assert.Nil(t, got.Data.Sound, "absent fields stay absent")
	require.NotNil(t, got.Data.Tasks)
	assert.Len(t, *got.Data.Tasks, 2)

	wantFP, err := state.FingerprintOf(want.Data)
	require.NoError(t, err)
	gotFP, err := state.FingerprintOf(got.Data)
	require.NoError(t, err)
	assert.Equal(t, wantFP, gotFP)
}

func TestClient_ServerErrorIsNetworkFailure(t *testing.T) {
	srv := newTestServer(t, failingDocs{})
	c := NewClient(srv.URL, time.Second)

	_, err := c.Fetch(context.Background(), "state_u1")
	assert.True(t, IsNetworkFailure(err))

	err = c.Upsert(context.Background(), sampleRow("state_u1"))
	assert.True(t, IsNetworkFailure(err))
}

func TestClient_UnreachableIsNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second)
	_, err := c.Fetch(context.Background(), "state_u1")
	require.Error(t, err)
	assert.True(t, IsNetworkFailure(err))

	var re *Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "fetch", re.Op)
}

func TestServer_RejectsMismatchedID(t *testing.T) {
	srv := newTestServer(t, sqliteDocs(t))
	c := NewClient(srv.URL, time.Second)

	row := sampleRow("state_u1")
	body := `{"id":"state_other","user_id":"u1","data":{}}`
	req, err := http.NewRequest(http.MethodPut, srv.URL+"/v1/documents/"+row.ID, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, err = c.Fetch(context.Background(), row.ID)
	assert.True(t, IsNotFound(err), "nothing stored")
}

func TestServer_RejectsNonObjectData(t *testing.T) {
	srv := newTestServer(t, sqliteDocs(t))

	for _, body := range []string{
		`{"id":"state_u1","data":[1,2]}`,
		`{"id":"state_u1","data":null}`,
		`{"id":"state_u1"}`,
		`not json`,
	} {
		req, err := http.NewRequest(http.MethodPut, srv.URL+"/v1/documents/state_u1", strings.NewReader(body))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, sqliteDocs(t))

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_StampsMissingUpdatedAt(t *testing.T) {
	docs := sqliteDocs(t)
	s := NewServer(docs)
	fixed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/v1/documents/state_u9",
		strings.NewReader(`{"user_id":"u9","data":{"view":"month"}}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc, err := docs.ReadDocument(context.Background(), "state_u9")
	require.NoError(t, err)
	assert.True(t, doc.UpdatedAt.Equal(fixed))
	assert.JSONEq(t, `{"view":"month"}`, string(doc.Data))
}

func TestMemory_FailureInjectionAndCounts(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Fetch(ctx, "state_u1")
	assert.True(t, IsNotFound(err))

	m.SetOffline(true)
	assert.True(t, IsNetworkFailure(m.Upsert(ctx, sampleRow("state_u1"))))
	_, ok := m.Get("state_u1")
	assert.False(t, ok)

	m.SetOffline(false)
	require.NoError(t, m.Upsert(ctx, sampleRow("state_u1")))
	got, err := m.Fetch(ctx, "state_u1")
	require.NoError(t, err)
	assert.Equal(t, "forest", *got.Data.Theme)

	fetches, upserts := m.Calls()
	assert.Equal(t, 2, fetches)
	assert.Equal(t, 2, upserts)
}
