package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/oasstub/pkg/model"
	"github.com/getmockd/oasstub/pkg/store/memory"
)

func TestObserver_AddMetric(t *testing.T) {
	ctx := context.Background()
	o := NewObserver(memory.NewSessionStore())

	require.NoError(t, o.AddMetric(ctx, "petstore", "/v1/pets/1", model.Metric{Method: "GET", Path: "/v1/pets/1", Status: 200}))
	require.NoError(t, o.AddMetric(ctx, "petstore", "/v1/pets/1", model.Metric{Method: "GET", Path: "/v1/pets/1", Status: 200}))
	require.NoError(t, o.AddMetric(ctx, "petstore", "/v1/pets/2", model.Metric{Method: "GET", Path: "/v1/pets/2", Status: 404}))
	require.NoError(t, o.AddMetric(ctx, "other", "/x", model.Metric{Method: "POST", Path: "/x", Status: 201}))

	m, ok, err := o.Metrics(ctx, "petstore")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, m.Count())
	assert.Len(t, m.ByPath("/v1/pets/1"), 2)
	assert.Len(t, m.ByStatus(404), 1)
	assert.Len(t, m.ByTemplate("/v1/pets/{id}"), 3)

	all, err := o.AllMetrics(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestObserver_MetricsAbsent(t *testing.T) {
	o := NewObserver(memory.NewSessionStore())
	m, ok, err := o.Metrics(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, m)
}

func TestObserver_ClearMetricsIdempotent(t *testing.T) {
	ctx := context.Background()
	o := NewObserver(memory.NewSessionStore())
	require.NoError(t, o.AddMetric(ctx, "a", "/a", model.Metric{Status: 200}))

	require.NoError(t, o.ClearMetrics(ctx))
	require.NoError(t, o.ClearMetrics(ctx))

	all, err := o.AllMetrics(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

type staticNames []string

func (n staticNames) Names(context.Context) ([]string, error) { return n, nil }

type failingNames struct{}

func (failingNames) Names(context.Context) ([]string, error) { return nil, errors.New("boom") }

func TestRecorder_AddAndRead(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder(memory.NewSessionStore(), staticNames{"petstore"})

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, r.AddRecord(ctx, "petstore", model.Record{
		Method:    "GET",
		Path:      "/v1/pets/1",
		Timestamp: ts,
		Response:  model.RecordResponse{Status: 200, Body: []byte(`{"id":1}`)},
	}))
	require.NoError(t, r.AddRecord(ctx, "petstore", model.Record{Method: "DELETE", Path: "/v1/pets/1"}))

	records, ok, err := r.Records(ctx, "petstore")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, records.Records, 2)
	assert.Equal(t, "GET", records.Records[0].Method)
	assert.True(t, ts.Equal(records.Records[0].Timestamp))
	assert.Equal(t, `{"id":1}`, string(records.Records[0].Response.Body))
	assert.NotEmpty(t, records.Records[1].ID)
	assert.False(t, records.Records[1].Timestamp.IsZero())
	assert.Len(t, records.ByPath("/v1/pets/1"), 2)
}

func TestRecorder_RecordsAbsent(t *testing.T) {
	r := NewRecorder(memory.NewSessionStore(), staticNames{})
	records, ok, err := r.Records(context.Background(), "none")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NotNil(t, records)
	assert.Empty(t, records.Records)
}

func TestRecorder_Clear(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder(memory.NewSessionStore(), staticNames{"a", "b"})
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, r.AddRecord(ctx, name, model.Record{Method: "GET", Path: "/"}))
	}

	require.NoError(t, r.ClearRecords(ctx, "a"))
	_, ok, err := r.Records(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.ClearAllRecords(ctx))
	_, ok, _ = r.Records(ctx, "b")
	assert.False(t, ok)
	// "c" is not a registered name so it survives.
	_, ok, _ = r.Records(ctx, "c")
	assert.True(t, ok)
}

func TestRecorder_ClearAllRecordsNamesError(t *testing.T) {
	r := NewRecorder(memory.NewSessionStore(), failingNames{})
	assert.Error(t, r.ClearAllRecords(context.Background()))
}
