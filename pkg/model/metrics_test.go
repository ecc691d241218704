package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_Aggregation(t *testing.T) {
	t.Parallel()

	m := &Metrics{}
	for _, status := range []int{200, 200, 404} {
		m.Add("/v1/pets/1", Metric{Path: "/v1/pets/1", Method: "GET", Status: status})
	}
	m.Add("/v1/pets/2", Metric{Path: "/v1/pets/2", Method: "DELETE", Status: 204})

	assert.Equal(t, 3, m.ByPath("/v1/pets/1").Count())
	assert.Equal(t, 2, m.ByPath("/v1/pets/1").ByStatus(200).Count())
	assert.Equal(t, 1, m.ByPath("/v1/pets/1").ByStatus(404).Count())
	assert.Equal(t, 2, m.ByStatus(200).Count())
	assert.Equal(t, 4, m.Count())
	assert.Equal(t, 4, m.ByTemplate("/v1/pets/{id}").Count())
	assert.Equal(t, 1, m.All().ByMethod("DELETE").Count())
	assert.Equal(t, 0, m.ByPath("/v1/owners").Count())
}

func TestMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.Equal(t, 0, m.Count())
	assert.Equal(t, 0, m.ByPath("/x").Count())
	assert.Equal(t, 0, m.ByStatus(200).Count())
}

func TestRecords_ByPath(t *testing.T) {
	t.Parallel()

	r := &Records{}
	r.Add(Record{ID: "1", Path: "/a"}).Add(Record{ID: "2", Path: "/b"}).Add(Record{ID: "3", Path: "/a"})

	got := r.ByPath("/a")
	assert.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "3", got[1].ID)
}
