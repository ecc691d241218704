package admin

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/getmockd/oasstub/pkg/httputil"
	"github.com/getmockd/oasstub/pkg/model"
)

func (a *API) handleAllMetrics(w http.ResponseWriter, r *http.Request) {
	all, err := a.observer.AllMetrics(r.Context())
	if err != nil {
		a.writeRegistryError(w, err, "list metrics", "")
		return
	}
	httputil.WriteOK(w, all)
}

// handleMetrics returns the metrics of one API. With any of the path,
// status or method query parameters set, the matching metrics are
// returned as a flat list instead.
func (a *API) handleMetrics(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	m, ok, err := a.observer.Metrics(r.Context(), name)
	if err != nil {
		a.writeRegistryError(w, err, "get metrics", name)
		return
	}
	if !ok {
		httputil.WriteNotFound(w, "not_found", "no metrics for api "+name)
		return
	}

	q := r.URL.Query()
	path, method, rawStatus := q.Get("path"), q.Get("method"), q.Get("status")
	if path == "" && method == "" && rawStatus == "" {
		httputil.WriteOK(w, m)
		return
	}

	list := m.All()
	if path != "" {
		list = m.ByTemplate(path)
	}
	if rawStatus != "" {
		status, err := strconv.Atoi(rawStatus)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid_status", "status must be an integer")
			return
		}
		list = list.ByStatus(status)
	}
	if method != "" {
		list = list.ByMethod(strings.ToUpper(method))
	}
	httputil.WriteOK(w, list)
}

func (a *API) handleClearMetrics(w http.ResponseWriter, r *http.Request) {
	if err := a.observer.ClearMetrics(r.Context()); err != nil {
		a.writeRegistryError(w, err, "clear metrics", "")
		return
	}
	httputil.WriteNoContent(w)
}

func (a *API) handleRecords(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	records, _, err := a.recorder.Records(r.Context(), name)
	if err != nil {
		a.writeRegistryError(w, err, "get records", name)
		return
	}
	if path := r.URL.Query().Get("path"); path != "" {
		filtered := records.ByPath(path)
		if filtered == nil {
			filtered = []model.Record{}
		}
		httputil.WriteOK(w, model.Records{Records: filtered})
		return
	}
	if records.Records == nil {
		records.Records = []model.Record{}
	}
	httputil.WriteOK(w, records)
}

func (a *API) handleClearRecords(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := a.recorder.ClearRecords(r.Context(), name); err != nil {
		a.writeRegistryError(w, err, "clear records", name)
		return
	}
	httputil.WriteNoContent(w)
}

func (a *API) handleClearAllRecords(w http.ResponseWriter, r *http.Request) {
	if err := a.recorder.ClearAllRecords(r.Context()); err != nil {
		a.writeRegistryError(w, err, "clear records", "")
		return
	}
	httputil.WriteNoContent(w)
}
