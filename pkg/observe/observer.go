package observe

import (
	"context"
	"fmt"

	"github.com/getmockd/oasstub/pkg/model"
	"github.com/getmockd/oasstub/pkg/store"
)

// MetricsKey is the session key holding the metrics of all APIs.
const MetricsKey = "oasstub.api.metrics"

// Observer records call metrics.
type Observer struct {
	session store.SessionStorage
}

// NewObserver returns an Observer backed by session.
func NewObserver(session store.SessionStorage) *Observer {
	return &Observer{session: session}
}

// AddMetric appends metric to the metrics of API name under the request path.
func (o *Observer) AddMetric(ctx context.Context, name, path string, metric model.Metric) error {
	all, err := o.AllMetrics(ctx)
	if err != nil {
		return err
	}
	m, ok := all[name]
	if !ok || m == nil {
		m = &model.Metrics{}
		all[name] = m
	}
	m.Add(path, metric)
	if err := o.session.Put(ctx, MetricsKey, all, 0); err != nil {
		return fmt.Errorf("store metrics: %w", err)
	}
	return nil
}

// Metrics returns the metrics of API name. It reports false if nothing was
// recorded for it.
func (o *Observer) Metrics(ctx context.Context, name string) (*model.Metrics, bool, error) {
	all, err := o.AllMetrics(ctx)
	if err != nil {
		return nil, false, err
	}
	m, ok := all[name]
	if !ok || m == nil {
		return nil, false, nil
	}
	return m, true, nil
}

// AllMetrics returns the metrics of every API. The result is never nil.
func (o *Observer) AllMetrics(ctx context.Context) (map[string]*model.Metrics, error) {
	all, ok, err := store.GetAs[map[string]*model.Metrics](ctx, o.session, MetricsKey)
	if err != nil {
		return nil, fmt.Errorf("load metrics: %w", err)
	}
	if !ok || all == nil {
		all = make(map[string]*model.Metrics)
	}
	return all, nil
}

// ClearMetrics removes the metrics of every API. Clearing twice is not an
// error.
func (o *Observer) ClearMetrics(ctx context.Context) error {
	if _, err := o.session.Delete(ctx, MetricsKey); err != nil {
		return fmt.Errorf("clear metrics: %w", err)
	}
	return nil
}
