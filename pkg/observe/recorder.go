package observe

import (
	"context"
	"fmt"
	"time"

	"github.com/getmockd/oasstub/internal/id"
	"github.com/getmockd/oasstub/pkg/model"
	"github.com/getmockd/oasstub/pkg/store"
)

const recordsKeyPrefix = "oasstub.api.records:"

// RecordsKey returns the session key holding the records of API name.
func RecordsKey(name string) string {
	return recordsKeyPrefix + name
}

// NameLister lists the registered API names.
type NameLister interface {
	Names(ctx context.Context) ([]string, error)
}

// Recorder captures request/response pairs.
type Recorder struct {
	session store.SessionStorage
	names   NameLister
}

// NewRecorder returns a Recorder backed by session. names is used by
// ClearAllRecords to find the APIs to clear.
func NewRecorder(session store.SessionStorage, names NameLister) *Recorder {
	return &Recorder{session: session, names: names}
}

// AddRecord appends rec to the records of API name. An empty ID or
// timestamp is filled in.
func (r *Recorder) AddRecord(ctx context.Context, name string, rec model.Record) error {
	if rec.ID == "" {
		rec.ID = id.Ordered()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	records, _, err := r.Records(ctx, name)
	if err != nil {
		return err
	}
	records.Add(rec)
	if err := r.session.Put(ctx, RecordsKey(name), records, 0); err != nil {
		return fmt.Errorf("store records for %q: %w", name, err)
	}
	return nil
}

// Records returns the records of API name. It reports false if nothing was
// recorded; the returned value is never nil.
func (r *Recorder) Records(ctx context.Context, name string) (*model.Records, bool, error) {
	records, ok, err := store.GetAs[*model.Records](ctx, r.session, RecordsKey(name))
	if err != nil {
		return nil, false, fmt.Errorf("load records for %q: %w", name, err)
	}
	if !ok || records == nil {
		return &model.Records{}, false, nil
	}
	return records, true, nil
}

// ClearRecords removes the records of API name.
func (r *Recorder) ClearRecords(ctx context.Context, name string) error {
	if _, err := r.session.Delete(ctx, RecordsKey(name)); err != nil {
		return fmt.Errorf("clear records for %q: %w", name, err)
	}
	return nil
}

// ClearAllRecords removes the records of every registered API.
func (r *Recorder) ClearAllRecords(ctx context.Context) error {
	names, err := r.names.Names(ctx)
	if err != nil {
		return fmt.Errorf("list apis: %w", err)
	}
	for _, name := range names {
		if err := r.ClearRecords(ctx, name); err != nil {
			return err
		}
	}
	return nil
}
