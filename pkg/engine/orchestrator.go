package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/getmockd/oasstub/internal/matching"
	"github.com/getmockd/oasstub/pkg/definitions"
	"github.com/getmockd/oasstub/pkg/delay"
	"github.com/getmockd/oasstub/pkg/logging"
	"github.com/getmockd/oasstub/pkg/model"
	"github.com/getmockd/oasstub/pkg/observe"
	"github.com/getmockd/oasstub/pkg/plugin"
	"github.com/getmockd/oasstub/pkg/store"
	"github.com/getmockd/oasstub/pkg/stub"
	"github.com/getmockd/oasstub/pkg/validation"
)

// Telemetry receives a measurement of every call.
type Telemetry interface {
	// ObserveCall is called once per call. api is empty when no API matched.
	ObserveCall(api, method string, status int, elapsed time.Duration)
	// PluginFailed is called when a plugin fails to compile or run.
	PluginFailed(api string, err error)
}

type nopTelemetry struct{}

func (nopTelemetry) ObserveCall(string, string, int, time.Duration) {}
func (nopTelemetry) PluginFailed(string, error)                     {}

// Orchestrator executes stub calls.
type Orchestrator struct {
	defs      *definitions.Store
	plugins   *plugin.Engine
	delays    *delay.Service
	session   store.SessionStorage
	observer  *observe.Observer
	recorder  *observe.Recorder
	responder *stub.Responder
	telemetry Telemetry
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTelemetry sets the receiver of call measurements.
func WithTelemetry(t Telemetry) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.telemetry = t
		}
	}
}

// WithResponder sets the default response synthesiser.
func WithResponder(r *stub.Responder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.responder = r
		}
	}
}

// WithClock sets the clock used for elapsed times and timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// NewOrchestrator creates an Orchestrator. Metrics, records and plugin
// session values are kept in session.
func NewOrchestrator(defs *definitions.Store, plugins *plugin.Engine, delays *delay.Service, session store.SessionStorage, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		defs:      defs,
		plugins:   plugins,
		delays:    delays,
		session:   session,
		observer:  observe.NewObserver(session),
		recorder:  observe.NewRecorder(session, defs),
		responder: stub.NewResponder(nil),
		telemetry: nopTelemetry{},
		logger:    logging.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Observer returns the metrics observer.
func (o *Orchestrator) Observer() *observe.Observer { return o.observer }

// Recorder returns the call recorder.
func (o *Orchestrator) Recorder() *observe.Recorder { return o.recorder }

// call is the state of one execution.
type call struct {
	req   *Request
	start time.Time

	name     string
	path     string
	defs     *model.APIDefinitions
	options  *model.Options
	headers  *model.Headers
	reqHdrs  http.Header
	doc      *openapi3.T
	adjusted string
	template string
	item     *openapi3.PathItem
	op       *openapi3.Operation

	// err is the failure reported with the metric.
	err error
	// failed skips the delay of simulated failures.
	failed bool
}

// Execute runs req through every stage and returns the response. It never
// returns nil. When ctx is done before the response is ready the result is
// a 504.
func (o *Orchestrator) Execute(ctx context.Context, req *Request) *Response {
	c := &call{req: req, start: o.now()}

	resp, resolved := o.resolve(ctx, c)
	if c.defs == nil {
		o.telemetry.ObserveCall("", req.Method, resp.Status, o.now().Sub(c.start))
		return resp
	}
	if resolved {
		resp = o.synthesise(c)
	}
	resp = o.customize(ctx, c, resp)
	resp = o.delay(ctx, c, resp)
	if err := ctx.Err(); err != nil && resp.Status != http.StatusGatewayTimeout && !c.failed {
		c.err = err
		resp = errorResponse(http.StatusGatewayTimeout)
	}
	resp.API, resp.Path = c.name, c.path
	o.record(ctx, c, resp)
	return resp
}

// ExecuteAsync runs Execute in its own goroutine.
func (o *Orchestrator) ExecuteAsync(ctx context.Context, req *Request) delay.Deferred[*Response] {
	return delay.Future(func() (*Response, error) {
		return o.Execute(ctx, req), nil
	})
}

// resolve finds the API, path item and operation of c. The returned
// response is the error response when resolution failed; c.defs is nil
// when no API matched at all.
func (o *Orchestrator) resolve(ctx context.Context, c *call) (*Response, bool) {
	name, path, ok := SplitPath(c.req.Path)
	if !ok {
		return errorResponse(http.StatusNotFound), false
	}
	defs, err := o.defs.Get(ctx, name)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			o.logger.Error("failed to load definitions", "api", name, "error", err)
			return errorResponse(http.StatusInternalServerError), false
		}
		return errorResponse(http.StatusNotFound), false
	}

	c.name, c.path, c.defs = name, path, defs
	c.options = model.MergeProperty(defs, path, c.req.Method, model.OptionsOf)
	c.headers = model.MergeProperty(defs, path, c.req.Method, model.HeadersOf)
	c.reqHdrs = requestHeaders(c.headers, c.req.Headers)

	doc, err := o.defs.OpenAPI(ctx, name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return errorResponse(http.StatusNotFound), false
	case err != nil:
		o.logger.Error("failed to load specification", "api", name, "error", err)
		c.err = err
		return errorResponse(http.StatusInternalServerError), false
	}
	c.doc = doc

	adjusted, ok := definitions.AdjustBasePath(path, doc)
	if !ok {
		return errorResponse(http.StatusNotFound), false
	}
	template, item, ok := definitions.FindPathItem(doc, adjusted)
	if !ok {
		return errorResponse(http.StatusNotFound), false
	}
	c.adjusted, c.template, c.item = adjusted, template, item

	op := definitions.Operation(item, c.req.Method)
	if op == nil {
		return errorResponse(http.StatusMethodNotAllowed), false
	}
	c.op = op
	return nil, true
}

// synthesise validates the request and builds the default response.
func (o *Orchestrator) synthesise(c *call) *Response {
	var failure error
	if c.options.Validate() {
		if err := validation.PathParameters(c.adjusted, c.template, c.item, c.op); err != nil {
			f := &validation.Failure{Errors: []validation.InvalidParam{{Name: validation.UnknownParam, Reason: err.Error()}}}
			errors.As(err, &f)
			return &Response{
				Status:      f.Problem().Status,
				Headers:     http.Header{},
				ContentType: validation.ContentTypeProblem,
				Body:        f.ProblemJSON(),
			}
		}
		failure = validation.Security(c.doc, c.op, c.req.Query, c.reqHdrs, c.req.Cookies)
		if failure == nil {
			failure = validation.RequestParameters(c.req.Query, c.reqHdrs, c.item, c.op)
		}
		if failure != nil {
			o.logger.Debug("request validation failed", "api", c.name, "path", c.path, "error", failure)
		}
	}
	sr := o.responder.Respond(c.op, c.reqHdrs.Values("Accept"), failure)
	return &Response{
		Status:      sr.Status,
		Headers:     http.Header{},
		ContentType: sr.ContentType,
		Body:        sr.Body,
	}
}

// customize merges configured headers, applies a configured failure and
// runs the plugin.
func (o *Orchestrator) customize(ctx context.Context, c *call, resp *Response) *Response {
	if c.headers != nil {
		resp.Headers = overlayHeaders(c.headers.Response, resp.Headers)
	}

	if f := failureOf(c.options); f != nil {
		c.failed = true
		c.err = fmt.Errorf("simulated %s failure", f.Type)
		switch f.Type {
		case model.FailureProtocol:
			return &Response{Status: StatusMalformed, Headers: http.Header{}, Failure: f}
		case model.FailureHTTP:
			return &Response{Status: f.Status, Headers: resp.Headers, Failure: f}
		default:
			return &Response{Headers: http.Header{}, Failure: f}
		}
	}

	if def := model.MergeProperty(c.defs, c.path, c.req.Method, model.PluginOf); def != nil && def.Script != "" {
		out, err := o.plugins.Apply(ctx, c.name, *def, o.pluginContext(c, resp))
		if err != nil {
			o.logger.Error("plugin failed", "api", c.name, "path", c.path, "type", def.Type, "error", err)
			o.telemetry.PluginFailed(c.name, err)
			c.err = err
			return errorResponse(http.StatusInternalServerError)
		}
		resp = &Response{
			Status:      out.Status,
			Headers:     http.Header(out.Headers),
			ContentType: out.ContentType,
			Body:        out.Body,
		}
	}

	if c.options != nil {
		resp.Latency = c.options.Latency.Duration()
	}
	return resp
}

func failureOf(o *model.Options) *model.Failure {
	if o == nil {
		return nil
	}
	return o.Failure
}

func (o *Orchestrator) pluginContext(c *call, resp *Response) *plugin.Context {
	cookies := make(map[string]string, len(c.req.Cookies))
	for _, ck := range c.req.Cookies {
		cookies[ck.Name] = ck.Value
	}
	var params map[string]string
	if c.template != "" {
		params = matching.PathVariables(c.template, c.adjusted)
	}
	return &plugin.Context{
		API: c.name,
		Request: &plugin.Request{
			Method:      c.req.Method,
			Path:        c.path,
			Template:    c.template,
			PathParams:  params,
			Query:       c.req.Query,
			Headers:     c.reqHdrs,
			Cookies:     cookies,
			ContentType: c.req.ContentType,
			Body:        c.req.Body,
		},
		Response: &plugin.Response{
			Status:      resp.Status,
			Headers:     resp.Headers,
			ContentType: resp.ContentType,
			Body:        resp.Body,
		},
		Data:    model.MergeProperty(c.defs, c.path, c.req.Method, model.DataOf),
		Session: o.session,
	}
}

// delay holds resp back until the configured delay, counted from the start
// of the call, has passed.
func (o *Orchestrator) delay(ctx context.Context, c *call, resp *Response) *Response {
	if c.failed {
		return resp
	}
	policy, err := o.delays.Policy(ctx, c.name, c.path, c.req.Method)
	if err != nil {
		o.logger.Warn("failed to resolve delay", "api", c.name, "path", c.path, "error", err)
		return resp
	}
	out, err := delay.Delay(o.delays.Scheduler(), c.start, policy, delay.Value(resp)).Await(ctx)
	if err != nil {
		c.err = err
		return errorResponse(http.StatusGatewayTimeout)
	}
	return out
}

// record writes the metric and record of c. It runs even when ctx is done.
func (o *Orchestrator) record(ctx context.Context, c *call, resp *Response) {
	ctx = context.WithoutCancel(ctx)
	elapsed := o.now().Sub(c.start)
	o.telemetry.ObserveCall(c.name, c.req.Method, resp.Status, elapsed)

	if c.options.Monitor() {
		metric := model.Metric{
			Timestamp: c.start,
			Duration:  elapsed,
			Path:      c.path,
			Method:    c.req.Method,
			Status:    resp.Status,
		}
		if c.err != nil {
			metric.Error = c.err.Error()
		}
		if err := o.observer.AddMetric(ctx, c.name, c.path, metric); err != nil {
			o.logger.Warn("failed to store metric", "api", c.name, "path", c.path, "error", err)
		}
	}

	if c.options.Record() {
		cookies := make(map[string]string, len(c.req.Cookies))
		for _, ck := range c.req.Cookies {
			cookies[ck.Name] = ck.Value
		}
		rec := model.Record{
			Timestamp: c.start,
			Method:    c.req.Method,
			Path:      c.path,
			Request: model.RecordRequest{
				ContentType: c.req.ContentType,
				Headers:     c.reqHdrs,
				Cookies:     cookies,
				Body:        c.req.Body,
			},
			Response: model.RecordResponse{
				Status:      resp.Status,
				ContentType: resp.ContentType,
				Headers:     resp.Headers,
				Body:        resp.Body,
			},
		}
		if err := o.recorder.AddRecord(ctx, c.name, rec); err != nil {
			o.logger.Warn("failed to store record", "api", c.name, "path", c.path, "error", err)
		}
	}
}

// requestHeaders returns the configured request headers overridden by the
// headers of the request.
func requestHeaders(cfg *model.Headers, actual http.Header) http.Header {
	if cfg == nil {
		return overlayHeaders(nil, actual)
	}
	return overlayHeaders(cfg.Request, actual)
}

// overlayHeaders returns base overridden name by name by over.
func overlayHeaders(base map[string][]string, over http.Header) http.Header {
	out := make(http.Header, len(base)+len(over))
	for _, k := range model.SortedHeaderNames(base) {
		out[http.CanonicalHeaderKey(k)] = slices.Clone(base[k])
	}
	for k, v := range over {
		out[http.CanonicalHeaderKey(k)] = slices.Clone(v)
	}
	return out
}
