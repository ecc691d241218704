package delay

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/getmockd/oasstub/pkg/model"
)

// Target returns the total latency cfg asks for. Random delays pick a
// value between Min and Max inclusive on every call.
func Target(cfg *model.Delay) time.Duration {
	if cfg == nil {
		return 0
	}
	switch cfg.Type {
	case model.DelayRandom:
		lo, hi := cfg.Min, cfg.Max
		if hi < lo {
			lo, hi = hi, lo
		}
		n := lo
		if hi > lo {
			n += rand.Int64N(hi - lo + 1)
		}
		return cfg.Unit.Duration(n)
	default:
		return cfg.Unit.Duration(cfg.Duration)
	}
}

// Compute returns how much longer a response that already took elapsed
// must wait. It reports false when there is no delay to apply.
func Compute(cfg *model.Delay, elapsed time.Duration) (time.Duration, bool) {
	target := Target(cfg)
	if target <= 0 || elapsed >= target {
		return 0, false
	}
	return target - elapsed, true
}

// DefinitionSource reads API definitions.
type DefinitionSource interface {
	Get(ctx context.Context, name string) (*model.APIDefinitions, error)
}

// Service computes delays from stored definitions.
type Service struct {
	defs      DefinitionSource
	scheduler *Scheduler
}

// NewService creates a Service. scheduler runs the waits of Wrap.
func NewService(defs DefinitionSource, scheduler *Scheduler) *Service {
	return &Service{defs: defs, scheduler: scheduler}
}

// Policy returns the delay effective for path and method of the API name,
// or nil.
func (s *Service) Policy(ctx context.Context, name, path, method string) (*model.Delay, error) {
	defs, err := s.defs.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return model.MergeProperty(defs, path, method, model.DelayOf), nil
}

// ComputeDelay returns the remaining delay for a request to the API name
// that has been running for elapsed.
func (s *Service) ComputeDelay(ctx context.Context, name, path, method string, elapsed time.Duration) (time.Duration, bool, error) {
	policy, err := s.Policy(ctx, name, path, method)
	if err != nil {
		return 0, false, err
	}
	d, ok := Compute(policy, elapsed)
	return d, ok, nil
}

// Scheduler returns the scheduler the service waits on.
func (s *Service) Scheduler() *Scheduler {
	return s.scheduler
}
