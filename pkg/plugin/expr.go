package plugin

import (
	"context"
	"fmt"
	"reflect"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/vm"

	"github.com/getmockd/oasstub/pkg/model"
)

type exprEnv struct {
	Request  map[string]any `expr:"request"`
	Response map[string]any `expr:"response"`
	Data     map[string]any `expr:"data"`
	Session  *exprSession   `expr:"session"`
}

type exprSession struct {
	access sessionAccess
}

func (s *exprSession) Get(key string) (any, error) {
	return s.access.get(key)
}

func (s *exprSession) Put(key string, value any) (bool, error) {
	if err := s.access.put(key, value); err != nil {
		return false, err
	}
	return true, nil
}

func (s *exprSession) Delete(key string) (bool, error) {
	return s.access.remove(key)
}

var exprHelpers = []expr.Option{
	expr.Function("toJSON", func(params ...any) (any, error) {
		return toJSON(params[0])
	}, new(func(any) string)),
	expr.Function("fromJSON", func(params ...any) (any, error) {
		return fromJSON(params[0].(string))
	}, new(func(string) any)),
	expr.Function("jsonPath", func(params ...any) (any, error) {
		return jsonPath(params[0], params[1].(string))
	}, new(func(any, string) any)),
}

type exprCompiler struct{}

func (exprCompiler) Compile(script string) (Program, error) {
	opts := append([]expr.Option{expr.Env(exprEnv{})}, exprHelpers...)
	program, err := expr.Compile(script, append(opts, expr.AsKind(reflect.Map))...)
	if err != nil {
		// A bare nil keeps the response and is not a map to the checker.
		if p, nilErr := expr.Compile(script, opts...); nilErr == nil && isNilLiteral(p) {
			return &exprProgram{program: p}, nil
		}
		return nil, &CompilationError{Type: model.PluginExpr, Cause: err}
	}
	return &exprProgram{program: program}, nil
}

func isNilLiteral(p *vm.Program) bool {
	_, ok := p.Node().(*ast.NilNode)
	return ok
}

type exprProgram struct {
	program *vm.Program
}

func (p *exprProgram) Run(ctx context.Context, pc *Context) (map[string]any, error) {
	env := exprEnv{
		Request:  pc.requestMap(),
		Response: pc.responseMap(),
		Data:     map[string]any(pc.Data),
		Session:  &exprSession{access: sessionAccess{ctx: ctx, pc: pc}},
	}
	out, err := expr.Run(p.program, env)
	if err != nil {
		return nil, err
	}
	switch v := out.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("script returned %T, want a map", out)
	}
}
