package plugin

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"

	"github.com/getmockd/oasstub/pkg/model"
)

var sessionType = cel.OpaqueType("oasstub.Session")

// sessionVal carries session access into a CEL evaluation.
type sessionVal struct {
	access sessionAccess
}

func (s *sessionVal) ConvertToNative(t reflect.Type) (any, error) {
	return nil, fmt.Errorf("session cannot be converted to %v", t)
}

func (s *sessionVal) ConvertToType(t ref.Type) ref.Val {
	if t == types.TypeType {
		return sessionType
	}
	return types.NewErr("session cannot be converted to %s", t.TypeName())
}

func (s *sessionVal) Equal(other ref.Val) ref.Val {
	o, ok := other.(*sessionVal)
	return types.Bool(ok && o == s)
}

func (s *sessionVal) Type() ref.Type { return sessionType }
func (s *sessionVal) Value() any     { return s }

func newCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("request", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("response", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("data", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("session", sessionType),

		cel.Function("get",
			cel.MemberOverload("session_get_string", []*cel.Type{sessionType, cel.StringType}, cel.DynType,
				cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					s, ok := lhs.(*sessionVal)
					if !ok {
						return types.NewErr("no such overload")
					}
					v, err := s.access.get(string(rhs.(types.String)))
					if err != nil {
						return types.NewErr("session get: %v", err)
					}
					return types.DefaultTypeAdapter.NativeToValue(v)
				}))),
		cel.Function("put",
			cel.MemberOverload("session_put_string_dyn", []*cel.Type{sessionType, cel.StringType, cel.DynType}, cel.BoolType,
				cel.FunctionBinding(func(args ...ref.Val) ref.Val {
					s, ok := args[0].(*sessionVal)
					if !ok {
						return types.NewErr("no such overload")
					}
					if err := s.access.put(string(args[1].(types.String)), toNative(args[2])); err != nil {
						return types.NewErr("session put: %v", err)
					}
					return types.True
				}))),
		cel.Function("delete",
			cel.MemberOverload("session_delete_string", []*cel.Type{sessionType, cel.StringType}, cel.BoolType,
				cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					s, ok := lhs.(*sessionVal)
					if !ok {
						return types.NewErr("no such overload")
					}
					deleted, err := s.access.remove(string(rhs.(types.String)))
					if err != nil {
						return types.NewErr("session delete: %v", err)
					}
					return types.Bool(deleted)
				}))),

		cel.Function("toJSON",
			cel.Overload("toJSON_dyn", []*cel.Type{cel.DynType}, cel.StringType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					s, err := toJSON(toNative(v))
					if err != nil {
						return types.NewErr("toJSON: %v", err)
					}
					return types.String(s)
				}))),
		cel.Function("fromJSON",
			cel.Overload("fromJSON_string", []*cel.Type{cel.StringType}, cel.DynType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					out, err := fromJSON(string(v.(types.String)))
					if err != nil {
						return types.NewErr("fromJSON: %v", err)
					}
					return types.DefaultTypeAdapter.NativeToValue(out)
				}))),
		cel.Function("jsonPath",
			cel.Overload("jsonPath_dyn_string", []*cel.Type{cel.DynType, cel.StringType}, cel.DynType,
				cel.BinaryBinding(func(v, path ref.Val) ref.Val {
					out, err := jsonPath(toNative(v), string(path.(types.String)))
					if err != nil {
						return types.NewErr("jsonPath: %v", err)
					}
					return types.DefaultTypeAdapter.NativeToValue(out)
				}))),
	)
}

type celCompiler struct {
	env *cel.Env
}

func newCELCompiler() (*celCompiler, error) {
	env, err := newCELEnv()
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	return &celCompiler{env: env}, nil
}

func (c *celCompiler) Compile(script string) (Program, error) {
	ast, iss := c.env.Compile(script)
	if iss.Err() != nil {
		return nil, &CompilationError{Type: model.PluginCEL, Cause: iss.Err()}
	}
	switch kind := ast.OutputType().Kind(); kind {
	case types.MapKind, types.DynKind, types.NullTypeKind:
	default:
		return nil, &CompilationError{
			Type:  model.PluginCEL,
			Cause: fmt.Errorf("script evaluates to %s, want a map", ast.OutputType()),
		}
	}
	prg, err := c.env.Program(ast, cel.InterruptCheckFrequency(100))
	if err != nil {
		return nil, &CompilationError{Type: model.PluginCEL, Cause: err}
	}
	return &celProgram{program: prg}, nil
}

type celProgram struct {
	program cel.Program
}

func (p *celProgram) Run(ctx context.Context, pc *Context) (map[string]any, error) {
	data := map[string]any(pc.Data)
	if data == nil {
		data = map[string]any{}
	}
	out, _, err := p.program.ContextEval(ctx, map[string]any{
		"request":  pc.requestMap(),
		"response": pc.responseMap(),
		"data":     data,
		"session":  &sessionVal{access: sessionAccess{ctx: ctx, pc: pc}},
	})
	if err != nil {
		return nil, err
	}
	switch v := toNative(out).(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("script returned %T, want a map", v)
	}
}

// toNative converts a CEL value to plain Go maps, lists and scalars.
func toNative(v ref.Val) any {
	switch v := v.(type) {
	case nil:
		return nil
	case types.Null:
		return nil
	case traits.Mapper:
		out := make(map[string]any)
		it := v.Iterator()
		for it.HasNext() == types.True {
			k := it.Next()
			out[fmt.Sprint(toNative(k))] = toNative(v.Get(k))
		}
		return out
	case traits.Lister:
		n, _ := v.Size().(types.Int)
		out := make([]any, 0, int(n))
		for i := types.Int(0); i < n; i++ {
			out = append(out, toNative(v.Get(i)))
		}
		return out
	default:
		return v.Value()
	}
}
