// Package droppederr defines an analyzer that reports discarded errors from
// telemetry recorder calls. A dropped Flush or Close error hides lost batches.
package droppederr

import (
	"errors"
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
	"golang.org/x/tools/go/types/typeutil"
)

// Analyzer is the droppederr analyzer.
var Analyzer = &analysis.Analyzer{
	Name:     "droppederr",
	Doc:      "reports discarded errors from telemetry Record, RecordMetric, Flush and Close calls",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

// receivers maps a package path suffix to the checked type in it.
var receivers = map[string]string{
	"internal/services/telemetry": "Client",
	"internal/ports":              "Recorder",
}

var methods = map[string]bool{
	"Record":       true,
	"RecordMetric": true,
	"Flush":        true,
	"Close":        true,
}

func run(pass *analysis.Pass) (any, error) {
	insp, ok := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	if !ok {
		return nil, errors.New("failed to assert type: expected *inspector.Inspector")
	}

	filter := []ast.Node{
		(*ast.ExprStmt)(nil),
		(*ast.AssignStmt)(nil),
		(*ast.GoStmt)(nil),
		(*ast.DeferStmt)(nil),
	}
	insp.Preorder(filter, func(n ast.Node) {
		switch s := n.(type) {
		case *ast.ExprStmt:
			if call, ok := ast.Unparen(s.X).(*ast.CallExpr); ok {
				report(pass, call, "")
			}
		case *ast.GoStmt:
			report(pass, s.Call, " in go statement")
		case *ast.DeferStmt:
			report(pass, s.Call, " in defer")
		case *ast.AssignStmt:
			if len(s.Lhs) != 1 || len(s.Rhs) != 1 {
				return
			}
			if id, ok := s.Lhs[0].(*ast.Ident); !ok || id.Name != "_" {
				return
			}
			if call, ok := ast.Unparen(s.Rhs[0]).(*ast.CallExpr); ok {
				report(pass, call, "")
			}
		}
	})
	return nil, nil
}

func report(pass *analysis.Pass, call *ast.CallExpr, where string) {
	if name, ok := recorderMethod(pass.TypesInfo, call); ok {
		pass.Reportf(call.Pos(), "error returned by %s is discarded%s", name, where)
	}
}

// recorderMethod returns "Type.Method" when call targets a checked method.
func recorderMethod(info *types.Info, call *ast.CallExpr) (string, bool) {
	fn, ok := typeutil.Callee(info, call).(*types.Func)
	if !ok || !methods[fn.Name()] {
		return "", false
	}
	sig, ok := fn.Type().(*types.Signature)
	if !ok || sig.Recv() == nil {
		return "", false
	}

	t := sig.Recv().Type()
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	named, ok := t.(*types.Named)
	if !ok || named.Obj().Pkg() == nil {
		return "", false
	}
	obj := named.Obj()
	for suffix, typ := range receivers {
		path := obj.Pkg().Path()
		if obj.Name() == typ && (path == suffix || strings.HasSuffix(path, "/"+suffix)) {
			return typ + "." + fn.Name(), true
		}
	}
	return "", false
}
