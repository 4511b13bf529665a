// Package loopcall detects per-item store reads inside loops.
package loopcall

import (
	"go/ast"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Analyzer detects store reads inside loops that have a batched form.
var Analyzer = &analysis.Analyzer{
	Name:     "loopcall",
	Doc:      "detects per-item store reads inside loops that should use a batched query",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

// batchedAlternative maps a per-item store method to the call that should
// replace it when used in a loop.
var batchedAlternative = map[string]string{
	// RelationshipStore
	"FindByID":       "FindAmong or FindByType",
	"FindByEndpoint": "FindAmong or FindByType",
	// TermOracle / TermCatalog
	"FindTermByID": "FindTerms",
	"IsEssential":  "ListEssential",
	// LearningProgress
	"LearnedTermIDs": "a single LearnedTermIDs before the loop",
}

func run(pass *analysis.Pass) (interface{}, error) {
	inspect := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.RangeStmt)(nil),
		(*ast.ForStmt)(nil),
	}

	inspect.Preorder(nodeFilter, func(n ast.Node) {
		var body *ast.BlockStmt
		switch stmt := n.(type) {
		case *ast.RangeStmt:
			body = stmt.Body
		case *ast.ForStmt:
			body = stmt.Body
		}
		if body == nil {
			return
		}

		ast.Inspect(body, func(n ast.Node) bool {
			// Function literals in a loop are fan-out (errgroup, goroutines),
			// where one call per item is the point.
			if _, ok := n.(*ast.FuncLit); ok {
				return false
			}

			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}

			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}

			methodName := sel.Sel.Name
			if alt, ok := batchedAlternative[methodName]; ok {
				pass.Reportf(call.Pos(),
					"potential N+1: %s called inside loop - use %s",
					methodName, alt)
			}

			return true
		})
	})

	return nil, nil
}
