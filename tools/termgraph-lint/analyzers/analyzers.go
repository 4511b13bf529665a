// Package analyzers provides all custom static analyzers for termgraph.
package analyzers

import (
	"golang.org/x/tools/go/analysis"

	"github.com/ersonp/termgraph/tools/termgraph-lint/analyzers/loopcall"
)

// All returns all analyzers to run.
func All() []*analysis.Analyzer {
	return []*analysis.Analyzer{
		loopcall.Analyzer,
	}
}
