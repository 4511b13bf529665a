// termgraph-lint is a custom static analyzer for termgraph store access patterns.
package main

import (
	"golang.org/x/tools/go/analysis/multichecker"

	"github.com/ersonp/termgraph/tools/termgraph-lint/analyzers"
)

func main() {
	multichecker.Main(analyzers.All()...)
}
