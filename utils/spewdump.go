package utils

import (
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
)

// Dumps of the same description must be diffable, so addresses are hidden
// and map keys are sorted.
var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisableCapacities:       true,
	DisablePointerAddresses: true,
	SortKeys:                true,
}

// FDump writes a readable dump of parsed descriptions or stages to w.
// depth limits how far nested structures are followed, 0 means no limit.
func FDump(w io.Writer, depth int, a ...interface{}) {
	cfg := dumpConfig
	cfg.MaxDepth = depth
	cfg.Fdump(w, a...)
}

func Dump(a ...interface{}) {
	FDump(os.Stdout, 0, a...)
}

func SDump(a ...interface{}) string {
	return dumpConfig.Sdump(a...)
}
