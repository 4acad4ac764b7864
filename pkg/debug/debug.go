// Package debug provides global debug logging flags
package debug

import (
	"fmt"
	"io"
	"os"

	"github.com/teslashibe/go-rover/pkg/navigation"
)

// Enabled controls whether debug logging is active
var Enabled bool

// Candidates controls whether every measured candidate is printed, not just
// the selected target. Use --debug-candidates to enable these verbose logs.
var Candidates bool

// Output is where debug lines go.
var Output io.Writer = os.Stdout

// Log prints a message only if debug mode is enabled
func Log(format string, args ...interface{}) {
	if Enabled {
		fmt.Fprintf(Output, format, args...)
	}
}

// Reports prints one line per measured candidate when candidate logging is on.
func Reports(reports []navigation.Report) {
	if !Candidates {
		return
	}
	for n, r := range reports {
		cx, cy := r.Box.Center()
		fmt.Fprintf(Output, "🧍 Person %d (box %d): center=(%d,%d) conf=%.2f angle=%+.2f° ratio=%.3f %s/%q\n",
			n+1, r.Index, cx, cy, r.Box.Confidence, r.Angle, r.AreaRatio, r.Distance, r.Movement.Token())
	}
}
