package gpu

import "fmt"

// Debug enables backend chatter (adapter selection, buffer allocation,
// dispatch sizes) on stdout.
var Debug bool

func Log(format string, args ...any) {
	if Debug {
		fmt.Printf("[gpu] "+format+"\n", args...)
	}
}
