package regvm

import "fmt"

// Diagnostic is one assembly-time error. The assembler never stops at the
// first one: it keeps going and accumulates every diagnostic it finds, the
// way the original compileForRegVM driver does.
type Diagnostic struct {
	Line    int // 1-based source line; 0 when not tied to a specific line
	Message string
}

func (d Diagnostic) String() string {
	if d.Line <= 0 {
		return d.Message
	}
	return fmt.Sprintf("line %d: %s", d.Line, d.Message)
}
