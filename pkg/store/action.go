package store

import (
	"fmt"
	"strings"
)

// Kinded is implemented by actions that carry an explicit variant name.
type Kinded interface {
	Kind() string
}

// ActionKind returns a short, stable description of an action for logs, metrics
// and the debug protocol. Actions implementing Kinded report their own kind;
// anything else is described by its type name without the package qualifier.
func ActionKind(action any) string {
	if action == nil {
		return "<nil>"
	}
	if k, ok := action.(Kinded); ok {
		return k.Kind()
	}
	name := fmt.Sprintf("%T", action)
	name = strings.TrimLeft(name, "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
