package problem

import (
	"fmt"
	"slices"
	"strings"
)

type constructor func() (Environment, error)

var registry = map[string]constructor{
	"mux6":    func() (Environment, error) { return NewMultiplexer(2) },
	"mux11":   func() (Environment, error) { return NewMultiplexer(3) },
	"mux20":   func() (Environment, error) { return NewMultiplexer(4) },
	"rmux6":   func() (Environment, error) { return NewRealMultiplexer(2) },
	"rmux11":  func() (Environment, error) { return NewRealMultiplexer(3) },
	"parity3": func() (Environment, error) { return NewParity(3) },
	"parity5": func() (Environment, error) { return NewParity(5) },
	"amux6":   func() (Environment, error) { return NewAliasedMultiplexer(2, 0.1) },
	"amux11":  func() (Environment, error) { return NewAliasedMultiplexer(3, 0.1) },
	"cmux3x2": func() (Environment, error) { return NewConcatenatedMultiplexer(1, 2) },
	"cmux3x3": func() (Environment, error) { return NewConcatenatedMultiplexer(1, 3) },
	"cmux6x2": func() (Environment, error) { return NewConcatenatedMultiplexer(2, 2) },
	"dv1":     func() (Environment, error) { return NewDV1(), nil },
}

// New returns a fresh environment for a registered problem name.
func New(name string) (Environment, error) {
	build, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown problem %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return build()
}

// Names lists the registered problems in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
