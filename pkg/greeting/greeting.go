// Package greeting formats the greetings served by the hello service.
package greeting

const (
	// DefaultName is used by SayHello when no name is given.
	DefaultName = "earthbuild"

	// ServerDefaultName is the name the HTTP endpoint greets when no "who" is passed.
	ServerDefaultName = "Earthly"
)

// SayHello returns "Hello <name>", falling back to DefaultName.
func SayHello(name string) string {
	return NewGreeter(DefaultName).Greet(name)
}

// Greeter formats greetings with a configurable fallback name
type Greeter struct {
	DefaultName string
}

// NewGreeter creates a new Greeter
func NewGreeter(defaultName string) *Greeter {
	return &Greeter{
		DefaultName: defaultName,
	}
}

// Greet returns the greeting for name, or for the default name when name is empty
func (g *Greeter) Greet(name string) string {
	if name == "" {
		name = g.DefaultName
	}
	return "Hello " + name
}

// IsDefault reports whether name would be replaced by the default name
func (g *Greeter) IsDefault(name string) bool {
	return name == ""
}
