// Package pptp loads Puppet target platforms: the functions and resource
// types a Puppet distribution provides, extracted from its Ruby sources.
package pptp

// Target is a loaded Puppet distribution.
type Target struct {
	Name        string     `json:"name"`
	Version     string     `json:"version"`
	Description string     `json:"description"`
	Dir         string     `json:"dir"`
	Functions   []Function `json:"functions"`
	Types       []Type     `json:"types"`

	// Degraded is set when no Ruby services were available and the target
	// was loaded without metadata.
	Degraded bool `json:"degraded,omitempty"`
}

// Function is a parser function such as include or template.
type Function struct {
	Name          string `json:"name"`
	RValue        bool   `json:"rvalue"`
	Documentation string `json:"documentation,omitempty"`
}

// Type is a resource type with its parameters and properties.
type Type struct {
	Name          string  `json:"name"`
	Documentation string  `json:"documentation,omitempty"`
	Parameters    []Entry `json:"parameters,omitempty"`
	Properties    []Entry `json:"properties,omitempty"`
}

// Entry is a parameter or property of a resource type.
type Entry struct {
	Name          string `json:"name"`
	Documentation string `json:"documentation,omitempty"`
	Required      bool   `json:"required,omitempty"`
}

// Function returns the function with the given name, or nil.
func (t *Target) Function(name string) *Function {
	for i := range t.Functions {
		if t.Functions[i].Name == name {
			return &t.Functions[i]
		}
	}
	return nil
}

// Type returns the type with the given name, or nil.
func (t *Target) Type(name string) *Type {
	for i := range t.Types {
		if t.Types[i].Name == name {
			return &t.Types[i]
		}
	}
	return nil
}

// Parameter returns the parameter with the given name, or nil.
func (t *Type) Parameter(name string) *Entry { return find(t.Parameters, name) }

// Property returns the property with the given name, or nil.
func (t *Type) Property(name string) *Entry { return find(t.Properties, name) }

func find(entries []Entry, name string) *Entry {
	for i := range entries {
		if entries[i].Name == name {
			return &entries[i]
		}
	}
	return nil
}
