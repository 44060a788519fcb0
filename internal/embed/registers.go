// Package embed implements a minimal, name-addressed accessor over a set of
// config.Definition entries, generalizing original_source/src/register.rs's
// Handler and the lua/src/module/register Read/Write traits: there, a Lua
// script reads and writes registers by name through a mlua UserData binding;
// here the same by-name Get/Set surface is exposed as plain Go methods with
// no scripting runtime attached, since embedding a Lua VM is out of scope.
package embed

import (
	"fmt"
	"sort"

	"modbus-core/internal/config"
	"modbus-core/internal/mbmem"
	"modbus-core/internal/register"
)

// Registers resolves named config.Definitions (as produced by
// config.EndpointConfig.ToDefinitions) against a live mbmem.Memory, the way
// Handler resolved a &HashMap<String, Definition> against an
// Arc<Mutex<Memory<...>>>. Each Definition's Key already carries the
// endpoint id it was resolved under.
type Registers struct {
	memory      *mbmem.Memory
	definitions map[string]config.Definition
}

// New builds a Registers accessor bound to one memory and its named
// definitions.
func New(memory *mbmem.Memory, definitions map[string]config.Definition) *Registers {
	return &Registers{memory: memory, definitions: definitions}
}

// Get reads the named register's current value, decoded under its
// configured register.Format (Handler's "get value by name" role).
func (r *Registers) Get(name string) (register.Value, error) {
	def, ok := r.definitions[name]
	if !ok {
		return register.Value{}, fmt.Errorf("embed: unknown register %q", name)
	}
	regs, ok := r.memory.Read(def.Key, def.Key.Table, def.Range)
	if !ok {
		return register.Value{}, fmt.Errorf("embed: register %q not readable", name)
	}
	return register.Decode(def.Format, regs)
}

// Set parses text under the named register's configured format and writes
// the resulting words back to memory (traits.Write's "set by name" role).
func (r *Registers) Set(name, text string) error {
	def, ok := r.definitions[name]
	if !ok {
		return fmt.Errorf("embed: unknown register %q", name)
	}
	regs, err := register.Encode(def.Format, text)
	if err != nil {
		return fmt.Errorf("embed: encode %q: %w", name, err)
	}
	if !r.memory.Write(def.Key, def.Key.Table, def.Range, regs) {
		return fmt.Errorf("embed: register %q not writable", name)
	}
	return nil
}

// Names returns every register name this accessor can resolve, sorted for
// stable iteration (e.g. a CLI "list registers" command).
func (r *Registers) Names() []string {
	out := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
