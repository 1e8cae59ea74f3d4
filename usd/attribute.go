package usd

import (
	"sort"

	"github.com/pkg/errors"
)

type TimeSample struct {
	Time  float64
	Value interface{}
}

// Attribute holds an optional default value, time samples sorted by time
// code and connection targets.
type Attribute struct {
	prim        *Prim
	name        string
	typ         ValueType
	uniform     bool
	custom      bool
	value       interface{}
	samples     []TimeSample
	connections []Path
}

func (a *Attribute) Name() string         { return a.name }
func (a *Attribute) Path() Path           { return a.prim.path.AppendProperty(a.name) }
func (a *Attribute) Prim() *Prim          { return a.prim }
func (a *Attribute) TypeName() ValueType  { return a.typ }
func (a *Attribute) IsUniform() bool      { return a.uniform }
func (a *Attribute) IsCustom() bool       { return a.custom }
func (a *Attribute) SetUniform(v bool)    { a.uniform = v }
func (a *Attribute) SetCustom(v bool)     { a.custom = v }
func (a *Attribute) HasValue() bool       { return a.value != nil }
func (a *Attribute) NumTimeSamples() int  { return len(a.samples) }
func (a *Attribute) HasConnections() bool { return len(a.connections) != 0 }

// HasAuthoredValue is true when either a default or any time sample exists.
func (a *Attribute) HasAuthoredValue() bool {
	return a.value != nil || len(a.samples) != 0
}

func (a *Attribute) Set(v interface{}) error {
	if err := a.typ.check(v); err != nil {
		return errors.Wrapf(err, "Can't set %v", a.Path())
	}
	a.value = v
	return nil
}

// SetAt writes a time sample, replacing any sample already at t.
func (a *Attribute) SetAt(t float64, v interface{}) error {
	if a.uniform {
		return errors.Errorf("Can't time sample uniform attribute %v", a.Path())
	}
	if err := a.typ.check(v); err != nil {
		return errors.Wrapf(err, "Can't set %v at time %v", a.Path(), t)
	}
	i := sort.Search(len(a.samples), func(i int) bool { return a.samples[i].Time >= t })
	if i < len(a.samples) && a.samples[i].Time == t {
		a.samples[i].Value = v
		return nil
	}
	a.samples = append(a.samples, TimeSample{})
	copy(a.samples[i+1:], a.samples[i:])
	a.samples[i] = TimeSample{Time: t, Value: v}
	return nil
}

// Get returns the default value, falling back to the schema fallback of the
// owning prim type.
func (a *Attribute) Get() (interface{}, bool) {
	if a.value != nil {
		return a.value, true
	}
	if v, ok := schemaFallback(a.prim.typeName, a.name); ok {
		return v, true
	}
	return nil, false
}

// GetAt resolves the value at time t with held interpolation: the latest
// sample at or before t, or the first sample when t precedes all of them.
func (a *Attribute) GetAt(t float64) (interface{}, bool) {
	if len(a.samples) == 0 {
		return a.Get()
	}
	i := sort.Search(len(a.samples), func(i int) bool { return a.samples[i].Time > t })
	if i == 0 {
		return a.samples[0].Value, true
	}
	return a.samples[i-1].Value, true
}

func (a *Attribute) GetTimeSamples() []float64 {
	times := make([]float64, len(a.samples))
	for i, s := range a.samples {
		times[i] = s.Time
	}
	return times
}

func (a *Attribute) TimeSamples() []TimeSample {
	return append([]TimeSample(nil), a.samples...)
}

func (a *Attribute) ClearTimeSamples() {
	a.samples = nil
}

// Clear removes the default and all time samples.
func (a *Attribute) Clear() {
	a.value = nil
	a.samples = nil
}

func (a *Attribute) ConnectToSource(source Path) error {
	if !source.IsPropertyPath() {
		return errors.Errorf("Connection source %v of %v is not a property path", source, a.Path())
	}
	for _, c := range a.connections {
		if c == source {
			return nil
		}
	}
	a.connections = append(a.connections, source)
	return nil
}

func (a *Attribute) SetConnections(sources []Path) {
	a.connections = append([]Path(nil), sources...)
}

func (a *Attribute) GetConnections() []Path {
	return append([]Path(nil), a.connections...)
}

func (a *Attribute) ClearConnections() {
	a.connections = nil
}

// Relationship targets other prims or properties, e.g. material:binding.
type Relationship struct {
	prim    *Prim
	name    string
	custom  bool
	targets []Path
}

func (r *Relationship) Name() string { return r.name }
func (r *Relationship) Path() Path   { return r.prim.path.AppendProperty(r.name) }
func (r *Relationship) Prim() *Prim  { return r.prim }

func (r *Relationship) SetTargets(targets []Path) {
	r.targets = append([]Path(nil), targets...)
}

func (r *Relationship) AddTarget(target Path) {
	for _, t := range r.targets {
		if t == target {
			return
		}
	}
	r.targets = append(r.targets, target)
}

func (r *Relationship) GetTargets() []Path {
	return append([]Path(nil), r.targets...)
}
