package usd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const indent = "    "

type writer struct {
	tabs int
	w    *bufio.Writer
}

func (e *writer) fillTabs(diff int) {
	for i := 0; i < e.tabs+diff; i++ {
		e.w.WriteString(indent)
	}
}

func (e *writer) tabsInc() { e.tabs++ }
func (e *writer) tabsDec() { e.tabs-- }

func (e *writer) printf(format string, args ...interface{}) {
	e.w.WriteString(fmt.Sprintf(format, args...))
}

func (e *writer) print(s string) {
	e.w.WriteString(s)
}

func (e *writer) line(format string, args ...interface{}) {
	e.fillTabs(0)
	e.printf(format, args...)
	e.print("\n")
}

func formatMetaValue(v interface{}) string {
	switch v := v.(type) {
	case string:
		return strconv.Quote(v)
	case []string:
		return formatList(len(v), func(i int) string { return strconv.Quote(v[i]) })
	default:
		return FormatValue(v)
	}
}

func formatTargets(targets []Path) string {
	if len(targets) == 1 {
		return "<" + string(targets[0]) + ">"
	}
	return formatList(len(targets), func(i int) string { return "<" + string(targets[i]) + ">" })
}

func (e *writer) exportLayerMetadata(s *Stage) {
	keys := s.metadataKeys()
	if len(keys) == 0 {
		return
	}
	e.print("(\n")
	e.tabsInc()
	for _, k := range keys {
		e.line("%s = %s", k, formatMetaValue(s.metadata[k]))
	}
	e.tabsDec()
	e.print(")\n")
}

func (e *writer) exportAttribute(a *Attribute) {
	var decl strings.Builder
	if a.custom {
		decl.WriteString("custom ")
	}
	if a.uniform {
		decl.WriteString("uniform ")
	}
	decl.WriteString(string(a.typ))
	decl.WriteString(" ")
	decl.WriteString(a.name)
	d := decl.String()

	if a.value != nil {
		e.line("%s = %s", d, FormatValue(a.value))
	} else if len(a.samples) == 0 && len(a.connections) == 0 {
		e.line("%s", d)
	}

	if len(a.samples) != 0 {
		e.line("%s.timeSamples = {", d)
		e.tabsInc()
		for _, s := range a.samples {
			e.line("%s: %s,", formatFloat(s.Time, 64), FormatValue(s.Value))
		}
		e.tabsDec()
		e.line("}")
	}

	if len(a.connections) != 0 {
		e.line("%s.connect = %s", d, formatTargets(a.connections))
	}
}

func (e *writer) exportRelationship(r *Relationship) {
	prefix := "rel"
	if r.custom {
		prefix = "custom rel"
	}
	if len(r.targets) == 0 {
		e.line("%s %s", prefix, r.name)
		return
	}
	e.line("%s %s = %s", prefix, r.name, formatTargets(r.targets))
}

func (e *writer) exportPrim(p *Prim) {
	e.fillTabs(0)
	e.print(p.specifier.String())
	if p.typeName != "" {
		e.print(" " + p.typeName)
	}
	e.printf(" %s", strconv.Quote(p.Name()))

	if p.kind != "" || len(p.apiSchemas) != 0 {
		e.print(" (\n")
		e.tabsInc()
		if p.kind != "" {
			e.line("kind = %s", strconv.Quote(p.kind))
		}
		if len(p.apiSchemas) != 0 {
			e.line("prepend apiSchemas = %s", formatMetaValue(p.apiSchemas))
		}
		e.tabsDec()
		e.fillTabs(0)
		e.print(")")
	}
	e.print("\n")
	e.line("{")

	e.tabsInc()
	for _, a := range p.attrs {
		e.exportAttribute(a)
	}
	for _, r := range p.rels {
		e.exportRelationship(r)
	}
	for i, c := range p.children {
		if i != 0 || len(p.attrs) != 0 || len(p.rels) != 0 {
			e.print("\n")
		}
		e.exportPrim(c)
	}
	e.tabsDec()

	e.line("}")
}

// Encode writes the stage as a .usda text layer.
func (s *Stage) Encode(originalWriter io.Writer) error {
	w := bufio.NewWriter(originalWriter)

	e := writer{w: w}
	e.print("#usda 1.0\n")
	e.exportLayerMetadata(s)

	for _, p := range s.root.children {
		e.print("\n")
		e.exportPrim(p)
	}

	return w.Flush()
}
