package usd

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Path addresses a prim ("/World/box") or a property ("/World/box.size").
type Path string

const AbsoluteRootPath Path = "/"

var (
	identifierRe   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	propertyNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(:[A-Za-z_][A-Za-z0-9_]*)*$`)
)

func IsValidIdentifier(name string) bool {
	return identifierRe.MatchString(name)
}

// IsValidPropertyName accepts namespaced names like "inputs:diffuseColor".
func IsValidPropertyName(name string) bool {
	return propertyNameRe.MatchString(name)
}

// NewPath validates an absolute prim or property path.
func NewPath(s string) (Path, error) {
	if s == string(AbsoluteRootPath) {
		return AbsoluteRootPath, nil
	}
	if !strings.HasPrefix(s, "/") {
		return "", errors.Errorf("Path %q is not absolute", s)
	}
	prim, prop := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		prim, prop = s[:i], s[i+1:]
		if !IsValidPropertyName(prop) {
			return "", errors.Errorf("Path %q has invalid property name %q", s, prop)
		}
	}
	for _, part := range strings.Split(prim[1:], "/") {
		if !IsValidIdentifier(part) {
			return "", errors.Errorf("Path %q has invalid prim name %q", s, part)
		}
	}
	return Path(s), nil
}

func (p Path) String() string { return string(p) }

func (p Path) IsAbsoluteRoot() bool { return p == AbsoluteRootPath }

func (p Path) IsPropertyPath() bool { return strings.IndexByte(string(p), '.') >= 0 }

func (p Path) AppendChild(name string) Path {
	if p == AbsoluteRootPath {
		return Path("/" + name)
	}
	return Path(string(p) + "/" + name)
}

func (p Path) AppendProperty(name string) Path {
	return Path(string(p) + "." + name)
}

// PrimPath strips the property part, if any.
func (p Path) PrimPath() Path {
	if i := strings.IndexByte(string(p), '.'); i >= 0 {
		return p[:i]
	}
	return p
}

func (p Path) Name() string {
	if i := strings.IndexByte(string(p), '.'); i >= 0 {
		return string(p[i+1:])
	}
	if p == AbsoluteRootPath {
		return ""
	}
	return string(p[strings.LastIndexByte(string(p), '/')+1:])
}

func (p Path) Parent() Path {
	if p.IsPropertyPath() {
		return p.PrimPath()
	}
	i := strings.LastIndexByte(string(p), '/')
	if i <= 0 {
		return AbsoluteRootPath
	}
	return p[:i]
}

// Prefixes lists the prim path and all its ancestors, root-most first,
// excluding the absolute root.
func (p Path) Prefixes() []Path {
	prim := p.PrimPath()
	if prim == AbsoluteRootPath {
		return nil
	}
	parts := strings.Split(string(prim[1:]), "/")
	result := make([]Path, len(parts))
	cur := AbsoluteRootPath
	for i, part := range parts {
		cur = cur.AppendChild(part)
		result[i] = cur
	}
	return result
}

// HasPrefix reports whether p equals prefix or lies below it.
func (p Path) HasPrefix(prefix Path) bool {
	if prefix == AbsoluteRootPath || p == prefix {
		return true
	}
	return strings.HasPrefix(string(p), string(prefix)+"/") || strings.HasPrefix(string(p), string(prefix)+".")
}
