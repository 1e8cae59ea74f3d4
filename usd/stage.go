package usd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Stage is an in-memory layer: a prim tree under the pseudo root plus layer
// metadata. It is not safe for concurrent mutation.
type Stage struct {
	filePath string
	root     *Prim
	prims    map[Path]*Prim
	metadata map[string]interface{}
}

// Layer metadata keys
const (
	MetaDoc                = "doc"
	MetaDefaultPrim        = "defaultPrim"
	MetaUpAxis             = "upAxis"
	MetaStartTimeCode      = "startTimeCode"
	MetaEndTimeCode        = "endTimeCode"
	MetaTimeCodesPerSecond = "timeCodesPerSecond"
	MetaMetersPerUnit      = "metersPerUnit"
)

func newStage(filePath string) *Stage {
	s := &Stage{
		filePath: filePath,
		prims:    make(map[Path]*Prim),
		metadata: make(map[string]interface{}),
	}
	s.root = &Prim{stage: s, path: AbsoluteRootPath}
	s.prims[AbsoluteRootPath] = s.root
	return s
}

func CreateInMemory() *Stage {
	return newStage("")
}

// CreateNew makes an empty stage bound to filePath. Nothing is written until Save.
func CreateNew(filePath string) (*Stage, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".usda", ".usd":
	default:
		return nil, errors.Errorf("Unsupported layer extension for %q", filePath)
	}
	return newStage(filePath), nil
}

func Open(filePath string) (*Stage, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open layer %q", filePath)
	}
	defer f.Close()

	s, err := OpenReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't parse layer %q", filePath)
	}
	s.filePath = filePath
	return s, nil
}

func OpenReader(r io.Reader) (*Stage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read layer")
	}
	return Parse(data)
}

func (s *Stage) FilePath() string { return s.filePath }

func (s *Stage) PseudoRoot() *Prim { return s.root }

// DefinePrim defines the prim and any missing ancestors as typeless defs.
// Defining an existing prim with a non-empty type re-types it.
func (s *Stage) DefinePrim(path Path, typeName string) (*Prim, error) {
	if _, err := NewPath(string(path)); err != nil {
		return nil, errors.Wrapf(err, "Can't define prim")
	}
	if path.IsPropertyPath() {
		return nil, errors.Errorf("Can't define prim at property path %v", path)
	}
	if path.IsAbsoluteRoot() {
		return nil, errors.Errorf("Can't define the pseudo root")
	}

	parent := s.root
	var prim *Prim
	for _, p := range path.Prefixes() {
		prim = s.prims[p]
		if prim == nil {
			prim = &Prim{stage: s, parent: parent, path: p}
			parent.children = append(parent.children, prim)
			s.prims[p] = prim
		}
		parent = prim
	}
	prim.specifier = SpecifierDef
	if typeName != "" {
		prim.typeName = typeName
	}
	return prim, nil
}

func (s *Stage) GetPrimAtPath(path Path) *Prim {
	return s.prims[path]
}

// RemovePrim drops the prim and its whole subtree.
func (s *Stage) RemovePrim(path Path) bool {
	prim := s.prims[path]
	if prim == nil || prim.IsPseudoRoot() {
		return false
	}
	prim.parent.removeChild(prim)
	for p := range s.prims {
		if p.HasPrefix(path) {
			delete(s.prims, p)
		}
	}
	return true
}

// Traverse lists all prims depth first, parents before children.
func (s *Stage) Traverse() []*Prim {
	result := make([]*Prim, 0, len(s.prims))
	var walk func(p *Prim)
	walk = func(p *Prim) {
		for _, c := range p.children {
			result = append(result, c)
			walk(c)
		}
	}
	walk(s.root)
	return result
}

func (s *Stage) SetMetadata(key string, value interface{}) {
	s.metadata[key] = value
}

func (s *Stage) GetMetadata(key string) (interface{}, bool) {
	v, ok := s.metadata[key]
	return v, ok
}

func (s *Stage) metadataKeys() []string {
	keys := make([]string, 0, len(s.metadata))
	for k := range s.metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Stage) metaFloat(key string, def float64) float64 {
	if v, ok := Float64(s.metadata[key]); ok {
		return v
	}
	return def
}

func (s *Stage) SetUpAxis(axis string) error {
	if axis != "Y" && axis != "Z" {
		return errors.Errorf("Up axis must be Y or Z, got %q", axis)
	}
	s.metadata[MetaUpAxis] = axis
	return nil
}

func (s *Stage) GetUpAxis() string {
	if v, ok := s.metadata[MetaUpAxis].(string); ok {
		return v
	}
	return "Y"
}

func (s *Stage) SetStartTimeCode(t float64)      { s.metadata[MetaStartTimeCode] = t }
func (s *Stage) SetEndTimeCode(t float64)        { s.metadata[MetaEndTimeCode] = t }
func (s *Stage) SetTimeCodesPerSecond(v float64) { s.metadata[MetaTimeCodesPerSecond] = v }
func (s *Stage) SetMetersPerUnit(v float64)      { s.metadata[MetaMetersPerUnit] = v }

func (s *Stage) GetStartTimeCode() float64      { return s.metaFloat(MetaStartTimeCode, 0) }
func (s *Stage) GetEndTimeCode() float64        { return s.metaFloat(MetaEndTimeCode, 0) }
func (s *Stage) GetTimeCodesPerSecond() float64 { return s.metaFloat(MetaTimeCodesPerSecond, 24) }
func (s *Stage) GetMetersPerUnit() float64      { return s.metaFloat(MetaMetersPerUnit, 0.01) }

func (s *Stage) HasAuthoredTimeCodeRange() bool {
	_, start := s.metadata[MetaStartTimeCode]
	_, end := s.metadata[MetaEndTimeCode]
	return start && end
}

func (s *Stage) SetDefaultPrim(p *Prim) error {
	if p == nil || p.parent != s.root {
		return errors.Errorf("Default prim must be a root prim")
	}
	s.metadata[MetaDefaultPrim] = p.Name()
	return nil
}

func (s *Stage) GetDefaultPrim() *Prim {
	name, ok := s.metadata[MetaDefaultPrim].(string)
	if !ok {
		return nil
	}
	return s.root.Child(name)
}

func (s *Stage) SetDoc(doc string) { s.metadata[MetaDoc] = doc }

// Save writes the stage to the file it was created with or opened from.
func (s *Stage) Save() error {
	if s.filePath == "" {
		return errors.Errorf("Can't save in-memory stage, use Export")
	}
	return s.Export(s.filePath)
}

func (s *Stage) Export(filePath string) error {
	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "Can't create %q", filePath)
	}
	if err := s.Encode(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "Can't write %q", filePath)
	}
	return f.Close()
}

func (s *Stage) ExportToString() (string, error) {
	var buf bytes.Buffer
	if err := s.Encode(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
