package usd

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"
)

const (
	TOKEN_HEADER = iota
	TOKEN_IDENT
	TOKEN_NUMBER
	TOKEN_STRING
	TOKEN_ASSET
	TOKEN_PATH
	TOKEN_PUNCT
)

var lexer *lexmachine.Lexer

func init() {
	lexer = lexmachine.NewLexer()
	// header must be added before comments, equal length matches go to the first pattern
	lexer.Add([]byte(`#usda[^\n]*`), getToken(TOKEN_HEADER))
	lexer.Add([]byte(`#[^\n]*`), skip)
	// inf and nan must win over identifiers of the same length
	lexer.Add([]byte(`[\+\-]?(inf|nan)`), getToken(TOKEN_NUMBER))
	lexer.Add([]byte(`[a-zA-Z_][a-zA-Z0-9_:]*(\[\])?(\.[a-zA-Z_][a-zA-Z0-9_]*)?`), getToken(TOKEN_IDENT))
	lexer.Add([]byte(`[\+\-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)([eE][\+\-]?[0-9]+)?`), getToken(TOKEN_NUMBER))
	lexer.Add([]byte(`"(\\.|[^"\\])*"`), getToken(TOKEN_STRING))
	lexer.Add([]byte(`@[^@]*@`), getToken(TOKEN_ASSET))
	lexer.Add([]byte(`<[^>]*>`), getToken(TOKEN_PATH))
	for _, punct := range []string{`=`, `\(`, `\)`, `\[`, `\]`, `\{`, `\}`, `,`, `:`} {
		lexer.Add([]byte(punct), getToken(TOKEN_PUNCT))
	}
	lexer.Add([]byte(`\s+`), skip)
	if err := lexer.Compile(); err != nil {
		panic(err)
	}
}

func getToken(tokenType int) lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return s.Token(tokenType, string(m.Bytes), m), nil
	}
}

func skip(scan *lexmachine.Scanner, match *machines.Match) (interface{}, error) {
	return nil, nil
}

func tokenize(text []byte) ([]*lexmachine.Token, error) {
	scanner, err := lexer.Scanner(text)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to create lexer scanner")
	}

	result := make([]*lexmachine.Token, 0, 256)
	for itok, err, eos := scanner.Next(); !eos; itok, err, eos = scanner.Next() {
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to parse token")
		}
		result = append(result, itok.(*lexmachine.Token))
	}
	return result, nil
}

const (
	nodeNumber = iota
	nodeString
	nodeIdent
	nodeAsset
	nodePath
	nodeTuple
	nodeList
	nodeDict
)

// valueNode is an untyped value as it appears in the text, decoded once the
// declared type is known.
type valueNode struct {
	kind  int
	text  string
	items []*valueNode
	keys  []string
	line  int
}

type parser struct {
	toks  []*lexmachine.Token
	pos   int
	stage *Stage
}

// Parse reads a .usda text layer into a new in-memory stage.
func Parse(text []byte) (*Stage, error) {
	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, stage: CreateInMemory()}
	if err := p.parseLayer(); err != nil {
		return nil, err
	}
	return p.stage, nil
}

func (p *parser) eof() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() *lexmachine.Token {
	if p.eof() {
		return nil
	}
	return p.toks[p.pos]
}

func (p *parser) peekIs(tokenType int, lexeme string) bool {
	t := p.peek()
	return t != nil && t.Type == tokenType && (lexeme == "" || string(t.Lexeme) == lexeme)
}

func (p *parser) next() (*lexmachine.Token, error) {
	if p.eof() {
		return nil, errors.Errorf("Unexpected end of layer")
	}
	t := p.toks[p.pos]
	p.pos++
	return t, nil
}

func (p *parser) expect(tokenType int, lexeme string) (*lexmachine.Token, error) {
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	if t.Type != tokenType || (lexeme != "" && string(t.Lexeme) != lexeme) {
		if lexeme == "" {
			return nil, errors.Errorf("Unexpected %q on line %v", t.Lexeme, t.StartLine)
		}
		return nil, errors.Errorf("Expected %q, got %q on line %v", lexeme, t.Lexeme, t.StartLine)
	}
	return t, nil
}

func (p *parser) parseLayer() error {
	if _, err := p.expect(TOKEN_HEADER, ""); err != nil {
		return errors.Wrapf(err, "Missing #usda header")
	}
	if p.peekIs(TOKEN_PUNCT, "(") {
		err := p.parseMetadata(func(key string, v *valueNode) error {
			val, err := decodeMetaValue(v)
			if err != nil {
				return errors.Wrapf(err, "Layer metadata %q", key)
			}
			p.stage.metadata[key] = val
			return nil
		})
		if err != nil {
			return err
		}
	}
	for !p.eof() {
		if err := p.parsePrim(p.stage.root); err != nil {
			return err
		}
	}
	return nil
}

var listOps = map[string]bool{"prepend": true, "append": true, "add": true, "delete": true, "reorder": true}

// parseMetadata reads "( key = value ... )". A bare string is the doc entry.
func (p *parser) parseMetadata(set func(key string, v *valueNode) error) error {
	if _, err := p.expect(TOKEN_PUNCT, "("); err != nil {
		return err
	}
	for !p.peekIs(TOKEN_PUNCT, ")") {
		t, err := p.next()
		if err != nil {
			return err
		}
		switch t.Type {
		case TOKEN_STRING:
			s, err := strconv.Unquote(string(t.Lexeme))
			if err != nil {
				return errors.Errorf("Bad string on line %v (%q)", t.StartLine, t.Lexeme)
			}
			if err := set(MetaDoc, &valueNode{kind: nodeString, text: s, line: t.StartLine}); err != nil {
				return err
			}
			continue
		case TOKEN_IDENT:
		default:
			return errors.Errorf("Unexpected %q in metadata on line %v", t.Lexeme, t.StartLine)
		}

		key := string(t.Lexeme)
		if listOps[key] && p.peekIs(TOKEN_IDENT, "") {
			kt, _ := p.next()
			key = string(kt.Lexeme)
		}
		if _, err := p.expect(TOKEN_PUNCT, "="); err != nil {
			return err
		}
		v, err := p.parseValue()
		if err != nil {
			return err
		}
		if err := set(key, v); err != nil {
			return err
		}
	}
	_, err := p.expect(TOKEN_PUNCT, ")")
	return err
}

func isSpecifier(lexeme string) bool {
	return lexeme == "def" || lexeme == "over" || lexeme == "class"
}

func (p *parser) parsePrim(parent *Prim) error {
	t, err := p.expect(TOKEN_IDENT, "")
	if err != nil {
		return err
	}
	spec := string(t.Lexeme)
	if !isSpecifier(spec) {
		return errors.Errorf("Expected prim specifier, got %q on line %v", spec, t.StartLine)
	}

	typeName := ""
	if p.peekIs(TOKEN_IDENT, "") {
		tt, _ := p.next()
		typeName = string(tt.Lexeme)
	}
	nt, err := p.expect(TOKEN_STRING, "")
	if err != nil {
		return err
	}
	name, err := strconv.Unquote(string(nt.Lexeme))
	if err != nil {
		return errors.Errorf("Bad prim name on line %v (%q)", nt.StartLine, nt.Lexeme)
	}

	prim, err := p.stage.DefinePrim(parent.path.AppendChild(name), typeName)
	if err != nil {
		return errors.Wrapf(err, "Line %v", nt.StartLine)
	}
	switch spec {
	case "over":
		prim.specifier = SpecifierOver
	case "class":
		prim.specifier = SpecifierClass
	}

	if p.peekIs(TOKEN_PUNCT, "(") {
		err := p.parseMetadata(func(key string, v *valueNode) error {
			switch key {
			case "kind":
				if v.kind != nodeString {
					return errors.Errorf("Prim %v kind must be a string", prim.path)
				}
				prim.kind = v.text
			case "apiSchemas":
				if v.kind != nodeList {
					return errors.Errorf("Prim %v apiSchemas must be a list", prim.path)
				}
				for _, item := range v.items {
					prim.ApplyAPI(item.text)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if _, err := p.expect(TOKEN_PUNCT, "{"); err != nil {
		return err
	}
	for !p.peekIs(TOKEN_PUNCT, "}") {
		t := p.peek()
		if t == nil {
			return errors.Errorf("Unterminated prim %v", prim.path)
		}
		if t.Type == TOKEN_IDENT && isSpecifier(string(t.Lexeme)) {
			if err := p.parsePrim(prim); err != nil {
				return err
			}
			continue
		}
		if err := p.parseProperty(prim); err != nil {
			return err
		}
	}
	_, err = p.expect(TOKEN_PUNCT, "}")
	return err
}

func (p *parser) parseTargets() ([]Path, error) {
	if p.peekIs(TOKEN_PUNCT, "[") {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		targets := make([]Path, len(v.items))
		for i, item := range v.items {
			if item.kind != nodePath {
				return nil, errors.Errorf("Expected path on line %v", item.line)
			}
			targets[i] = Path(item.text)
		}
		return targets, nil
	}
	t, err := p.expect(TOKEN_PATH, "")
	if err != nil {
		return nil, err
	}
	return []Path{Path(t.Lexeme[1 : len(t.Lexeme)-1])}, nil
}

func (p *parser) parseProperty(prim *Prim) error {
	custom, uniform := false, false
	var t *lexmachine.Token
	for {
		var err error
		if t, err = p.expect(TOKEN_IDENT, ""); err != nil {
			return err
		}
		switch string(t.Lexeme) {
		case "custom":
			custom = true
			continue
		case "uniform":
			uniform = true
			continue
		case "varying":
			continue
		}
		break
	}

	if string(t.Lexeme) == "rel" {
		nt, err := p.expect(TOKEN_IDENT, "")
		if err != nil {
			return err
		}
		rel, err := prim.CreateRelationship(string(nt.Lexeme))
		if err != nil {
			return errors.Wrapf(err, "Line %v", nt.StartLine)
		}
		rel.custom = custom
		if p.peekIs(TOKEN_PUNCT, "=") {
			p.next()
			targets, err := p.parseTargets()
			if err != nil {
				return err
			}
			rel.SetTargets(targets)
		}
		return p.skipPropertyMetadata()
	}

	typ := ValueType(t.Lexeme)
	if !typ.IsValid() {
		return errors.Errorf("Unsupported value type %q on line %v", typ, t.StartLine)
	}
	nt, err := p.expect(TOKEN_IDENT, "")
	if err != nil {
		return err
	}
	name, field := string(nt.Lexeme), ""
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name, field = name[:i], name[i+1:]
	}
	attr, err := prim.CreateAttribute(name, typ)
	if err != nil {
		return errors.Wrapf(err, "Line %v", nt.StartLine)
	}
	attr.custom = custom
	attr.uniform = uniform

	if !p.peekIs(TOKEN_PUNCT, "=") {
		return p.skipPropertyMetadata()
	}
	p.next()

	switch field {
	case "":
		v, err := p.parseValue()
		if err != nil {
			return err
		}
		if v.kind == nodeIdent && v.text == "None" {
			break
		}
		val, err := decodeValue(typ, v)
		if err != nil {
			return errors.Wrapf(err, "Attribute %v", attr.Path())
		}
		attr.value = val
	case "timeSamples":
		v, err := p.parseValue()
		if err != nil {
			return err
		}
		if v.kind != nodeDict {
			return errors.Errorf("Expected time samples dictionary on line %v", v.line)
		}
		for i, key := range v.keys {
			tc, err := strconv.ParseFloat(key, 64)
			if err != nil {
				return errors.Errorf("Bad time code %q on line %v", key, v.items[i].line)
			}
			val, err := decodeValue(typ, v.items[i])
			if err != nil {
				return errors.Wrapf(err, "Attribute %v at time %v", attr.Path(), key)
			}
			if err := attr.SetAt(tc, val); err != nil {
				return err
			}
		}
	case "connect":
		targets, err := p.parseTargets()
		if err != nil {
			return err
		}
		attr.SetConnections(targets)
	default:
		return errors.Errorf("Unsupported attribute field %q on line %v", field, nt.StartLine)
	}
	return p.skipPropertyMetadata()
}

func (p *parser) skipPropertyMetadata() error {
	if !p.peekIs(TOKEN_PUNCT, "(") {
		return nil
	}
	return p.parseMetadata(func(string, *valueNode) error { return nil })
}

func (p *parser) parseSequence(close string, kind int, first *lexmachine.Token) (*valueNode, error) {
	n := &valueNode{kind: kind, line: first.StartLine}
	for !p.peekIs(TOKEN_PUNCT, close) {
		item, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		n.items = append(n.items, item)
		if !p.peekIs(TOKEN_PUNCT, close) {
			if _, err := p.expect(TOKEN_PUNCT, ","); err != nil {
				return nil, err
			}
		}
	}
	p.next()
	return n, nil
}

func (p *parser) parseDict(first *lexmachine.Token) (*valueNode, error) {
	n := &valueNode{kind: nodeDict, line: first.StartLine}
	for !p.peekIs(TOKEN_PUNCT, "}") {
		kt, err := p.expect(TOKEN_NUMBER, "")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TOKEN_PUNCT, ":"); err != nil {
			return nil, err
		}
		item, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		n.keys = append(n.keys, string(kt.Lexeme))
		n.items = append(n.items, item)
		if !p.peekIs(TOKEN_PUNCT, "}") {
			if _, err := p.expect(TOKEN_PUNCT, ","); err != nil {
				return nil, err
			}
		}
	}
	p.next()
	return n, nil
}

func (p *parser) parseValue() (*valueNode, error) {
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	lexeme := string(t.Lexeme)
	switch t.Type {
	case TOKEN_NUMBER:
		return &valueNode{kind: nodeNumber, text: lexeme, line: t.StartLine}, nil
	case TOKEN_IDENT:
		return &valueNode{kind: nodeIdent, text: lexeme, line: t.StartLine}, nil
	case TOKEN_STRING:
		s, err := strconv.Unquote(lexeme)
		if err != nil {
			return nil, errors.Errorf("Bad string on line %v (%q)", t.StartLine, lexeme)
		}
		return &valueNode{kind: nodeString, text: s, line: t.StartLine}, nil
	case TOKEN_ASSET:
		return &valueNode{kind: nodeAsset, text: lexeme[1 : len(lexeme)-1], line: t.StartLine}, nil
	case TOKEN_PATH:
		return &valueNode{kind: nodePath, text: lexeme[1 : len(lexeme)-1], line: t.StartLine}, nil
	case TOKEN_PUNCT:
		switch lexeme {
		case "(":
			return p.parseSequence(")", nodeTuple, t)
		case "[":
			return p.parseSequence("]", nodeList, t)
		case "{":
			return p.parseDict(t)
		}
	}
	return nil, errors.Errorf("Unexpected %q on line %v", lexeme, t.StartLine)
}

func decodeMetaValue(v *valueNode) (interface{}, error) {
	switch v.kind {
	case nodeNumber:
		return strconv.ParseFloat(v.text, 64)
	case nodeString, nodeIdent:
		return v.text, nil
	case nodeList:
		list := make([]string, len(v.items))
		for i, item := range v.items {
			if item.kind != nodeString {
				return nil, errors.Errorf("Expected string list on line %v", v.line)
			}
			list[i] = item.text
		}
		return list, nil
	}
	return nil, errors.Errorf("Unsupported metadata value on line %v", v.line)
}

func (v *valueNode) float(bits int) (float64, error) {
	if v.kind != nodeNumber {
		return 0, errors.Errorf("Expected number on line %v", v.line)
	}
	f, err := strconv.ParseFloat(v.text, bits)
	if err != nil {
		return 0, errors.Errorf("Bad number %q on line %v", v.text, v.line)
	}
	return f, nil
}

func (v *valueNode) floats(n int, bits int) ([]float64, error) {
	if v.kind != nodeTuple || len(v.items) != n {
		return nil, errors.Errorf("Expected %d-tuple on line %v", n, v.line)
	}
	out := make([]float64, n)
	for i, item := range v.items {
		f, err := item.float(bits)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

func (v *valueNode) floats32(n int) ([]float32, error) {
	f, err := v.floats(n, 32)
	if err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i := range f {
		out[i] = float32(f[i])
	}
	return out, nil
}

var arrayElementTypes = map[ValueType]ValueType{
	TypeIntArray:        TypeInt,
	TypeFloatArray:      TypeFloat,
	TypeDoubleArray:     TypeDouble,
	TypeTokenArray:      TypeToken,
	TypePoint3fArray:    TypeFloat3,
	TypeNormal3fArray:   TypeFloat3,
	TypeColor3fArray:    TypeFloat3,
	TypeFloat3Array:     TypeFloat3,
	TypeTexCoord2fArray: TypeFloat2,
}

func decodeValue(typ ValueType, v *valueNode) (interface{}, error) {
	if elemType, ok := arrayElementTypes[typ]; ok {
		if v.kind != nodeList {
			return nil, errors.Errorf("Expected list for %q on line %v", typ, v.line)
		}
		slice := reflect.MakeSlice(typ.GoType(), len(v.items), len(v.items))
		for i, item := range v.items {
			elem, err := decodeValue(elemType, item)
			if err != nil {
				return nil, err
			}
			slice.Index(i).Set(reflect.ValueOf(elem))
		}
		return slice.Interface(), nil
	}

	switch typ {
	case TypeBool:
		switch v.text {
		case "1", "true":
			return true, nil
		case "0", "false":
			return false, nil
		}
		return nil, errors.Errorf("Bad bool %q on line %v", v.text, v.line)
	case TypeInt:
		if v.kind != nodeNumber {
			return nil, errors.Errorf("Expected int on line %v", v.line)
		}
		i, err := strconv.Atoi(v.text)
		if err != nil {
			return nil, errors.Errorf("Bad int %q on line %v", v.text, v.line)
		}
		return i, nil
	case TypeFloat:
		f, err := v.float(32)
		return float32(f), err
	case TypeDouble:
		return v.float(64)
	case TypeToken, TypeString:
		if v.kind != nodeString {
			return nil, errors.Errorf("Expected string on line %v", v.line)
		}
		if typ == TypeToken {
			return Token(v.text), nil
		}
		return v.text, nil
	case TypeAsset:
		if v.kind != nodeAsset {
			return nil, errors.Errorf("Expected asset on line %v", v.line)
		}
		return Asset(v.text), nil
	case TypeFloat2:
		f, err := v.floats32(2)
		if err != nil {
			return nil, err
		}
		return mgl32Vec2(f), nil
	case TypeFloat3, TypeColor3f, TypeNormal3f, TypeVector3f:
		f, err := v.floats32(3)
		if err != nil {
			return nil, err
		}
		return mgl32Vec3(f), nil
	case TypeFloat4:
		f, err := v.floats32(4)
		if err != nil {
			return nil, err
		}
		return mgl32Vec4(f), nil
	case TypeDouble3:
		f, err := v.floats(3, 64)
		if err != nil {
			return nil, err
		}
		return mgl64Vec3(f), nil
	case TypeQuatf:
		f, err := v.floats32(4)
		if err != nil {
			return nil, err
		}
		return mgl32Quat(f), nil
	case TypeQuatd:
		f, err := v.floats(4, 64)
		if err != nil {
			return nil, err
		}
		return mgl64Quat(f), nil
	case TypeMatrix4d:
		if v.kind != nodeTuple || len(v.items) != 4 {
			return nil, errors.Errorf("Expected 4 matrix rows on line %v", v.line)
		}
		var rows [4][]float64
		for i, row := range v.items {
			f, err := row.floats(4, 64)
			if err != nil {
				return nil, err
			}
			rows[i] = f
		}
		return mgl64Mat4(rows), nil
	}
	return nil, errors.Errorf("Unsupported value type %q", typ)
}
