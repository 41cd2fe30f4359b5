package form

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Reserved field names. They are always encoded first, in this order.
const (
	FieldUsername     = "username"
	FieldAPIAccessKey = "apiaccesskey"
	FieldAction       = "action"
)

// ReservedFields lists the mandatory fields of a forward request in the
// order the upstream expects them.
var ReservedFields = []string{FieldUsername, FieldAPIAccessKey, FieldAction}

// Field is a single request parameter.
type Field struct {
	Key   string
	Value string
	// Null is set for a JSON null. Value holds "null" so pass-through
	// encoding matches what the upstream has always received.
	Null bool
}

// Empty reports whether the field carries no usable value.
func (f Field) Empty() bool {
	return f.Null || f.Value == ""
}

// Params is an ordered set of request parameters. Setting a key that is
// already present replaces its value without moving it.
type Params struct {
	fields []Field
	index  map[string]int
}

// NewParams returns an empty parameter set.
func NewParams() *Params {
	return &Params{index: make(map[string]int)}
}

// Set stores f, replacing the value of an existing key in place.
func (p *Params) Set(f Field) {
	if p.index == nil {
		p.index = make(map[string]int)
	}
	if i, ok := p.index[f.Key]; ok {
		p.fields[i] = f
		return
	}
	p.index[f.Key] = len(p.fields)
	p.fields = append(p.fields, f)
}

// SetString is shorthand for Set with a plain string value.
func (p *Params) SetString(key, value string) {
	p.Set(Field{Key: key, Value: value})
}

// Add appends value to key. A repeated key keeps its position and its
// values are joined with a comma.
func (p *Params) Add(key, value string) {
	if i, ok := p.index[key]; ok {
		existing := p.fields[i]
		p.fields[i] = Field{Key: key, Value: existing.Value + "," + value}
		return
	}
	p.SetString(key, value)
}

// Lookup returns the field stored under key.
func (p *Params) Lookup(key string) (Field, bool) {
	if p == nil {
		return Field{}, false
	}
	i, ok := p.index[key]
	if !ok {
		return Field{}, false
	}
	return p.fields[i], true
}

// Get returns the value stored under key, or "" when absent.
func (p *Params) Get(key string) string {
	f, _ := p.Lookup(key)
	return f.Value
}

// Len returns the number of parameters.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.fields)
}

// Keys returns the parameter names in insertion order. The result is never
// nil.
func (p *Params) Keys() []string {
	keys := make([]string, 0, p.Len())
	if p == nil {
		return keys
	}
	for _, f := range p.fields {
		keys = append(keys, f.Key)
	}
	return keys
}

// Fields returns a copy of the parameters in insertion order.
func (p *Params) Fields() []Field {
	if p == nil {
		return nil
	}
	out := make([]Field, len(p.fields))
	copy(out, p.fields)
	return out
}

// Partition splits p into the named fields and everything else. The rest
// keeps its original order. Named keys that are absent are simply missing
// from the first result.
func (p *Params) Partition(keys ...string) (map[string]Field, *Params) {
	picked := make(map[string]Field, len(keys))
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}

	rest := NewParams()
	for _, f := range p.Fields() {
		if want[f.Key] {
			picked[f.Key] = f
			continue
		}
		rest.Set(f)
	}
	return picked, rest
}

// Encode serialises the parameters as application/x-www-form-urlencoded,
// preserving order.
func (p *Params) Encode() string {
	if p.Len() == 0 {
		return ""
	}
	var sb strings.Builder
	for i, f := range p.fields {
		if i > 0 {
			sb.WriteByte('&')
		}
		escape(&sb, f.Key)
		sb.WriteByte('=')
		escape(&sb, f.Value)
	}
	return sb.String()
}

const upperhex = "0123456789ABCDEF"

// escape writes s with the WHATWG application/x-www-form-urlencoded byte
// serializer: ASCII letters, digits and "*-._" are kept, space becomes "+",
// every other UTF-8 byte is written as %XX. url.QueryEscape differs on
// '*' and '~'. Invalid UTF-8 is replaced with U+FFFD first.
func escape(sb *strings.Builder, s string) {
	for _, c := range []byte(strings.ToValidUTF8(s, "\uFFFD")) {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9',
			c == '*', c == '-', c == '.', c == '_':
			sb.WriteByte(c)
		case c == ' ':
			sb.WriteByte('+')
		default:
			sb.WriteByte('%')
			sb.WriteByte(upperhex[c>>4])
			sb.WriteByte(upperhex[c&0x0f])
		}
	}
}

// MarshalJSON renders the parameters as a JSON object of strings in
// insertion order. Null fields are rendered as JSON null.
func (p *Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range p.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if f.Null {
			buf.WriteString("null")
			continue
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Outbound builds the upstream body: the reserved fields in fixed order
// followed by the pass-through parameters. Missing reserved fields are sent
// as empty strings.
func Outbound(reserved map[string]Field, rest *Params) *Params {
	out := NewParams()
	for _, k := range ReservedFields {
		f, ok := reserved[k]
		if !ok || f.Null {
			f = Field{Key: k}
		}
		out.Set(f)
	}
	for _, f := range rest.Fields() {
		out.Set(f)
	}
	return out
}
