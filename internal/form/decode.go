package form

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/url"
	"strings"
)

// Media types accepted on inbound requests.
const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// Decode parses an inbound body according to its Content-Type. Bodies of any
// other type, and empty bodies, yield an empty parameter set.
func Decode(contentType string, body []byte) (*Params, error) {
	switch {
	case len(bytes.TrimSpace(body)) == 0:
		return NewParams(), nil
	case IsJSON(contentType):
		return DecodeJSON(body)
	case mediaType(contentType) == ContentTypeForm:
		return DecodeForm(string(body))
	}
	return NewParams(), nil
}

// IsJSON reports whether contentType names a JSON body.
func IsJSON(contentType string) bool {
	mt := mediaType(contentType)
	return mt == ContentTypeJSON || strings.HasSuffix(mt, "+json")
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// DecodeJSON parses a JSON object into ordered parameters. Values are
// rendered to text with ValueText.
func DecodeJSON(data []byte) (*Params, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("invalid JSON body: expected an object")
	}

	p := NewParams()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("invalid JSON body: unexpected key %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("invalid JSON body: field %q: %w", key, err)
		}

		text, null, err := ValueText(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid JSON body: field %q: %w", key, err)
		}
		p.Set(Field{Key: key, Value: text, Null: null})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("invalid JSON body: unexpected data after object")
	}
	return p, nil
}

// ValueText renders a JSON value as the text sent upstream:
//   - strings verbatim
//   - numbers and booleans in their literal form
//   - null as "null" (null is reported separately)
//   - arrays as their elements joined by ",", null elements empty
//   - objects as compact JSON
func ValueText(raw json.RawMessage) (text string, null bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false, fmt.Errorf("empty value")
	}

	switch raw[0] {
	case 'n':
		return "null", true, nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false, err
		}
		return s, false, nil
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return "", false, err
		}
		parts := make([]string, len(elems))
		for i, e := range elems {
			t, isNull, err := ValueText(e)
			if err != nil {
				return "", false, err
			}
			if !isNull {
				parts[i] = t
			}
		}
		return strings.Join(parts, ","), false, nil
	case '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return "", false, err
		}
		return buf.String(), false, nil
	}
	// numbers, true, false
	return string(raw), false, nil
}

// DecodeForm parses an application/x-www-form-urlencoded body, keeping the
// order in which keys first appear.
func DecodeForm(body string) (*Params, error) {
	p := NewParams()
	for _, pair := range strings.Split(body, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("invalid form body: %w", err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("invalid form body: %w", err)
		}
		p.Add(key, value)
	}
	return p, nil
}
