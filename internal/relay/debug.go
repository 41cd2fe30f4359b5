package relay

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/firefly-engineering/legacy-relay/internal/errors"
	"github.com/firefly-engineering/legacy-relay/internal/form"
)

// FieldParameters is the pass-through field the debug endpoint base64-decodes.
const FieldParameters = "parameters"

// DebugRecord is the reply of the debug endpoint: what forward would have
// sent upstream for the same request.
type DebugRecord struct {
	ReceivedBody         json.RawMessage `json:"received_body"`
	ParamKeys            []string        `json:"param_keys"`
	URLEncodedBody       string          `json:"url_encoded_body"`
	URLEncodedLength     int             `json:"url_encoded_length"`
	DecodedParametersXML *string         `json:"decoded_parameters_xml"`
	ParametersRaw        *string         `json:"parameters_raw"`
}

// BuildDebugRecord computes the debug record for the decoded parameters.
// Reserved fields are optional here and default to empty strings. A decode
// failure is reported inline rather than returned.
func BuildDebugRecord(received json.RawMessage, params *form.Params) *DebugRecord {
	reserved, rest := params.Partition(form.ReservedFields...)
	body := form.Outbound(reserved, rest).Encode()

	record := &DebugRecord{
		ReceivedBody:     received,
		ParamKeys:        rest.Keys(),
		URLEncodedBody:   body,
		URLEncodedLength: len(body),
	}

	if f, ok := rest.Lookup(FieldParameters); ok && !f.Empty() {
		raw := f.Value
		record.ParametersRaw = &raw

		decoded, err := DecodeParameters(raw)
		if err != nil {
			decoded = err.Error()
		}
		record.DecodedParametersXML = &decoded
	}

	return record
}

var parameterEncodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// DecodeParameters decodes a base64 value, accepting padded and unpadded
// input in both the standard and URL-safe alphabets. Invalid UTF-8 in the
// result is replaced with U+FFFD.
func DecodeParameters(s string) (string, error) {
	s = strings.TrimSpace(s)

	var firstErr error
	for _, enc := range parameterEncodings {
		data, err := enc.DecodeString(s)
		if err == nil {
			return strings.ToValidUTF8(string(data), "�"), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return "", errors.DecodeFailure(firstErr)
}

// Inspect decodes an inbound body the way the relay does and returns the
// debug record for it. Nothing is sent upstream.
func Inspect(contentType string, data []byte) (*DebugRecord, error) {
	params, err := decodeParams(contentType, data)
	if err != nil {
		return nil, err
	}
	received, err := receivedBody(contentType, data, params)
	if err != nil {
		return nil, err
	}
	return BuildDebugRecord(received, params), nil
}

// receivedBody returns the inbound body as JSON. JSON bodies are echoed in
// compact form; any other body is echoed as its decoded parameters.
func receivedBody(contentType string, data []byte, params *form.Params) (json.RawMessage, error) {
	if form.IsJSON(contentType) && len(bytes.TrimSpace(data)) > 0 {
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return nil, errors.InvalidBody("invalid JSON body", err)
		}
		return buf.Bytes(), nil
	}
	return params.MarshalJSON()
}
