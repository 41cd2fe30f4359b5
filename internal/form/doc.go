// Package form converts inbound relay requests into the form-urlencoded body
// the legacy upstream expects.
//
// Requests arrive as JSON objects (or form bodies) whose key order matters:
// the upstream receives the reserved fields first, then every other field in
// the order the caller sent it. Params keeps that order through decoding,
// partitioning and encoding.
//
//	params, err := form.Decode(r.Header.Get("Content-Type"), body)
//	reserved, rest := params.Partition(form.ReservedFields...)
//	body := form.Outbound(reserved, rest).Encode()
//	// username=u&apiaccesskey=k&action=login&foo=bar
package form
