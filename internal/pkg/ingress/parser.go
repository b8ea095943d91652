package ingress

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"
)

// ErrParse is returned when a body cannot be read in any supported format.
var ErrParse = errors.New("unparseable webhook body")

const maxMultipartMemory = 1 << 20

// Payload is the canonical flat field map of one delivery. Values are kept
// as strings; typed interpretation happens in the field extractor.
type Payload map[string]string

// Get returns the trimmed value of key.
func (p Payload) Get(key string) string {
	return strings.TrimSpace(p[key])
}

// First returns the first non-empty value among keys, in order.
func (p Payload) First(keys ...string) (string, bool) {
	for _, k := range keys {
		if v := p.Get(k); v != "" {
			return v, true
		}
	}
	return "", false
}

// ToMap converts the payload for JSON storage.
func (p Payload) ToMap() map[string]interface{} {
	out := make(map[string]interface{}, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Parse normalizes a raw body into a Payload based on contentType. Unknown
// or missing content types are tried as JSON first and as a form second.
func Parse(body []byte, contentType string) (Payload, error) {
	mediaType, params, _ := mime.ParseMediaType(contentType)
	mediaType = strings.ToLower(mediaType)

	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		return parseJSON(body)
	case mediaType == "application/x-www-form-urlencoded":
		return parseForm(body)
	case mediaType == "multipart/form-data":
		return parseMultipart(body, params["boundary"])
	}

	if p, err := parseJSON(body); err == nil {
		return p, nil
	}
	return parseForm(body)
}

func parseJSON(body []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrParse)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	p := make(Payload, len(raw))
	for k, v := range raw {
		p[k] = stringify(v)
	}
	return p, nil
}

func parseForm(body []byte) (Payload, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || !strings.Contains(trimmed, "=") {
		return nil, fmt.Errorf("%w: not a form body", ErrParse)
	}
	values, err := url.ParseQuery(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	p := make(Payload, len(values))
	for k, vs := range values {
		if k == "" || len(vs) == 0 {
			continue
		}
		p[k] = vs[0]
	}
	if len(p) == 0 {
		return nil, fmt.Errorf("%w: empty form body", ErrParse)
	}
	return p, nil
}

func parseMultipart(body []byte, boundary string) (Payload, error) {
	if boundary == "" {
		return nil, fmt.Errorf("%w: multipart boundary missing", ErrParse)
	}
	form, err := multipart.NewReader(bytes.NewReader(body), boundary).ReadForm(maxMultipartMemory)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	defer form.RemoveAll()

	p := make(Payload, len(form.Value))
	for k, vs := range form.Value {
		if len(vs) > 0 {
			p[k] = vs[0]
		}
	}
	if len(p) == 0 {
		return nil, fmt.Errorf("%w: empty multipart body", ErrParse)
	}
	return p, nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
