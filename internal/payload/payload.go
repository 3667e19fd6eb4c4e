// Package payload decodes the loosely-structured envelopes posted by the
// tracking SDK: a base64-encoded JSON document carried in a `data` field.
package payload

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/steveyackey/posthog/internal/model"
)

var (
	// ErrMalformedPayload indicates a data field that was not valid
	// base64-encoded JSON.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrMalformedElement indicates an element descriptor missing its
	// required tag_name.
	ErrMalformedElement = errors.New("malformed element")
)

// attrPrefix marks descriptor keys that fold into the element attribute map.
const attrPrefix = "attr__"

// Envelope is the decoded but unvalidated payload. Shape checking is the
// caller's responsibility.
type Envelope map[string]any

// FromRequest extracts the data field (query parameter on GET, form field on
// POST) and decodes it. An absent or empty field returns a nil Envelope and
// no error: SDK beacons fire unconditionally and an empty ping is the
// steady-state "nothing to report" case, never a failure.
func FromRequest(r *http.Request) (Envelope, error) {
	var data string
	if r.Method == http.MethodPost {
		data = r.PostFormValue("data")
	} else {
		data = r.URL.Query().Get("data")
	}
	if data == "" {
		return nil, nil
	}
	return Decode(data)
}

// Decode parses a base64-encoded JSON document into an Envelope.
func Decode(data string) (Envelope, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		// Some SDK transports URL-encode the padding away.
		raw, err = base64.RawStdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("%w: decode base64: %v", ErrMalformedPayload, err)
		}
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: parse json: %v", ErrMalformedPayload, err)
	}
	return env, nil
}

// String returns the named field canonicalized to a string. Numeric distinct
// IDs are common; integral values render without a decimal point.
func (e Envelope) String(key string) string {
	return Stringify(e[key])
}

// Properties returns the named field as a property bag, or nil when absent
// or not an object.
func (e Envelope) Properties(key string) model.Properties {
	m, ok := e[key].(map[string]any)
	if !ok {
		return nil
	}
	return model.Properties(m)
}

// Stringify canonicalizes a JSON-decoded scalar to its string form.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1e15 {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Elements maps the raw $elements chain into model elements, preserving the
// submitted order. Every descriptor must carry a tag_name; all other fields
// default to absent. Keys with the attr__ prefix are folded into the
// attribute map with the prefix stripped.
func Elements(entries []any) ([]*model.Element, error) {
	elements := make([]*model.Element, 0, len(entries))
	for i, entry := range entries {
		desc, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is not an object", ErrMalformedElement, i)
		}
		tagName, ok := desc["tag_name"].(string)
		if !ok || tagName == "" {
			return nil, fmt.Errorf("%w: element %d missing tag_name", ErrMalformedElement, i)
		}

		el := &model.Element{
			TagName:   tagName,
			Text:      stringField(desc, "$el_text"),
			Href:      stringField(desc, attrPrefix+"href"),
			AttrID:    stringField(desc, attrPrefix+"id"),
			NthChild:  intField(desc, "nth_child"),
			NthOfType: intField(desc, "nth_of_type"),
			Order:     i,
		}
		for key, value := range desc {
			if len(key) > len(attrPrefix) && key[:len(attrPrefix)] == attrPrefix {
				if el.Attributes == nil {
					el.Attributes = model.Properties{}
				}
				el.Attributes[key[len(attrPrefix):]] = value
			}
		}
		elements = append(elements, el)
	}
	return elements, nil
}

func stringField(desc map[string]any, key string) string {
	s, _ := desc[key].(string)
	return s
}

func intField(desc map[string]any, key string) *int {
	f, ok := desc[key].(float64)
	if !ok {
		return nil
	}
	n := int(f)
	return &n
}
