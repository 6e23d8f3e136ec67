package overlay

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Encoding names an output representation for a merged object. Every
// packet-producing operation negotiates one of these.
type Encoding string

const (
	EncodingJSON   Encoding = "application/json"
	EncodingPretty Encoding = "application/json+pretty"
	EncodingTable  Encoding = "text/tab-separated-values"
	EncodingPlain  Encoding = "text/plain"
)

var templatePattern = regexp.MustCompile(`%\(([^)]+)\)s`)

// Encode renders the object in the requested representation. EncodingPlain is
// only meaningful for single-key projections and renders each value bare.
func (o Object) Encode(encoding Encoding) (string, error) {
	switch encoding {
	case EncodingJSON, "":
		return o.EncodeCompact()
	case EncodingPretty:
		return o.EncodePretty()
	case EncodingTable:
		return o.EncodeTable(), nil
	case EncodingPlain:
		lines := make([]string, 0, len(o))
		for _, key := range o.Keys() {
			lines = append(lines, Scalar(o[key]))
		}
		return strings.Join(lines, "\n"), nil
	default:
		return "", fmt.Errorf("unsupported output encoding %q", encoding)
	}
}

// EncodeCompact serializes the object as single-line JSON.
func (o Object) EncodeCompact() (string, error) {
	encoded, err := json.Marshal(map[string]any(o))
	if err != nil {
		return "", fmt.Errorf("encode object: %w", err)
	}
	return string(encoded), nil
}

// EncodePretty serializes the object as indented JSON.
func (o Object) EncodePretty() (string, error) {
	encoded, err := json.MarshalIndent(map[string]any(o), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode object: %w", err)
	}
	return string(encoded), nil
}

// EncodeTable renders one "key: value" line per top-level key, keys sorted,
// values URL-encoded so the table survives line-based text pipes intact.
func (o Object) EncodeTable() string {
	var sb strings.Builder
	for _, key := range o.Keys() {
		sb.WriteString(key)
		sb.WriteString(": ")
		sb.WriteString(url.QueryEscape(Scalar(o[key])))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Template substitutes %(key)s placeholders in tmpl with values from the
// object. Placeholders naming absent keys substitute as empty strings.
func (o Object) Template(tmpl string) string {
	return templatePattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		key := templatePattern.FindStringSubmatch(match)[1]
		value, ok := o.GetString(key)
		if !ok {
			return ""
		}
		return value
	})
}
