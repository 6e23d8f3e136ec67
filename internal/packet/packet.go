// Package packet defines the canonical ingest-metadata record and the
// scanner that extracts one from free-form text threads.
package packet

import (
	"encoding/json"
	"strings"

	"github.com/CJohnsonADAH/adpn-cli/internal/overlay"
)

// Packet is one canonical ingest record: a mapping of string keys to string
// or nested values. A packet has no inherent identity; it is identified by
// its position in a candidate stream or by an explicit lookup key.
type Packet overlay.Object

// Provenance records the carrier a packet was extracted from so downstream
// steps can notify back to the source.
type Provenance struct {
	Carrier  string `json:"carrier,omitempty"`  // originating carrier, e.g. issue thread URL
	Resource string `json:"resource,omitempty"` // API resource path of the winning block
}

// Candidate pairs an extracted packet with its provenance.
type Candidate struct {
	Packet     Packet
	Provenance Provenance
}

// Object returns the packet as an overlay object for encoding and projection.
func (p Packet) Object() overlay.Object {
	return overlay.Object(p)
}

// Get projects a dot-path key from the packet as a scalar string.
func (p Packet) Get(path string) (string, bool) {
	return p.Object().GetString(path)
}

// Parameters returns the packet's explicit operation parameters, carried as
// an ordered list of [key, value] pairs under the "parameters" key.
func (p Packet) Parameters() [][2]string {
	raw, ok := p["parameters"]
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	pairs := make([][2]string, 0, len(list))
	for _, item := range list {
		pair, ok := item.([]any)
		if !ok || len(pair) != 2 {
			continue
		}
		key, keyOK := pair[0].(string)
		if !keyOK {
			continue
		}
		pairs = append(pairs, [2]string{key, overlay.Scalar(pair[1])})
	}
	return pairs
}

// Parameter looks up one named operation parameter. Keys prefixed with "@"
// address the parameters list directly, matching the pipeline convention for
// plugin parameters.
func (p Packet) Parameter(key string) (string, bool) {
	if name, ok := strings.CutPrefix(key, "@"); ok {
		var value string
		var found bool
		for _, pair := range p.Parameters() {
			if pair[0] == name {
				value, found = pair[1], true
			}
		}
		return value, found
	}
	return p.Get(key)
}

// Decode parses a bare JSON object into a packet.
func Decode(text string) (Packet, error) {
	var table map[string]any
	if err := json.Unmarshal([]byte(text), &table); err != nil {
		return nil, err
	}
	return Packet(table), nil
}
