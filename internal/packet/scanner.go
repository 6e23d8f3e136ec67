package packet

import (
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/CJohnsonADAH/adpn-cli/internal/adpnerr"
	"github.com/CJohnsonADAH/adpn-cli/internal/overlay"
)

// Signature is the versioned structural marker that identifies an embedded
// machine-readable packet inside otherwise free-form prose: an optional
// label ("JSON PACKET:") followed by a one-line {...} JSON object. Existing
// producers emit this form; changing it breaks interchange with them.
const Signature = `^(([A-Za-z0-9]+\s*)+:\s*)?(\{.*\})\s*$`

var signaturePattern = regexp.MustCompile(Signature)

// Block is one free-text unit of a thread: the issue description, or a
// comment, in chronological order.
type Block struct {
	Resource string // API resource path of this block within its carrier
	Text     string
}

// Source yields thread blocks in their natural chronological order and
// returns io.EOF when the thread is exhausted. Blocks are examined one at a
// time so an arbitrarily long thread never has to be held in memory.
type Source interface {
	Next() (Block, error)
}

// Scan walks blocks in order and returns the packet embedded in the last
// block that contains one: a later annotation in the same thread supersedes
// an earlier embedded packet. Multiple packet lines inside a single block are
// overlay-merged in order. Zero matches across all blocks is NotFound, never
// an empty packet.
func Scan(src Source) (Candidate, error) {
	var winner Candidate
	found := false

	for {
		block, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Candidate{}, err
		}

		if extracted, ok := fromBlock(block); ok {
			winner = extracted
			found = true
		}
	}

	if !found {
		return Candidate{}, adpnerr.Wrap(adpnerr.ErrNotFound, "packet", "scan", "no embedded packet in thread", nil)
	}
	return winner, nil
}

// ScanBlocks scans an already-materialized block slice.
func ScanBlocks(blocks []Block) (Candidate, error) {
	return Scan(&sliceSource{blocks: blocks})
}

// ExtractFragments pulls every line matching the packet signature out of
// free-form text, label stripped, in order of appearance. Lines whose braced
// body is not a JSON object are treated as prose.
func ExtractFragments(text string) []string {
	var fragments []string
	for _, line := range strings.Split(norm.NFC.String(text), "\n") {
		if fragment, ok := Match(line); ok {
			fragments = append(fragments, fragment)
		}
	}
	return fragments
}

// Match tests a single line against the packet signature and returns the
// embedded JSON object text. The envelope is strict: the braced body must
// parse as a JSON object, which keeps arbitrary prose with stray braces from
// matching.
func Match(line string) (string, bool) {
	groups := signaturePattern.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if groups == nil {
		return "", false
	}
	body := groups[3]
	var probe map[string]any
	if err := json.Unmarshal([]byte(body), &probe); err != nil {
		return "", false
	}
	return body, true
}

func fromBlock(block Block) (Candidate, bool) {
	fragments := ExtractFragments(block.Text)
	if len(fragments) == 0 {
		return Candidate{}, false
	}
	merged, err := overlay.Merge(fragments)
	if err != nil {
		// Fragments are pre-validated by Match; a merge failure here means
		// the block is not a well-formed packet after all.
		return Candidate{}, false
	}
	return Candidate{
		Packet:     Packet(merged),
		Provenance: Provenance{Resource: block.Resource},
	}, true
}

type sliceSource struct {
	blocks []Block
	index  int
}

func (s *sliceSource) Next() (Block, error) {
	if s.index >= len(s.blocks) {
		return Block{}, io.EOF
	}
	block := s.blocks[s.index]
	s.index++
	return block, nil
}
