package packet

import (
	"errors"
	"testing"

	"github.com/CJohnsonADAH/adpn-cli/internal/adpnerr"
)

func TestScanLastMatchWins(t *testing.T) {
	tests := []struct {
		name   string
		blocks []string
		want   string
	}{
		{"packet after prose", []string{"no packet here", `JSON PACKET: {"peer":"X"}`}, "X"},
		{"packet before prose", []string{`JSON PACKET: {"peer":"X"}`, "no packet here"}, "X"},
		{"later packet supersedes", []string{`JSON PACKET: {"peer":"X"}`, `JSON PACKET: {"peer":"Y"}`}, "Y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := make([]Block, len(tt.blocks))
			for i, text := range tt.blocks {
				blocks[i] = Block{Resource: "note", Text: text}
			}
			candidate, err := ScanBlocks(blocks)
			if err != nil {
				t.Fatalf("scan: %v", err)
			}
			if got, _ := candidate.Packet.Get("peer"); got != tt.want {
				t.Fatalf("peer = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScanNoMatchIsNotFound(t *testing.T) {
	_, err := ScanBlocks([]Block{
		{Resource: "description", Text: "just prose"},
		{Resource: "notes/1", Text: "more prose, no braces"},
	})
	if !errors.Is(err, adpnerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestScanEmptyThreadIsNotFound(t *testing.T) {
	_, err := ScanBlocks(nil)
	if !errors.Is(err, adpnerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestScanRecordsWinningBlockResource(t *testing.T) {
	candidate, err := ScanBlocks([]Block{
		{Resource: "issues/42", Text: "description without packet"},
		{Resource: "issues/42/notes/1", Text: "no packet"},
		{Resource: "issues/42/notes/2", Text: "no packet"},
		{Resource: "issues/42/notes/3", Text: `JSON PACKET: {"peer":"ALPHA","title":"Sample AU"}`},
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if candidate.Provenance.Resource != "issues/42/notes/3" {
		t.Fatalf("provenance resource = %q, want issues/42/notes/3", candidate.Provenance.Resource)
	}
	if got, _ := candidate.Packet.Get("title"); got != "Sample AU" {
		t.Fatalf("title = %q, want Sample AU", got)
	}
}

func TestScanMergesMultiplePacketLinesInOneBlock(t *testing.T) {
	candidate, err := ScanBlocks([]Block{
		{Resource: "notes/1", Text: "intro prose\nJSON PACKET: {\"peer\":\"ALPHA\"}\n{\"title\":\"Sample AU\"}\ntrailing prose"},
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if got, _ := candidate.Packet.Get("peer"); got != "ALPHA" {
		t.Fatalf("peer = %q", got)
	}
	if got, _ := candidate.Packet.Get("title"); got != "Sample AU" {
		t.Fatalf("title = %q", got)
	}
}

func TestMatchRejectsProseWithBraces(t *testing.T) {
	if _, ok := Match(`JSON PACKET: {oooOOooo what's this?}`); ok {
		t.Fatal("non-JSON braced body should not match")
	}
	if _, ok := Match(`a sentence {with braces} in the middle`); ok {
		t.Fatal("mid-line braces should not match")
	}
	fragment, ok := Match(`Ingest Report: {"peer":"ALPHA"}`)
	if !ok || fragment != `{"peer":"ALPHA"}` {
		t.Fatalf("labeled packet line should match, got %q ok=%v", fragment, ok)
	}
}

func TestPacketParameters(t *testing.T) {
	p, err := Decode(`{"peer":"ALPHA","parameters":[["base_url","http://archives.example.gov/"],["subdirectory","WPA-Folder-01"]]}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	pairs := p.Parameters()
	if len(pairs) != 2 {
		t.Fatalf("parameters = %v, want 2 pairs", pairs)
	}
	if pairs[1] != [2]string{"subdirectory", "WPA-Folder-01"} {
		t.Fatalf("second pair = %v", pairs[1])
	}

	value, ok := p.Parameter("@base_url")
	if !ok || value != "http://archives.example.gov/" {
		t.Fatalf("@base_url = %q ok=%v", value, ok)
	}
	if _, ok := p.Parameter("@missing"); ok {
		t.Fatal("expected @missing to be absent")
	}
	if value, _ := p.Parameter("peer"); value != "ALPHA" {
		t.Fatalf("peer = %q", value)
	}
}
