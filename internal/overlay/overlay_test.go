package overlay

import (
	"errors"
	"reflect"
	"testing"

	"github.com/CJohnsonADAH/adpn-cli/internal/adpnerr"
)

func TestMergeLaterFragmentWins(t *testing.T) {
	merged, err := Merge([]string{`{"a":1}`, `{"a":2,"b":3}`})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	want := Object{"a": float64(2), "b": float64(3)}
	if !reflect.DeepEqual(merged, want) {
		t.Fatalf("merged = %v, want %v", merged, want)
	}
}

func TestMergeEmptyInput(t *testing.T) {
	merged, err := Merge(nil)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(merged) != 0 {
		t.Fatalf("expected empty object, got %v", merged)
	}
}

func TestMergeOrderMatters(t *testing.T) {
	forward, err := Merge([]string{`{"peer":"ALPHA"}`, `{"peer":"BETA"}`})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	reverse, err := Merge([]string{`{"peer":"BETA"}`, `{"peer":"ALPHA"}`})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	if got, _ := forward.GetString("peer"); got != "BETA" {
		t.Fatalf("forward merge peer = %q, want BETA", got)
	}
	if got, _ := reverse.GetString("peer"); got != "ALPHA" {
		t.Fatalf("reverse merge peer = %q, want ALPHA", got)
	}
}

func TestMergeRetainsEarliestForAbsentKeys(t *testing.T) {
	merged, err := Merge([]string{`{"title":"Sample AU","peer":"ALPHA"}`, `{"peer":"BETA"}`})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if got, _ := merged.GetString("title"); got != "Sample AU" {
		t.Fatalf("title = %q, want earliest value retained", got)
	}
}

func TestMergeMalformedFragmentAborts(t *testing.T) {
	_, err := Merge([]string{`{"a":1}`, `{oooOOooo what's this?}`})
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !errors.Is(err, adpnerr.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestGetDotPath(t *testing.T) {
	merged, err := Merge([]string{`{"stage":{"user":"lockss","host":"drop.example.edu"}}`})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	got, ok := merged.GetString("stage.user")
	if !ok || got != "lockss" {
		t.Fatalf("stage.user = %q ok=%v, want lockss", got, ok)
	}
	if _, ok := merged.Get("stage.missing"); ok {
		t.Fatal("expected missing path to report absent")
	}
	if _, ok := merged.Get("stage.user.deeper"); ok {
		t.Fatal("expected descent through scalar to report absent")
	}
}

func TestEncodeTable(t *testing.T) {
	merged, err := Merge([]string{`{"b key":"has spaces & symbols","a":"plain"}`})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	got := merged.EncodeTable()
	want := "a: plain\nb key: has+spaces+%26+symbols\n"
	if got != want {
		t.Fatalf("table = %q, want %q", got, want)
	}
}

func TestTemplateSubstitution(t *testing.T) {
	merged, err := Merge([]string{`{"file":"/tmp/stash.dat","key":"s3kr1t"}`})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	got := merged.Template("export STASH_FILE=%(file)s; export STASH_KEY=%(key)s; export MISSING=%(nope)s")
	want := "export STASH_FILE=/tmp/stash.dat; export STASH_KEY=s3kr1t; export MISSING="
	if got != want {
		t.Fatalf("template = %q, want %q", got, want)
	}
}

func TestScalarRendersNestedValuesAsJSON(t *testing.T) {
	merged, err := Merge([]string{`{"parameters":[["base_url","http://archives.example.gov/"]]}`})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	got, _ := merged.GetString("parameters")
	want := `[["base_url","http://archives.example.gov/"]]`
	if got != want {
		t.Fatalf("scalar = %q, want %q", got, want)
	}
}
