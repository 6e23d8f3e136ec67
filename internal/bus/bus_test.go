package bus

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/CJohnsonADAH/adpn-cli/internal/adpnerr"
	"github.com/CJohnsonADAH/adpn-cli/internal/ingest"
	"github.com/CJohnsonADAH/adpn-cli/internal/logging"
	"github.com/CJohnsonADAH/adpn-cli/internal/packet"
)

func TestSelectLastValidLineWins(t *testing.T) {
	stream := strings.Join([]string{
		"working on it",
		`{"title":"First Draft","peer":"ALPHA"}`,
		"not a packet { just prose",
		`JSON PACKET: {"title":"Final","peer":"BETA"}`,
		"",
	}, "\n")

	winner, err := Select(strings.NewReader(stream), "stdin")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got, _ := winner.Packet.Get("title"); got != "Final" {
		t.Fatalf("title = %q, want %q", got, "Final")
	}
	if winner.Provenance.Carrier != "stdin" {
		t.Fatalf("carrier = %q", winner.Provenance.Carrier)
	}
}

func TestSelectEmptyStreamIsNotFound(t *testing.T) {
	for _, stream := range []string{"", "no packets here\njust prose\n"} {
		_, err := Select(strings.NewReader(stream), "stdin")
		if !errors.Is(err, adpnerr.ErrNotFound) {
			t.Fatalf("stream %q: expected ErrNotFound, got %v", stream, err)
		}
	}
}

func TestSelectDeterministic(t *testing.T) {
	stream := `{"title":"A"}` + "\n" + `{"title":"B"}` + "\n"
	for i := 0; i < 3; i++ {
		winner, err := Select(strings.NewReader(stream), "stdin")
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if got, _ := winner.Packet.Get("title"); got != "B" {
			t.Fatalf("run %d: title = %q, want %q", i, got, "B")
		}
	}
}

func TestAttachRoundTrip(t *testing.T) {
	p, err := packet.Decode(`{"title":"Sample AU"}`)
	if err != nil {
		t.Fatal(err)
	}
	prov := packet.Provenance{Carrier: "https://gitlab.example.edu", Resource: "projects/adpn/issues/42/notes/3"}

	annotated := Attach(p, prov)
	line, err := annotated.Object().EncodeCompact()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	winner, err := Select(strings.NewReader(line+"\n"), "stdin")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if winner.Provenance != prov {
		t.Fatalf("provenance = %+v, want %+v", winner.Provenance, prov)
	}
	if _, ok := winner.Packet[provenanceKey]; ok {
		t.Fatal("forwarded packet must not carry transport provenance")
	}
	if got, _ := winner.Packet.Get("title"); got != "Sample AU" {
		t.Fatalf("title = %q", got)
	}
}

type recordingNotifier struct {
	calls []packet.Provenance
	err   error
}

func (n *recordingNotifier) NotifyIngested(_ context.Context, prov packet.Provenance, _ string) error {
	n.calls = append(n.calls, prov)
	return n.err
}

func TestForwardCommitsOnSuccess(t *testing.T) {
	var loaded []ingest.Request
	notifier := &recordingNotifier{}
	b := &Bus{
		Loader: ingest.LoaderFunc(func(_ context.Context, req ingest.Request) (int, error) {
			loaded = append(loaded, req)
			return 0, nil
		}),
		Notifier: notifier,
		Logger:   logging.NewNop(),
	}

	p, _ := packet.Decode(`{"title":"Sample AU"}`)
	candidate := packet.Candidate{
		Packet:     p,
		Provenance: packet.Provenance{Carrier: "tracker", Resource: "projects/adpn/issues/42"},
	}

	status, err := b.Forward(context.Background(), candidate, map[string]string{"peer": "ALPHA"})
	if err != nil || status != 0 {
		t.Fatalf("forward: status=%d err=%v", status, err)
	}
	if len(loaded) != 1 || loaded[0].Params["peer"] != "ALPHA" {
		t.Fatalf("loaded = %+v", loaded)
	}
	if len(notifier.calls) != 1 || notifier.calls[0].Resource != "projects/adpn/issues/42" {
		t.Fatalf("notified = %+v", notifier.calls)
	}
}

func TestForwardPreservesLoaderStatusAndSkipsCommit(t *testing.T) {
	notifier := &recordingNotifier{}
	b := &Bus{
		Loader: ingest.LoaderFunc(func(context.Context, ingest.Request) (int, error) {
			return 7, errors.New("loader refused")
		}),
		Notifier: notifier,
		Logger:   logging.NewNop(),
	}

	p, _ := packet.Decode(`{"title":"Sample AU"}`)
	status, err := b.Forward(context.Background(), packet.Candidate{Packet: p}, nil)
	if err == nil {
		t.Fatal("expected forward failure")
	}
	if status != 7 {
		t.Fatalf("status = %d, want loader status 7", status)
	}
	if got := adpnerr.ExitCode(err); got != 7 {
		t.Fatalf("exit code = %d, want 7", got)
	}
	if len(notifier.calls) != 0 {
		t.Fatal("failed load must not commit")
	}
}

func TestForwardNotifyFailureDoesNotFailLoad(t *testing.T) {
	b := &Bus{
		Loader: ingest.LoaderFunc(func(context.Context, ingest.Request) (int, error) {
			return 0, nil
		}),
		Notifier: &recordingNotifier{err: errors.New("tracker unreachable")},
		Logger:   logging.NewNop(),
	}

	p, _ := packet.Decode(`{"title":"Sample AU"}`)
	status, err := b.Forward(context.Background(), packet.Candidate{Packet: p}, nil)
	if err != nil || status != 0 {
		t.Fatalf("forward: status=%d err=%v", status, err)
	}
}
