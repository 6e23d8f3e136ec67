// Package bus selects exactly one packet from a candidate stream and
// forwards it to the ingestion step.
package bus

import (
	"bufio"
	"context"
	"io"
	"log/slog"

	"github.com/CJohnsonADAH/adpn-cli/internal/adpnerr"
	"github.com/CJohnsonADAH/adpn-cli/internal/ingest"
	"github.com/CJohnsonADAH/adpn-cli/internal/logging"
	"github.com/CJohnsonADAH/adpn-cli/internal/packet"
)

// provenanceKey is the reserved packet key candidates use to carry their
// origin through line-based pipes. It is stripped from the forwarded packet.
const provenanceKey = "provenance"

// Select reads newline-delimited packet candidates and returns the winner
// under the fixed selection rule: the last valid line. Selection is
// deterministic; an empty or packet-free stream is NotFound, never an empty
// packet.
func Select(r io.Reader, defaultCarrier string) (packet.Candidate, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var winner packet.Candidate
	found := false
	for scanner.Scan() {
		fragment, ok := packet.Match(scanner.Text())
		if !ok {
			continue
		}
		// Match already vetted the body as a JSON object.
		decoded, _ := packet.Decode(fragment)
		winner = detach(decoded, defaultCarrier)
		found = true
	}
	if err := scanner.Err(); err != nil {
		return packet.Candidate{}, adpnerr.Wrap(adpnerr.ErrParse, "bus", "select", "read candidate stream", err)
	}
	if !found {
		return packet.Candidate{}, adpnerr.Wrap(adpnerr.ErrNotFound, "bus", "select", "no packet candidates on stream", nil)
	}
	return winner, nil
}

// detach splits embedded provenance out of the candidate so the packet
// forwards unchanged.
func detach(p packet.Packet, defaultCarrier string) packet.Candidate {
	candidate := packet.Candidate{
		Packet:     p,
		Provenance: packet.Provenance{Carrier: defaultCarrier},
	}
	raw, ok := p[provenanceKey]
	if !ok {
		return candidate
	}
	delete(p, provenanceKey)
	table, ok := raw.(map[string]any)
	if !ok {
		return candidate
	}
	if carrier, ok := table["carrier"].(string); ok && carrier != "" {
		candidate.Provenance.Carrier = carrier
	}
	if resource, ok := table["resource"].(string); ok {
		candidate.Provenance.Resource = resource
	}
	return candidate
}

// Attach embeds provenance into a packet for transport over a line-based
// pipe, the inverse of the stripping Select performs.
func Attach(p packet.Packet, prov packet.Provenance) packet.Packet {
	annotated := packet.Packet{}
	for key, value := range p {
		annotated[key] = value
	}
	annotated[provenanceKey] = map[string]any{
		"carrier":  prov.Carrier,
		"resource": prov.Resource,
	}
	return annotated
}

// Notifier posts the ingest outcome back to the originating carrier.
type Notifier interface {
	NotifyIngested(ctx context.Context, prov packet.Provenance, summary string) error
}

// Bus forwards a selected candidate to the loader and, on success, commits
// the outcome back to the source.
type Bus struct {
	Loader   ingest.Loader
	Notifier Notifier
	Logger   *slog.Logger
}

// Forward hands the winner to the loader with its resolved operation
// parameters. A loader failure preserves the loader's status and skips the
// commit step entirely: a packet is never partially committed. The commit
// notification is best-effort; its failure does not undo a completed load.
func (b *Bus) Forward(ctx context.Context, candidate packet.Candidate, params map[string]string) (int, error) {
	logger := logging.NewComponentLogger(b.Logger, "bus")

	status, err := b.Loader.Load(ctx, ingest.Request{
		Packet:     candidate.Packet,
		Provenance: candidate.Provenance,
		Params:     params,
	})
	if err != nil {
		if status == 0 {
			status = 1
		}
		return status, adpnerr.Upstream("bus", "forward", status, err)
	}
	if status != 0 {
		return status, adpnerr.Upstream("bus", "forward", status, nil)
	}

	if b.Notifier != nil {
		title, _ := candidate.Packet.Get("title")
		if err := b.Notifier.NotifyIngested(ctx, candidate.Provenance, title); err != nil {
			logger.Warn("commit notification failed",
				logging.String("carrier", candidate.Provenance.Carrier),
				logging.Error(err))
		}
	}
	return 0, nil
}
