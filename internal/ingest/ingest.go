// Package ingest hands a finalized packet to the ingestion loader.
//
// The loader is an external collaborator: it accepts the packet plus explicit
// operation parameters and answers with a status code, which the pipeline
// preserves and surfaces on failure.
package ingest

import (
	"context"

	"github.com/CJohnsonADAH/adpn-cli/internal/packet"
)

// Request is one finalized ingest handoff.
type Request struct {
	Packet     packet.Packet
	Provenance packet.Provenance
	// Params are operation parameters resolved outside the packet (peer,
	// database target, and the like).
	Params map[string]string
}

// Loader consumes a finalized packet. Status 0 means the record was loaded;
// any other status is the loader's own failure code and must be surfaced
// unchanged.
type Loader interface {
	Load(ctx context.Context, req Request) (status int, err error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, req Request) (int, error)

func (f LoaderFunc) Load(ctx context.Context, req Request) (int, error) {
	return f(ctx, req)
}
