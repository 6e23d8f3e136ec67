package tracker

import (
	"context"
	"fmt"
	"io"

	"github.com/CJohnsonADAH/adpn-cli/internal/packet"
)

// Thread adapts an issue and its notes into the scanner's block stream:
// description first, then comments oldest to newest. Fetching is lazy, one
// block handed out per Next call.
type Thread struct {
	ctx      context.Context
	client   Client
	resource string
	issueID  int

	started bool
	notes   []Note
	index   int
	pending []packet.Block
}

// NewThread builds a block source over one issue thread. resource is the
// carrier's API resource path prefix recorded as provenance.
func NewThread(ctx context.Context, client Client, issueID int, resource string) *Thread {
	return &Thread{ctx: ctx, client: client, issueID: issueID, resource: resource}
}

// Next yields the following block of the thread, io.EOF at the end.
func (t *Thread) Next() (packet.Block, error) {
	if !t.started {
		t.started = true
		issue, err := t.client.Issue(t.ctx, t.issueID)
		if err != nil {
			return packet.Block{}, err
		}
		notes, err := t.client.Notes(t.ctx, t.issueID)
		if err != nil {
			return packet.Block{}, err
		}
		t.notes = notes
		return packet.Block{Resource: t.resource, Text: issue.Description}, nil
	}

	if t.index >= len(t.notes) {
		return packet.Block{}, io.EOF
	}
	note := t.notes[t.index]
	t.index++
	return packet.Block{
		Resource: fmt.Sprintf("%s/notes/%d", t.resource, note.ID),
		Text:     note.Body,
	}, nil
}
