package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CJohnsonADAH/adpn-cli/internal/bus"
	"github.com/CJohnsonADAH/adpn-cli/internal/packet"
	"github.com/CJohnsonADAH/adpn-cli/internal/tracker"
)

func newPacketCommand(ctx *commandContext) *cobra.Command {
	packetCmd := &cobra.Command{
		Use:   "packet",
		Short: "Extract and select ingest packets",
	}

	packetCmd.AddCommand(newPacketGetCommand(ctx))
	packetCmd.AddCommand(newPacketSelectCommand(ctx))

	return packetCmd
}

// newPacketGetCommand scans one tracker issue thread and emits the winning
// embedded packet: the last block of the thread that carries one.
func newPacketGetCommand(ctx *commandContext) *cobra.Command {
	var issueID int
	var annotate bool
	var output string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Extract the current packet from a tracker issue thread",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.trackerClient()
			if err != nil {
				return err
			}
			if client == nil {
				return fmt.Errorf("packet get needs a configured tracker (set tracker.base_url)")
			}

			thread := tracker.NewThread(cmd.Context(), client, issueID, client.IssueResource(issueID))
			candidate, err := packet.Scan(thread)
			if err != nil {
				return err
			}
			cfg, _ := ctx.ensureConfig()
			candidate.Provenance.Carrier = cfg.Tracker.BaseURL

			view := candidate.Packet
			if annotate {
				view = bus.Attach(view, candidate.Provenance)
			}
			encoding, err := parseEncoding(output)
			if err != nil {
				return err
			}
			return writeObject(cmd, view.Object(), encoding)
		},
	}

	cmd.Flags().IntVarP(&issueID, "issue", "i", 0, "Issue number carrying the ingest thread")
	cmd.Flags().BoolVar(&annotate, "annotate", false, "Embed provenance so a downstream select can notify back")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output encoding (json, pretty, table, plain, or a MIME name)")
	cmd.MarkFlagRequired("issue")
	return cmd
}

// newPacketSelectCommand reads newline-delimited packet candidates from stdin
// and emits exactly the winner, or fails NotFound on an empty stream.
func newPacketSelectCommand(ctx *commandContext) *cobra.Command {
	var carrier string
	var annotate bool
	var output string

	cmd := &cobra.Command{
		Use:         "select",
		Short:       "Select one packet from a candidate stream on stdin",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			winner, err := bus.Select(cmd.InOrStdin(), carrier)
			if err != nil {
				return err
			}

			view := winner.Packet
			if annotate {
				view = bus.Attach(view, winner.Provenance)
			}
			encoding, err := parseEncoding(output)
			if err != nil {
				return err
			}
			return writeObject(cmd, view.Object(), encoding)
		},
	}

	cmd.Flags().StringVar(&carrier, "carrier", "stdin", "Carrier recorded for candidates with no embedded provenance")
	cmd.Flags().BoolVar(&annotate, "annotate", false, "Keep provenance embedded in the emitted packet")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output encoding (json, pretty, table, plain, or a MIME name)")
	return cmd
}
