package main

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/CJohnsonADAH/adpn-cli/internal/adpnerr"
	"github.com/CJohnsonADAH/adpn-cli/internal/bus"
	"github.com/CJohnsonADAH/adpn-cli/internal/ingest"
	"github.com/CJohnsonADAH/adpn-cli/internal/packet"
	"github.com/CJohnsonADAH/adpn-cli/internal/resolve"
	"github.com/CJohnsonADAH/adpn-cli/internal/tracker"
)

// newIngestCommand selects one packet (from a tracker thread or the stdin
// candidate stream), resolves the target peer, and loads the packet into the
// titles database. On success the originating thread is notified.
func newIngestCommand(ctx *commandContext) *cobra.Command {
	var issueID int
	var peerFlag string
	var dbPath string
	var echoSQL bool
	var carrier string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load a packet into the titles database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			candidate, client, err := selectCandidate(cmd, ctx, issueID, carrier)
			if err != nil {
				return err
			}

			env, err := ctx.resolveEnv()
			if err != nil {
				return err
			}
			peer, err := resolvePeer(cmd.Context(), env, peerFlag, cfg.Ingest.DefaultPeer)
			if err != nil {
				return err
			}

			path := dbPath
			if path == "" {
				path = cfg.Ingest.TitlesDBPath
			}
			db, err := ingest.OpenTitlesDB(path, ctx.ensureLogger())
			if err != nil {
				return err
			}
			defer db.Close()
			if echoSQL || cfg.Ingest.EchoSQL {
				db.Echo = cmd.OutOrStdout()
			}

			pipeline := &bus.Bus{
				Loader:   db,
				Notifier: newThreadNotifier(client),
				Logger:   ctx.ensureLogger(),
			}
			params := map[string]string{}
			if peer != "" {
				params["peer"] = peer
			}
			if _, err := pipeline.Forward(cmd.Context(), candidate, params); err != nil {
				return err
			}

			title, _ := candidate.Packet.Get("title")
			fmt.Fprintf(cmd.OutOrStdout(), "Ingested %q for peer %s\n", title, peer)
			return nil
		},
	}

	cmd.Flags().IntVarP(&issueID, "issue", "i", 0, "Take the packet from this tracker issue instead of stdin")
	cmd.Flags().StringVar(&peerFlag, "peer", "", "Peer node to assign the title to")
	cmd.Flags().StringVar(&dbPath, "db", "", "Titles database path (defaults to ingest.titlesdb_path)")
	cmd.Flags().BoolVar(&echoSQL, "echo-sql", false, "Echo applied SQL to stdout")
	cmd.Flags().StringVar(&carrier, "carrier", "stdin", "Carrier recorded for candidates with no embedded provenance")
	return cmd
}

func selectCandidate(cmd *cobra.Command, ctx *commandContext, issueID int, carrier string) (packet.Candidate, tracker.Client, error) {
	client, err := ctx.trackerClient()
	if err != nil {
		return packet.Candidate{}, nil, err
	}

	if issueID > 0 {
		if client == nil {
			return packet.Candidate{}, nil, fmt.Errorf("--issue needs a configured tracker (set tracker.base_url)")
		}
		httpClient := client
		thread := tracker.NewThread(cmd.Context(), httpClient, issueID, httpClient.IssueResource(issueID))
		candidate, err := packet.Scan(thread)
		if err != nil {
			return packet.Candidate{}, nil, err
		}
		cfg, _ := ctx.ensureConfig()
		candidate.Provenance.Carrier = cfg.Tracker.BaseURL
		return candidate, httpClient, nil
	}

	candidate, err := bus.Select(cmd.InOrStdin(), carrier)
	if err != nil {
		return packet.Candidate{}, nil, err
	}
	if client == nil {
		return candidate, nil, nil
	}
	return candidate, client, nil
}

// resolvePeer walks the standard precedence chain for the target peer:
// explicit switch, session stash, persisted property, configured default.
// An exhausted chain is not fatal (the loader falls back to the packet's own
// peer key); any other resolver failure aborts the pipeline step.
func resolvePeer(cmdCtx context.Context, env *resolve.Env, peerFlag, defaultPeer string) (string, error) {
	chain := []resolve.Source{
		resolve.Literal{Name: "--peer", Value: peerFlag},
		resolve.StashValue{Key: "peer"},
		resolve.Property{Key: "peer"},
		resolve.Default{Value: defaultPeer},
	}
	peer, err := resolve.Resolve(cmdCtx, env, chain)
	if err != nil {
		if errors.Is(err, adpnerr.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return peer, nil
}

var issueResourcePattern = regexp.MustCompile(`issues/(\d+)`)

// threadNotifier posts the ingest outcome back to the issue named in the
// winning packet's provenance.
type threadNotifier struct {
	client tracker.Client
}

func newThreadNotifier(client tracker.Client) bus.Notifier {
	if client == nil {
		return nil
	}
	return &threadNotifier{client: client}
}

func (n *threadNotifier) NotifyIngested(ctx context.Context, prov packet.Provenance, summary string) error {
	groups := issueResourcePattern.FindStringSubmatch(prov.Resource)
	if groups == nil {
		return nil
	}
	issueID, err := strconv.Atoi(groups[1])
	if err != nil {
		return nil
	}
	body := "Ingested into the titles database."
	if summary != "" {
		body = fmt.Sprintf("Ingested %q into the titles database.", summary)
	}
	return n.client.PostNote(ctx, issueID, body)
}
