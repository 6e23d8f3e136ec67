package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/CJohnsonADAH/adpn-cli/internal/adpnerr"
	"github.com/CJohnsonADAH/adpn-cli/internal/overlay"
	"github.com/CJohnsonADAH/adpn-cli/internal/packet"
)

// newJSONCommand merges JSON fragments from stdin into one object and renders
// it in the negotiated output encoding. Lines that carry the packet signature
// contribute their JSON body; prose lines pass through unmatched.
func newJSONCommand(ctx *commandContext) *cobra.Command {
	var keys []string
	var output string
	var template string
	var literal bool

	cmd := &cobra.Command{
		Use:         "json",
		Short:       "Merge JSON fragments from stdin into one object",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}

			var fragments []string
			if literal {
				fragments = []string{string(input)}
			} else {
				fragments = packet.ExtractFragments(string(input))
			}
			if len(fragments) == 0 {
				return adpnerr.Wrap(adpnerr.ErrNotFound, "json", "merge", "no JSON fragments on stdin", nil)
			}

			merged, err := overlay.Merge(fragments)
			if err != nil {
				return err
			}

			if template != "" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), merged.Template(template))
				return err
			}

			view := merged
			if len(keys) > 0 {
				view = overlay.Object{}
				for _, key := range keys {
					value, ok := merged.Get(key)
					if !ok {
						return adpnerr.Wrap(adpnerr.ErrNotFound, "json", "key", key, nil)
					}
					view[key] = value
				}
			}

			encoding, err := parseEncoding(output)
			if err != nil {
				return err
			}
			return writeObject(cmd, view, encoding)
		},
	}

	cmd.Flags().StringArrayVarP(&keys, "key", "k", nil, "Project only the named dot-path keys")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output encoding (json, pretty, table, plain, or a MIME name)")
	cmd.Flags().StringVarP(&template, "template", "t", "", "Render via a %(key)s template instead of an encoding")
	cmd.Flags().BoolVar(&literal, "literal", false, "Treat all of stdin as one JSON document instead of scanning for packet lines")
	return cmd
}
