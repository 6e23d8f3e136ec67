package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CJohnsonADAH/adpn-cli/internal/overlay"
)

// encodingAliases maps the short --output spellings onto MIME-named
// encodings. The MIME names themselves are also accepted.
var encodingAliases = map[string]overlay.Encoding{
	"json":   overlay.EncodingJSON,
	"pretty": overlay.EncodingPretty,
	"table":  overlay.EncodingTable,
	"plain":  overlay.EncodingPlain,
}

func parseEncoding(value string) (overlay.Encoding, error) {
	if value == "" {
		return overlay.EncodingJSON, nil
	}
	if enc, ok := encodingAliases[value]; ok {
		return enc, nil
	}
	switch enc := overlay.Encoding(value); enc {
	case overlay.EncodingJSON, overlay.EncodingPretty, overlay.EncodingTable, overlay.EncodingPlain:
		return enc, nil
	}
	return "", fmt.Errorf("unsupported output encoding %q", value)
}

// writeObject renders obj in the negotiated encoding on the command's stdout,
// newline-terminated so the output is pipeline-safe.
func writeObject(cmd *cobra.Command, obj overlay.Object, encoding overlay.Encoding) error {
	rendered, err := obj.Encode(encoding)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(rendered) == 0 || rendered[len(rendered)-1] != '\n' {
		rendered += "\n"
	}
	_, err = fmt.Fprint(out, rendered)
	return err
}
