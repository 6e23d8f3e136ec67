package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CJohnsonADAH/adpn-cli/internal/adpnerr"
	"github.com/CJohnsonADAH/adpn-cli/internal/stash"
)

func newStashCommand(ctx *commandContext) *cobra.Command {
	stashCmd := &cobra.Command{
		Use:   "stash",
		Short: "Session-scoped encrypted scratch storage",
	}

	stashCmd.AddCommand(newStashOpenCommand(ctx))
	stashCmd.AddCommand(newStashCloseCommand(ctx))
	stashCmd.AddCommand(newStashGetCommand(ctx))
	stashCmd.AddCommand(newStashPutCommand(ctx))
	stashCmd.AddCommand(newStashPostCommand(ctx))

	return stashCmd
}

// newStashOpenCommand establishes a stash session and prints the shell export
// block the invoking script evaluates to hand the session to later commands.
func newStashOpenCommand(ctx *commandContext) *cobra.Command {
	var ifNeeded bool
	var keep bool

	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a stash session and print its export block",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			session, err := stash.Open(stash.OpenOptions{
				File:     os.Getenv(stash.EnvFile),
				Key:      os.Getenv(stash.EnvKey),
				IfNeeded: ifNeeded,
				Keep:     keep,
				Dir:      cfg.Paths.StashDir,
				Logger:   ctx.ensureLogger(),
			})
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), session.ExportBlock())
			return err
		},
	}

	cmd.Flags().BoolVar(&ifNeeded, "if-needed", false, "Reuse the session from the environment when it is still valid")
	cmd.Flags().BoolVar(&keep, "keep", false, "Leave the backing file in place at close")
	return cmd
}

// newStashCloseCommand tears down the session from the environment and prints
// the unset block. With --if-needed the backing file is only removed by the
// process that created it.
func newStashCloseCommand(ctx *commandContext) *cobra.Command {
	var ifNeeded bool

	cmd := &cobra.Command{
		Use:         "close",
		Short:       "Close the stash session from the environment",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.sessionFromEnv()
			if err != nil {
				if !errors.Is(err, adpnerr.ErrNotFound) {
					return err
				}
				// Backing file already gone; a repeated close still cleans
				// the environment.
				session = nil
			}
			if session == nil {
				_, err = fmt.Fprint(cmd.OutOrStdout(), stash.UnsetBlock())
				return err
			}

			owns := os.Getenv(stash.EnvClose) == "1"
			if !ifNeeded || owns {
				if err := session.Close(false); err != nil {
					return err
				}
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), stash.UnsetBlock())
			return err
		},
	}

	cmd.Flags().BoolVar(&ifNeeded, "if-needed", false, "Only remove the backing file if this shell created the session")
	return cmd
}

func newStashGetCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "get KEY",
		Short:       "Read one value from the session stash",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := requireSession(ctx)
			if err != nil {
				return err
			}
			value, err := session.Get(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), value)
			return err
		},
	}
	return cmd
}

// newStashPutCommand overlays a JSON fragment onto the stash content. The
// fragment comes from the argument, or from stdin when the argument is "-" or
// absent.
func newStashPutCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "put [FRAGMENT]",
		Short:       "Overlay a JSON fragment onto the session stash",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := requireSession(ctx)
			if err != nil {
				return err
			}

			fragment := ""
			if len(args) == 1 && args[0] != "-" {
				fragment = args[0]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				fragment = strings.TrimSpace(string(data))
			}
			if fragment == "" {
				return adpnerr.Wrap(adpnerr.ErrParse, "stash", "put", "empty fragment", nil)
			}
			return session.Put(fragment)
		},
	}
	return cmd
}

func newStashPostCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "post KEY VALUE",
		Short:       "Store one key-value pair in the session stash",
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := requireSession(ctx)
			if err != nil {
				return err
			}
			return session.Post(args[0], args[1])
		},
	}
	return cmd
}

func requireSession(ctx *commandContext) (*stash.Session, error) {
	session, err := ctx.sessionFromEnv()
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, adpnerr.Wrap(adpnerr.ErrNotFound, "stash", "session",
			"no open session in the environment (run `adpn stash open` and eval its output)", nil)
	}
	return session, nil
}
