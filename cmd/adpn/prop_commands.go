package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPropCommand(ctx *commandContext) *cobra.Command {
	propCmd := &cobra.Command{
		Use:   "prop",
		Short: "Persisted project properties",
	}

	propCmd.AddCommand(newPropGetCommand(ctx))
	propCmd.AddCommand(newPropSetCommand(ctx))
	propCmd.AddCommand(newPropUndoCommand(ctx))
	propCmd.AddCommand(newPropListCommand(ctx))

	return propCmd
}

func newPropGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Read one property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.propsStore()
			if err != nil {
				return err
			}
			value, err := store.Get(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), value)
			return err
		},
	}
}

func newPropSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Assign one property, backing up the previous state",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.propsStore()
			if err != nil {
				return err
			}
			return store.Set(args[0], args[1])
		},
	}
}

func newPropUndoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Swap the property file with its backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.propsStore()
			if err != nil {
				return err
			}
			if err := store.Undo(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s from %s\n", store.Path(), store.BackupPath())
			return nil
		},
	}
}

func newPropListCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all properties",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.propsStore()
			if err != nil {
				return err
			}
			content, err := store.All()
			if err != nil {
				return err
			}

			if output == "" || output == "table" {
				rows := make([][]string, 0, len(content))
				for _, key := range content.Keys() {
					value, _ := content.GetString(key)
					rows = append(rows, []string{key, value})
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Key", "Value"}, rows))
				return err
			}

			encoding, err := parseEncoding(output)
			if err != nil {
				return err
			}
			return writeObject(cmd, content, encoding)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output encoding (table by default; json, pretty, plain, or a MIME name)")
	return cmd
}
