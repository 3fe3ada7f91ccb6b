package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/endb-go/endb"
)

var (
	// getCmd represents the get command
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Get the value of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, found, err := db.Get(cmd.Context(), endb.StringKey(args[0]))
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("key %q not found", args[0])
			}
			return printJSON(v)
		},
	}

	// setCmd represents the set command
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Set the value of a key",
		Long: `Set the value of a key.
The value is parsed as JSON if possible, so 42 is stored as number and {"a":1} as object.
Use --string to store it as string as it is.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetBool("string")
			var v any = args[1]
			if !raw {
				var parsed any
				if err := json.Unmarshal([]byte(args[1]), &parsed); err == nil {
					v = parsed
				}
			}
			if err := db.Set(cmd.Context(), endb.StringKey(args[0]), v); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}

	// deleteCmd represents the delete command
	deleteCmd = &cobra.Command{
		Use:     "delete [key]",
		Aliases: []string{"del"},
		Short:   "Delete a key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deleted, err := db.Delete(cmd.Context(), endb.StringKey(args[0]))
			if err != nil {
				return err
			}
			fmt.Println(deleted)
			return nil
		},
	}

	hasCmd = &cobra.Command{
		Use:   "has [key]",
		Short: "Check whether a key has a value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := db.Has(cmd.Context(), endb.StringKey(args[0]))
			if err != nil {
				return err
			}
			fmt.Println(found)
			return nil
		},
	}

	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete all keys of the namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := db.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("cleared successfully")
			return nil
		},
	}

	allCmd = &cobra.Command{
		Use:   "all",
		Short: "Print all key-value pairs of the namespace as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			all, err := db.All(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(all)
		},
	}

	findCmd = &cobra.Command{
		Use:   "find [prefix]",
		Short: "Print the key-value pairs whose key starts with the prefix as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := db.Find(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(found)
		},
	}

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Export the namespace as JSON document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := db.Export(cmd.Context())
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(append(data, '\n'))
			return err
		},
	}

	adaptersCmd = &cobra.Command{
		Use:   "adapters",
		Short: "List the supported connection string schemes",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Println(strings.Join(endb.Adapters(), "\n"))
		},
	}
)

func init() {
	setCmd.Flags().Bool("string", false, "store the value as string instead of parsing it as JSON")
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
