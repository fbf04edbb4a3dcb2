package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"shoplist-go/pkg/client"
	"shoplist-go/pkg/logger"
)

const defaultServer = "http://localhost:8080"

type cliState struct {
	server  string
	verbose bool
	client  *client.Client
	out     io.Writer
	in      io.Reader
}

func newRootCmd() *cobra.Command {
	state := &cliState{out: os.Stdout, in: os.Stdin}

	root := &cobra.Command{
		Use:           "shopctl",
		Short:         "Command line client for the shared shopping list",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log := logger.NewNop()
			if state.verbose {
				log = logger.New(logger.Options{Output: os.Stderr, Format: "text", Service: "shopctl"})
			}
			c, err := client.New(state.server, client.WithLogger(log))
			if err != nil {
				return err
			}
			state.client = c
			state.out = cmd.OutOrStdout()
			state.in = cmd.InOrStdin()
			return nil
		},
	}

	server := os.Getenv("SHOPLIST_URL")
	if server == "" {
		server = defaultServer
	}
	root.PersistentFlags().StringVar(&state.server, "server", server, "server base URL (env SHOPLIST_URL)")
	root.PersistentFlags().BoolVarP(&state.verbose, "verbose", "v", false, "log client activity to stderr")

	root.AddCommand(
		newListCmd(state),
		newHistoryCmd(state),
		newAddCmd(state),
		newBuyCmd(state),
		newRemoveCmd(state),
		newArchiveCmd(state),
		newClearCmd(state),
		newRestoreCmd(state),
		newWatchCmd(state),
	)
	return root
}

func printList(out io.Writer, list *client.ActiveList) {
	if len(list.Items) == 0 {
		fmt.Fprintln(out, "(list is empty)")
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tQTY\tCATEGORY\tADDED BY\tCOMMENT")
	for _, item := range list.Items {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n", item.ID, item.Name, item.Quantity, item.Category, item.AddedBy, item.Comment)
	}
	_ = w.Flush()
}

func printHistory(out io.Writer, history []client.HistoryEntry) {
	if len(history) == 0 {
		fmt.Fprintln(out, "(no history)")
		return
	}
	for _, entry := range history {
		fmt.Fprintf(out, "%s  completed %s  (%d items)\n", entry.ID, entry.CompletedAt.Local().Format(time.DateTime), len(entry.Items))
		for _, item := range entry.Items {
			fmt.Fprintf(out, "    %s x%d [%s]\n", item.Name, item.Quantity, item.Category)
		}
	}
}
