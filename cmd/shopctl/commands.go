package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"shoplist-go/pkg/client"
)

func newListCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show the active list",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := state.client.ActiveList(cmd.Context())
			if err != nil {
				return err
			}
			printList(state.out, list)
			return nil
		},
	}
}

func newHistoryCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show archived entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := state.client.History(cmd.Context())
			if err != nil {
				return err
			}
			printHistory(state.out, history)
			return nil
		},
	}
}

func itemFlags(cmd *cobra.Command, item *client.NewItem) {
	cmd.Flags().IntVarP(&item.Quantity, "qty", "q", 1, "quantity")
	cmd.Flags().StringVarP(&item.Category, "category", "c", "", "category (default general)")
	cmd.Flags().StringVar(&item.AddedBy, "by", "", "who is adding the item (required)")
	cmd.Flags().StringVar(&item.Comment, "comment", "", "free-form note")
	_ = cmd.MarkFlagRequired("by")
}

func newAddCmd(state *cliState) *cobra.Command {
	var item client.NewItem
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an item to the active list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item.Name = strings.Join(args, " ")
			list, err := state.client.AddItem(cmd.Context(), item)
			if err != nil {
				return err
			}
			printList(state.out, list)
			return nil
		},
	}
	itemFlags(cmd, &item)
	return cmd
}

func newRestoreCmd(state *cliState) *cobra.Command {
	var item client.NewItem
	cmd := &cobra.Command{
		Use:   "restore <name>",
		Short: "Re-insert a previously removed item",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item.Name = strings.Join(args, " ")
			list, err := state.client.RestoreItem(cmd.Context(), item)
			if err != nil {
				return err
			}
			printList(state.out, list)
			return nil
		},
	}
	itemFlags(cmd, &item)
	return cmd
}

func newBuyCmd(state *cliState) *cobra.Command {
	var window time.Duration
	cmd := &cobra.Command{
		Use:   "buy <itemId>",
		Short: "Mark an item purchased, with a short undo window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store := client.NewUndoStore(client.WithUndoWindow(window))
			sweepCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			go store.Run(sweepCtx)

			undoID, list, err := state.client.PurchaseWithUndo(ctx, store, args[0])
			if err != nil {
				return err
			}
			printList(state.out, list)
			if window <= 0 {
				return nil
			}

			fmt.Fprintf(state.out, "purchased. type u and press enter within %s to undo\n", window)
			if !waitForUndo(ctx, state, window) {
				return nil
			}
			undone, err := store.Undo(ctx, undoID)
			if err != nil {
				return fmt.Errorf("undo: %w", err)
			}
			if !undone {
				fmt.Fprintln(state.out, "undo window expired")
				return nil
			}
			fmt.Fprintln(state.out, "restored")
			return nil
		},
	}
	cmd.Flags().DurationVar(&window, "undo-window", client.DefaultUndoWindow, "how long the purchase can be undone (0 disables)")
	return cmd
}

func waitForUndo(ctx context.Context, state *cliState, window time.Duration) bool {
	answers := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(state.in).ReadString('\n')
		answers <- strings.TrimSpace(line)
	}()

	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case answer := <-answers:
		return strings.EqualFold(answer, "u")
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

func newRemoveCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <itemId>",
		Aliases: []string{"delete"},
		Short:   "Remove an item without archiving it",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := state.client.DeleteItem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printList(state.out, list)
			return nil
		},
	}
}

func newArchiveCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Move the whole active list into history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := state.client.ArchiveList(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(state.out, "archived %d items as %s\n", len(entry.Items), entry.ID)
			return nil
		},
	}
}

func newClearCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the active list without archiving",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := state.client.ClearList(cmd.Context())
			if err != nil {
				return err
			}
			printList(state.out, list)
			return nil
		},
	}
}

func newWatchCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print list and history changes as they happen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(state.out, "watching for changes, ctrl-c to stop")
			return state.client.Subscribe(cmd.Context(), func(e client.Event) {
				switch e.Event {
				case client.EventListUpdated:
					list, err := e.ActiveList()
					if err != nil {
						fmt.Fprintln(state.out, "bad event:", err)
						return
					}
					fmt.Fprintf(state.out, "-- list updated at %s\n", list.LastModified.Local().Format(time.TimeOnly))
					printList(state.out, list)
				case client.EventHistoryUpdated:
					history, err := e.History()
					if err != nil {
						fmt.Fprintln(state.out, "bad event:", err)
						return
					}
					fmt.Fprintf(state.out, "-- history updated (%d entries)\n", len(history))
				default:
					fmt.Fprintf(state.out, "-- %s\n", e.Event)
				}
			})
		},
	}
}
