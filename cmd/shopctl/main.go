// cmd/shopctl is the CLI entry-point built with Cobra, generalizing
// cmd/client's original (kvcli) command set from a flat key/value
// store to ShopSync's shopping lists.
//
// Usage:
//
//	shopctl create "Groceries"                             --router http://localhost:8080
//	shopctl add <list-id> Milk 2                            --router http://localhost:8080
//	shopctl get <list-id>                                   --router http://localhost:8080
//	shopctl rm <list-id> Milk                                --router http://localhost:8080
//	shopctl delete <list-id>                                 --router http://localhost:8080
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"shopsync/internal/client"
	"shopsync/internal/shoppinglist"
)

var (
	routers []string
	timeout time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "shopctl",
		Short: "CLI client for ShopSync",
	}

	root.PersistentFlags().StringSliceVarP(&routers, "router", "r",
		[]string{"http://localhost:8080"}, "router address(es), tried in order")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second,
		"request timeout")

	root.AddCommand(createCmd(), addCmd(), removeCmd(), getCmd(), deleteCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient() (*client.Client, error) {
	return client.NewHTTP(timeout, routers...)
}

func createCmd() *cobra.Command {
	var replica string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new shopping list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			list := shoppinglist.New(args[0])
			if err := c.Put(context.Background(), list); err != nil {
				return err
			}
			prettyPrint(list.ToSnapshot())
			return nil
		},
	}
	cmd.Flags().StringVar(&replica, "replica", "shopctl", "replica identity for CRDT operations")
	return cmd
}

func addCmd() *cobra.Command {
	var replica string
	cmd := &cobra.Command{
		Use:   "add <list-id> <item> <quantity>",
		Short: "Add an item to a list",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid list id: %w", err)
			}
			quantity, err := strconv.ParseUint(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid quantity: %w", err)
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			ctx := context.Background()
			list, err := c.Get(ctx, id)
			if err != nil {
				return err
			}
			list, err = list.AddItem(args[1], quantity, replica)
			if err != nil {
				return err
			}
			if err := c.Put(ctx, list); err != nil {
				return err
			}
			prettyPrint(list.ToSnapshot())
			return nil
		},
	}
	cmd.Flags().StringVar(&replica, "replica", "shopctl", "replica identity for CRDT operations")
	return cmd
}

func removeCmd() *cobra.Command {
	var replica string
	cmd := &cobra.Command{
		Use:   "rm <list-id> <item>",
		Short: "Remove an item from a list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid list id: %w", err)
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			ctx := context.Background()
			list, err := c.Get(ctx, id)
			if err != nil {
				return err
			}
			list = list.RemoveItem(args[1], replica)
			if err := c.Put(ctx, list); err != nil {
				return err
			}
			prettyPrint(list.ToSnapshot())
			return nil
		},
	}
	cmd.Flags().StringVar(&replica, "replica", "shopctl", "replica identity for CRDT operations")
	return cmd
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <list-id>",
		Short: "Fetch and print a shopping list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid list id: %w", err)
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			snapshot, err := c.Snapshot(context.Background(), id)
			if err != nil {
				return err
			}
			prettyPrint(snapshot)
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <list-id>",
		Short: "Delete a shopping list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid list id: %w", err)
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			if err := c.Delete(context.Background(), id); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", id)
			return nil
		},
	}
}

func prettyPrint(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(data))
}
