package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage collections",
}

var collectionCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dim, _ := cmd.Flags().GetInt("dimension")
		if dim <= 0 {
			return fmt.Errorf("--dimension is required and must be positive")
		}

		mgr, err := openManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		ctx := context.Background()
		c, err := mgr.Create(ctx, args[0], dim)
		if err != nil {
			return fmt.Errorf("create collection: %w", err)
		}

		fmt.Printf("collection %q created with dimension %d\n", c.Name(), c.Dimension())
		return nil
	},
}

var collectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all collections",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		names, err := mgr.List()
		if err != nil {
			return fmt.Errorf("list collections: %w", err)
		}

		if jsonOut {
			data, _ := json.MarshalIndent(names, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var collectionDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a collection and all its vectors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		if err := mgr.Delete(args[0]); err != nil {
			return fmt.Errorf("delete collection: %w", err)
		}

		fmt.Printf("collection %q deleted\n", args[0])
		return nil
	},
}

var collectionInfoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Show a collection's dimension, vector count, and index kind",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		ctx := context.Background()
		info, err := mgr.Info(ctx, args[0])
		if err != nil {
			return fmt.Errorf("collection info: %w", err)
		}

		if jsonOut {
			data, _ := json.MarshalIndent(info, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("name:       %s\n", info.Name)
		fmt.Printf("dimension:  %d\n", info.Dimension)
		fmt.Printf("count:      %d\n", info.VectorCount)
		fmt.Printf("index kind: %s\n", info.IndexKind)
		return nil
	},
}

var collectionOptimizeCmd = &cobra.Command{
	Use:   "optimize <name>",
	Short: "Compact a collection's KWI container, re-syncing from the side-store if they've drifted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		ctx := context.Background()
		if err := mgr.Optimize(ctx, args[0]); err != nil {
			return fmt.Errorf("optimize collection: %w", err)
		}

		fmt.Printf("collection %q optimized\n", args[0])
		return nil
	},
}

var collectionRepairCmd = &cobra.Command{
	Use:   "repair <name>",
	Short: "Rebuild a collection's KWI container from its metadata side-store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		ctx := context.Background()
		if err := mgr.Repair(ctx, args[0]); err != nil {
			return fmt.Errorf("repair collection: %w", err)
		}

		fmt.Printf("collection %q repaired from its side-store\n", args[0])
		return nil
	},
}

func init() {
	collectionCreateCmd.Flags().Int("dimension", 0, "Vector dimension (required)")

	collectionCmd.AddCommand(
		collectionCreateCmd,
		collectionListCmd,
		collectionDeleteCmd,
		collectionInfoCmd,
		collectionOptimizeCmd,
		collectionRepairCmd,
	)
}
