package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <collection>",
	Short: "Find the top-k vectors nearest a query vector",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vecStr, _ := cmd.Flags().GetString("vector")
		topK, _ := cmd.Flags().GetInt("top-k")
		if vecStr == "" {
			return fmt.Errorf("--vector is required")
		}
		if topK <= 0 {
			return fmt.Errorf("--top-k must be positive")
		}

		query, err := parseVectorFlag(vecStr)
		if err != nil {
			return err
		}

		mgr, err := openManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		ctx := context.Background()
		col, err := mgr.Open(ctx, args[0])
		if err != nil {
			return fmt.Errorf("open collection: %w", err)
		}

		results, err := col.SearchWithScores(ctx, query, topK)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}

		if jsonOut {
			data, _ := json.MarshalIndent(results, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		for _, r := range results {
			fmt.Printf("%s\t%.6f\t%v\n", r.Vector.ID, r.Score, r.Vector.Data)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().String("vector", "", "Query vector values (comma-separated)")
	searchCmd.Flags().Int("top-k", 10, "Number of nearest neighbours to return")
}
