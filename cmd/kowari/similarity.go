package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neilthomass/kowari"
)

var similarityCmd = &cobra.Command{
	Use:   "similarity",
	Short: "Compute the similarity or distance between two vectors",
	RunE: func(cmd *cobra.Command, args []string) error {
		aStr, _ := cmd.Flags().GetString("a")
		bStr, _ := cmd.Flags().GetString("b")
		method, _ := cmd.Flags().GetString("method")
		if aStr == "" || bStr == "" {
			return fmt.Errorf("--a and --b are both required")
		}

		a, err := parseVectorFlag(aStr)
		if err != nil {
			return fmt.Errorf("--a: %w", err)
		}
		b, err := parseVectorFlag(bStr)
		if err != nil {
			return fmt.Errorf("--b: %w", err)
		}
		if len(a) != len(b) {
			return fmt.Errorf("vectors must have equal dimension, got %d and %d", len(a), len(b))
		}

		var score float64
		switch method {
		case "cosine", "":
			score = kowari.Cosine(a, b)
		case "euclidean":
			score = kowari.Euclidean(a, b)
		case "manhattan":
			score = kowari.Manhattan(a, b)
		default:
			return fmt.Errorf("unknown method %q: want cosine, euclidean, or manhattan", method)
		}

		fmt.Printf("%.6f\n", score)
		return nil
	},
}

func init() {
	similarityCmd.Flags().String("a", "", "First vector (comma-separated)")
	similarityCmd.Flags().String("b", "", "Second vector (comma-separated)")
	similarityCmd.Flags().String("method", "cosine", "Similarity method: cosine, euclidean, or manhattan")
}
