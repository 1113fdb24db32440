package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/neilthomass/kowari"
)

var vectorCmd = &cobra.Command{
	Use:   "vector",
	Short: "Manage vectors within a collection",
}

func parseVectorFlag(s string) ([]float32, error) {
	parts := strings.Split(s, ",")
	out := make([]float32, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", p, err)
		}
		out = append(out, float32(v))
	}
	return out, nil
}

var vectorAddCmd = &cobra.Command{
	Use:   "add <collection>",
	Short: "Add a vector to a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vecStr, _ := cmd.Flags().GetString("vector")
		metaStr, _ := cmd.Flags().GetString("metadata")
		if vecStr == "" {
			return fmt.Errorf("--vector is required")
		}

		data, err := parseVectorFlag(vecStr)
		if err != nil {
			return err
		}

		var metadata []byte
		if metaStr != "" {
			if !json.Valid([]byte(metaStr)) {
				return fmt.Errorf("--metadata must be valid JSON")
			}
			metadata = []byte(metaStr)
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

		v := kowari.NewVector(nil, data, metadata)
		if err := col.Add(ctx, v); err != nil {
			return fmt.Errorf("add vector: %w", err)
		}

		fmt.Printf("vector %s added to %q\n", v.ID, args[0])
		return nil
	},
}

var vectorGetCmd = &cobra.Command{
	Use:   "get <collection> <id>",
	Short: "Get a vector by id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("invalid id: %w", err)
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

		v, ok, err := col.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("get vector: %w", err)
		}
		if !ok {
			return fmt.Errorf("vector %s not found", id)
		}

		if jsonOut {
			data, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("id:       %s\n", v.ID)
		fmt.Printf("data:     %v\n", v.Data)
		fmt.Printf("metadata: %s\n", v.Metadata)
		return nil
	},
}

var vectorDeleteCmd = &cobra.Command{
	Use:   "delete <collection> <id>",
	Short: "Delete a vector by id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("invalid id: %w", err)
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

		if err := col.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete vector: %w", err)
		}

		fmt.Printf("vector %s deleted from %q\n", id, args[0])
		return nil
	},
}

var vectorAllCmd = &cobra.Command{
	Use:   "all <collection>",
	Short: "List every vector in a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		vectors, err := col.All()
		if err != nil {
			return fmt.Errorf("list vectors: %w", err)
		}

		if jsonOut {
			data, _ := json.MarshalIndent(vectors, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		for _, v := range vectors {
			fmt.Printf("%s\t%v\n", v.ID, v.Data)
		}
		return nil
	},
}

func init() {
	vectorAddCmd.Flags().String("vector", "", "Vector values (comma-separated)")
	vectorAddCmd.Flags().String("metadata", "", "Metadata as a JSON object")

	vectorCmd.AddCommand(vectorAddCmd, vectorGetCmd, vectorDeleteCmd, vectorAllCmd)
}
