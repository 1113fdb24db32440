// Command kowari is a thin CLI wrapper over the public collection and
// vector operations of spec.md §6. It holds no storage logic of its own;
// every subcommand opens a manager rooted at --base-dir and calls straight
// through to pkg/collection.
package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/neilthomass/kowari"
	"github.com/neilthomass/kowari/pkg/collection"
)

var (
	baseDir string
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:   "kowari",
	Short: "CLI for the kowari embedded vector database",
	Long:  `A command-line interface for managing collections and vectors in a kowari store.`,
}

func openManager() (*collection.Manager, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory not specified")
	}
	cfg := kowari.DefaultConfig(baseDir)
	return collection.NewManager(cfg)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&baseDir, "base-dir", "d", "./kowari-data", "Base directory holding collections")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output as JSON")

	rootCmd.AddCommand(collectionCmd, vectorCmd, searchCmd, similarityCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
