package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anjanaaa29/rag-reader/internal/vectorindex"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted index",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	idx, err := vectorindex.Load(cfg.Index.Path, vectorindex.WithLogger(logger))
	if err != nil {
		return err
	}

	info := idx.Info()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Index: %s (%s)\n", info.IndexName, cfg.Index.Path)
	fmt.Fprintf(out, "  Embedding model: %s\n", info.EmbeddingModelName)
	fmt.Fprintf(out, "  Dimension: %d\n", info.Dimension)
	fmt.Fprintf(out, "  Documents: %d\n", info.DocumentCount)
	fmt.Fprintf(out, "  Chunks: %d\n", info.ChunkCount)
	fmt.Fprintf(out, "  Created: %s\n", info.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	return nil
}
