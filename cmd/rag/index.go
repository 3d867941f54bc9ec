package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/anjanaaa29/rag-reader/internal/app"
	"github.com/anjanaaa29/rag-reader/internal/indexer"
	"github.com/anjanaaa29/rag-reader/internal/loader"
	"github.com/anjanaaa29/rag-reader/internal/metrics"
	"github.com/anjanaaa29/rag-reader/internal/vectorindex"
)

var (
	indexGitHub bool
	indexAppend bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path...]",
	Short: "Build the vector index from documents",
	Long: `Loads documents, chunks them, embeds every chunk and writes the index
to index.path.

A single directory argument is walked recursively. Any other arguments are
treated as individual files. Supported formats: pdf, docx, txt, csv, json, md.
A "<file>.meta.yaml" sidecar overrides extracted citation metadata.

With --github, documents are read from github.owner/github.repo under
github.path instead. When qdrant.enabled is set, the index is mirrored into
the configured collection.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexGitHub, "github", false, "index the configured GitHub repository")
	indexCmd.Flags().BoolVar(&indexAppend, "append", false, "add to the existing index instead of replacing it")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	start := time.Now()

	l := loader.New(logger)
	src, err := selectSource(args, indexGitHub, l)
	if err != nil {
		return err
	}

	embedder, err := app.NewEmbedder(cfg)
	if err != nil {
		return err
	}
	pipeline, err := app.NewPipeline(cfg, embedder, metrics.New(), logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Indexing %s...\n", src.Name())

	var (
		idx    *vectorindex.Index
		result *indexer.IndexResult
	)
	if indexAppend && app.IndexExists(cfg.Index.Path) {
		idx, err = vectorindex.Load(cfg.Index.Path, vectorindex.WithLogger(logger))
		if err != nil {
			return err
		}
		result, err = pipeline.Append(ctx, idx, src)
	} else {
		idx, result, err = pipeline.Run(ctx, src)
	}
	if result != nil {
		printResult(out, result)
	}
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	if err := idx.Persist(cfg.Index.Path); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}
	fmt.Fprintf(out, "Saved %d chunks to %s\n", idx.Len(), cfg.Index.Path)

	qdrant, err := app.NewQdrant(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	if qdrant != nil {
		defer qdrant.Close()
		fmt.Fprintf(out, "Mirroring into Qdrant collection %s...\n", qdrant.Collection())
		if err := qdrant.Mirror(ctx, idx); err != nil {
			return fmt.Errorf("failed to mirror index: %w", err)
		}
	}

	fmt.Fprintf(out, "\nTotal time: %s\n", time.Since(start).Round(time.Second))
	return nil
}

// selectSource picks the document source for the index command.
func selectSource(args []string, github bool, l *loader.Loader) (indexer.Source, error) {
	if github {
		if len(args) > 0 {
			return nil, fmt.Errorf("--github does not take path arguments")
		}
		return app.NewGitHubSource(cfg, l)
	}
	switch len(args) {
	case 0:
		return nil, fmt.Errorf("nothing to index: pass a directory, files or --github")
	case 1:
		if info, err := os.Stat(args[0]); err == nil && info.IsDir() {
			return indexer.NewDirSource(args[0], l), nil
		}
	}
	return indexer.NewFileSource(args, l), nil
}

func printResult(out io.Writer, result *indexer.IndexResult) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Documents: %d/%d\n", result.SuccessfulDocs, result.TotalDocs)
	fmt.Fprintf(out, "  Chunks: %d\n", result.TotalChunks)
	fmt.Fprintf(out, "  Duration: %s\n", result.Duration.Round(time.Millisecond))
	if result.Revision != "" {
		fmt.Fprintf(out, "  Revision: %s\n", result.Revision)
	}

	if len(result.FailedDocs) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Failed documents:")
		for _, failed := range result.FailedDocs {
			fmt.Fprintf(out, "  - %s: %s\n", failed.Path, failed.Reason)
		}
	}
	fmt.Fprintln(out)
}
