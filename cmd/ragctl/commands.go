package main

import (
	"github.com/spf13/cobra"

	"edurag/internal/app"
	"edurag/internal/chunker"
)

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ragctl",
		Short:        "Inspect and operate the document retrieval pipeline",
		SilenceUsage: true,
	}
	root.AddCommand(
		buildChunkCmd(),
		buildPingCmd(),
		buildSearchCmd(),
		buildReprocessCmd(),
	)
	return root
}

func buildChunkCmd() *cobra.Command {
	var (
		size    int
		overlap int
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "chunk <file>",
		Short: "Preview how a text file is split into chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChunk(cmd.OutOrStdout(), args[0], size, overlap, asJSON)
		},
	}
	cmd.Flags().IntVar(&size, "size", chunker.DefaultChunkSize, "Chunk size in characters")
	cmd.Flags().IntVar(&overlap, "overlap", chunker.DefaultChunkOverlap, "Overlap carried into the next chunk")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print chunks as JSON")
	return cmd
}

func buildPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the configured embedding backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPing(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func buildSearchCmd() *cobra.Command {
	var (
		threshold float64
		limit     int
		ownerID   uint
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank stored chunks against a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := app.SearchInput{Query: args[0], Threshold: threshold, MaxResults: limit}
			if ownerID != 0 {
				in.OwnerID = &ownerID
			}
			return runSearch(cmd.Context(), cmd.OutOrStdout(), in)
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", app.DefaultSearchThreshold, "Minimum similarity (0-1)")
	cmd.Flags().IntVar(&limit, "limit", app.DefaultMaxResults, "Maximum number of results")
	cmd.Flags().UintVar(&ownerID, "owner", 0, "Only search documents of this user id")
	return cmd
}

func buildReprocessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reprocess <document-id>",
		Short: "Rebuild the chunks and embeddings of a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDocumentID(args[0])
			if err != nil {
				return err
			}
			return runReprocess(cmd.Context(), cmd.OutOrStdout(), id)
		},
	}
}
