package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"edurag/internal/ai"
	"edurag/internal/app"
	"edurag/internal/bootstrap"
	"edurag/internal/chunker"
	"edurag/internal/config"
	"edurag/internal/model"
)

const previewWidth = 60

func runChunk(out io.Writer, path string, size, overlap int, asJSON bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s failed: %w", path, err)
	}
	ch := chunker.New(chunker.WithChunkSize(size), chunker.WithOverlap(overlap))
	drafts := ch.Chunk(string(data), model.ChunkMetadata{FileName: path})

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(drafts)
	}

	fmt.Fprintf(out, "%d chunks (size %d, overlap %d)\n", len(drafts), ch.ChunkSize(), ch.Overlap())
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tSIZE\tSENTENCES\tTEXT")
	for _, d := range drafts {
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\n", d.Index, d.Size, d.Metadata.SentenceCount, preview(d.Text))
	}
	return w.Flush()
}

func runPing(ctx context.Context, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	provider, err := ai.NewProvider(bootstrap.EmbeddingConfig(cfg.Embedding), bootstrap.NewLogger(cfg.Log))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	fmt.Fprintf(out, "provider: %s\nmodel:    %s\n", provider.Name(), provider.Model())
	if err := ai.Ping(ctx, provider); err != nil && !errors.Is(err, ai.ErrPingUnsupported) {
		return fmt.Errorf("embedding backend unreachable: %w", err)
	}
	started := time.Now()
	vec, err := provider.Embed(ctx, "ping")
	if err != nil {
		return fmt.Errorf("embed probe failed: %w", err)
	}
	fmt.Fprintf(out, "dimensions: %d (configured %d)\nlatency:  %s\n", len(vec), provider.Dimensions(), time.Since(started).Round(time.Millisecond))
	return nil
}

func runSearch(ctx context.Context, out io.Writer, in app.SearchInput) error {
	a, err := bootstrap.New(ctx, bootstrap.WithoutWorker())
	if err != nil {
		return err
	}
	defer closeApp(a)

	results, err := a.Pipeline.AnswerQuery(ctx, in)
	if err != nil {
		return err
	}
	return printResults(out, results)
}

func runReprocess(ctx context.Context, out io.Writer, documentID uint) error {
	a, err := bootstrap.New(ctx, bootstrap.WithoutWorker())
	if err != nil {
		return err
	}
	defer closeApp(a)

	result, err := a.Documents.ProcessStored(ctx, documentID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "document %d: %d chunks, %d embedded\n", documentID, result.ChunksProcessed, result.EmbeddedChunks)
	if result.PartialFailure {
		fmt.Fprintf(out, "chunks without embedding: %v\n", result.FailedChunks)
	}
	return nil
}

func printResults(out io.Writer, results []model.SimilarityResult) error {
	if len(results) == 0 {
		fmt.Fprintln(out, "no matching chunks")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SIMILARITY\tDOCUMENT\tCHUNK\tTEXT")
	for _, r := range results {
		fmt.Fprintf(w, "%.4f\t%s (#%d)\t%d\t%s\n", r.Similarity, r.DocumentTitle, r.DocumentID, r.ChunkIndex, preview(r.ChunkText))
	}
	return w.Flush()
}

func parseDocumentID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid document id %q", raw)
	}
	return uint(id), nil
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= previewWidth {
		return text
	}
	return string(runes[:previewWidth-3]) + "..."
}

func closeApp(a *bootstrap.App) {
	if err := a.Close(); err != nil {
		slog.Warn("close resources failed", "error", err)
	}
}
