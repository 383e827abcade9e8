package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/drstein77/furniturepredictor/internal/compress"
	"github.com/drstein77/furniturepredictor/internal/pipeline"
	"github.com/drstein77/furniturepredictor/internal/predictor"
	"github.com/drstein77/furniturepredictor/internal/report"
)

const defaultWorkers = 4

var errSomeFilesFailed = errors.New("one or more files failed")

type fileResult struct {
	path   string
	result *pipeline.Result
	err    error
}

func predictCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	fs.SetOutput(stderr)
	modelPath := fs.String("model", os.Getenv("MODEL_PATH"), "path to the model artifact")
	blobURL := fs.String("model-blob", os.Getenv("MODEL_BLOB_URL"), "blob URL of the model artifact")
	rulesPath := fs.String("rules", os.Getenv("RULES_PATH"), "path to a YAML pipeline rules file")
	workers := fs.Int("workers", defaultWorkers, "files processed at once")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("predict: no input files")
	}

	rules := pipeline.DefaultRules()
	if *rulesPath != "" {
		var err error
		if rules, err = pipeline.LoadRules(*rulesPath); err != nil {
			return err
		}
	}

	model, err := predictor.Load(ctx, predictor.Source{
		Path:             *modelPath,
		BlobURL:          *blobURL,
		ConnectionString: os.Getenv("MODEL_BLOB_CONNECTION_STRING"),
	})
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}

	p, err := pipeline.New(model, rules)
	if err != nil {
		return err
	}

	results := predictFiles(ctx, p, fs.Args(), max(1, *workers))

	failed := false
	for _, r := range results {
		if r.err != nil {
			failed = true
			fmt.Fprintf(stderr, "%s: %s: %v\n", r.path, pipeline.KindOf(r.err), r.err)
			continue
		}
		fmt.Fprintf(stdout, "%s (rows read %d, valid %d, matched %d)\n\n",
			r.path, r.result.RowsRead, r.result.RowsValid, r.result.RowsMatched)
		fmt.Fprintln(stdout, report.Ranking(r.result.Items))
	}
	if failed {
		return errSomeFilesFailed
	}
	return nil
}

// predictFiles runs p on every file with at most workers files open at once.
// Results keep the order of paths.
func predictFiles(ctx context.Context, p *pipeline.Pipeline, paths []string, workers int) []fileResult {
	results := make([]fileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			res, err := predictFile(gctx, p, path)
			results[i] = fileResult{path: path, result: res, err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func predictFile(ctx context.Context, p *pipeline.Pipeline, path string) (*pipeline.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	name, rc, err := compress.Unwrap(filepath.Base(path), f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrInvalidInput, err)
	}
	defer rc.Close()

	ds, err := pipeline.Read(name, rc)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, ds)
}
