// Command spatialgo drives the dataset pipeline: convert JSON imports to a
// binary batch, build a batch into an indexed dataset file, and run queries
// against built datasets.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/hupe1980/spatialgo"
	"github.com/hupe1980/spatialgo/blobstore"
	"github.com/hupe1980/spatialgo/blobstore/s3"
	"github.com/hupe1980/spatialgo/codec"
	"github.com/hupe1980/spatialgo/space"
	"github.com/hupe1980/spatialgo/storage"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "convert":
		err = runConvert(os.Args[2:])
	case "build":
		err = runBuild(os.Args[2:])
	case "query":
		err = runQuery(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "spatialgo:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: spatialgo <command> [flags]

commands:
  convert   parse JSON space and feature definitions into a binary batch
  build     index a binary batch into a dataset file
  query     run a query against built dataset files

run 'spatialgo <command> -h' for the flags of a command`)
}

// storeFor resolves a -store flag: an s3://bucket/prefix URL selects the S3
// backend with ambient AWS credentials, anything else is a local directory.
func storeFor(ctx context.Context, spec string) (blobstore.BlobStore, error) {
	if rest, ok := strings.CutPrefix(spec, "s3://"); ok {
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return nil, fmt.Errorf("store %q: missing bucket", spec)
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("aws config: %w", err)
		}
		return s3.NewStore(awss3.NewFromConfig(cfg), bucket, prefix), nil
	}
	return blobstore.NewLocalStore(spec)
}

func logger(verbose bool) *spatialgo.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return spatialgo.NewTextLogger(level)
}

func runConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	spacesPath := fs.String("spaces", "", "JSON file with reference space definitions")
	featuresPath := fs.String("features", "", "JSON file with features")
	title := fs.String("title", "", "dataset title")
	version := fs.String("version", "", "dataset version")
	out := fs.String("out", "", "output batch file")
	compression := fs.String("compression", "lz4", "batch compression: none, lz4 or zstd")
	fs.Parse(args)

	if *spacesPath == "" || *featuresPath == "" || *title == "" || *out == "" {
		return fmt.Errorf("convert: -spaces, -features, -title and -out are required")
	}
	comp, err := parseCompression(*compression)
	if err != nil {
		return err
	}

	spacesData, err := os.ReadFile(*spacesPath)
	if err != nil {
		return err
	}
	featuresData, err := os.ReadFile(*featuresPath)
	if err != nil {
		return err
	}

	spaces, err := storage.ParseSpaces(spacesData, nil)
	if err != nil {
		return err
	}
	records, err := storage.ParseFeatures(featuresData, nil)
	if err != nil {
		return err
	}

	batch := storage.Convert(*title, *version, spaces, records)
	data, err := batch.Encode(codec.Default, comp)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return err
	}

	fmt.Printf("converted %d records in %d spaces to %s (%d bytes)\n",
		len(records), len(spaces), *out, len(data))
	return nil
}

func runBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	in := fs.String("in", "", "input batch file")
	storeDir := fs.String("store", ".", "dataset store: a directory or s3://bucket/prefix")
	name := fs.String("name", "", "dataset file name in the store")
	maxElements := fs.Int("max-elements", 0, "generate coarser resolutions down to this entry count")
	curveBits := fs.Int("curve-bits", 0, "per-axis curve precision override")
	verbose := fs.Bool("v", false, "verbose logging")
	fs.Parse(args)

	if *in == "" || *name == "" {
		return fmt.Errorf("build: -in and -name are required")
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		return err
	}
	batch, err := storage.DecodeBatch(data)
	if err != nil {
		return err
	}

	ctx := context.Background()
	opts := []spatialgo.Option{spatialgo.WithLogger(logger(*verbose))}
	if *maxElements > 0 {
		opts = append(opts, spatialgo.WithMaxElements(*maxElements))
	}
	if *curveBits > 0 {
		opts = append(opts, spatialgo.WithCurveBits(*curveBits))
	}

	core, err := batch.Build(ctx, opts...)
	if err != nil {
		return err
	}

	store, err := storeFor(ctx, *storeDir)
	if err != nil {
		return err
	}
	if err := core.Save(ctx, store, *name); err != nil {
		return err
	}

	fmt.Printf("built dataset %q (%s) into %s\n", core.Title(), core.Version(), *name)
	return nil
}

func runQuery(args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	storeDir := fs.String("store", ".", "dataset store: a directory or s3://bucket/prefix")
	names := fs.String("names", "", "comma-separated dataset file names")
	dataset := fs.String("dataset", "", "dataset title to query (default: the only loaded one)")
	id := fs.String("id", "", "look up all positions of this object")
	label := fs.String("label", "", "use this object's positions as the search volume")
	spaceName := fs.String("space", space.UniverseName, "query space")
	center := fs.String("center", "", "sphere query center, comma-separated coordinates")
	radius := fs.Float64("radius", 0, "sphere query radius")
	output := fs.String("output", "", "convert results into this space")
	verbose := fs.Bool("v", false, "verbose logging")
	fs.Parse(args)

	if *names == "" {
		return fmt.Errorf("query: -names is required")
	}

	ctx := context.Background()
	store, err := storeFor(ctx, *storeDir)
	if err != nil {
		return err
	}
	db, err := spatialgo.Load(ctx, store, strings.Split(*names, ","),
		spatialgo.WithLogger(logger(*verbose)))
	if err != nil {
		return err
	}
	defer db.Close()

	core, err := pickCore(db, *dataset)
	if err != nil {
		return err
	}

	params := spatialgo.QueryParams{OutputSpace: *output}

	var items []spatialgo.Item
	switch {
	case *id != "":
		items, err = core.GetByID(ctx, params, *id)
	case *label != "":
		items, err = core.GetByLabel(ctx, params, *label)
	case *center != "":
		c, err := parsePoint(*center)
		if err != nil {
			return err
		}
		items, err = core.GetByShape(ctx, params, *spaceName, space.HyperSphere(c, *radius))
		if err != nil {
			return err
		}
		printItems(items)
		return nil
	default:
		return fmt.Errorf("query: one of -id, -label or -center is required")
	}
	if err != nil {
		return err
	}

	printItems(items)
	return nil
}

func pickCore(db *spatialgo.Database, title string) (*spatialgo.Core, error) {
	if title != "" {
		return db.Core(title)
	}
	cores := db.Cores()
	if len(cores) != 1 {
		return nil, fmt.Errorf("query: %d datasets loaded, select one with -dataset", len(cores))
	}
	return cores[0], nil
}

func printItems(items []spatialgo.Item) {
	for _, it := range items {
		fmt.Printf("%s\t%s\t%s\t%s\n", it.ID, it.Kind, it.Space, it.Position)
	}
	fmt.Printf("%d results\n", len(items))
}

func parseCompression(s string) (storage.Compression, error) {
	switch s {
	case "none":
		return storage.CompressionNone, nil
	case "lz4":
		return storage.CompressionLZ4, nil
	case "zstd":
		return storage.CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("unknown compression %q (none, lz4, zstd)", s)
	}
}

func parsePoint(s string) (space.Point, error) {
	parts := strings.Split(s, ",")
	p := make(space.Point, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("coordinate %q: %w", part, err)
		}
		p[i] = v
	}
	return p, nil
}
