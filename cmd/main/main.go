package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/CTAG07/drosera/pkg/corpus"
	"github.com/CTAG07/drosera/pkg/ngram"
	"github.com/CTAG07/drosera/pkg/store"
	"github.com/natefinch/atomic"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

const usage = `drosera - graph-based n-gram model toolkit

usage: drosera [-config path] <command> [flags]

commands:
  train     train a model from a corpus file or stdin
  generate  generate text from a trained model
  export    write a model as a JSON snapshot
  import    read a JSON snapshot into the database
  list      list stored models
  stats     show a model's size
  delete    remove a stored model
  version   print version information
`

func main() {
	configPath := flag.String("config", "./config.json", "path to the config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(2)
	}

	if args[0] == "version" {
		fmt.Printf("drosera %s (%s, built %s)\n", Version, Commit, BuildDate)
		return
	}

	config, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(config.LogLevel)

	if err := os.MkdirAll(config.DataDir, 0755); err != nil {
		logger.Error("could not create data directory", "path", config.DataDir, "error", err)
		os.Exit(1)
	}

	db, err := initDB(config.DatabasePath)
	if err != nil {
		logger.Error("could not open database", "path", config.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func(db *sql.DB) {
		_ = db.Close()
	}(db)

	if err := store.SetupSchema(db); err != nil {
		logger.Error("could not set up schema", "error", err)
		os.Exit(1)
	}

	s, err := store.NewStore(db)
	if err != nil {
		logger.Error("could not create store", "error", err)
		os.Exit(1)
	}
	defer s.Close()
	s.SetLogger(logger)

	app := &app{config: config, store: s, logger: logger}
	ctx := context.Background()

	var runErr error
	switch args[0] {
	case "train":
		runErr = app.train(ctx, args[1:])
	case "generate":
		runErr = app.generate(ctx, args[1:])
	case "export":
		runErr = app.export(ctx, args[1:])
	case "import":
		runErr = app.importSnapshot(ctx, args[1:])
	case "list":
		runErr = app.list(ctx)
	case "stats":
		runErr = app.stats(ctx, args[1:])
	case "delete":
		runErr = app.delete(ctx, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		flag.Usage()
		os.Exit(2)
	}
	if runErr != nil {
		logger.Error("command failed", "command", args[0], "error", runErr)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

type app struct {
	config *Config
	store  *store.Store
	logger *slog.Logger
}

// loadOrCreate loads a stored model by name, or starts a fresh one of the
// given order if nothing is stored under that name yet.
func (a *app) loadOrCreate(ctx context.Context, name string, order int) (*ngram.Model, error) {
	m, err := a.store.Load(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return ngram.NewModel(order)
	}
	if err != nil {
		return nil, err
	}
	if m.Order() != order {
		return nil, fmt.Errorf("stored model '%s' has order %d, configured order is %d", name, m.Order(), order)
	}
	return m, nil
}

func (a *app) train(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	name := fs.String("model", "default", "model name")
	file := fs.String("file", "", "corpus file (default: stdin)")
	order := fs.Int("order", a.config.Order, "n-gram order for a new model")
	_ = fs.Parse(args)

	input := os.Stdin
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			return fmt.Errorf("could not open corpus: %w", err)
		}
		defer func(f *os.File) {
			_ = f.Close()
		}(f)
		input = f
	}

	m, err := a.loadOrCreate(ctx, *name, *order)
	if err != nil {
		return err
	}

	trainer := corpus.NewTrainer(a.config.NewTokenizer())
	trainer.SetLogger(a.logger)
	if err := trainer.Train(m, input); err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	return a.store.Save(ctx, *name, m)
}

func (a *app) generate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	name := fs.String("model", "default", "model name")
	seed := fs.String("seed", "", "seed text; its last order-1 tokens start the walk")
	steps := fs.Int("steps", a.config.MaxSteps, "safety cap on generated tokens (0 = unbounded)")
	_ = fs.Parse(args)

	m, err := a.store.Load(ctx, *name)
	if err != nil {
		return fmt.Errorf("could not load model '%s': %w", *name, err)
	}

	tokenizer := a.config.NewTokenizer()
	prefix, err := seedPrefix(tokenizer, *seed, m.Order()-1)
	if err != nil {
		return err
	}

	sequence, err := m.RandomSequence(prefix, ngram.WithMaxSteps(*steps))
	if errors.Is(err, ngram.ErrDeadEnd) {
		// The partial sequence is still worth printing.
		a.logger.Warn("walk hit a window with no observed suffixes", "generated", len(sequence))
	} else if err != nil {
		return err
	}

	fmt.Println(corpus.Render(tokenizer, sequence))
	return nil
}

// seedPrefix tokenizes seed text and returns its trailing window of n
// tokens.
func seedPrefix(tokenizer corpus.Tokenizer, seed string, n int) ([]string, error) {
	stream := tokenizer.NewStream(strings.NewReader(seed))
	var tokens []string
	for {
		token, err := stream.Next()
		if err != nil {
			break
		}
		if !token.End {
			tokens = append(tokens, token.Text)
		}
	}
	if len(tokens) < n {
		return nil, fmt.Errorf("seed has %d tokens, need at least %d for this model", len(tokens), n)
	}
	return tokens[len(tokens)-n:], nil
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	name := fs.String("model", "default", "model name")
	out := fs.String("out", "", "output file (default: stdout)")
	_ = fs.Parse(args)

	m, err := a.store.Load(ctx, *name)
	if err != nil {
		return fmt.Errorf("could not load model '%s': %w", *name, err)
	}

	if *out == "" {
		return m.Export(os.Stdout)
	}

	var buf bytes.Buffer
	if err := m.Export(&buf); err != nil {
		return err
	}
	return atomic.WriteFile(*out, &buf)
}

func (a *app) importSnapshot(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	name := fs.String("model", "default", "model name to store the snapshot under")
	in := fs.String("in", "", "input file (default: stdin)")
	merge := fs.Bool("merge", false, "merge counts into an existing model instead of replacing it")
	_ = fs.Parse(args)

	input := os.Stdin
	if *in != "" {
		f, err := os.Open(*in)
		if err != nil {
			return fmt.Errorf("could not open snapshot: %w", err)
		}
		defer func(f *os.File) {
			_ = f.Close()
		}(f)
		input = f
	}

	imported, err := ngram.Import(input)
	if err != nil {
		return err
	}

	if *merge {
		existing, err := a.store.Load(ctx, *name)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if existing != nil {
			if err := existing.Update(imported); err != nil {
				return fmt.Errorf("could not merge into '%s': %w", *name, err)
			}
			imported = existing
		}
	}

	return a.store.Save(ctx, *name, imported)
}

func (a *app) list(ctx context.Context) error {
	models, err := a.store.List(ctx)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		fmt.Println("no models stored")
		return nil
	}
	for name, info := range models {
		edges, err := a.store.EdgeCount(ctx, name)
		if err != nil {
			return err
		}
		fmt.Printf("%s\torder=%d\tedges=%d\n", name, info.Order, edges)
	}
	return nil
}

func (a *app) stats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	name := fs.String("model", "default", "model name")
	_ = fs.Parse(args)

	m, err := a.store.Load(ctx, *name)
	if err != nil {
		return fmt.Errorf("could not load model '%s': %w", *name, err)
	}
	s := m.Stats()
	fmt.Printf("model:       %s\n", *name)
	fmt.Printf("order:       %d\n", m.Order())
	fmt.Printf("prefixes:    %d\n", s.Prefixes)
	fmt.Printf("edges:       %d\n", s.Edges)
	fmt.Printf("transitions: %d\n", s.Transitions)
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	name := fs.String("model", "", "model name")
	_ = fs.Parse(args)

	if *name == "" {
		return errors.New("delete requires -model")
	}
	return a.store.Delete(ctx, *name)
}
