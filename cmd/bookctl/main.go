package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"book-predictor/internal/client"
	"book-predictor/internal/common"
	"book-predictor/internal/features"
	"book-predictor/internal/storage"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `usage: bookctl <command> [flags]

commands:
  import <schema.json|schema.yaml>   store a schema version in the registry
  list                               list stored schema versions
  activate <version>                 make a stored version active
  rollback                           re-activate the previously active version
  predict [flags]                    score a book on a running server
  health                             query a running server's health
`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: failed to read .env: %v\n", err)
	}

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("no command given")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "import", "list", "activate", "rollback":
		return runRegistry(cmd, rest, out)
	case "predict":
		return runPredict(rest, out)
	case "health":
		return runHealth(rest, out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runRegistry(cmd string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	dataPath := fs.String("data", envOr(common.EnvDataPath, "data"), "Registry data directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storage.New(*dataPath)
	if err != nil {
		return err
	}
	defer store.Close()

	switch cmd {
	case "import":
		if fs.NArg() != 1 {
			return errors.New("import needs a schema file")
		}
		schema, err := features.LoadSchema(fs.Arg(0))
		if err != nil {
			return err
		}
		art, err := store.Import(schema.File(), fs.Arg(0))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "imported %s (%d columns, active=%t)\n", art.Version, len(art.Schema.Columns), art.Active)

	case "list":
		arts, err := store.List()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tCOLUMNS\tIMPORTED\tACTIVE\tSOURCE")
		for _, a := range arts {
			active := ""
			if a.Active {
				active = "*"
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", a.Version, len(a.Schema.Columns),
				a.ImportedAt.Format(time.RFC3339), active, a.Source)
		}
		return tw.Flush()

	case "activate":
		if fs.NArg() != 1 {
			return errors.New("activate needs a version")
		}
		if err := store.Activate(fs.Arg(0)); err != nil {
			return err
		}
		fmt.Fprintf(out, "active: %s\n", fs.Arg(0))

	case "rollback":
		version, err := store.Rollback()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "active: %s\n", version)
	}
	return nil
}

func runPredict(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	url := fs.String("url", envOr(common.EnvPredictorURL, common.DefaultPredictorURL), "Predictor base URL")
	timeout := fs.Duration("timeout", 10*time.Second, "Request timeout")
	file := fs.String("f", "", "JSON file with the book record, - for stdin")

	var b client.Book
	fs.IntVar(&b.Ano, "ano", 0, "Publication year")
	fs.IntVar(&b.Paginas, "paginas", 0, "Page count")
	fs.IntVar(&b.QueremLer, "querem-ler", 0, "Readers who want to read it")
	fs.StringVar(&b.Autor, "autor", "", "Author")
	fs.StringVar(&b.Editora, "editora", "", "Publisher")
	fs.StringVar(&b.GeneroPrimario, "genero", "", "Primary genre")
	fs.StringVar(&b.SubGenero, "subgenero", "", "Sub-genre")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c := client.New(*url, *timeout)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var (
		prediction float64
		err        error
	)
	if *file != "" {
		rec, rerr := readRecord(*file)
		if rerr != nil {
			return rerr
		}
		prediction, err = c.PredictRecord(ctx, rec)
	} else {
		prediction, err = c.Predict(ctx, b)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "prediction: %v\n", prediction)
	return nil
}

func runHealth(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	url := fs.String("url", envOr(common.EnvPredictorURL, common.DefaultPredictorURL), "Predictor base URL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h, err := client.New(*url, 5*time.Second).Health(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "status: %s model_loaded: %t schema: %s columns: %d",
		h.Status, h.ModelLoaded, h.SchemaVersion, h.Columns)
	if h.ModelState != "" {
		fmt.Fprintf(out, " breaker: %s", h.ModelState)
	}
	fmt.Fprintln(out)
	return nil
}

func readRecord(path string) (map[string]any, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var rec map[string]any
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rec, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
