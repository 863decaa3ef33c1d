package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"book-predictor/internal/features"
	"book-predictor/internal/ml"
	"book-predictor/internal/storage"

	"github.com/goccy/go-json"
)

// Categories seen in the sample training set.
var sampleCategories = map[string][]string{
	"autor":           {"Machado de Assis", "Clarice Lispector", "Jorge Amado", "Paulo Coelho"},
	"editora":         {"Companhia das Letras", "Rocco", "Intrínseca", "Record", "DarkSide"},
	"genero_primario": {"Ficção", "Fantasia", "Suspense", "Terror", "Romance"},
	"subgenero":       {"Romance", "Distopia", "Policial", "Clássico"},
}

func main() {
	var (
		outDir   = flag.String("out", "models", "Output directory for schema.json and model.json")
		version  = flag.String("version", time.Now().UTC().Format("20060102-150405"), "Schema version")
		dataPath = flag.String("data", "", "Also import the schema into this registry directory")
		seed     = flag.Int64("seed", 1, "Random seed for weights")
		classify = flag.Bool("classify", true, "Emit a 0/1 classifier instead of a raw score")
	)
	flag.Parse()

	fmt.Printf("Generating sample model...\n")
	fmt.Printf("  Version: %s\n", *version)
	fmt.Printf("  Output: %s\n", *outDir)

	sf := sampleSchema(*version)
	model := sampleModel(sf.Columns, rand.New(rand.NewSource(*seed)), *classify)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	if err := writeJSON(filepath.Join(*outDir, "schema.json"), sf); err != nil {
		log.Fatalf("Failed to write schema: %v", err)
	}
	if err := writeJSON(filepath.Join(*outDir, "model.json"), model); err != nil {
		log.Fatalf("Failed to write model: %v", err)
	}

	if *dataPath != "" {
		store, err := storage.New(*dataPath)
		if err != nil {
			log.Fatalf("Failed to open registry: %v", err)
		}
		defer store.Close()

		art, err := store.Import(sf, filepath.Join(*outDir, "schema.json"))
		if err != nil {
			log.Fatalf("Failed to import schema: %v", err)
		}
		fmt.Printf("  Registry: %s (active=%t)\n", *dataPath, art.Active)
	}

	fmt.Printf("✓ Generated schema with %d columns\n", len(sf.Columns))
}

func sampleSchema(version string) features.SchemaFile {
	cols := []string{"ano", "paginas", "querem_ler"}
	for _, f := range features.Fields {
		if !f.IsCategorical() {
			continue
		}
		// The first category is the dropped reference level.
		for _, v := range sampleCategories[f.Column][1:] {
			cols = append(cols, features.CategoryColumn(f.Column, v))
		}
	}
	return features.SchemaFile{
		Version:   version,
		TrainedAt: time.Now().UTC(),
		Target:    "popular",
		Columns:   cols,
	}
}

func sampleModel(columns []string, rng *rand.Rand, classify bool) ml.LinearModel {
	weights := make(map[string]float64, len(columns))
	for _, col := range columns {
		weights[col] = rng.NormFloat64() * 0.5
	}
	// Scale numeric columns to their typical magnitude.
	weights["ano"] = 0.002
	weights["paginas"] = 0.001
	weights["querem_ler"] = 0.0015

	m := ml.LinearModel{
		ModelName: "sample-logistic",
		Bias:      -4.5,
		Weights:   weights,
		Link:      ml.LinkLogistic,
	}
	if classify {
		m.Threshold = 0.5
	}
	return m
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
