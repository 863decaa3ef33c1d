package ml

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ResolvePath returns the first candidate that exists on disk.
func ResolvePath(candidates []string) (string, error) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("no model artifact found in %v", candidates)
}

// LoadModel loads the first existing artifact among candidates. JSON files
// are linear models; anything else is scored through the inference script.
func LoadModel(candidates []string, opts ScriptOptions) (Model, string, error) {
	path, err := ResolvePath(candidates)
	if err != nil {
		return nil, "", err
	}

	var model Model
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		model, err = LoadLinearModel(path)
	default:
		model, err = NewScriptModel(path, opts)
	}
	if err != nil {
		return nil, "", err
	}

	if info, err := os.Stat(path); err == nil && opts.Metrics != nil {
		opts.Metrics.ModelAgeSet(time.Since(info.ModTime()).Seconds())
	}

	log.Info().Str("model_path", path).Str("model", model.Name()).Msg("model loaded")
	return model, path, nil
}
