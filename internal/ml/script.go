package ml

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"book-predictor/internal/features"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// ErrModelTimeout is returned when the inference script exceeds its timeout.
var ErrModelTimeout = errors.New("model inference timed out")

// ScriptModel scores rows by running a Python inference script against a
// serialized model artifact. Each call is an independent process, so the
// model holds no mutable state.
type ScriptModel struct {
	modelPath  string
	pythonPath string
	scriptPath string
	timeout    time.Duration
	metrics    MetricsInterface
}

// ScriptOptions configures NewScriptModel. Empty fields are discovered.
type ScriptOptions struct {
	Python  string
	Script  string
	Timeout time.Duration
	Metrics MetricsInterface
}

type scriptRequest struct {
	Columns  []string  `json:"columns"`
	Features []float64 `json:"features"`
}

type scriptResponse struct {
	Prediction *float64 `json:"prediction"`
	Error      string   `json:"error,omitempty"`
}

// NewScriptModel prepares a script model for the artifact at path.
func NewScriptModel(path string, opts ScriptOptions) (*ScriptModel, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model artifact %s: %w", path, err)
	}

	pythonPath := opts.Python
	if pythonPath == "" {
		p, err := findPython()
		if err != nil {
			return nil, err
		}
		pythonPath = p
	}

	scriptPath := opts.Script
	if scriptPath == "" {
		// Prefer a script shipped next to the model, then the embedded one.
		scriptPath = filepath.Join(filepath.Dir(path), "predict.py")
		if _, err := os.Stat(scriptPath); os.IsNotExist(err) {
			p, err := createInferenceScript()
			if err != nil {
				return nil, fmt.Errorf("create inference script: %w", err)
			}
			scriptPath = p
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	log.Info().
		Str("model_path", path).
		Str("python_path", pythonPath).
		Str("script_path", scriptPath).
		Dur("timeout", timeout).
		Msg("script model configured")

	return &ScriptModel{
		modelPath:  path,
		pythonPath: pythonPath,
		scriptPath: scriptPath,
		timeout:    timeout,
		metrics:    opts.Metrics,
	}, nil
}

func (m *ScriptModel) Name() string {
	return "script:" + filepath.Base(m.modelPath)
}

func (m *ScriptModel) Predict(ctx context.Context, row features.AlignedRow) (float64, error) {
	reqJSON, err := json.Marshal(scriptRequest{Columns: row.Columns, Features: row.Values})
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.pythonPath, m.scriptPath, m.modelPath)
	cmd.Stdin = bytes.NewReader(reqJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			if m.metrics != nil {
				m.metrics.ModelTimeoutsInc()
			}
			return 0, fmt.Errorf("%w after %v", ErrModelTimeout, m.timeout)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return 0, fmt.Errorf("inference script: %w", ctx.Err())
		}

		// The script reports its own failures as JSON on stdout.
		var resp scriptResponse
		if json.Unmarshal(stdout.Bytes(), &resp) == nil && resp.Error != "" {
			return 0, fmt.Errorf("inference script error: %s", resp.Error)
		}

		log.Error().
			Err(err).
			Str("python_path", m.pythonPath).
			Str("script_path", m.scriptPath).
			Str("model_path", m.modelPath).
			Str("stderr", stderr.String()).
			Msg("inference script failed")

		if strings.Contains(stderr.String(), "No such file or directory") {
			return 0, fmt.Errorf("model file not accessible: %w", err)
		}
		return 0, fmt.Errorf("inference script failed: %w, stderr: %s", err, stderr.String())
	}

	var resp scriptResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return 0, fmt.Errorf("parse inference response: %w, stdout: %s", err, stdout.String())
	}
	if resp.Error != "" {
		return 0, fmt.Errorf("inference script error: %s", resp.Error)
	}
	if resp.Prediction == nil {
		return 0, fmt.Errorf("inference response has no prediction: %s", stdout.String())
	}
	if math.IsNaN(*resp.Prediction) || math.IsInf(*resp.Prediction, 0) {
		return 0, fmt.Errorf("inference returned non-finite prediction %v", *resp.Prediction)
	}

	return *resp.Prediction, nil
}

func findPython() (string, error) {
	// Virtual environment first.
	if venvPath := os.Getenv("VIRTUAL_ENV"); venvPath != "" {
		candidates := []string{
			filepath.Join(venvPath, "bin", "python3"),
			filepath.Join(venvPath, "bin", "python"),
			filepath.Join(venvPath, "Scripts", "python.exe"),
		}
		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				log.Info().Str("python_path", p).Msg("using virtual environment python")
				return p, nil
			}
		}
	}

	// Then a venv relative to the executable.
	if execPath, err := os.Executable(); err == nil {
		execDir := filepath.Dir(execPath)
		for _, root := range []string{execDir, filepath.Dir(execDir)} {
			for _, p := range []string{
				filepath.Join(root, "venv", "bin", "python3"),
				filepath.Join(root, ".venv", "bin", "python3"),
			} {
				if _, err := os.Stat(p); err == nil {
					log.Info().Str("python_path", p).Msg("using project virtual environment python")
					return p, nil
				}
			}
		}
	}

	for _, candidate := range []string{"python3", "python"} {
		path, err := exec.LookPath(candidate)
		if err != nil {
			continue
		}
		cmd := exec.Command(path, "-c", "import sys; exit(0 if sys.version_info[0] == 3 else 1)")
		if err := cmd.Run(); err == nil {
			log.Info().Str("python_path", path).Msg("using system python")
			return path, nil
		}
	}

	return "", fmt.Errorf("no suitable Python 3 executable found")
}

func createInferenceScript() (string, error) {
	f, err := os.CreateTemp("", "book-predictor-*.py")
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.WriteString(inferenceScript); err != nil {
		return "", err
	}
	if err := f.Chmod(0o700); err != nil {
		return "", err
	}
	return f.Name(), nil
}

const inferenceScript = `#!/usr/bin/env python3
"""Scores one aligned feature row read from stdin."""
import json
import sys


def load(path):
    if path.endswith(".onnx"):
        import numpy as np
        import onnxruntime as ort

        session = ort.InferenceSession(path)
        name = session.get_inputs()[0].name

        def predict(columns, features):
            out = session.run(None, {name: np.array([features], dtype=np.float32)})
            return float(np.asarray(out[0]).ravel()[0])

        return predict

    import pickle

    with open(path, "rb") as f:
        model = pickle.load(f)

    def predict(columns, features):
        try:
            import pandas as pd

            frame = pd.DataFrame([features], columns=columns)
        except ImportError:
            import numpy as np

            frame = np.array([features])
        return float(model.predict(frame)[0])

    return predict


def main():
    if len(sys.argv) != 2:
        print(json.dumps({"error": "usage: predict.py <model_path>"}))
        sys.exit(1)
    try:
        request = json.load(sys.stdin)
        predict = load(sys.argv[1])
        value = predict(request["columns"], request["features"])
        print(json.dumps({"prediction": value}))
    except Exception as e:
        print(json.dumps({"error": str(e)}))
        sys.exit(1)


if __name__ == "__main__":
    main()
`
