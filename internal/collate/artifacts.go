package collate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/nodescout/nodescout/internal/core"
	"github.com/nodescout/nodescout/internal/logging"
	"github.com/nodescout/nodescout/internal/plugin"
)

const artifactDirPerm = 0o755

// Writer persists each plugin result under <root>/<run-id>/<plugin>/:
// result.json with the full result, events.json and data.json when present,
// and one file per attached artifact. Written paths are appended to the
// result's ArtifactPaths so collators can reference them.
type Writer struct {
	root  string
	runID string
	log   *logging.Logger
}

// NewWriter builds an artifact writer rooted at dir for one run.
func NewWriter(dir, runID string, log *logging.Logger) *Writer {
	if log == nil {
		log = logging.NewNop()
	}
	return &Writer{root: dir, runID: runID, log: log}
}

// RunDir returns the directory the run's artifacts are written under.
func (w *Writer) RunDir() string {
	return filepath.Join(w.root, w.runID)
}

// OnResult implements plugin.ResultHook.
func (w *Writer) OnResult(_ context.Context, result *core.PluginResult) error {
	dir := filepath.Join(w.RunDir(), result.Source)
	if err := os.MkdirAll(dir, artifactDirPerm); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	if err := w.writeJSON(dir, "result.json", result); err != nil {
		return err
	}
	paths := []string{filepath.Join(dir, "result.json")}

	if events := result.Events(); len(events) > 0 {
		if err := w.writeJSON(dir, "events.json", events); err != nil {
			return err
		}
		paths = append(paths, filepath.Join(dir, "events.json"))
	}
	if result.Data != nil {
		if err := w.writeJSON(dir, "data.json", result.Data); err != nil {
			return err
		}
		paths = append(paths, filepath.Join(dir, "data.json"))
	}

	taskPaths, err := w.writeTaskArtifacts(dir, result.CollectionResult, result.AnalysisResult)
	if err != nil {
		return err
	}
	paths = append(paths, taskPaths...)

	result.ArtifactPaths = append(result.ArtifactPaths, paths...)
	w.log.WithPlugin(result.Source).Debug("artifacts written", "dir", dir, "files", len(paths))
	return nil
}

// writeTaskArtifacts persists the artifacts attached to the given task
// results. Command transcripts across both phases merge into one file;
// file artifacts keep their own names.
func (w *Writer) writeTaskArtifacts(dir string, tasks ...*core.TaskResult) ([]string, error) {
	var paths []string
	var commands []core.CommandArtifact
	for _, task := range tasks {
		if task == nil {
			continue
		}
		for _, artifact := range task.Artifacts {
			switch a := artifact.(type) {
			case core.CommandArtifact:
				commands = append(commands, a)
			case core.FileArtifact:
				path := filepath.Join(dir, a.Filename)
				if err := renameio.WriteFile(path, []byte(a.Contents), 0o644); err != nil {
					return nil, fmt.Errorf("write artifact %s: %w", a.Filename, err)
				}
				paths = append(paths, path)
			default:
				if err := w.writeJSON(dir, artifact.ArtifactName(), artifact); err != nil {
					return nil, err
				}
				paths = append(paths, filepath.Join(dir, artifact.ArtifactName()))
			}
		}
	}
	if len(commands) > 0 {
		name := core.CommandArtifact{}.ArtifactName()
		if err := w.writeJSON(dir, name, commands); err != nil {
			return nil, err
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}

// Collate implements plugin.Collator. Wired as a collator instead of a
// result hook, the writer persists every result after the queue drains and
// adds a run-level report.json.
func (w *Writer) Collate(ctx context.Context, report *plugin.RunReport) error {
	if w.runID == "" {
		w.runID = report.RunID
	}
	for i := range report.Results {
		if err := w.OnResult(ctx, &report.Results[i]); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(w.RunDir(), artifactDirPerm); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	return w.writeJSON(w.RunDir(), "report.json", report)
}

func (w *Writer) writeJSON(dir, name string, v any) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := renameio.WriteFile(filepath.Join(dir, name), append(body, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
