package engine

import (
	"bufio"
	"context"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/gojags/gojags/coda"
	"github.com/gojags/gojags/model"
	"github.com/gojags/gojags/rand"
)

// Console runs jobs through the engine's command-line console: it writes the
// model, data, and init files into a workspace directory, renders a command
// script, executes the engine binary on it, and reads the CODA output back.
type Console struct {
	Path string // Engine binary (name resolved via PATH or an absolute path)
	Dir  string // Workspace directory. Empty means a fresh temp dir per run
	Keep bool   // Keep the workspace after the run (for debugging a model)

	Trace *log.Logger // Optional destination for the engine's console output

	gen *rand.Generator
}

// NewConsole returns a runner for the given engine binary. The generator
// seeds the per-chain RNG's for generated initial values.
func NewConsole(path string, gen *rand.Generator) (*Console, error) {
	if len(path) < 1 {
		return nil, errors.New("No engine binary given")
	}
	if gen == nil {
		return nil, errors.New("No seed generator given")
	}

	return &Console{
		Path: path,
		gen:  gen,
	}, nil
}

// Run executes the job and returns its posterior chains. The workspace is
// removed afterwards unless Keep is set or an explicit Dir was given.
func (c *Console) Run(ctx context.Context, j *Job) (*coda.ChainSet, error) {
	if err := j.Check(); err != nil {
		return nil, errors.Wrap(err, "Refusing to run an invalid job")
	}

	dir := c.Dir
	if len(dir) < 1 {
		tmp, err := os.MkdirTemp("", "gojags-")
		if err != nil {
			return nil, errors.Wrap(err, "Could not create workspace")
		}
		if !c.Keep {
			defer os.RemoveAll(tmp)
		}
		dir = tmp
	}

	files := NewWorkFiles(j.Chains)
	if err := c.populate(dir, j, files); err != nil {
		return nil, err
	}

	script, err := Script(j, files)
	if err != nil {
		return nil, err
	}
	scriptPath := filepath.Join(dir, "script.cmd")
	if err := os.WriteFile(scriptPath, []byte(script), 0o644); err != nil {
		return nil, errors.Wrapf(err, "Could not WRITE script %s", scriptPath)
	}

	cmd := exec.CommandContext(ctx, c.Path, "script.cmd")
	cmd.Dir = dir
	out, runErr := cmd.CombinedOutput()

	if c.Trace != nil {
		for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
			c.Trace.Printf("engine> %s", line)
		}
	}

	// The console reports many failures only as output text, so the scan
	// runs regardless of exit status
	if err := scanConsole(string(out)); err != nil {
		return nil, errors.Wrapf(err, "Engine failed in %s", dir)
	}
	if runErr != nil {
		return nil, errors.Wrapf(runErr, "Engine %s did not run (output: %s)", c.Path, tail(string(out), 3))
	}

	index, chains := coda.CODAFiles(dir, files.Stem, j.Chains)
	set, err := coda.ReadCODA(index, chains)
	if err != nil {
		return nil, errors.Wrap(err, "Engine produced no readable output")
	}

	return set, nil
}

// populate writes the model, data, and init files into the workspace
func (c *Console) populate(dir string, j *Job, files *WorkFiles) error {
	modelPath := filepath.Join(dir, files.Model)
	if err := os.WriteFile(modelPath, []byte(j.Spec.Source), 0o644); err != nil {
		return errors.Wrapf(err, "Could not WRITE model %s", modelPath)
	}

	if j.Data != nil && j.Data.Len() > 0 {
		text, err := model.DumpString(j.Data)
		if err != nil {
			return errors.Wrap(err, "Could not render data")
		}
		dataPath := filepath.Join(dir, files.Data)
		if err := os.WriteFile(dataPath, []byte(text), 0o644); err != nil {
			return errors.Wrapf(err, "Could not WRITE data %s", dataPath)
		}
	}

	inits, err := ensureInits(j, c.gen)
	if err != nil {
		return err
	}
	for i, d := range inits {
		text, err := model.DumpString(d)
		if err != nil {
			return errors.Wrapf(err, "Could not render inits for chain %d", i+1)
		}
		initPath := filepath.Join(dir, files.Inits[i])
		if err := os.WriteFile(initPath, []byte(text), 0o644); err != nil {
			return errors.Wrapf(err, "Could not WRITE inits %s", initPath)
		}
	}

	return nil
}

// Markers the console prints when something went wrong. Warnings (unused
// variables and the like) are deliberately not listed.
var errorMarkers = []string{
	"syntax error",
	"RUNTIME ERROR",
	"LOGIC ERROR",
	"COMPILE ERROR",
	"Error in ",
	"Error parsing",
	"Unable to ",
	"Cannot ",
	"Failed to ",
	"Nothing to compile",
}

// scanConsole turns the console's error text into a real error
func scanConsole(output string) error {
	found := []string{}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		for _, marker := range errorMarkers {
			if strings.Contains(line, marker) {
				found = append(found, strings.TrimSpace(line))
				break
			}
		}
	}

	if len(found) > 0 {
		return errors.Errorf("Engine reported: %s", strings.Join(found, " | "))
	}
	return nil
}

// tail returns the last n lines of text for compact error reporting
func tail(text string, n int) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
