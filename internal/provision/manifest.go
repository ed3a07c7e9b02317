// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	// StepStatusOK means the step completed.
	StepStatusOK = "ok"
	// StepStatusFailed means the step aborted the build.
	StepStatusFailed = "failed"
	// StepStatusSkipped means a prior failure prevented the step from
	// running.
	StepStatusSkipped = "skipped"
)

type (
	// Manifest records one build execution: what ran, in what order, with
	// what outcome. It is serialized as TOML next to the build output so a
	// failed build's terminal step and classification survive the process.
	Manifest struct {
		// Image is the committed image tag (engine target) or staging root
		// (local target).
		Image string `toml:"image"`

		// Target names the executing target (docker, podman, local).
		Target string `toml:"target"`

		// BaseImage is the recipe's base filesystem reference.
		BaseImage string `toml:"base_image"`

		// StartedAt and FinishedAt bound the whole execution.
		StartedAt  time.Time `toml:"started_at"`
		FinishedAt time.Time `toml:"finished_at"`

		// Succeeded reports whether every step completed.
		Succeeded bool `toml:"succeeded"`

		// Env is the final merged environment set.
		Env map[string]string `toml:"env,omitempty"`

		// Checksums maps artifact destinations to SHA-256 of the installed
		// file.
		Checksums map[string]string `toml:"checksums,omitempty"`

		Steps []StepRecord `toml:"steps,omitempty"`
	}

	// StepRecord is one step's outcome.
	StepRecord struct {
		Name       string `toml:"name"`
		Status     string `toml:"status"`
		Kind       string `toml:"kind,omitempty"`
		Error      string `toml:"error,omitempty"`
		DurationMS int64  `toml:"duration_ms"`
	}
)

// WriteFile serializes the manifest to path as TOML.
func (m *Manifest) WriteFile(path string) error {
	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// LoadManifest reads a TOML manifest from path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	return &m, nil
}

// FailedStep returns the record of the step that aborted the build, or nil
// when the build succeeded.
func (m *Manifest) FailedStep() *StepRecord {
	for i := range m.Steps {
		if m.Steps[i].Status == StepStatusFailed {
			return &m.Steps[i]
		}
	}
	return nil
}
