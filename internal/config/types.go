// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ContainerEnginePodman uses Podman as the container runtime.
	ContainerEnginePodman ContainerEngine = "podman"
	// ContainerEngineDocker uses Docker as the container runtime.
	ContainerEngineDocker ContainerEngine = "docker"

	// TargetAuto picks the first available engine, preferring Podman.
	TargetAuto BuildTarget = "auto"
	// TargetDocker builds through the Docker CLI.
	TargetDocker BuildTarget = "docker"
	// TargetPodman builds through the Podman CLI.
	TargetPodman BuildTarget = "podman"
	// TargetLocal builds into a local root directory without an engine.
	TargetLocal BuildTarget = "local"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidContainerEngine is returned when a ContainerEngine value is not recognized.
	ErrInvalidContainerEngine = errors.New("invalid container engine")
	// ErrInvalidBuildTarget is returned when a BuildTarget value is not recognized.
	ErrInvalidBuildTarget = errors.New("invalid build target")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidCacheDirPath is returned when a CacheDirPath value is whitespace-only.
	ErrInvalidCacheDirPath = errors.New("invalid cache dir path")
	// ErrInvalidManifestFilePath is returned when a ManifestFilePath value is whitespace-only.
	ErrInvalidManifestFilePath = errors.New("invalid manifest file path")
	// ErrInvalidPullRetries is returned when a pull retry count is out of range.
	ErrInvalidPullRetries = errors.New("invalid pull retries")
	// ErrInvalidUIConfig is the sentinel error wrapped by InvalidUIConfigError.
	ErrInvalidUIConfig = errors.New("invalid UI config")
	// ErrInvalidBuildConfig is the sentinel error wrapped by InvalidBuildConfigError.
	ErrInvalidBuildConfig = errors.New("invalid build config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ContainerEngine specifies which container runtime to use.
	ContainerEngine string

	// InvalidContainerEngineError is returned when a ContainerEngine value is not recognized.
	// It wraps ErrInvalidContainerEngine for errors.Is() compatibility.
	InvalidContainerEngineError struct {
		Value ContainerEngine
	}

	// BuildTarget specifies where builds materialize when not overridden.
	BuildTarget string

	// InvalidBuildTargetError is returned when a BuildTarget value is not recognized.
	// It wraps ErrInvalidBuildTarget for errors.Is() compatibility.
	InvalidBuildTargetError struct {
		Value BuildTarget
	}

	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// CacheDirPath represents a filesystem path to the artifact cache directory.
	// The zero value ("") is valid and means "use default cache directory".
	// Non-zero values must not be whitespace-only.
	CacheDirPath string

	// InvalidCacheDirPathError is returned when a CacheDirPath value is
	// non-empty but whitespace-only.
	InvalidCacheDirPathError struct {
		Value CacheDirPath
	}

	// ManifestFilePath represents where the build manifest is written.
	// The zero value ("") is valid and disables manifest persistence.
	// Non-zero values must not be whitespace-only.
	ManifestFilePath string

	// InvalidManifestFilePathError is returned when a ManifestFilePath value is
	// non-empty but whitespace-only.
	InvalidManifestFilePathError struct {
		Value ManifestFilePath
	}

	// InvalidPullRetriesError is returned when a pull retry count is out of range.
	// It wraps ErrInvalidPullRetries for errors.Is() compatibility.
	InvalidPullRetriesError struct {
		Value int
	}

	// InvalidUIConfigError is returned when a UIConfig has invalid fields.
	// It wraps ErrInvalidUIConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidUIConfigError struct {
		FieldErrors []error
	}

	// InvalidBuildConfigError is returned when a BuildConfig has invalid fields.
	// It wraps ErrInvalidBuildConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidBuildConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// ContainerEngine specifies whether to use "podman" or "docker"
		ContainerEngine ContainerEngine `json:"container_engine" mapstructure:"container_engine"`
		// DefaultTarget selects where builds run when --target is not given
		DefaultTarget BuildTarget `json:"default_target" mapstructure:"default_target"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
		// Build configures build behavior
		Build BuildConfig `json:"build" mapstructure:"build"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}

	// BuildConfig configures build behavior.
	BuildConfig struct {
		// CacheDir stores downloaded artifacts between builds
		CacheDir CacheDirPath `json:"cache_dir" mapstructure:"cache_dir"`
		// ManifestPath receives the build manifest; empty disables it
		ManifestPath ManifestFilePath `json:"manifest_path" mapstructure:"manifest_path"`
		// PullRetries bounds base image pull attempts
		PullRetries int `json:"pull_retries" mapstructure:"pull_retries"`
	}
)

// Error implements the error interface for InvalidContainerEngineError.
func (e *InvalidContainerEngineError) Error() string {
	return fmt.Sprintf("invalid container engine %q (valid: podman, docker)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidContainerEngineError) Unwrap() error { return ErrInvalidContainerEngine }

// String returns the string representation of the ContainerEngine.
func (ce ContainerEngine) String() string { return string(ce) }

// IsValid returns whether the ContainerEngine is one of the defined engine types,
// and a list of validation errors if it is not.
func (ce ContainerEngine) IsValid() (bool, []error) {
	switch ce {
	case ContainerEnginePodman, ContainerEngineDocker:
		return true, nil
	default:
		return false, []error{&InvalidContainerEngineError{Value: ce}}
	}
}

// Error implements the error interface for InvalidBuildTargetError.
func (e *InvalidBuildTargetError) Error() string {
	return fmt.Sprintf("invalid build target %q (valid: auto, docker, podman, local)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidBuildTargetError) Unwrap() error { return ErrInvalidBuildTarget }

// String returns the string representation of the BuildTarget.
func (bt BuildTarget) String() string { return string(bt) }

// IsValid returns whether the BuildTarget is one of the defined targets,
// and a list of validation errors if it is not.
func (bt BuildTarget) IsValid() (bool, []error) {
	switch bt {
	case TargetAuto, TargetDocker, TargetPodman, TargetLocal:
		return true, nil
	default:
		return false, []error{&InvalidBuildTargetError{Value: bt}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// String returns the string representation of the CacheDirPath.
func (p CacheDirPath) String() string { return string(p) }

// IsValid returns whether the CacheDirPath is valid.
// The zero value ("") is valid (means "use default cache directory").
// Non-zero values must not be whitespace-only.
func (p CacheDirPath) IsValid() (bool, []error) {
	if p == "" {
		return true, nil
	}
	if strings.TrimSpace(string(p)) == "" {
		return false, []error{&InvalidCacheDirPathError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidCacheDirPathError.
func (e *InvalidCacheDirPathError) Error() string {
	return fmt.Sprintf("invalid cache dir path %q: non-empty value must not be whitespace-only", e.Value)
}

// Unwrap returns ErrInvalidCacheDirPath for errors.Is() compatibility.
func (e *InvalidCacheDirPathError) Unwrap() error { return ErrInvalidCacheDirPath }

// String returns the string representation of the ManifestFilePath.
func (p ManifestFilePath) String() string { return string(p) }

// IsValid returns whether the ManifestFilePath is valid.
// The zero value ("") is valid (disables manifest persistence).
// Non-zero values must not be whitespace-only.
func (p ManifestFilePath) IsValid() (bool, []error) {
	if p == "" {
		return true, nil
	}
	if strings.TrimSpace(string(p)) == "" {
		return false, []error{&InvalidManifestFilePathError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidManifestFilePathError.
func (e *InvalidManifestFilePathError) Error() string {
	return fmt.Sprintf("invalid manifest file path %q: non-empty value must not be whitespace-only", e.Value)
}

// Unwrap returns ErrInvalidManifestFilePath for errors.Is() compatibility.
func (e *InvalidManifestFilePathError) Unwrap() error { return ErrInvalidManifestFilePath }

// Error implements the error interface for InvalidPullRetriesError.
func (e *InvalidPullRetriesError) Error() string {
	return fmt.Sprintf("invalid pull retries %d (valid: 1 through 10)", e.Value)
}

// Unwrap returns ErrInvalidPullRetries for errors.Is() compatibility.
func (e *InvalidPullRetriesError) Unwrap() error { return ErrInvalidPullRetries }

// IsValid returns whether the UIConfig has valid fields.
// It delegates to ColorScheme.IsValid(); bool fields need no validation.
func (c UIConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidUIConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidUIConfigError.
func (e *InvalidUIConfigError) Error() string {
	return fmt.Sprintf("invalid UI config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidUIConfig for errors.Is() compatibility.
func (e *InvalidUIConfigError) Unwrap() error { return ErrInvalidUIConfig }

// IsValid returns whether the BuildConfig has valid fields.
// It delegates to CacheDir.IsValid(), ManifestPath.IsValid(), and the
// pull retry range check.
func (c BuildConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.CacheDir.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.ManifestPath.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if c.PullRetries < 1 || c.PullRetries > 10 {
		errs = append(errs, &InvalidPullRetriesError{Value: c.PullRetries})
	}
	if len(errs) > 0 {
		return false, []error{&InvalidBuildConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidBuildConfigError.
func (e *InvalidBuildConfigError) Error() string {
	return fmt.Sprintf("invalid build config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidBuildConfig for errors.Is() compatibility.
func (e *InvalidBuildConfigError) Unwrap() error { return ErrInvalidBuildConfig }

// IsValid returns whether the Config has valid fields.
// It delegates to ContainerEngine.IsValid(), DefaultTarget.IsValid(),
// UI.IsValid(), and Build.IsValid().
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.ContainerEngine.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.DefaultTarget.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Build.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ContainerEngine: ContainerEnginePodman,
		DefaultTarget:   TargetAuto,
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
		Build: BuildConfig{
			CacheDir:     "", // Will use default cache dir if empty
			ManifestPath: "",
			PullRetries:  3,
		},
	}
}
