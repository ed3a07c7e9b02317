// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeConfigFile writes content as config.cue under dir.
func writeConfigFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	cfg, path, err := LoadWithPath(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("LoadWithPath() error = %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want empty for defaults", path)
	}
	if cfg.ContainerEngine != ContainerEnginePodman {
		t.Errorf("ContainerEngine = %q, want podman default", cfg.ContainerEngine)
	}
	if cfg.DefaultTarget != TargetAuto {
		t.Errorf("DefaultTarget = %q, want auto default", cfg.DefaultTarget)
	}
	if cfg.Build.PullRetries != 3 {
		t.Errorf("PullRetries = %d, want 3", cfg.Build.PullRetries)
	}
}

func TestLoadFromConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, `
container_engine: "docker"
default_target: "local"
ui: {
	verbose: true
}
build: {
	pull_retries: 5
	cache_dir: "/var/cache/builds"
}
`)

	cfg, resolved, err := LoadWithPath(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("LoadWithPath() error = %v", err)
	}
	if resolved != path {
		t.Errorf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.ContainerEngine != ContainerEngineDocker {
		t.Errorf("ContainerEngine = %q", cfg.ContainerEngine)
	}
	if cfg.DefaultTarget != TargetLocal {
		t.Errorf("DefaultTarget = %q", cfg.DefaultTarget)
	}
	if !cfg.UI.Verbose {
		t.Error("UI.Verbose not applied")
	}
	// Unset fields keep defaults.
	if cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("ColorScheme = %q, want auto default", cfg.UI.ColorScheme)
	}
	if cfg.Build.PullRetries != 5 {
		t.Errorf("PullRetries = %d", cfg.Build.PullRetries)
	}
	if cfg.Build.CacheDir != "/var/cache/builds" {
		t.Errorf("CacheDir = %q", cfg.Build.CacheDir)
	}
}

func TestLoadExplicitFilePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.cue")
	if err := os.WriteFile(path, []byte(`container_engine: "docker"`), 0o644); err != nil {
		t.Fatal(err)
	}

	provider := NewProvider()
	cfg, err := provider.Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ContainerEngine != ContainerEngineDocker {
		t.Errorf("ContainerEngine = %q", cfg.ContainerEngine)
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	provider := NewProvider()
	_, err := provider.Load(context.Background(), LoadOptions{
		ConfigFilePath: filepath.Join(t.TempDir(), "absent.cue"),
	})
	if err == nil {
		t.Fatal("Load() with a missing explicit file should fail")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want mention of the missing file", err)
	}
}

func TestLoadRejectsSchemaViolation(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `container_engine: "lxc"`)

	_, _, err := LoadWithPath(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err == nil {
		t.Fatal("schema violation should fail loading")
	}
}

func TestLoadRejectsInvalidCUESyntax(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `container_engine: "docker`)

	_, _, err := LoadWithPath(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err == nil {
		t.Fatal("invalid CUE syntax should fail loading")
	}
}

func TestLoadRejectsOutOfRangeRetries(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `build: pull_retries: 99`)

	_, _, err := LoadWithPath(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err == nil {
		t.Fatal("out-of-range pull_retries should fail loading")
	}
}

func TestLoadCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := LoadWithPath(ctx, LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestGenerateCUERoundTrip(t *testing.T) {
	original := DefaultConfig()
	original.ContainerEngine = ContainerEngineDocker
	original.UI.Verbose = true
	original.Build.PullRetries = 7
	original.Build.CacheDir = "/tmp/pipstage-cache"

	dir := t.TempDir()
	writeConfigFile(t, dir, GenerateCUE(original))

	cfg, _, err := LoadWithPath(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("LoadWithPath() error = %v", err)
	}
	if cfg.ContainerEngine != original.ContainerEngine ||
		cfg.UI.Verbose != original.UI.Verbose ||
		cfg.Build.PullRetries != original.Build.PullRetries ||
		cfg.Build.CacheDir != original.Build.CacheDir {
		t.Errorf("round-tripped config = %+v, want %+v", cfg, original)
	}
}

func TestConfigDirOverride(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	got, err := ConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if got != dir {
		t.Errorf("ConfigDir() = %q, want override %q", got, dir)
	}
}

func TestCreateDefaultConfigIdempotent(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	if err := CreateDefaultConfig(); err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// A second call must not clobber an existing file.
	if err := os.WriteFile(path, []byte(`container_engine: "docker"`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CreateDefaultConfig(); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(second) == string(first) {
		t.Error("CreateDefaultConfig() overwrote an existing config file")
	}
}

func TestSaveWritesConfig(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	cfg := DefaultConfig()
	cfg.DefaultTarget = TargetDocker
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, _, err := LoadWithPath(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatal(err)
	}
	if loaded.DefaultTarget != TargetDocker {
		t.Errorf("DefaultTarget = %q after save/load", loaded.DefaultTarget)
	}
}
