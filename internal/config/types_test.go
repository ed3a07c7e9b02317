// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"
)

func TestContainerEngineIsValid(t *testing.T) {
	t.Parallel()
	for _, ce := range []ContainerEngine{ContainerEnginePodman, ContainerEngineDocker} {
		if valid, errs := ce.IsValid(); !valid {
			t.Errorf("IsValid(%q) = false, errs = %v", ce, errs)
		}
	}

	valid, errs := ContainerEngine("lxc").IsValid()
	if valid {
		t.Fatal("IsValid(lxc) = true")
	}
	if len(errs) != 1 || !errors.Is(errs[0], ErrInvalidContainerEngine) {
		t.Errorf("errs = %v, want one ErrInvalidContainerEngine", errs)
	}
}

func TestBuildTargetIsValid(t *testing.T) {
	t.Parallel()
	for _, bt := range []BuildTarget{TargetAuto, TargetDocker, TargetPodman, TargetLocal} {
		if valid, errs := bt.IsValid(); !valid {
			t.Errorf("IsValid(%q) = false, errs = %v", bt, errs)
		}
	}

	valid, errs := BuildTarget("remote").IsValid()
	if valid {
		t.Fatal("IsValid(remote) = true")
	}
	if !errors.Is(errs[0], ErrInvalidBuildTarget) {
		t.Errorf("errs = %v, want ErrInvalidBuildTarget", errs)
	}
}

func TestColorSchemeIsValid(t *testing.T) {
	t.Parallel()
	if valid, _ := ColorSchemeDark.IsValid(); !valid {
		t.Error("IsValid(dark) = false")
	}
	if valid, _ := ColorScheme("sepia").IsValid(); valid {
		t.Error("IsValid(sepia) = true")
	}
}

func TestPathZeroValuesAreValid(t *testing.T) {
	t.Parallel()
	if valid, _ := CacheDirPath("").IsValid(); !valid {
		t.Error("empty cache dir should be valid")
	}
	if valid, _ := ManifestFilePath("").IsValid(); !valid {
		t.Error("empty manifest path should be valid")
	}

	if valid, _ := CacheDirPath("   ").IsValid(); valid {
		t.Error("whitespace-only cache dir should be invalid")
	}
	if valid, _ := ManifestFilePath("\t").IsValid(); valid {
		t.Error("whitespace-only manifest path should be invalid")
	}
}

func TestBuildConfigIsValidCollectsFieldErrors(t *testing.T) {
	t.Parallel()
	bc := BuildConfig{
		CacheDir:     "  ",
		ManifestPath: " ",
		PullRetries:  0,
	}

	valid, errs := bc.IsValid()
	if valid {
		t.Fatal("IsValid() = true for invalid build config")
	}
	var buildErr *InvalidBuildConfigError
	if !errors.As(errs[0], &buildErr) {
		t.Fatalf("errs[0] = %T, want *InvalidBuildConfigError", errs[0])
	}
	if len(buildErr.FieldErrors) != 3 {
		t.Errorf("field errors = %d, want 3: %v", len(buildErr.FieldErrors), buildErr.FieldErrors)
	}
}

func TestConfigIsValidAggregates(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	if valid, errs := cfg.IsValid(); !valid {
		t.Fatalf("default config invalid: %v", errs)
	}

	cfg.ContainerEngine = "lxc"
	cfg.DefaultTarget = "remote"
	valid, errs := cfg.IsValid()
	if valid {
		t.Fatal("IsValid() = true for broken config")
	}
	var cfgErr *InvalidConfigError
	if !errors.As(errs[0], &cfgErr) {
		t.Fatalf("errs[0] = %T, want *InvalidConfigError", errs[0])
	}
	if len(cfgErr.FieldErrors) != 2 {
		t.Errorf("field errors = %d, want 2: %v", len(cfgErr.FieldErrors), cfgErr.FieldErrors)
	}
}

func TestDefaultConfigValues(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	if cfg.ContainerEngine != ContainerEnginePodman {
		t.Errorf("ContainerEngine = %q, want podman", cfg.ContainerEngine)
	}
	if cfg.DefaultTarget != TargetAuto {
		t.Errorf("DefaultTarget = %q, want auto", cfg.DefaultTarget)
	}
	if cfg.Build.PullRetries != 3 {
		t.Errorf("PullRetries = %d, want 3", cfg.Build.PullRetries)
	}
}
