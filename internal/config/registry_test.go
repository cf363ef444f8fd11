package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"
)

// resetGlobalRegistry makes the next LoadRegistry read from disk again
func resetGlobalRegistry(t *testing.T) {
	t.Helper()
	reset := func() {
		globalRegistryOnce = sync.Once{}
		globalRegistry = nil
		globalRegistryErr = nil
	}
	reset()
	t.Cleanup(reset)
}

func TestGetConfigDir(t *testing.T) {
	t.Setenv("MODELFINDER_CONFIG_DIR", "")

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "modelfinder") {
		t.Errorf("GetConfigDir() = %v, should contain 'modelfinder'", configDir)
	}

	if runtime.GOOS == "darwin" && !strings.Contains(configDir, ".config") {
		t.Errorf("macOS config dir should contain '.config', got: %v", configDir)
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux and other Unix systems")
	}
	t.Setenv("MODELFINDER_CONFIG_DIR", "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if configDir != filepath.Join("/tmp/xdg", "modelfinder") {
		t.Errorf("GetConfigDir() = %v, want /tmp/xdg/modelfinder", configDir)
	}
}

func TestGetConfigDir_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MODELFINDER_CONFIG_DIR", dir)

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if configDir != dir {
		t.Errorf("GetConfigDir() = %v, want %v", configDir, dir)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if configPath != filepath.Join(dir, "config.yaml") {
		t.Errorf("GetConfigPath() = %v", configPath)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("Version = %v, want 1", reg.Version)
	}
	if reg.Settings == nil {
		t.Fatal("Settings should not be nil")
	}
	if reg.Settings.Endpoint != "http://support-sp.apple.com/sp/product" {
		t.Errorf("Endpoint = %v", reg.Settings.Endpoint)
	}
	if reg.Settings.Timeout() != 10*time.Second {
		t.Errorf("Timeout() = %v, want 10s", reg.Settings.Timeout())
	}
	if reg.Settings.ErrorBannerDuration() != 3*time.Second {
		t.Errorf("ErrorBannerDuration() = %v, want 3s", reg.Settings.ErrorBannerDuration())
	}
	if !reg.Settings.UppercaseInput {
		t.Error("UppercaseInput should default to true")
	}
	if reg.Settings.Server == nil || reg.Settings.Server.Port != 8080 {
		t.Errorf("Server = %+v, want port 8080", reg.Settings.Server)
	}
}

func TestRegistryAddHistory(t *testing.T) {
	reg := NewRegistry()
	reg.Settings.HistorySize = 3

	reg.AddHistory("C02ABCDEFGHI", "FGHI", "MacBook Pro")
	reg.AddHistory("XYZ", "XYZ", "iMac")
	reg.AddHistory("W8823ABCDEF", "DEF", "Mac mini")

	if len(reg.History) != 3 {
		t.Fatalf("len(History) = %d, want 3", len(reg.History))
	}
	if reg.History[0].Key != "DEF" {
		t.Errorf("History[0].Key = %v, want DEF (newest first)", reg.History[0].Key)
	}

	// Same key moves to front without duplicating
	reg.AddHistory("FGHI", "FGHI", "MacBook Pro")
	if len(reg.History) != 3 {
		t.Fatalf("len(History) = %d, want 3", len(reg.History))
	}
	if reg.History[0].Key != "FGHI" {
		t.Errorf("History[0].Key = %v, want FGHI", reg.History[0].Key)
	}

	// Exceeding the limit drops the oldest
	reg.AddHistory("AAA", "AAA", "Xserve")
	if len(reg.History) != 3 {
		t.Fatalf("len(History) = %d, want 3", len(reg.History))
	}
	for _, e := range reg.History {
		if e.Key == "XYZ" {
			t.Error("oldest entry XYZ should have been dropped")
		}
	}
}

func TestRegistryAddHistory_Disabled(t *testing.T) {
	reg := NewRegistry()
	reg.Settings.HistorySize = 0

	reg.AddHistory("XYZ", "XYZ", "iMac")

	if len(reg.History) != 0 {
		t.Errorf("len(History) = %d, want 0 when history is disabled", len(reg.History))
	}
}

func TestRegistryClearHistory(t *testing.T) {
	reg := NewRegistry()
	reg.AddHistory("XYZ", "XYZ", "iMac")
	reg.ClearHistory()

	if len(reg.History) != 0 {
		t.Errorf("len(History) = %d, want 0", len(reg.History))
	}
}

func TestRegistryRecentModels(t *testing.T) {
	reg := NewRegistry()
	reg.AddHistory("AAA", "AAA", "One")
	reg.AddHistory("BBB", "BBB", "Two")

	if got := reg.RecentModels(1); len(got) != 1 || got[0].Model != "Two" {
		t.Errorf("RecentModels(1) = %+v", got)
	}
	if got := reg.RecentModels(10); len(got) != 2 {
		t.Errorf("RecentModels(10) returned %d entries, want 2", len(got))
	}
	if got := reg.RecentModels(0); got != nil {
		t.Errorf("RecentModels(0) = %+v, want nil", got)
	}
}

func TestSaveAndLoad(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	reg := NewRegistry()
	reg.Settings.Endpoint = "http://localhost:9999/sp/product"
	reg.Settings.TimeoutSeconds = 4
	reg.AddHistory("C02ABCDEFGHI", "FGHI", "MacBook Pro")

	if err := reg.SaveTo(configPath); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("config file permissions = %v, want 0600", info.Mode().Perm())
	}
	if _, err := os.Stat(configPath + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not be left behind")
	}

	loaded, err := LoadRegistryFrom(configPath)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}

	if loaded.Settings.Endpoint != "http://localhost:9999/sp/product" {
		t.Errorf("Endpoint = %v", loaded.Settings.Endpoint)
	}
	if loaded.Settings.TimeoutSeconds != 4 {
		t.Errorf("TimeoutSeconds = %v, want 4", loaded.Settings.TimeoutSeconds)
	}
	if len(loaded.History) != 1 || loaded.History[0].Model != "MacBook Pro" {
		t.Errorf("History = %+v", loaded.History)
	}
}

func TestLoadRegistryFrom_Missing(t *testing.T) {
	reg, err := LoadRegistryFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}
	if reg.Version != 1 || reg.Settings == nil {
		t.Errorf("missing file should yield defaults, got %+v", reg)
	}
}

func TestLoadRegistryFrom_FillsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := "version: 1\nsettings:\n  uppercase_input: false\n"
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadRegistryFrom(configPath)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}

	if reg.Settings.UppercaseInput {
		t.Error("UppercaseInput should keep the file's false")
	}
	if reg.Settings.Endpoint == "" || reg.Settings.TimeoutSeconds != DefaultTimeoutSeconds {
		t.Errorf("zero settings should be filled: %+v", reg.Settings)
	}
	if reg.Settings.Server == nil {
		t.Error("Server settings should be filled")
	}
}

func TestLoadRegistryFrom_AbsentKeysKeepDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := "version: 1\nsettings:\n  timeout_seconds: 5\n  server:\n    host: 127.0.0.1\n"
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadRegistryFrom(configPath)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}

	if !reg.Settings.UppercaseInput {
		t.Error("UppercaseInput should default to true when the key is absent")
	}
	if reg.Settings.TimeoutSeconds != 5 {
		t.Errorf("TimeoutSeconds = %d, want 5", reg.Settings.TimeoutSeconds)
	}
	if reg.Settings.HistorySize != DefaultHistorySize {
		t.Errorf("HistorySize = %d, want %d", reg.Settings.HistorySize, DefaultHistorySize)
	}
	if reg.Settings.Server.Host != "127.0.0.1" || reg.Settings.Server.Port != DefaultServerPort {
		t.Errorf("Server = %+v", reg.Settings.Server)
	}
}

func TestLoadRegistryFrom_BadVersion(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("version: 2\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadRegistryFrom(configPath); err == nil {
		t.Error("LoadRegistryFrom() should reject unsupported versions")
	}
}

func TestLoadRegistryFrom_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("version: [unterminated"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadRegistryFrom(configPath); err == nil {
		t.Error("LoadRegistryFrom() should fail on invalid YAML")
	}
}

func TestEnvironmentApply(t *testing.T) {
	t.Setenv("MODELFINDER_ENDPOINT", "http://127.0.0.1:1/sp/product")
	t.Setenv("MODELFINDER_TIMEOUT", "1500ms")

	e, err := LoadEnvironment()
	if err != nil {
		t.Fatalf("LoadEnvironment() error = %v", err)
	}

	s := DefaultSettings()
	e.Apply(s)

	if s.Endpoint != "http://127.0.0.1:1/sp/product" {
		t.Errorf("Endpoint = %v", s.Endpoint)
	}
	if s.TimeoutSeconds != 2 {
		t.Errorf("TimeoutSeconds = %v, want 2 (rounded up)", s.TimeoutSeconds)
	}
}

func TestLoadEnvironment_InvalidDuration(t *testing.T) {
	t.Setenv("MODELFINDER_TIMEOUT", "soon")

	if _, err := LoadEnvironment(); err == nil {
		t.Error("LoadEnvironment() should reject an invalid duration")
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MODELFINDER_CONFIG_DIR", dir)

	path, err := CreateDefaultConfig()
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}
	if path != filepath.Join(dir, "config.yaml") {
		t.Errorf("path = %v", path)
	}

	if _, err := CreateDefaultConfig(); err == nil {
		t.Error("CreateDefaultConfig() should refuse to overwrite")
	}
}

func TestSave_DoesNotPersistEnvironment(t *testing.T) {
	resetGlobalRegistry(t)
	dir := t.TempDir()
	t.Setenv("MODELFINDER_CONFIG_DIR", dir)
	t.Setenv("MODELFINDER_ENDPOINT", "http://127.0.0.1:9/mock")
	t.Setenv("MODELFINDER_TIMEOUT", "1s")

	reg, err := LoadRegistry()
	if err != nil {
		t.Fatalf("LoadRegistry() error = %v", err)
	}

	effective := reg.Effective()
	if effective.Endpoint != "http://127.0.0.1:9/mock" || effective.TimeoutSeconds != 1 {
		t.Errorf("Effective() = %+v, want environment overrides", effective)
	}
	if reg.Settings.Endpoint != DefaultSettings().Endpoint {
		t.Errorf("Settings.Endpoint = %q, want file value", reg.Settings.Endpoint)
	}

	reg.AddHistory("C02ABCDEFGHI", "FGHI", "MacBook Pro")
	if err := reg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadRegistryFrom(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}
	if loaded.Settings.Endpoint != DefaultSettings().Endpoint {
		t.Errorf("persisted endpoint = %q, want default", loaded.Settings.Endpoint)
	}
	if loaded.Settings.TimeoutSeconds != DefaultTimeoutSeconds {
		t.Errorf("persisted timeout_seconds = %d, want %d", loaded.Settings.TimeoutSeconds, DefaultTimeoutSeconds)
	}
	if len(loaded.History) != 1 {
		t.Errorf("len(History) = %d, want 1", len(loaded.History))
	}
}

func TestEffective_CopiesSettings(t *testing.T) {
	reg := NewRegistry()
	reg.env = Environment{Endpoint: "http://example.test/sp/product"}

	effective := reg.Effective()
	effective.Server.Port = 1

	if reg.Settings.Endpoint == effective.Endpoint {
		t.Error("Effective() should not modify the registry's settings")
	}
	if reg.Settings.Server.Port != DefaultServerPort {
		t.Error("Effective() should copy the server settings")
	}
}

func TestSaveGlobal(t *testing.T) {
	resetGlobalRegistry(t)
	dir := t.TempDir()
	t.Setenv("MODELFINDER_CONFIG_DIR", dir)

	reg, err := LoadRegistry()
	if err != nil {
		t.Fatalf("LoadRegistry() error = %v", err)
	}
	reg.AddHistory("W8823ABCDEF", "DEF", "iMac")

	if err := SaveGlobal(); err != nil {
		t.Fatalf("SaveGlobal() error = %v", err)
	}

	loaded, err := LoadRegistryFrom(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}
	if len(loaded.History) != 1 || loaded.History[0].Key != "DEF" {
		t.Errorf("History = %+v", loaded.History)
	}
}
