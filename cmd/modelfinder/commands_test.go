package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/muurk/modelfinder/internal/config"
	"github.com/muurk/modelfinder/internal/lookup"
)

func resetFlags() {
	endpoint, timeoutSecs, viaURL, discover = "", 0, "", false
}

func TestResolveLookup_Endpoint(t *testing.T) {
	t.Cleanup(resetFlags)

	apple := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<root><configCode>Model %s</configCode></root>", r.URL.Query().Get("cc"))
	}))
	defer apple.Close()

	settings := config.DefaultSettings()
	endpoint = apple.URL

	fn, source, err := resolveLookup(context.Background(), settings)
	if err != nil {
		t.Fatalf("resolveLookup() error = %v", err)
	}
	if source != apple.URL {
		t.Errorf("source = %q, want %q", source, apple.URL)
	}

	results := lookupAll(context.Background(), fn, []string{"C02ABCDEFGHI", "ABCDE", "W8823ABCDEF"})
	if results[0].Model != "Model FGHI" || results[2].Model != "Model DEF" {
		t.Errorf("results out of order: %+v", results)
	}
	if !lookup.IsInvalidLength(results[1].Err) {
		t.Errorf("results[1] = %+v, want invalid length", results[1])
	}
}

func TestResolveLookup_Via(t *testing.T) {
	t.Cleanup(resetFlags)

	viaURL = "http://192.0.2.1:8080"
	_, source, err := resolveLookup(context.Background(), config.DefaultSettings())
	if err != nil {
		t.Fatalf("resolveLookup() error = %v", err)
	}
	if source != "http://192.0.2.1:8080/api/v1/lookup" {
		t.Errorf("source = %q", source)
	}
}

func TestResolveLookup_BadEndpoint(t *testing.T) {
	t.Cleanup(resetFlags)

	endpoint = "support-sp.apple.com/sp/product"
	_, _, err := resolveLookup(context.Background(), config.DefaultSettings())
	if err == nil || !strings.Contains(err.Error(), "invalid endpoint") {
		t.Errorf("resolveLookup() error = %v, want invalid endpoint", err)
	}
}

func TestRecordHistory(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MODELFINDER_CONFIG_DIR", dir)
	t.Setenv("MODELFINDER_ENDPOINT", "http://127.0.0.1:9/mock")

	reg := config.NewRegistry()
	recordHistory(reg, []lookup.Result{
		lookup.ModelResult("C02ABCDEFGHI", "FGHI", "MacBook Pro"),
		lookup.FailureResult("ABCDE", "", lookup.NewInvalidLengthError()),
	})

	loaded, err := config.LoadRegistryFrom(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}
	if len(loaded.History) != 1 || loaded.History[0].Key != "FGHI" {
		t.Errorf("History = %+v, want only the successful lookup", loaded.History)
	}
	if loaded.Settings.Endpoint != config.DefaultSettings().Endpoint {
		t.Errorf("persisted endpoint = %q, want default", loaded.Settings.Endpoint)
	}
}
