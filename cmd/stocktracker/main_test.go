package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aluiziolira/go-scrape-stock/models"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "stocktracker.yaml")
	body := fmt.Sprintf("storage:\n  backend: csv\n  registryPath: %s\n  ledgerPath: %s\n",
		filepath.Join(dir, "brands.csv"), filepath.Join(dir, "ledger.csv"))
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestBrandsAddAndList(t *testing.T) {
	cfg := writeConfig(t)

	if _, err := execute(t, "-c", cfg, "brands", "add", "Fresho", "https://shop.test/pb/fresho/"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := execute(t, "-c", cfg, "brands", "add", "Amul", "https://shop.test/pb/amul/"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := execute(t, "-c", cfg, "brands", "add", "Amul", "https://shop.test/pb/other/"); err == nil {
		t.Fatal("expected duplicate brand error")
	}

	out, err := execute(t, "-c", cfg, "brands", "list", "--match", "fres")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "https://shop.test/pb/fresho/") || strings.Contains(out, "Amul") {
		t.Fatalf("unexpected list output:\n%s", out)
	}
}

func TestQueryEmptyLedger(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "-c", cfg, "query", "Fresho")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !strings.Contains(out, "no matching rows for Fresho") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestQueryFilteredAndAll(t *testing.T) {
	cfg := writeConfig(t)
	ledger := "Brand,Product Name,Price,Quantity,Timestamp,Stock Availability,Product URL\n" +
		"Fresho,Onion,₹40,1 kg,2024-03-09 14:05:00,Out of Stock,https://shop.test/pd/1/\n" +
		"Fresho,Garlic,₹30,250 g,2024-03-09 14:05:00,In Stock,https://shop.test/pd/2/\n"
	if err := os.WriteFile(filepath.Join(filepath.Dir(cfg), "ledger.csv"), []byte(ledger), 0o644); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	out, err := execute(t, "-c", cfg, "query", "Fresho")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !strings.Contains(out, "Onion") || strings.Contains(out, "Garlic") {
		t.Fatalf("filtered query should list only unavailable rows:\n%s", out)
	}

	out, err = execute(t, "-c", cfg, "query", "Fresho", "--all")
	if err != nil {
		t.Fatalf("query --all: %v", err)
	}
	if !strings.Contains(out, "Onion") || !strings.Contains(out, "Garlic") {
		t.Fatalf("--all should list every row:\n%s", out)
	}
}

func TestQuerySuggestsRegisteredBrand(t *testing.T) {
	cfg := writeConfig(t)
	if _, err := execute(t, "-c", cfg, "brands", "add", "Fresho", "https://shop.test/pb/fresho/"); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, err := execute(t, "-c", cfg, "query", "Freshoo")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !strings.Contains(out, `did you mean "Fresho"?`) {
		t.Fatalf("expected suggestion, got %q", out)
	}
}

func TestRunRejectsNegativeDelay(t *testing.T) {
	cfg := writeConfig(t)
	_, err := execute(t, "-c", cfg, "run", "--delay=-1s", "Fresho")
	if err == nil || !strings.Contains(err.Error(), "delay") {
		t.Fatalf("err=%v, want delay validation error", err)
	}
}

func TestExportOutcomesDual(t *testing.T) {
	dir := t.TempDir()
	outcomes := []models.BrandOutcome{{RunID: "run-1", Brand: "Fresho", Status: models.StatusEmpty}}

	if err := exportOutcomes("dual", filepath.Join(dir, "out.jsonl"), outcomes); err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, name := range []string{"out.csv", "out.jsonl"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("stat %s: %v", name, err)
		}
	}
}

func TestInvalidFlagOverride(t *testing.T) {
	cfg := writeConfig(t)

	_, err := execute(t, "-c", cfg, "--filter", "maybe", "query", "Fresho")
	if err == nil || !strings.Contains(err.Error(), "filter") {
		t.Fatalf("err=%v, want filter validation error", err)
	}
}

func TestRunRequiresBrand(t *testing.T) {
	cfg := writeConfig(t)
	if _, err := execute(t, "-c", cfg, "run"); err == nil {
		t.Fatal("expected argument error")
	}
}
