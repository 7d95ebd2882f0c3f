// internal/export/export_test.go
package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wpitallo/crawlee/pkg/models"
)

func TestSaveJSONStripsHTML(t *testing.T) {
	records := []models.Record{
		{"url": "https://example.com/a", "title": "Page A", "html": "<html><body>A</body></html>"},
		{"url": "https://example.com/b", "title": "Page B"},
	}
	path := filepath.Join(t.TempDir(), "out.json")

	if err := SaveJSON(records, path); err != nil {
		t.Fatalf("SaveJSON failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	var decoded []map[string]interface{}
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 records, got %d", len(decoded))
	}
	if _, ok := decoded[0]["html"]; ok {
		t.Error("expected html field to be stripped from JSON export")
	}
	if decoded[0]["title"] != "Page A" {
		t.Errorf("expected title 'Page A', got %v", decoded[0]["title"])
	}
}

func TestSaveCSV(t *testing.T) {
	records := []models.Record{
		{"url": "https://example.com/a", "title": "Page A", "count": 3, "html": "<p>A</p>"},
		{"url": "https://example.com/b", "author": "Ada"},
	}
	path := filepath.Join(t.TempDir(), "out.csv")

	if err := SaveCSV(records, path); err != nil {
		t.Fatalf("SaveCSV failed: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d rows", len(rows))
	}

	wantHeader := []string{"author", "count", "title", "url"}
	if len(rows[0]) != len(wantHeader) {
		t.Fatalf("expected header %v, got %v", wantHeader, rows[0])
	}
	for i, h := range wantHeader {
		if rows[0][i] != h {
			t.Errorf("header[%d]: expected %q, got %q", i, h, rows[0][i])
		}
	}

	// First record has no author, second has no title or count.
	if rows[1][0] != "" || rows[1][1] != "3" || rows[1][2] != "Page A" {
		t.Errorf("unexpected first row: %v", rows[1])
	}
	if rows[2][0] != "Ada" || rows[2][1] != "" || rows[2][2] != "" {
		t.Errorf("unexpected second row: %v", rows[2])
	}
}

func TestSaveCSVEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := SaveCSV(nil, path); err != nil {
		t.Fatalf("SaveCSV failed on empty input: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if len(content) != 0 {
		t.Errorf("expected empty file for no records, got %q", content)
	}
}

func TestSaveMarkdown(t *testing.T) {
	records := []models.Record{
		{
			"url":   "https://example.com/docs/",
			"title": "Docs Home",
			"html":  `<html><body><h2>Guides</h2><a href="intro">Intro</a><script>alert(1)</script></body></html>`,
		},
		{"url": "https://example.com/about"},
	}
	path := filepath.Join(t.TempDir(), "out.md")

	if err := SaveMarkdown(records, path); err != nil {
		t.Fatalf("SaveMarkdown failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	text := string(content)

	if !strings.Contains(text, "# Docs Home") {
		t.Error("expected heading from record title")
	}
	if !strings.Contains(text, "# https://example.com/about") {
		t.Error("expected URL heading for untitled record")
	}
	if !strings.Contains(text, "\n---\n") {
		t.Error("expected separator between records")
	}
	if !strings.Contains(text, "(https://example.com/docs/intro)") {
		t.Errorf("expected relative link resolved against record URL, got:\n%s", text)
	}
	if strings.Contains(text, "alert(1)") {
		t.Error("expected script content to be removed")
	}
}

func TestSaveUnknownFormat(t *testing.T) {
	err := Save(nil, "xml", filepath.Join(t.TempDir(), "out.xml"))
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
	if !strings.Contains(err.Error(), "unsupported export format") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCleanHTML(t *testing.T) {
	input := `<html><body>
		<script>var x = 1;</script>
		<style>.a { color: red; }</style>
		<a href="/page" onclick="track()" title="Page">link</a>
		<img src="/pic.png" width="100" alt="pic">
		<p data-id="7">text</p>
	</body></html>`

	cleaned, err := CleanHTML(input)
	if err != nil {
		t.Fatalf("CleanHTML failed: %v", err)
	}

	if strings.Contains(cleaned, "<script") || strings.Contains(cleaned, "var x") {
		t.Error("expected scripts to be removed")
	}
	if strings.Contains(cleaned, "<style") {
		t.Error("expected styles to be removed")
	}
	if !strings.Contains(cleaned, `href="/page"`) {
		t.Error("expected anchor href to be preserved")
	}
	if strings.Contains(cleaned, "onclick") {
		t.Error("expected onclick attribute to be stripped")
	}
	if !strings.Contains(cleaned, `src="/pic.png"`) || !strings.Contains(cleaned, `alt="pic"`) {
		t.Error("expected img src and alt to be preserved")
	}
	if strings.Contains(cleaned, "width=") || strings.Contains(cleaned, "data-id") {
		t.Error("expected non-whitelisted attributes to be stripped")
	}
}
