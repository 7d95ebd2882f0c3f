// internal/jsstate/jsstate_test.go
package jsstate

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse test HTML: %v", err)
	}
	return doc
}

func TestHarvestExtractsGlobals(t *testing.T) {
	html := `<html><head>
		<script>var productName = "Widget"; window.price = 19.99;</script>
		<script src="https://cdn.example.com/app.js"></script>
	</head><body></body></html>`

	state := Harvest(parse(t, html), "https://example.com/product")

	if state["productName"] != "Widget" {
		t.Errorf("productName = %q, want %q", state["productName"], "Widget")
	}
	if state["price"] != "19.99" {
		t.Errorf("price = %q, want %q", state["price"], "19.99")
	}
}

func TestHarvestSkipsStandardGlobalsAndFunctions(t *testing.T) {
	html := `<html><head><script>
		var data = {id: 7};
		function helper() { return 1; }
	</script></head><body></body></html>`

	state := Harvest(parse(t, html), "https://example.com")

	if _, ok := state["helper"]; ok {
		t.Error("functions should not be harvested")
	}
	if _, ok := state["document"]; ok {
		t.Error("stubbed browser globals should not be harvested")
	}
	if _, ok := state["data"]; !ok {
		t.Errorf("expected data global, got %v", state)
	}
}

func TestHarvestToleratesBrokenScripts(t *testing.T) {
	html := `<html><head>
		<script>document.querySelector(".missing").textContent;</script>
		<script>var survivor = "yes";</script>
		<script type="application/ld+json">{"@type": "Product"}</script>
	</head><body></body></html>`

	state := Harvest(parse(t, html), "https://example.com")

	if state["survivor"] != "yes" {
		t.Errorf("later scripts should still run after one fails, got %v", state)
	}
}

func TestHarvestNilDocument(t *testing.T) {
	if state := Harvest(nil, "https://example.com"); state != nil {
		t.Errorf("expected nil for nil document, got %v", state)
	}
}
