// internal/jsstate/jsstate.go
package jsstate

import (
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"github.com/rs/zerolog/log"
)

// scriptBudget bounds how long the sandbox may spend on one page's scripts.
const scriptBudget = 500 * time.Millisecond

// Harvest runs a document's inline scripts in a sandboxed JS VM and returns
// the globals they defined, keyed by name. Many pages embed their data as
// window assignments (state blobs, config objects); running just the inline
// scripts against a stub browser environment is often enough to surface it
// without rendering. Scripts that fail (most do, there is no real DOM) are
// skipped silently.
func Harvest(doc *goquery.Document, pageURL string) map[string]string {
	if doc == nil {
		return nil
	}

	vm := goja.New()

	// Minimal browser environment: just enough to let assignment-style
	// scripts run. Globals land on window == the VM's global object.
	vm.Set("window", vm.GlobalObject())
	vm.Set("self", vm.GlobalObject())
	vm.Set("document", map[string]interface{}{
		"location": map[string]interface{}{
			"href": pageURL,
		},
	})
	vm.Set("location", map[string]interface{}{
		"href": pageURL,
	})
	vm.Set("console", map[string]interface{}{
		"log":   func(call goja.FunctionCall) goja.Value { return nil },
		"error": func(call goja.FunctionCall) goja.Value { return nil },
	})

	// A runaway script (busy loop) must not stall extraction.
	timer := time.AfterFunc(scriptBudget, func() {
		vm.Interrupt("script budget exceeded")
	})
	defer timer.Stop()

	executed := 0
	doc.Find("script").Each(func(i int, sel *goquery.Selection) {
		if _, external := sel.Attr("src"); external {
			return
		}
		if t, ok := sel.Attr("type"); ok && t != "" && t != "text/javascript" && t != "module" {
			// Data blocks (application/json, ld+json) are not executable.
			return
		}

		script := sel.Text()
		if script == "" {
			return
		}
		if _, err := vm.RunString(script); err != nil {
			// Expected for scripts that touch the real DOM.
			return
		}
		executed++
	})

	state := make(map[string]string)
	for _, key := range vm.GlobalObject().Keys() {
		if isStandardGlobal(key) {
			continue
		}
		val := vm.Get(key)
		if val == nil {
			continue
		}
		if exported := val.Export(); exported != nil {
			if _, isFn := goja.AssertFunction(val); isFn {
				continue
			}
			state[key] = fmt.Sprintf("%v", exported)
		}
	}

	if len(state) > 0 {
		log.Debug().
			Str("url", pageURL).
			Int("scripts", executed).
			Int("globals", len(state)).
			Msg("Harvested inline script state")
	}

	return state
}

func isStandardGlobal(key string) bool {
	standards := map[string]bool{
		"window": true, "self": true, "document": true, "location": true, "console": true,
		"Object": true, "Array": true, "String": true, "Number": true, "Boolean": true,
		"Date": true, "Math": true, "JSON": true, "RegExp": true, "Error": true,
		"Function": true, "parseInt": true, "parseFloat": true, "isNaN": true,
		"isFinite": true, "encodeURI": true, "decodeURI": true, "encodeURIComponent": true,
		"decodeURIComponent": true, "undefined": true, "NaN": true, "Infinity": true,
	}
	return standards[key]
}
