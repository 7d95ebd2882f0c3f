// internal/browser/mutations.go
package browser

import (
	"context"
	"fmt"
	"strconv"
)

// mutationBinding is the page-side function name the observer reports through.
const mutationBinding = "__crawleeMutations"

// mutationObserverJS watches the document body for structural and text
// changes. Attribute churn is deliberately not observed, it fires constantly
// on pages that toggle classes and would drown out real content changes.
const mutationObserverJS = `(() => {
	if (window.__crawleeMutationsInstalled) {
		return;
	}
	window.__crawleeMutationsInstalled = true;
	const report = (count) => {
		try {
			window.` + mutationBinding + `(String(count));
		} catch (e) {}
	};
	const start = () => {
		const target = document.body || document.documentElement;
		if (!target) {
			return;
		}
		new MutationObserver((batch) => {
			report(batch.length);
		}).observe(target, {
			childList: true,
			subtree: true,
			characterData: true,
		});
	};
	if (document.body) {
		start();
	} else {
		document.addEventListener('DOMContentLoaded', start);
	}
})();`

// InstallMutationProbe wires a MutationObserver into the page that feeds the
// page's mutation counter. It matches the PageHook signature so it can be
// registered on a pool directly.
func InstallMutationProbe(_ context.Context, pg *Page) error {
	err := pg.AddBinding(mutationBinding, func(payload string) {
		if n, err := strconv.ParseInt(payload, 10, 64); err == nil {
			pg.mutations.Add(n)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to install mutation binding: %w", err)
	}
	if err := pg.Evaluate(mutationObserverJS, nil); err != nil {
		return fmt.Errorf("failed to inject mutation observer: %w", err)
	}
	return nil
}
