// internal/adaptive/classify.go
package adaptive

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wpitallo/crawlee/pkg/models"
)

const (
	// DefaultChangeRatioThreshold is how different the rendered document must
	// be from the static one before a page counts as client-rendered.
	DefaultChangeRatioThreshold = 0.1

	// DefaultMutationThreshold is how many DOM mutations during rendering
	// mark a page as client-rendered. Small counts are normal noise from ads
	// and analytics snippets.
	DefaultMutationThreshold = 20
)

// DetectionInput is everything a classifier gets to judge one page: both
// documents, the measured difference between them, the DOM mutation count
// observed while rendering, and what each extraction path produced.
type DetectionInput struct {
	URL              string
	StaticDocument   *goquery.Document
	RenderedDocument *goquery.Document
	ChangeRatio      *float64
	MutationCount    int64
	StaticRun        *RunResult
	RenderRun        *RunResult
}

// Classifier labels a page's rendering requirement from a detection probe.
type Classifier func(in DetectionInput) models.RenderingType

// Validator judges whether one statically extracted record is trustworthy.
type Validator func(rec models.Record) bool

// NewDefaultClassifier returns a classifier that calls a page client-rendered
// when the rendered document diverged structurally from the static one, when
// rendering produced heavy DOM mutation, when the static document looks like
// an application shell, or when the rendered path extracted strictly more
// than the static path did. Non-positive thresholds fall back to the
// defaults.
func NewDefaultClassifier(changeRatioThreshold float64, mutationThreshold int64) Classifier {
	if changeRatioThreshold <= 0 {
		changeRatioThreshold = DefaultChangeRatioThreshold
	}
	if mutationThreshold <= 0 {
		mutationThreshold = DefaultMutationThreshold
	}

	return func(in DetectionInput) models.RenderingType {
		if in.ChangeRatio != nil && *in.ChangeRatio >= changeRatioThreshold {
			return models.RenderingClientOnly
		}
		if in.MutationCount >= mutationThreshold {
			return models.RenderingClientOnly
		}
		if looksLikeAppShell(in.StaticDocument) {
			return models.RenderingClientOnly
		}
		if in.StaticRun != nil && in.RenderRun != nil {
			if len(in.RenderRun.Records()) > len(in.StaticRun.Records()) {
				return models.RenderingClientOnly
			}
			if len(in.RenderRun.Links()) > len(in.StaticRun.Links()) {
				return models.RenderingClientOnly
			}
		}
		return models.RenderingStatic
	}
}

// shellTextFloor is how little body text a mount-point page may carry before
// it counts as an empty shell.
const shellTextFloor = 200

// looksLikeAppShell reports whether a static document resembles an SPA
// shell served before hydration. Only attributes and structure are
// inspected; a page that merely mentions a framework in its text must not
// trip it.
func looksLikeAppShell(doc *goquery.Document) bool {
	if doc == nil {
		return false
	}

	if doc.Find("[data-reactroot], [data-react-helmet], [ng-version], [ng-app], [data-server-rendered], [data-v-app]").Length() > 0 {
		return true
	}

	bodyText := len(strings.TrimSpace(doc.Find("body").Text()))
	if doc.Find("#root, #app, #__next, #___gatsby").Length() > 0 && bodyText < shellTextFloor {
		return true
	}
	if doc.Find("script").Length() > 0 && doc.Find("body div").Length() < 3 && bodyText < shellTextFloor/2 {
		return true
	}

	return false
}

// DefaultValidator accepts a record when it carries at least one non-empty
// value. Pages that serve only an application shell tend to extract into
// empty strings, which is exactly the case static extraction must not trust.
func DefaultValidator(rec models.Record) bool {
	if len(rec) == 0 {
		return false
	}
	for _, v := range rec {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			if strings.TrimSpace(val) != "" {
				return true
			}
		default:
			return true
		}
	}
	return false
}
