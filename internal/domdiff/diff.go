// internal/domdiff/diff.go
package domdiff

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Subtrees that never carry visible structure; their contents change freely
// between a static fetch and a rendered page without meaning anything.
var skippedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// The document skeleton exists even for an empty input and says nothing
// about content, so it is excluded from counting.
var skeletonTags = map[string]bool{
	"html": true,
	"head": true,
	"body": true,
}

// ChangeRatio measures how much two documents differ structurally, as a value
// in [0,1]: 0 for structurally identical documents, approaching 1 when they
// share nothing. The metric is the Dice dissimilarity of the two documents'
// element-tag multisets, which is cheap, order-independent and deterministic.
// Returns nil when either document is nil or contains no content elements.
func ChangeRatio(staticDoc, renderedDoc *goquery.Document) *float64 {
	a := tagCounts(staticDoc)
	b := tagCounts(renderedDoc)

	na := total(a)
	nb := total(b)
	if na == 0 || nb == 0 {
		return nil
	}

	common := 0
	for tag, ca := range a {
		if cb := b[tag]; cb > 0 {
			if ca < cb {
				common += ca
			} else {
				common += cb
			}
		}
	}

	ratio := 1 - 2*float64(common)/float64(na+nb)
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return &ratio
}

// ElementCount returns the number of content elements in a document, with the
// same exclusions ChangeRatio applies.
func ElementCount(doc *goquery.Document) int {
	return total(tagCounts(doc))
}

func tagCounts(doc *goquery.Document) map[string]int {
	counts := make(map[string]int)
	if doc == nil {
		return counts
	}
	for _, root := range doc.Nodes {
		countNode(root, counts)
	}
	return counts
}

func countNode(n *html.Node, counts map[string]int) {
	if n.Type == html.ElementNode {
		if skippedTags[n.Data] {
			return
		}
		if !skeletonTags[n.Data] {
			counts[n.Data]++
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		countNode(c, counts)
	}
}

func total(counts map[string]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}
