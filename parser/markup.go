package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var markupURLRe = regexp.MustCompile(`https?://[^\s<>"]+`)

// MarkupLinks collects the URLs carried by the CR seg markup: target and
// href attributes first, then bare URLs in the text. Order is preserved and
// duplicates dropped.
func MarkupLinks(markup string) []string {
	if strings.TrimSpace(markup) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var links []string
	add := func(u string) {
		u = cleanLink(u)
		if !strings.HasPrefix(u, "http") || seen[u] {
			return
		}
		seen[u] = true
		links = append(links, u)
	}

	doc.Find("[target], [href]").Each(func(i int, s *goquery.Selection) {
		if v, ok := s.Attr("target"); ok {
			add(v)
		}
		if v, ok := s.Attr("href"); ok {
			add(v)
		}
	})
	for _, u := range markupURLRe.FindAllString(doc.Text(), -1) {
		add(u)
	}
	return links
}

// cleanLink strips the closing decoration BP puts around URLs.
func cleanLink(s string) string {
	s = strings.TrimSpace(s)
	for {
		trimmed := strings.TrimSuffix(s, "&gt;")
		trimmed = strings.TrimRight(trimmed, ">.,;")
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}
