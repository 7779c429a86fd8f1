// Package parser turns the free-text CR field of a bibliography entry into
// structured review citations.
package parser

import (
	"regexp"
	"strings"

	"example.com/crcheck/biblio"
	"go.uber.org/zap"
)

// page marker: "pp. 132-133" or "p. 45"
var pagesRe = regexp.MustCompile(`(pp\. |p\. )\d+(-\d+)?`)

var rangeRe = regexp.MustCompile(`(\d+)-(\d+)`)

var numberRe = regexp.MustCompile(`\d+`)

// publication year, 1900-2099 only
var yearRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// issue number sits right before the parenthesised year: "ArchPF 11 (1933)"
var issueRe = regexp.MustCompile(` (\d+) \(`)

var urlRe = regexp.MustCompile(`\s*(https?://[^\s>]+)\s*`)

// URL tokens are skipped by the page, year and issue steps
var urlSpanRe = regexp.MustCompile(`https?://[^\s<>]+`)

// a bare & that does not start an entity
var ampRe = regexp.MustCompile(`&(#?\w+;)?`)

const segmentDelimiter = " - "

var blobPrefixes = []string{"C.R. par ", "C.R. "}

// JournalResolver maps a journal name to its canonical ID.
type JournalResolver interface {
	Resolve(name string) string
}

// Parser splits CR blobs into citations and resolves their journals.
type Parser struct {
	journals JournalResolver
	logger   *zap.Logger
}

// New returns a parser. logger may be nil.
func New(journals JournalResolver, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{journals: journals, logger: logger}
}

// Segments strips the C.R. prefixes and splits the blob into one string per
// review. k delimiters always yield k+1 segments.
func Segments(blob string) []string {
	for _, p := range blobPrefixes {
		blob = strings.ReplaceAll(blob, p, "")
	}
	return strings.Split(blob, segmentDelimiter)
}

// Parse builds one citation per segment of blob. entry may be nil when the
// blob is parsed on its own.
func (p *Parser) Parse(blob string, entry *biblio.Entry) []*biblio.Citation {
	segments := Segments(blob)

	var markupLinks []string
	if entry != nil {
		markupLinks = MarkupLinks(entry.CRMarkup)
	}

	citations := make([]*biblio.Citation, 0, len(segments))
	for i, seg := range segments {
		c := p.parseSegment(seg, entry)
		if !c.HasLink() {
			c.Link = fallbackLink(markupLinks, i, len(segments))
		}
		citations = append(citations, c)
	}
	return citations
}

// ParseEntry parses the CR field of entry and attaches the result to it.
func (p *Parser) ParseEntry(entry *biblio.Entry) []*biblio.Citation {
	cr := entry.CR()
	if strings.TrimSpace(cr) == "" {
		return nil
	}
	p.logger.Debug("processing CR data", zap.String("entry", entry.ID), zap.String("cr", cr))
	citations := p.Parse(cr, entry)
	entry.Citations = append(entry.Citations, citations...)
	return citations
}

// ParseAll parses every non-review entry carrying CR text and returns the
// number of citations produced.
func (p *Parser) ParseAll(entries []*biblio.Entry) int {
	total := 0
	for _, e := range entries {
		if e.IsReview {
			continue
		}
		total += len(p.ParseEntry(e))
	}
	return total
}

func (p *Parser) parseSegment(segment string, entry *biblio.Entry) *biblio.Citation {
	segment = strings.TrimSpace(segment)
	c := &biblio.Citation{
		Source:      entry,
		ID:          biblio.None,
		Forename:    biblio.None,
		Date:        biblio.None,
		PageStart:   biblio.None,
		PageEnd:     biblio.None,
		Link:        biblio.NoLink,
		AppearsInID: biblio.None,
	}
	if entry != nil {
		c.AppearsInID = entry.ID
	}

	// 1) author: everything before the first comma
	name, _, _ := strings.Cut(segment, ",")
	c.Author = strings.TrimSpace(name)
	c.Forename, c.Surname = splitName(c.Author)
	rest := strings.Replace(segment, name+",", "", 1)

	// 2) pages
	if loc := findOutsideURLs(pagesRe, rest); loc != nil {
		m := rest[loc[0]:loc[1]]
		if r := rangeRe.FindStringSubmatch(m); r != nil {
			c.PageStart, c.PageEnd = r[1], r[2]
		} else {
			c.PageStart = numberRe.FindString(m)
		}
		rest = rest[:loc[0]] + rest[loc[1]:]
	}

	// 3) year
	if loc := findOutsideURLs(yearRe, rest); loc != nil {
		c.Date = rest[loc[0]:loc[1]]
		rest = rest[:loc[0]] + rest[loc[1]:]
	}

	// 4) issue
	if loc := findOutsideURLs(issueRe, rest); loc != nil {
		c.Issue = rest[loc[2]:loc[3]]
		rest = rest[:loc[0]] + rest[loc[1]:]
	}

	// 5) drop the parenthesised tail
	if i := strings.Index(rest, ")"); i >= 0 {
		rest = rest[:i]
	}
	rest = trimTail(rest)

	// 6) link
	if i := strings.Index(rest, "http"); i >= 0 {
		token := rest[i:]
		after := ""
		if j := strings.IndexAny(token, " \t\n"); j >= 0 {
			token, after = token[:j], token[j:]
		}
		c.Link = cleanLink(token)
		before := strings.TrimSpace(rest[:i])
		before = strings.TrimSuffix(before, "&lt;")
		before = strings.TrimSuffix(before, "<")
		rest = trimTail(before) + " " + strings.TrimSpace(cleanDecoration(after))
	} else if strings.Contains(segment, "http://") || strings.Contains(segment, "https://") || strings.Contains(rest, "BMCR") {
		if m := urlRe.FindStringSubmatch(segment); m != nil {
			c.Link = cleanLink(m[1])
		}
	}

	// 7) journal: what is left, up to the first comma
	journal := strings.ReplaceAll(rest, "&amp;", "&")
	journal, _, _ = strings.Cut(journal, ",")
	c.Journal = strings.TrimSpace(journal)

	c.Raw = escapeAmpersands(segment)
	c.JournalID = p.journals.Resolve(c.Journal)

	p.logger.Info("parsed citation",
		zap.String("entry", c.AppearsInID),
		zap.String("author", c.Author),
		zap.String("forename", c.Forename),
		zap.String("surname", c.Surname),
		zap.String("pages", c.PageRange()),
		zap.String("year", c.Date),
		zap.String("issue", c.Issue),
		zap.String("link", c.Link),
		zap.String("journal", c.Journal),
		zap.String("journal_id", c.JournalID),
		zap.String("residue", strings.TrimSpace(rest)),
		zap.String("segment", segment),
	)
	if !c.Resolved() {
		p.logger.Warn("reviews may need to be created manually",
			zap.String("entry", c.AppearsInID), zap.String("journal", c.Journal))
	}
	return c
}

// splitName splits an author into forename and surname. "T. Schmidt" splits
// at the first period, "Thomas Schmidt" at the first space.
func splitName(name string) (string, string) {
	forename := biblio.None
	var surnameParts []string
	if i := strings.Index(name, "."); i >= 0 {
		forename = name[:i+1]
		surnameParts = strings.Fields(strings.Replace(name, forename, "", 1))
	} else if fields := strings.Fields(name); len(fields) > 0 {
		forename = fields[0]
		surnameParts = fields[1:]
	}
	if len(surnameParts) == 0 {
		return forename, biblio.ErrorLastName
	}
	return forename, strings.Join(surnameParts, " ")
}

// findOutsideURLs returns the submatch indexes of the first match of re that
// does not overlap a URL token, or nil.
func findOutsideURLs(re *regexp.Regexp, s string) []int {
	urls := urlSpanRe.FindAllStringIndex(s, -1)
	for _, loc := range re.FindAllStringSubmatchIndex(s, -1) {
		inside := false
		for _, u := range urls {
			if loc[0] < u[1] && loc[1] > u[0] {
				inside = true
				break
			}
		}
		if !inside {
			return loc
		}
	}
	return nil
}

func trimTail(s string) string {
	s = strings.TrimSpace(s)
	for strings.HasSuffix(s, ",") || strings.HasSuffix(s, "(") {
		s = strings.TrimSpace(s[:len(s)-1])
	}
	return s
}

func cleanDecoration(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "&gt;")
	return strings.TrimPrefix(s, ">")
}

func escapeAmpersands(s string) string {
	return ampRe.ReplaceAllStringFunc(s, func(m string) string {
		if m == "&" {
			return "&amp;"
		}
		return m
	})
}

// fallbackLink picks a link from the CR markup for segment i of n: links
// line up with segments when the counts agree, and a lone link belongs to a
// lone segment.
func fallbackLink(links []string, i, n int) string {
	switch {
	case len(links) == n:
		return links[i]
	case len(links) == 1 && n == 1:
		return links[0]
	}
	return biblio.NoLink
}
