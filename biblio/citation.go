package biblio

import (
	"fmt"
	"regexp"
	"strings"
)

// Sentinel values kept verbatim in the generated XML.
const (
	None           = "[NONE]"
	NoLink         = "NO LINK"
	UnresolvedID   = "-1"
	ErrorLastName  = "ERROR WITH LAST NAME"
	DefaultBaseURL = "https://papyri.info/biblio/"
)

// Citation is one review parsed from the free-text CR field of an entry.
type Citation struct {
	Source *Entry

	// ID stays None until the record is chosen to be written.
	ID string

	Author    string
	Forename  string
	Surname   string
	Journal   string
	JournalID string
	Issue     string
	Date      string
	PageStart string
	PageEnd   string
	// Raw is the citation segment, ampersand-escaped for XML.
	Raw         string
	Link        string
	AppearsInID string
}

// PageRange is the normalized "start-end" form, or the start page alone for
// single page citations.
func (c *Citation) PageRange() string {
	start := strings.ReplaceAll(strings.ReplaceAll(c.PageStart, "pp. ", ""), " ", "")
	if !c.HasPageEnd() {
		return start
	}
	return start + "-" + c.PageEnd
}

func (c *Citation) HasPageEnd() bool {
	return c.PageEnd != "" && c.PageEnd != None
}

func (c *Citation) HasLink() bool {
	return c.Link != "" && c.Link != NoLink && c.Link != None
}

func (c *Citation) Resolved() bool {
	return c.JournalID != UnresolvedID
}

// TEI renders the citation as a new bibl review record. baseURL prefixes the
// journal and reviewed-entry pointers.
func (c *Citation) TEI(baseURL string) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&sb, `<bibl xmlns="http://www.tei-c.org/ns/1.0" xml:id="b%s" type="review">`+"\n", c.ID)
	fmt.Fprintf(&sb, "<author><surname>%s</surname></author>\n", c.Surname)
	fmt.Fprintf(&sb, "<date>%s</date>\n", c.Date)
	if c.HasPageEnd() {
		fmt.Fprintf(&sb, `<biblScope type="pp" from="%s" to="%s">%s-%s</biblScope>`+"\n",
			c.PageStart, c.PageEnd, c.PageStart, c.PageEnd)
	} else {
		fmt.Fprintf(&sb, `<biblScope type="pp">%s</biblScope>`+"\n", c.PageStart)
	}
	fmt.Fprintf(&sb, `<relatedItem type="appearsIn"><bibl><ptr target="%s%s"/></bibl></relatedItem>`+"\n", escapeAttr(baseURL), c.JournalID)
	fmt.Fprintf(&sb, `<biblScope type="issue">%s</biblScope>`+"\n", c.Issue)
	fmt.Fprintf(&sb, `<relatedItem type="reviews" n="1"><bibl><ptr target="%s%s"/></bibl></relatedItem>`+"\n", escapeAttr(baseURL), c.AppearsInID)
	fmt.Fprintf(&sb, `<idno type="pi">%s</idno>`+"\n", c.ID)
	fmt.Fprintf(&sb, `<seg type="original" subtype="cr" resp="#BP">%s</seg>`+"\n", c.Raw)
	if c.HasLink() {
		fmt.Fprintf(&sb, `<ptr target="%s"/>`+"\n", escapeAttr(c.Link))
	}
	sb.WriteString("</bibl>\n")
	return sb.String()
}

func (c *Citation) String() string {
	return fmt.Sprintf("%s %s, %s [%s] %s (%s) pp. %s, link: %s",
		c.Forename, c.Surname, c.Journal, c.JournalID, c.Issue, c.Date, c.PageRange(), c.Link)
}

// entityRe matches an ampersand together with the entity it may start.
var entityRe = regexp.MustCompile(`&(#?\w+;)?`)

var attrEscaper = strings.NewReplacer(`"`, "&quot;", "<", "&lt;", ">", "&gt;")

// escapeAttr makes s safe inside a double-quoted attribute. Entities already
// present are kept, so escaping is idempotent.
func escapeAttr(s string) string {
	s = entityRe.ReplaceAllStringFunc(s, func(m string) string {
		if m == "&" {
			return "&amp;"
		}
		return m
	})
	return attrEscaper.Replace(s)
}
