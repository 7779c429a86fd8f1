package parser

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"testing"

	"example.com/crcheck/biblio"
	"example.com/crcheck/journals"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testResolver(entries map[string]string) *journals.Resolver {
	table := journals.NewTable()
	for k, v := range entries {
		table.Add(k, v, "")
	}
	return journals.NewResolver(staticLoader{table}, nil)
}

type staticLoader struct{ table *journals.Table }

func (l staticLoader) Load() (*journals.Table, error) { return l.table, nil }

func TestParseScenarioResolved(t *testing.T) {
	p := New(testResolver(map[string]string{"ArchPF": "42"}), nil)
	entry := biblio.NewEntry("1234.xml")
	entry.ID = "1234"

	got := p.Parse("C.R. par T. Schmidt, ArchPF 11 (1933) pp. 132-133.", entry)
	if len(got) != 1 {
		t.Fatalf("got %d citations, want 1", len(got))
	}
	c := got[0]
	checks := []struct{ field, got, want string }{
		{"forename", c.Forename, "T."},
		{"surname", c.Surname, "Schmidt"},
		{"journal", c.Journal, "ArchPF"},
		{"journal id", c.JournalID, "42"},
		{"issue", c.Issue, "11"},
		{"date", c.Date, "1933"},
		{"page start", c.PageStart, "132"},
		{"page end", c.PageEnd, "133"},
		{"appears in", c.AppearsInID, "1234"},
		{"id", c.ID, biblio.None},
		{"link", c.Link, biblio.NoLink},
		{"raw", c.Raw, "T. Schmidt, ArchPF 11 (1933) pp. 132-133."},
	}
	for _, ch := range checks {
		if ch.got != ch.want {
			t.Errorf("%s = %q, want %q", ch.field, ch.got, ch.want)
		}
	}
	if c.Source != entry {
		t.Error("citation should point back at its entry")
	}
}

func TestParseScenarioUnresolved(t *testing.T) {
	r := testResolver(map[string]string{})
	p := New(r, nil)

	got := p.Parse("C.R. par T. Schmidt, ArchPF 11 (1933) pp. 132-133.", nil)
	if len(got) != 1 {
		t.Fatalf("got %d citations, want 1", len(got))
	}
	c := got[0]
	if c.JournalID != journals.Unresolved {
		t.Errorf("JournalID = %q, want -1", c.JournalID)
	}
	if r.Unresolved() != 1 {
		t.Errorf("Unresolved() = %d, want 1", r.Unresolved())
	}
	if c.Surname != "Schmidt" || c.Date != "1933" || c.PageRange() != "132-133" || c.Issue != "11" {
		t.Errorf("other fields should still be populated: %+v", c)
	}
	if c.AppearsInID != biblio.None {
		t.Errorf("AppearsInID = %q without an entry", c.AppearsInID)
	}
}

func TestParseSegmentCount(t *testing.T) {
	p := New(testResolver(nil), nil)
	for k := 0; k < 5; k++ {
		parts := make([]string, k+1)
		for i := range parts {
			parts[i] = fmt.Sprintf("A. Author%d, Journal %d (19%02d) p. %d.", i, i+1, 50+i, 10+i)
		}
		blob := "C.R. par " + strings.Join(parts, " - ")
		if got := len(p.Parse(blob, nil)); got != k+1 {
			t.Errorf("%d delimiters: got %d citations, want %d", k, got, k+1)
		}
	}
}

func TestParseTwoSegments(t *testing.T) {
	p := New(testResolver(map[string]string{"ArchPF": "42", "JEA": "20"}), nil)
	got := p.Parse("C.R. par T. Schmidt, ArchPF 11 (1933) pp. 132-133. - H. Bell, JEA 20 (1934) p. 5.", nil)
	if len(got) != 2 {
		t.Fatalf("got %d citations, want 2", len(got))
	}
	if got[0].Surname != "Schmidt" || got[0].JournalID != "42" {
		t.Errorf("first citation: %+v", got[0])
	}
	second := got[1]
	if second.Surname != "Bell" || second.JournalID != "20" || second.Issue != "20" || second.Date != "1934" {
		t.Errorf("second citation: %+v", second)
	}
	if second.PageStart != "5" || second.PageEnd != biblio.None || second.PageRange() != "5" {
		t.Errorf("single page: start=%q end=%q", second.PageStart, second.PageEnd)
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name     string
		forename string
		surname  string
	}{
		{"T. Schmidt", "T.", "Schmidt"},
		{"Thomas Schmidt", "Thomas", "Schmidt"},
		{"J.-L. Fournet", "J.", "-L. Fournet"},
		{"P. van Minnen", "P.", "van Minnen"},
		{"Wilcken", "Wilcken", biblio.ErrorLastName},
		{"", biblio.None, biblio.ErrorLastName},
	}
	for _, tt := range tests {
		f, s := splitName(tt.name)
		if f != tt.forename || s != tt.surname {
			t.Errorf("splitName(%q) = %q, %q; want %q, %q", tt.name, f, s, tt.forename, tt.surname)
		}
	}
}

func TestParseLinks(t *testing.T) {
	p := New(testResolver(map[string]string{"BMCR": "77"}), nil)

	t.Run("inline link", func(t *testing.T) {
		got := p.Parse("C.R. par J. Doe, BMCR &lt; http://bmcr.brynmawr.edu/2001/2001-01-01.html &gt;", nil)
		c := got[0]
		if c.Link != "http://bmcr.brynmawr.edu/2001/2001-01-01.html" {
			t.Errorf("Link = %q", c.Link)
		}
		if c.Journal != "BMCR" || c.JournalID != "77" {
			t.Errorf("Journal = %q (%s)", c.Journal, c.JournalID)
		}
	})

	t.Run("inline link keeps its year", func(t *testing.T) {
		got := p.Parse("C.R. par J. Doe, BMCR 2001 &lt;https://bmcr.brynmawr.edu/2001/2001.05.12&gt;", nil)
		c := got[0]
		if c.Link != "https://bmcr.brynmawr.edu/2001/2001.05.12" || c.Date != "2001" || c.Journal != "BMCR" {
			t.Errorf("Link = %q, Date = %q, Journal = %q", c.Link, c.Date, c.Journal)
		}
	})

	t.Run("link after the dropped tail", func(t *testing.T) {
		got := p.Parse("C.R. par J. Doe, BMCR 5 (2001) https://bmcr.brynmawr.edu/2001/x.html", nil)
		c := got[0]
		if c.Link != "https://bmcr.brynmawr.edu/2001/x.html" {
			t.Errorf("Link = %q", c.Link)
		}
		if c.Issue != "5" || c.Date != "2001" || c.Journal != "BMCR" {
			t.Errorf("Issue = %q, Date = %q, Journal = %q", c.Issue, c.Date, c.Journal)
		}
	})

	t.Run("markup fallback", func(t *testing.T) {
		entry := biblio.NewEntry("x.xml")
		entry.CRMarkup = `C.R. par J. Doe, BMCR 2001 <ptr target="https://bmcr.brynmawr.edu/2001/y.html"/>`
		got := p.Parse("C.R. par J. Doe, BMCR 2001", entry)
		if got[0].Link != "https://bmcr.brynmawr.edu/2001/y.html" {
			t.Errorf("Link = %q", got[0].Link)
		}
	})
}

func TestParseEscapesAmpersands(t *testing.T) {
	p := New(testResolver(map[string]string{"Ktema & Co": "5"}), nil)
	got := p.Parse("A. Doe, Ktema & Co 3 (1990) p. 1 &amp; more", nil)
	c := got[0]
	if c.Raw != "A. Doe, Ktema &amp; Co 3 (1990) p. 1 &amp; more" {
		t.Errorf("Raw = %q", c.Raw)
	}
	if c.JournalID != "5" {
		t.Errorf("JournalID = %q", c.JournalID)
	}
}

func TestParseEmitsDiagnostic(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	p := New(testResolver(map[string]string{}), zap.New(core))

	p.Parse("C.R. par T. Schmidt, ArchPF 11 (1933) pp. 132-133. - H. Bell, JEA 20 (1934) p. 5.", nil)

	parsed := logs.FilterMessage("parsed citation").All()
	if len(parsed) != 2 {
		t.Fatalf("got %d diagnostics, want 2", len(parsed))
	}
	fields := parsed[0].ContextMap()
	for _, key := range []string{"author", "surname", "pages", "year", "issue", "link", "journal", "journal_id", "residue"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("diagnostic missing %q", key)
		}
	}
	if fields["surname"] != "Schmidt" {
		t.Errorf("surname field = %v", fields["surname"])
	}
	if n := logs.FilterMessage("reviews may need to be created manually").Len(); n != 2 {
		t.Errorf("got %d manual-creation warnings, want 2", n)
	}
}

func TestParseAllSkipsReviews(t *testing.T) {
	p := New(testResolver(map[string]string{"ArchPF": "42"}), nil)

	book := biblio.NewEntry("1.xml")
	book.ID = "1"
	book.Set(biblio.FieldCR, "C.R. par T. Schmidt, ArchPF 11 (1933) pp. 132-133.")

	review := biblio.NewEntry("2.xml")
	review.ID = "2"
	review.IsReview = true
	review.Set(biblio.FieldCR, "T. Schmidt, ArchPF 11 (1933) pp. 132-133.")

	empty := biblio.NewEntry("3.xml")

	if n := p.ParseAll([]*biblio.Entry{book, review, empty}); n != 1 {
		t.Errorf("ParseAll = %d, want 1", n)
	}
	if len(book.Citations) != 1 || len(review.Citations) != 0 {
		t.Errorf("citations attached: book=%d review=%d", len(book.Citations), len(review.Citations))
	}
}

func TestMarkupLinks(t *testing.T) {
	markup := `see <ref target="http://a.example/1">A</ref> and <ptr target="http://b.example/2"/> or &lt; http://c.example/3 &gt; and http://a.example/1`
	got := MarkupLinks(markup)
	want := []string{"http://a.example/1", "http://b.example/2", "http://c.example/3"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("MarkupLinks = %v, want %v", got, want)
	}
	if MarkupLinks("") != nil {
		t.Error("empty markup should yield no links")
	}
}

func TestParseIgnoresYearsInsideURLs(t *testing.T) {
	p := New(testResolver(map[string]string{"BMCR": "77"}), nil)
	tests := []struct {
		name string
		cr   string
		date string
		link string
	}{
		{
			"only year is in the url",
			"C.R. par J. Doe, BMCR &lt; http://bmcr.brynmawr.edu/1998/98.10.12.html &gt;",
			biblio.None,
			"http://bmcr.brynmawr.edu/1998/98.10.12.html",
		},
		{
			"year after the url",
			"C.R. par J. Doe, BMCR http://bmcr.brynmawr.edu/1998/x.html (1999)",
			"1999",
			"http://bmcr.brynmawr.edu/1998/x.html",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := p.Parse(tt.cr, nil)[0]
			if c.Date != tt.date {
				t.Errorf("Date = %q, want %q", c.Date, tt.date)
			}
			if c.Link != tt.link {
				t.Errorf("Link = %q, want %q", c.Link, tt.link)
			}
			if c.Journal != "BMCR" || c.JournalID != "77" {
				t.Errorf("Journal = %q (%s)", c.Journal, c.JournalID)
			}
		})
	}
}

func TestMarkupLinkWithQueryRendersValidXML(t *testing.T) {
	p := New(testResolver(map[string]string{"BMCR": "77"}), nil)
	entry := biblio.NewEntry("x.xml")
	entry.ID = "10"
	entry.CRMarkup = `C.R. par J. Doe, BMCR 2001 <ptr target="https://ex.org/r?a=1&amp;b=2"/>`

	c := p.Parse("C.R. par J. Doe, BMCR 2001", entry)[0]
	c.ID = "501"
	dec := xml.NewDecoder(strings.NewReader(c.TEI("")))
	var target string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("record is not well-formed: %v", err)
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "ptr" {
			for _, a := range se.Attr {
				if a.Name.Local == "target" {
					target = a.Value
				}
			}
		}
	}
	if target != "https://ex.org/r?a=1&b=2" {
		t.Errorf("link target = %q", target)
	}
}
