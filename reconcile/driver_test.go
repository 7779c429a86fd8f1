package reconcile

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"example.com/crcheck/biblio"
	"example.com/crcheck/ledger"
)

type memNotes struct{ lines []string }

func (n *memNotes) Append(line string) error {
	n.lines = append(n.lines, line)
	return nil
}

type recordingPolicy struct {
	answer bool
	seen   []string
}

func (p *recordingPolicy) Confirm(c *biblio.Citation, preview, path string) (bool, error) {
	p.seen = append(p.seen, c.ID)
	return p.answer, nil
}

func newEntry(id string) *biblio.Entry {
	e := biblio.NewEntry(id + ".xml")
	e.ID = id
	return e
}

func citationFor(e *biblio.Entry, surname, start, end, journalID string) *biblio.Citation {
	return &biblio.Citation{
		Source: e, ID: biblio.None, Forename: "T.", Surname: surname,
		Journal: "J", JournalID: journalID, Date: "1933",
		PageStart: start, PageEnd: end, Link: biblio.NoLink,
		Raw: surname + ", J (1933)", AppearsInID: e.ID,
	}
}

func TestReconcile(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "98")

	matched := newEntry("10")
	matched.Set(biblio.FieldBPNumber, "1933-0001")
	matched.Reviews = []*biblio.Review{{Surname: "Schmidt", PageRange: "132-133", AppearsIn: "42"}}
	matched.Citations = []*biblio.Citation{citationFor(matched, "Schmidt", "132", "133", "42")}

	onlyCR := newEntry("11")
	onlyCR.Citations = []*biblio.Citation{
		citationFor(onlyCR, "Bell", "5", biblio.None, "20"),
		citationFor(onlyCR, "Roberts", "7", "9", "-1"),
	}

	onlyPN := newEntry("12")
	onlyPN.Reviews = []*biblio.Review{{Forename: "Ulrich", Surname: "Wilcken", Date: "1933", PageRange: "1-2", AppearsIn: "42"}}

	untouched := newEntry("13")

	notes := &memNotes{}
	policy := &recordingPolicy{answer: true}
	led, err := ledger.Open(filepath.Join(dir, "state.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	d := NewDriver(NewIDCounter(500), policy, DirWriter{Dir: outDir}, notes, led, Options{}, &out, nil)

	sum, err := d.Reconcile(context.Background(), []*biblio.Entry{matched, onlyCR, onlyPN, untouched})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if sum.Entries != 3 || len(sum.Rows) != 3 {
		t.Errorf("entries = %d, rows = %d, want 3", sum.Entries, len(sum.Rows))
	}
	if sum.Pairs != 1 || sum.Written != 2 || sum.Rejected != 0 || sum.Notes != 1 || sum.Unresolved != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Rows[0].BPNumber != "1933-0001" || !sum.Rows[0].Equal() {
		t.Errorf("first row = %+v", sum.Rows[0])
	}
	if sum.Rows[1].PNReviews != 0 || sum.Rows[1].BPReviews != 2 || sum.Rows[1].Equal() {
		t.Errorf("second row = %+v", sum.Rows[1])
	}

	if strings.Join(policy.seen, ",") != "501,502" {
		t.Errorf("ids offered = %v, want 501,502", policy.seen)
	}
	data, err := os.ReadFile(filepath.Join(outDir, "501.xml"))
	if err != nil {
		t.Fatalf("record 501 not written: %v", err)
	}
	if !strings.Contains(string(data), `<idno type="pi">501</idno>`) ||
		!strings.Contains(string(data), `<biblScope type="pp">5</biblScope>`) {
		t.Errorf("unexpected record:\n%s", data)
	}
	if !strings.Contains(out.String(), "⚠️") {
		t.Error("unresolved journal should be flagged before saving")
	}

	if len(notes.lines) != 1 || notes.lines[0] != "Written by: Ulrich Wilcken on 1933, pp. 1-2, appears in 42." {
		t.Errorf("notes = %v", notes.lines)
	}
	if led.LastID != 502 || len(led.Records) != 2 {
		t.Errorf("ledger = %+v", led)
	}
}

func TestReconcileRejectStillAdvancesIDs(t *testing.T) {
	e := newEntry("1")
	e.Citations = []*biblio.Citation{
		citationFor(e, "A", "1", "2", "3"),
		citationFor(e, "B", "1", "2", "3"),
	}
	counter := NewIDCounter(9)
	outDir := filepath.Join(t.TempDir(), "out")
	d := NewDriver(counter, AutoReject{}, DirWriter{Dir: outDir}, &memNotes{}, nil, Options{}, nil, nil)

	sum, err := d.Reconcile(context.Background(), []*biblio.Entry{e})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Written != 0 || sum.Rejected != 2 {
		t.Errorf("summary = %+v", sum)
	}
	if counter.Last() != 11 || e.Citations[1].ID != "11" {
		t.Errorf("counter = %d, second id = %s", counter.Last(), e.Citations[1].ID)
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Error("rejected records should not create output")
	}
}

func TestReconcileSyncsMatchedReviews(t *testing.T) {
	dir := t.TempDir()
	reviewPath := filepath.Join(dir, "2000.xml")
	review := `<?xml version="1.0" encoding="UTF-8"?>
<bibl xmlns="http://www.tei-c.org/ns/1.0" type="review">
<idno type="pi">2000</idno>
</bibl>
`
	if err := os.WriteFile(reviewPath, []byte(review), 0644); err != nil {
		t.Fatal(err)
	}

	e := newEntry("10")
	e.Reviews = []*biblio.Review{{Surname: "Schmidt", PageRange: "132-133", AppearsIn: "42", Path: reviewPath}}
	e.Citations = []*biblio.Citation{citationFor(e, "Schmidt", "132", "133", "42")}

	run := func(sync bool) Summary {
		d := NewDriver(NewIDCounter(0), AutoReject{}, DirWriter{Dir: dir}, &memNotes{}, nil, Options{SyncMatched: sync}, nil, nil)
		sum, err := d.Reconcile(context.Background(), []*biblio.Entry{e})
		if err != nil {
			t.Fatal(err)
		}
		return sum
	}

	if sum := run(false); sum.Synced != 0 {
		t.Errorf("sync disabled but synced %d", sum.Synced)
	}
	if sum := run(true); sum.Synced != 1 {
		t.Errorf("synced = %d, want 1", sum.Synced)
	}
	if sum := run(true); sum.Synced != 0 {
		t.Errorf("second sync should be a no-op, synced = %d", sum.Synced)
	}
	data, _ := os.ReadFile(reviewPath)
	if strings.Count(string(data), "Schmidt, J (1933)") != 1 {
		t.Errorf("CR text not synced exactly once:\n%s", data)
	}
}

func TestReconcileHonoursContext(t *testing.T) {
	e := newEntry("1")
	e.Reviews = []*biblio.Review{{Surname: "X"}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDriver(NewIDCounter(0), AutoAccept{}, DirWriter{Dir: t.TempDir()}, &memNotes{}, nil, Options{}, nil, nil)
	if _, err := d.Reconcile(ctx, []*biblio.Entry{e}); err == nil {
		t.Error("cancelled context should stop the run")
	}
}

func TestPrompt(t *testing.T) {
	c := &biblio.Citation{ID: "7"}
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Yes\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		p := NewPrompt(strings.NewReader(tt.input), &out)
		got, err := p.Confirm(c, "<bibl/>", "/tmp/7.xml")
		if err != nil {
			t.Fatalf("Confirm(%q): %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "<bibl/>") || !strings.Contains(out.String(), "/tmp/7.xml") {
			t.Errorf("prompt output missing preview or path: %q", out.String())
		}
	}
}

func TestPolicyFor(t *testing.T) {
	for _, name := range []string{"prompt", "accept", "reject", ""} {
		if _, err := PolicyFor(name, strings.NewReader(""), &bytes.Buffer{}); err != nil {
			t.Errorf("PolicyFor(%q): %v", name, err)
		}
	}
	if _, err := PolicyFor("maybe", nil, nil); err == nil {
		t.Error("unknown policy should fail")
	}
}

func TestFileNotesAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "UpdatesForBP.txt")
	n := FileNotes{Path: path}
	for _, line := range []string{"first", "second"} {
		if err := n.Append(line); err != nil {
			t.Fatal(err)
		}
	}
	data, _ := os.ReadFile(path)
	if string(data) != "first\nsecond\n" {
		t.Errorf("notes file = %q", data)
	}
}
