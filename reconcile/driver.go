// Package reconcile runs the per-entry comparison of structured reviews and
// CR citations and routes the leftovers to their sinks.
package reconcile

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"example.com/crcheck/biblio"
	"example.com/crcheck/ledger"
	"example.com/crcheck/matcher"
	"example.com/crcheck/report"
	"go.uber.org/zap"
)

// Ledger records every record offered for creation.
type Ledger interface {
	Record(rec ledger.CreatedRecord) error
}

type Options struct {
	BaseURL string
	// SyncMatched appends the CR text of a matched citation to the review
	// file it matched.
	SyncMatched bool
}

// Summary is the outcome of one run.
type Summary struct {
	Rows       []report.Row
	Entries    int
	Pairs      int
	Written    int
	Rejected   int
	Notes      int
	Unresolved int
	Synced     int
}

type Driver struct {
	counter *IDCounter
	policy  ConfirmationPolicy
	records RecordWriter
	notes   NoteSink
	ledger  Ledger
	opts    Options
	out     io.Writer
	logger  *zap.Logger

	synced int
}

// NewDriver wires a driver. led may be nil.
func NewDriver(counter *IDCounter, policy ConfirmationPolicy, records RecordWriter, notes NoteSink,
	led Ledger, opts Options, out io.Writer, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	if opts.BaseURL == "" {
		opts.BaseURL = biblio.DefaultBaseURL
	}
	return &Driver{
		counter: counter,
		policy:  policy,
		records: records,
		notes:   notes,
		ledger:  led,
		opts:    opts,
		out:     out,
		logger:  logger,
	}
}

// Reconcile matches every entry that has reviews of either kind. Unmatched
// citations become new records (subject to the policy) and unmatched
// structured reviews become update notes.
func (d *Driver) Reconcile(ctx context.Context, entries []*biblio.Entry) (Summary, error) {
	var sum Summary
	d.synced = 0
	m := matcher.New(d.syncHook)

	var todo []*biblio.Entry
	for _, e := range entries {
		if len(e.Reviews) > 0 || len(e.Citations) > 0 {
			todo = append(todo, e)
		}
	}

	for i, e := range todo {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Entries++

		row := report.Row{PNNumber: e.ID, PNReviews: len(e.Reviews), BPReviews: len(e.Citations)}
		if bp, ok := e.BPNumber(); ok {
			row.BPNumber = bp
		}
		sum.Rows = append(sum.Rows, row)

		res := m.Match(e.Reviews, e.Citations)
		sum.Pairs += len(res.Pairs)
		d.logger.Info("matched entry",
			zap.String("entry", e.ID),
			zap.String("dominance", res.Dominance.String()),
			zap.Int("pairs", len(res.Pairs)),
			zap.Int("unmatched_reviews", len(res.UnmatchedReviews)),
			zap.Int("unmatched_citations", len(res.UnmatchedCitations)),
		)
		if len(res.UnmatchedReviews) == 0 && len(res.UnmatchedCitations) == 0 {
			continue
		}

		fmt.Fprintf(d.out, "Processing reviews in: %s (%d/%d)\n", e.Path, i+1, len(todo))
		for _, r := range res.UnmatchedReviews {
			if err := d.notes.Append(r.UpdateNote()); err != nil {
				return sum, err
			}
			sum.Notes++
		}
		for _, c := range res.UnmatchedCitations {
			written, err := d.offer(c)
			if err != nil {
				return sum, err
			}
			if written {
				sum.Written++
			} else {
				sum.Rejected++
			}
			if !c.Resolved() {
				sum.Unresolved++
			}
		}
		fmt.Fprintln(d.out, "----------------------------------------")
	}

	sum.Synced = d.synced
	return sum, nil
}

// offer assigns the next ID to c and writes it if the policy agrees.
func (d *Driver) offer(c *biblio.Citation) (bool, error) {
	c.ID = d.counter.Next()
	path := d.records.Path(c.ID)

	if !c.Resolved() {
		fmt.Fprintf(d.out, "⚠️  Journal ID for %q could not be found. Please update the saved file with the proper value.\n", c.Journal)
		d.logger.Warn("saving record with unresolved journal", zap.String("id", c.ID), zap.String("journal", c.Journal))
	}

	xml := c.TEI(d.opts.BaseURL)
	ok, err := d.policy.Confirm(c, xml, path)
	if err != nil {
		return false, err
	}

	rec := ledger.CreatedRecord{EntryID: c.AppearsInID, Journal: c.Journal, JournalID: c.JournalID, Accepted: ok}
	rec.ID, _ = strconv.Atoi(c.ID)
	if ok {
		written, err := d.records.Write(c.ID, xml)
		if err != nil {
			return false, err
		}
		rec.Path = written
		fmt.Fprintf(d.out, "✓ Created %s\n", written)
		d.logger.Info("created review record", zap.String("path", written))
	} else {
		d.logger.Info("record declined", zap.String("id", c.ID), zap.String("entry", c.AppearsInID))
	}

	if d.ledger != nil {
		if err := d.ledger.Record(rec); err != nil {
			return ok, fmt.Errorf("failed to update ledger: %w", err)
		}
	}
	return ok, nil
}

func (d *Driver) syncHook(r *biblio.Review, c *biblio.Citation) {
	if !d.opts.SyncMatched || r.Path == "" {
		return
	}
	changed, err := biblio.AppendCR(r.Path, c.Raw)
	if err != nil {
		d.logger.Error("failed to sync CR text", zap.String("path", r.Path), zap.Error(err))
		return
	}
	if changed {
		d.synced++
		d.logger.Info("synced CR text", zap.String("path", r.Path))
	}
}
