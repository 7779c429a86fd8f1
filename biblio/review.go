package biblio

import (
	"fmt"
	"strings"
)

// Review is a review already encoded as a structured TEI record.
type Review struct {
	Forename  string
	Surname   string
	Date      string
	PageRange string
	// AppearsIn is the ID of the journal the review was published in.
	AppearsIn string
	// ReviewTargets are the IDs of the entries this review covers.
	ReviewTargets []string

	Source *Entry
	Path   string
}

// UpdateNote renders the line sent to the BP editors for a review that has no
// CR counterpart.
func (r *Review) UpdateNote() string {
	return fmt.Sprintf("Written by: %s %s on %s, pp. %s, appears in %s.",
		r.Forename, r.Surname, r.Date, r.PageRange, r.AppearsIn)
}

func (r *Review) String() string {
	targets := "None"
	if len(r.ReviewTargets) > 0 {
		targets = strings.Join(r.ReviewTargets, " ")
	}
	id := ""
	if r.Source != nil {
		id = r.Source.ID
	}
	return fmt.Sprintf("#%s @ %s. Appears in %s on pages %s. Written by: %s %s on %s. Related-Item, reviews: [%s]",
		id, r.Path, r.AppearsIn, r.PageRange, r.Forename, r.Surname, r.Date, targets)
}
