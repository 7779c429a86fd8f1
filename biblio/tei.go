package biblio

import (
	"fmt"
	"os"
	"strings"

	"github.com/antchfx/xmlquery"
)

var biblioPrefixes = []string{"https://papyri.info/biblio/", "http://papyri.info/biblio/"}

// ReadEntry loads one TEI bibl file. Review files (root bibl type="review")
// also get their ReviewRecord populated.
func ReadEntry(path string) (*Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := xmlquery.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	root := xmlquery.FindOne(doc, "/bibl")
	if root == nil {
		return nil, fmt.Errorf("%s: no root bibl element", path)
	}

	entry := NewEntry(path)
	for n := root.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != xmlquery.ElementNode {
			continue
		}
		setFromNode(entry, n)
	}

	if root.SelectAttr("type") == "review" {
		entry.IsReview = true
		entry.ReviewRecord = readReview(root, entry)
	}
	return entry, nil
}

func setFromNode(entry *Entry, n *xmlquery.Node) {
	switch n.Data {
	case "idno":
		switch n.SelectAttr("type") {
		case "pi":
			entry.ID = strings.TrimSpace(n.InnerText())
		case "bp":
			entry.Set(FieldBPNumber, n.InnerText())
		}
	case "seg":
		subtype := n.SelectAttr("subtype")
		field, ok := segFields[subtype]
		if !ok {
			return
		}
		entry.Set(field, n.InnerText())
		if field == FieldCR {
			entry.CRMarkup = n.OutputXML(false)
		}
	case "title":
		if level := n.SelectAttr("level"); level == "a" || level == "m" {
			entry.TitleLevel = level
		}
	case "date":
		if !entry.Has(FieldAnnee) {
			entry.Set(FieldAnnee, strings.TrimSpace(n.InnerText()))
		}
	}
}

func readReview(root *xmlquery.Node, entry *Entry) *Review {
	r := &Review{
		Surname:  firstText(root, "author/surname", "editor/surname"),
		Forename: firstText(root, "author/forename", "editor/forename"),
		Date:     firstText(root, "date"),
		Source:   entry,
		Path:     entry.Path,
	}

	for _, n := range xmlquery.Find(root, "biblScope[@type='pp'] | biblScope[@type='col'] | note[@type='pageCount']") {
		text := strings.TrimSpace(n.InnerText())
		if text == "" {
			continue
		}
		if n.SelectAttr("type") == "col" {
			text = strings.ReplaceAll(text, "coll. ", "")
		}
		r.PageRange = text
		break
	}

	if ptr := xmlquery.FindOne(root, "relatedItem[@type='appearsIn']/bibl/ptr"); ptr != nil {
		r.AppearsIn = TrimBiblioURL(ptr.SelectAttr("target"))
	}
	for _, ptr := range xmlquery.Find(root, "relatedItem[@type='reviews']/bibl/ptr") {
		if target := TrimBiblioURL(ptr.SelectAttr("target")); target != "" {
			r.ReviewTargets = append(r.ReviewTargets, target)
		}
	}
	return r
}

func firstText(root *xmlquery.Node, exprs ...string) string {
	for _, expr := range exprs {
		if n := xmlquery.FindOne(root, expr); n != nil {
			if text := strings.TrimSpace(n.InnerText()); text != "" {
				return text
			}
		}
	}
	return ""
}

// TrimBiblioURL reduces a biblio pointer to its numeric ID.
func TrimBiblioURL(target string) string {
	target = strings.TrimSpace(target)
	for _, p := range biblioPrefixes {
		if strings.HasPrefix(target, p) {
			return strings.TrimPrefix(target, p)
		}
	}
	if i := strings.LastIndex(target, "/biblio/"); i >= 0 {
		return target[i+len("/biblio/"):]
	}
	return target
}
