package biblio

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	crOpenRe    = regexp.MustCompile(`<seg\b[^>]*\bsubtype="cr"[^>]*>`)
	closeBiblRe = regexp.MustCompile(`</bibl>\s*$`)
)

// AppendCR adds text to the CR seg of the file at path unless the seg already
// contains it. A file without a CR seg gets one before its closing bibl tag.
// It reports whether the file changed.
func AppendCR(path, text string) (bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	doc := string(data)

	var updated string
	if loc := crOpenRe.FindStringIndex(doc); loc != nil {
		open := doc[loc[0]:loc[1]]
		if strings.HasSuffix(open, "/>") {
			// empty seg: expand it into an open/close pair around text
			open = strings.TrimRight(strings.TrimSuffix(open, "/>"), " ") + ">"
			updated = doc[:loc[0]] + open + text + "</seg>" + doc[loc[1]:]
		} else {
			end := strings.Index(doc[loc[1]:], "</seg>")
			if end < 0 {
				return false, fmt.Errorf("%s: unterminated cr seg", path)
			}
			start, stop := loc[1], loc[1]+end
			current := doc[start:stop]
			if strings.Contains(current, text) {
				return false, nil
			}
			joined := text
			if strings.TrimSpace(current) != "" {
				joined = strings.TrimRight(current, " ") + " - " + text
			}
			updated = doc[:start] + joined + doc[stop:]
		}
	} else {
		loc := closeBiblRe.FindStringIndex(doc)
		if loc == nil {
			return false, fmt.Errorf("%s: no closing bibl tag", path)
		}
		seg := fmt.Sprintf(`<seg type="original" subtype="cr" resp="#BP">%s</seg>`+"\n", text)
		updated = doc[:loc[0]] + seg + doc[loc[0]:]
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(updated), 0644); err != nil {
		return false, fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return false, fmt.Errorf("rename %s: %w", tmp, err)
	}
	return true, nil
}
