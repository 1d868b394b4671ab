// Package format turns CV collections into the display strings the template
// expects. Every function is total: empty or missing input yields "".
package format

import (
	"strings"

	"cv-mapper/resume/model"
)

// ListToText joins items with newlines, dropping empty entries.
func ListToText(items []string) string {
	return SafeJoin(items, "\n")
}

// SafeJoin joins the non-empty items with sep.
func SafeJoin(items []string, sep string) string {
	kept := make([]string, 0, len(items))
	for _, item := range items {
		if item != "" {
			kept = append(kept, item)
		}
	}
	return strings.Join(kept, sep)
}

// Technologies renders one "<category> : <a, b>" line per category whose
// list is non-empty. A list holding only blank entries still gets its line.
func Technologies(categories model.Technologies) string {
	lines := make([]string, 0, len(categories))
	for _, category := range categories {
		if len(category.Items) == 0 {
			continue
		}
		lines = append(lines, category.Name+" : "+SafeJoin(category.Items, ", "))
	}
	return strings.Join(lines, "\n")
}

// Formations renders one "title, school, location" line per entry.
func Formations(formations []model.Formation) string {
	lines := make([]string, 0, len(formations))
	for _, f := range formations {
		lines = append(lines, SafeJoin([]string{f.Title.String(), f.School.String(), f.Location.String()}, ", "))
	}
	return strings.Join(lines, "\n")
}

// DateRange renders an experience period as "<start> – <end>".
func DateRange(start, end string) string {
	return start + " – " + end
}
