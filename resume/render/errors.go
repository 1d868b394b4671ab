package render

import "fmt"

// TemplateStructureError reports a template whose repeating block cannot be
// located.
type TemplateStructureError struct {
	StartMarker string
	EndMarker   string
	Reason      string
}

func (e *TemplateStructureError) Error() string {
	return fmt.Sprintf("template structure: block %s..%s: %s", e.StartMarker, e.EndMarker, e.Reason)
}
