package content

import "fmt"

// ValidationError rejects input before anything is written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate checks that c is structurally complete: the page list holds every
// fixed page and page ids are unique.
func Validate(c SiteContent) error {
	if len(c.Pages) == 0 {
		return invalid(KeyPages, "page list is empty")
	}
	seen := make(map[string]bool, len(c.Pages))
	for i, p := range c.Pages {
		field := fmt.Sprintf("%s[%d]", KeyPages, i)
		if p.ID == "" {
			return invalid(field, "page id is required")
		}
		if seen[p.ID] {
			return invalid(field, "duplicate page id %q", p.ID)
		}
		seen[p.ID] = true
		if IsFixedPage(p.ID) != (p.Kind == PageFixed) {
			return invalid(field, "page %q has the wrong kind %q", p.ID, p.Kind)
		}
		if p.Label == "" {
			return invalid(field, "page %q needs a label", p.ID)
		}
	}
	for _, id := range FixedPageIDs {
		if !seen[id] {
			return invalid(KeyPages, "fixed page %q is missing", id)
		}
	}
	return nil
}
