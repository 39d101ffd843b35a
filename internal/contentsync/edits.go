package contentsync

import (
	"context"
	"fmt"
	"strings"

	"github.com/robwestplumbing/sitecms/internal/content"
	"github.com/robwestplumbing/sitecms/internal/pages"
)

// mutate applies fn to a copy of the draft and keeps the copy only if fn
// succeeds.
func (s *Synchronizer) mutate(fn func(d *content.SiteContent) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	next := s.draft.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	s.draft = next
	if content.Equal(s.draft, s.baseline) {
		s.edit = EditClean
	} else {
		s.edit = EditDirty
	}
	s.lastErr = ""
	s.notifyLocked()
	return nil
}

// SetSectionFields replaces string fields of one section. Nested fields such
// as "social.facebook" use a dotted key. Arrays cannot be set this way.
func (s *Synchronizer) SetSectionFields(section string, values map[string]string) error {
	if !isSection(section) {
		return fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	return s.mutate(func(d *content.SiteContent) error {
		f := content.ToFields(*d)
		sec := f[section].(map[string]any)
		for key, value := range values {
			target, field := sec, key
			if parent, child, nested := strings.Cut(key, "."); nested {
				m, ok := sec[parent].(map[string]any)
				if !ok {
					return &content.ValidationError{Field: section + "." + key, Message: "unknown field"}
				}
				target, field = m, child
			}
			if _, ok := target[field].(string); !ok {
				return &content.ValidationError{Field: section + "." + key, Message: "unknown field"}
			}
			target[field] = value
		}
		c, err := content.FromFields(f)
		if err != nil {
			return err
		}
		*d = c
		return nil
	})
}

// SetLogo replaces the site logo in the draft.
func (s *Synchronizer) SetLogo(ref content.ImageRef) error {
	return s.SetSectionFields(content.SectionGlobal, map[string]string{"logo": string(ref)})
}

// SetSectionImage sets a single image field such as home.heroImage or
// about.image.
func (s *Synchronizer) SetSectionImage(section, field string, ref content.ImageRef) error {
	if field == "" {
		field = "image"
		if section == content.SectionHome {
			field = "heroImage"
		}
	}
	return s.SetSectionFields(section, map[string]string{field: string(ref)})
}

func (s *Synchronizer) AddSectionImage(section string, ref content.ImageRef) error {
	if ref.IsEmpty() {
		return &content.ValidationError{Field: section + ".images", Message: "image is required"}
	}
	return s.mutate(func(d *content.SiteContent) error {
		images, ok := d.SectionImages(section)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownSection, section)
		}
		*images = append(*images, ref)
		return nil
	})
}

func (s *Synchronizer) RemoveSectionImage(section string, index int) error {
	return s.mutate(func(d *content.SiteContent) error {
		images, ok := d.SectionImages(section)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownSection, section)
		}
		if index < 0 || index >= len(*images) {
			return ErrIndexOutOfRange
		}
		*images = append((*images)[:index], (*images)[index+1:]...)
		return nil
	})
}

// AddTeamMember appends a placeholder member and returns its index.
func (s *Synchronizer) AddTeamMember() (int, error) {
	var index int
	err := s.mutate(func(d *content.SiteContent) error {
		d.About.Team = append(d.About.Team, content.NewTeamMember())
		index = len(d.About.Team) - 1
		return nil
	})
	return index, err
}

// TeamMemberPatch holds the fields to change; nil fields are left alone.
type TeamMemberPatch struct {
	Name  *string
	Role  *string
	Bio   *string
	Image *content.ImageRef
}

func (s *Synchronizer) UpdateTeamMember(index int, patch TeamMemberPatch) error {
	return s.mutate(func(d *content.SiteContent) error {
		if index < 0 || index >= len(d.About.Team) {
			return ErrIndexOutOfRange
		}
		m := &d.About.Team[index]
		if patch.Name != nil {
			m.Name = *patch.Name
		}
		if patch.Role != nil {
			m.Role = *patch.Role
		}
		if patch.Bio != nil {
			m.Bio = *patch.Bio
		}
		if patch.Image != nil {
			m.Image = *patch.Image
		}
		return nil
	})
}

// RemoveTeamMember deletes a member and saves immediately. It requires
// confirmation.
func (s *Synchronizer) RemoveTeamMember(ctx context.Context, index int, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	err := s.mutate(func(d *content.SiteContent) error {
		if index < 0 || index >= len(d.About.Team) {
			return ErrIndexOutOfRange
		}
		d.About.Team = append(d.About.Team[:index], d.About.Team[index+1:]...)
		return nil
	})
	if err != nil {
		return err
	}
	return s.Save(ctx)
}

// AddCustomPage adds an enabled custom page whose id is the slug of label.
// The page list is left untouched when the slug is taken.
func (s *Synchronizer) AddCustomPage(label string) (content.PageDescriptor, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return content.PageDescriptor{}, &content.ValidationError{Field: "label", Message: "label is required"}
	}
	id := pages.Slugify(label)
	if id == "" {
		return content.PageDescriptor{}, &content.ValidationError{Field: "label", Message: "label must contain letters or digits"}
	}

	var page content.PageDescriptor
	err := s.mutate(func(d *content.SiteContent) error {
		if _, exists := d.Page(id); exists || pages.IsReserved(id) {
			return &content.ValidationError{Field: "id", Message: fmt.Sprintf("a page with id %q already exists", id)}
		}
		page = content.PageDescriptor{
			ID:      id,
			Label:   label,
			Kind:    content.PageCustom,
			Enabled: true,
			Order:   pages.NextOrder(d.Pages),
			Title:   label,
		}
		d.Pages = append(d.Pages, page)
		return nil
	})
	return page, err
}

// RenamePage changes the menu label of any page.
func (s *Synchronizer) RenamePage(id, label string) error {
	return s.UpdatePage(id, PagePatch{Label: &label})
}

func (s *Synchronizer) SetPageOrder(id string, order int) error {
	return s.UpdatePage(id, PagePatch{Order: &order})
}

// PagePatch holds the page fields to change. Label and Order apply to every
// page; Title, Body and Image exist only on custom pages.
type PagePatch struct {
	Label *string
	Order *int
	Title *string
	Body  *string
	Image *content.ImageRef
}

func (p PagePatch) customOnly() bool {
	return p.Title != nil || p.Body != nil || p.Image != nil
}

// UpdatePage applies the whole patch or, on any error, none of it.
func (s *Synchronizer) UpdatePage(id string, patch PagePatch) error {
	return s.updatePage(id, patch, patch.customOnly())
}

// UpdateCustomPage is UpdatePage restricted to custom pages.
func (s *Synchronizer) UpdateCustomPage(id string, patch PagePatch) error {
	return s.updatePage(id, patch, true)
}

func (s *Synchronizer) updatePage(id string, patch PagePatch, customOnly bool) error {
	if patch.Label != nil {
		label := strings.TrimSpace(*patch.Label)
		if label == "" {
			return &content.ValidationError{Field: "label", Message: "label is required"}
		}
		patch.Label = &label
	}
	return s.mutate(func(d *content.SiteContent) error {
		i, ok := d.Page(id)
		if !ok {
			return ErrPageNotFound
		}
		p := &d.Pages[i]
		if customOnly && p.Kind == content.PageFixed {
			return ErrFixedPage
		}
		if patch.Label != nil {
			p.Label = *patch.Label
		}
		if patch.Order != nil {
			p.Order = *patch.Order
		}
		if patch.Title != nil {
			p.Title = *patch.Title
		}
		if patch.Body != nil {
			p.Body = *patch.Body
		}
		if patch.Image != nil {
			p.Image = *patch.Image
		}
		return nil
	})
}

// TogglePageVisibility flips a page's enabled flag and saves immediately. It
// returns the new value.
func (s *Synchronizer) TogglePageVisibility(ctx context.Context, id string) (bool, error) {
	var enabled bool
	err := s.mutate(func(d *content.SiteContent) error {
		i, ok := d.Page(id)
		if !ok {
			return ErrPageNotFound
		}
		d.Pages[i].Enabled = !d.Pages[i].Enabled
		enabled = d.Pages[i].Enabled
		return nil
	})
	if err != nil {
		return false, err
	}
	return enabled, s.Save(ctx)
}

// DeleteCustomPage removes a custom page and saves immediately. Fixed pages
// are never removed.
func (s *Synchronizer) DeleteCustomPage(ctx context.Context, id string, confirmed bool) error {
	err := s.mutate(func(d *content.SiteContent) error {
		i, ok := d.Page(id)
		if !ok {
			return ErrPageNotFound
		}
		if d.Pages[i].Kind == content.PageFixed || content.IsFixedPage(id) {
			return ErrFixedPage
		}
		if !confirmed {
			return ErrConfirmationRequired
		}
		d.Pages = append(d.Pages[:i], d.Pages[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}
	return s.Save(ctx)
}

func isSection(name string) bool {
	for _, s := range content.Sections {
		if s == name {
			return true
		}
	}
	return false
}
