package content

import "sort"

// ImageAdd is a section image that has to be appended to the gallery.
type ImageAdd struct {
	Section string
	URL     ImageRef
}

// imageDelta compares two image lists as multisets. Order is ignored.
func imageDelta(base, next []ImageRef) (added, removed []ImageRef) {
	left := make(map[ImageRef]int, len(base))
	for _, url := range base {
		left[url]++
	}
	for _, url := range next {
		if left[url] > 0 {
			left[url]--
			continue
		}
		added = append(added, url)
	}
	for _, url := range base {
		if left[url] > 0 {
			left[url]--
			removed = append(removed, url)
		}
	}
	return added, removed
}

// RebaseImages replays the adds and removes that turned base into draft on
// top of live. Images added to live in the meantime are kept.
func RebaseImages(base, draft, live []ImageRef) []ImageRef {
	added, removed := imageDelta(base, draft)
	drop := make(map[ImageRef]int, len(removed))
	for _, url := range removed {
		drop[url]++
	}
	out := make([]ImageRef, 0, len(live)+len(added))
	for _, url := range live {
		if drop[url] > 0 {
			drop[url]--
			continue
		}
		out = append(out, url)
	}
	return append(out, added...)
}

// ImageWrites turns the section image changes between base and draft into
// gallery appends and deletes. Each removed image deletes one section item
// with the same URL; items the draft never touched are left alone. Kept
// images that have no gallery item yet, such as arrays from documents
// written before images moved to the gallery, are appended.
func ImageWrites(base, draft SiteContent, items []GalleryItem) (adds []ImageAdd, deletes []string) {
	for _, section := range ImageSections {
		baseImages, _ := base.SectionImages(section)
		draftImages, _ := draft.SectionImages(section)

		owned := make(map[ImageRef][]string)
		for _, item := range items {
			if item.Section == section {
				owned[item.URL] = append(owned[item.URL], item.ID)
			}
		}
		take := func(url ImageRef) (string, bool) {
			ids := owned[url]
			if len(ids) == 0 {
				return "", false
			}
			owned[url] = ids[1:]
			return ids[0], true
		}

		added, removed := imageDelta(*baseImages, *draftImages)
		for _, url := range removed {
			if id, ok := take(url); ok {
				deletes = append(deletes, id)
			}
		}
		kept, _ := imageDelta(added, *draftImages)
		for _, url := range kept {
			if _, ok := take(url); !ok {
				adds = append(adds, ImageAdd{Section: section, URL: url})
			}
		}
		for _, url := range added {
			adds = append(adds, ImageAdd{Section: section, URL: url})
		}
	}
	return adds, deletes
}

// JoinGallery fills the section images of c from the gallery, oldest first,
// and returns the remaining public gallery items in their original order. A
// section with no gallery items keeps the images already in c, which only
// happens for documents written before images moved to the gallery.
func JoinGallery(c *SiteContent, items []GalleryItem) []GalleryItem {
	bySection := make(map[string][]GalleryItem)
	public := make([]GalleryItem, 0, len(items))
	for _, item := range items {
		if item.Section == "" {
			public = append(public, item)
			continue
		}
		bySection[item.Section] = append(bySection[item.Section], item)
	}

	for _, section := range ImageSections {
		owned := bySection[section]
		if len(owned) == 0 {
			continue
		}
		sort.SliceStable(owned, func(i, j int) bool {
			if owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
				return owned[i].ID < owned[j].ID
			}
			return owned[i].CreatedAt.Before(owned[j].CreatedAt)
		})
		images := make([]ImageRef, 0, len(owned))
		for _, item := range owned {
			images = append(images, item.URL)
		}
		target, _ := c.SectionImages(section)
		*target = images
	}
	return public
}
