package filter

import (
	"path"
	"strings"
)

// FileFilter decides which entries are displayable and which one represents
// a folder.
type FileFilter interface {
	// IsImage reports whether entry should be listed as an image.
	IsImage(entry string) bool
	// FindCoverPage picks the cover among candidates. ok is false when
	// candidates is empty.
	FindCoverPage(candidates []string) (cover string, ok bool)
}

// Physical classifies entries of archives and directories by extension.
type Physical struct{}

// IsImage reports whether the entry has a known image extension.
func (Physical) IsImage(entry string) bool {
	return ImageExtensions[Ext(entry)]
}

// FindCoverPage implements FileFilter.
func (Physical) FindCoverPage(candidates []string) (string, bool) {
	return findCoverPage(candidates)
}

// Pdf treats every page of a document as an image.
type Pdf struct{}

// IsImage always returns true.
func (Pdf) IsImage(string) bool {
	return true
}

// FindCoverPage implements FileFilter.
func (Pdf) FindCoverPage(candidates []string) (string, bool) {
	return findCoverPage(candidates)
}

func findCoverPage(candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	for _, keyword := range CoverKeywords {
		for _, candidate := range candidates {
			if strings.Contains(strings.ToLower(BaseName(candidate)), keyword) {
				return candidate, true
			}
		}
	}

	return candidates[0], true
}

// Ext returns the lowercase extension of entry, accepting either separator.
func Ext(entry string) string {
	return strings.ToLower(path.Ext(BaseName(entry)))
}

// BaseName returns the last component of entry. Both '/' and '\' count as
// separators since archive entries may use either.
func BaseName(entry string) string {
	if i := strings.LastIndexAny(entry, `/\`); i >= 0 {
		return entry[i+1:]
	}
	return entry
}
