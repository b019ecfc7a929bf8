package paths

import "strings"

// Root is the reserved entry for the top-level folder of a provider. Entries
// stored directly under it carry no prefix.
const Root = "."

const (
	// Slash is the separator used by zip, 7z and most rar archives.
	Slash = "/"
	// Backslash is the separator used by archives written on Windows.
	Backslash = `\`
)

// DetectSeparator returns Backslash if any key contains one, Slash otherwise.
func DetectSeparator(keys []string) string {
	for _, k := range keys {
		if strings.Contains(k, Backslash) {
			return Backslash
		}
	}
	return Slash
}

// Clean drops empty and "." components, so "./a//b.png" becomes "a/b.png".
// A key made only of such components cleans to "".
func Clean(entry, sep string) string {
	parts := strings.Split(entry, sep)
	kept := parts[:0]
	for _, part := range parts {
		if part == "" || part == Root {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, sep)
}

// Normalize cleans entry. An entry that cleans to nothing is Root.
func Normalize(entry, sep string) string {
	if entry = Clean(entry, sep); entry == "" {
		return Root
	}
	return entry
}

// Parent returns the folder containing entry. A trailing separator is ignored
// before the parent separator is located, so folder keys such as "a/b/" map
// to "a". Entries without a separator belong to Root.
func Parent(entry, sep string) string {
	if entry == Root || entry == "" {
		return Root
	}
	trimmed := strings.TrimSuffix(entry, sep)
	i := strings.LastIndex(trimmed, sep)
	if i <= 0 {
		return Root
	}
	return trimmed[:i]
}

// IsDirectChild reports whether entry sits exactly one level below folder.
func IsDirectChild(entry, folder, sep string) bool {
	if entry == Root || entry == "" {
		return false
	}
	if folder == Root {
		return !strings.Contains(entry, sep)
	}
	prefix := folder + sep
	if !strings.HasPrefix(entry, prefix) {
		return false
	}
	rest := entry[len(prefix):]
	return rest != "" && !strings.Contains(rest, sep)
}

// Ancestors returns every proper prefix folder of entry, outermost first.
// "a/b/c.png" yields ["a", "a/b"].
func Ancestors(entry, sep string) []string {
	parts := strings.Split(strings.Trim(entry, sep), sep)
	if len(parts) < 2 {
		return nil
	}
	out := make([]string, 0, len(parts)-1)
	prefix := ""
	for _, part := range parts[:len(parts)-1] {
		if part == "" {
			continue
		}
		if prefix == "" {
			prefix = part
		} else {
			prefix = prefix + sep + part
		}
		out = append(out, prefix)
	}
	return out
}

// Join appends name to folder using sep. Joining to Root yields name.
func Join(folder, name, sep string) string {
	if folder == Root || folder == "" {
		return name
	}
	return folder + sep + name
}
