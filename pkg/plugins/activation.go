package plugins

import (
	"os"
	"path/filepath"
	"strings"
)

// hasAncestorFile walks up from dir to the filesystem root, returning
// true if any of the globs in patterns matches a file or directory
// present at any level, per spec §4.5's "feature file present in CWD or
// an ancestor up to the project root" activation predicate.
func hasAncestorFile(dir string, patterns ...string) bool {
	cur := dir
	for {
		for _, pat := range patterns {
			matches, _ := filepath.Glob(filepath.Join(cur, pat))
			if len(matches) > 0 {
				return true
			}
			if _, err := os.Stat(filepath.Join(cur, pat)); err == nil {
				return true
			}
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return false
		}
		cur = parent
	}
}

// matchesPrefix reports whether buffer's first whitespace-delimited
// token is one of prefixes, per spec §4.5's command-prefix activation
// predicate.
func matchesPrefix(buffer string, prefixes ...string) bool {
	fields := strings.Fields(buffer)
	if len(fields) == 0 {
		return false
	}
	first := fields[0]
	for _, p := range prefixes {
		if first == p {
			return true
		}
	}
	return false
}

// projectRoot returns the nearest ancestor of dir (inclusive) containing
// any of markers, or dir itself if none is found. Plugins use this to
// scope external-command invocations to the project root rather than an
// arbitrary subdirectory.
func projectRoot(dir string, markers ...string) string {
	cur := dir
	for {
		for _, m := range markers {
			if _, err := os.Stat(filepath.Join(cur, m)); err == nil {
				return cur
			}
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return dir
		}
		cur = parent
	}
}
