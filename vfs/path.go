package vfs

import (
	"regexp"
	"strings"
)

var validName = regexp.MustCompile(`^[a-zA-Z0-9_./-]+$`)

// ValidName reports whether p is acceptable as a path argument to a
// create operation: non-empty and limited to [A-Za-z0-9_./-]. Control
// characters and shell metacharacters are rejected here, before any
// allocation happens.
func ValidName(p string) bool {
	return p != "" && validName.MatchString(p)
}

// splitPath breaks a path into its non-empty components.
func splitPath(p string) []string {
	var toks []string
	for _, tok := range strings.Split(p, "/") {
		if tok != "" {
			toks = append(toks, tok)
		}
	}
	return toks
}

// ResolvePath normalizes any input into a canonical absolute path: "."
// components are dropped, ".." pops the previous component (or is
// dropped at the top), the result starts with exactly one "/" and
// never ends with one. The root resolves to "/". Total over any input
// and idempotent.
func ResolvePath(p string) string {
	var resolved []string
	for _, tok := range splitPath(p) {
		switch tok {
		case ".":
		case "..":
			if len(resolved) > 0 {
				resolved = resolved[:len(resolved)-1]
			}
		default:
			resolved = append(resolved, tok)
		}
	}
	if len(resolved) == 0 {
		return "/"
	}
	return "/" + strings.Join(resolved, "/")
}

// parentOf returns the canonical path of a canonical path's parent
// directory. The root is its own parent.
func parentOf(path string) string {
	if path == "/" {
		return "/"
	}
	i := strings.LastIndexByte(path, '/')
	if i == 0 {
		return "/"
	}
	return path[:i]
}

// joinChild appends one component to a canonical directory path.
func joinChild(dir string, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}
