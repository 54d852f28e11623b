package route

import "strings"

// split tokenizes a request target or route pattern into its non-empty
// segments. Leading and trailing slashes are normalized away; a bare "/"
// or empty string yields the empty segment list (the root).
//
// split is total: it never fails, and every input produces a deterministic
// segment list.
//
//	split("")            -> []
//	split("/")            -> []
//	split("/users/42")    -> ["users", "42"]
//	split("users/42/")    -> ["users", "42"]
//	split("//users///42") -> ["users", "42"]
func split(path string) []string {
	if path == "" || path == "/" {
		return nil
	}
	parts := strings.Split(path, "/")
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		segs = append(segs, p)
	}
	return segs
}

// isParam reports whether a pattern segment denotes a path parameter, and
// if so returns its name (the portion after the leading ":").
func isParam(seg string) (name string, ok bool) {
	if len(seg) > 1 && seg[0] == ':' {
		return seg[1:], true
	}
	return "", false
}
