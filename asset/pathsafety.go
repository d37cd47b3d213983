package asset

import (
	"path/filepath"
	"strings"
)

// ValidatePath rejects relative asset paths that could escape the asset root.
//
// The check is lexical: the path is split on both '/' and '\' and rejected if
// any segment is "..", if it is absolute or carries a drive letter, if it
// contains a NUL byte, or if it resolves to the root itself (".", "./"). The filesystem is never consulted, so a path is judged
// the same whether or not its target exists.
func ValidatePath(rel string) error {
	if rel == "" {
		return &PathSafetyError{Path: rel, Reason: "empty path"}
	}
	if strings.ContainsRune(rel, 0) {
		return &PathSafetyError{Path: rel, Reason: "NUL byte in path"}
	}
	if isAbsolute(rel) {
		return &PathSafetyError{Path: rel, Reason: "absolute path"}
	}

	segments := strings.FieldsFunc(rel, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	names := 0
	for _, seg := range segments {
		switch seg {
		case "..":
			return &PathSafetyError{Path: rel, Reason: "parent directory segment"}
		case ".":
		default:
			names++
		}
	}
	if names == 0 {
		return &PathSafetyError{Path: rel, Reason: "path names the asset root"}
	}
	return nil
}

func isAbsolute(p string) bool {
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, `\`) {
		return true
	}
	if filepath.IsAbs(p) || filepath.VolumeName(p) != "" {
		return true
	}
	// Drive letters are rejected on every platform so a path is judged the
	// same regardless of where the agent runs.
	if len(p) >= 2 && p[1] == ':' && isASCIILetter(p[0]) {
		return true
	}
	return false
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
