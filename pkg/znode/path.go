package znode

import (
	"fmt"
	"strings"
)

// ParentPath returns everything up to the last '/' of path, or "/" if the
// only slash is the leading one. ParentPath("/") is "/".
func ParentPath(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx > 0 {
		return path[:idx]
	}
	return "/"
}

// BaseName returns the segment after the last '/' of path.
func BaseName(path string) string {
	idx := strings.LastIndex(path, "/")
	return path[idx+1:]
}

// ValidatePath verifies that a path received from the client is well formed.
// The root "/" is valid; everything else must start at the root, end in a
// node name and contain no empty segments.
func ValidatePath(path string) error {
	if path == "/" {
		return nil
	}

	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("path does not start at the root")
	}

	if strings.HasSuffix(path, "/") {
		return fmt.Errorf("path should end in a node name, not a '/'")
	}

	names := strings.Split(path, "/")
	// Since we have a leading /, then we expect the first name to be empty.
	for _, name := range names[1:] {
		if name == "" {
			return fmt.Errorf("path contains an empty node name")
		}
	}
	return nil
}

// JoinSeq appends the 10-digit, zero-padded decimal of seq to path. Nodes
// created with the sequential flag get their final name this way.
func JoinSeq(path string, seq int32) string {
	return fmt.Sprintf("%s%010d", path, seq)
}
