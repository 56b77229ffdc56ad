package util

import (
	"fmt"
	"os"
	"path"
	"strings"
)

func IsDir(p string) error {
	fi, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		return fmt.Errorf("Error os.Stat: %v", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("Is not a dir")
	}
	return nil
}

func IsRegular(p string) error {
	fi, err := os.Stat(p)
	if err != nil {
		return err
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("Is not a regular file")
	}
	return nil
}

// JoinKey joins root and name with a single "/" and cleans the result.
// "." and ".." segments are resolved and duplicate separators collapsed. A
// leading "/" on root is kept, a trailing "/" is dropped.
func JoinKey(root, name string) string {
	if root == "" {
		return strings.TrimPrefix(path.Clean("/"+name), "/")
	}
	return path.Clean(root + "/" + name)
}

// IsKeyUnder reports whether key equals root or lies below it. An empty or
// "/" root contains every key.
func IsKeyUnder(root, key string) bool {
	if root == "" || root == "/" {
		return true
	}
	return key == root || strings.HasPrefix(key, root+"/")
}
