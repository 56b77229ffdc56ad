package util_test

import (
	"strings"
	"testing"

	"github.com/nyaxt/gocs/util"
)

func TestJoinKey(t *testing.T) {
	for _, tc := range []struct {
		root, name, expected string
	}{
		{"root", "a.txt", "root/a.txt"},
		{"root/", "/a.txt", "root/a.txt"},
		{"root", "sub//b.txt", "root/sub/b.txt"},
		{"root", "./sub/./c.txt", "root/sub/c.txt"},
		{"root", "sub/../d.txt", "root/d.txt"},
		{"/bucket", "x/y", "/bucket/x/y"},
		{"", "/x//y", "x/y"},
		{"", "../../x", "x"},
	} {
		actual := util.JoinKey(tc.root, tc.name)
		if actual != tc.expected {
			t.Errorf("JoinKey(%q, %q): expected %q, got %q", tc.root, tc.name, tc.expected, actual)
		}
		if strings.Contains(actual, "//") {
			t.Errorf("JoinKey(%q, %q) = %q contains redundant separator", tc.root, tc.name, actual)
		}
	}
}

func TestRandomString(t *testing.T) {
	s := util.RandomString(7)
	if len(s) != 7 {
		t.Errorf("Unexpected len: %q", s)
	}
	for _, c := range s {
		if !strings.ContainsRune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", c) {
			t.Errorf("Unexpected char %q in %q", c, s)
		}
	}
	if util.RandomString(16) == util.RandomString(16) {
		t.Errorf("RandomString returned the same value twice")
	}
}

func TestIsKeyUnder(t *testing.T) {
	for _, tc := range []struct {
		root, key string
		expected  bool
	}{
		{"root", "root/a", true},
		{"root", "root", true},
		{"root", "rootx/a", false},
		{"root", "other/a", false},
		{"/bucket", "/bucket/a", true},
		{"", "anything", true},
		{"/", "/x", true},
	} {
		if actual := util.IsKeyUnder(tc.root, tc.key); actual != tc.expected {
			t.Errorf("IsKeyUnder(%q, %q): expected %v", tc.root, tc.key, tc.expected)
		}
	}
}
