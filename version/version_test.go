package version_test

import (
	"strings"
	"testing"

	"github.com/nyaxt/gocs/version"
)

func TestDumpBuildInfo(t *testing.T) {
	s := version.DumpBuildInfo()
	for _, key := range []string{"Version:", "Git commit:", "Build time:", "Go version:"} {
		if !strings.Contains(s, key) {
			t.Errorf("DumpBuildInfo lacks %q: %s", key, s)
		}
	}
}
