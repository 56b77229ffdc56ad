package version

import (
	"fmt"
	"runtime"
	"strconv"
	"time"
)

// Overridden at link time, e.g.
//
//	go build -ldflags "-X github.com/nyaxt/gocs/version.GIT_COMMIT=$(git rev-parse HEAD)"
var (
	GIT_COMMIT = "unknown"
	BUILD_HOST = "unknown"
	BUILD_TIME = "0"

	BuildVersion = "0.1.0"
)

var BuildTime time.Time
var BuildTimeString string

func init() {
	sec, err := strconv.ParseInt(BUILD_TIME, 10, 64)
	if err != nil {
		sec = 0
	}
	BuildTime = time.Unix(sec, 0)
	BuildTimeString = BuildTime.Format("Mon Jan 2 15:04:05 -0700 MST 2006")
}

func DumpBuildInfo() string {
	return fmt.Sprintf(""+
		"Version:    %s\n"+
		"Git commit: %s\n"+
		"Build host: %s\n"+
		"Build time: %s\n"+
		"Go version: %s\n"+
		"OS/Arch:    %s/%s\n",
		BuildVersion,
		GIT_COMMIT,
		BUILD_HOST,
		BuildTimeString,
		runtime.Version(),
		runtime.GOOS, runtime.GOARCH,
	)
}
