// Package version holds build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time, e.g.
//
//	go build -ldflags "-X github.com/jackzampolin/rectoverso/version.GitRelease=v0.1.0"
var (
	GitRelease    = "dev"
	GitCommit     = "unknown"
	GitCommitDate = "unknown"
)

// GoInfo describes the toolchain and platform of the binary.
var GoInfo = fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
