package main

import (
	"fmt"
	"runtime"
)

var Version = "v0.1.0"

func versionStr() string {
	return fmt.Sprintf("vlessws %s, %s %s %s", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
