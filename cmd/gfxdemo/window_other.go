//go:build !((linux && !wayland) || windows)

package main

import (
	"fmt"
	"runtime"
)

func openWindow(string, int, int) (appWindow, error) {
	return nil, fmt.Errorf("gfxdemo: no window support on %s/%s", runtime.GOOS, runtime.GOARCH)
}
