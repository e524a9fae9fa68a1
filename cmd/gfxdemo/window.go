package main

import "github.com/gogpu/gfx"

// appWindow is the platform window the demo renders into.
type appWindow interface {
	gfx.Window
	OnResize(fn func(width, height int))
	ShouldClose() bool
	PollEvents()
	Close()
}
