//go:build (linux && !wayland) || windows

package main

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	// GLFW event handling must run on the main thread.
	runtime.LockOSThread()
}

type glfwWindow struct {
	w        *glfw.Window
	onResize func(width, height int)
}

func openWindow(title string, width, height int) (appWindow, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}
	// The surface is created by the graphics backend, not by GLFW.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	w, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}
	win := &glfwWindow{w: w}
	w.SetKeyCallback(func(w *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})
	w.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		if win.onResize != nil {
			win.onResize(width, height)
		}
	})
	return win, nil
}

// Size returns the framebuffer size, so ScaleFactor is always 1.
func (g *glfwWindow) Size() (width, height int) { return g.w.GetFramebufferSize() }

func (g *glfwWindow) ScaleFactor() float64 { return 1 }

func (g *glfwWindow) RequestRedraw() { glfw.PostEmptyEvent() }

func (g *glfwWindow) OnResize(fn func(width, height int)) { g.onResize = fn }

func (g *glfwWindow) ShouldClose() bool { return g.w.ShouldClose() }

func (g *glfwWindow) PollEvents() { glfw.PollEvents() }

func (g *glfwWindow) Close() {
	g.w.Destroy()
	glfw.Terminate()
}
