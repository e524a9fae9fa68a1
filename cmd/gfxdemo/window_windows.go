//go:build windows

package main

import "unsafe"

// NativeHandles returns a zero HINSTANCE and the HWND.
func (g *glfwWindow) NativeHandles() (display, window uintptr) {
	return 0, uintptr(unsafe.Pointer(g.w.GetWin32Window()))
}
