package gfx

import (
	"sync"
	"testing"

	"github.com/gogpu/gpucontext"
)

type scaledWindow struct {
	*HeadlessWindow
	scale float64
}

func (w scaledWindow) ScaleFactor() float64 { return w.scale }

func TestPhysicalSize(t *testing.T) {
	tests := []struct {
		name  string
		scale float64
		w, h  int
	}{
		{"unscaled", 1, 800, 600},
		{"retina", 2, 1600, 1200},
		{"fractional", 1.25, 1000, 750},
		{"invalid scale", 0, 800, 600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			win := scaledWindow{HeadlessWindow: NewHeadlessWindow(800, 600), scale: tt.scale}
			w, h := physicalSize(win)
			if w != tt.w || h != tt.h {
				t.Errorf("physicalSize() = %dx%d, want %dx%d", w, h, tt.w, tt.h)
			}
		})
	}
}

func TestHeadlessWindow(t *testing.T) {
	win := NewHeadlessWindow(320, 200)
	if w, h := win.Size(); w != 320 || h != 200 {
		t.Errorf("Size() = %dx%d, want 320x200", w, h)
	}
	if d, h := win.NativeHandles(); d != 0 || h != 0 {
		t.Errorf("NativeHandles() = %d, %d, want 0, 0", d, h)
	}
	win.Resize(10, 20)
	if w, h := win.Size(); w != 10 || h != 20 {
		t.Errorf("Size() after Resize = %dx%d, want 10x20", w, h)
	}
}

// resizeEvents is a gpucontext.EventSource that lets tests fire resizes.
type resizeEvents struct {
	gpucontext.NullEventSource
	fn func(int, int)
}

func (e *resizeEvents) OnResize(fn func(int, int)) { e.fn = fn }

var _ gpucontext.EventSource = (*resizeEvents)(nil)

func TestResizeWatcher(t *testing.T) {
	var rw ResizeWatcher
	src := &resizeEvents{}
	rw.Watch(src)

	if _, _, ok := rw.Resized(); ok {
		t.Fatal("Resized() reported a resize before any event")
	}

	src.fn(100, 50)
	src.fn(300, 150)
	w, h, ok := rw.Resized()
	if !ok || w != 300 || h != 150 {
		t.Errorf("Resized() = %d, %d, %v, want 300, 150, true", w, h, ok)
	}
	if _, _, ok := rw.Resized(); ok {
		t.Error("Resized() reported the same resize twice")
	}
}

func TestResizeWatcherConcurrent(t *testing.T) {
	var rw ResizeWatcher
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rw.Notify(i+1, i+1)
		}()
	}
	wg.Wait()

	w, h, ok := rw.Resized()
	if !ok || w != h || w < 1 || w > 8 {
		t.Errorf("Resized() = %d, %d, %v", w, h, ok)
	}
}
