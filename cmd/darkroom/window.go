package main

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/urfave/cli/v2"

	"github.com/gophoto/darkroom"
	"github.com/gophoto/darkroom/backend"
	"github.com/gophoto/darkroom/backend/webgpu"
	"github.com/gophoto/darkroom/preset"
	"github.com/gophoto/darkroom/render"
)

func init() {
	// GLFW event handling must run on the main OS thread.
	runtime.LockOSThread()
}

func viewCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "preset",
			Usage: "preset YAML to apply before slider flags",
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "force a specific backend (gl, webgpu)",
		},
	}
	flags = append(flags, sliderFlags()...)

	return &cli.Command{
		Name:      "view",
		Usage:     "develop one image and show it in a window",
		ArgsUsage: "input-image",
		Flags:     flags,
		Action:    runView,
	}
}

// openWindow creates the presentation window for the given backend. The
// hints differ: gl needs a 3.3 core context, webgpu brings its own API
// and wants no context at all.
func openWindow(backendName string, width, height int) (*glfw.Window, error) {
	glfw.DefaultWindowHints()
	if backendName == backend.BackendGL {
		glfw.WindowHint(glfw.ContextVersionMajor, 3)
		glfw.WindowHint(glfw.ContextVersionMinor, 3)
		glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
		glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	} else {
		glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	}

	win, err := glfw.CreateWindow(width, height, "darkroom", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}
	if backendName == backend.BackendGL {
		win.MakeContextCurrent()
		glfw.SwapInterval(1)
	}
	return win, nil
}

// windowedRenderer probes backends in priority order, rebuilding the
// window per candidate since the creation hints depend on the backend.
func windowedRenderer(forced string, width, height int) (backend.Renderer, *glfw.Window, error) {
	names := []string{forced}
	if forced == "" {
		names = []string{backend.BackendWebGPU, backend.BackendGL}
	}

	var lastErr error
	for _, name := range names {
		win, err := openWindow(name, width, height)
		if err != nil {
			lastErr = err
			continue
		}
		if name == backend.BackendWebGPU {
			webgpu.SetSurfaceSource(func() *wgpu.SurfaceDescriptor {
				return wgpuglfw.GetSurfaceDescriptor(win)
			})
		}
		r, err := backend.Probe(name)
		if name == backend.BackendWebGPU {
			webgpu.SetSurfaceSource(nil)
		}
		if err == nil {
			return r, win, nil
		}
		lastErr = err
		win.Destroy()
	}
	return nil, nil, fmt.Errorf("no windowed backend available: %w", lastErr)
}

// hiddenContext creates an invisible window whose GL context backs
// offscreen work when the gl renderer ends up selected. The webgpu
// renderer ignores a current context, so holding one is harmless.
func hiddenContext() (func(), error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw: %w", err)
	}
	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	win, err := glfw.CreateWindow(64, 64, "darkroom", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create hidden window: %w", err)
	}
	win.MakeContextCurrent()
	return func() {
		win.Destroy()
		glfw.Terminate()
	}, nil
}

func runView(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("expected exactly one input image")
	}
	pm, err := darkroom.LoadPixmap(ctx.Args().First())
	if err != nil {
		return err
	}

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw: %w", err)
	}
	defer glfw.Terminate()

	r, win, err := windowedRenderer(ctx.String("backend"), pm.Width(), pm.Height())
	if err != nil {
		return err
	}
	defer r.Dispose()
	isGL := r.Name() == backend.BackendGL

	fbw, fbh := win.GetFramebufferSize()
	r.Resize(fbw, fbh)

	proc := render.NewProcessor(r)
	defer proc.Close()
	if err := proc.LoadImage(pm); err != nil {
		return err
	}

	if path := ctx.String("preset"); path != "" {
		p, err := preset.Load(path)
		if err != nil {
			return err
		}
		if err := p.Apply(proc.Params()); err != nil {
			return err
		}
	}
	for _, name := range darkroom.ParamNames() {
		if ctx.IsSet(name) {
			if err := proc.Params().Set(name, float32(ctx.Float64(name))); err != nil {
				return err
			}
		}
	}

	dirty := true
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, w, h int) {
		r.Resize(w, h)
		dirty = true
	})
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			win.SetShouldClose(true)
		}
	})

	for !win.ShouldClose() {
		if dirty {
			if err := proc.Render(); err != nil {
				return err
			}
			if isGL {
				win.SwapBuffers()
			}
			dirty = false
		}
		glfw.WaitEvents()
	}
	return nil
}
