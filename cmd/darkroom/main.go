// Command darkroom develops images from the command line: global
// adjustments, preset application and backend probing.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/image/tiff"

	"github.com/gophoto/darkroom"
	"github.com/gophoto/darkroom/backend"
	"github.com/gophoto/darkroom/preset"
	"github.com/gophoto/darkroom/render"

	// Register both renderers with the backend registry.
	_ "github.com/gophoto/darkroom/backend/gl"
	_ "github.com/gophoto/darkroom/backend/webgpu"
)

func main() {
	app := &cli.App{
		Name:    "darkroom",
		Usage:   "non-destructive photo develop pipeline",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log renderer activity to stderr",
			},
		},
		Before: func(ctx *cli.Context) error {
			if ctx.Bool("verbose") {
				darkroom.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})))
			}
			return nil
		},
		Commands: []*cli.Command{
			developCommand(),
			viewCommand(),
			presetsCommand(),
			probeCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "darkroom:", err)
		os.Exit(1)
	}
}

func sliderFlags() []cli.Flag {
	flags := make([]cli.Flag, 0, len(darkroom.ParamNames()))
	for _, name := range darkroom.ParamNames() {
		flags = append(flags, &cli.Float64Flag{
			Name:  name,
			Usage: fmt.Sprintf("%s adjustment", name),
		})
	}
	return flags
}

func developCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "out",
			Usage: "output file (.png or .tiff)",
			Value: "out.png",
		},
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
		Name:      "develop",
		Usage:     "develop one image and write the result",
		ArgsUsage: "input-image",
		Flags:     flags,
		Action:    runDevelop,
	}
}

func runDevelop(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("expected exactly one input image")
	}
	pm, err := darkroom.LoadPixmap(ctx.Args().First())
	if err != nil {
		return err
	}

	// The gl renderer needs a current context even for offscreen work.
	// On display-less machines this fails and webgpu still gets its shot.
	if cleanup, err := hiddenContext(); err == nil {
		defer cleanup()
	} else {
		darkroom.Logger().Debug("no hidden GL context", "err", err)
	}

	r, err := probeBackend(ctx.String("backend"))
	if err != nil {
		return err
	}
	defer r.Dispose()

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
			if err := proc.SetParam(name, float32(ctx.Float64(name))); err != nil {
				return err
			}
		}
	}

	out, err := proc.Export()
	if err != nil {
		return err
	}
	return writeOutput(out, ctx.String("out"))
}

func writeOutput(pm *darkroom.Pixmap, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return pm.SavePNG(path)
	case ".jpg", ".jpeg":
		return pm.SaveJPEG(path, 92)
	case ".tif", ".tiff":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return tiff.Encode(f, pm.ToImage(), &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("unsupported output format %q", filepath.Ext(path))
}

func presetsCommand() *cli.Command {
	return &cli.Command{
		Name:      "presets",
		Usage:     "list and validate presets in a directory",
		ArgsUsage: "preset-dir",
		Action: func(ctx *cli.Context) error {
			dir := "."
			if ctx.NArg() > 0 {
				dir = ctx.Args().First()
			}
			presets, err := preset.LoadDir(dir)
			if err != nil {
				return err
			}
			if len(presets) == 0 {
				fmt.Println("no valid presets found")
				return nil
			}
			for _, p := range presets {
				fmt.Printf("%-24s %d sliders\n", p.Name, len(p.Sliders))
			}
			return nil
		},
	}
}

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:  "probe",
		Usage: "report which backend initializes on this machine",
		Action: func(ctx *cli.Context) error {
			fmt.Println("registered:", strings.Join(backend.Available(), ", "))
			r, err := backend.Probe(backend.BackendWebGPU, backend.BackendGL)
			if err != nil {
				return err
			}
			defer r.Dispose()
			fmt.Println("selected:", r.Name())
			return nil
		},
	}
}

// probeBackend selects a renderer: a forced name, or the priority order
// webgpu then gl.
func probeBackend(name string) (backend.Renderer, error) {
	if name != "" {
		return backend.Probe(name)
	}
	return backend.Probe(backend.BackendWebGPU, backend.BackendGL)
}
