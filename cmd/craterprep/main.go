// craterprep turns level bitmaps into .crm collision maps and inspects them.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/craterfield/internal/config"
	"github.com/Faultbox/craterfield/internal/engine/debug"
	"github.com/Faultbox/craterfield/internal/engine/texture"
	"github.com/Faultbox/craterfield/internal/logger"
	"github.com/Faultbox/craterfield/internal/preprocess"
	"github.com/Faultbox/craterfield/pkg/formats"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if err := logger.Init("info", ""); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "build", "b":
		err = cmdBuild(args)
	case "info", "i":
		err = cmdInfo(args)
	case "preview", "p":
		err = cmdPreview(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if errors.Is(err, dialog.ErrCancelled) {
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`craterprep - destructible terrain preprocessor

Usage:
  craterprep <command> [options]

Commands:
  build [flags] [image] [out.crm]   Build a collision map from an image's alpha
  info <file.crm>                   Show collision map statistics
  preview [flags] <file.crm> <out>  Write a normal map PNG

Build flags:
  -smooth N      Normal smoothing radius (default 6)
  -border MODE   Pixels outside the image: blank or solid (default blank)
  -progress N    Log progress every N columns (default 500)
  -colorkey      Treat magenta as transparent
  -normals PATH  Also write a normal map preview

Without an image path, build opens a file picker.

Examples:
  craterprep build level.png
  craterprep build -smooth 4 -border solid cave.tga cave.crm
  craterprep info level.crm
  craterprep preview -max 1024 level.crm normals.png`)
}

// buildOptions collects the build flags.
type buildOptions struct {
	preprocess.Options
	ColorKey bool
	Normals  string
}

func cmdBuild(args []string) error {
	// config.yaml, when present, supplies the flag defaults
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	def := cfg.Preprocess

	fs := flag.NewFlagSet("build", flag.ExitOnError)
	smooth := fs.Int("smooth", def.SmoothRadius, "Normal smoothing radius")
	border := fs.String("border", def.Border, "Border mode: blank or solid")
	progress := fs.Int("progress", def.ProgressEvery, "Progress log interval in columns")
	colorKey := fs.Bool("colorkey", false, "Treat magenta as transparent")
	normals := fs.String("normals", "", "Write a normal map preview PNG")
	fs.Parse(args)

	mode, ok := preprocess.ParseBorderMode(*border)
	if !ok {
		return fmt.Errorf("unknown border mode %q", *border)
	}

	in := fs.Arg(0)
	if in == "" {
		in, err = pickImage()
		if err != nil {
			return err
		}
	}
	out := fs.Arg(1)
	if out == "" {
		out = defaultOutput(in)
	}

	opts := buildOptions{
		Options:  preprocess.Options{SmoothRadius: *smooth, ProgressEvery: *progress, Border: mode},
		ColorKey: *colorKey,
		Normals:  *normals,
	}
	stats, err := build(in, out, opts)
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", out)
	fmt.Printf("Size:       %dx%d\n", stats.Width, stats.Height)
	fmt.Printf("Solid:      %d\n", stats.Solid)
	fmt.Printf("Edge:       %d\n", stats.Edge)
	fmt.Printf("Interior:   %d\n", stats.Interior)
	if stats.Degenerate > 0 {
		fmt.Printf("Degenerate: %d (defaulted to vertical)\n", stats.Degenerate)
	}
	return nil
}

// pickImage asks for the source image with a native file dialog.
func pickImage() (string, error) {
	exts := make([]string, 0, len(texture.Extensions))
	for _, e := range texture.Extensions {
		exts = append(exts, strings.TrimPrefix(e, "."))
	}
	return dialog.File().
		Filter("Level images", exts...).
		Filter("All Files", "*").
		Title("Open level image").
		Load()
}

// defaultOutput replaces in's extension with .crm.
func defaultOutput(in string) string {
	return strings.TrimSuffix(in, filepath.Ext(in)) + ".crm"
}

// build preprocesses the image at in and writes the collision map to out.
func build(in, out string, opts buildOptions) (preprocess.Stats, error) {
	img, err := texture.LoadImage(in)
	if err != nil {
		return preprocess.Stats{}, err
	}
	if opts.ColorKey {
		img = texture.ToRGBA(img, true)
	}

	start := time.Now()
	r, stats := preprocess.Build(img, opts.Options)
	if r == nil {
		return stats, fmt.Errorf("%s: empty image", in)
	}
	logger.Info("preprocessed",
		zap.String("input", in),
		zap.Duration("elapsed", time.Since(start)))

	if err := formats.WriteCRMFile(out, r); err != nil {
		return stats, err
	}

	if opts.Normals != "" {
		if err := debug.WritePNG(opts.Normals, debug.NormalMapImage(r)); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func cmdInfo(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: craterprep info <file.crm>")
	}
	text, err := describe(args[0])
	if err != nil {
		return err
	}
	fmt.Print(text)
	return nil
}

// describe summarizes a collision map file.
func describe(path string) (string, error) {
	crm, err := formats.ParseCRMFile(path)
	if err != nil {
		return "", err
	}
	solid, edge, interior := crm.CountSolid()
	total := int(crm.Width) * int(crm.Height)

	var b strings.Builder
	fmt.Fprintf(&b, "File:     %s\n", path)
	fmt.Fprintf(&b, "Version:  %s\n", crm.Version)
	fmt.Fprintf(&b, "Size:     %dx%d\n", crm.Width, crm.Height)
	fmt.Fprintf(&b, "Solid:    %d (%.1f%%)\n", solid, percent(solid, total))
	fmt.Fprintf(&b, "Edge:     %d\n", edge)
	fmt.Fprintf(&b, "Interior: %d\n", interior)
	return b.String(), nil
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}

func cmdPreview(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	maxSide := fs.Int("max", 0, "Scale down so the longer side is at most N pixels (0 = full size)")
	fs.Parse(args)

	if fs.NArg() < 2 {
		return errors.New("usage: craterprep preview [-max N] <file.crm> <out.png>")
	}
	if err := preview(fs.Arg(0), fs.Arg(1), *maxSide); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", fs.Arg(1))
	return nil
}

// preview renders the collision map at in as a normal map PNG.
func preview(in, out string, maxSide int) error {
	r, err := formats.LoadRaster(in)
	if err != nil {
		return err
	}
	img := debug.NormalMapImage(r)
	if maxSide <= 0 {
		return debug.WritePNG(out, img)
	}
	scaled, err := debug.Preview(img, maxSide)
	if err != nil {
		return err
	}
	return debug.WritePNG(out, scaled)
}
