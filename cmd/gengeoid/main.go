// Command gengeoid generates a synthetic geoid undulation grid fixture using
// smooth coherent noise. The output is a JSON grid the service can load via
// GEOID_PATH, useful for local development when no real geoid model is
// available.
//
// Usage:
//
//	go run ./cmd/gengeoid -width 128 -height 128 -out data/geoid.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/oceanbound/floodline/internal/geoid"
)

// Synthetic undulations span a narrower band than the grid format allows, so
// generated fixtures always validate.
const (
	minValue = -107.0
	maxValue = 86.0
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	width := flag.Int("width", 128, "grid width in samples")
	height := flag.Int("height", 128, "grid height in samples")
	seed := flag.Int64("seed", 1337, "noise seed")
	scale := flag.Float64("scale", 3.0, "noise frequency across the grid")
	out := flag.String("out", "", "output path for the JSON grid")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *width < 2 || *height < 2 {
		return fmt.Errorf("grid must be at least 2x2, got %dx%d", *width, *height)
	}

	noise := opensimplex.NewNormalized(*seed)

	grid := &geoid.Grid{
		Width:  *width,
		Height: *height,
		Values: make([]float64, *width**height),
	}
	for y := 0; y < *height; y++ {
		for x := 0; x < *width; x++ {
			nx := float64(x) / float64(*width-1) * *scale
			ny := float64(y) / float64(*height-1) * *scale
			n := noise.Eval2(nx, ny) // in [0, 1]
			grid.Values[y**width+x] = minValue + n*(maxValue-minValue)
		}
	}

	if err := grid.Validate(); err != nil {
		return fmt.Errorf("generated grid failed validation: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if err := enc.Encode(grid); err != nil {
		return fmt.Errorf("write grid: %w", err)
	}

	log.Printf("wrote %dx%d geoid grid to %s", *width, *height, *out)
	return nil
}
