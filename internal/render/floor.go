// Package render rasterizes a floor snapshot into a PNG. It backs the
// debug endpoint only; clients draw the real view themselves.
package render

import (
	"bytes"
	"errors"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"floorcrawl/internal/level"
)

const (
	defaultTilePixels = 8
	maxImageEdge      = 1024
)

const (
	wallColor     = "#14181f"
	floorColor    = "#2e3440"
	entranceColor = "#5e81ac"
	exitColor     = "#a3be8c"
	playerColor   = "#88c0d0"
	shotColor     = "#ebcb8b"
	boltColor     = "#bf616a"
	enemyFallback = "#d08770"
)

// ErrEmptyScene rejects a render request before a floor exists.
var ErrEmptyScene = errors.New("render: scene has no grid")

// Point is a world-space position.
type Point struct {
	X float64
	Y float64
}

// Marker is an enemy body to draw.
type Marker struct {
	X      float64
	Y      float64
	Radius float64
	Color  string
}

// Scene is everything the rasterizer needs for one frame.
type Scene struct {
	Grid        level.GridSnapshot
	PlayerX     float64
	PlayerY     float64
	PlayerHalf  float64
	Enemies     []Marker
	PlayerShots []Point
	EnemyBolts  []Point
}

// Options tunes the output. Zero values use the defaults.
type Options struct {
	// TilePixels is the rendered edge of one tile. Larger grids are
	// downscaled afterwards so the longer edge stays within bounds.
	TilePixels int
}

// FloorPNG draws the scene and returns encoded PNG bytes.
func FloorPNG(scene Scene, opts Options) ([]byte, error) {
	if scene.Grid.Width <= 0 || scene.Grid.Height <= 0 {
		return nil, ErrEmptyScene
	}
	tilePixels := opts.TilePixels
	if tilePixels <= 0 {
		tilePixels = defaultTilePixels
	}
	tileSize := scene.Grid.TileSize
	if tileSize <= 0 {
		tileSize = level.TileSize
	}
	// ratio converts world units to output pixels.
	ratio := float64(tilePixels) / tileSize

	width := scene.Grid.Width * tilePixels
	height := scene.Grid.Height * tilePixels
	dc := gg.NewContext(width, height)
	dc.SetHexColor(wallColor)
	dc.Clear()

	for i, kind := range scene.Grid.Tiles {
		if kind == level.TileWall {
			continue
		}
		col := i % scene.Grid.Width
		row := i / scene.Grid.Width
		dc.SetHexColor(tileColor(kind))
		dc.DrawRectangle(float64(col*tilePixels), float64(row*tilePixels), float64(tilePixels), float64(tilePixels))
		dc.Fill()
	}

	for _, enemy := range scene.Enemies {
		color := enemy.Color
		if color == "" {
			color = enemyFallback
		}
		dc.SetHexColor(color)
		dc.DrawCircle(enemy.X*ratio, enemy.Y*ratio, dotRadius(enemy.Radius*ratio))
		dc.Fill()
	}

	dc.SetHexColor(shotColor)
	for _, shot := range scene.PlayerShots {
		dc.DrawCircle(shot.X*ratio, shot.Y*ratio, dotRadius(2*ratio))
		dc.Fill()
	}
	dc.SetHexColor(boltColor)
	for _, bolt := range scene.EnemyBolts {
		dc.DrawCircle(bolt.X*ratio, bolt.Y*ratio, dotRadius(2*ratio))
		dc.Fill()
	}

	dc.SetHexColor(playerColor)
	dc.DrawCircle(scene.PlayerX*ratio, scene.PlayerY*ratio, dotRadius(scene.PlayerHalf*ratio))
	dc.Fill()

	img := dc.Image()
	if width > maxImageEdge || height > maxImageEdge {
		if width >= height {
			img = imaging.Resize(img, maxImageEdge, 0, imaging.Lanczos)
		} else {
			img = imaging.Resize(img, 0, maxImageEdge, imaging.Lanczos)
		}
	}
	return encodePNG(img)
}

func tileColor(kind level.TileKind) string {
	switch kind {
	case level.TileEntrance:
		return entranceColor
	case level.TileExit:
		return exitColor
	case level.TileFloor:
		return floorColor
	default:
		return wallColor
	}
}

// dotRadius keeps small bodies visible at low zoom.
func dotRadius(r float64) float64 {
	if r < 1.5 {
		return 1.5
	}
	return r
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
