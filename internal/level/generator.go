package level

import "math/rand"

// GeneratorConfig tunes floor generation.
type GeneratorConfig struct {
	Width         int
	Height        int
	MinRooms      int
	MaxRooms      int
	MinRoomSize   int
	MaxRoomSize   int
	CorridorCells int
}

// Normalized returns a config with defaults applied to zero or invalid
// fields.
func (cfg GeneratorConfig) Normalized() GeneratorConfig {
	normalized := cfg
	if normalized.Width <= 0 {
		normalized.Width = 50
	}
	if normalized.Height <= 0 {
		normalized.Height = 50
	}
	if normalized.MinRooms <= 0 {
		normalized.MinRooms = 6
	}
	if normalized.MaxRooms < normalized.MinRooms {
		normalized.MaxRooms = 13
	}
	if normalized.MinRoomSize <= 0 {
		normalized.MinRoomSize = 4
	}
	if normalized.MaxRoomSize < normalized.MinRoomSize {
		normalized.MaxRoomSize = 11
	}
	if normalized.CorridorCells < 0 {
		normalized.CorridorCells = 0
	} else if normalized.CorridorCells == 0 {
		normalized.CorridorCells = 50
	}
	return normalized
}

// DefaultGeneratorConfig returns the standard 50x50 floor parameters.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{}.Normalized()
}

// Generate produces a floor grid. Every cell starts as wall, rooms and
// corridor cells are carved to floor, and the first and last walkable cells
// in row-major order become the entrance and exit. Room overlap simply
// re-marks cells; corridor cells do not guarantee connectivity between
// rooms, so a floor may generate with an unreachable exit.
func Generate(cfg GeneratorConfig, rng *rand.Rand) *Grid {
	cfg = cfg.Normalized()
	grid := newGrid(cfg.Width, cfg.Height)

	roomCount := cfg.MinRooms + rng.Intn(cfg.MaxRooms-cfg.MinRooms+1)
	for i := 0; i < roomCount; i++ {
		carveRoom(grid, cfg, rng)
	}

	for i := 0; i < cfg.CorridorCells; i++ {
		col := 1 + rng.Intn(cfg.Width-2)
		row := 1 + rng.Intn(cfg.Height-2)
		markFloor(grid, col, row)
	}

	placeEntranceExit(grid)
	return grid
}

func carveRoom(grid *Grid, cfg GeneratorConfig, rng *rand.Rand) {
	span := cfg.MaxRoomSize - cfg.MinRoomSize + 1
	roomW := cfg.MinRoomSize + rng.Intn(span)
	roomH := cfg.MinRoomSize + rng.Intn(span)

	maxX := grid.Width - roomW - 1
	maxY := grid.Height - roomH - 1
	if maxX < 1 || maxY < 1 {
		return
	}
	startX := 1 + rng.Intn(maxX)
	startY := 1 + rng.Intn(maxY)

	for row := startY; row < startY+roomH; row++ {
		for col := startX; col < startX+roomW; col++ {
			markFloor(grid, col, row)
		}
	}
}

func markFloor(grid *Grid, col, row int) {
	if col < 0 || row < 0 || col >= grid.Width || row >= grid.Height {
		return
	}
	idx := row*grid.Width + col
	grid.Tiles[idx].Kind = TileFloor
	grid.Tiles[idx].Walkable = true
}

// placeEntranceExit promotes the first and last walkable cells in row-major
// order. Skipped when fewer than two walkable cells exist.
func placeEntranceExit(grid *Grid) {
	first := -1
	last := -1
	for i := range grid.Tiles {
		if !grid.Tiles[i].Walkable {
			continue
		}
		if first == -1 {
			first = i
		}
		last = i
	}
	if first == -1 || first == last {
		return
	}
	grid.Tiles[first].Kind = TileEntrance
	grid.Tiles[last].Kind = TileExit
}
