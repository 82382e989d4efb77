package level

import "math"

// TileSize is the edge length of one grid cell in world units.
const TileSize = 32.0

// TileKind identifies what occupies a grid cell.
type TileKind string

const (
	TileWall     TileKind = "wall"
	TileFloor    TileKind = "floor"
	TileEntrance TileKind = "entrance"
	TileExit     TileKind = "exit"
)

// Tile is a single grid cell. Tiles are immutable once a floor is generated;
// the whole grid is replaced on floor transition.
type Tile struct {
	X        int      `json:"x"`
	Y        int      `json:"y"`
	Kind     TileKind `json:"kind"`
	Walkable bool     `json:"walkable"`
}

// Grid is a row-major tile field for one floor.
type Grid struct {
	Width  int
	Height int
	Tiles  []Tile
}

// GridSnapshot is the wire form sent to clients on floor changes.
type GridSnapshot struct {
	Width    int        `json:"width"`
	Height   int        `json:"height"`
	TileSize float64    `json:"tileSize"`
	Tiles    []TileKind `json:"tiles"`
}

func newGrid(width, height int) *Grid {
	tiles := make([]Tile, width*height)
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			tiles[row*width+col] = Tile{X: col, Y: row, Kind: TileWall}
		}
	}
	return &Grid{Width: width, Height: height, Tiles: tiles}
}

// TileAt returns the tile at the given column and row, or false when out of
// bounds.
func (g *Grid) TileAt(col, row int) (Tile, bool) {
	if g == nil || col < 0 || row < 0 || col >= g.Width || row >= g.Height {
		return Tile{}, false
	}
	return g.Tiles[row*g.Width+col], true
}

// IsWalkable reports whether the world-space position lands on a walkable
// tile. Positions outside the grid are not walkable.
func (g *Grid) IsWalkable(worldX, worldY float64) bool {
	if g == nil {
		return false
	}
	col := int(math.Floor(worldX / TileSize))
	row := int(math.Floor(worldY / TileSize))
	tile, ok := g.TileAt(col, row)
	return ok && tile.Walkable
}

// KindAt returns the kind of the tile covering the world-space position.
func (g *Grid) KindAt(worldX, worldY float64) TileKind {
	if g == nil {
		return TileWall
	}
	col := int(math.Floor(worldX / TileSize))
	row := int(math.Floor(worldY / TileSize))
	tile, ok := g.TileAt(col, row)
	if !ok {
		return TileWall
	}
	return tile.Kind
}

// TileCenter returns the world-space center of the cell at col,row.
func TileCenter(col, row int) (float64, float64) {
	return float64(col)*TileSize + TileSize/2, float64(row)*TileSize + TileSize/2
}

// EntranceCenter returns the world-space center of the entrance tile. The
// second return is false when no entrance was placed.
func (g *Grid) EntranceCenter() (float64, float64, bool) {
	return g.centerOf(TileEntrance)
}

// ExitCenter returns the world-space center of the exit tile.
func (g *Grid) ExitCenter() (float64, float64, bool) {
	return g.centerOf(TileExit)
}

func (g *Grid) centerOf(kind TileKind) (float64, float64, bool) {
	if g == nil {
		return 0, 0, false
	}
	for _, tile := range g.Tiles {
		if tile.Kind == kind {
			x, y := TileCenter(tile.X, tile.Y)
			return x, y, true
		}
	}
	return 0, 0, false
}

// Center returns the world-space center of the whole grid.
func (g *Grid) Center() (float64, float64) {
	if g == nil {
		return 0, 0
	}
	return float64(g.Width) * TileSize / 2, float64(g.Height) * TileSize / 2
}

// WalkableCount returns the number of walkable cells.
func (g *Grid) WalkableCount() int {
	if g == nil {
		return 0
	}
	count := 0
	for _, tile := range g.Tiles {
		if tile.Walkable {
			count++
		}
	}
	return count
}

// Snapshot produces the wire form of the grid.
func (g *Grid) Snapshot() GridSnapshot {
	if g == nil {
		return GridSnapshot{}
	}
	kinds := make([]TileKind, len(g.Tiles))
	for i, tile := range g.Tiles {
		kinds[i] = tile.Kind
	}
	return GridSnapshot{Width: g.Width, Height: g.Height, TileSize: TileSize, Tiles: kinds}
}
