package engine

// Bounds is the rectangle positions must fall inside
type Bounds struct {
	Width  int
	Height int
}

// Contains reports whether p lies inside the bounds
func (b Bounds) Contains(p Position) bool {
	return p.X >= 0 && p.X < b.Width && p.Y >= 0 && p.Y < b.Height
}

// NewGrid generates a fully passable grid
func NewGrid(width, height int) *Grid {
	tiles := make([][]Tile, height)
	for y := 0; y < height; y++ {
		tiles[y] = make([]Tile, width)
		for x := 0; x < width; x++ {
			tiles[y][x] = Tile{X: x, Y: y, Terrain: Open}
		}
	}
	return &Grid{Width: width, Height: height, Tiles: tiles}
}

// Bounds returns the grid dimensions
func (g *Grid) Bounds() Bounds {
	return Bounds{Width: g.Width, Height: g.Height}
}

// InBounds checks if a position is on the grid
func (g *Grid) InBounds(p Position) bool {
	return g.Bounds().Contains(p)
}

// TerrainAt returns the terrain at p. Anything off the grid is treated as closed.
func (g *Grid) TerrainAt(p Position) Terrain {
	if !g.InBounds(p) {
		return Closed
	}
	return g.Tiles[p.Y][p.X].Terrain
}

// SetTerrain changes a single tile; out-of-bounds positions are ignored
func (g *Grid) SetTerrain(p Position, t Terrain) {
	if g.InBounds(p) {
		g.Tiles[p.Y][p.X].Terrain = t
	}
}

// ApplyWalls closes every listed tile
func (g *Grid) ApplyWalls(walls []Position) {
	for _, w := range walls {
		g.SetTerrain(w, Closed)
	}
}

// Clone returns a deep copy of the grid
func (g *Grid) Clone() *Grid {
	if g == nil {
		return nil
	}
	c := &Grid{Width: g.Width, Height: g.Height, Tiles: make([][]Tile, len(g.Tiles))}
	for y, row := range g.Tiles {
		c.Tiles[y] = append([]Tile(nil), row...)
	}
	return c
}

// Neighbors returns the in-bounds orthogonal neighbours of p, ordered +x, -x, +y, -y
func Neighbors(p Position, b Bounds) []Position {
	candidates := [4]Position{
		{X: p.X + 1, Y: p.Y},
		{X: p.X - 1, Y: p.Y},
		{X: p.X, Y: p.Y + 1},
		{X: p.X, Y: p.Y - 1},
	}
	out := make([]Position, 0, 4)
	for _, c := range candidates {
		if b.Contains(c) {
			out = append(out, c)
		}
	}
	return out
}

// TilesInRange returns every in-bounds tile whose Manhattan distance to center
// is within [minRange, maxRange]
func TilesInRange(center Position, minRange, maxRange int, b Bounds) []Position {
	out := []Position{}
	if maxRange < 0 || minRange > maxRange {
		return out
	}
	for dy := -maxRange; dy <= maxRange; dy++ {
		for dx := -maxRange; dx <= maxRange; dx++ {
			d := abs(dx) + abs(dy)
			if d < minRange || d > maxRange {
				continue
			}
			p := Position{X: center.X + dx, Y: center.Y + dy}
			if b.Contains(p) {
				out = append(out, p)
			}
		}
	}
	return out
}

// TilesInRadius returns the filled square of tiles within Chebyshev distance radius
func TilesInRadius(center Position, radius int, b Bounds) []Position {
	out := []Position{}
	if radius < 0 {
		return out
	}
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			p := Position{X: center.X + dx, Y: center.Y + dy}
			if b.Contains(p) {
				out = append(out, p)
			}
		}
	}
	return out
}
