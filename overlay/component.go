package overlay

type Coord struct {
	X, Y int
}

// ConnectedComponent is one 4-connected piece of a mask. Bounds are inclusive.
type ConnectedComponent struct {
	ComponentID int
	PixelCount  int
	Bounds      struct {
		TopLeft     Coord
		BottomRight Coord
	}
}
