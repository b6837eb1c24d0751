package world

// Coord is a room position on the dungeon grid. Exactly one room may exist
// per coordinate.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Direction is one of the four cardinal exits of a room.
type Direction uint8

const (
	North Direction = iota
	South
	East
	West
)

// Directions in canonical order. All per-room iteration uses this order so
// generation stays deterministic.
var Directions = [4]Direction{North, South, East, West}

func (d Direction) String() string {
	switch d {
	case North:
		return "N"
	case South:
		return "S"
	case East:
		return "E"
	case West:
		return "W"
	}
	return "?"
}

func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	default:
		return East
	}
}

func (d Direction) Translate(c Coord) Coord {
	switch d {
	case North:
		return Coord{c.X, c.Y + 1}
	case South:
		return Coord{c.X, c.Y - 1}
	case East:
		return Coord{c.X + 1, c.Y}
	default:
		return Coord{c.X - 1, c.Y}
	}
}

func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "N":
		return North, true
	case "S":
		return South, true
	case "E":
		return East, true
	case "W":
		return West, true
	}
	return 0, false
}
