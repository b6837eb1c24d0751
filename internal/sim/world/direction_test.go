package world

import "testing"

func TestDirection_RoundTrip(t *testing.T) {
	for _, d := range Directions {
		got, ok := ParseDirection(d.String())
		if !ok || got != d {
			t.Fatalf("ParseDirection(%q) = %v, %v", d.String(), got, ok)
		}
	}
	if _, ok := ParseDirection("NE"); ok {
		t.Fatal("accepted diagonal")
	}
}

func TestDirection_OppositeTranslateCancel(t *testing.T) {
	start := Coord{X: 4, Y: -7}
	for _, d := range Directions {
		if d.Opposite().Opposite() != d {
			t.Fatalf("%v opposite not involutive", d)
		}
		if got := d.Opposite().Translate(d.Translate(start)); got != start {
			t.Fatalf("%v round trip moved %v to %v", d, start, got)
		}
	}
}

func TestRoomID_Format(t *testing.T) {
	if got := RoomID(Coord{X: -2, Y: 13}); got != "R-2_13" {
		t.Fatalf("RoomID = %q", got)
	}
}
