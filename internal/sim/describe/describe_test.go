package describe

import (
	"strings"
	"testing"

	"dungeongrid.ai/internal/sim/world"
)

func TestRoomDetails_Deterministic(t *testing.T) {
	a := NewProvider(42)
	b := NewProvider(42)
	c := world.Coord{X: 3, Y: -1}
	exits := []world.Direction{world.North, world.East}

	name1, desc1 := a.RoomDetails(c, exits)
	name2, desc2 := b.RoomDetails(c, exits)
	if name1 != name2 || desc1 != desc2 {
		t.Fatalf("same seed diverged: %q/%q vs %q/%q", name1, desc1, name2, desc2)
	}
	if !strings.HasPrefix(name1, "The ") {
		t.Fatalf("name = %q", name1)
	}
	if !strings.Contains(desc1, "north and east") {
		t.Fatalf("exits not woven in: %q", desc1)
	}
}

func TestRoomDetails_SeedChangesText(t *testing.T) {
	c := world.Coord{X: 0, Y: 0}
	exits := []world.Direction{world.South}

	seen := map[string]bool{}
	for seed := int64(1); seed <= 8; seed++ {
		name, _ := NewProvider(seed).RoomDetails(c, exits)
		seen[name] = true
	}
	if len(seen) < 2 {
		t.Fatalf("8 seeds produced %d distinct names", len(seen))
	}
}

func TestRoomDetails_ExitPhrasing(t *testing.T) {
	p := NewProvider(1)
	c := world.Coord{X: 2, Y: 2}

	_, none := p.RoomDetails(c, nil)
	if !strings.Contains(none, "no way out") {
		t.Fatalf("sealed room: %q", none)
	}
	_, one := p.RoomDetails(c, []world.Direction{world.West})
	if !strings.Contains(one, "A single passage leads west.") {
		t.Fatalf("single exit: %q", one)
	}
}

func TestActorDetails_Deterministic(t *testing.T) {
	p := NewProvider(9)
	if p.ActorDetails("ana") != p.ActorDetails("ana") {
		t.Fatal("same name diverged")
	}
	if !strings.HasPrefix(p.ActorDetails("ana"), "ana looks ") {
		t.Fatalf("unexpected shape: %q", p.ActorDetails("ana"))
	}
}
