// Package describe generates display text for rooms and actors. The engine
// treats descriptions as opaque host-supplied text, so richer providers
// (an LLM-backed narrator, hand-authored content) can be swapped in behind
// the same interface.
package describe

import (
	"fmt"
	"hash/fnv"
	"strings"

	"dungeongrid.ai/internal/sim/world"
)

// Provider produces deterministic names and descriptions from a seed: the
// same seed and coordinate always yield the same text, which keeps the
// state digest replayable.
type Provider struct {
	seed uint64
}

func NewProvider(seed int64) *Provider {
	return &Provider{seed: uint64(seed)}
}

var roomAdjectives = []string{
	"dusty", "vaulted", "collapsed", "narrow", "flooded", "echoing",
	"sunken", "crumbling", "moss-covered", "torchlit", "frigid", "silent",
}

var roomNouns = []string{
	"chamber", "hall", "corridor", "crypt", "gallery", "cellar",
	"antechamber", "shrine", "vault", "passage", "rotunda", "stairwell",
}

var roomDetails = []string{
	"Water drips somewhere out of sight.",
	"Faded carvings cover the far wall.",
	"The air smells of cold stone and rust.",
	"Broken tiles crunch underfoot.",
	"A draft stirs the dust near the floor.",
	"Old scorch marks blacken the ceiling.",
	"Roots have forced their way between the stones.",
	"Something scurries away as you listen.",
}

// RoomDetails names and describes the room at c. The exits are woven into
// the description so a reader can orient without a map.
func (p *Provider) RoomDetails(c world.Coord, exits []world.Direction) (string, string) {
	h := p.hash("room", fmt.Sprintf("%d:%d", c.X, c.Y))

	adj := roomAdjectives[h%uint64(len(roomAdjectives))]
	noun := roomNouns[(h>>8)%uint64(len(roomNouns))]
	detail := roomDetails[(h>>16)%uint64(len(roomDetails))]

	name := fmt.Sprintf("The %s %s", capitalize(adj), noun)

	var exitText string
	switch len(exits) {
	case 0:
		exitText = "There is no way out."
	case 1:
		exitText = fmt.Sprintf("A single passage leads %s.", exitWord(exits[0]))
	default:
		words := make([]string, len(exits))
		for i, d := range exits {
			words[i] = exitWord(d)
		}
		exitText = fmt.Sprintf("Passages lead %s and %s.",
			strings.Join(words[:len(words)-1], ", "), words[len(words)-1])
	}

	desc := fmt.Sprintf("A %s %s. %s %s", adj, noun, detail, exitText)
	return name, desc
}

// ActorDetails describes an actor from its name alone.
func (p *Provider) ActorDetails(name string) string {
	h := p.hash("actor", name)
	looks := []string{
		"travel-worn and wary",
		"wrapped in a patched cloak",
		"carrying a guttering lantern",
		"covered in dust from the deep halls",
		"moving with quiet, deliberate steps",
	}
	return fmt.Sprintf("%s looks %s.", name, looks[h%uint64(len(looks))])
}

func (p *Provider) hash(kind, key string) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%s|%s", p.seed, kind, key)
	return h.Sum64()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func exitWord(d world.Direction) string {
	switch d {
	case world.North:
		return "north"
	case world.South:
		return "south"
	case world.East:
		return "east"
	default:
		return "west"
	}
}
