package main

import (
	"fmt"
	"math/rand"
	"time"
)

// guestNameTraits and guestNameTerms give this domain its own flavor for an
// anonymous participant's display name: a tactical trait paired with a
// board-geometry term, rather than the generic adjective+animal combination
// the fan-out layer's console-chat ancestor used for the same purpose.
var guestNameTraits = []string{
	"Swift", "Sharp", "Reckless", "Patient", "Daring", "Stubborn", "Ruthless",
	"Quiet", "Fierce", "Sly", "Nimble", "Relentless", "Cautious", "Brash",
	"Steady", "Wily", "Gritty", "Brisk", "Keen", "Plucky", "Dogged", "Spry",
	"Canny", "Audacious", "Tenacious", "Deft", "Crafty", "Restless",
	"Methodical", "Impulsive", "Vigilant", "Unyielding",
}

var guestNameTerms = []string{
	"Corner", "Center", "Edge", "Fork", "Diagonal", "Wedge", "Trap",
	"Deadlock", "Crosshatch", "Gridlock", "Pivot", "Axis", "Quadrant",
	"Sector", "Lattice", "Mosaic", "Tile", "Frame", "Margin", "Column",
	"Row", "Vertex", "Node", "Cell", "Block", "Blockade", "Standoff",
	"Stalemate", "Checkline", "Crossfire", "Overlap", "Flank",
}

var guestNameRand = rand.New(rand.NewSource(time.Now().UnixNano()))

// generateGuestName produces a display name for a participant who joins
// without one, format Trait+Term-NN (e.g. "SwiftCorner-07"). Used for a
// human opponent whose session carries no profile name.
func generateGuestName() string {
	trait := guestNameTraits[guestNameRand.Intn(len(guestNameTraits))]
	term := guestNameTerms[guestNameRand.Intn(len(guestNameTerms))]
	return fmt.Sprintf("%s%s-%02d", trait, term, guestNameRand.Intn(100))
}
