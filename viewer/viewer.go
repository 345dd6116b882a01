package viewer

import (
	"fmt"
	"io"
	"strings"

	"ccmcts/game"

	"github.com/muesli/termenv"
)

// Crossing renders the 1-D crossing corridor as one terminal line per step:
// the ego agent, the other agents, the crossing point and the goal cell.
type Crossing struct {
	out     io.Writer
	profile termenv.Profile
}

func NewCrossing(out io.Writer) *Crossing {
	return &Crossing{
		out:     out,
		profile: termenv.ColorProfile(),
	}
}

func (v *Crossing) Render(state game.State) {
	crossing, ok := state.(*game.CrossingState)
	if !ok {
		return
	}

	cells := make([]string, crossing.CorridorLength())
	for i := range cells {
		cells[i] = "."
	}
	cells[crossing.CrossingPoint()] = v.colored("X", "3") // yellow
	cells[crossing.GoalPosition()] = v.colored("G", "4")  // blue
	for _, pos := range crossing.OtherPositions() {
		cells[pos] = v.colored("O", "1") // red
	}
	ego := "E"
	if crossing.EgoCollided() {
		ego = v.colored("#", "1")
	} else {
		ego = v.colored(ego, "2") // green
	}
	cells[crossing.EgoPosition()] = ego

	fmt.Fprintf(v.out, "|%s| ego=%d", strings.Join(cells, ""), crossing.EgoPosition())
	if crossing.EgoCollided() {
		fmt.Fprint(v.out, " collision")
	}
	if crossing.EgoGoalReached() {
		fmt.Fprint(v.out, " goal")
	}
	fmt.Fprintln(v.out)
}

func (v *Crossing) colored(s, color string) string {
	return termenv.String(s).Foreground(v.profile.Color(color)).String()
}
