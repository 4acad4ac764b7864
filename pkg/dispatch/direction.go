// Package dispatch relays navigation instructions to the motor controller,
// either directly over a serial port or through the HTTP relay on the robot.
package dispatch

import (
	"fmt"
	"strings"

	"github.com/teslashibe/go-rover/pkg/navigation"
)

// Direction is a motor action understood by the relay.
type Direction string

const (
	Advance Direction = "avance"
	Retreat Direction = "recule"
	Left    Direction = "gauche"
	Right   Direction = "droite"
	Stop    Direction = "stop"
)

// DefaultSpeed is the wheel speed used by mogo commands.
const DefaultSpeed = 25

// ParseDirection accepts a relay direction token, case-insensitively.
func ParseDirection(value string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(value))); d {
	case Advance, Retreat, Left, Right, Stop:
		return d, nil
	default:
		return "", fmt.Errorf("unknown direction %q", value)
	}
}

// Command returns the motor firmware command for the direction, including the
// trailing carriage return. Motor 1 drives the right wheel and motor 2 the
// left, so a left turn runs motor 1 alone.
func (d Direction) Command(speed int) string {
	switch d {
	case Advance:
		return fmt.Sprintf("mogo 1:%d 2:%d\r", speed, speed)
	case Retreat:
		return fmt.Sprintf("mogo 1:%d 2:%d\r", -speed, -speed)
	case Left:
		return fmt.Sprintf("mogo 1:%d\r", speed)
	case Right:
		return fmt.Sprintf("mogo 2:%d\r", speed)
	default:
		return "stop\r"
	}
}

// Plan turns an instruction into the directions to send, in order: turn
// towards the target first, then close or open the distance. An instruction
// with neither yields a single Stop.
func Plan(instr navigation.Instruction) []Direction {
	var plan []Direction

	switch {
	case instr.Angle < 0:
		plan = append(plan, Left)
	case instr.Angle > 0:
		plan = append(plan, Right)
	}

	switch instr.Movement {
	case navigation.MoveAdvance:
		plan = append(plan, Advance)
	case navigation.MoveRetreat:
		plan = append(plan, Retreat)
	}

	if len(plan) == 0 {
		return []Direction{Stop}
	}
	return plan
}
