package schema

import (
	"fmt"
	"strings"
)

// Mode is the execution policy that gates which actions a step's conditions
// may invoke.
type Mode string

const (
	// Enforcement runs steps sequentially with no skipping: only STOP is honored.
	Enforcement Mode = "enforcement"
	// Guided honors CONTINUE, STOP and GOTO.
	Guided Mode = "guided"
)

// ParseMode converts a mode name. The empty string selects Enforcement.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Enforcement):
		return Enforcement, nil
	case string(Guided):
		return Guided, nil
	default:
		return "", fmt.Errorf("unknown execution mode %q: must be enforcement or guided", s)
	}
}

func (m Mode) AllowsContinue() bool { return m == Guided }

func (m Mode) AllowsGoto() bool { return m == Guided }

// AllowsStop is true in every mode.
func (m Mode) AllowsStop() bool { return true }

// Allows reports whether an action may be taken under this mode.
func (m Mode) Allows(a Action) bool {
	switch a.Kind {
	case ActionContinue:
		return m.AllowsContinue()
	case ActionGoto:
		return m.AllowsGoto()
	case ActionStop:
		return m.AllowsStop()
	default:
		return false
	}
}

// ActionSource records where a resolved action came from.
type ActionSource string

const (
	SourceConditions   ActionSource = "conditions"
	SourceImplicit     ActionSource = "implicit"
	SourceModeFallback ActionSource = "mode_fallback"
)

// Resolve picks the action for a command outcome. A step without conditions
// gets the implicit default; an action the mode forbids is discarded in
// favor of the implicit default rather than treated as an error.
func (m Mode) Resolve(conds *Conditions, success bool) (Action, ActionSource) {
	if conds == nil {
		return ImplicitAction(success), SourceImplicit
	}
	a := conds.For(success)
	if !m.Allows(a) {
		return ImplicitAction(success), SourceModeFallback
	}
	return a, SourceConditions
}
