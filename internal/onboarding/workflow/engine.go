// Package workflow tracks the business lifecycle of a dossier: a fixed
// sequence of six steps (0..5) advanced one at a time by named actions.
package workflow

import "math"

const (
	// TotalSteps counts steps 0 through MaxStep.
	TotalSteps = 6
	MaxStep    = TotalSteps - 1
)

// Action is one of the five operations that move a dossier forward.
type Action int

const (
	SignCharter Action = iota
	AssignExpert
	CompleteDossier
	ValidateDossier
	FinalizeDossier

	actionCount
)

var actionNames = [...]string{
	SignCharter:     "sign-charter",
	AssignExpert:    "assign-expert",
	CompleteDossier: "complete-dossier",
	ValidateDossier: "validate-dossier",
	FinalizeDossier: "finalize-dossier",
}

// actionTargets is absolute: an action always lands on the same step.
var actionTargets = [...]int{
	SignCharter:     1,
	AssignExpert:    2,
	CompleteDossier: 3,
	ValidateDossier: 4,
	FinalizeDossier: 5,
}

// Adding an Action without extending both tables fails to compile.
var (
	_ [actionCount]string = actionNames
	_ [actionCount]int    = actionTargets
)

// Actions returns every action in step order.
func Actions() []Action {
	out := make([]Action, 0, actionCount)
	for a := Action(0); a < actionCount; a++ {
		out = append(out, a)
	}
	return out
}

func (a Action) Valid() bool {
	return a >= 0 && a < actionCount
}

func (a Action) String() string {
	if !a.Valid() {
		return "unknown"
	}
	return actionNames[a]
}

// Target is the step the action moves a dossier to.
func (a Action) Target() int {
	if !a.Valid() {
		return -1
	}
	return actionTargets[a]
}

// ParseAction resolves an action name such as "sign-charter".
func ParseAction(name string) (Action, bool) {
	for a, n := range actionNames {
		if n == name {
			return Action(a), true
		}
	}
	return -1, false
}

// Descriptor is the human-readable status of a step.
type Descriptor struct {
	Step        int    `json:"step"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Progress    int    `json:"progress"`
}

var descriptors = [TotalSteps]Descriptor{
	{0, "Dossier opened", "Eligibility confirmed, waiting for the charter to be signed", 0},
	{1, "Charter signed", "The client signed the engagement charter", 25},
	{2, "Expert assigned", "An expert accepted the dossier", 50},
	{3, "Dossier completed", "All required documents have been provided", 75},
	{4, "Dossier validated", "The expert validated the dossier", 90},
	{5, "Dossier finalized", "The procedure is complete", 100},
}

// ProgressForStep returns round(step / (TotalSteps-1) * 100). Steps outside
// [0, MaxStep] are clamped.
func ProgressForStep(step int) int {
	step = clamp(step)
	return int(math.Round(float64(step) / float64(MaxStep) * 100))
}

// NextStep returns the target of action. Invalid actions leave the step unchanged.
func NextStep(current int, action Action) int {
	if !action.Valid() {
		return current
	}
	return actionTargets[action]
}

// NextStepByName is NextStep for an action name; unknown names are a no-op.
func NextStepByName(current int, name string) int {
	action, ok := ParseAction(name)
	if !ok {
		return current
	}
	return NextStep(current, action)
}

// CanAdvance reports whether moving from current to target is a single step forward.
func CanAdvance(current, target int) bool {
	return current >= 0 && target <= MaxStep && target == current+1
}

// DescribeStep returns the descriptor of step, or step 0's for unknown values.
func DescribeStep(step int) Descriptor {
	if step < 0 || step > MaxStep {
		return descriptors[0]
	}
	return descriptors[step]
}

// Steps returns all descriptors in order.
func Steps() []Descriptor {
	out := make([]Descriptor, TotalSteps)
	copy(out, descriptors[:])
	return out
}

func clamp(step int) int {
	if step < 0 {
		return 0
	}
	if step > MaxStep {
		return MaxStep
	}
	return step
}
