// Package models provides the session data and lifecycle state management for trading games.
package models

import (
	"fmt"
	"time"
)

// GameState represents the current lifecycle state of a session
type GameState string

const (
	StateSetup           GameState = "setup"             // Session created, not started
	StateRoundInProgress GameState = "round_in_progress" // Collecting risk decisions / trading open
	StateRoundSettled    GameState = "round_settled"     // All decisions present, ready to settle
	StateGameOver        GameState = "game_over"         // Terminal, ranking and reporting only
)

// Transition conditions
const (
	CondGameStarted        = "game_started"
	CondDecisionsCollected = "decisions_collected"
	CondPriceRefreshed     = "price_refreshed"
	CondNextRound          = "next_round"
	CondRoundsExhausted    = "rounds_exhausted"
	CondSessionEnded       = "session_ended"
)

// StateTransition defines valid state transitions
type StateTransition struct {
	From        GameState
	To          GameState
	Condition   string
	Description string
}

// ValidTransitions lists every transition a session may take
var ValidTransitions = []StateTransition{
	{StateSetup, StateRoundInProgress, CondGameStarted, "Session initialized, first round open"},

	{StateRoundInProgress, StateRoundSettled, CondDecisionsCollected, "Every participant has a risk decision"},
	{StateRoundInProgress, StateRoundSettled, CondPriceRefreshed, "Market price moved one step"},

	{StateRoundSettled, StateRoundInProgress, CondNextRound, "Next round opened"},
	{StateRoundSettled, StateGameOver, CondRoundsExhausted, "Configured round count reached"},

	// Explicit end from any live state
	{StateSetup, StateGameOver, CondSessionEnded, "Session ended before start"},
	{StateRoundInProgress, StateGameOver, CondSessionEnded, "Session ended by the player"},
	{StateRoundSettled, StateGameOver, CondSessionEnded, "Session ended by the player"},
}

// StateMachine manages session state transitions
type StateMachine struct {
	transitionTime  time.Time
	transitionCount map[GameState]int
	currentState    GameState
	previousState   GameState
}

// NewStateMachine creates a new state machine in the setup state
func NewStateMachine() *StateMachine {
	return &StateMachine{
		currentState:    StateSetup,
		previousState:   StateSetup,
		transitionTime:  time.Now().UTC(),
		transitionCount: make(map[GameState]int),
	}
}

// GetCurrentState returns the current state
func (sm *StateMachine) GetCurrentState() GameState {
	return sm.currentState
}

// GetPreviousState returns the previous state
func (sm *StateMachine) GetPreviousState() GameState {
	return sm.previousState
}

// GetTransitionTime returns when the last transition happened
func (sm *StateMachine) GetTransitionTime() time.Time {
	return sm.transitionTime
}

// IsValidTransition checks if a transition is valid
func (sm *StateMachine) IsValidTransition(to GameState, condition string) error {
	for _, transition := range ValidTransitions {
		if transition.From == sm.currentState && transition.To == to && transition.Condition == condition {
			return nil
		}
	}
	return fmt.Errorf("%w: %s to %s with condition '%s'", ErrInvalidTransition, sm.currentState, to, condition)
}

// Transition moves to a new state. The state is unchanged when the transition is rejected.
func (sm *StateMachine) Transition(to GameState, condition string) error {
	if err := sm.IsValidTransition(to, condition); err != nil {
		return err
	}

	sm.previousState = sm.currentState
	sm.currentState = to
	sm.transitionTime = time.Now().UTC()
	sm.transitionCount[to]++

	return nil
}

// GetTransitionCount returns how many times we've entered a state
func (sm *StateMachine) GetTransitionCount(state GameState) int {
	return sm.transitionCount[state]
}

// IsTerminal returns true once the game is over
func (sm *StateMachine) IsTerminal() bool {
	return sm.currentState == StateGameOver
}

// GetStateDescription returns a human-readable description of the current state
func (sm *StateMachine) GetStateDescription() string {
	switch sm.currentState {
	case StateSetup:
		return "Session configured, waiting to start"
	case StateRoundInProgress:
		return "Round open: waiting for risk decisions or trades"
	case StateRoundSettled:
		return "All decisions in, round ready to settle"
	case StateGameOver:
		return "Game over: final ranking available"
	default:
		return "Unknown state"
	}
}

// ValidateStateConsistency ensures the state machine is in a valid state
func (sm *StateMachine) ValidateStateConsistency() error {
	totalTransitions := 0
	for _, count := range sm.transitionCount {
		totalTransitions += count
	}

	if totalTransitions == 0 {
		if sm.currentState != StateSetup {
			return fmt.Errorf("state %s reached without any recorded transition", sm.currentState)
		}
		return nil
	}

	if sm.transitionTime.IsZero() {
		return fmt.Errorf("missing transition time: transitionTime is zero")
	}

	if sm.transitionCount[sm.currentState] == 0 {
		return fmt.Errorf("current state %s has no recorded entry", sm.currentState)
	}

	if sm.transitionCount[StateGameOver] > 1 {
		return fmt.Errorf("game over entered %d times", sm.transitionCount[StateGameOver])
	}

	return nil
}

// Copy creates a deep copy of the StateMachine
func (sm *StateMachine) Copy() *StateMachine {
	if sm == nil {
		return nil
	}

	newSM := &StateMachine{
		currentState:   sm.currentState,
		previousState:  sm.previousState,
		transitionTime: sm.transitionTime,
	}

	newSM.transitionCount = make(map[GameState]int, len(sm.transitionCount))
	for k, v := range sm.transitionCount {
		newSM.transitionCount[k] = v
	}

	return newSM
}
