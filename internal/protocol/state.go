// Package protocol implements the three wire frame types of the
// control channel: newline-delimited JSON state frames from the game,
// length-prefixed image frames, and semicolon-joined command frames
// back to the game.
package protocol

import (
	"encoding/json"
	"fmt"

	aierr "aictl/internal/errors"
)

// GameState is one decoded state frame.  Every field is optional on
// the wire; absent fields keep their zero value (false / 0), and
// unknown fields are ignored.
type GameState struct {
	IsDead           bool `json:"isDead"`
	NumActivePlayers int  `json:"numActivePlayers"`
	HasWeapon        bool `json:"hasWeapon"`
	NumWeapons       int  `json:"numWeapons"`
	GameEnded        bool `json:"gameEnded"`
}

// DecodeState parses a single state line.  A malformed line returns a
// *DecodeError; callers skip it and keep reading.
func DecodeState(line []byte) (GameState, error) {
	var s GameState
	if err := json.Unmarshal(line, &s); err != nil {
		return GameState{}, &aierr.DecodeError{Line: string(line), Err: err}
	}
	return s, nil
}

// Encode serializes the state as one newline-terminated JSON line.
func (s GameState) Encode() []byte {
	data, _ := json.Marshal(s) // a flat bool/int struct cannot fail
	return append(data, '\n')
}

// Terminal reports whether this state ends the session: the player is
// dead or the game is over.
func (s GameState) Terminal() bool {
	return s.IsDead || s.GameEnded
}

func (s GameState) String() string {
	return fmt.Sprintf("isDead: %v, numActivePlayers: %d, hasWeapon: %v, numWeapons: %d, gameEnded: %v",
		s.IsDead, s.NumActivePlayers, s.HasWeapon, s.NumWeapons, s.GameEnded)
}
