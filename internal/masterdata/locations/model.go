package locations

import "time"

// State is a region parties and cities belong to.
type State struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

// City belongs to exactly one state.
type City struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	StateID   int64     `json:"state_id"`
	CreatedAt time.Time `json:"created_at"`
}
