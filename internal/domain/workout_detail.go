package domain

// WorkoutDetail is the structured content of a session: what the athlete
// actually does, step by step. Validation and rendering live in the detail
// package; the engine treats this as opaque data that must pass validation
// before any calendar write happens.
type WorkoutDetail struct {
	Summary string       `bson:"summary" json:"summary"`
	Steps   []DetailStep `bson:"steps" json:"steps"`
}

// DetailStep is one block of a session (warmup, main set, cooldown, ...).
type DetailStep struct {
	Phase           string `bson:"phase" json:"phase"` // e.g., "warmup", "main", "cooldown"
	Description     string `bson:"description" json:"description"`
	DurationMinutes int    `bson:"durationMinutes,omitempty" json:"durationMinutes,omitempty"`
	Repeat          int    `bson:"repeat,omitempty" json:"repeat,omitempty"` // 0 or 1 means once
}
