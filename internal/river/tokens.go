package river

import "strings"

// Defaults mirror the reference deployment of the river.
const (
	// DefaultMaxLength bounds the cumulative river text in runes.
	DefaultMaxLength = 3500
	// DefaultDeltaLimit caps a single generated fragment in characters.
	DefaultDeltaLimit = 78
	// DefaultContextWindow is how many trailing runes of river text are
	// fed back to the model as the continuation prompt.
	DefaultContextWindow = 1000
	// DefaultFallbackSeed reseeds generation when the river text drifts
	// into something the model cannot continue.
	DefaultFallbackSeed = "Once upon a time..."
)

// Contribution markers wrap user-supplied words so the front-end can
// render them distinctly from model output.
const (
	MarkerOpen  = "[["
	MarkerClose = "]]"
)

// WrapToken wraps an accepted contribution in the display markers before
// it enters the queue.
func WrapToken(word string) string {
	return MarkerOpen + word + MarkerClose
}

// StripMarkers removes the contribution markers. Applied to the prompt
// context so prior markup does not confuse the model, and to model
// output in case the model echoes markers back.
func StripMarkers(s string) string {
	s = strings.ReplaceAll(s, MarkerOpen, "")
	return strings.ReplaceAll(s, MarkerClose, "")
}
