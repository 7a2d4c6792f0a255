package synthesis

import "context"

// Synthesizer renders interviewer text as a playable audio clip.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
