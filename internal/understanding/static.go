package understanding

import (
	"context"

	"aria/internal/port"
)

// StaticUnderstander replays a recorded model response. The CLI uses it to run the
// engine offline against evidence captured earlier.
type StaticUnderstander struct {
	response string
}

// NewStaticUnderstander creates a StaticUnderstander from a model response body.
func NewStaticUnderstander(response []byte) *StaticUnderstander {
	return &StaticUnderstander{response: string(response)}
}

func (s *StaticUnderstander) Understand(ctx context.Context, _ port.UnderstandInput) (*port.Understanding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return DecodeResponse(s.response, "static", "")
}
