package dashboard

// FrameSequence is an ordered, cyclic set of pre-rendered frames.
// Layers[secondary][step] selects a frame; layer 0 is the default view.
type FrameSequence[F any] struct {
	Layers [][]F    `json:"layers"`
	Labels []string `json:"labels"`
}

// Len returns the number of steps in the default layer.
func (s FrameSequence[F]) Len() int {
	if len(s.Layers) == 0 {
		return 0
	}
	return len(s.Layers[0])
}

// Frame returns Layers[layer][tick mod N] or false when nothing can be shown.
func (s FrameSequence[F]) Frame(tick uint64, layer int) (F, bool) {
	var zero F
	if layer < 0 || layer >= len(s.Layers) {
		return zero, false
	}
	frames := s.Layers[layer]
	if len(frames) == 0 {
		return zero, false
	}
	return frames[tick%uint64(len(frames))], true
}

// Label returns the step label shown with a frame.
func (s FrameSequence[F]) Label(tick uint64) string {
	if len(s.Labels) == 0 {
		return ""
	}
	return s.Labels[tick%uint64(len(s.Labels))]
}
