package darkroom

// BrushSettings is the session-wide paint tool state. The UI mutates it;
// paint operations read it at stamp time. All percentage fields are 0..100.
type BrushSettings struct {
	// Size is the brush diameter in image pixels.
	Size float32
	// Hardness controls the falloff: 100 is a hard-edged stamp, 0 fades
	// from the center out.
	Hardness float32
	// Opacity caps the coverage a single stamp can contribute.
	Opacity float32
	// Flow scales how fast repeated stamps build toward Opacity.
	Flow float32
	// Erase switches stamps from adding coverage to removing it.
	Erase bool
}

// DefaultBrush returns the brush state a fresh session starts with.
func DefaultBrush() BrushSettings {
	return BrushSettings{
		Size:     50,
		Hardness: 50,
		Opacity:  100,
		Flow:     100,
	}
}
