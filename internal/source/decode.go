package source

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oshokin/posture-monitor/internal/domain/posture"
)

// ErrMalformedFrame is returned for frames that are not valid JSON objects.
var ErrMalformedFrame = errors.New("malformed frame")

// wireFrame is the JSON body of one frame.
//
//	{"t": 1.25, "keypoints": {"left_shoulder": {"x": 0.4, "y": 0.3}, ...}}
//	{"landmarks": [{"x": ..., "y": ...}, ...]}
//	{"keypoints": null}
type wireFrame struct {
	T         *float64                  `json:"t"`
	Keypoints map[string]*posture.Point `json:"keypoints"`
	Landmarks []posture.Point           `json:"landmarks"`
}

// Decode parses one frame body. A body without keypoints or landmarks is a
// frame with no detected pose. Joints mapped to null are left out.
func Decode(data []byte, index int) (posture.Frame, error) {
	var w wireFrame
	if err := json.Unmarshal(data, &w); err != nil {
		return posture.Frame{}, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}

	frame := posture.Frame{
		Index: index,
		Time:  w.T,
	}

	switch {
	case len(w.Keypoints) > 0:
		kp := make(posture.Keypoints, len(w.Keypoints))

		for name, p := range w.Keypoints {
			if p != nil {
				kp[posture.Joint(name)] = *p
			}
		}

		frame.Keypoints = kp
	case len(w.Landmarks) > 0:
		frame.Keypoints = posture.FromLandmarks(w.Landmarks)
	}

	return frame, nil
}
