// Package source reads keypoint frames from the pose collaborator.
//
// Frames arrive either as JSON Lines from a file or stdin, or as MQTT messages
// with the same JSON body. Both produce posture.Frame values through the Source
// interface and report the end of the stream with io.EOF.
package source
