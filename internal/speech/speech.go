// Package speech holds the audio collaborators of the transcription
// pipeline: format conversion to canonical PCM and speech-to-text
// inference. Both are black boxes to the rest of the service.
package speech

import "context"

// Converter converts an uploaded audio file into single-channel 16 kHz
// WAV suitable for inference.
type Converter interface {
	Convert(ctx context.Context, inputPath, outputPath string) error
}

// Transcriber turns converted audio into plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string) (string, error)
}
