// Package detect runs the tile detector against a stored image and reports
// where its label artifact lives.
package detect

import (
	"context"
	"errors"
	"path/filepath"

	"mahjong-advisor/api/internal/util"
)

// ErrFailed wraps every failure of the underlying detection capability.
var ErrFailed = errors.New("detection failed")

// Detector is implemented by the process and remote backends.
//
// On success the returned path is Layout.LabelPath(runID, imagePath). The file
// may be absent when nothing was detected.
type Detector interface {
	Name() string
	Detect(ctx context.Context, imagePath, runID string) (string, error)
	RunDir(runID string) string
}

// Layout fixes where artifacts go: <root>/<run-id>/labels/<image-stem>.txt.
type Layout struct {
	OutputRoot string
}

// RunDir is the directory holding every artifact of one run.
func (l Layout) RunDir(runID string) string {
	return filepath.Join(l.OutputRoot, runID)
}

// LabelPath is where the label file for imagePath lands in run runID.
func (l Layout) LabelPath(runID, imagePath string) string {
	return filepath.Join(l.RunDir(runID), "labels", util.Stem(imagePath)+".txt")
}

func tail(b []byte) string {
	const max = 2048
	if len(b) > max {
		b = b[len(b)-max:]
	}
	return string(b)
}
