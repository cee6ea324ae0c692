package ai

import (
	"image"
	"math"
)

// candidate is a decoded box before non-maximum suppression.
type candidate struct {
	classIndex int
	score      float32
	box        image.Rectangle
}

// decodeYOLO reads a YOLOv8 detection head laid out as [4+classes][n]: rows 0-3 hold
// cx, cy, w, h in network input pixels, the remaining rows one score per class.
// Boxes are scaled to frame size and clipped to bounds.
func decodeYOLO(data []float32, rows, cols int, threshold float64, scaleX, scaleY float64, bounds image.Rectangle) []candidate {
	if rows <= 4 || cols <= 0 || len(data) < rows*cols {
		return nil
	}

	var out []candidate
	for i := 0; i < cols; i++ {
		best, bestScore := -1, float32(-1)
		for c := 4; c < rows; c++ {
			if s := data[c*cols+i]; s > bestScore {
				best, bestScore = c-4, s
			}
		}
		if float64(bestScore) < threshold {
			continue
		}

		cx := float64(data[0*cols+i])
		cy := float64(data[1*cols+i])
		w := float64(data[2*cols+i])
		h := float64(data[3*cols+i])

		box := image.Rect(
			int(math.Round((cx-w/2)*scaleX)), int(math.Round((cy-h/2)*scaleY)),
			int(math.Round((cx+w/2)*scaleX)), int(math.Round((cy+h/2)*scaleY)),
		).Add(bounds.Min).Intersect(bounds)
		if box.Empty() {
			continue
		}

		out = append(out, candidate{classIndex: best, score: bestScore, box: box})
	}
	return out
}
