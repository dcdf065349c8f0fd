package vision

import "image"

// yoloCandidates holds detections decoded from a YOLOv8 output before NMS.
type yoloCandidates struct {
	Boxes   []image.Rectangle
	Scores  []float32
	Classes []int
}

// decodeYOLOv8 reads transposed YOLOv8 rows ([cx, cy, w, h, score_0..score_n])
// in network-input pixels. Boxes are scaled to the source image and clamped to
// bounds. Rows without a positive class score, below threshold, or whose box
// falls outside bounds are skipped.
func decodeYOLOv8(rows [][]float32, xScale, yScale float32, bounds image.Rectangle, threshold float32) yoloCandidates {
	var out yoloCandidates
	for _, row := range rows {
		if len(row) <= 4 {
			continue
		}

		classID, score := topScore(row[4:])
		if classID < 0 || score <= 0 || score < threshold {
			continue
		}

		cx, cy := row[0]*xScale, row[1]*yScale
		w, h := row[2]*xScale, row[3]*yScale
		r := image.Rect(int(cx-w/2), int(cy-h/2), int(cx+w/2), int(cy+h/2)).Intersect(bounds)
		if r.Empty() {
			continue
		}

		out.Boxes = append(out.Boxes, r)
		out.Scores = append(out.Scores, score)
		out.Classes = append(out.Classes, classID)
	}
	return out
}

// topScore returns the index and value of the largest score, or -1 for an
// empty slice.
func topScore(scores []float32) (int, float32) {
	best, score := -1, float32(0)
	for i, s := range scores {
		if best < 0 || s > score {
			best, score = i, s
		}
	}
	return best, score
}
