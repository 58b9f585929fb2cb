package segment

import "github.com/a3tai/mcp-exam-reader/internal/exam"

// AssignImages attaches each image to the first range containing its vertical
// center and returns how many were placed. Images outside every range are
// dropped without error; a figure between questions has no owner.
func AssignImages(ranges []exam.QuestionRange, images []exam.PageImage) int {
	placed := 0
	for _, img := range images {
		c := img.Rect.CenterY()
		for _, r := range ranges {
			if r.Contains(c) {
				r.Question.Images = append(r.Question.Images, exam.NewImageRef(img))
				placed++
				break
			}
		}
	}
	return placed
}
