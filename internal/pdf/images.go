package pdf

import (
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/a3tai/mcp-exam-reader/internal/exam"
)

// imagePayload is the raw content of one image XObject.
type imagePayload struct {
	Name     string
	MIMEType string
	Data     []byte
}

// pagePayloads maps page number to resource name to payload.
type pagePayloads map[int]map[string]imagePayload

// loadImagePayloads extracts every image XObject with pdfcpu in relaxed
// validation mode.
func loadImagePayloads(path string) (pagePayloads, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LayoutError{Library: libPDFCPU, Op: "open_file", Err: err}
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pages, err := api.ExtractImagesRaw(f, nil, conf)
	if err != nil {
		return nil, &LayoutError{
			Library: libPDFCPU,
			Op:      "extract_images",
			Err:     fmt.Errorf("failed to extract images: %w", err),
		}
	}

	out := pagePayloads{}
	for _, byObj := range pages {
		for _, img := range byObj {
			data, err := io.ReadAll(img)
			if err != nil || len(data) == 0 {
				continue
			}
			if out[img.PageNr] == nil {
				out[img.PageNr] = map[string]imagePayload{}
			}
			out[img.PageNr][img.Name] = imagePayload{
				Name:     img.Name,
				MIMEType: exam.MIMEForFileType(img.FileType),
				Data:     data,
			}
		}
	}
	return out, nil
}

// attachPayloads pairs placements with payloads by resource name. Placements
// without a payload are skipped.
func attachPayloads(placed []placement, payloads map[string]imagePayload) []exam.PageImage {
	images := make([]exam.PageImage, 0, len(placed))
	for _, p := range placed {
		payload, ok := payloads[p.Name]
		if !ok {
			continue
		}
		images = append(images, exam.PageImage{
			Name:     p.Name,
			MIMEType: payload.MIMEType,
			Data:     payload.Data,
			Rect:     p.Rect,
		})
	}
	return images
}
