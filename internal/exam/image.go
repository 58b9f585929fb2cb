package exam

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"strings"

	"golang.org/x/image/tiff"
)

const (
	MIMEPNG     = "image/png"
	MIMEJPEG    = "image/jpeg"
	MIMETIFF    = "image/tiff"
	MIMEJPEG2K  = "image/jp2"
	MIMEUnknown = "application/octet-stream"
)

// ImageRef is an image attached to a question. It serializes as a
// self-describing data URI so no side channel is needed to interpret it.
type ImageRef struct {
	MIMEType string
	Data     []byte
	Rect     Rect
	Encoded  string
}

// NewImageRef builds a reference from a page image and encodes it.
func NewImageRef(img PageImage) ImageRef {
	ref := ImageRef{
		MIMEType: img.MIMEType,
		Data:     img.Data,
		Rect:     img.Rect,
	}
	ref.Normalize()
	return ref
}

// Normalize encodes the payload as a data URI. Already-encoded references
// are left untouched.
func (r *ImageRef) Normalize() {
	if IsDataURI(r.Encoded) {
		return
	}
	mime, data := r.MIMEType, r.Data
	if mime == MIMETIFF {
		if converted, err := tiffToPNG(data); err == nil {
			mime, data = MIMEPNG, converted
		}
	}
	if mime == "" {
		mime = MIMEUnknown
	}
	r.Encoded = EncodeDataURI(mime, data)
}

// MarshalJSON writes the data URI string.
func (r ImageRef) MarshalJSON() ([]byte, error) {
	if !IsDataURI(r.Encoded) {
		r.Normalize()
	}
	return json.Marshal(r.Encoded)
}

// UnmarshalJSON reads a data URI string back into a reference.
func (r *ImageRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("image reference must be a string: %w", err)
	}
	r.Encoded = s
	if mime, payload, err := DecodeDataURI(s); err == nil {
		r.MIMEType = mime
		r.Data = payload
	}
	return nil
}

// EncodeDataURI renders data as data:<mime>;base64,<payload>.
func EncodeDataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// IsDataURI reports whether s is already a base64 data URI.
func IsDataURI(s string) bool {
	if !strings.HasPrefix(s, "data:") {
		return false
	}
	return strings.Contains(s, ";base64,")
}

// DecodeDataURI splits a base64 data URI into its MIME type and payload.
func DecodeDataURI(s string) (string, []byte, error) {
	if !IsDataURI(s) {
		return "", nil, fmt.Errorf("not a base64 data URI")
	}
	header, payload, _ := strings.Cut(strings.TrimPrefix(s, "data:"), ";base64,")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return header, data, nil
}

// MIMEForFileType maps extractor file types onto MIME types.
func MIMEForFileType(fileType string) string {
	switch strings.ToLower(strings.TrimPrefix(fileType, ".")) {
	case "png":
		return MIMEPNG
	case "jpg", "jpeg":
		return MIMEJPEG
	case "tif", "tiff":
		return MIMETIFF
	case "jpx", "jp2":
		return MIMEJPEG2K
	default:
		return MIMEUnknown
	}
}

func tiffToPNG(data []byte) ([]byte, error) {
	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
