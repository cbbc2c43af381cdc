package recognition

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"

	"github.com/seu-repo/wasteledger/internal/domain"
)

const (
	DefaultTargetWidth = 1000
	DefaultJPEGQuality = 80
)

// Preprocessor normalizes scale photos before they are sent to providers.
type Preprocessor struct {
	targetWidth int
	quality     int
}

func NewPreprocessor(targetWidth, quality int) *Preprocessor {
	if targetWidth <= 0 {
		targetWidth = DefaultTargetWidth
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &Preprocessor{targetWidth: targetWidth, quality: quality}
}

// Preprocess decodes raw, scales it down to the target width keeping the
// aspect ratio, and re-encodes it as base64 JPEG. Narrower images keep their
// native width.
func (p *Preprocessor) Preprocess(raw []byte) (domain.EncodedImage, error) {
	if len(raw) == 0 {
		return domain.EncodedImage{}, fmt.Errorf("%w: empty input", domain.ErrImageDecode)
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return domain.EncodedImage{}, fmt.Errorf("%w: %v", domain.ErrImageDecode, err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return domain.EncodedImage{}, fmt.Errorf("%w: zero-sized image", domain.ErrImageDecode)
	}

	var out image.Image = src
	if w > p.targetWidth {
		nh := h * p.targetWidth / w
		if nh < 1 {
			nh = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, p.targetWidth, nh))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
		out = dst
		w, h = p.targetWidth, nh
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: p.quality}); err != nil {
		return domain.EncodedImage{}, fmt.Errorf("encode jpeg: %w", err)
	}

	sum := sha256.Sum256(buf.Bytes())
	return domain.EncodedImage{
		Base64:   base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType: "image/jpeg",
		Width:    w,
		Height:   h,
		SHA256:   hex.EncodeToString(sum[:]),
	}, nil
}

// DecodeBase64Image accepts plain base64 or a data URI and returns the raw
// bytes.
func DecodeBase64Image(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ",")
		if idx < 0 {
			return nil, fmt.Errorf("%w: malformed data uri", domain.ErrImageDecode)
		}
		s = s[idx+1:]
	}
	if s == "" {
		return nil, fmt.Errorf("%w: empty input", domain.ErrImageDecode)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrImageDecode, err)
	}
	return raw, nil
}
