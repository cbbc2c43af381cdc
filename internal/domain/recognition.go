package domain

import "fmt"

// EncodedImage is a preprocessed image ready to be sent to a recognition
// provider.
type EncodedImage struct {
	Base64   string
	MimeType string
	Width    int
	Height   int
	SHA256   string // hex digest of the encoded bytes
}

func (e EncodedImage) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", e.MimeType, e.Base64)
}

type Reading struct {
	Weight    float64 `json:"weight"`
	Provider  string  `json:"provider"`
	RawText   string  `json:"raw_text,omitempty"`
	Estimated bool    `json:"estimated"`
}
