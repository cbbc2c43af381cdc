package transaction

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/seu-repo/wasteledger/internal/domain"
	"github.com/seu-repo/wasteledger/internal/ports"
	"github.com/seu-repo/wasteledger/internal/service/recognition"
)

// CredentialVerifier accepts a drawn signature when it decodes as an image,
// and an otp when the caller reports it as verified upstream.
type CredentialVerifier struct{}

func NewCredentialVerifier() *CredentialVerifier {
	return &CredentialVerifier{}
}

func (v *CredentialVerifier) Verify(ctx context.Context, in ports.CredentialInput) error {
	switch in.Kind {
	case domain.CredentialKindSignature, "":
		if in.Signature == "" {
			return &domain.ValidationError{Field: "signature", Reason: "required"}
		}
		raw, err := recognition.DecodeBase64Image(in.Signature)
		if err != nil {
			return fmt.Errorf("%w: signature is not valid base64", domain.ErrCredentialRejected)
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
		if err != nil {
			return fmt.Errorf("%w: signature is not an image", domain.ErrCredentialRejected)
		}
		if cfg.Width == 0 || cfg.Height == 0 {
			return fmt.Errorf("%w: signature is empty", domain.ErrCredentialRejected)
		}
		return nil
	case domain.CredentialKindOTP:
		if !in.Verified {
			return fmt.Errorf("%w: otp not verified", domain.ErrCredentialRejected)
		}
		return nil
	default:
		return &domain.ValidationError{Field: "kind", Reason: fmt.Sprintf("unsupported credential kind %q", in.Kind)}
	}
}
