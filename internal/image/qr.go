package imagepkg

import (
	"github.com/disintegration/imaging"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/youruser/idcards/internal/layout"
)

// GenerateQRPNG returns PNG bytes of a QR code for the given text.
func GenerateQRPNG(text string, size int) ([]byte, error) {
	return qrcode.Encode(text, qrcode.Medium, size)
}

// GenerateQR renders payload as a QR sprite of exactly size.
func GenerateQR(payload string, size layout.Size) (*Sprite, error) {
	q, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	img := q.Image(max(size.W, size.H))
	return &Sprite{Image: imaging.Resize(img, size.W, size.H, imaging.Lanczos)}, nil
}
