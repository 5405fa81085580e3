package catalog

import (
	"context"

	"github.com/haulpoints/haulpoints-backend/pkg/ebay"
)

// placeholderPNG is a 1x1 transparent PNG served when the upstream image
// cannot be fetched. Browsers render it instead of a broken image icon.
var placeholderPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
	0x42, 0x60, 0x82,
}

// ItemImage proxies a marketplace image. Upstream failures and disallowed
// URLs degrade to the placeholder rather than surfacing an error; a broken
// thumbnail must never fail a catalog page.
func (s *service) ItemImage(ctx context.Context, rawURL string) *ebay.Image {
	img, err := s.market.FetchImage(ctx, rawURL)
	if err != nil || img == nil || len(img.Data) == 0 {
		if err != nil {
			s.logg.Warn(ctx, "image proxy fell back to placeholder: "+err.Error())
		}
		return &ebay.Image{ContentType: "image/png", Data: placeholderPNG}
	}
	return img
}
