package markericon

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/http"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rs/zerolog/log"
	"github.com/travigo/mobility-monitor/pkg/requesthandler"
	_ "golang.org/x/image/webp"
)

// Loader resolves remote marker symbols into decoded images
type Loader struct {
	RequestHandler *requesthandler.Handler
	Cache          IconCache
}

// Load returns the decoded image behind url. A missing image (404) is not an error and
// returns a nil image, every other failure is returned to the caller.
func (l *Loader) Load(ctx context.Context, url string) (image.Image, error) {
	if l.Cache != nil {
		if cached, err := l.Cache.Get(ctx, url); err == nil && len(cached) > 0 {
			if img, _, err := image.Decode(bytes.NewReader(cached)); err == nil {
				return img, nil
			}
		}
	}

	body, err := l.RequestHandler.MakeRequest(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		if requesthandler.IsNotFound(err) {
			log.Debug().Str("url", url).Msg("Marker icon not found")
			return nil, nil
		}
		return nil, fmt.Errorf("load marker icon %s: %w", url, err)
	}

	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode marker icon %s: %w", url, err)
	}

	if l.Cache != nil {
		if err := l.Cache.Set(ctx, url, body); err != nil {
			log.Warn().Err(err).Str("url", url).Msg("Failed to cache marker icon")
		}
	}

	return img, nil
}
