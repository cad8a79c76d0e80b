package transport

import (
	"net/url"
	"strings"
)

type DeeplinkStatus string

const (
	DeeplinkStatusOK                  DeeplinkStatus = "ok"
	DeeplinkStatusMissing             DeeplinkStatus = "missing"
	DeeplinkStatusInvalid             DeeplinkStatus = "invalid"
	DeeplinkStatusUnsupportedPlatform DeeplinkStatus = "unsupported-platform"
)

const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
)

// DeeplinkResult tells the presentation layer whether an option can be opened in a provider app
type DeeplinkResult struct {
	Status   DeeplinkStatus `json:"status"`
	Platform string         `json:"platform"`
	URI      string         `json:"uri,omitempty"`
	Message  string         `json:"message,omitempty"`
}

func (r DeeplinkResult) OK() bool {
	return r.Status == DeeplinkStatusOK
}

func (o *TransportOption) ResolveDeeplink(platform string) DeeplinkResult {
	platform = strings.ToLower(platform)
	result := DeeplinkResult{Platform: platform}

	var link string
	switch platform {
	case PlatformAndroid:
		link = o.Deeplinks.Android
	case PlatformIOS:
		link = o.Deeplinks.IOS
	default:
		result.Status = DeeplinkStatusUnsupportedPlatform
		result.Message = "Platform must be android or ios"
		return result
	}

	if link == "" {
		result.Status = DeeplinkStatusMissing
		result.Message = "Provider does not offer a deep link for this option"
		return result
	}

	parsed, err := url.Parse(link)
	if err != nil || parsed.Scheme == "" {
		result.Status = DeeplinkStatusInvalid
		result.URI = link
		result.Message = "Provider deep link could not be parsed"
		return result
	}

	result.Status = DeeplinkStatusOK
	result.URI = parsed.String()
	return result
}
