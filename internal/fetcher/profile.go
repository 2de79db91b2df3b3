package fetcher

import (
	"fmt"
	"math/rand"
)

// BrowserProfile is the fingerprint a headless page presents.
type BrowserProfile struct {
	UserAgent      string
	AcceptLanguage string
	ViewportWidth  int
	ViewportHeight int
	WindowSize     string
	Timezone       string
}

// DefaultBrowserProfile returns a desktop profile for a Brazilian reader.
func DefaultBrowserProfile(userAgent string) *BrowserProfile {
	viewports := []struct{ w, h int }{
		{1920, 1080}, {1366, 768}, {1536, 864},
		{1440, 900}, {1280, 720},
	}
	vp := viewports[rand.Intn(len(viewports))]

	return &BrowserProfile{
		UserAgent:      userAgent,
		AcceptLanguage: "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7",
		ViewportWidth:  vp.w,
		ViewportHeight: vp.h,
		WindowSize:     fmt.Sprintf("%d,%d", vp.w, vp.h),
		Timezone:       "America/Sao_Paulo",
	}
}
