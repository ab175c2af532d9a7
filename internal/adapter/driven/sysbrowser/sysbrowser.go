// Package sysbrowser opens URLs in the user's default browser.
package sysbrowser

import (
	"github.com/cli/browser"

	"github.com/kmorganti/dealporter/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.BrowserOpener = (*Opener)(nil)

// Opener implements the BrowserOpener port using the system browser.
type Opener struct{}

// NewOpener creates a new Opener.
func NewOpener() *Opener {
	return &Opener{}
}

// OpenURL opens the URL in the default browser.
func (o *Opener) OpenURL(url string) error {
	return browser.OpenURL(url)
}
