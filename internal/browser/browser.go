package browser

import (
	"fmt"
	"io"

	"github.com/pkg/browser"
)

// Launcher opens URLs in the host's default browser.
type Launcher struct{}

// NewLauncher returns a launcher whose helper process output is discarded,
// so it never interleaves with server logs.
func NewLauncher() *Launcher {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return &Launcher{}
}

// Open launches url.
func (l *Launcher) Open(url string) error {
	if err := openURL(url); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}

var openURL = browser.OpenURL
