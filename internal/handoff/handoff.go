package handoff

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-loader/internal/content"
	"github.com/mind-engage/mindengage-loader/internal/form"
	"github.com/mind-engage/mindengage-loader/internal/payload"
)

var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// Clipboard accepts text for the operator to paste elsewhere.
type Clipboard interface {
	WriteAll(text string) error
}

// Opener shows a URL to the operator. It never reports back.
type Opener interface {
	Open(url string)
}

// SystemClipboard writes to the desktop clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnavailable
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("%w: %v", ErrClipboardUnavailable, err)
	}
	return nil
}

// BrowserOpener launches the platform's default browser.
type BrowserOpener struct {
	Logger *zap.Logger
}

func (b BrowserOpener) Open(url string) {
	log := b.Logger
	if log == nil {
		log = zap.NewNop()
	}
	go func() {
		if err := openBrowser(url); err != nil {
			log.Warn("open browser failed", zap.String("url", url), zap.Error(err))
		}
	}()
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Wait()
}

// PrintOpener writes the URL instead of opening it; used where no browser
// is reachable.
type PrintOpener struct {
	Printf func(format string, args ...any)
}

func (p PrintOpener) Open(url string) {
	if p.Printf != nil {
		p.Printf("open: %s\n", url)
	}
}

// Result is what a successful handoff produced.
type Result struct {
	Text     string `json:"payload_text"`
	AdminURL string `json:"admin_url"`
}

// Prepare turns a ready form's payload into clipboard text. A form that is
// not ready yields its *form.Incomplete.
func Prepare(cat content.Category, p payload.Payload, pending *form.Incomplete, targets content.Targets) (Result, error) {
	if pending != nil {
		return Result{}, pending
	}
	if err := payload.Check(cat, p); err != nil {
		return Result{}, err
	}
	b, err := payload.Marshal(p)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: string(b), AdminURL: targets.AdminURL}, nil
}

// CopyAndOpen copies the text and, only when that worked, opens the admin page.
func CopyAndOpen(clip Clipboard, opener Opener, r Result) error {
	if err := clip.WriteAll(r.Text); err != nil {
		if !errors.Is(err, ErrClipboardUnavailable) {
			err = fmt.Errorf("%w: %v", ErrClipboardUnavailable, err)
		}
		return err
	}
	opener.Open(r.AdminURL)
	return nil
}
