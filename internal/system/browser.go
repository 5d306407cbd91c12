package system

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os/exec"
	"runtime"
	"strings"
)

type Browser struct {
	goos string
}

func NewBrowser() *Browser {
	return &Browser{goos: runtime.GOOS}
}

func openCommand(goos, url string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	default:
		if path, err := exec.LookPath("xdg-open"); err == nil {
			return path, []string{url}, nil
		}
		return "", nil, errors.New("no opener command found (xdg-open)")
	}
}

// Open shows url in the default browser.
func (b *Browser) Open(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return errors.New("empty URL")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	bin, args, err := openCommand(b.goos, url)
	if err != nil {
		return err
	}
	cmd := exec.Command(bin, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	go cmd.Wait()

	log.Info("Opened URL", "url", url)
	return nil
}
