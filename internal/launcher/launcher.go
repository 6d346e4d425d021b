// Package launcher opens URLs and starts external tools without waiting for
// them.
package launcher

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Launcher starts external programs.
type Launcher interface {
	// OpenURL opens url with the desktop's default handler.
	OpenURL(ctx context.Context, url string) error
	// LaunchTool starts the named program.
	LaunchTool(ctx context.Context, name string) error
}

// System launches real processes.
type System struct{}

// OpenURL opens url with xdg-open, open, or the Windows URL handler.
func (System) OpenURL(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return fmt.Errorf("empty url")
	}
	name, args := openCommand(runtime.GOOS, url)
	return start(ctx, name, args...)
}

// LaunchTool starts name, which is split on whitespace into a program and
// its arguments.
func (System) LaunchTool(ctx context.Context, name string) error {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return fmt.Errorf("empty tool name")
	}
	return start(ctx, fields[0], fields[1:]...)
}

func openCommand(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}

// start runs the command detached from ctx: cancelling ctx after start does
// not kill the child. The process is reaped in the background.
func start(ctx context.Context, name string, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	cmd := exec.Command(path, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", name, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
