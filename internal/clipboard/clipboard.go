// Package clipboard copies codes to the system clipboard through the
// platform's clipboard command
package clipboard

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// For testing - allows us to mock these functions
var (
	execCommand = exec.Command
	lookPath    = exec.LookPath
	getenv      = os.Getenv
	runtimeGOOS = runtime.GOOS
)

// ErrNoClipboard is returned when no clipboard command is available
var ErrNoClipboard = errors.New("no clipboard command found")

type command struct {
	name string
	args []string
}

var (
	waylandCommands = []command{{name: "wl-copy"}}
	x11Commands     = []command{
		{name: "xclip", args: []string{"-selection", "clipboard"}},
		{name: "xsel", args: []string{"--clipboard", "--input"}},
	}
)

// Copy copies text to the clipboard and returns an error if unsuccessful
func Copy(text string) error {
	switch runtimeGOOS {
	case "darwin":
		return pipeTo(command{name: "pbcopy"}, text)
	case "linux", "freebsd", "openbsd", "netbsd":
		cmd, err := findLinuxCommand()
		if err != nil {
			return err
		}
		return pipeTo(cmd, text)
	default:
		return fmt.Errorf("unsupported platform: %s", runtimeGOOS)
	}
}

// findLinuxCommand prefers wl-copy under Wayland and falls back to the X11
// tools
func findLinuxCommand() (command, error) {
	var candidates []command
	if getenv("WAYLAND_DISPLAY") != "" {
		candidates = append(candidates, waylandCommands...)
	}
	candidates = append(candidates, x11Commands...)

	tried := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, err := lookPath(c.name); err == nil {
			return c, nil
		}
		tried = append(tried, c.name)
	}

	return command{}, fmt.Errorf("%w (tried %s)", ErrNoClipboard, strings.Join(tried, ", "))
}

// pipeTo runs the clipboard command with text on its stdin
func pipeTo(c command, text string) error {
	cmd := execCommand(c.name, c.args...)
	pipe, err := cmd.StdinPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	if _, err := pipe.Write([]byte(text)); err != nil {
		return err
	}

	if err := pipe.Close(); err != nil {
		return err
	}

	return cmd.Wait()
}
