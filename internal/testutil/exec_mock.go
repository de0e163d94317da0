package testutil

import (
	"fmt"
	"io"
	"os"
	"os/exec"
)

// MockExecCommand builds a mock exec.Command function that returns
// predetermined output and optionally errors
func MockExecCommand(output string, err error) func(string, ...string) *exec.Cmd {
	return helperCommand([]string{"MOCK_OUTPUT=" + output}, err)
}

// MockPipeCommand builds a mock exec.Command function for commands that are
// fed on stdin. The helper process writes everything it reads to stdinFile.
func MockPipeCommand(stdinFile string, err error) func(string, ...string) *exec.Cmd {
	return helperCommand([]string{"MOCK_STDIN_FILE=" + stdinFile}, err)
}

func helperCommand(env []string, err error) func(string, ...string) *exec.Cmd {
	return func(command string, args ...string) *exec.Cmd {
		// Create a test helper process that will be executed instead of the real command
		cs := []string{"-test.run=TestHelperProcess", "--", command}
		cs = append(cs, args...)
		cmd := exec.Command(os.Args[0], cs...)

		// Set environment variables to control the helper process behavior
		cmd.Env = append([]string{"GO_WANT_HELPER_PROCESS=1"}, env...)
		if err != nil {
			cmd.Env = append(cmd.Env, "MOCK_ERROR=1")
		}

		return cmd
	}
}

// TestHelperProcess is not a real test, it's used by the mock exec.Command
// It should never be executed unless GO_WANT_HELPER_PROCESS is set.
// All tests using MockExecCommand or MockPipeCommand must include a
// TestHelperProcess function:
//
//	func TestHelperProcess(t *testing.T) {
//		testutil.TestHelperProcess()
//	}
func TestHelperProcess() {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	// Always drain stdin so the parent never sees a broken pipe
	in, err := io.ReadAll(os.Stdin)
	if err != nil {
		os.Exit(2)
	}
	if path := os.Getenv("MOCK_STDIN_FILE"); path != "" {
		if err := os.WriteFile(path, in, 0o600); err != nil {
			os.Exit(2)
		}
	}

	fmt.Print(os.Getenv("MOCK_OUTPUT"))
	if os.Getenv("MOCK_ERROR") == "1" {
		os.Exit(1)
	}
	os.Exit(0)
}
