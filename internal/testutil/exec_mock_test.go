package testutil

import (
	"os"
	"os/exec"
	"slices"
	"testing"
)

// TestMockExecCommand verifies the environment handed to the helper process.
// The commands are not run here: that needs a TestHelperProcess in the
// calling package.
func TestMockExecCommand(t *testing.T) {
	tests := map[string]struct {
		mock    func(string, ...string) *exec.Cmd
		wantEnv []string
		noEnv   []string
	}{
		"output": {
			mock:    MockExecCommand("test output", nil),
			wantEnv: []string{"GO_WANT_HELPER_PROCESS=1", "MOCK_OUTPUT=test output"},
			noEnv:   []string{"MOCK_ERROR=1"},
		},
		"error": {
			mock:    MockExecCommand("", os.ErrNotExist),
			wantEnv: []string{"GO_WANT_HELPER_PROCESS=1", "MOCK_ERROR=1"},
		},
		"pipe": {
			mock:    MockPipeCommand("/tmp/stdin", nil),
			wantEnv: []string{"GO_WANT_HELPER_PROCESS=1", "MOCK_STDIN_FILE=/tmp/stdin"},
			noEnv:   []string{"MOCK_ERROR=1"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			env := tc.mock("xclip", "-selection", "clipboard").Env

			for _, want := range tc.wantEnv {
				if !slices.Contains(env, want) {
					t.Errorf("env %v is missing %q", env, want)
				}
			}
			for _, unwanted := range tc.noEnv {
				if slices.Contains(env, unwanted) {
					t.Errorf("env %v should not contain %q", env, unwanted)
				}
			}
		})
	}
}

func TestMockExecCommandArgs(t *testing.T) {
	cmd := MockExecCommand("", nil)("xclip", "-selection", "clipboard")

	want := []string{"-test.run=TestHelperProcess", "--", "xclip", "-selection", "clipboard"}
	if !slices.Equal(cmd.Args[1:], want) {
		t.Errorf("Args = %v, want %v", cmd.Args[1:], want)
	}
}

func TestRandomString(t *testing.T) {
	for _, n := range []int{0, 1, 7, 32} {
		s, err := RandomString(n)
		if err != nil {
			t.Fatalf("RandomString(%d) error = %v", n, err)
		}
		if len(s) != n {
			t.Errorf("len(RandomString(%d)) = %d", n, len(s))
		}
	}

	a, _ := RandomString(32)
	b, _ := RandomString(32)
	if a == b {
		t.Error("two random strings are equal")
	}
}
