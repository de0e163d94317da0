package setup

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// mockReader returns an error when out of input instead of returning empty
// strings forever
type mockReader struct {
	bufReader *bufio.Reader
}

func newMockReader(input string) *mockReader {
	return &mockReader{bufReader: bufio.NewReader(strings.NewReader(input))}
}

func (m *mockReader) ReadString(delim byte) (string, error) {
	line, err := m.bufReader.ReadString(delim)
	if err == io.EOF && line == "" {
		return "", fmt.Errorf("mock reader: no more input available")
	}
	return line, err
}

// secrets returns a SecretReader that yields each value in turn
func secrets(values ...string) SecretReader {
	i := 0
	return func() ([]byte, error) {
		if i >= len(values) {
			return nil, fmt.Errorf("mock secret reader: no more input available")
		}
		v := values[i]
		i++
		return []byte(v), nil
	}
}
