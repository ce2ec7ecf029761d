package cli

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetSimpleText(t *testing.T) {
	in := bufio.NewScanner(strings.NewReader("  hello world \n"))
	var out bytes.Buffer
	got, err := GetSimpleText(in, "Name?", &out)
	require.NoError(t, err)
	require.Equal(t, "hello world", got)
	require.Equal(t, "Name?\n> ", out.String())
}

func TestGetSimpleTextEOF(t *testing.T) {
	in := bufio.NewScanner(strings.NewReader("lastline"))
	var out bytes.Buffer
	got, err := GetSimpleText(in, "Name?", &out)
	require.NoError(t, err)
	require.Equal(t, "lastline", got)

	_, err = GetSimpleText(in, "Name?", &out)
	require.ErrorIs(t, err, io.EOF)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestGetSimpleText_WriteError(t *testing.T) {
	in := bufio.NewScanner(strings.NewReader("x\n"))
	_, err := GetSimpleText(in, "Name?", failingWriter{})
	require.Error(t, err)
}

func TestConfirm(t *testing.T) {
	in := bufio.NewScanner(strings.NewReader("y\nYES\nno\n\n"))
	var out bytes.Buffer

	require.True(t, confirm(in, "Delete?", &out))
	require.True(t, confirm(in, "Delete?", &out))
	require.False(t, confirm(in, "Delete?", &out))
	require.False(t, confirm(in, "Delete?", &out))
	require.False(t, confirm(in, "Delete?", &out), "EOF is a no")
	require.Contains(t, out.String(), "Delete? [y/N]")
}
