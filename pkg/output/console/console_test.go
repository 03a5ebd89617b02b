package console

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gotherm/pkg/sample"
)

func TestConsole_Reset(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, [2]string{"inlet", ""})

	require.NoError(t, c.Reset())
	want := "  time [s]  inlet [°C]     T2 [°C]\n"
	assert.Equal(t, want, buf.String())
}

func TestConsole_Publish(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, [2]string{"T1", "T2"})

	require.NoError(t, c.Publish(sample.Sample{Elapsed: 2 * time.Second, T1: sample.Of(21.53), T2: sample.Undefined}))
	require.NoError(t, c.Publish(sample.Sample{Elapsed: 3500 * time.Millisecond, T1: sample.Undefined, T2: sample.Of(-1)}))
	require.NoError(t, c.Close())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "       2.0       21.53         nan", lines[0])
	assert.Equal(t, "       3.5         nan        -1.0", lines[1])
}
