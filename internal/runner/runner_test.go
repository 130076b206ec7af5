package runner

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"bcvm/internal/config"
	"bcvm/pkg/color"
	"bcvm/pkg/interpreter"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.EnableColor(false)
}

const hello = `
code greet(name)
    LOAD_GLOBAL print
    LOAD_CONST "hello,"
    LOAD_FAST name
    CALL_FUNCTION 2
    RETURN_VALUE
end

code main()
    LOAD_CONST @greet
    LOAD_CONST "greet"
    MAKE_FUNCTION 0
    LOAD_CONST "world"
    CALL_FUNCTION 1
    POP_TOP
    LOAD_CONST None
    RETURN_VALUE
end
`

func writeProgram(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func newRunner(path string) (*Runner, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &Runner{
		SourceFile: path,
		MaxSteps:   -1,
		Stdout:     &stdout,
		Stderr:     &stderr,
		Logger:     log.New(io.Discard),
	}, &stdout, &stderr
}

func TestRunListing(t *testing.T) {
	r, stdout, stderr := newRunner(writeProgram(t, "hello.dis", hello))
	require.NoError(t, r.Run(nil))
	assert.Equal(t, "hello, world\n", stdout.String())
	assert.Empty(t, stderr.String())
}

func TestDisassembleReassembles(t *testing.T) {
	r, stdout, _ := newRunner(writeProgram(t, "hello.dis", hello))
	r.Disassemble = true
	require.NoError(t, r.Run(nil))
	assert.Contains(t, stdout.String(), "code greet(name)")

	again, out, _ := newRunner(writeProgram(t, "again.dis", stdout.String()))
	require.NoError(t, again.Run(nil))
	assert.Equal(t, "hello, world\n", out.String())
}

func TestConvertRoundTrip(t *testing.T) {
	for _, ext := range []string{"yaml", "cbor", "dis"} {
		t.Run(ext, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "prog."+ext)
			r, stdout, _ := newRunner(writeProgram(t, "hello.dis", hello))
			r.ConvertTo = out
			require.NoError(t, r.Run(nil))
			assert.Empty(t, stdout.String())

			converted, stdout, _ := newRunner(out)
			require.NoError(t, converted.Run(nil))
			assert.Equal(t, "hello, world\n", stdout.String())
		})
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeProgram(t, "prog.txt", hello))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.dis"))
	assert.Error(t, err)

	_, err = Load(writeProgram(t, "bad.dis", "code main()\n    FROB\nend\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FROB")
}

func TestReportCauseChain(t *testing.T) {
	path := writeProgram(t, "raise.dis", `
code main()
    LOAD_NAME ValueError
    LOAD_CONST "bad"
    CALL_FUNCTION 1
    LOAD_NAME KeyError
    LOAD_CONST "k"
    CALL_FUNCTION 1
    RAISE_VARARGS 2
end
`)
	r, _, stderr := newRunner(path)
	err := r.Run(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, interpreter.ErrRaised))
	assert.Equal(t, "KeyError: 'k'\n\n"+
		"The above exception was the direct cause of the following exception:\n\n"+
		"ValueError: bad\n", stderr.String())

	cfg := config.Default()
	cfg.VM.ChainCause = false
	r, _, stderr = newRunner(path)
	require.Error(t, r.Run(cfg))
	assert.Equal(t, "ValueError: bad\n", stderr.String())
}

func TestLimitsFromConfigAndFlags(t *testing.T) {
	path := writeProgram(t, "spin.dis", "code main()\nloop: JUMP_ABSOLUTE loop\nend\n")

	cfg := config.Default()
	cfg.VM.MaxSteps = 50
	r, _, stderr := newRunner(path)
	err := r.Run(cfg)
	assert.True(t, errors.Is(err, interpreter.ErrMaxStepsExceeded))
	assert.Contains(t, stderr.String(), "after 50 steps")

	r, _, stderr = newRunner(path)
	r.MaxSteps = 10
	err = r.Run(cfg)
	assert.True(t, errors.Is(err, interpreter.ErrMaxStepsExceeded))
	assert.Contains(t, stderr.String(), "after 10 steps")
}

func TestTraceLogsInstructions(t *testing.T) {
	var logs bytes.Buffer
	r, _, _ := newRunner(writeProgram(t, "hello.dis", hello))
	r.Trace = true
	r.Logger = log.New(&logs)
	r.Logger.SetLevel(log.DebugLevel)
	require.NoError(t, r.Run(nil))
	assert.Contains(t, logs.String(), "op=MAKE_FUNCTION")
	assert.Contains(t, logs.String(), "push frame")
}
