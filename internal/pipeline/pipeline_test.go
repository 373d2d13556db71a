package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/commentstrip/internal/config"
	"github.com/jmylchreest/commentstrip/internal/failure"
	"github.com/jmylchreest/commentstrip/internal/provision"
	"github.com/jmylchreest/commentstrip/internal/runner"
)

var testTool = provision.Tool{
	RootDir: "/tool",
	Layout:  provision.Layout{EntryScript: "comments_remover.py", Requirements: "requirements.txt"},
}

func newRequest(t *testing.T) Request {
	t.Helper()
	return Request{
		WorkspaceRoot: t.TempDir(),
		Filename:      "foo.py",
		Language:      "python",
		OutputDir:     "out",
	}
}

func TestBuildTransformCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}

	cmd := BuildTransformCommand("python3", testTool, "/ws/foo.py", "python", "/ws/out")
	assert.Equal(t,
		[]string{"python3", "/tool/comments_remover.py", "/ws/foo.py", "python", "/ws/out"},
		cmd.Argv())
}

func TestBuildInstallCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}

	cmd := BuildInstallCommand("pip3", testTool)
	assert.Equal(t, []string{"pip3", "install", "-r", "/tool/requirements.txt", "-q"}, cmd.Argv())
}

func TestExecuteCommandsAndDefaults(t *testing.T) {
	tests := []struct {
		name            string
		cfg             config.Tool
		wantInstaller   string
		wantInterpreter string
	}{
		{"defaults", config.Tool{}, "pip", "python"},
		{"interpreter only", config.Tool{InterpreterPath: "/usr/bin/python3"}, "pip", "/usr/bin/python3"},
		{"installer only", config.Tool{InstallerPath: "/usr/bin/pip3"}, "/usr/bin/pip3", "python"},
		{"both", config.Tool{InterpreterPath: "py", InstallerPath: "pp"}, "pp", "py"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := runner.NewMockRunner()
			req := newRequest(t)

			result, err := New(mock, nil, Options{}).Execute(context.Background(), tt.cfg, testTool, req, nil)
			require.NoError(t, err)

			calls := mock.Calls()
			require.Len(t, calls, 2)
			assert.Equal(t, tt.wantInstaller, calls[0].Command.Path)
			assert.Equal(t, []string{"install", "-r", testTool.Requirements(), "-q"}, calls[0].Command.Args)
			assert.Equal(t, tt.wantInterpreter, calls[1].Command.Path)

			out := filepath.Join(req.WorkspaceRoot, "out")
			assert.Equal(t, []string{
				testTool.EntryScript(),
				filepath.Join(req.WorkspaceRoot, "foo.py"),
				"python",
				out,
			}, calls[1].Command.Args)
			assert.Equal(t, out, result.OutputDir)

			for _, c := range calls {
				assert.Equal(t, DefaultStepTimeout, c.Options.Timeout)
			}
		})
	}
}

func TestExecuteResetsOutputDir(t *testing.T) {
	req := newRequest(t)
	out := filepath.Join(req.WorkspaceRoot, "out")
	require.NoError(t, os.MkdirAll(filepath.Join(out, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "stale.txt"), []byte("old"), 0o644))

	var seen []os.DirEntry
	var statErr error
	mock := &runner.MockRunner{
		RunFunc: func(_ context.Context, cmd runner.Command, _ runner.Options) (*runner.Outcome, error) {
			if cmd.Path == "python" {
				seen, statErr = os.ReadDir(out)
			}
			return runner.Exited(0), nil
		},
	}

	_, err := New(mock, nil, Options{}).Execute(context.Background(), config.Tool{}, testTool, req, nil)
	require.NoError(t, err)
	require.NoError(t, statErr, "output directory must exist when the tool runs")
	assert.Empty(t, seen)
}

func TestExecuteCreatesMissingOutputDir(t *testing.T) {
	req := newRequest(t)
	req.OutputDir = "build/stripped"

	_, err := New(runner.NewMockRunner(), nil, Options{}).Execute(context.Background(), config.Tool{}, testTool, req, nil)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(req.WorkspaceRoot, "build", "stripped"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestExecuteLogLines(t *testing.T) {
	req := newRequest(t)
	var buf bytes.Buffer

	_, err := New(runner.NewMockRunner(), nil, Options{}).Execute(context.Background(), config.Tool{}, testTool, req, &buf)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Invoking Comments Remover for filename: foo.py and language: python", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Installing pip requirements [pip install -r "), lines[1])
	assert.True(t, strings.HasSuffix(lines[1], "]..."), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "Executing script [python "), lines[2])
	assert.Equal(t,
		"Comments Remover finished processing. Output saved to directory: "+filepath.Join(req.WorkspaceRoot, "out"),
		lines[3])
}

func TestExecuteVerbosity(t *testing.T) {
	for _, verbose := range []bool{true, false} {
		req := newRequest(t)
		var buf bytes.Buffer
		mock := runner.NewOutputMockRunner(0, "Collecting tree-sitter", "stripped 3 comments")

		_, err := New(mock, nil, Options{}).Execute(context.Background(), config.Tool{Verbose: verbose}, testTool, req, &buf)
		require.NoError(t, err)

		for _, c := range mock.Calls() {
			assert.Equal(t, verbose, c.Options.Verbose)
		}
		assert.Equal(t, verbose, strings.Contains(buf.String(), "stripped 3 comments"), "verbose=%v", verbose)
		assert.Contains(t, buf.String(), "Comments Remover finished processing")
	}
}

func TestExecuteInstallFailureAborts(t *testing.T) {
	req := newRequest(t)
	var buf bytes.Buffer
	mock := runner.NewOutputMockRunner(1, "ERROR: No matching distribution")

	result, err := New(mock, nil, Options{}).Execute(context.Background(), config.Tool{}, testTool, req, &buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNonZeroExit)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, StepInstall, stepErr.Step)
	assert.Equal(t, "pip", stepErr.Command.Path)

	assert.Equal(t, 1, mock.CallCount())
	require.NotNil(t, result)
	require.NotNil(t, result.Install)
	assert.Nil(t, result.Transform)

	// Quiet mode still shows the output of a failed step.
	assert.Contains(t, buf.String(), "ERROR: No matching distribution")
	assert.Contains(t, buf.String(), "pip install -r")
	assert.NotContains(t, buf.String(), "finished processing")

	_, statErr := os.Stat(filepath.Join(req.WorkspaceRoot, "out"))
	assert.True(t, os.IsNotExist(statErr), "output directory must not be touched")
}

func TestExecuteTolerateInstallFailure(t *testing.T) {
	req := newRequest(t)
	var buf bytes.Buffer
	mock := &runner.MockRunner{
		RunFunc: func(_ context.Context, cmd runner.Command, _ runner.Options) (*runner.Outcome, error) {
			if cmd.Path == "pip" {
				return runner.Exited(2), nil
			}
			return runner.Exited(0), nil
		},
	}

	result, err := New(mock, nil, Options{TolerateInstallFailure: true}).
		Execute(context.Background(), config.Tool{}, testTool, req, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, mock.CallCount())
	assert.Equal(t, 2, *result.Install.ExitCode)
	assert.True(t, result.Transform.Success())
	assert.Contains(t, buf.String(), "Continuing despite failed dependency installation")
	assert.Contains(t, buf.String(), "Comments Remover finished processing")
}

func TestExecuteTolerateDoesNotCoverLaunchErrors(t *testing.T) {
	req := newRequest(t)
	mock := runner.NewLaunchErrorMockRunner()

	_, err := New(mock, nil, Options{TolerateInstallFailure: true}).
		Execute(context.Background(), config.Tool{}, testTool, req, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrLaunch)
	assert.Equal(t, 1, mock.CallCount())
}

func TestExecuteInstallTimeout(t *testing.T) {
	req := newRequest(t)
	mock := runner.NewTimeoutMockRunner()

	_, err := New(mock, nil, Options{StepTimeout: time.Second}).
		Execute(context.Background(), config.Tool{}, testTool, req, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrTimeout)
	assert.Contains(t, err.Error(), "install step timed out")
	assert.Equal(t, 1, mock.CallCount())
	assert.Equal(t, time.Second, mock.Calls()[0].Options.Timeout)
}

func TestExecuteTransformFailure(t *testing.T) {
	req := newRequest(t)
	var buf bytes.Buffer
	mock := &runner.MockRunner{
		RunFunc: func(_ context.Context, cmd runner.Command, _ runner.Options) (*runner.Outcome, error) {
			if cmd.Path == "python" {
				return runner.Exited(3, "Traceback (most recent call last):"), nil
			}
			return runner.Exited(0), nil
		},
	}

	result, err := New(mock, nil, Options{}).Execute(context.Background(), config.Tool{Verbose: false}, testTool, req, &buf)
	require.Error(t, err)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, StepTransform, stepErr.Step)
	assert.Contains(t, err.Error(), "exited with status 3")
	assert.True(t, result.Install.Success())
	assert.Equal(t, 3, *result.Transform.ExitCode)
	assert.Contains(t, buf.String(), "Traceback (most recent call last):")
	assert.NotContains(t, buf.String(), "finished processing")
}

func TestExecuteValidationMakesNoCalls(t *testing.T) {
	mock := runner.NewMockRunner()
	req := Request{WorkspaceRoot: t.TempDir()}

	_, err := New(mock, nil, Options{}).Execute(context.Background(), config.Tool{}, testTool, req, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrValidation)
	assert.Zero(t, mock.CallCount())
}

func TestExecuteCancelled(t *testing.T) {
	req := newRequest(t)
	mock := runner.NewDelayMockRunner(10 * time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(mock, nil, Options{TolerateInstallFailure: true}).Execute(ctx, config.Tool{}, testTool, req, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, mock.CallCount())
}

func TestExecuteEndToEnd(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}

	var archive bytes.Buffer
	zw := zip.NewWriter(&archive)
	for name, body := range map[string]string{
		"entry.tool":       "echo \"stripping $1 as $2\"\necho done > \"$3/result.txt\"\n",
		"requirements.txt": "tree-sitter\n",
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	bundle := fstest.MapFS{provision.ArchiveName: &fstest.MapFile{Data: archive.Bytes()}}
	layout := provision.Layout{EntryScript: "entry.tool", Requirements: "requirements.txt"}
	tool, err := provision.New(nil, layout).Provision(bundle, provision.ArchiveName, t.TempDir())
	require.NoError(t, err)

	req := newRequest(t)
	require.NoError(t, os.WriteFile(filepath.Join(req.WorkspaceRoot, "foo.py"), []byte("# hi\nx = 1\n"), 0o644))

	cfg := config.Tool{InterpreterPath: "/bin/sh", InstallerPath: "true", Verbose: true}
	var buf bytes.Buffer
	result, err := New(runner.NewExecRunner(nil), nil, Options{StepTimeout: 10 * time.Second}).
		Execute(context.Background(), cfg, tool, req, &buf)
	require.NoError(t, err, buf.String())

	data, err := os.ReadFile(filepath.Join(req.WorkspaceRoot, "out", "result.txt"))
	require.NoError(t, err)
	assert.Equal(t, "done\n", string(data))
	assert.True(t, result.Install.Success())
	assert.True(t, result.Transform.Success())
	assert.Contains(t, buf.String(), "stripping "+filepath.Join(req.WorkspaceRoot, "foo.py")+" as python")
}
