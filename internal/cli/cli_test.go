package cli_test

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"

	"github.com/jmylchreest/commentstrip/internal/bundle"
	"github.com/jmylchreest/commentstrip/internal/cli"
	"github.com/jmylchreest/commentstrip/internal/config"
	"github.com/jmylchreest/commentstrip/internal/provision"
)

// execute runs the root command with args and returns stdout and the error.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	root := cli.NewRootCmd()
	root.SetOut(&outBuf)
	root.SetErr(&errBuf)
	root.SetArgs(args)
	err := root.Execute()
	if err != nil {
		t.Logf("stderr: %s", errBuf.String())
	}
	return outBuf.String(), err
}

// writeBundle writes a comments_remover.zip whose entry script records its
// arguments in the output directory.
func writeBundle(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"comments_remover.py": "echo \"processing $1 ($2)\"\necho done > \"$3/result.txt\"\n",
		"requirements.txt":    "tree-sitter\n",
	}
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, provision.ArchiveName), buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write bundle: %v", err)
	}
	return dir
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "commentstrip ") {
		t.Errorf("version output = %q", out)
	}
}

func TestConfigSetAndShow(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")

	out, err := execute(t, "--config", cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if !strings.Contains(out, "(default)") || !strings.Contains(out, "python") {
		t.Errorf("config show output:\n%s", out)
	}

	if _, err := execute(t, "--config", cfgPath, "config", "set", "--python", "/opt/py/bin/python3"); err != nil {
		t.Fatalf("config set --python error = %v", err)
	}
	if _, err := execute(t, "--config", cfgPath, "config", "set", "--verbose=false"); err != nil {
		t.Fatalf("config set --verbose error = %v", err)
	}

	store, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got := store.Tool()
	if got.InterpreterPath != "/opt/py/bin/python3" {
		t.Errorf("InterpreterPath = %q, want it kept across set calls", got.InterpreterPath)
	}
	if got.InstallerPath != "" {
		t.Errorf("InstallerPath = %q, want empty", got.InstallerPath)
	}
	if got.Verbose {
		t.Error("Verbose = true, want false")
	}

	out, err = execute(t, "--config", cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if !strings.Contains(out, "/opt/py/bin/python3") {
		t.Errorf("config show output missing interpreter:\n%s", out)
	}
}

func TestConfigSetRequiresFlag(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	if _, err := execute(t, "--config", cfgPath, "config", "set"); err == nil {
		t.Fatal("config set without flags should fail")
	}
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "--log-level", "loud", "--home", t.TempDir(), "activate")
	if err == nil || !strings.Contains(err.Error(), "invalid log level") {
		t.Fatalf("error = %v, want invalid log level", err)
	}
}

func TestRunBeforeActivate(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	_, err := execute(t, "--config", cfgPath, "--home", t.TempDir(),
		"run", "--workspace", t.TempDir(), "--filename", "a.py", "--language", "python", "--output-dir", "out")
	if err == nil || !strings.Contains(err.Error(), "commentstrip activate") {
		t.Fatalf("error = %v, want a hint to activate", err)
	}
}

func TestActivateWithoutArchive(t *testing.T) {
	_, err := execute(t, "--home", t.TempDir(), "--bundle", t.TempDir(), "activate")
	if err == nil || !strings.Contains(err.Error(), "activation failed") {
		t.Fatalf("error = %v, want activation failure", err)
	}
}

func TestActivateAndRun(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}

	home := t.TempDir()
	bundleDir := writeBundle(t)
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	global := []string{"--config", cfgPath, "--home", home, "--bundle", bundleDir}

	if _, err := execute(t, append(global, "config", "set", "--python", "/bin/sh", "--pip", "true")...); err != nil {
		t.Fatalf("config set error = %v", err)
	}

	out, err := execute(t, append(global, "activate")...)
	if err != nil {
		t.Fatalf("activate error = %v", err)
	}
	toolDir := filepath.Join(home, provision.ToolDirName)
	if !strings.Contains(out, toolDir) {
		t.Errorf("activate output = %q, want tool dir %s", out, toolDir)
	}

	ws := t.TempDir()
	if err := os.WriteFile(filepath.Join(ws, "app.py"), []byte("# comment\nx = 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("Success", func(t *testing.T) {
		out, err := execute(t, append(global, "run",
			"--workspace", ws, "--filename", "app.py", "--language", "python", "--output-dir", "stripped")...)
		if err != nil {
			t.Fatalf("run error = %v", err)
		}

		data, err := os.ReadFile(filepath.Join(ws, "stripped", "result.txt"))
		if err != nil {
			t.Fatalf("tool output missing: %v", err)
		}
		if string(data) != "done\n" {
			t.Errorf("result.txt = %q", data)
		}
		for _, want := range []string{
			"Invoking Comments Remover for filename: app.py and language: python",
			"processing " + filepath.Join(ws, "app.py") + " (python)",
			"Comments Remover finished processing. Output saved to directory: " + filepath.Join(ws, "stripped"),
		} {
			if !strings.Contains(out, want) {
				t.Errorf("run output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("RelativeWorkspace", func(t *testing.T) {
		t.Chdir(ws)

		out, err := execute(t, append(global, "run",
			"--filename", "app.py", "--language", "python", "--output-dir", "build/rel")...)
		if err != nil {
			t.Fatalf("run with the default workspace error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(ws, "build", "rel", "result.txt")); err != nil {
			t.Errorf("tool output missing: %v\n%s", err, out)
		}
	})

	t.Run("Validation", func(t *testing.T) {
		_, err := execute(t, append(global, "run", "--workspace", ws, "--language", "python", "--output-dir", "stripped")...)
		if err == nil || !strings.Contains(err.Error(), "Please set a filename") {
			t.Fatalf("error = %v, want filename validation", err)
		}
	})
}

func TestActivateTarXzBundle(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("xz writer: %v", err)
	}
	tw := tar.NewWriter(xw)
	for name, body := range map[string]string{
		"comments_remover.py": "print('ok')\n",
		"requirements.txt":    "tree-sitter\n",
	} {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header: %v", err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatalf("tar write: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := xw.Close(); err != nil {
		t.Fatalf("xz close: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "comments_remover.tar.xz"), buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	home := t.TempDir()
	if _, err := execute(t, "--home", home, "--bundle", dir, "--bundle-archive", "comments_remover.tar.xz", "activate"); err != nil {
		t.Fatalf("activate error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(home, provision.ToolDirName, "comments_remover.py"))
	if err != nil {
		t.Fatalf("entry script missing: %v", err)
	}
	if string(data) != "print('ok')\n" {
		t.Errorf("entry script = %q", data)
	}
}

func TestActivateEmbeddedBundleHint(t *testing.T) {
	if _, err := fs.Stat(bundle.Embedded(), provision.ArchiveName); err == nil {
		t.Skip("this build embeds the tool archive")
	}

	_, err := execute(t, "--home", t.TempDir(), "activate")
	if err == nil || !strings.Contains(err.Error(), "pass --bundle <dir>") {
		t.Fatalf("error = %v, want a hint to pass --bundle", err)
	}
}
