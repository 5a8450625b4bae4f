package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/downcida/internal/services"
	"github.com/desertthunder/downcida/internal/shared"
	tu "github.com/desertthunder/downcida/internal/testing"
	"github.com/desertthunder/downcida/internal/tasks"
)

const testTrack = "4uLU6hMCjMI75M1A2tKUQC"

var flacBody = append([]byte("fLaC\x00\x00\x00\x22"), bytes.Repeat([]byte{0}, 256)...)

// lucidaConfig points the config at fake and returns its path.
func lucidaConfig(t *testing.T, fake *tu.FakeLucida, mutate func(*shared.Config)) string {
	t.Helper()
	return writeTestConfig(t, func(c *shared.Config) {
		c.Lucida.APIURL = fake.Server.URL
		c.Lucida.JobURL = fake.Server.URL
		if mutate != nil {
			mutate(c)
		}
	})
}

func run(t *testing.T, runner *Runner, args ...string) error {
	t.Helper()
	return newTestApp(runner).Run(context.Background(), append([]string{"downcida"}, args...))
}

func TestDownload(t *testing.T) {
	t.Run("downloads a track and records it", func(t *testing.T) {
		fake := tu.NewFakeLucida(t, "h1", flacBody)
		fake.PendingPolls = 2
		path := lucidaConfig(t, fake, nil)
		dir := t.TempDir()
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, Status: &bytes.Buffer{}})

		if err := run(t, runner, "-c", path, "download", "-o", dir, "--no-progress", testTrack); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		file := filepath.Join(dir, "h1.flac")
		tu.AssertFileExists(t, file)
		if got := tu.MustReadFile(t, file); !bytes.Equal([]byte(got), flacBody) {
			t.Error("downloaded file does not match the served body")
		}
		if !strings.Contains(output.String(), "✓ "+file) {
			t.Errorf("expected success line for %s, got %q", file, output.String())
		}

		submissions := fake.Submissions()
		if len(submissions) != 1 {
			t.Fatalf("expected 1 submission, got %d", len(submissions))
		}
		if submissions[0]["token"] != "tok" {
			t.Errorf("expected configured token, got %v", submissions[0]["token"])
		}
		if submissions[0]["downscale"] != "flac-16" {
			t.Errorf("expected flac-16 profile, got %v", submissions[0]["downscale"])
		}

		output.Reset()
		if err := run(t, runner, "-c", path, "history", "list", "--json"); err != nil {
			t.Fatalf("history list failed: %v", err)
		}

		var entries []map[string]any
		if err := json.Unmarshal(output.Bytes(), &entries); err != nil {
			t.Fatalf("history list is not JSON: %v\n%s", err, output.String())
		}
		if len(entries) != 1 {
			t.Fatalf("expected 1 history entry, got %d", len(entries))
		}
		if entries[0]["status"] != "completed" || entries[0]["track_id"] != testTrack {
			t.Errorf("unexpected history entry: %v", entries[0])
		}
	})

	t.Run("accepts URLs and flags over config defaults", func(t *testing.T) {
		fake := tu.NewFakeLucida(t, "h2", []byte("ID3 not really an mp3"))
		path := lucidaConfig(t, fake, func(c *shared.Config) { c.Database.Enabled = false })
		dir := filepath.Join(t.TempDir(), "nested", "out")
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Status: &bytes.Buffer{}})

		url := "https://open.spotify.com/intl-de/track/" + testTrack + "?si=abc"
		if err := run(t, runner, "-c", path, "dl", "-o", dir, "-f", "mp3", "-r", "us", "--no-progress", url); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "h2.mp3"))
		sub := fake.Submissions()[0]
		if sub["downscale"] != "mp3-320" {
			t.Errorf("expected mp3-320, got %v", sub["downscale"])
		}
		account, _ := sub["account"].(map[string]any)
		if account["id"] != "us" {
			t.Errorf("expected region us, got %v", account["id"])
		}
	})

	t.Run("rejected submission", func(t *testing.T) {
		fake := tu.NewFakeLucida(t, "h3", flacBody)
		fake.Reject = "token expired"
		path := lucidaConfig(t, fake, nil)
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, Status: &bytes.Buffer{}})

		err := run(t, runner, "-c", path, "download", "-o", t.TempDir(), "--no-progress", testTrack)
		if !errors.Is(err, shared.ErrSubmissionRejected) {
			t.Fatalf("expected ErrSubmissionRejected, got %v", err)
		}
		if !strings.Contains(output.String(), "✗ "+testTrack) || !strings.Contains(output.String(), "token expired") {
			t.Errorf("expected failure line, got %q", output.String())
		}

		output.Reset()
		if err := run(t, runner, "-c", path, "history", "list", "--status", "failed"); err != nil {
			t.Fatalf("history list failed: %v", err)
		}
		if !strings.Contains(output.String(), testTrack) {
			t.Errorf("expected failed download in history, got %q", output.String())
		}
	})

	t.Run("batch continues past a failed track", func(t *testing.T) {
		fake := tu.NewFakeLucida(t, "h6", flacBody)
		path := lucidaConfig(t, fake, nil)
		dir := t.TempDir()
		output := &bytes.Buffer{}
		status := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, Status: status})

		// every job shares the handoff, so the second track collides with the first file
		err := run(t, runner, "-c", path, "download", "-o", dir, testTrack, "spotify:track:"+testTrack, testTrack)
		if !errors.Is(err, shared.ErrIO) {
			t.Fatalf("expected ErrIO, got %v", err)
		}
		if !strings.Contains(err.Error(), "2 of 3 downloads failed") {
			t.Errorf("expected failure count, got %v", err)
		}
		if len(fake.Submissions()) != 3 {
			t.Errorf("expected all 3 tracks submitted, got %d", len(fake.Submissions()))
		}

		lines := strings.Split(strings.TrimSpace(output.String()), "\n")
		if len(lines) != 3 || !strings.HasPrefix(lines[0], "✓ ") || !strings.HasPrefix(lines[1], "✗ ") || !strings.HasPrefix(lines[2], "✗ ") {
			t.Errorf("unexpected output lines: %q", lines)
		}
		if status.Len() == 0 {
			t.Error("expected progress output for the batch")
		}
	})

	t.Run("json output", func(t *testing.T) {
		fake := tu.NewFakeLucida(t, "h4", flacBody)
		fake.FinalStatus = "error"
		fake.FinalMessage = "conversion failed"
		path := lucidaConfig(t, fake, func(c *shared.Config) { c.Database.Enabled = false })
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		err := run(t, runner, "-c", path, "download", "--json", "-o", t.TempDir(), testTrack)
		if !errors.Is(err, shared.ErrJobFailed) {
			t.Fatalf("expected ErrJobFailed, got %v", err)
		}

		var outputs []downloadOutput
		if err := json.Unmarshal(output.Bytes(), &outputs); err != nil {
			t.Fatalf("output is not JSON: %v\n%s", err, output.String())
		}
		if len(outputs) != 1 {
			t.Fatalf("expected 1 result, got %d", len(outputs))
		}
		if outputs[0].ErrorKind != services.JobFailed.String() {
			t.Errorf("expected job failed kind, got %q", outputs[0].ErrorKind)
		}
		if !strings.Contains(outputs[0].Error, "conversion failed") {
			t.Errorf("expected server message, got %q", outputs[0].Error)
		}
	})

	t.Run("argument errors", func(t *testing.T) {
		tests := []struct {
			name string
			args []string
			want error
		}{
			{name: "no tracks", args: []string{"download"}, want: shared.ErrMissingArgument},
			{name: "bad track", args: []string{"download", "not-a-track"}, want: shared.ErrInvalidArgument},
			{name: "bad format", args: []string{"download", "-f", "aiff", testTrack}, want: shared.ErrInvalidArgument},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				path := writeTestConfig(t, nil)
				runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

				err := run(t, runner, append([]string{"-c", path}, tt.args...)...)
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("progress bars go to the status writer", func(t *testing.T) {
		fake := tu.NewFakeLucida(t, "h5", flacBody)
		path := lucidaConfig(t, fake, func(c *shared.Config) { c.Database.Enabled = false })
		output := &bytes.Buffer{}
		status := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, Status: status})

		if err := run(t, runner, "-c", path, "download", "-o", t.TempDir(), testTrack); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if status.Len() == 0 {
			t.Error("expected progress output on the status writer")
		}
		if strings.Contains(output.String(), "downloading") {
			t.Error("expected progress to stay off the result writer")
		}
	})
}

func TestBatchError(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	tests := []struct {
		name    string
		items   []tasks.BatchItem
		wantNil bool
		wantMsg string
	}{
		{name: "all succeeded", items: []tasks.BatchItem{{}, {}}, wantNil: true},
		{name: "single failure is returned as is", items: []tasks.BatchItem{{Error: errA}}, wantMsg: "a failed"},
		{name: "several failures are counted", items: []tasks.BatchItem{{Error: errA}, {}, {Error: errB}}, wantMsg: "2 of 3 downloads failed: a failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := batchError(tt.items)
			if tt.wantNil {
				if err != nil {
					t.Errorf("expected nil, got %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantMsg {
				t.Errorf("expected %q, got %v", tt.wantMsg, err)
			}
			if !errors.Is(err, errA) {
				t.Error("expected the first failure to be wrapped")
			}
		})
	}
}

func TestFormats(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := run(t, runner, "-c", writeTestConfig(t, nil), "formats"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Formats", "flac-16", "mp3-320", ".opus"} {
			if !strings.Contains(output.String(), want) {
				t.Errorf("expected %q in output, got %q", want, output.String())
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := run(t, runner, "-c", writeTestConfig(t, nil), "formats", "--json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var formats []formatOutput
		if err := json.Unmarshal(output.Bytes(), &formats); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if len(formats) == 0 || formats[0].Name == "" {
			t.Errorf("unexpected formats: %+v", formats)
		}
	})
}

func TestHistory(t *testing.T) {
	// seed downloads n tracks through fake so the history has rows.
	seed := func(t *testing.T, n int) (string, *Runner, *bytes.Buffer) {
		t.Helper()
		fake := tu.NewFakeLucida(t, "seed", flacBody)
		path := lucidaConfig(t, fake, nil)
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, Status: &bytes.Buffer{}})

		for i := range n {
			// each run needs its own directory since every job shares the handoff
			dir := filepath.Join(t.TempDir(), fmt.Sprint(i))
			if err := run(t, runner, "-c", path, "download", "-o", dir, "--no-progress", testTrack); err != nil {
				t.Fatalf("seed download failed: %v", err)
			}
		}
		output.Reset()
		return path, runner, output
	}

	t.Run("list", func(t *testing.T) {
		path, runner, output := seed(t, 3)

		if err := run(t, runner, "-c", path, "history", "list", "-n", "2"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lines := strings.Count(output.String(), "\n"); lines != 2 {
			t.Errorf("expected 2 lines, got %d: %q", lines, output.String())
		}
	})

	t.Run("list rejects unknown status", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

		err := run(t, runner, "-c", writeTestConfig(t, nil), "history", "list", "--status", "done")
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("list with empty history", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := run(t, runner, "-c", writeTestConfig(t, nil), "history", "list"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "No downloads recorded") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("disabled history", func(t *testing.T) {
		path := writeTestConfig(t, func(c *shared.Config) { c.Database.Enabled = false })
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

		err := run(t, runner, "-c", path, "history", "list")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("export", func(t *testing.T) {
		path, runner, output := seed(t, 1)
		dest := filepath.Join(t.TempDir(), "history.csv")

		if err := run(t, runner, "-c", path, "history", "export", "--format", "csv", "-o", dest); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tu.AssertFileExists(t, dest)
		content := tu.MustReadFile(t, dest)
		if !strings.HasPrefix(content, "ID,Track,Region") || !strings.Contains(content, testTrack) {
			t.Errorf("unexpected CSV export: %q", content)
		}
		if !strings.Contains(output.String(), "Exported 1 downloads to "+dest) {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("export rejects unknown format", func(t *testing.T) {
		path, runner, _ := seed(t, 1)

		err := run(t, runner, "-c", path, "history", "export", "--format", "xml", "-o", filepath.Join(t.TempDir(), "h.xml"))
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("clear", func(t *testing.T) {
		path, runner, output := seed(t, 2)

		if err := run(t, runner, "-c", path, "history", "clear"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "Cleared 2 downloads") {
			t.Errorf("unexpected output %q", output.String())
		}

		output.Reset()
		if err := run(t, runner, "-c", path, "history", "list"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "No downloads recorded") {
			t.Errorf("expected empty history after clear, got %q", output.String())
		}
	})
}

func TestSetup(t *testing.T) {
	t.Run("config", func(t *testing.T) {
		for _, key := range []string{shared.EnvToken, shared.EnvAPIURL, shared.EnvJobURL, shared.EnvOutputDir, shared.EnvTokenExpiry} {
			t.Setenv(key, "")
		}
		path := filepath.Join(t.TempDir(), "config.toml")
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := run(t, runner, "-c", path, "setup", "config"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(output.String(), shared.EnvToken) {
			t.Errorf("expected next steps to mention %s, got %q", shared.EnvToken, output.String())
		}

		err := run(t, runner, "-c", path, "setup", "config")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected existing file to be refused, got %v", err)
		}

		if err := os.WriteFile(path, []byte("# edited\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := run(t, runner, "-c", path, "setup", "config", "--force"); err != nil {
			t.Fatalf("expected --force to overwrite, got %v", err)
		}
		if content := tu.MustReadFile(t, path); !strings.Contains(content, "[lucida]") {
			t.Errorf("expected template content after --force, got %q", content)
		}
	})

	t.Run("database", func(t *testing.T) {
		path := writeTestConfig(t, nil)
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

		if err := run(t, runner, "-c", path, "setup", "database"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, runner.config.Database.Path)
	})
}
