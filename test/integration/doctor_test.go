package integration

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoctorCommand(t *testing.T) {
	tests := map[string]struct {
		manifest  string
		args      []string
		expErr    bool
		expStdout []string
	}{
		"All checks passing": {
			manifest: `api_url: http://127.0.0.1:8001
services:
  - name: api
    command: ["sleep", "300"]
  - name: task-processor
    command: ["sleep", "300"]
`,
			expStdout: []string{
				"Checking service runtimes...",
				"OK",
				"log_dir",
				"executable_api",
				"executable_task-processor",
				"Checking pipeline API...",
				"api_url",
				"All checks passed!",
			},
		},
		"Missing service executable fails": {
			manifest: `services:
  - name: api
    command: ["/does/not/exist/api-server"]
`,
			expErr: true,
			expStdout: []string{
				"XX",
				"executable_api",
				"error(s)",
			},
		},
		"Malformed API URL fails": {
			manifest: `api_url: not-a-url
services:
  - name: api
    command: ["sleep", "300"]
`,
			expErr: true,
			expStdout: []string{
				"XX",
				"api_url",
			},
		},
		"API URL flag overrides the manifest": {
			manifest: `api_url: not-a-url
services:
  - name: api
    command: ["sleep", "300"]
`,
			args: []string{"--api-url", "http://127.0.0.1:9001"},
			expStdout: []string{
				"All checks passed!",
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			buildTestBinary(t)

			tmpDir := t.TempDir()
			manifestPath := filepath.Join(tmpDir, "smokerig.yaml")
			require.NoError(t, os.WriteFile(manifestPath, []byte(tt.manifest), 0o644))

			cmdArgs := []string{
				"doctor",
				"-f", manifestPath,
				"--log-dir", filepath.Join(tmpDir, "logs"),
				"--no-log",
			}
			cmdArgs = append(cmdArgs, tt.args...)

			cmd := exec.Command("./smokerig-test", cmdArgs...)
			var stdout, stderr bytes.Buffer
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr
			err := cmd.Run()

			if tt.expErr {
				require.Error(t, err, "stdout: %s", stdout.String())
			} else {
				require.NoError(t, err, "stderr: %s", stderr.String())
			}

			stdoutStr := stdout.String()
			for _, exp := range tt.expStdout {
				assert.Contains(t, stdoutStr, exp)
			}
		})
	}
}
