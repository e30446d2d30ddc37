package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// SampleConfig is the default config.yaml written by Init.
const SampleConfig = `# tracker-tui configuration

tracker:
  host: https://api.tracker.yandex.net/
  # front_url: https://tracker.yandex.ru  # only needed for hosts the app does not know

# Views are shown as tabs. Without any, "Assigned to me" and
# "Followed by me" are used.
views:
  - id: assigned-to-me
    label: "Assigned to me"
    query: "Resolution: empty() and Assignee: me()"
  - id: followed-by-me
    label: "Followed by me"
    query: "Resolution: empty() and Followers: me()"

# An extra tab for a free-form query.
# query: "Queue: PROJ and Resolution: empty()"

columns: [key, summary, status, priority, updated]

log:
  level: info
`

const secretsHeader = `# tracker-tui secrets, DO NOT COMMIT
# Copy the Cookie header of a logged-in tracker browser tab, or run
#   tracker-tui set-cookie

`

// SampleSecrets is the default secrets.yaml written by Init.
const SampleSecrets = secretsHeader + `tracker:
  cookie: ""
`

// Init creates dir with sample config and secrets files. Existing files are
// left untouched. It returns the directory path.
func Init(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	if err := writeIfNotExists(ConfigPath(dir), SampleConfig, 0o644); err != nil {
		return dir, err
	}
	if err := writeIfNotExists(SecretsPath(dir), SampleSecrets, 0o600); err != nil {
		return dir, err
	}

	return dir, nil
}

// DirExists returns true if dir exists and is a directory.
func DirExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

func writeIfNotExists(path, content string, perm os.FileMode) error {
	if _, err := os.Stat(path); err == nil {
		return nil // already exists, don't overwrite
	}
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
