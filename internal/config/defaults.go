package config

import "os"

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: BackendCSV,
			Path:    "tasks.csv",
			Retain:  1,
		},
		History: HistoryConfig{
			Limit: 0,
		},
		Load: LoadConfig{
			Tolerant: false,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultYAML is the annotated default configuration file.
const DefaultYAML = `# taskmgr configuration

storage:
  backend: csv     # csv | sqlite | memory
  path: tasks.csv  # CSV file or SQLite database
  retain: 1        # SQLite snapshots kept

history:
  limit: 0         # most recent items remembered (0 = unlimited)

load:
  tolerant: false  # skip unreadable CSV rows instead of failing

log:
  level: info      # debug | info | warn | error
`

// WriteDefault writes DefaultYAML to path.
func WriteDefault(path string) error {
	return os.WriteFile(path, []byte(DefaultYAML), 0o644)
}
