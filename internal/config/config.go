package config

// OperationType is the identifier for operation types that can be found in config
type OperationType string

const (
	ShellKey OperationType = "shell"
	SleepKey OperationType = "sleep"
)

// Trigger is the identifier for trigger types that can be found in config
type Trigger string

const (
	FileKey    Trigger = "file"
	CronKey    Trigger = "cron"
	ProcessKey Trigger = "process"
)

// FileOp refers to the file operations that can be watched as part of the
// File trigger
type FileOp string

var (
	Create FileOp = "create"
	Update FileOp = "update"
	Remove FileOp = "remove"
	Rename FileOp = "rename"
)

// Cron defines the schedule for a cron based trigger, seconds included
type Cron struct {
	Schedule string `yaml:"schedule"`
}

// File defines the path and change operation applied to that path that
// the file trigger should watch for
type File struct {
	Operation FileOp `yaml:"operation"`
	Path      string `yaml:"path"`
}

// State refers to the state change of a running process, i.e. open/close
type State string

var (
	Open  State = "open"
	Close State = "close"
)

// Process defines the configuration of the process change trigger
// executable corresponds to the name of the process e.g. firefox.exe on Windows
type Process struct {
	Executable string `yaml:"executable"`
	State      State  `yaml:"state"`
}
