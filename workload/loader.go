package workload

import (
	"embed"
	"fmt"
	"os"
)

// HelloPath is the executable every reference scenario runs.
const HelloPath = "tests/test-progs/hello/bin/mini64/linux/hello"

//go:embed programs/*.yaml
var builtinFS embed.FS

var builtins = map[string]string{
	HelloPath: "programs/hello.yaml",
}

// Process binds an executable and its command line to hardware threads.
type Process struct {
	Executable string
	Cmd        []string
}

// NewProcess creates a process whose command line is just the executable.
func NewProcess(executable string) Process {
	return Process{
		Executable: executable,
		Cmd:        []string{executable},
	}
}

// Loader resolves an executable path into a Program.
type Loader interface {
	Load(path string) (*Program, error)
}

// FileLoader resolves built-in executables first and falls back to reading
// YAML program files from disk.
type FileLoader struct{}

// NewLoader creates the default loader.
func NewLoader() *FileLoader {
	return &FileLoader{}
}

// Load implements Loader.
func (l *FileLoader) Load(path string) (*Program, error) {
	var (
		data []byte
		err  error
	)

	if name, ok := builtins[path]; ok {
		data, err = builtinFS.ReadFile(name)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read executable %s: %w", path, err)
	}

	prog, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load executable %s: %w", path, err)
	}

	return prog, nil
}
