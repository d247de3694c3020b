// Package deps checks for the external programs livecc shells out to.
package deps

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// Status represents the installation status of a dependency
type Status struct {
	Installed bool
	Path      string
	Version   string
}

// Tool is an external program and what livecc needs it for.
type Tool struct {
	Name        string
	Purpose     string
	VersionArgs []string
}

var (
	pwRecord   = Tool{Name: "pw-record", Purpose: "PipeWire capture", VersionArgs: []string{"--version"}}
	parec      = Tool{Name: "parec", Purpose: "PulseAudio capture", VersionArgs: []string{"--version"}}
	whisperCli = Tool{Name: "whisper-cli", Purpose: "local whisper.cpp transcription", VersionArgs: []string{"--version"}}
	notifySend = Tool{Name: "notify-send", Purpose: "desktop notifications", VersionArgs: []string{"--version"}}
)

// Required lists the tools a configuration depends on.
func Required(captureBackend, transcriptionBackend string, desktopNotify bool) []Tool {
	var tools []Tool
	switch captureBackend {
	case "pipewire":
		tools = append(tools, pwRecord)
	case "pulse":
		tools = append(tools, parec)
	}
	if transcriptionBackend == "whisper.cpp" {
		tools = append(tools, whisperCli)
	}
	if desktopNotify {
		tools = append(tools, notifySend)
	}
	return tools
}

// Check looks the tool up on PATH and, when it has version arguments, reads
// the first line of their output.
func Check(t Tool) Status {
	path, err := exec.LookPath(t.Name)
	if err != nil {
		return Status{Installed: false}
	}

	status := Status{
		Installed: true,
		Path:      path,
	}
	if len(t.VersionArgs) == 0 {
		return status
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	output, err := exec.CommandContext(ctx, path, t.VersionArgs...).Output()
	if err == nil {
		for _, line := range strings.Split(string(output), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				status.Version = line
				break
			}
		}
	}
	return status
}
