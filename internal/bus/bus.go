// Package bus is the control channel between the livecc CLI and a running
// daemon: a unix socket carrying one command byte per connection.
package bus

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	SockName = "control.sock"
	PidName  = "livecc.pid"
	ProtoVer = "1"
)

// Command bytes.
const (
	CmdStart   byte = 'b'
	CmdStop    byte = 'e'
	CmdToggle  byte = 't'
	CmdStatus  byte = 's'
	CmdVersion byte = 'v'
	CmdQuit    byte = 'q'
)

var commandNames = map[string]byte{
	"start":   CmdStart,
	"stop":    CmdStop,
	"toggle":  CmdToggle,
	"status":  CmdStatus,
	"version": CmdVersion,
	"quit":    CmdQuit,
}

// ParseCommand maps a CLI command name to its command byte.
func ParseCommand(name string) (byte, error) {
	cmd, ok := commandNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown command %q", name)
	}
	return cmd, nil
}

// RuntimeDir is $XDG_RUNTIME_DIR/livecc, or ~/.cache/livecc when no runtime
// dir is set.
func RuntimeDir() (string, error) {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "livecc"), nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "livecc"), nil
}

func SockPath() (string, error) {
	dir, err := RuntimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SockName), nil
}

func PidPath() (string, error) {
	dir, err := RuntimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, PidName), nil
}

func Listen() (net.Listener, error) {
	sp, err := SockPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(sp), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(sp) // stale socket from last run
	return net.Listen("unix", sp)
}

func Dial() (net.Conn, error) {
	sp, err := SockPath()
	if err != nil {
		return nil, err
	}
	return net.DialTimeout("unix", sp, 2*time.Second)
}

// SendCommand sends cmd to the daemon and returns its one-line reply.
func SendCommand(cmd byte) (string, error) {
	c, err := Dial()
	if err != nil {
		return "", fmt.Errorf("daemon not reachable (is livecc serve running?): %w", err)
	}
	defer c.Close()

	if _, err := c.Write([]byte{cmd, '\n'}); err != nil {
		return "", err
	}

	c.SetReadDeadline(time.Now().Add(10 * time.Second))
	return bufio.NewReader(c).ReadString('\n')
}

type pidManager struct {
	path string
}

func defaultPidManager() (*pidManager, error) {
	p, err := PidPath()
	if err != nil {
		return nil, err
	}
	return &pidManager{path: p}, nil
}

// checkExisting fails when the pid file names a live process. Stale or
// unreadable pid files are removed.
func (p *pidManager) checkExisting() error {
	pidData, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil || !p.isProcessAlive(pid) {
		_ = os.Remove(p.path)
		return nil
	}
	return fmt.Errorf("daemon already running with PID %d", pid)
}

func (p *pidManager) isProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// signal 0 only checks that the process exists
	return proc.Signal(syscall.Signal(0)) == nil
}

func (p *pidManager) create() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (p *pidManager) remove() error {
	return os.Remove(p.path)
}

func CheckExistingDaemon() error {
	p, err := defaultPidManager()
	if err != nil {
		return err
	}
	return p.checkExisting()
}

func CreatePidFile() error {
	p, err := defaultPidManager()
	if err != nil {
		return err
	}
	return p.create()
}

func RemovePidFile() error {
	p, err := defaultPidManager()
	if err != nil {
		return err
	}
	return p.remove()
}
