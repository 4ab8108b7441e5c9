// Package admin implements the management interface: a line-based,
// space-separated-token protocol over a Unix domain socket for adding,
// removing, and inspecting targets, in the style of kvblade.c's
// kvblade_sysfs_args tokenizer and its per-attribute show/store handlers.
package admin

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/clydefs/kvtree"
	"github.com/clydefs/kvtree/backend"
	"github.com/clydefs/kvtree/internal/constants"
	"github.com/clydefs/kvtree/internal/logging"
)

// Listener serves the management protocol over a Unix domain socket.
type Listener struct {
	svc    *kvtree.Service
	logger *logging.Logger

	ln net.Listener
	wg sync.WaitGroup
}

// NewListener builds an admin Listener bound to svc. Call Serve to start
// accepting connections.
func NewListener(svc *kvtree.Service, logger *logging.Logger) *Listener {
	if logger == nil {
		logger = logging.Default()
	}
	return &Listener{svc: svc, logger: logger}
}

// Serve opens socketPath (removing a stale socket file first, as nothing
// else should hold it) and begins accepting connections in the
// background.
func (l *Listener) Serve(socketPath string) error {
	_ = os.Remove(socketPath)

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return err
	}
	l.ln = ln

	l.wg.Add(1)
	go l.acceptLoop()
	return nil
}

// Close stops accepting connections and waits for in-flight ones to
// finish their current line.
func (l *Listener) Close() error {
	if l.ln == nil {
		return nil
	}
	err := l.ln.Close()
	l.wg.Wait()
	return err
}

func (l *Listener) acceptLoop() {
	defer l.wg.Done()
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			return
		}
		l.wg.Add(1)
		go l.serveConn(conn)
	}
}

func (l *Listener) serveConn(conn net.Conn) {
	defer l.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		resp := l.handleLine(scanner.Text())
		if _, err := fmt.Fprintln(conn, resp); err != nil {
			return
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		l.logger.Debugf("admin: connection read error: %v", err)
	}
}

// handleLine dispatches one whitespace-tokenized command line, in the
// style of kvblade_sysfs_args (no quoting, runs of whitespace collapse).
func (l *Listener) handleLine(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "-EINVAL"
	}

	switch fields[0] {
	case "add":
		return l.handleAdd(fields[1:])
	case "del":
		return l.handleDel(fields[1:])
	case "show":
		return l.handleShow(fields[1:])
	case "store":
		return l.handleStore(fields[1:])
	default:
		return "-EINVAL"
	}
}

// handleAdd implements "add <major> <minor> <interface> <path>": opens
// path as a read-write block device, verifies non-zero capacity, and
// registers the target.
func (l *Listener) handleAdd(args []string) string {
	if len(args) != 4 {
		return "-EINVAL"
	}
	major, minor, ok := parseAddr(args[0], args[1])
	if !ok {
		return "-EINVAL"
	}
	iface, path := args[2], args[3]

	f, err := backend.OpenFile(path)
	if err != nil {
		l.logger.Warnf("admin add: open %s failed: %v", path, err)
		return "-ENOENT"
	}
	if f.Size() == 0 {
		f.Close()
		return "-ENOENT"
	}

	err = l.svc.AddTarget(kvtree.TargetParams{
		Iface:   iface,
		Major:   major,
		Minor:   minor,
		Backend: f,
		Path:    path,
	})
	if err != nil {
		f.Close()
		if kvtree.IsCode(err, kvtree.ErrCodeExists) {
			return "-EEXIST"
		}
		if kvtree.IsCode(err, kvtree.ErrCodeNoMemory) {
			return "-ENOMEM"
		}
		return "-ENOENT"
	}
	return "0"
}

// handleDel implements "del <major> <minor> <interface>".
func (l *Listener) handleDel(args []string) string {
	if len(args) != 3 {
		return "-EINVAL"
	}
	major, minor, ok := parseAddr(args[0], args[1])
	if !ok {
		return "-EINVAL"
	}

	err := l.svc.DelTarget(args[2], major, minor)
	if err == nil {
		return "0"
	}
	if kvtree.IsCode(err, kvtree.ErrCodeBusy) {
		return "-EBUSY"
	}
	return "-ENOENT"
}

// handleShow implements the per-target readable fields: scnt/scst
// (sector count, a deliberate alias kept from the original kvblade.c
// sysfs attribute naming), bdev (backing path, shown the same as bpath;
// there is no separate block device number to report once the kernel's
// bd_dev is gone), bpath, model, and sn/serial.
func (l *Listener) handleShow(args []string) string {
	if len(args) != 4 {
		return "-EINVAL"
	}
	major, minor, ok := parseAddr(args[0], args[1])
	if !ok {
		return "-EINVAL"
	}
	t := l.svc.Target(args[2], major, minor)
	if t == nil {
		return "-ENOENT"
	}

	switch args[3] {
	case "scnt", "scst":
		return strconv.FormatInt(t.Backend.Size()/constants.SectorSize, 10)
	case "bdev", "bpath":
		return t.Path
	case "model":
		return t.Model
	case "sn", "serial":
		return t.Serial
	default:
		return "-EINVAL"
	}
}

// handleStore implements the per-target writable fields: model and
// serial. The value is stored as given; IDENTIFY space-pads or truncates
// it to the field's fixed width when it builds a response.
func (l *Listener) handleStore(args []string) string {
	if len(args) < 3 {
		return "-EINVAL"
	}
	major, minor, ok := parseAddr(args[0], args[1])
	if !ok {
		return "-EINVAL"
	}
	t := l.svc.Target(args[2], major, minor)
	if t == nil {
		return "-ENOENT"
	}
	if len(args) < 4 {
		return "-EINVAL"
	}
	field := args[3]
	value := strings.Join(args[4:], " ")

	switch field {
	case "model":
		t.Model = value
	case "sn", "serial":
		t.Serial = value
	default:
		return "-EINVAL"
	}
	return "0"
}

func parseAddr(majorStr, minorStr string) (major uint16, minor uint8, ok bool) {
	maj, err := strconv.ParseUint(majorStr, 10, 16)
	if err != nil {
		return 0, 0, false
	}
	min, err := strconv.ParseUint(minorStr, 10, 8)
	if err != nil {
		return 0, 0, false
	}
	return uint16(maj), uint8(min), true
}
