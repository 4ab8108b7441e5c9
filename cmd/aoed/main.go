// Command aoed serves an AoE tree-storage target: a signal-driven
// lifecycle around a flag surface of -i interface, -d backing device.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clydefs/kvtree"
	"github.com/clydefs/kvtree/backend"
	"github.com/clydefs/kvtree/internal/admin"
	"github.com/clydefs/kvtree/internal/logging"
	"github.com/clydefs/kvtree/treebackend"
)

func main() {
	var (
		iface      = flag.String("i", "eth0", "network interface to serve on")
		disk       = flag.String("d", "/dev/sda", "backing block device or file")
		majorFlag  = flag.Uint("major", 1, "AoE shelf (major) number")
		minorFlag  = flag.Uint("minor", 0, "AoE slot (minor) number")
		readOnly   = flag.Bool("ro", false, "serve the target read-only")
		memTree    = flag.Bool("mem-tree", true, "use the in-process treebackend.Memory reference tree store")
		adminSock  = flag.String("admin", "", "path to an admin Unix socket (disabled if empty)")
		verbose    = flag.Bool("v", false, "verbose logging")
		treeWorkers = flag.Int("tree-workers", 0, "tree engine worker count (0 = runtime.NumCPU())")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	bdev, err := backend.OpenFile(*disk)
	if err != nil {
		log.Fatalf("aoed: open %s: %v", *disk, err)
	}
	bdev.SetReadOnly(*readOnly)

	var tree kvtree.TreeBackend
	if *memTree {
		tree = treebackend.NewMemory()
	}

	svc := kvtree.NewService(kvtree.Options{
		Logger:      logger,
		TreeWorkers: *treeWorkers,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	if err := svc.AddTarget(kvtree.TargetParams{
		Iface:    *iface,
		Major:    uint16(*majorFlag),
		Minor:    uint8(*minorFlag),
		Backend:  bdev,
		Tree:     tree,
		Path:     *disk,
		ReadOnly: *readOnly,
	}); err != nil {
		log.Fatalf("aoed: add target: %v", err)
	}

	logger.Infof("serving %s as %d.%d@%s (%d bytes)", *disk, *majorFlag, *minorFlag, *iface, bdev.Size())

	var adminLn *admin.Listener
	if *adminSock != "" {
		adminLn = admin.NewListener(svc, logger)
		if err := adminLn.Serve(*adminSock); err != nil {
			log.Fatalf("aoed: admin socket %s: %v", *adminSock, err)
		}
		logger.Infof("admin interface listening on %s", *adminSock)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Infof("received signal %s, shutting down", sig)

	if adminLn != nil {
		_ = adminLn.Close()
	}

	done := make(chan struct{})
	go func() {
		if err := svc.Stop(); err != nil {
			logger.Errorf("shutdown error: %v", err)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warnf("shutdown timed out, exiting anyway")
	}
}
