// Command gnssd is the daemon entry point: it opens the configured
// device URIs, wires the TOP708 NMEA driver, and runs the dispatcher's
// event loop until SIGINT/TERM/QUIT (spec §5, §6 "Signals").
//
// CLI/argument parsing and daemonization are named external
// collaborators (spec §1 Non-goals): rather than pull in a flags
// library, Config is a plain struct literal main builds itself, with
// device paths taken positionally from os.Args when given (SPEC_FULL.md
// "Configuration").
package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skywave-gnss/gnssd/internal/dispatch"
	top708driver "github.com/skywave-gnss/gnssd/internal/drivers/top708"
	"github.com/skywave-gnss/gnssd/internal/session"
	"github.com/skywave-gnss/gnssd/pkg/caster"
	"github.com/skywave-gnss/gnssd/pkg/server"
)

// Config is the daemon's startup parameters (spec §3 "Context").
type Config struct {
	ListenAddr string
	Devices    []string
	NoWait     bool
	// CasterAddr, when non-empty, publishes every relayed RTCM frame into
	// an embedded in-process NTRIP caster reachable at that address
	// (SPEC_FULL.md domain stack: pkg/caster wiring). The sourcetable's
	// mountpoint names are derived from the registered device table
	// (mountNameFromDevice) rather than fixed ahead of time; CasterMount
	// only overrides the name of the relay's primary mountpoint.
	CasterAddr  string
	CasterMount string
	// UpstreamHost/Port, when non-empty, pushes every relayed RTCM frame
	// onward to a remote NTRIP caster via pkg/server's NTRIP-client leg.
	UpstreamHost, UpstreamPort, UpstreamMount string
	// UpstreamReplayFile, when non-empty, replaces the live device feed
	// for the upstream-push leg with a recorded RTCM file looped via
	// pkg/server.FileDataSource, for exercising the NTRIP-client leg
	// without any device attached.
	UpstreamReplayFile string
}

func defaultConfig() Config {
	cfg := Config{
		ListenAddr: ":2947", // DEFAULT_GPSD_PORT fallback, spec §6
		Devices:    []string{"/dev/ttyUSB0"},
		CasterAddr: ":2101",
		// CasterMount left empty: derived from the device table once
		// devices are registered, see mountNameFromDevice.
	}
	if len(os.Args) > 1 {
		cfg.Devices = os.Args[1:]
	}
	return cfg
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := defaultConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.WithError(err).Fatal("gnssd: failed to bind subscriber listener")
	}
	defer listener.Close()

	d := dispatch.New(logger, listener)
	d.SetNoWait(cfg.NoWait)

	// Devices register first: the caster's sourcetable and primary
	// mountpoint are both derived from the resulting device table, so
	// nothing downstream can observe an empty one.
	drivers := []*session.Driver{top708driver.NewDriver()}
	for _, path := range cfg.Devices {
		if _, ok := d.AddDevice(ctx, path, drivers); !ok {
			logger.WithField("device", path).Warn("gnssd: device table full")
		}
	}

	if cfg.CasterAddr != "" {
		svc := caster.NewInMemorySourceService()
		devicePaths := d.DevicePaths()
		if len(devicePaths) == 0 {
			devicePaths = []string{"GNSSD"}
		}
		primaryMount := cfg.CasterMount
		for i, path := range devicePaths {
			name := mountNameFromDevice(path)
			if i == 0 && primaryMount == "" {
				primaryMount = name
			}
			svc.Sourcetable.Mounts = append(svc.Sourcetable.Mounts, caster.StreamEntry{
				Name:   name,
				Format: "RTCM 3.3",
			})
		}
		pub, err := svc.Publisher(ctx, primaryMount, "", "")
		if err != nil {
			logger.WithError(err).Warn("gnssd: failed to create caster mountpoint, relay-to-caster disabled")
		} else {
			d.SetCasterPublisher(pub)
			c := caster.NewCaster(cfg.CasterAddr, svc, logger.WithField("component", "caster"))
			go func() {
				if err := c.ListenAndServe(); err != nil {
					logger.WithError(err).Warn("gnssd: embedded caster stopped")
				}
			}()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = c.Shutdown(shutdownCtx)
			}()
		}
	}

	var upstream *server.Server
	if cfg.UpstreamHost != "" {
		upstream = server.NewServer(cfg.UpstreamHost, cfg.UpstreamPort, "", "", cfg.UpstreamMount,
			logger.WithField("component", "ntrip-push"))

		var liveFeed *chanDataSource
		if cfg.UpstreamReplayFile != "" {
			// Replay mode: the dispatcher never sees an upstream-push
			// channel, and the recorded file drives pkg/server directly.
			upstream.SetDataSource(server.NewFileDataSource(cfg.UpstreamReplayFile, 1024, 200*time.Millisecond))
		} else {
			liveFeed = newChanDataSource(16, logger.WithField("component", "ntrip-push"))
			upstream.SetDataSource(liveFeed)
		}

		if err := upstream.Start(); err != nil {
			logger.WithError(err).Warn("gnssd: failed to start upstream NTRIP push, relay disabled")
			upstream = nil
		} else if liveFeed != nil {
			d.SetUpstreamPush(liveFeed.ch)
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	go func() {
		for s := range sig {
			if s == syscall.SIGHUP {
				logger.Info("gnssd: SIGHUP received, re-init not implemented by this core (spec §5); continuing")
				continue
			}
			logger.WithField("signal", s).Info("gnssd: shutting down")
			cancel()
			return
		}
	}()

	logger.WithField("listen", cfg.ListenAddr).WithField("devices", cfg.Devices).Info("gnssd: starting")
	if err := d.Run(ctx); err != nil && err != context.Canceled {
		logger.WithError(err).Warn("gnssd: event loop exited")
	}
	// d.Run has returned, so the event loop will never send on the
	// upstream-push channel again: safe to stop (and close it) now.
	if upstream != nil {
		_ = upstream.Stop()
	}
}

// mountNameFromDevice turns a device path into an NTRIP mountpoint name:
// the last path element, uppercased, with anything but letters and
// digits stripped (NTRIP mount names are a bare token on the request
// line, RFC-lawless about punctuation). "/dev/ttyUSB0" becomes
// "TTYUSB0"; an already bare name like "GNSSD" passes through
// unchanged. Falls back to "GNSSD" if nothing alphanumeric survives.
func mountNameFromDevice(path string) string {
	var b strings.Builder
	for _, r := range filepath.Base(path) {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - ('a' - 'A'))
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "GNSSD"
	}
	return b.String()
}
