package main

import "github.com/sirupsen/logrus"

// chanDataSource adapts a plain Go channel to `pkg/server.DataSource` so
// the dispatcher's relayed RTCM bytes (internal/dispatch's upstream-push
// channel) can feed `pkg/server.Server`'s NTRIP-client push loop without
// that package reaching back into internal/dispatch (SPEC_FULL.md domain
// stack table: pkg/server kept as the RTCM-relay's outbound NTRIP leg).
type chanDataSource struct {
	ch     chan []byte
	logger logrus.FieldLogger
}

func newChanDataSource(buffer int, logger logrus.FieldLogger) *chanDataSource {
	return &chanDataSource{ch: make(chan []byte, buffer), logger: logger}
}

func (c *chanDataSource) Start() error { return nil }
func (c *chanDataSource) Stop() error  { close(c.ch); return nil }

func (c *chanDataSource) Data() <-chan []byte { return c.ch }
