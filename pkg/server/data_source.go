package server

import (
	"context"
	"sync"
	"time"

	"github.com/skywave-gnss/gnssd/pkg/gnssgo/stream"
)

// FileDataSource replays RTCM bytes from a file through the DataSource
// interface, looping back to the start on EOF. Grounded on the
// teacher's own FileDataSource, but built on pkg/gnssgo/stream directly
// rather than the root package's now-removed compatibility re-export
// layer (see DESIGN.md's Deletions); it gives cmd/gnssd's upstream-push
// leg a recorded-data replay mode for exercising pkg/server against a
// caster without a live device attached.
type FileDataSource struct {
	filePath   string
	dataChan   chan []byte
	ctx        context.Context
	cancel     context.CancelFunc
	running    bool
	mutex      sync.Mutex
	bufferSize int
	interval   time.Duration
}

// NewFileDataSource creates a new file data source
func NewFileDataSource(filePath string, bufferSize int, interval time.Duration) *FileDataSource {
	return &FileDataSource{
		filePath:   filePath,
		dataChan:   make(chan []byte, 10),
		bufferSize: bufferSize,
		interval:   interval,
	}
}

// Start starts the data source
func (ds *FileDataSource) Start() error {
	ds.mutex.Lock()
	defer ds.mutex.Unlock()

	if ds.running {
		return nil
	}

	// Create a cancellable context
	ds.ctx, ds.cancel = context.WithCancel(context.Background())

	// Start the data source in a goroutine
	go ds.run()

	ds.running = true
	return nil
}

// Stop stops the data source
func (ds *FileDataSource) Stop() error {
	ds.mutex.Lock()
	defer ds.mutex.Unlock()

	if !ds.running {
		return nil
	}

	// Cancel the context
	if ds.cancel != nil {
		ds.cancel()
	}

	// Close the data channel
	close(ds.dataChan)

	ds.running = false
	return nil
}

// Data returns the data channel
func (ds *FileDataSource) Data() <-chan []byte {
	return ds.dataChan
}

// run runs the data source
func (ds *FileDataSource) run() {
	var str stream.Stream
	str.InitStream()

	// Open the file
	if str.OpenStream(stream.STR_FILE, stream.STR_MODE_R, ds.filePath) <= 0 {
		return
	}
	defer str.StreamClose()

	buffer := make([]byte, ds.bufferSize)

	for {
		// Check if the context is done
		select {
		case <-ds.ctx.Done():
			return
		default:
		}

		// Read data from the file
		n := str.StreamRead(buffer, ds.bufferSize)
		if n <= 0 {
			// Reopen the file if we reached the end
			str.StreamClose()
			if str.OpenStream(stream.STR_FILE, stream.STR_MODE_R, ds.filePath) <= 0 {
				return
			}
			continue
		}

		// Copy the data to avoid race conditions
		data := make([]byte, n)
		copy(data, buffer[:n])

		// Send the data to the channel
		select {
		case ds.dataChan <- data:
		default:
			// Skip if the channel is full
		}

		// Wait before reading again
		select {
		case <-ds.ctx.Done():
			return
		case <-time.After(ds.interval):
		}
	}
}
