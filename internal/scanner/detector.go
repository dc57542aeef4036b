package scanner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"
)

// SpoolDetector reads beacon ids from a newline-delimited spool file written
// by an external radio listener (BLE sniffer, gateway firmware, ...) and
// truncates it after each read. Each Detect drains whatever accumulated
// since the previous cycle.
type SpoolDetector struct {
	path string
	mu   sync.Mutex
}

func NewSpoolDetector(path string) *SpoolDetector {
	return &SpoolDetector{path: path}
}

func (d *SpoolDetector) Detect(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := os.Truncate(d.path, 0); err != nil {
		return nil, err
	}

	var ids []string
	seen := make(map[string]struct{})
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		id := strings.TrimSpace(sc.Text())
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, sc.Err()
}

// StaticLocator reports a fixed position, suitable for stationary scanning
// gateways whose coordinates are configured once.
type StaticLocator struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

func (l StaticLocator) Location(ctx context.Context) (float64, float64, float64, error) {
	return l.Latitude, l.Longitude, l.Accuracy, nil
}
