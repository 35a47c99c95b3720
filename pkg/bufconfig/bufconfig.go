// Package bufconfig parses the line-oriented config file of the bufmon tool.
// The library itself is configured through constructor parameters; this file
// format only exists so a monitor setup can be kept next to a deployment.
//
// Recognized directives, one per line (a line starting with '#' is a comment;
// trailing comments after a directive are not supported):
//
//	capacity 8
//	lock_timeout 250ms
package bufconfig

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type BufConfig struct {
	Capacity    int
	LockTimeout time.Duration
}

func newErrString(line int, msg string, args ...any) error {
	_msg := fmt.Sprintf(msg, args...)
	return errors.Errorf("Parse error on line %d:  %s", line, _msg)
}

// Parse a configuration file
func ParseConfig(configFile string) (*BufConfig, error) {
	fd, err := os.Open(configFile)
	if err != nil {
		return nil, errors.New("Unable to open file")
	}
	defer fd.Close()

	config := &BufConfig{
		Capacity:    8,
		LockTimeout: time.Second,
	}

	scanner := bufio.NewScanner(fd)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, newErrString(lineNo, "expected '<directive> <value>', got %q", line)
		}

		switch fields[0] {
		case "capacity":
			capacity, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, newErrString(lineNo, "invalid capacity %q", fields[1])
			}
			if capacity < 1 {
				return nil, newErrString(lineNo, "capacity must be >= 1, got %d", capacity)
			}
			config.Capacity = capacity
		case "lock_timeout":
			timeout, err := time.ParseDuration(fields[1])
			if err != nil {
				return nil, newErrString(lineNo, "invalid lock_timeout %q", fields[1])
			}
			if timeout <= 0 {
				return nil, newErrString(lineNo, "lock_timeout must be positive, got %s", timeout)
			}
			config.LockTimeout = timeout
		default:
			return nil, newErrString(lineNo, "unknown directive %q", fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return config, nil
}
