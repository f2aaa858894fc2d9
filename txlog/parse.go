package txlog

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
)

// AddrDir keys parsed log entries by slave address and direction, both
// kept as the literal text from the log.
type AddrDir struct {
	Addr string // e.g. "03"
	Dir  string // "WRITE" or "READ"
}

func (k AddrDir) String() string {
	return fmt.Sprintf("0x%s %s", k.Addr, k.Dir)
}

var (
	addrPattern = regexp.MustCompile(`Address: 0x([0-9A-Fa-f]{2}) (\w+)`)
	dataPattern = regexp.MustCompile(`Data: 0x([0-9A-Fa-f]{2})`)
)

// ParseFile reads a transaction log and groups the payload sequences by
// address and direction, in file order. Lines that are not address or
// data events (start, stop, diagnostics) are skipped.
func ParseFile(path string) (map[AddrDir][][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log %s: %w", path, err)
	}
	defer file.Close()

	results := make(map[AddrDir][][]string)
	var current *AddrDir

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if m := addrPattern.FindStringSubmatch(line); m != nil {
			key := AddrDir{Addr: m[1], Dir: m[2]}
			current = &key
			results[key] = append(results[key], []string{})
			continue
		}
		if current == nil {
			continue
		}
		if m := dataPattern.FindStringSubmatch(line); m != nil {
			seqs := results[*current]
			seqs[len(seqs)-1] = append(seqs[len(seqs)-1], m[1])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log %s: %w", path, err)
	}
	return results, nil
}
