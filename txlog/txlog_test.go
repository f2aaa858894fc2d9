package txlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var stamp = time.Date(2026, 3, 14, 15, 4, 5, int(6*time.Millisecond), time.UTC)

func writeSampleLog(t *testing.T, path string, addr byte, payload []byte) {
	t.Helper()
	w, err := Create(path, false)
	if err != nil {
		t.Fatalf("Create() returned error: %v", err)
	}
	defer w.Close()

	w.Start(stamp)
	w.Header(stamp, addr, true, true)
	for _, b := range payload {
		w.Data(stamp, b, true)
	}
	w.Stop(stamp)
}

func TestWriterFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "i2c_log.txt")
	writeSampleLog(t, path, 0x03, []byte{0x02, 0x21})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	expected := strings.Join([]string{
		"[15:04:05.006] START detected",
		"[15:04:05.006] Address: 0x03 WRITE, ACK=true",
		"[15:04:05.006]   Data: 0x02, ACK=true",
		"[15:04:05.006]   Data: 0x21, ACK=true",
		"[15:04:05.006] STOP detected",
		"",
	}, "\n")
	if string(data) != expected {
		t.Errorf("log content:\n%s\nexpected:\n%s", data, expected)
	}
}

func TestNilWriterIsSilent(t *testing.T) {
	var w *Writer
	w.Start(stamp)
	w.Header(stamp, 0x03, false, false)
	w.Data(stamp, 0x01, true)
	w.Stop(stamp)
	w.Notef("ignored %d", 1)
	if err := w.Close(); err != nil {
		t.Errorf("Close() on nil writer returned %v", err)
	}
}

func TestParseFileGroupsByAddressAndDirection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "i2c_log.txt")
	writeSampleLog(t, path, 0x03, []byte{0x02, 0x21})
	writeSampleLog(t, path, 0x03, []byte{0x09})

	parsed, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() returned error: %v", err)
	}

	key := AddrDir{Addr: "03", Dir: "WRITE"}
	seqs, ok := parsed[key]
	if !ok {
		t.Fatalf("key %v missing, parsed keys: %v", key, parsed)
	}
	if len(seqs) != 2 {
		t.Fatalf("found %d sequences for %v, expected 2", len(seqs), key)
	}
	if len(seqs[0]) != 2 || seqs[0][0] != "02" || seqs[0][1] != "21" {
		t.Errorf("first sequence = %v, expected [02 21]", seqs[0])
	}
	if len(seqs[1]) != 1 || seqs[1][0] != "09" {
		t.Errorf("second sequence = %v, expected [09]", seqs[1])
	}
}

func TestCompareReportsUniqueAndDiffering(t *testing.T) {
	dir := t.TempDir()
	logA := filepath.Join(dir, "a.txt")
	logB := filepath.Join(dir, "b.txt")

	writeSampleLog(t, logA, 0x03, []byte{0x02, 0x21}) // differs between logs
	writeSampleLog(t, logA, 0x10, []byte{0xAA})       // unique to A
	writeSampleLog(t, logB, 0x03, []byte{0x02, 0x09})
	writeSampleLog(t, logB, 0x20, []byte{0xBB}) // unique to B

	var out strings.Builder
	if err := Compare(&out, logA, logB); err != nil {
		t.Fatalf("Compare() returned error: %v", err)
	}
	report := out.String()

	for _, want := range []string{
		"0x03 WRITE - different data between logs",
		"0x10 WRITE - unique to " + logA,
		"0x20 WRITE - unique to " + logB,
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}
