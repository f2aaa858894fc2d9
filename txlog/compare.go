package txlog

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
)

// Compare reports the address/direction groups whose payload sequences
// differ between two transaction logs. It works on the decoded log
// text, not on live bus signals, so it can run anywhere.
func Compare(w io.Writer, pathA, pathB string) error {
	a, err := ParseFile(pathA)
	if err != nil {
		return err
	}
	b, err := ParseFile(pathB)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "=== Unique or different sequences in %s vs %s ===\n\n", pathA, pathB)
	for _, key := range sortedKeys(a) {
		seqs := a[key]
		other, ok := b[key]
		switch {
		case !ok:
			fmt.Fprintf(w, "%s - unique to %s\n", key, pathA)
			printSeqs(w, "  ", seqs)
			fmt.Fprintln(w)
		case !reflect.DeepEqual(seqs, other):
			fmt.Fprintf(w, "%s - different data between logs\n", key)
			fmt.Fprintf(w, "  %s:\n", pathA)
			printSeqs(w, "    ", seqs)
			fmt.Fprintf(w, "  %s:\n", pathB)
			printSeqs(w, "    ", other)
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintf(w, "=== Unique sequences in %s not in %s ===\n\n", pathB, pathA)
	for _, key := range sortedKeys(b) {
		if _, ok := a[key]; !ok {
			fmt.Fprintf(w, "%s - unique to %s\n", key, pathB)
			printSeqs(w, "  ", b[key])
			fmt.Fprintln(w)
		}
	}
	return nil
}

func sortedKeys(m map[AddrDir][][]string) []AddrDir {
	keys := make([]AddrDir, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Addr != keys[j].Addr {
			return keys[i].Addr < keys[j].Addr
		}
		return keys[i].Dir < keys[j].Dir
	})
	return keys
}

func printSeqs(w io.Writer, indent string, seqs [][]string) {
	for _, seq := range seqs {
		fmt.Fprintf(w, "%sData: %s\n", indent, strings.Join(seq, " "))
	}
}
