package domainkey

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// FileSource serves key records from a flat file instead of DNS, for test
// setups. Each line is "qname<whitespace>key-record"; blank lines and lines
// starting with # are ignored. Qnames match case-insensitively, with or
// without a trailing dot.
type FileSource struct {
	records map[string][]string
}

// NewFileSource reads the whole file up front.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := readFileSource(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func readFileSource(r io.Reader) (*FileSource, error) {
	s := &FileSource{records: make(map[string][]string)}
	scanner := bufio.NewScanner(r)
	// 鍵レコードは1行が長くなるためバッファを広げておく
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		i := strings.IndexAny(line, " \t")
		if i < 0 {
			return nil, fmt.Errorf("line %d: missing key record", lineno)
		}
		qname := canonicalQName(line[:i])
		record := strings.TrimSpace(line[i+1:])
		s.records[qname] = append(s.records[qname], record)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func canonicalQName(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, "."))
}

// LookupTXT implements TXTResolver. A file is a local source with no DNSSEC
// validation, so authentic is always false.
func (s *FileSource) LookupTXT(_ context.Context, name string) ([]string, bool, error) {
	recs, ok := s.records[canonicalQName(name)]
	if !ok {
		return nil, false, ErrNoRecordFound
	}
	return recs, false, nil
}
