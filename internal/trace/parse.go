package trace

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/concuject/concuject/internal/bugmodel"
)

var logLinePattern = regexp.MustCompile(`^(\d+) ([=>-]) (None|(.*):(\d+))\s*$`)

// ThreadPos is one parsed trace line: a thread id, which side of the line
// it paused on, and the source location (nil once the thread has exited
// and every later entry for it records "None").
type ThreadPos struct {
	Tid      int
	LineLoc  bugmodel.LineLoc
	FileLine *bugmodel.FileLine
}

// ParseLogLine parses a single trace line. A line that doesn't match the
// expected format returns ok == false rather than an error — the parser
// silently skips blank lines and trailers the same way the reference
// format does.
func ParseLogLine(line string) (ThreadPos, bool) {
	m := logLinePattern.FindStringSubmatch(line)
	if m == nil {
		return ThreadPos{}, false
	}
	tid, err := strconv.Atoi(m[1])
	if err != nil {
		return ThreadPos{}, false
	}
	lineLoc, ok := bugmodel.ParseLineLoc(m[2])
	if !ok {
		return ThreadPos{}, false
	}
	if m[3] == "None" {
		return ThreadPos{Tid: tid, LineLoc: lineLoc}, true
	}
	lineNo, err := strconv.Atoi(m[5])
	if err != nil {
		return ThreadPos{}, false
	}
	fl := bugmodel.FileLine{Filename: m[4], Line: lineNo}
	return ThreadPos{Tid: tid, LineLoc: lineLoc, FileLine: &fl}, true
}

// ParseLog reads every trace line from r, skipping anything that doesn't
// parse.
func ParseLog(r io.Reader) ([]ThreadPos, error) {
	var out []ThreadPos
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if tp, ok := ParseLogLine(sc.Text()); ok {
			out = append(out, tp)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("trace: reading log: %w", err)
	}
	return out, nil
}

// Blacklist maps a source filename to the set of line numbers no injection
// may target within it.
type Blacklist map[string]map[int]bool

func (b Blacklist) Contains(fl bugmodel.FileLine) bool {
	lines, ok := b[fl.Filename]
	if !ok {
		return false
	}
	return lines[fl.Line]
}

// ParseBlacklist reads "<filename>: [<line>, <line>, ...]" entries, one per
// line, merging repeated filenames.
func ParseBlacklist(r io.Reader) (Blacklist, error) {
	out := make(Blacklist)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		idx := strings.Index(line, ":")
		if idx == -1 {
			continue
		}
		filename := strings.TrimSpace(line[:idx])
		nums, err := parseIntList(line[idx+1:])
		if err != nil {
			return nil, fmt.Errorf("trace: parsing blacklist entry for %q: %w", filename, err)
		}
		set, ok := out[filename]
		if !ok {
			set = make(map[int]bool, len(nums))
			out[filename] = set
		}
		for _, n := range nums {
			set[n] = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("trace: reading blacklist: %w", err)
	}
	return out, nil
}

// parseIntList parses a "[1, 2, 3]" literal, the only shape the blacklist
// format ever emits for its line-number lists.
func parseIntList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
