package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// TimeLayout is the timestamp format the client logger writes.
const TimeLayout = time.DateTime

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file is not an error.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count, next := 0, 0
	for scanner.Scan() {
		ring[next] = scanner.Text()
		next = (next + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := range count {
			lines[i] = ring[(next+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Level is the severity parsed from a log line.
type Level int

const (
	LevelUnknown Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBU"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERRO"
	default:
		return "????"
	}
}

// Entry is one parsed line of the client log.
type Entry struct {
	Time    time.Time
	Level   Level
	Message string // message and key=value fields as written
	Raw     string
}

// Parse splits a line of the form "2006-01-02 15:04:05 INFO message k=v".
// Lines that do not match keep only Raw and Message.
func Parse(line string) Entry {
	e := Entry{Raw: line, Message: line}
	fields := strings.SplitN(line, " ", 4)
	if len(fields) < 3 {
		return e
	}
	ts, err := time.ParseInLocation(TimeLayout, fields[0]+" "+fields[1], time.Local)
	if err != nil {
		return e
	}
	e.Time = ts
	e.Level = parseLevel(fields[2])
	if len(fields) == 4 {
		e.Message = fields[3]
	} else {
		e.Message = ""
	}
	return e
}

func parseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBU", "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERRO", "ERROR", "FATA", "FATAL":
		return LevelError
	default:
		return LevelUnknown
	}
}

// Filter keeps entries at or above min. Unparsed lines are kept so stack
// traces and continuation lines stay visible.
func Filter(lines []string, min Level) []Entry {
	out := make([]Entry, 0, len(lines))
	for _, line := range lines {
		e := Parse(line)
		if e.Level != LevelUnknown && e.Level < min {
			continue
		}
		out = append(out, e)
	}
	return out
}
