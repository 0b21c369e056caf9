package parser

import (
	"encoding/xml"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Segment is one timed caption cue.
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

var (
	tagRe    = regexp.MustCompile(`<[^>]*>`)
	spaceRe  = regexp.MustCompile(`\s+`)
	blankRe  = regexp.MustCompile(`\n[ \t]*\n`)
	timingRe = regexp.MustCompile(`^\s*((?:\d+:)?\d{1,2}:\d{2}[.,]\d{1,3})\s*-->\s*((?:\d+:)?\d{1,2}:\d{2}[.,]\d{1,3})`)
)

// ParseFile reads a caption file and parses it according to its extension.
func ParseFile(filePath string) ([]Segment, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read caption file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".srt":
		return ParseSRT(string(data)), nil
	case ".vtt":
		return ParseVTT(string(data)), nil
	case ".xml", ".srv1", ".srv3":
		return ParseTimedText(data)
	default:
		return nil, fmt.Errorf("unsupported caption format: %s", ext)
	}
}

type timedText struct {
	Lines []timedTextLine `xml:"text"`
	Body  struct {
		Paras []timedTextPara `xml:"p"`
	} `xml:"body"`
}

// format 1: <text start="1.2" dur="3.4">
type timedTextLine struct {
	Start float64 `xml:"start,attr"`
	Dur   float64 `xml:"dur,attr"`
	Text  string  `xml:",chardata"`
}

// format 3: <p t="1200" d="3400"><s>..</s></p>
type timedTextPara struct {
	T     int64  `xml:"t,attr"`
	D     int64  `xml:"d,attr"`
	Inner string `xml:",innerxml"`
}

// ParseTimedText parses the YouTube timedtext XML caption formats.
func ParseTimedText(data []byte) ([]Segment, error) {
	var tt timedText
	if err := xml.Unmarshal(data, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	var segments []Segment
	for _, line := range tt.Lines {
		text := CleanText(line.Text)
		if text == "" {
			continue
		}
		start := secondsToDuration(line.Start)
		segments = append(segments, Segment{
			Start: start,
			End:   start + secondsToDuration(line.Dur),
			Text:  text,
		})
	}
	for _, p := range tt.Body.Paras {
		text := CleanText(p.Inner)
		if text == "" {
			continue
		}
		start := time.Duration(p.T) * time.Millisecond
		segments = append(segments, Segment{
			Start: start,
			End:   start + time.Duration(p.D)*time.Millisecond,
			Text:  text,
		})
	}
	return segments, nil
}

// ParseVTT parses WebVTT captions. Lines repeated by rolling
// auto-generated cues are emitted once.
func ParseVTT(data string) []Segment {
	return parseCues(data, true)
}

// ParseSRT parses SubRip captions, such as whisper.cpp's -osrt output.
func ParseSRT(data string) []Segment {
	return parseCues(data, false)
}

func parseCues(data string, dedupeLines bool) []Segment {
	data = strings.ReplaceAll(data, "\r\n", "\n")
	data = strings.ReplaceAll(data, "\r", "\n")

	var segments []Segment
	prevLine := ""
	for _, block := range blankRe.Split(data, -1) {
		lines := strings.Split(strings.Trim(block, "\n"), "\n")

		timing := -1
		for i, line := range lines {
			if timingRe.MatchString(line) {
				timing = i
				break
			}
		}
		// headers, NOTE and STYLE blocks carry no timing line
		if timing < 0 {
			continue
		}

		m := timingRe.FindStringSubmatch(lines[timing])
		start, err := parseTimestamp(m[1])
		if err != nil {
			continue
		}
		end, err := parseTimestamp(m[2])
		if err != nil {
			continue
		}

		var kept []string
		for _, line := range lines[timing+1:] {
			line = CleanText(line)
			if line == "" {
				continue
			}
			if dedupeLines && line == prevLine {
				continue
			}
			kept = append(kept, line)
			prevLine = line
		}
		if len(kept) == 0 {
			continue
		}

		segments = append(segments, Segment{Start: start, End: end, Text: strings.Join(kept, " ")})
	}
	return segments
}

// CleanText unescapes entities, strips markup and collapses whitespace.
// YouTube escapes caption text twice, so entities are decoded on both
// sides of the tag strip.
func CleanText(s string) string {
	s = html.UnescapeString(s)
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Join concatenates non-empty segment texts with single spaces.
func Join(segments []Segment) string {
	var sb strings.Builder
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(text)
	}
	return sb.String()
}

// parseTimestamp accepts hh:mm:ss.mmm, mm:ss.mmm and the SRT comma form.
func parseTimestamp(ts string) (time.Duration, error) {
	ts = strings.Replace(ts, ",", ".", 1)
	parts := strings.Split(ts, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}

	var hours, minutes int
	var err error
	if len(parts) == 3 {
		if hours, err = strconv.Atoi(parts[0]); err != nil {
			return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
		}
		parts = parts[1:]
	}
	if minutes, err = strconv.Atoi(parts[0]); err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}
	seconds, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		secondsToDuration(seconds), nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second)).Round(time.Millisecond)
}
