package lyrics

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultTailLength is the length given to the final line when no track
// duration is known.
const DefaultTailLength = 5.0

var (
	lineStampPattern = regexp.MustCompile(`^\[(\d+):(\d{1,2})(?:[.:](\d{1,3}))?\]`)
	tagPattern       = regexp.MustCompile(`^\[([a-zA-Z]+):(.*)\]$`)
	wordStampPattern = regexp.MustCompile(`<(\d+):(\d{1,2})(?:[.:](\d{1,3}))?>`)
)

// Meta holds the ID tags of an LRC file.
type Meta struct {
	Title    string
	Artist   string
	Album    string
	OffsetMS int
}

type stampedText struct {
	start float64
	text  string
}

// ParseLRC reads LRC lyrics, including multi-stamp lines and enhanced
// <mm:ss.xx> word stamps. Each line ends where the next begins; the last line
// ends at duration, or DefaultTailLength after its start when duration does not
// extend past it. Timestamp-only lines end the previous line without adding
// one of their own. A positive [offset:] moves lyrics earlier.
func ParseLRC(r io.Reader, duration float64) ([]Line, Meta, error) {
	var meta Meta
	var entries []stampedText
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if raw == "" {
			continue
		}
		var stamps []float64
		rest := raw
		for {
			m := lineStampPattern.FindStringSubmatch(rest)
			if m == nil {
				break
			}
			stamps = append(stamps, parseStamp(m[1], m[2], m[3]))
			rest = rest[len(m[0]):]
		}
		if len(stamps) == 0 {
			if m := tagPattern.FindStringSubmatch(raw); m != nil {
				if err := applyTag(&meta, m[1], m[2]); err != nil {
					return nil, meta, fmt.Errorf("line %d: %w", lineNo, err)
				}
			}
			continue
		}
		text := norm.NFC.String(strings.TrimSpace(rest))
		for _, start := range stamps {
			entries = append(entries, stampedText{start: start, text: text})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, meta, fmt.Errorf("read lrc: %w", err)
	}

	shift := float64(meta.OffsetMS) / 1000
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].start < entries[j].start })

	lines := make([]Line, 0, len(entries))
	for i, entry := range entries {
		if entry.text == "" {
			continue
		}
		start := math.Max(0, entry.start-shift)
		var end float64
		if i+1 < len(entries) {
			end = math.Max(0, entries[i+1].start-shift)
		} else if duration > start {
			end = duration
		} else {
			end = start + DefaultTailLength
		}
		if end <= start {
			continue
		}
		line := Line{Start: start, End: end}
		line.Text, line.Words = parseWords(entry.text, shift, start, end)
		lines = append(lines, line)
	}
	return lines, meta, nil
}

func applyTag(meta *Meta, key, value string) error {
	value = strings.TrimSpace(value)
	switch strings.ToLower(key) {
	case "ti":
		meta.Title = value
	case "ar":
		meta.Artist = value
	case "al":
		meta.Album = value
	case "offset":
		ms, err := strconv.Atoi(strings.TrimPrefix(value, "+"))
		if err != nil {
			return fmt.Errorf("invalid offset %q", value)
		}
		meta.OffsetMS = ms
	}
	return nil
}

// parseWords strips enhanced word stamps from text and returns the plain text
// plus timed words. Words are clamped into [lineStart, lineEnd).
func parseWords(text string, shift, lineStart, lineEnd float64) (string, []Word) {
	locs := wordStampPattern.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return text, nil
	}
	type pending struct {
		start float64
		text  string
	}
	var parts []pending
	for i, loc := range locs {
		m := func(n int) string {
			if loc[2*n] < 0 {
				return ""
			}
			return text[loc[2*n]:loc[2*n+1]]
		}
		start := parseStamp(m(1), m(2), m(3)) - shift
		segEnd := len(text)
		if i+1 < len(locs) {
			segEnd = locs[i+1][0]
		}
		parts = append(parts, pending{start: start, text: strings.TrimSpace(text[loc[1]:segEnd])})
	}

	plain := make([]string, 0, len(parts))
	var words []Word
	for i, p := range parts {
		if p.text == "" {
			continue
		}
		plain = append(plain, p.text)
		start := math.Max(lineStart, p.start)
		end := lineEnd
		if i+1 < len(parts) {
			end = math.Min(lineEnd, parts[i+1].start)
		}
		if n := len(words); n > 0 && start < words[n-1].End {
			start = words[n-1].End
		}
		if end <= start {
			continue
		}
		words = append(words, Word{Text: p.text, Start: start, End: end})
	}
	prefix := strings.TrimSpace(text[:locs[0][0]])
	if prefix != "" {
		plain = append([]string{prefix}, plain...)
	}
	return strings.Join(plain, " "), words
}

func parseStamp(minutes, seconds, fraction string) float64 {
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)
	value := float64(m*60 + s)
	if fraction != "" {
		f, _ := strconv.Atoi(fraction)
		value += float64(f) / math.Pow(10, float64(len(fraction)))
	}
	return value
}
