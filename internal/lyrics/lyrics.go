package lyrics

import (
	"errors"
	"fmt"
	"sort"
)

// Word is a timed word within a line. Times are seconds.
type Word struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Line is a timed lyric line, active over [Start, End).
type Line struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Text        string  `json:"text"`
	Translation string  `json:"translation,omitempty"`
	Words       []Word  `json:"words,omitempty"`
}

// ActiveLine returns the index of the line containing t, or -1. lines must be
// sorted and non-overlapping.
func ActiveLine(t float64, lines []Line) int {
	i := sort.Search(len(lines), func(i int) bool { return lines[i].End > t })
	if i < len(lines) && lines[i].Start <= t {
		return i
	}
	return -1
}

// ActiveWord returns the index of the word in line containing t, or -1 when
// the line has no word timing or t falls in a gap.
func ActiveWord(t float64, line Line) int {
	words := line.Words
	i := sort.Search(len(words), func(i int) bool { return words[i].End > t })
	if i < len(words) && words[i].Start <= t {
		return i
	}
	return -1
}

// Validate checks ordering and nesting: each line has start < end, lines do
// not overlap, and words sit inside their line, sorted and non-overlapping.
func Validate(lines []Line) error {
	var errs []error
	for i, line := range lines {
		if !(line.Start < line.End) {
			errs = append(errs, fmt.Errorf("line %d: start %.3f not before end %.3f", i, line.Start, line.End))
		}
		if i > 0 && line.Start < lines[i-1].End {
			errs = append(errs, fmt.Errorf("line %d: overlaps previous line", i))
		}
		for j, word := range line.Words {
			if !(word.Start < word.End) {
				errs = append(errs, fmt.Errorf("line %d word %d: start not before end", i, j))
			}
			if word.Start < line.Start || word.End > line.End {
				errs = append(errs, fmt.Errorf("line %d word %d: outside line interval", i, j))
			}
			if j > 0 && word.Start < line.Words[j-1].End {
				errs = append(errs, fmt.Errorf("line %d word %d: overlaps previous word", i, j))
			}
		}
	}
	return errors.Join(errs...)
}

// Duration returns the end of the last line.
func Duration(lines []Line) float64 {
	if len(lines) == 0 {
		return 0
	}
	return lines[len(lines)-1].End
}
