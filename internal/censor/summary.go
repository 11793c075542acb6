package censor

import (
	"bufio"
	"strconv"
	"strings"
)

// Summary is the parsed Mute Summary report.
type Summary struct {
	Found      bool
	Total      int
	TotalValid bool
	Categories map[string]int
	OutputPath string
}

// Count returns the total muted words, falling back to the category sum when
// the total line is missing or malformed.
func (s Summary) Count() int {
	if s.TotalValid {
		return s.Total
	}
	sum := 0
	for _, n := range s.Categories {
		sum += n
	}
	return sum
}

// ParseSummary scans tool stdout. Lines that do not parse are ignored. The
// category block ends at the first blank or unparseable line after it starts,
// so later "key: N" lines from the tool are not counted.
func ParseSummary(stdout string) Summary {
	summary := Summary{Categories: map[string]int{}}
	var inBlock, blockDone bool
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			if inBlock {
				blockDone = true
			}
			continue
		}
		key, value, hasColon := strings.Cut(line, ":")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if hasColon && strings.EqualFold(key, "output") {
			if value != "" {
				summary.OutputPath = value
			}
			continue
		}
		if strings.Contains(strings.ToLower(line), "mute summary") {
			summary.Found = true
			continue
		}
		if !summary.Found {
			continue
		}

		if hasColon && strings.EqualFold(key, "total words muted") {
			if n, err := strconv.Atoi(value); err == nil && n >= 0 {
				summary.Total = n
				summary.TotalValid = true
			}
			inBlock = true
			continue
		}
		if blockDone {
			continue
		}
		word := strings.ToLower(strings.TrimLeft(key, "-*• \t"))
		n, err := strconv.Atoi(value)
		if !hasColon || word == "" || err != nil || n < 0 {
			if inBlock {
				blockDone = true
			}
			continue
		}
		inBlock = true
		summary.Categories[word] += n
	}
	return summary
}
