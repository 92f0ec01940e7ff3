package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var srtTimestampRegex = regexp.MustCompile(
	`(\d{1,2}):(\d{2}):(\d{2})[,.](\d{1,3})\s*-->\s*(\d{1,2}):(\d{2}):(\d{2})[,.](\d{1,3})`,
)

func parseSRT(r io.Reader) (*Track, error) {
	entries, err := parseSRTEntries(r)
	if err != nil {
		return nil, err
	}
	return trackFromEntries(FormatSRT, entries), nil
}

func parseSRTEntries(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)

	var currentEntry *Entry
	var textLines []string
	lineNum := 0
	timed := false

	for scanner.Scan() {
		line := scanner.Text()
		lineNum++

		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		if strings.TrimSpace(line) == "" {
			if currentEntry != nil && len(textLines) > 0 {
				currentEntry.Text = strings.Join(textLines, "\n")
				entries = append(entries, *currentEntry)
				currentEntry = nil
				textLines = nil
				timed = false
			}
			continue
		}

		if currentEntry == nil {
			index, err := strconv.Atoi(strings.TrimSpace(line))
			if err == nil {
				currentEntry = &Entry{Index: index}
				continue
			}
		}

		if !timed {
			matches := srtTimestampRegex.FindStringSubmatch(line)
			if len(matches) == 9 {
				startTime, err := parseSRTTimestamp(
					matches[1], matches[2], matches[3], matches[4],
				)
				if err != nil {
					return nil, fmt.Errorf(
						"invalid start timestamp at line %d: %w",
						lineNum,
						err,
					)
				}
				endTime, err := parseSRTTimestamp(
					matches[5], matches[6], matches[7], matches[8],
				)
				if err != nil {
					return nil, fmt.Errorf(
						"invalid end timestamp at line %d: %w",
						lineNum,
						err,
					)
				}
				if currentEntry == nil {
					// cue without a numeric counter
					currentEntry = &Entry{Index: len(entries) + 1}
				}
				currentEntry.StartTime = startTime
				currentEntry.EndTime = endTime
				timed = true
				continue
			}
		}

		if currentEntry != nil && timed {
			textLines = append(textLines, line)
		}
	}

	if currentEntry != nil && len(textLines) > 0 {
		currentEntry.Text = strings.Join(textLines, "\n")
		entries = append(entries, *currentEntry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading SRT data: %w", err)
	}

	return entries, nil
}

func parseSRTTimestamp(
	hours, minutes, seconds, millis string,
) (time.Duration, error) {
	h, err := strconv.Atoi(hours)
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(minutes)
	if err != nil {
		return 0, err
	}
	s, err := strconv.Atoi(seconds)
	if err != nil {
		return 0, err
	}
	// "5" and "50" are fractions of a second, not milliseconds
	for len(millis) < 3 {
		millis += "0"
	}
	ms, err := strconv.Atoi(millis)
	if err != nil {
		return 0, err
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

// builds an ASS-shaped track from plain cues, converting inline HTML-ish
// markup to override tags
func trackFromEntries(format Format, entries []Entry) *Track {
	track := newTrack(format)
	track.Info.PlayResX = 384
	track.Info.PlayResY = 288
	track.Styles = []Style{DefaultStyle()}

	for i, e := range entries {
		track.Events = append(track.Events, Event{
			ReadOrder: i,
			Start:     e.StartTime,
			End:       e.EndTime,
			Style:     "Default",
			Text:      markupToASS(e.Text),
		})
	}

	return track
}

var markupTagRegex = regexp.MustCompile(`<\s*(/?)\s*([a-zA-Z]+)([^>]*)>`)
var markupAttrRegex = regexp.MustCompile(`([a-zA-Z]+)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s>]+))`)

// markupToASS turns <i>, <b>, <u>, <s> and <font color size face> into
// override tags and escapes literal braces. Unknown tags are dropped.
func markupToASS(text string) string {
	text = strings.ReplaceAll(text, "{", "\\{")
	text = strings.ReplaceAll(text, "}", "\\}")
	text = strings.ReplaceAll(text, "\r", "")

	var fontStack [][]string

	text = markupTagRegex.ReplaceAllStringFunc(text, func(tag string) string {
		m := markupTagRegex.FindStringSubmatch(tag)
		closing := m[1] == "/"
		name := strings.ToLower(m[2])

		switch name {
		case "i", "b", "u", "s":
			if closing {
				return "{\\" + name + "0}"
			}
			return "{\\" + name + "1}"
		case "font":
			if closing {
				if len(fontStack) == 0 {
					return ""
				}
				resets := fontStack[len(fontStack)-1]
				fontStack = fontStack[:len(fontStack)-1]
				if len(resets) == 0 {
					return ""
				}
				return "{" + strings.Join(resets, "") + "}"
			}
			var tags, resets []string
			for _, attr := range markupAttrRegex.FindAllStringSubmatch(m[3], -1) {
				value := attr[2] + attr[3] + attr[4]
				switch strings.ToLower(attr[1]) {
				case "color":
					if c, ok := parseHTMLColor(value); ok {
						tags = append(tags, fmt.Sprintf("\\c&H%02X%02X%02X&", c.B, c.G, c.R))
						resets = append(resets, "\\c")
					}
				case "size":
					if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
						tags = append(tags, "\\fs"+strconv.Itoa(n))
						resets = append(resets, "\\fs")
					}
				case "face":
					if value != "" {
						tags = append(tags, "\\fn"+value)
						resets = append(resets, "\\fn")
					}
				}
			}
			fontStack = append(fontStack, resets)
			if len(tags) == 0 {
				return ""
			}
			return "{" + strings.Join(tags, "") + "}"
		default:
			return ""
		}
	})

	return strings.ReplaceAll(text, "\n", "\\N")
}
