package tagindex

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const (
	fieldSep = "\x1e"
	itemSep  = "\x1f"
	numField = 4
)

var payloadEscaper = strings.NewReplacer(
	fieldSep, " ",
	itemSep, " ",
	`\`, `\\`,
	"\r", `\r`,
	"\n", `\n`,
)

// escapePayload makes text safe to store as the last field of a line.
// Separator characters are replaced by a space, so escaping is lossy for
// them only.
func escapePayload(text string) string {
	return payloadEscaper.Replace(text)
}

func unescapePayload(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte(c)
			continue
		}
		i++
	}
	return b.String()
}

// line is one decoded record of the log.
type line struct {
	tags      []string
	embedding []float32
	magnitude float32
	payload   string // escaped form, as stored
}

func (l line) hasTags(want []string) bool {
	for _, t := range want {
		if !slices.Contains(l.tags, t) {
			return false
		}
	}
	return true
}

func encodeLine(tags []string, emb []float32, magnitude float32, text string) string {
	var b strings.Builder
	b.WriteString(strings.Join(tags, itemSep))
	b.WriteString(fieldSep)
	for i, f := range emb {
		if i > 0 {
			b.WriteString(itemSep)
		}
		b.WriteString(formatFloat(f))
	}
	b.WriteString(fieldSep)
	b.WriteString(formatFloat(magnitude))
	b.WriteString(fieldSep)
	b.WriteString(escapePayload(text))
	b.WriteByte('\n')
	return b.String()
}

var errMalformed = errors.New("malformed line")

func decodeLine(s string) (line, error) {
	fields := strings.Split(s, fieldSep)
	if len(fields) != numField {
		return line{}, fmt.Errorf("%w: %d fields", errMalformed, len(fields))
	}

	var l line
	if fields[0] != "" {
		l.tags = strings.Split(fields[0], itemSep)
	}

	if fields[1] == "" {
		return line{}, fmt.Errorf("%w: empty embedding", errMalformed)
	}
	parts := strings.Split(fields[1], itemSep)
	l.embedding = make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 32)
		if err != nil {
			return line{}, fmt.Errorf("%w: embedding value %d: %w", errMalformed, i, err)
		}
		l.embedding[i] = float32(f)
	}

	mag, err := strconv.ParseFloat(fields[2], 32)
	if err != nil {
		return line{}, fmt.Errorf("%w: magnitude: %w", errMalformed, err)
	}
	l.magnitude = float32(mag)
	l.payload = fields[3]

	return l, nil
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}
