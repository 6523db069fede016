package inference

import (
	"strings"
	"unicode"
)

const emotionPrefix = "[EMOTION:"

// TagParser accumulates streamed response chunks and strips a leading
// "[EMOTION:<name>]" tag. The tag is recognised only at the very start of
// the response and at most once; chunk boundaries may fall anywhere,
// including inside the tag.
type TagParser struct {
	buf      strings.Builder
	emotion  string
	found    bool
	settled  bool // no further tag detection
	trimLead bool // drop whitespace that follows a stripped tag
}

// Feed appends one chunk.
func (p *TagParser) Feed(chunk string) {
	if chunk == "" {
		return
	}

	if p.settled {
		p.write(chunk)
		return
	}

	p.buf.WriteString(chunk)
	s := p.buf.String()

	if len(s) < len(emotionPrefix) {
		if !strings.HasPrefix(emotionPrefix, s) {
			p.settled = true
		}
		return
	}
	if !strings.HasPrefix(s, emotionPrefix) {
		p.settled = true
		return
	}

	end := strings.IndexByte(s, ']')
	if end == -1 {
		return
	}

	p.emotion = strings.ToLower(strings.TrimSpace(s[len(emotionPrefix):end]))
	p.found = true
	p.settled = true
	p.trimLead = true

	p.buf.Reset()
	p.write(s[end+1:])
}

func (p *TagParser) write(s string) {
	if p.trimLead {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		if s == "" {
			return
		}
		p.trimLead = false
	}
	p.buf.WriteString(s)
}

// Emotion returns the extracted tag, if any.
func (p *TagParser) Emotion() (string, bool) {
	return p.emotion, p.found
}

// Text returns the response text accumulated so far, without the tag.
func (p *TagParser) Text() string {
	return p.buf.String()
}

// ParseEmotion runs a whole response through a TagParser.
func ParseEmotion(chunks ...string) (text, emotion string, ok bool) {
	var p TagParser
	for _, c := range chunks {
		p.Feed(c)
	}
	emotion, ok = p.Emotion()
	return p.Text(), emotion, ok
}
