package markdown

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/oukeidos/mdtrans/internal/tokens"
)

// DefaultMaxTokens is the soft per-segment ceiling.
const DefaultMaxTokens = 4000

// Metadata keys set by the segmenter.
const (
	MetaLevel        = "level"
	MetaLang         = "lang"
	MetaSplit        = "split"
	MetaUnterminated = "unterminated"
)

var (
	headingPattern   = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	delimiterPattern = regexp.MustCompile(`^---\s*$`)
	fenceOpenPattern = regexp.MustCompile("^```.*$")
	fenceBarePattern = regexp.MustCompile("^```\\s*$")
	listPattern      = regexp.MustCompile(`^\s*[*+-]\s+.*$`)
	tablePattern     = regexp.MustCompile(`^\s*\|.*\|\s*$`)
)

type scanState int

const (
	stateNormal scanState = iota
	stateInFrontMatter
	stateInCodeBlock
	scanStateCount
)

func (s scanState) String() string {
	switch s {
	case stateNormal:
		return "Normal"
	case stateInFrontMatter:
		return "InFrontMatter"
	case stateInCodeBlock:
		return "InCodeBlock"
	}
	return "scanState(" + strconv.Itoa(int(s)) + ")"
}

// lineToken is the state-independent classification of one input line.
type lineToken int

const (
	tokLeadingDelimiter lineToken = iota // "---" on the first line
	tokDelimiter                         // "---" anywhere else
	tokFenceBare                         // "```"
	tokFenceInfo                         // "```lang"
	tokHeading
	tokText
	lineTokenCount
)

type action int

const (
	actAppend           action = iota // add to the current atomic block
	actOpenFrontMatter                // start the front matter block
	actCloseFrontMatter               // append and flush front matter
	actOpenFence                      // flush pending, start a code block
	actCloseFence                     // append and flush the code block
	actHeading                        // flush pending, emit a heading
	actText                           // classify and accumulate prose
)

type transition struct {
	act  action
	next scanState
}

// transitions is the complete state machine. Every (state, token) pair has
// an entry.
var transitions = [scanStateCount][lineTokenCount]transition{
	stateNormal: {
		tokLeadingDelimiter: {actOpenFrontMatter, stateInFrontMatter},
		tokDelimiter:        {actText, stateNormal},
		tokFenceBare:        {actOpenFence, stateInCodeBlock},
		tokFenceInfo:        {actOpenFence, stateInCodeBlock},
		tokHeading:          {actHeading, stateNormal},
		tokText:             {actText, stateNormal},
	},
	stateInFrontMatter: {
		tokLeadingDelimiter: {actCloseFrontMatter, stateNormal},
		tokDelimiter:        {actCloseFrontMatter, stateNormal},
		tokFenceBare:        {actAppend, stateInFrontMatter},
		tokFenceInfo:        {actAppend, stateInFrontMatter},
		tokHeading:          {actAppend, stateInFrontMatter},
		tokText:             {actAppend, stateInFrontMatter},
	},
	stateInCodeBlock: {
		tokLeadingDelimiter: {actAppend, stateInCodeBlock},
		tokDelimiter:        {actAppend, stateInCodeBlock},
		tokFenceBare:        {actCloseFence, stateNormal},
		tokFenceInfo:        {actAppend, stateInCodeBlock},
		tokHeading:          {actAppend, stateInCodeBlock},
		tokText:             {actAppend, stateInCodeBlock},
	},
}

func tokenize(index int, trimmed string) lineToken {
	switch {
	case delimiterPattern.MatchString(trimmed):
		if index == 0 {
			return tokLeadingDelimiter
		}
		return tokDelimiter
	case fenceBarePattern.MatchString(trimmed):
		return tokFenceBare
	case fenceOpenPattern.MatchString(trimmed):
		return tokFenceInfo
	case headingPattern.MatchString(trimmed):
		return tokHeading
	}
	return tokText
}

// classify returns the prose type of a line outside any atomic block.
func classify(trimmed string) SegmentType {
	switch {
	case headingPattern.MatchString(trimmed):
		return Heading
	case listPattern.MatchString(trimmed):
		return List
	case tablePattern.MatchString(trimmed):
		return Table
	}
	return Paragraph
}

// Segmenter splits Markdown into ordered segments.
type Segmenter struct {
	estimator *tokens.Estimator
	maxTokens int
}

// NewSegmenter returns a segmenter with the given ceiling. A nil estimator
// uses tokens.Default; a non-positive ceiling uses DefaultMaxTokens.
func NewSegmenter(est *tokens.Estimator, maxTokens int) *Segmenter {
	if est == nil {
		est = tokens.Default()
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Segmenter{estimator: est, maxTokens: maxTokens}
}

// MaxTokens returns the per-segment ceiling.
func (s *Segmenter) MaxTokens() int { return s.maxTokens }

// Estimator returns the estimator used for ceiling checks.
func (s *Segmenter) Estimator() *tokens.Estimator { return s.estimator }

// scan holds the mutable state of one Segment call.
type scan struct {
	seg      *Segmenter
	out      []Segment
	buf      strings.Builder
	typ      SegmentType
	hasType  bool
	metadata map[string]string
	order    int
}

func (sc *scan) start(t SegmentType) {
	sc.typ = t
	sc.hasType = true
	sc.metadata = nil
}

func (sc *scan) setMeta(key, value string) {
	if sc.metadata == nil {
		sc.metadata = make(map[string]string)
	}
	sc.metadata[key] = value
}

func (sc *scan) appendLine(line string) {
	sc.buf.WriteString(line)
	sc.buf.WriteByte('\n')
}

func (sc *scan) flush() {
	if sc.buf.Len() == 0 {
		sc.hasType = false
		sc.metadata = nil
		return
	}
	t := Paragraph
	if sc.hasType {
		t = sc.typ
	}
	sc.out = append(sc.out, Segment{
		Content:  sc.buf.String(),
		Type:     t,
		Order:    sc.order,
		Metadata: sc.metadata,
	})
	sc.order++
	sc.buf.Reset()
	sc.hasType = false
	sc.metadata = nil
}

func (sc *scan) text(line, trimmed string) {
	lineType := classify(trimmed)
	switch {
	case !sc.hasType || sc.buf.Len() == 0:
		sc.flush()
		sc.start(lineType)
	case lineType != sc.typ:
		sc.flush()
		sc.start(lineType)
	case sc.seg.estimator.Estimate(sc.buf.String()) > sc.seg.maxTokens:
		sc.setMeta(MetaSplit, "ceiling")
		sc.flush()
		sc.start(lineType)
	}
	sc.appendLine(line)
}

// Segment partitions markdown into segments whose contents, concatenated
// in order, reproduce the input with every line newline-terminated.
// Segmentation never fails; unrecognized lines become Paragraphs.
func (s *Segmenter) Segment(markdown string) []Segment {
	if markdown == "" {
		return nil
	}
	lines := strings.Split(markdown, "\n")
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	sc := &scan{seg: s}
	state := stateNormal
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		tr := transitions[state][tokenize(i, trimmed)]

		switch tr.act {
		case actAppend:
			sc.appendLine(line)
		case actOpenFrontMatter:
			sc.flush()
			sc.start(FrontMatter)
			sc.appendLine(line)
		case actCloseFrontMatter:
			sc.appendLine(line)
			sc.flush()
		case actOpenFence:
			sc.flush()
			sc.start(CodeBlock)
			if lang := strings.TrimSpace(strings.TrimPrefix(trimmed, "```")); lang != "" {
				sc.setMeta(MetaLang, lang)
			}
			sc.appendLine(line)
		case actCloseFence:
			sc.appendLine(line)
			sc.flush()
		case actHeading:
			sc.flush()
			sc.start(Heading)
			m := headingPattern.FindStringSubmatch(trimmed)
			sc.setMeta(MetaLevel, strconv.Itoa(len(m[1])))
			sc.appendLine(line)
			sc.flush()
		case actText:
			sc.text(line, trimmed)
		}
		state = tr.next
	}

	if state != stateNormal && sc.buf.Len() > 0 {
		sc.setMeta(MetaUnterminated, "true")
	}
	sc.flush()
	return sc.out
}
