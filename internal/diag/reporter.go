package diag

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/muesli/termenv"
	"github.com/thatsOven/opal-lang/internal/lex"
)

const (
	SOURCE_WINDOW_LINES = 5
)

var (
	ANSI_RESET_SEQUENCE = []byte(termenv.CSI + termenv.ResetSeq + "m")

	ERROR_COLOR   = GetFullColorSequence(termenv.ANSIRed, false)
	WARNING_COLOR = GetFullColorSequence(termenv.ANSIBrightYellow, false)
	NOTE_COLOR    = GetFullColorSequence(termenv.ANSIBrightBlue, false)
)

type Severity uint8

const (
	ERROR Severity = iota
	WARNING
	NOTE
)

func (s Severity) String() string {
	switch s {
	case ERROR:
		return "error"
	case WARNING:
		return "warning"
	case NOTE:
		return "note"
	}
	return "?"
}

func (s Severity) color() []byte {
	switch s {
	case ERROR:
		return ERROR_COLOR
	case WARNING:
		return WARNING_COLOR
	default:
		return NOTE_COLOR
	}
}

func GetFullColorSequence(color termenv.Color, bg bool) []byte {
	var b = []byte(termenv.CSI)
	b = append(b, []byte(color.Sequence(bg))...)
	b = append(b, 'm')
	return b
}

type Diagnostic struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Location string `json:"location,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	Text     string `json:"text,omitempty"`
}

type ReporterConfig struct {
	Out       io.Writer //defaults to io.Discard
	Colorize  bool
	Notes     bool
	NameStack *NameStack //used to prefix diagnostics with the current location
}

// A Reporter renders diagnostics and keeps a sticky failure flag that is set by errors only.
type Reporter struct {
	out        io.Writer
	colorize   bool
	notes      bool
	names      *NameStack
	lineOffset int

	hadError    bool
	diagnostics []Diagnostic
}

func NewReporter(config ReporterConfig) *Reporter {
	out := config.Out
	if out == nil {
		out = io.Discard
	}
	names := config.NameStack
	if names == nil {
		names = &NameStack{}
	}

	return &Reporter{
		out:      out,
		colorize: config.Colorize,
		notes:    config.Notes,
		names:    names,
	}
}

// Reset clears the failure flag and the collected diagnostics.
func (r *Reporter) Reset() {
	r.hadError = false
	r.diagnostics = nil
	r.lineOffset = 0
}

// SetLineOffset sets the number of lines that were inserted before the user's source,
// they are subtracted from the displayed line numbers.
func (r *Reporter) SetLineOffset(offset int) {
	r.lineOffset = offset
}

func (r *Reporter) SetNotes(enabled bool) {
	r.notes = enabled
}

func (r *Reporter) HadError() bool {
	return r.hadError
}

// MarkFailed sets the failure flag without reporting anything.
func (r *Reporter) MarkFailed() {
	r.hadError = true
}

func (r *Reporter) Diagnostics() []Diagnostic {
	return r.diagnostics
}

func (r *Reporter) Error(msg string, tok lex.Token) {
	r.hadError = true
	r.report(ERROR, msg, tok)
}

func (r *Reporter) Warning(msg string, tok lex.Token) {
	r.report(WARNING, msg, tok)
}

func (r *Reporter) Note(msg string, tok lex.Token) {
	if r.notes {
		r.report(NOTE, msg, tok)
	}
}

// LineError reports an error that is not attached to a token, line is 1-based.
func (r *Reporter) LineError(msg string, line int) {
	r.hadError = true
	r.reportLine(ERROR, msg, line)
}

func (r *Reporter) LineWarning(msg string, line int) {
	r.reportLine(WARNING, msg, line)
}

func (r *Reporter) reportLine(severity Severity, msg string, line int) {
	r.diagnostics = append(r.diagnostics, Diagnostic{
		Severity: severity.String(),
		Message:  msg,
		Line:     line,
	})

	buf := bytes.NewBuffer(nil)
	r.writeSeverity(buf, severity)
	fmt.Fprintf(buf, " (line %d): %s\n", line, msg)
	r.out.Write(buf.Bytes())
}

func (r *Reporter) report(severity Severity, msg string, tok lex.Token) {
	location := r.names.CurrentLocation()
	line := tok.Line - r.lineOffset

	diagnostic := Diagnostic{
		Severity: severity.String(),
		Message:  msg,
		Location: location,
		Text:     tok.Text,
	}

	buf := bytes.NewBuffer(nil)
	r.writeSeverity(buf, severity)

	if tok.Source == nil {
		r.diagnostics = append(r.diagnostics, diagnostic)
		fmt.Fprintf(buf, " %s: %s\n", location, msg)
		r.out.Write(buf.Bytes())
		return
	}

	diagnostic.Line = line
	diagnostic.Column = tok.Column
	r.diagnostics = append(r.diagnostics, diagnostic)

	if location == "" {
		fmt.Fprintf(buf, " (line %d, pos %d): %s\n", line, tok.Column, msg)
	} else {
		fmt.Fprintf(buf, " (%s, line %d, pos %d): %s\n", location, line, tok.Column, msg)
	}

	r.writeSourceWindow(buf, severity, tok)
	r.out.Write(buf.Bytes())
}

func (r *Reporter) writeSeverity(w *bytes.Buffer, severity Severity) {
	if r.colorize {
		w.Write(severity.color())
		w.WriteString(severity.String())
		w.Write(ANSI_RESET_SEQUENCE)
	} else {
		w.WriteString(severity.String())
	}
}

// writeSourceWindow writes the lines surrounding the token and a caret underline sized to the token.
func (r *Reporter) writeSourceWindow(w *bytes.Buffer, severity Severity, tok lex.Token) {
	maxLine := tok.MaxLine
	if maxLine <= 0 || maxLine > len(tok.Source.Lines) {
		maxLine = len(tok.Source.Lines)
	}
	firstLine := 1 + r.lineOffset

	start := max(firstLine, tok.Line-SOURCE_WINDOW_LINES/2)
	end := min(maxLine, start+SOURCE_WINDOW_LINES-1)
	start = max(firstLine, min(start, end-SOURCE_WINDOW_LINES+1))

	width := len(strconv.Itoa(end - r.lineOffset))

	for n := start; n <= end; n++ {
		label := strconv.Itoa(n - r.lineOffset)
		w.WriteString(strings.Repeat(" ", width-len(label)))
		w.WriteString(label)
		w.WriteString(" | ")
		w.WriteString(strings.TrimRight(tok.Source.Line(n), " \t\r"))
		w.WriteByte('\n')

		if n != tok.Line {
			continue
		}

		w.WriteString(strings.Repeat(" ", width))
		w.WriteString(" |")
		w.WriteString(strings.Repeat(" ", tok.Column+1))
		if r.colorize {
			w.Write(severity.color())
		}
		w.WriteString(strings.Repeat("^", max(1, len([]rune(tok.Text)))))
		if r.colorize {
			w.Write(ANSI_RESET_SEQUENCE)
		}
		w.WriteByte('\n')
	}
}
