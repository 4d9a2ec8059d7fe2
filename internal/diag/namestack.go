package diag

import (
	"strings"
)

type FrameKind uint8

const (
	FILE_FRAME FrameKind = iota + 1
	CLASS_FRAME
	FUNCTION_FRAME
	COMPILED_FUNCTION_FRAME //function compiled to a native calling convention
	CONDITIONAL_FRAME
	PROPERTY_FRAME
	NAMESPACE_FRAME
	MACRO_FRAME
)

var frameKindNames = map[FrameKind]string{
	FILE_FRAME:              "file",
	CLASS_FRAME:             "class",
	FUNCTION_FRAME:          "fn",
	COMPILED_FUNCTION_FRAME: "cfn",
	CONDITIONAL_FRAME:       "conditional",
	PROPERTY_FRAME:          "property",
	NAMESPACE_FRAME:         "namespace",
	MACRO_FRAME:             "macro",
}

func (k FrameKind) String() string {
	return frameKindNames[k]
}

// ParseFrameKind parses the kind names used by the scope signals emitted by the preprocessor.
func ParseFrameKind(s string) (FrameKind, bool) {
	for kind, name := range frameKindNames {
		if name == s {
			return kind, true
		}
	}
	return 0, false
}

func (k FrameKind) IsFunction() bool {
	return k == FUNCTION_FRAME || k == COMPILED_FUNCTION_FRAME
}

type Frame struct {
	Kind       FrameKind
	Name       string
	ReturnType string //only set for FUNCTION_FRAME
}

// NameStack is the stack of lexical contexts of the statement being compiled.
type NameStack struct {
	frames []Frame
}

func (s *NameStack) Push(frame Frame) {
	s.frames = append(s.frames, frame)
}

// Pop removes the top frame, it returns false if the stack is empty.
func (s *NameStack) Pop() bool {
	if len(s.frames) == 0 {
		return false
	}
	s.frames = s.frames[:len(s.frames)-1]
	return true
}

func (s *NameStack) Depth() int {
	return len(s.frames)
}

// Truncate pops frames until the depth is at most depth.
func (s *NameStack) Truncate(depth int) {
	if depth < len(s.frames) {
		s.frames = s.frames[:max(0, depth)]
	}
}

func (s *NameStack) Reset() {
	s.frames = nil
}

func (s *NameStack) Top() (Frame, bool) {
	if len(s.frames) == 0 {
		return Frame{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// Lookfor returns the nearest enclosing frame whose kind is one of kinds.
func (s *NameStack) Lookfor(kinds ...FrameKind) (Frame, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		frame := s.frames[i]
		for _, kind := range kinds {
			if frame.Kind == kind {
				return frame, true
			}
		}
	}
	return Frame{}, false
}

// LookforBeforeFn reports whether a function frame, or the bottom of the stack, is reached
// before any frame whose kind is one of kinds. It returns false if such a frame encloses
// the current position without a function in between.
func (s *NameStack) LookforBeforeFn(kinds ...FrameKind) bool {
	for i := len(s.frames) - 1; i >= 0; i-- {
		frame := s.frames[i]
		if frame.Kind.IsFunction() {
			return true
		}
		for _, kind := range kinds {
			if frame.Kind == kind {
				return false
			}
		}
	}
	return true
}

// CurrentLocation renders the frames from the nearest file frame to the top of the stack,
// for example "in main.opal: Shape.area()". Conditional frames are skipped.
func (s *NameStack) CurrentLocation() string {
	if len(s.frames) == 0 {
		return ""
	}

	start := 0
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].Kind == FILE_FRAME {
			start = i
			break
		}
	}

	var parts []string
	fileName := ""

	for _, frame := range s.frames[start:] {
		switch frame.Kind {
		case FILE_FRAME:
			fileName = frame.Name
		case FUNCTION_FRAME, COMPILED_FUNCTION_FRAME:
			parts = append(parts, frame.Name+"()")
		case MACRO_FRAME:
			parts = append(parts, "($call "+frame.Name+")")
		case CONDITIONAL_FRAME:
		default:
			parts = append(parts, frame.Name)
		}
	}

	location := "in " + fileName
	if len(parts) > 0 {
		location += ": " + strings.Join(parts, ".")
	}
	return location
}
