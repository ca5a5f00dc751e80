package operation

import (
	"github.com/reglet-dev/reglet-addon-host/hostctx"
)

// UndoEntry is one committed operation as seen by the undo system.
type UndoEntry struct {
	Pre          hostctx.Snapshot
	Post         hostctx.Snapshot
	Label        string
	ActionID     string
	InvocationID string
}

// UndoSink receives undo entries from finished undoable operations.
type UndoSink interface {
	PushUndoEntry(entry UndoEntry)
}

// UndoSinkFunc adapts a function to UndoSink.
type UndoSinkFunc func(entry UndoEntry)

// PushUndoEntry implements UndoSink.
func (f UndoSinkFunc) PushUndoEntry(entry UndoEntry) { f(entry) }

// UndoStack is a bounded in-memory undo/redo history.
// It is owned by the host loop like the context it restores.
type UndoStack struct {
	undo  []UndoEntry
	redo  []UndoEntry
	limit int
}

// NewUndoStack creates a history keeping at most limit entries; limit <= 0
// means unbounded.
func NewUndoStack(limit int) *UndoStack {
	return &UndoStack{limit: limit}
}

// PushUndoEntry implements UndoSink. Pushing clears the redo history.
func (s *UndoStack) PushUndoEntry(entry UndoEntry) {
	s.undo = append(s.undo, entry)
	s.redo = nil
	if s.limit > 0 && len(s.undo) > s.limit {
		s.undo = s.undo[len(s.undo)-s.limit:]
	}
}

// Undo restores ctx to the state before the most recent entry.
func (s *UndoStack) Undo(ctx *hostctx.Context) (UndoEntry, bool) {
	if len(s.undo) == 0 {
		return UndoEntry{}, false
	}
	e := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	ctx.Restore(e.Pre)
	s.redo = append(s.redo, e)
	return e, true
}

// Redo re-applies the most recently undone entry.
func (s *UndoStack) Redo(ctx *hostctx.Context) (UndoEntry, bool) {
	if len(s.redo) == 0 {
		return UndoEntry{}, false
	}
	e := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	ctx.Restore(e.Post)
	s.undo = append(s.undo, e)
	return e, true
}

// Len returns the number of undoable entries.
func (s *UndoStack) Len() int { return len(s.undo) }

// Labels returns the undo history labels, oldest first.
func (s *UndoStack) Labels() []string {
	out := make([]string, len(s.undo))
	for i, e := range s.undo {
		out[i] = e.Label
	}
	return out
}
