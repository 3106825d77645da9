package editlog

import "envdesk/internal/model"

// Log is an ordered, append-only sequence of operations not yet committed.
// Insertion order is the causal order of user actions. Callers only ever
// receive copies of its contents.
type Log struct {
	ops []model.Operation
}

func (l *Log) Append(op model.Operation) {
	l.ops = append(l.ops, op.Clone())
}

func (l *Log) Len() int { return len(l.ops) }

// Ops returns a copy of the queued operations.
func (l *Log) Ops() []model.Operation {
	out := make([]model.Operation, len(l.ops))
	for i, op := range l.ops {
		out[i] = op.Clone()
	}
	return out
}

func (l *Log) Clear() { l.ops = nil }

// DropPrefix removes the first n operations, keeping anything appended after them.
func (l *Log) DropPrefix(n int) {
	if n <= 0 {
		return
	}
	if n >= len(l.ops) {
		l.ops = nil
		return
	}
	rest := make([]model.Operation, len(l.ops)-n)
	copy(rest, l.ops[n:])
	l.ops = rest
}

// ReplacePrefix swaps the first n operations for repl, keeping the tail.
func (l *Log) ReplacePrefix(n int, repl []model.Operation) {
	if n > len(l.ops) {
		n = len(l.ops)
	}
	if n < 0 {
		n = 0
	}
	next := make([]model.Operation, 0, len(repl)+len(l.ops)-n)
	for _, op := range repl {
		next = append(next, op.Clone())
	}
	next = append(next, l.ops[n:]...)
	l.ops = next
}
