package execsim

import (
	"fmt"

	"github.com/concuject/concuject/internal/bugmodel"
	"github.com/concuject/concuject/internal/piece"
)

// ExecWrap adapts a Bug's queued sites into an ExecuteFunc/MaxCodePtrFunc
// pair for InterleaveExec, materializing lazy pieces on first visit (in
// generate mode) and otherwise replaying what was already generated.
type ExecWrap struct {
	Bug      *bugmodel.Bug
	Ex       *piece.Executor
	Generate bool
	Checking bool
}

func NewExecWrap(bug *bugmodel.Bug, ex *piece.Executor) *ExecWrap {
	return &ExecWrap{Bug: bug, Ex: ex}
}

func (w *ExecWrap) SetGenerate(generate bool) { w.Generate = generate }
func (w *ExecWrap) SetChecking(checking bool) { w.Checking = checking }

// Execute is an ExecuteFunc: it materializes and/or runs the piece queued
// at fl[codePtr], skipping materialization (while still tracking the
// IfCond/BlockEnd skip-depth it would have produced) for pieces whose
// after_order barrier hasn't been reached yet.
func (w *ExecWrap) Execute(orderIndex int, fl bugmodel.FileLine, codePtr int) error {
	codes := w.Bug.GetCode(fl)
	lp := codes[codePtr]
	if lp.Code == nil {
		if !w.Generate {
			return fmt.Errorf("execsim: code at %s[%d] has not been generated", fl, codePtr)
		}
		if orderIndex < lp.AfterOrder {
			switch w.probeKind(lp) {
			case kindIfCond:
				w.Ex.State.IncSkip()
			case kindBlockEnd:
				w.Ex.State.DecSkip()
			}
			return nil
		}
		lp.Generate(w.Ex.State)
	}
	_, err := w.Ex.Run(lp.Code, w.Checking)
	return err
}

// MaxCodePtr is a MaxCodePtrFunc bound to this wrap's bug.
func (w *ExecWrap) MaxCodePtr(fl bugmodel.FileLine) int {
	return len(w.Bug.GetCode(fl))
}

type probeKind int

const (
	kindOther probeKind = iota
	kindIfCond
	kindBlockEnd
)

// probeKind materializes a throwaway copy against a fresh state purely to
// learn the reserved piece's concrete shape — IfCond and BlockEnd are
// structurally stateless, so the dummy materialization is safe.
func (w *ExecWrap) probeKind(lp *bugmodel.LazyPiece) probeKind {
	switch lp.Reserved.Materialize(piece.NewState()).(type) {
	case piece.IfCond:
		return kindIfCond
	case piece.BlockEnd:
		return kindBlockEnd
	default:
		return kindOther
	}
}
