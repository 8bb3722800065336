package plugin

import "fmt"

// Phase 一轮压缩所处的阶段
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseEnumerating
	PhaseFiltering
	PhaseMinifying
	PhaseRewriting
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseEnumerating:
		return "ENUMERATING"
	case PhaseFiltering:
		return "FILTERING"
	case PhaseMinifying:
		return "MINIFYING"
	case PhaseRewriting:
		return "REWRITING"
	case PhaseDone:
		return "DONE"
	case PhaseFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// IsTerminal 本轮是否已结束
func (p Phase) IsTerminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

func isAllowedTransition(from, to Phase) bool {
	if to == PhaseFailed {
		return !from.IsTerminal() && from != PhaseIdle
	}
	switch from {
	case PhaseIdle, PhaseDone, PhaseFailed:
		return to == PhaseEnumerating
	case PhaseEnumerating:
		return to == PhaseFiltering
	case PhaseFiltering:
		return to == PhaseMinifying
	case PhaseMinifying:
		return to == PhaseRewriting
	case PhaseRewriting:
		return to == PhaseDone
	default:
		return false
	}
}

// transition 校验并切换阶段
func (p *Plugin) transition(to Phase) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !isAllowedTransition(p.phase, to) {
		return fmt.Errorf("invalid phase transition: %s -> %s", p.phase, to)
	}
	p.phase = to
	return nil
}

// Phase 返回当前阶段
func (p *Plugin) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}
