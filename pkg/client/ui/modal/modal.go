package modal

import tea "github.com/charmbracelet/bubbletea"

// ModalType identifies a modal for key-binding scoping
type ModalType int

const (
	ModalNone ModalType = iota
	ModalHelp
	ModalConnecting
	ModalPasswordAuth
)

func (t ModalType) String() string {
	switch t {
	case ModalNone:
		return "None"
	case ModalHelp:
		return "Help"
	case ModalConnecting:
		return "Connecting"
	case ModalPasswordAuth:
		return "PasswordAuth"
	default:
		return "Unknown"
	}
}

// Modal is an overlay drawn on top of the main view.
// HandleKey returns whether the key was consumed and the modal that should
// stay on top (nil closes it).
type Modal interface {
	Type() ModalType
	HandleKey(msg tea.KeyMsg) (handled bool, next Modal, cmd tea.Cmd)
	Render(width, height int) string
	IsBlockingInput() bool
}

// Animated modals also receive non-key messages (spinner ticks)
type Animated interface {
	Init() tea.Cmd
	Update(msg tea.Msg) tea.Cmd
}

// ModalStack holds open modals; the last pushed is on top
type ModalStack struct {
	modals []Modal
}

// Push opens m on top of the stack
func (s *ModalStack) Push(m Modal) {
	if m == nil {
		return
	}
	s.modals = append(s.modals, m)
}

// Pop closes the top modal and returns it
func (s *ModalStack) Pop() Modal {
	if len(s.modals) == 0 {
		return nil
	}
	top := s.modals[len(s.modals)-1]
	s.modals = s.modals[:len(s.modals)-1]
	return top
}

// Top returns the top modal or nil
func (s *ModalStack) Top() Modal {
	if len(s.modals) == 0 {
		return nil
	}
	return s.modals[len(s.modals)-1]
}

// TopType returns the type of the top modal, ModalNone when empty
func (s *ModalStack) TopType() ModalType {
	if top := s.Top(); top != nil {
		return top.Type()
	}
	return ModalNone
}

// IsEmpty reports whether no modal is open
func (s *ModalStack) IsEmpty() bool {
	return len(s.modals) == 0
}

// Size returns the number of open modals
func (s *ModalStack) Size() int {
	return len(s.modals)
}

// At returns the modal at depth i, 0 being the bottom
func (s *ModalStack) At(i int) Modal {
	if i < 0 || i >= len(s.modals) {
		return nil
	}
	return s.modals[i]
}

// Contains reports whether a modal of type t is open anywhere in the stack
func (s *ModalStack) Contains(t ModalType) bool {
	for _, m := range s.modals {
		if m.Type() == t {
			return true
		}
	}
	return false
}

// RemoveType closes every modal of type t
func (s *ModalStack) RemoveType(t ModalType) {
	kept := s.modals[:0]
	for _, m := range s.modals {
		if m.Type() != t {
			kept = append(kept, m)
		}
	}
	for i := len(kept); i < len(s.modals); i++ {
		s.modals[i] = nil
	}
	s.modals = kept
}

// HandleKey routes a key to the top modal and applies its replacement.
// It returns false when no modal is open.
func (s *ModalStack) HandleKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	top := s.Top()
	if top == nil {
		return false, nil
	}
	handled, next, cmd := top.HandleKey(msg)
	if !handled {
		return top.IsBlockingInput(), cmd
	}
	s.modals[len(s.modals)-1] = next
	if next == nil {
		s.modals = s.modals[:len(s.modals)-1]
	}
	return true, cmd
}
