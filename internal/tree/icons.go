package tree

import "github.com/roeyazroel/linear-ide/internal/issues"

// IconKind is the shape shown next to an issue.
type IconKind int

const (
	IconOpen IconKind = iota
	IconSuccess
	IconInProgress
	IconOutline
	IconHeavyOutline
	IconSlash
)

// Tint is an optional icon color.
type Tint int

const (
	TintNone Tint = iota
	TintGreen
	TintBlue
	TintGray
)

// Icon is the status affordance of an issue.
type Icon struct {
	Kind IconKind
	Tint Tint
}

var glyphs = map[IconKind]string{
	IconOpen:         "•",
	IconSuccess:      "✔",
	IconInProgress:   "◐",
	IconOutline:      "○",
	IconHeavyOutline: "◎",
	IconSlash:        "⊘",
}

// Glyph returns the character drawn for the icon.
func (i Icon) Glyph() string {
	return glyphs[i.Kind]
}

// StatusIcon maps a workflow state category to its icon. A nil state or an
// unknown category gets the generic open icon.
func StatusIcon(state *issues.StateRef) Icon {
	if state == nil {
		return Icon{Kind: IconOpen}
	}
	switch state.Type {
	case issues.StateCompleted:
		return Icon{Kind: IconSuccess, Tint: TintGreen}
	case issues.StateStarted:
		return Icon{Kind: IconInProgress, Tint: TintBlue}
	case issues.StateUnstarted:
		return Icon{Kind: IconOutline}
	case issues.StateBacklog:
		return Icon{Kind: IconHeavyOutline}
	case issues.StateCanceled:
		return Icon{Kind: IconSlash, Tint: TintGray}
	default:
		return Icon{Kind: IconOpen}
	}
}
