// Package stage defines the enumerated chat interaction states and the
// named transitions between them. The stage a chat saw last decides how
// an ambiguous input (a like/dislike press, free text) is interpreted.
package stage

import (
	"fmt"

	"github.com/okunev/tamada/pkg/tamada/internalerr"
)

// Stage is one interaction state. The zero value is invalid.
type Stage int

const (
	Unknown Stage = iota
	Start
	MainMenu
	GenerateMenu
	GenerateRandom
	GenerateTagPrompt
	GenerateTag
	SelectMenu
	SelectRandom
	SelectTagPrompt
	SelectTag
)

var names = map[Stage]string{
	Start:             "start",
	MainMenu:          "main menu",
	GenerateMenu:      "generate menu",
	GenerateRandom:    "generate random",
	GenerateTagPrompt: "generate tag choose",
	GenerateTag:       "generate tag",
	SelectMenu:        "select menu",
	SelectRandom:      "select random",
	SelectTagPrompt:   "select tag choose",
	SelectTag:         "select tag",
}

var byName map[string]Stage

func init() {
	byName = make(map[string]Stage, len(names))
	for s, n := range names {
		byName[n] = s
	}
}

// All returns every stage in declaration order. Used to seed the stage
// vocabulary at first boot.
func All() []Stage {
	return []Stage{
		Start, MainMenu,
		GenerateMenu, GenerateRandom, GenerateTagPrompt, GenerateTag,
		SelectMenu, SelectRandom, SelectTagPrompt, SelectTag,
	}
}

// Name returns the persisted stage name.
func (s Stage) Name() string {
	if n, ok := names[s]; ok {
		return n
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

func (s Stage) String() string { return s.Name() }

// FromName resolves a persisted stage name.
func FromName(name string) (Stage, error) {
	if s, ok := byName[name]; ok {
		return s, nil
	}
	return Unknown, fmt.Errorf("stage %q: %w", name, internalerr.ErrNotFound)
}

// IsSelect reports whether the stage belongs to the stored-toast flow.
func (s Stage) IsSelect() bool {
	switch s {
	case SelectMenu, SelectRandom, SelectTagPrompt, SelectTag:
		return true
	}
	return false
}

// IsGenerate reports whether the stage belongs to the generation flow.
func (s Stage) IsGenerate() bool {
	switch s {
	case GenerateMenu, GenerateRandom, GenerateTagPrompt, GenerateTag:
		return true
	}
	return false
}

// IsTagScoped reports whether the last served toast was tag-filtered,
// which adds the "change tags" affordance to the reply.
func (s Stage) IsTagScoped() bool {
	return s == GenerateTag || s == SelectTag
}

// TagPrompt is the named transition to the tag-entry state for the flow
// the chat is currently in. It replaces the original's positional
// stage-id arithmetic: both "toast by tags" from a category menu and
// "change tags" after a tag-scoped toast land on the same prompt.
func (s Stage) TagPrompt() (Stage, bool) {
	switch s {
	case GenerateMenu, GenerateRandom, GenerateTagPrompt, GenerateTag:
		return GenerateTagPrompt, true
	case SelectMenu, SelectRandom, SelectTagPrompt, SelectTag:
		return SelectTagPrompt, true
	}
	return Unknown, false
}

// AfterTagEntry is the named transition from a tag prompt to the
// corresponding serving stage once the user has sent their tags.
func (s Stage) AfterTagEntry() (Stage, bool) {
	switch s {
	case GenerateTagPrompt:
		return GenerateTag, true
	case SelectTagPrompt:
		return SelectTag, true
	}
	return Unknown, false
}

// NextServe decides which serving stage a "show me another" press leads
// to from this stage: random stays random, tag-scoped stays tag-scoped,
// and a bare category menu defaults to the random variant.
func (s Stage) NextServe() (Stage, bool) {
	switch s {
	case SelectMenu, SelectRandom:
		return SelectRandom, true
	case GenerateMenu, GenerateRandom:
		return GenerateRandom, true
	case SelectTag:
		return SelectTag, true
	case GenerateTag, GenerateTagPrompt, SelectTagPrompt:
		return GenerateTag, true
	}
	return Unknown, false
}
