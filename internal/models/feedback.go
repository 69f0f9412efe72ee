package models

import (
	"fmt"
	"strings"
	"time"
)

// Slot identifies one of the two reviewer positions on a feedback record.
type Slot int

const (
	SlotReviewer1 Slot = 1
	SlotReviewer2 Slot = 2
)

// Slots lists the reviewer positions in emission order.
var Slots = []Slot{SlotReviewer1, SlotReviewer2}

// ParseSlot accepts the wire identifiers "Avaliador_1" and "Avaliador_2".
func ParseSlot(raw string) (Slot, bool) {
	switch strings.TrimSpace(raw) {
	case "Avaliador_1":
		return SlotReviewer1, true
	case "Avaliador_2":
		return SlotReviewer2, true
	default:
		return 0, false
	}
}

// Valid reports whether s is one of the known slots.
func (s Slot) Valid() bool {
	return s == SlotReviewer1 || s == SlotReviewer2
}

// String returns the wire identifier, which is also the slot's email column.
func (s Slot) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Slot(%d)", int(s))
	}
	return fmt.Sprintf("Avaliador_%d", int(s))
}

// EmailColumn is the column holding the reviewer email for the slot.
func (s Slot) EmailColumn() string { return s.String() }

// AnswerColumn is the column holding the reviewer answer for the slot.
func (s Slot) AnswerColumn() string { return fmt.Sprintf("Resposta_avaliador_%d", int(s)) }

// ProblemsColumn is the column holding the comma-joined problem tags for the slot.
func (s Slot) ProblemsColumn() string { return fmt.Sprintf("Problemas_avaliador_%d", int(s)) }

// MarshalText encodes the slot as its wire identifier.
func (s Slot) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid slot %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a wire identifier.
func (s *Slot) UnmarshalText(text []byte) error {
	parsed, ok := ParseSlot(string(text))
	if !ok {
		return fmt.Errorf("invalid slot %q", string(text))
	}
	*s = parsed
	return nil
}

// Answer is the reviewer's verdict on a feedback text.
type Answer string

const (
	AnswerYes Answer = "Sim"
	AnswerNo  Answer = "Não"
)

// ParseAnswer trims raw and accepts exactly one of the two answer literals.
func ParseAnswer(raw string) (Answer, bool) {
	switch Answer(strings.TrimSpace(raw)) {
	case AnswerYes:
		return AnswerYes, true
	case AnswerNo:
		return AnswerNo, true
	default:
		return "", false
	}
}

// TagSeparator joins problem tags in the problems columns.
const TagSeparator = ", "

// TagUpdate carries the three states of a problem tag submission: absent leaves the
// column untouched, present with no values clears it, present with values sets it.
type TagUpdate struct {
	Present bool
	Values  []string
}

// KeepTags leaves the problems column unchanged.
func KeepTags() TagUpdate { return TagUpdate{} }

// ClearTags sets the problems column to NULL.
func ClearTags() TagUpdate { return TagUpdate{Present: true} }

// SetTags replaces the problems column with the given tags.
func SetTags(values ...string) TagUpdate { return TagUpdate{Present: true, Values: values} }

// FeedbackRecord is one row of the feedback_avaliacao table.
type FeedbackRecord struct {
	ID                int64     `db:"id" json:"id"`
	FeedbackText      string    `db:"Feedback" json:"feedback"`
	Reviewer1Email    *string   `db:"Avaliador_1" json:"reviewer_1_email"`
	Reviewer2Email    *string   `db:"Avaliador_2" json:"reviewer_2_email"`
	Reviewer1Answer   *string   `db:"Resposta_avaliador_1" json:"reviewer_1_answer"`
	Reviewer1Problems *string   `db:"Problemas_avaliador_1" json:"reviewer_1_problems"`
	Reviewer2Answer   *string   `db:"Resposta_avaliador_2" json:"reviewer_2_answer"`
	Reviewer2Problems *string   `db:"Problemas_avaliador_2" json:"reviewer_2_problems"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// SlotEmail returns the normalized email stored in the slot, or "" when unset.
func (r FeedbackRecord) SlotEmail(s Slot) string {
	switch s {
	case SlotReviewer1:
		return NormalizeEmail(deref(r.Reviewer1Email))
	case SlotReviewer2:
		return NormalizeEmail(deref(r.Reviewer2Email))
	}
	return ""
}

// SlotAnswer returns the slot answer, nil while unanswered.
func (r FeedbackRecord) SlotAnswer(s Slot) *string {
	switch s {
	case SlotReviewer1:
		return r.Reviewer1Answer
	case SlotReviewer2:
		return r.Reviewer2Answer
	}
	return nil
}

// SlotProblems returns the stored problem tags of the slot.
func (r FeedbackRecord) SlotProblems(s Slot) *string {
	switch s {
	case SlotReviewer1:
		return r.Reviewer1Problems
	case SlotReviewer2:
		return r.Reviewer2Problems
	}
	return nil
}

// PendingFor reports whether the slot is owed by the (already normalized) email.
func (r FeedbackRecord) PendingFor(email string, s Slot) bool {
	return email != "" && r.SlotEmail(s) == email && r.SlotAnswer(s) == nil
}

// PendingItem is one review obligation: a record and the slot the reviewer owes.
type PendingItem struct {
	Record FeedbackRecord `json:"record"`
	Slot   Slot           `json:"slot"`
}

// NormalizeEmail trims and lowercases an email for comparison.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// HasTag reports whether tag is one of the entries of a stored problems value.
// Tags may themselves contain commas, so the value is matched against the whole
// tag rather than split.
func HasTag(stored *string, tag string) bool {
	if stored == nil || tag == "" {
		return false
	}
	value := *stored
	return value == tag ||
		strings.HasPrefix(value, tag+TagSeparator) ||
		strings.HasSuffix(value, TagSeparator+tag) ||
		strings.Contains(value, TagSeparator+tag+TagSeparator)
}
