package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(v string) *string { return &v }

func TestParseSlot(t *testing.T) {
	slot, ok := ParseSlot("Avaliador_2")
	require.True(t, ok)
	assert.Equal(t, SlotReviewer2, slot)
	assert.Equal(t, "Resposta_avaliador_2", slot.AnswerColumn())
	assert.Equal(t, "Problemas_avaliador_2", slot.ProblemsColumn())

	_, ok = ParseSlot("Avaliador_3")
	assert.False(t, ok)
	_, ok = ParseSlot("avaliador_1")
	assert.False(t, ok)
}

func TestParseAnswer(t *testing.T) {
	answer, ok := ParseAnswer("  Não ")
	require.True(t, ok)
	assert.Equal(t, AnswerNo, answer)

	for _, raw := range []string{"sim", "Nao", "", "Yes"} {
		_, ok := ParseAnswer(raw)
		assert.False(t, ok, raw)
	}
}

func TestPendingFor(t *testing.T) {
	record := FeedbackRecord{
		ID:              7,
		Reviewer1Email:  strPtr(" A@X.com"),
		Reviewer2Email:  strPtr("b@x.com"),
		Reviewer2Answer: strPtr("Sim"),
	}
	assert.True(t, record.PendingFor("a@x.com", SlotReviewer1))
	assert.False(t, record.PendingFor("a@x.com", SlotReviewer2))
	assert.False(t, record.PendingFor("b@x.com", SlotReviewer2))
	assert.False(t, record.PendingFor("", SlotReviewer1))
}

func TestPendingItemJSONUsesSlotIdentifier(t *testing.T) {
	payload, err := json.Marshal(PendingItem{Record: FeedbackRecord{ID: 3}, Slot: SlotReviewer1})
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"slot":"Avaliador_1"`)

	var decoded PendingItem
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, SlotReviewer1, decoded.Slot)
}

func TestHasTag(t *testing.T) {
	stored := "Falta de exemplos, Foco em traços pessoais, não comportamentos, Sem objetivo claro"
	assert.True(t, HasTag(&stored, "Falta de exemplos"))
	assert.True(t, HasTag(&stored, "Foco em traços pessoais, não comportamentos"))
	assert.True(t, HasTag(&stored, "Sem objetivo claro"))
	assert.False(t, HasTag(&stored, "Falta de direcionamento"))
	assert.False(t, HasTag(nil, "Falta de exemplos"))
}
