package character_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cory-johannsen/combot/internal/game/character"
)

func TestData_SkillValue(t *testing.T) {
	d := &character.Data{Skills: []character.Skill{
		{Name: "Lightsaber Combat Style", Value: 82},
		{Name: "Evade", Value: 0.55},
	}}
	v, ok := d.SkillValue("lightsaber combat style")
	assert.True(t, ok)
	assert.Equal(t, 82, v)

	v, ok = d.SkillValue(" EVADE ")
	assert.True(t, ok)
	assert.Equal(t, 55, v)

	_, ok = d.SkillValue("Pilot")
	assert.False(t, ok)

	var nilData *character.Data
	_, ok = nilData.SkillValue("Evade")
	assert.False(t, ok)
}

func TestData_Intelligence(t *testing.T) {
	assert.Equal(t, 10, (*character.Data)(nil).Intelligence())
	assert.Equal(t, 10, (&character.Data{}).Intelligence())
	assert.Equal(t, 16, (&character.Data{Characteristics: map[string]int{"INT": 16}}).Intelligence())
	assert.Equal(t, 13, (&character.Data{Characteristics: map[string]int{"intelligence": 13}}).Intelligence())
}

func TestData_DisplayName(t *testing.T) {
	assert.Equal(t, "rey99", (*character.Data)(nil).DisplayName("rey99"))
	assert.Equal(t, "rey99", (&character.Data{Name: "  "}).DisplayName("rey99"))
	assert.Equal(t, "Rey", (&character.Data{Name: "Rey"}).DisplayName("rey99"))
}

func TestData_SkillSummary(t *testing.T) {
	d := &character.Data{Skills: []character.Skill{{Name: "Evade", Value: 0.6}, {Name: "Athletics", Value: 45}}}
	assert.Equal(t, "Evade: 60%\nAthletics: 45%", d.SkillSummary())
	assert.Equal(t, "(no character sheet)", (*character.Data)(nil).SkillSummary())
}
