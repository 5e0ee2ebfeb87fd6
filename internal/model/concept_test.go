package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseConcept_Qualified(t *testing.T) {
	c := ParseConcept("us-gaap:Revenues")
	assert.Equal(t, Concept{Namespace: "us-gaap", Name: "Revenues"}, c)
}

func TestParseConcept_BareNameDefaultsToGAAP(t *testing.T) {
	c := ParseConcept("GrossProfit")
	assert.Equal(t, GAAP("GrossProfit"), c)
}

func TestParseConcept_OtherNamespace(t *testing.T) {
	c := ParseConcept("dei:EntityCentralIndexKey")
	assert.Equal(t, "dei", c.Namespace)
	assert.Equal(t, "EntityCentralIndexKey", c.Name)
}

func TestConcept_String(t *testing.T) {
	assert.Equal(t, "us-gaap:Assets", GAAP("Assets").String())
	assert.Equal(t, "Assets", Concept{Name: "Assets"}.String())
}

func TestConcept_IsZero(t *testing.T) {
	assert.True(t, Concept{}.IsZero())
	assert.False(t, GAAP("Revenues").IsZero())
}

func TestConceptSet_Sorted(t *testing.T) {
	s := NewConceptSet(
		GAAP("Revenues"),
		GAAP("Assets"),
		Concept{Namespace: "dei", Name: "EntityName"},
		GAAP("Liabilities"),
	)

	got := s.Sorted()
	assert.Equal(t, []Concept{
		{Namespace: "dei", Name: "EntityName"},
		GAAP("Assets"),
		GAAP("Liabilities"),
		GAAP("Revenues"),
	}, got)
}

func TestConceptSet_HasAndAdd(t *testing.T) {
	s := NewConceptSet(GAAP("Assets"))
	assert.True(t, s.Has(GAAP("Assets")))
	assert.False(t, s.Has(GAAP("Revenues")))

	s.Add(GAAP("Revenues"))
	assert.True(t, s.Has(GAAP("Revenues")))
}
