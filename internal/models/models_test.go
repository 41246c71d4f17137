package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotCloneIsDeep(t *testing.T) {
	s := NewSnapshot()
	s.Total["2024-01-01"] = 10
	s.Focused["2024-01-01"] = 5
	s.Languages["2024-01-01"] = map[string]int64{"go": 5}

	c := s.Clone()

	s.Total["2024-01-01"] = 99
	s.Languages["2024-01-01"]["go"] = 99
	s.Languages["2024-01-02"] = map[string]int64{"python": 1}

	assert.Equal(t, int64(10), c.Total["2024-01-01"])
	assert.Equal(t, int64(5), c.Language("2024-01-01", "go"))
	assert.NotContains(t, c.Languages, "2024-01-02")
}

func TestNilSnapshot(t *testing.T) {
	var s *Snapshot

	assert.Equal(t, int64(0), s.Language("2024-01-01", "go"))
	assert.Equal(t, NewSnapshot(), s.Clone())
}
