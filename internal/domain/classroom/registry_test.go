package classroom

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhtc/classpoint/internal/domain/reward"
	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/internal/domain/student"
)

func newRegistry() *Registry {
	return NewRegistry(&shared.FixedStamper{At: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), Prefix: "id-"})
}

func intPtr(v int) *int { return &v }

func TestDefaultState(t *testing.T) {
	s := DefaultState()
	require.Len(t, s.Classes, 1)
	assert.Equal(t, DefaultClassID, s.Classes[0].ID)
	assert.Equal(t, DefaultClassName, s.Classes[0].Name)
	assert.Equal(t, DefaultClassID, s.ActiveClassID)
	assert.Len(t, s.Rewards, 6)
	assert.Empty(t, s.Students)
}

func TestAddStudent_Ordering(t *testing.T) {
	r := newRegistry()
	s := DefaultState()

	s, a, err := r.AddStudent(s, DefaultClassID, "An", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, *a.Order)
	assert.Equal(t, student.LevelSeed, a.Level())
	assert.Equal(t, 0, a.TotalPoints)

	s, b, err := r.AddStudent(s, DefaultClassID, "Bình", intPtr(10))
	require.NoError(t, err)
	assert.Equal(t, 10, *b.Order)

	s, c, err := r.AddStudent(s, DefaultClassID, "Chi", nil)
	require.NoError(t, err)
	assert.Equal(t, 11, *c.Order)
	assert.Len(t, s.Students, 3)

	_, _, err = r.AddStudent(s, "missing", "Dũng", nil)
	assert.True(t, shared.IsNotFound(err))

	_, _, err = r.AddStudent(s, DefaultClassID, "  ", nil)
	assert.True(t, shared.IsValidation(err))
}

func TestAddStudent_OrderIsPerClass(t *testing.T) {
	r := newRegistry()
	s := DefaultState()
	s, _, _ = r.AddStudent(s, DefaultClassID, "An", intPtr(5))
	s, other, err := r.AddClass(s, "6A")
	require.NoError(t, err)

	_, st, err := r.AddStudent(s, other.ID, "Bình", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, *st.Order)
}

func TestDeleteStudent(t *testing.T) {
	r := newRegistry()
	s := DefaultState()
	s, a, _ := r.AddStudent(s, DefaultClassID, "An", nil)

	next, removed, err := r.DeleteStudent(s, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "An", removed.Name)
	assert.Empty(t, next.Students)
	assert.Len(t, s.Students, 1, "input state must stay untouched")

	_, _, err = r.DeleteStudent(next, a.ID)
	assert.True(t, shared.IsNotFound(err))
}

func TestAddClass_BecomesActive(t *testing.T) {
	r := newRegistry()
	s, c, err := r.AddClass(DefaultState(), " 7B ")
	require.NoError(t, err)
	assert.Equal(t, "7B", c.Name)
	assert.Equal(t, c.ID, s.ActiveClassID)
	assert.Len(t, s.Classes, 2)

	s, renamed, err := r.RenameClass(s, c.ID, "7C")
	require.NoError(t, err)
	assert.Equal(t, "7C", renamed.Name)
	assert.Equal(t, "7C", s.ActiveClass().Name)

	_, _, err = r.RenameClass(s, "nope", "x")
	assert.True(t, shared.IsNotFound(err))
}

func TestDeleteClass_NotEmpty(t *testing.T) {
	r := newRegistry()
	s := DefaultState()
	s, _, _ = r.AddStudent(s, DefaultClassID, "An", nil)
	s, _, _ = r.AddStudent(s, DefaultClassID, "Bình", nil)

	next, _, err := r.DeleteClass(s, DefaultClassID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrClassNotEmpty))

	var cne *ClassNotEmptyError
	require.True(t, errors.As(err, &cne))
	assert.Equal(t, 2, cne.Count)
	assert.Equal(t, s, next)
	assert.Len(t, next.Classes, 1)
	assert.Len(t, next.Students, 2)
}

func TestDeleteClass_ActiveMovesToFirstRemaining(t *testing.T) {
	r := newRegistry()
	s, a, _ := r.AddClass(DefaultState(), "A")
	s, b, _ := r.AddClass(s, "B")
	require.Equal(t, b.ID, s.ActiveClassID)

	s, _, err := r.DeleteClass(s, b.ID)
	require.NoError(t, err)
	assert.Equal(t, DefaultClassID, s.ActiveClassID)

	s, _, _ = r.SelectClass(s, a.ID)
	s, _, err = r.DeleteClass(s, DefaultClassID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, s.ActiveClassID, "deleting an inactive class keeps the selection")
}

func TestDeleteClass_NeverEmpty(t *testing.T) {
	r := newRegistry()
	s, a, _ := r.AddClass(DefaultState(), "A")

	s, _, err := r.DeleteClass(s, DefaultClassID)
	require.NoError(t, err)
	s, _, err = r.DeleteClass(s, a.ID)
	require.NoError(t, err)

	require.Len(t, s.Classes, 1)
	assert.Equal(t, DefaultClassID, s.Classes[0].ID)
	assert.Equal(t, DefaultClassID, s.ActiveClassID)

	s, _, err = r.DeleteClass(s, DefaultClassID)
	require.NoError(t, err)
	assert.Len(t, s.Classes, 1)
}

func TestClearClass(t *testing.T) {
	r := newRegistry()
	s, other, _ := r.AddClass(DefaultState(), "A")
	s, _, _ = r.AddStudent(s, DefaultClassID, "An", nil)
	s, _, _ = r.AddStudent(s, DefaultClassID, "Bình", nil)
	s, _, _ = r.AddStudent(s, other.ID, "Chi", nil)

	next, n, err := r.ClearClass(s, DefaultClassID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, next.Students, 1)
	assert.Equal(t, "Chi", next.Students[0].Name)
	assert.Len(t, s.Students, 3)

	_, _, err = r.DeleteClass(next, DefaultClassID)
	assert.NoError(t, err)
}

func TestImportStudents(t *testing.T) {
	r := newRegistry()
	s := DefaultState()
	s, _, _ = r.AddStudent(s, DefaultClassID, "An", intPtr(4))

	records := []ParsedRecord{
		{Name: "Bình", DOB: "01/02/2013", ClassName: "6A"},
		{Order: intPtr(20), Name: "Chi"},
		{Name: "   "},
		{Order: intPtr(0), Name: "Dũng"},
	}
	s, created, err := r.ImportStudents(s, DefaultClassID, records)
	require.NoError(t, err)
	require.Len(t, created, 4)

	assert.Equal(t, 5, *created[0].Order)
	assert.Equal(t, "01/02/2013", created[0].DOB)
	assert.Equal(t, "6A", created[0].ClassLabel)
	assert.Equal(t, 20, *created[1].Order)
	assert.Equal(t, PlaceholderName, created[2].Name)
	assert.Equal(t, 7, *created[2].Order)
	assert.Equal(t, 8, *created[3].Order)

	for _, st := range created {
		assert.Equal(t, DefaultClassID, st.ClassID)
		assert.Equal(t, 0, st.TotalPoints)
		assert.Empty(t, st.PointHistory)
	}
	assert.Len(t, s.Students, 5)

	_, _, err = r.ImportStudents(s, "missing", records)
	assert.True(t, shared.IsNotFound(err))
}

func TestRewardCatalogEdits(t *testing.T) {
	r := newRegistry()
	s := DefaultState()

	s, added, err := r.AddReward(s, reward.Reward{Cost: reward.DefaultCost})
	require.NoError(t, err)
	assert.Equal(t, reward.DefaultName, added.Name)
	assert.Equal(t, reward.DefaultIcon, added.Icon)
	assert.Len(t, s.Rewards, 7)

	added.Cost = 5
	s, err = r.UpdateReward(s, added)
	require.NoError(t, err)
	got, _ := s.Rewards.Find(added.ID)
	assert.Equal(t, 5, got.Cost)

	s, err = r.DeleteReward(s, added.ID)
	require.NoError(t, err)
	assert.Len(t, s.Rewards, 6)

	_, err = r.UpdateReward(s, reward.Reward{ID: "1", Name: "", Cost: 1})
	assert.True(t, shared.IsValidation(err))

	s, err = r.ReplaceRewards(s, []reward.Reward{{ID: "x", Name: "Only", Cost: 1}})
	require.NoError(t, err)
	assert.Len(t, s.Rewards, 1)

	s = r.ResetRewards(s)
	assert.Len(t, s.Rewards, 6)
}

func TestNormalize(t *testing.T) {
	s := State{
		Students: []student.Student{
			{ID: "legacy", Name: "Cũ", TotalPoints: 30},
			{ID: "neg", ClassID: "c1", Name: "Âm", TotalPoints: -4},
		},
		Classes:       []ClassGroup{{ID: "c1", Name: "C1"}},
		ActiveClassID: "gone",
	}

	n := s.Normalize()
	assert.Equal(t, DefaultClassID, n.Students[0].ClassID)
	assert.Equal(t, 0, n.Students[1].TotalPoints)
	assert.Len(t, n.Classes, 2, "default class re-added for legacy students")
	assert.Equal(t, "c1", n.ActiveClassID)
	assert.Len(t, n.Rewards, 6)
	assert.NotNil(t, n.Students[0].PointHistory)

	orphan := State{
		Students: []student.Student{{ID: "o", ClassID: "deleted", Name: "Mồ côi"}},
		Classes:  []ClassGroup{{ID: "c1", Name: "C1"}},
	}.Normalize()
	assert.Equal(t, DefaultClassID, orphan.Students[0].ClassID, "students of a missing class join the default class")
	assert.Len(t, orphan.Classes, 2)
	orphan, cleared, err := newRegistry().ClearClass(orphan, DefaultClassID)
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)
	assert.Empty(t, orphan.Students)

	empty := State{}.Normalize()
	assert.Len(t, empty.Classes, 1)
	assert.Equal(t, DefaultClassID, empty.ActiveClassID)
}
