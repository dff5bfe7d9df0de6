package classroom

import (
	"github.com/lhtc/classpoint/internal/domain/reward"
	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/internal/domain/student"
)

// State is the complete application state. Methods never mutate the
// receiver; they return a new State.
type State struct {
	Students      []student.Student
	Classes       []ClassGroup
	Rewards       reward.Catalog
	ActiveClassID string
}

// DefaultState returns the first-run state: one default class, no students
// and the default reward catalog.
func DefaultState() State {
	return State{
		Students:      []student.Student{},
		Classes:       []ClassGroup{DefaultClass()},
		Rewards:       reward.DefaultCatalog(),
		ActiveClassID: DefaultClassID,
	}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := State{
		Students:      make([]student.Student, len(s.Students)),
		Classes:       append([]ClassGroup(nil), s.Classes...),
		Rewards:       append(reward.Catalog(nil), s.Rewards...),
		ActiveClassID: s.ActiveClassID,
	}
	for i, st := range s.Students {
		out.Students[i] = st.Clone()
	}
	return out
}

// Normalize restores the collection invariants after loading a snapshot:
// the class list is never empty, students without a class or in a class
// that no longer exists join the default class and the active class always
// exists.
func (s State) Normalize() State {
	out := s.Clone()
	if out.Students == nil {
		out.Students = []student.Student{}
	}
	if out.Rewards == nil {
		out.Rewards = reward.DefaultCatalog()
	}
	if len(out.Classes) == 0 {
		out.Classes = []ClassGroup{DefaultClass()}
	}
	for i := range out.Students {
		if id := out.Students[i].ClassID; id == "" || out.classIndex(id) < 0 {
			out.Students[i].ClassID = DefaultClassID
		}
		if out.Students[i].PointHistory == nil {
			out.Students[i].PointHistory = []student.PointHistory{}
		}
		if out.Students[i].RewardsRedeemed == nil {
			out.Students[i].RewardsRedeemed = []student.RedeemedReward{}
		}
		if out.Students[i].TotalPoints < 0 {
			out.Students[i].TotalPoints = 0
		}
	}
	if out.classIndex(DefaultClassID) < 0 && out.countIn(DefaultClassID) > 0 {
		out.Classes = append(out.Classes, DefaultClass())
	}
	if out.classIndex(out.ActiveClassID) < 0 {
		out.ActiveClassID = out.Classes[0].ID
	}
	return out
}

// ActiveClass returns the currently selected class.
func (s State) ActiveClass() ClassGroup {
	if i := s.classIndex(s.ActiveClassID); i >= 0 {
		return s.Classes[i]
	}
	if len(s.Classes) > 0 {
		return s.Classes[0]
	}
	return DefaultClass()
}

// FindClass returns the class with the given id.
func (s State) FindClass(id string) (ClassGroup, error) {
	if i := s.classIndex(id); i >= 0 {
		return s.Classes[i], nil
	}
	return ClassGroup{}, shared.NotFound("classroom", "FindClass", "class", id)
}

// FindStudent returns the student with the given id.
func (s State) FindStudent(id string) (student.Student, error) {
	if i := s.studentIndex(id); i >= 0 {
		return s.Students[i].Clone(), nil
	}
	return student.Student{}, shared.NotFound("classroom", "FindStudent", "student", id)
}

// StudentsInClass returns copies of the students of a class in storage order.
func (s State) StudentsInClass(classID string) []student.Student {
	out := make([]student.Student, 0)
	for _, st := range s.Students {
		if st.ClassID == classID {
			out = append(out, st.Clone())
		}
	}
	return out
}

// CountInClass returns the number of students in a class.
func (s State) CountInClass(classID string) int {
	return s.countIn(classID)
}

func (s State) classIndex(id string) int {
	for i, c := range s.Classes {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s State) studentIndex(id string) int {
	for i, st := range s.Students {
		if st.ID == id {
			return i
		}
	}
	return -1
}

func (s State) countIn(classID string) int {
	n := 0
	for _, st := range s.Students {
		if st.ClassID == classID {
			n++
		}
	}
	return n
}

func (s State) maxOrder(classID string) int {
	m := 0
	for _, st := range s.Students {
		if st.ClassID == classID && st.Order != nil && *st.Order > m {
			m = *st.Order
		}
	}
	return m
}
