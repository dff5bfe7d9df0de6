package classroom

import (
	"strings"

	"github.com/lhtc/classpoint/internal/domain/reward"
	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/internal/domain/student"
)

// ParsedRecord is one row supplied by an importer.
type ParsedRecord struct {
	Order     *int
	Name      string
	DOB       string
	ClassName string
}

// Registry applies lifecycle operations to a State. Every operation takes
// the current state and returns the next one; on error the returned state
// is the input unchanged.
type Registry struct {
	stamp shared.Stamper
}

// NewRegistry creates a registry that draws ids from stamp.
func NewRegistry(stamp shared.Stamper) *Registry {
	return &Registry{stamp: stamp}
}

// ──────────────────────────────────────────────────────────────────────────────
// Students
// ──────────────────────────────────────────────────────────────────────────────

// AddStudent creates a student in classID. Without an explicit order the
// student goes after the highest order in the class.
func (r *Registry) AddStudent(s State, classID, name string, order *int) (State, student.Student, error) {
	if s.classIndex(classID) < 0 {
		return s, student.Student{}, shared.NotFound("classroom", "AddStudent", "class", classID)
	}
	if order == nil {
		next := s.maxOrder(classID) + 1
		order = &next
	}

	st, err := student.NewStudent(student.NewStudentParams{
		ID:      r.stamp.NewID(),
		ClassID: classID,
		Order:   order,
		Name:    name,
	})
	if err != nil {
		return s, student.Student{}, err
	}

	out := s.Clone()
	out.Students = append(out.Students, st)
	return out, st.Clone(), nil
}

// DeleteStudent removes a student.
func (r *Registry) DeleteStudent(s State, id string) (State, student.Student, error) {
	i := s.studentIndex(id)
	if i < 0 {
		return s, student.Student{}, shared.NotFound("classroom", "DeleteStudent", "student", id)
	}
	removed := s.Students[i].Clone()

	out := s.Clone()
	out.Students = append(out.Students[:i], out.Students[i+1:]...)
	return out, removed, nil
}

// ReplaceStudent stores an updated student record in place.
func (r *Registry) ReplaceStudent(s State, st student.Student) (State, error) {
	i := s.studentIndex(st.ID)
	if i < 0 {
		return s, shared.NotFound("classroom", "ReplaceStudent", "student", st.ID)
	}
	out := s.Clone()
	out.Students[i] = st.Clone()
	return out, nil
}

// UpdateStudentInfo changes the descriptive fields of a student. Points and
// histories are left to the ledger.
func (r *Registry) UpdateStudentInfo(s State, id, name string, order *int, avatar *string) (State, student.Student, error) {
	i := s.studentIndex(id)
	if i < 0 {
		return s, student.Student{}, shared.NotFound("classroom", "UpdateStudentInfo", "student", id)
	}
	out := s.Clone()
	st := &out.Students[i]
	if name != "" {
		clean, err := cleanName("UpdateStudentInfo", name)
		if err != nil {
			return s, student.Student{}, err
		}
		st.Name = clean
	}
	if order != nil {
		o := *order
		st.Order = &o
	}
	if avatar != nil {
		a := *avatar
		st.Avatar = &a
	}
	return out, st.Clone(), nil
}

// ClearClass removes every student of a class and returns how many were removed.
func (r *Registry) ClearClass(s State, classID string) (State, int, error) {
	if s.classIndex(classID) < 0 {
		return s, 0, shared.NotFound("classroom", "ClearClass", "class", classID)
	}
	out := s.Clone()
	kept := out.Students[:0]
	for _, st := range out.Students {
		if st.ClassID != classID {
			kept = append(kept, st)
		}
	}
	removed := len(out.Students) - len(kept)
	out.Students = kept
	return out, removed, nil
}

// ImportStudents turns parsed records into new students of classID. Records
// without a positive order get maxOrder+index+1; records without a name get
// PlaceholderName.
func (r *Registry) ImportStudents(s State, classID string, records []ParsedRecord) (State, []student.Student, error) {
	if s.classIndex(classID) < 0 {
		return s, nil, shared.NotFound("classroom", "ImportStudents", "class", classID)
	}

	base := s.maxOrder(classID)
	created := make([]student.Student, 0, len(records))
	for i, rec := range records {
		order := base + i + 1
		if rec.Order != nil && *rec.Order > 0 {
			order = *rec.Order
		}
		name := strings.TrimSpace(rec.Name)
		if name == "" {
			name = PlaceholderName
		}
		st, err := student.NewStudent(student.NewStudentParams{
			ID:         r.stamp.NewID(),
			ClassID:    classID,
			Order:      &order,
			Name:       name,
			DOB:        rec.DOB,
			ClassLabel: rec.ClassName,
		})
		if err != nil {
			return s, nil, shared.WrapError("classroom", "ImportStudents", shared.ErrInvalidInput, "invalid record", err)
		}
		created = append(created, st)
	}

	out := s.Clone()
	for _, st := range created {
		out.Students = append(out.Students, st.Clone())
	}
	return out, created, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Classes
// ──────────────────────────────────────────────────────────────────────────────

// AddClass creates a class and makes it active.
func (r *Registry) AddClass(s State, name string) (State, ClassGroup, error) {
	clean, err := cleanName("AddClass", name)
	if err != nil {
		return s, ClassGroup{}, err
	}
	c := ClassGroup{ID: r.stamp.NewID(), Name: clean}

	out := s.Clone()
	out.Classes = append(out.Classes, c)
	out.ActiveClassID = c.ID
	return out, c, nil
}

// RenameClass changes the display name of a class.
func (r *Registry) RenameClass(s State, id, name string) (State, ClassGroup, error) {
	i := s.classIndex(id)
	if i < 0 {
		return s, ClassGroup{}, shared.NotFound("classroom", "RenameClass", "class", id)
	}
	clean, err := cleanName("RenameClass", name)
	if err != nil {
		return s, ClassGroup{}, err
	}
	out := s.Clone()
	out.Classes[i].Name = clean
	return out, out.Classes[i], nil
}

// DeleteClass removes an empty class. A non-empty class yields
// *ClassNotEmptyError. If the active class is removed the first remaining
// class becomes active; removing the last class re-creates the default class.
func (r *Registry) DeleteClass(s State, id string) (State, ClassGroup, error) {
	i := s.classIndex(id)
	if i < 0 {
		return s, ClassGroup{}, shared.NotFound("classroom", "DeleteClass", "class", id)
	}
	if n := s.countIn(id); n > 0 {
		return s, ClassGroup{}, &ClassNotEmptyError{ClassID: id, Count: n}
	}
	removed := s.Classes[i]

	out := s.Clone()
	out.Classes = append(out.Classes[:i], out.Classes[i+1:]...)
	if len(out.Classes) == 0 {
		out.Classes = []ClassGroup{DefaultClass()}
		out.ActiveClassID = DefaultClassID
	} else if out.ActiveClassID == id {
		out.ActiveClassID = out.Classes[0].ID
	}
	return out, removed, nil
}

// SelectClass makes a class active.
func (r *Registry) SelectClass(s State, id string) (State, ClassGroup, error) {
	i := s.classIndex(id)
	if i < 0 {
		return s, ClassGroup{}, shared.NotFound("classroom", "SelectClass", "class", id)
	}
	out := s.Clone()
	out.ActiveClassID = id
	return out, out.Classes[i], nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Reward catalog
// ──────────────────────────────────────────────────────────────────────────────

// AddReward appends a reward with a fresh id. Empty fields take the catalog defaults.
func (r *Registry) AddReward(s State, rw reward.Reward) (State, reward.Reward, error) {
	rw.ID = r.stamp.NewID()
	if strings.TrimSpace(rw.Name) == "" {
		rw.Name = reward.DefaultName
	}
	cat, err := s.Rewards.Add(rw)
	if err != nil {
		return s, reward.Reward{}, err
	}
	out := s.Clone()
	out.Rewards = cat
	added, _ := cat.Find(rw.ID)
	return out, added, nil
}

// UpdateReward replaces a catalog entry.
func (r *Registry) UpdateReward(s State, rw reward.Reward) (State, error) {
	cat, err := s.Rewards.Update(rw)
	if err != nil {
		return s, err
	}
	out := s.Clone()
	out.Rewards = cat
	return out, nil
}

// DeleteReward removes a catalog entry. Past redemptions keep their values.
func (r *Registry) DeleteReward(s State, id string) (State, error) {
	cat, err := s.Rewards.Delete(id)
	if err != nil {
		return s, err
	}
	out := s.Clone()
	out.Rewards = cat
	return out, nil
}

// ReplaceRewards swaps the whole catalog after validating every entry.
func (r *Registry) ReplaceRewards(s State, rewards []reward.Reward) (State, error) {
	cat, err := reward.Replace(rewards)
	if err != nil {
		return s, err
	}
	out := s.Clone()
	out.Rewards = cat
	return out, nil
}

// ResetRewards restores the default catalog.
func (r *Registry) ResetRewards(s State) State {
	out := s.Clone()
	out.Rewards = reward.DefaultCatalog()
	return out
}
