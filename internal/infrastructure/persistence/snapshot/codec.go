// Package snapshot encodes the classroom state into the four independent
// key/value entries of the stored schema and adapts any KV backend into a
// classroom.Repository.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lhtc/classpoint/internal/domain/classroom"
	"github.com/lhtc/classpoint/internal/domain/reward"
	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/internal/domain/student"
)

// Stored keys. The active class id is stored as a raw string, the other
// values are JSON arrays.
const (
	KeyStudents    = "lhtc_students"
	KeyClasses     = "lhtc_classes"
	KeyRewards     = "lhtc_rewards"
	KeyActiveClass = "lhtc_current_class_id"
)

// Keys lists every stored key in a fixed order.
var Keys = []string{KeyStudents, KeyClasses, KeyRewards, KeyActiveClass}

// dateLayout matches JavaScript's Date.prototype.toISOString.
const dateLayout = "2006-01-02T15:04:05.000Z"

// ════════════════════════════════════════════════════════════════════════════
// WIRE TYPES
// ════════════════════════════════════════════════════════════════════════════

type studentDTO struct {
	ID              string        `json:"id"`
	ClassID         string        `json:"classId"`
	Order           *int          `json:"order,omitempty"`
	Name            string        `json:"name"`
	DOB             string        `json:"dob,omitempty"`
	ClassName       string        `json:"className,omitempty"`
	Avatar          *string       `json:"avatar"`
	TotalPoints     int           `json:"totalPoints"`
	Level           string        `json:"level"`
	PointHistory    []historyDTO  `json:"pointHistory"`
	RewardsRedeemed []redeemedDTO `json:"rewardsRedeemed"`
}

type historyDTO struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Change      int    `json:"change"`
	Reason      string `json:"reason"`
	PointsAfter int    `json:"pointsAfter"`
}

type redeemedDTO struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	RewardName  string `json:"rewardName"`
	PointsSpent int    `json:"pointsSpent"`
}

type classDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type rewardDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Cost        int    `json:"cost"`
	Description string `json:"description"`
}

// ════════════════════════════════════════════════════════════════════════════
// ENCODE
// ════════════════════════════════════════════════════════════════════════════

// Encode serializes the full state. The level field is written from the
// point total so stored data never disagrees with the classifier.
func Encode(s classroom.State) (map[string][]byte, error) {
	students := make([]studentDTO, 0, len(s.Students))
	for _, st := range s.Students {
		students = append(students, toStudentDTO(st))
	}

	classes := make([]classDTO, 0, len(s.Classes))
	for _, c := range s.Classes {
		classes = append(classes, classDTO{ID: c.ID, Name: c.Name})
	}

	rewards := make([]rewardDTO, 0, len(s.Rewards))
	for _, r := range s.Rewards {
		rewards = append(rewards, rewardDTO{ID: r.ID, Name: r.Name, Icon: r.Icon, Cost: r.Cost, Description: r.Description})
	}

	out := make(map[string][]byte, len(Keys))
	for key, v := range map[string]any{KeyStudents: students, KeyClasses: classes, KeyRewards: rewards} {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("snapshot: encode %s: %w", key, err)
		}
		out[key] = data
	}
	out[KeyActiveClass] = []byte(s.ActiveClassID)
	return out, nil
}

func toStudentDTO(st student.Student) studentDTO {
	d := studentDTO{
		ID:              st.ID,
		ClassID:         st.ClassID,
		Order:           st.Order,
		Name:            st.Name,
		DOB:             st.DOB,
		ClassName:       st.ClassLabel,
		Avatar:          st.Avatar,
		TotalPoints:     st.TotalPoints,
		Level:           st.Level().String(),
		PointHistory:    make([]historyDTO, 0, len(st.PointHistory)),
		RewardsRedeemed: make([]redeemedDTO, 0, len(st.RewardsRedeemed)),
	}
	for _, h := range st.PointHistory {
		d.PointHistory = append(d.PointHistory, historyDTO{
			ID:          h.ID,
			Date:        formatDate(h.Date),
			Change:      h.Change,
			Reason:      h.Reason,
			PointsAfter: h.PointsAfter,
		})
	}
	for _, r := range st.RewardsRedeemed {
		d.RewardsRedeemed = append(d.RewardsRedeemed, redeemedDTO{
			ID:          r.ID,
			Date:        formatDate(r.Date),
			RewardName:  r.RewardName,
			PointsSpent: r.PointsSpent,
		})
	}
	return d
}

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// ════════════════════════════════════════════════════════════════════════════
// DECODE
// ════════════════════════════════════════════════════════════════════════════

// Decode restores a state from stored entries. Missing keys fall back to
// the first-run defaults; the stored level is ignored and recomputed.
//
// Each key is decoded on its own. A key that cannot be decoded keeps its
// default and adds an error matching shared.ErrCorruptSnapshot; the state
// built from the readable keys is returned together with that error.
func Decode(entries map[string][]byte) (classroom.State, error) {
	state := classroom.DefaultState()
	var errs []error

	if raw, ok := entries[KeyStudents]; ok && len(raw) > 0 {
		if students, err := decodeStudents(raw); err != nil {
			errs = append(errs, corrupt(KeyStudents, err))
		} else {
			state.Students = students
		}
	}

	if raw, ok := entries[KeyClasses]; ok && len(raw) > 0 {
		var dtos []classDTO
		if err := json.Unmarshal(raw, &dtos); err != nil {
			errs = append(errs, corrupt(KeyClasses, err))
		} else {
			classes := make([]classroom.ClassGroup, 0, len(dtos))
			for _, d := range dtos {
				classes = append(classes, classroom.ClassGroup{ID: d.ID, Name: d.Name})
			}
			state.Classes = classes
		}
	}

	if raw, ok := entries[KeyRewards]; ok && len(raw) > 0 {
		var dtos []rewardDTO
		if err := json.Unmarshal(raw, &dtos); err != nil {
			errs = append(errs, corrupt(KeyRewards, err))
		} else {
			rewards := make(reward.Catalog, 0, len(dtos))
			for _, d := range dtos {
				rewards = append(rewards, reward.Reward{ID: d.ID, Name: d.Name, Icon: d.Icon, Cost: d.Cost, Description: d.Description})
			}
			state.Rewards = rewards
		}
	}

	if raw, ok := entries[KeyActiveClass]; ok && len(raw) > 0 {
		state.ActiveClassID = string(raw)
	}

	return state.Normalize(), errors.Join(errs...)
}

func decodeStudents(raw []byte) ([]student.Student, error) {
	var dtos []studentDTO
	if err := json.Unmarshal(raw, &dtos); err != nil {
		return nil, err
	}
	students := make([]student.Student, 0, len(dtos))
	for _, d := range dtos {
		st, err := fromStudentDTO(d)
		if err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, nil
}

func fromStudentDTO(d studentDTO) (student.Student, error) {
	st := student.Student{
		ID:              d.ID,
		ClassID:         d.ClassID,
		Order:           d.Order,
		Name:            d.Name,
		DOB:             d.DOB,
		ClassLabel:      d.ClassName,
		Avatar:          d.Avatar,
		TotalPoints:     d.TotalPoints,
		PointHistory:    make([]student.PointHistory, 0, len(d.PointHistory)),
		RewardsRedeemed: make([]student.RedeemedReward, 0, len(d.RewardsRedeemed)),
	}
	if st.ID == "" {
		return student.Student{}, fmt.Errorf("student without id")
	}
	for _, h := range d.PointHistory {
		date, err := parseDate(h.Date)
		if err != nil {
			return student.Student{}, fmt.Errorf("student %s history %s: %w", d.ID, h.ID, err)
		}
		st.PointHistory = append(st.PointHistory, student.PointHistory{
			ID:          h.ID,
			Date:        date,
			Change:      h.Change,
			Reason:      h.Reason,
			PointsAfter: h.PointsAfter,
		})
	}
	for _, r := range d.RewardsRedeemed {
		date, err := parseDate(r.Date)
		if err != nil {
			return student.Student{}, fmt.Errorf("student %s redemption %s: %w", d.ID, r.ID, err)
		}
		st.RewardsRedeemed = append(st.RewardsRedeemed, student.RedeemedReward{
			ID:          r.ID,
			Date:        date,
			RewardName:  r.RewardName,
			PointsSpent: r.PointsSpent,
		})
	}
	return st, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func corrupt(key string, err error) error {
	return shared.WrapError("snapshot", "Decode", shared.ErrCorruptSnapshot, "cannot decode "+key, err)
}
