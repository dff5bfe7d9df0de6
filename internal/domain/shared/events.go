package shared

import "time"

// EventType names a domain event. The prefix groups events by the part of
// the system that emits them.
type EventType string

const (
	EventPointsChanged  EventType = "ledger.points_changed"
	EventLevelUp        EventType = "ledger.level_up"
	EventRewardRedeemed EventType = "ledger.reward_redeemed"

	EventStudentAdded       EventType = "registry.student_added"
	EventStudentDeleted     EventType = "registry.student_deleted"
	EventStudentsImported   EventType = "registry.students_imported"
	EventClassCreated       EventType = "registry.class_created"
	EventClassRenamed       EventType = "registry.class_renamed"
	EventClassDeleted       EventType = "registry.class_deleted"
	EventClassCleared       EventType = "registry.class_cleared"
	EventActiveClassChanged EventType = "registry.active_class_changed"

	EventRewardCatalogChanged EventType = "catalog.rewards_changed"
)

// Event is something that happened to the classroom. Payload is the
// transport form used by the Redis fan-out.
type Event interface {
	EventType() EventType
	OccurredAt() time.Time
	AggregateID() string
	Payload() map[string]any
}

type (
	EventHandler   func(event Event) error
	EventPublisher interface{ Publish(event Event) error }

	EventSubscriber interface {
		Subscribe(eventType EventType, handler EventHandler) error
		SubscribeAll(handler EventHandler) error
	}

	EventBus interface {
		EventPublisher
		EventSubscriber
	}
)

// Meta is embedded by every event and implements the Event accessors.
type Meta struct {
	Type      EventType
	At        time.Time
	Aggregate string
}

func newMeta(t EventType, aggregate string) Meta {
	return Meta{Type: t, At: time.Now(), Aggregate: aggregate}
}

func (m Meta) EventType() EventType  { return m.Type }
func (m Meta) OccurredAt() time.Time { return m.At }
func (m Meta) AggregateID() string   { return m.Aggregate }

// ──────────────────────────────────────────────────────────────────────────────
// Ledger
// ──────────────────────────────────────────────────────────────────────────────

// PointsChangedEvent follows every ledger entry, positive or negative.
type PointsChangedEvent struct {
	Meta
	StudentID   string
	ClassID     string
	Change      int
	PointsAfter int
	Reason      string
}

func NewPointsChangedEvent(studentID, classID string, change, pointsAfter int, reason string) PointsChangedEvent {
	return PointsChangedEvent{newMeta(EventPointsChanged, studentID), studentID, classID, change, pointsAfter, reason}
}

func (e PointsChangedEvent) Payload() map[string]any {
	return map[string]any{
		"student_id": e.StudentID, "class_id": e.ClassID,
		"change": e.Change, "points_after": e.PointsAfter, "reason": e.Reason,
	}
}

// LevelUpEvent fires only when a student moves to a higher tier.
type LevelUpEvent struct {
	Meta
	StudentID   string
	StudentName string
	ClassID     string
	OldLevel    string
	NewLevel    string
	Points      int
}

func NewLevelUpEvent(studentID, studentName, classID, oldLevel, newLevel string, points int) LevelUpEvent {
	return LevelUpEvent{newMeta(EventLevelUp, studentID), studentID, studentName, classID, oldLevel, newLevel, points}
}

func (e LevelUpEvent) Payload() map[string]any {
	return map[string]any{
		"student_id": e.StudentID, "student_name": e.StudentName, "class_id": e.ClassID,
		"old_level": e.OldLevel, "new_level": e.NewLevel, "points": e.Points,
	}
}

type RewardRedeemedEvent struct {
	Meta
	StudentID   string
	ClassID     string
	RewardID    string
	RewardName  string
	PointsSpent int
	PointsAfter int
}

func NewRewardRedeemedEvent(studentID, classID, rewardID, rewardName string, spent, after int) RewardRedeemedEvent {
	return RewardRedeemedEvent{newMeta(EventRewardRedeemed, studentID), studentID, classID, rewardID, rewardName, spent, after}
}

func (e RewardRedeemedEvent) Payload() map[string]any {
	return map[string]any{
		"student_id": e.StudentID, "class_id": e.ClassID,
		"reward_id": e.RewardID, "reward_name": e.RewardName,
		"points_spent": e.PointsSpent, "points_after": e.PointsAfter,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Registry and catalog
// ──────────────────────────────────────────────────────────────────────────────

// StudentChangedEvent reports one student added or deleted.
type StudentChangedEvent struct {
	Meta
	StudentID string
	ClassID   string
	Name      string
}

func NewStudentAddedEvent(studentID, classID, name string) StudentChangedEvent {
	return StudentChangedEvent{newMeta(EventStudentAdded, studentID), studentID, classID, name}
}

func NewStudentDeletedEvent(studentID, classID, name string) StudentChangedEvent {
	return StudentChangedEvent{newMeta(EventStudentDeleted, studentID), studentID, classID, name}
}

func (e StudentChangedEvent) Payload() map[string]any {
	return map[string]any{"student_id": e.StudentID, "class_id": e.ClassID, "name": e.Name}
}

// ClassEvent reports a class lifecycle change. Count is the number of
// students affected, where that means something.
type ClassEvent struct {
	Meta
	ClassID string
	Name    string
	Count   int
}

func NewClassEvent(eventType EventType, classID, name string, count int) ClassEvent {
	return ClassEvent{newMeta(eventType, classID), classID, name, count}
}

func (e ClassEvent) Payload() map[string]any {
	return map[string]any{"class_id": e.ClassID, "name": e.Name, "count": e.Count}
}

// RewardCatalogChangedEvent reports an edit to the catalog. Action is add,
// update, delete or reset.
type RewardCatalogChangedEvent struct {
	Meta
	Action   string
	RewardID string
	Size     int
}

func NewRewardCatalogChangedEvent(action, rewardID string, size int) RewardCatalogChangedEvent {
	return RewardCatalogChangedEvent{newMeta(EventRewardCatalogChanged, "rewards"), action, rewardID, size}
}

func (e RewardCatalogChangedEvent) Payload() map[string]any {
	return map[string]any{"action": e.Action, "reward_id": e.RewardID, "size": e.Size}
}
