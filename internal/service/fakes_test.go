package service

import (
	"context"
	"sort"
	"time"

	"nudgebot/internal/model"
	"nudgebot/internal/notify"
	"nudgebot/internal/schedule"
)

// fakeClock is a settable Clock.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) NowUTC() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// fakeHabitStore mirrors the repository's due-listing semantics in memory.
type fakeHabitStore struct {
	habits map[uint]*model.Habit
}

func newFakeHabitStore(habits ...*model.Habit) *fakeHabitStore {
	m := make(map[uint]*model.Habit, len(habits))
	for _, h := range habits {
		m[h.ID] = h
	}
	return &fakeHabitStore{habits: m}
}

func (s *fakeHabitStore) ListDueReminders(_ context.Context, now time.Time) ([]model.Habit, error) {
	var due []model.Habit
	for _, h := range s.habits {
		if !h.RemindEnabled || h.NextDueAt.After(now) {
			continue
		}
		if h.NextRemindAt != nil && h.NextRemindAt.After(now) {
			continue
		}
		if h.SnoozedUntil != nil && h.SnoozedUntil.After(now) {
			continue
		}
		due = append(due, *h)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due, nil
}

func (s *fakeHabitStore) BumpReminder(_ context.Context, id uint, level int, next time.Time) error {
	h := s.habits[id]
	h.RemindLevel = level
	h.NextRemindAt = &next
	return nil
}

func (s *fakeHabitStore) SetReminderEnabled(_ context.Context, id uint, enabled bool) error {
	h := s.habits[id]
	h.RemindEnabled = enabled
	if !enabled {
		h.RemindLevel = 0
		h.NextRemindAt = nil
	}
	return nil
}

func (s *fakeHabitStore) RefreshStaleDue(_ context.Context, id uint, nextDue time.Time) error {
	h := s.habits[id]
	h.NextDueAt = nextDue
	h.NextRemindAt = nil
	return nil
}

func (s *fakeHabitStore) ListCatchupUsers(context.Context) ([]int64, error) {
	seen := map[int64]bool{}
	var users []int64
	for _, h := range s.habits {
		if h.RemindEnabled && h.Profile() == schedule.ProfileCatchup && !seen[h.UserID] {
			seen[h.UserID] = true
			users = append(users, h.UserID)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users, nil
}

func (s *fakeHabitStore) ListCatchupByUser(_ context.Context, userID int64) ([]model.Habit, error) {
	var out []model.Habit
	for _, h := range s.habits {
		if h.UserID == userID && h.RemindEnabled && h.Profile() == schedule.ProfileCatchup {
			out = append(out, *h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// fakeTodoStore is the to-do counterpart.
type fakeTodoStore struct {
	todos map[uint]*model.Todo
}

func newFakeTodoStore(todos ...*model.Todo) *fakeTodoStore {
	m := make(map[uint]*model.Todo, len(todos))
	for _, t := range todos {
		m[t.ID] = t
	}
	return &fakeTodoStore{todos: m}
}

func (s *fakeTodoStore) ListDueReminders(_ context.Context, now time.Time) ([]model.Todo, error) {
	var due []model.Todo
	for _, t := range s.todos {
		if t.IsDone || !t.RemindEnabled || t.NextRemindAt == nil || t.NextRemindAt.After(now) {
			continue
		}
		due = append(due, *t)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due, nil
}

func (s *fakeTodoStore) BumpReminder(_ context.Context, id uint, level int, next time.Time) error {
	t := s.todos[id]
	t.RemindLevel = level
	t.NextRemindAt = &next
	return nil
}

func (s *fakeTodoStore) SetReminderEnabled(_ context.Context, id uint, enabled bool) error {
	t := s.todos[id]
	t.RemindEnabled = enabled
	if !enabled {
		t.RemindLevel = 0
		t.NextRemindAt = nil
	}
	return nil
}

// fakePrefStore returns per-user preference rows.
type fakePrefStore struct {
	users map[int64]*model.User
}

func (s *fakePrefStore) FindByTelegramID(_ context.Context, id int64) (*model.User, error) {
	if s == nil || s.users == nil {
		return nil, nil
	}
	return s.users[id], nil
}

// fakeNotifier records deliveries and serves scripted outcomes.
type fakeNotifier struct {
	outcome notify.Outcome
	sends   []sentMessage
	digests []sentDigest
}

type sentMessage struct {
	userID int64
	text   string
}

type sentDigest struct {
	userID  int64
	text    string
	buttons []notify.Button
}

func (n *fakeNotifier) SendDirectMessage(_ context.Context, userID int64, text string) notify.Outcome {
	if n.outcome != notify.OutcomeSent {
		return n.outcome
	}
	n.sends = append(n.sends, sentMessage{userID: userID, text: text})
	return notify.OutcomeSent
}

func (n *fakeNotifier) SendDigest(_ context.Context, userID int64, text string, buttons []notify.Button) notify.Outcome {
	if n.outcome != notify.OutcomeSent {
		return n.outcome
	}
	n.digests = append(n.digests, sentDigest{userID: userID, text: text, buttons: buttons})
	return notify.OutcomeSent
}

// fakeCheckinLookup answers day queries from a fixed set of instants.
type fakeCheckinLookup struct {
	checkins map[uint][]time.Time
}

func (s *fakeCheckinLookup) ExistsBetween(_ context.Context, habitID uint, from, to time.Time) (bool, error) {
	for _, at := range s.checkins[habitID] {
		if !at.Before(from) && at.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

// fakeMarkerStore keeps digest markers in a map.
type fakeMarkerStore struct {
	days map[int64]string
}

func newFakeMarkerStore() *fakeMarkerStore {
	return &fakeMarkerStore{days: map[int64]string{}}
}

func (s *fakeMarkerStore) LastSentDay(_ context.Context, userID int64) (string, error) {
	return s.days[userID], nil
}

func (s *fakeMarkerStore) SetLastSentDay(_ context.Context, userID int64, day string) error {
	s.days[userID] = day
	return nil
}
