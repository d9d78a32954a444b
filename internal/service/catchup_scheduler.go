package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"nudgebot/internal/model"
	"nudgebot/internal/notify"
	"nudgebot/internal/schedule"
)

// maxDigestEntries caps how many missed habits one digest lists.
const maxDigestEntries = 10

const digestDayFormat = "2006-01-02"

// CatchupHabitStore is the slice of the habit repository the digest loop
// needs.
type CatchupHabitStore interface {
	ListCatchupUsers(ctx context.Context) ([]int64, error)
	ListCatchupByUser(ctx context.Context, userID int64) ([]model.Habit, error)
}

// CheckinLookup answers "was there a check-in inside this UTC interval".
type CheckinLookup interface {
	ExistsBetween(ctx context.Context, habitID uint, from, to time.Time) (bool, error)
}

// DigestMarkerStore persists the once-per-local-day send gate.
type DigestMarkerStore interface {
	LastSentDay(ctx context.Context, userID int64) (string, error)
	SetLastSentDay(ctx context.Context, userID int64, day string) error
}

// CatchupDigestScheduler is the slow polling loop. Once per local day per
// user, after the configured send time, it collects catchup habits that
// were scheduled but unconfirmed yesterday and sends one digest whose
// buttons confirm them retroactively.
type CatchupDigestScheduler struct {
	habits    CatchupHabitStore
	checkins  CheckinLookup
	markers   DigestMarkerStore
	users     PrefStore
	notifier  notify.Notifier
	clock     Clock
	defaultTZ *time.Location
	sendAfter schedule.TimeOfDay
	log       zerolog.Logger
}

func NewCatchupDigestScheduler(
	habits CatchupHabitStore,
	checkins CheckinLookup,
	markers DigestMarkerStore,
	users PrefStore,
	notifier notify.Notifier,
	clock Clock,
	defaultTZ *time.Location,
	sendAfter schedule.TimeOfDay,
	log zerolog.Logger,
) *CatchupDigestScheduler {
	return &CatchupDigestScheduler{
		habits:    habits,
		checkins:  checkins,
		markers:   markers,
		users:     users,
		notifier:  notifier,
		clock:     clock,
		defaultTZ: defaultTZ,
		sendAfter: sendAfter,
		log:       log.With().Str("component", "catchup_scheduler").Logger(),
	}
}

// Tick runs one pass over all digest-eligible users.
func (s *CatchupDigestScheduler) Tick(ctx context.Context) {
	now := s.clock.NowUTC()
	userIDs, err := s.habits.ListCatchupUsers(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("list catchup users")
		return
	}
	for _, uid := range userIDs {
		if err := s.digestForUser(ctx, uid, now); err != nil {
			s.log.Warn().Err(err).Int64("user_id", uid).Msg("catchup digest")
		}
	}
}

func (s *CatchupDigestScheduler) digestForUser(ctx context.Context, userID int64, now time.Time) error {
	user, err := s.users.FindByTelegramID(ctx, userID)
	if err != nil {
		return err
	}
	localNow := now.In(user.Location(s.defaultTZ))

	nowTod := schedule.TimeOfDay{Hour: localNow.Hour(), Minute: localNow.Minute()}
	if nowTod.Before(s.sendAfter) {
		return nil
	}

	today := localNow.Format(digestDayFormat)
	last, err := s.markers.LastSentDay(ctx, userID)
	if err != nil {
		return err
	}
	if last == today {
		return nil
	}

	yesterday := localNow.AddDate(0, 0, -1)
	missed, err := s.missedOn(ctx, userID, yesterday)
	if err != nil {
		return err
	}
	if len(missed) == 0 {
		// Nothing to reconcile, but record the marker so the rest of the
		// day doesn't rescan this user every tick.
		return s.markers.SetLastSentDay(ctx, userID, today)
	}

	text, buttons := digestMessage(missed, yesterday)
	if outcome := s.notifier.SendDigest(ctx, userID, text, buttons); outcome != notify.OutcomeSent {
		s.log.Warn().Int64("user_id", userID).Stringer("outcome", outcome).Msg("digest delivery failed")
	}

	// Marker is recorded regardless of delivery outcome: a crash-and-retry
	// inside the same local day must not re-send.
	return s.markers.SetLastSentDay(ctx, userID, today)
}

// missedOn finds catchup habits scheduled but unconfirmed on the given
// local calendar day. The check-in lookup uses each habit's own timezone,
// which may differ from the digest timezone.
func (s *CatchupDigestScheduler) missedOn(ctx context.Context, userID int64, day time.Time) ([]model.Habit, error) {
	habits, err := s.habits.ListCatchupByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	year, month, dom := day.Date()
	dayDate := time.Date(year, month, dom, 0, 0, 0, 0, time.UTC)
	weekday := schedule.FromTime(day.Weekday())

	var missed []model.Habit
	for i := range habits {
		h := &habits[i]
		loc := h.Location()

		created := h.CreatedAt.In(loc)
		createdDate := time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, time.UTC)
		if createdDate.After(dayDate) {
			continue
		}
		if !containsDay(h.Days, weekday) {
			continue
		}

		from, to := schedule.DayBounds(year, month, dom, loc)
		confirmed, err := s.checkins.ExistsBetween(ctx, h.ID, from, to)
		if err != nil {
			s.log.Warn().Err(err).Uint("habit_id", h.ID).Msg("checkin lookup")
			continue
		}
		if confirmed {
			continue
		}
		missed = append(missed, *h)
	}
	return missed, nil
}

func containsDay(days model.Weekdays, d schedule.Weekday) bool {
	for _, x := range days {
		if x == d {
			return true
		}
	}
	return false
}

// DigestCallbackData encodes a digest confirmation button payload.
func DigestCallbackData(habitID uint, day time.Time) string {
	return fmt.Sprintf("catchup:%d:%s", habitID, day.Format(digestDayFormat))
}

func digestMessage(missed []model.Habit, day time.Time) (string, []notify.Button) {
	if len(missed) > maxDigestEntries {
		missed = missed[:maxDigestEntries]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🌅 <b>Catch-up for %s</b>\n", day.Format(digestDayFormat))
	b.WriteString("These habits were scheduled yesterday but not checked in.\nTap to confirm the ones you actually did:\n")

	buttons := make([]notify.Button, 0, len(missed))
	for i := range missed {
		h := &missed[i]
		fmt.Fprintf(&b, "\n• <b>%s</b> (due %s)", html.EscapeString(h.Name), h.DueTime())
		buttons = append(buttons, notify.Button{
			Label: "✅ " + h.Name,
			Data:  DigestCallbackData(h.ID, day),
		})
	}
	return b.String(), buttons
}
