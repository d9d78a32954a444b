package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"nudgebot/internal/model"
	"nudgebot/internal/repository"
	"nudgebot/internal/schedule"
	"nudgebot/internal/service"
)

const cbCatchupPrefix = "catchup:"

// Bot wires Telegram updates to the habit and todo services.
type Bot struct {
	api    *tgbotapi.BotAPI
	users  *repository.UserRepository
	habits *service.HabitService
	todos  *service.TodoService
	log    zerolog.Logger
}

func New(api *tgbotapi.BotAPI, users *repository.UserRepository, habits *service.HabitService, todos *service.TodoService, log zerolog.Logger) *Bot {
	return &Bot{
		api:    api,
		users:  users,
		habits: habits,
		todos:  todos,
		log:    log.With().Str("component", "bot").Logger(),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info().Str("account", b.api.Self.UserName).Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Warn().Err(err).Msg("handle callback")
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.IsCommand() {
				continue
			}
			if err := b.handleCommand(ctx, update.Message); err != nil {
				b.log.Warn().Err(err).Msg("handle command")
			}
		}
	}

	return nil
}

// scopeOf separates direct chats from groups: a habit created in a group
// belongs to that group, one created in a DM travels with the user.
func scopeOf(msg *tgbotapi.Message) int64 {
	if msg.Chat.IsPrivate() {
		return 0
	}
	return msg.Chat.ID
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	b.log.Debug().Int64("user_id", msg.From.ID).Str("command", msg.Command()).Msg("command")

	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "habit_add":
		return b.handleHabitAdd(ctx, msg)
	case "habit_list":
		return b.handleHabitList(ctx, msg)
	case "habit_edit":
		return b.handleHabitEdit(ctx, msg)
	case "habit_checkin":
		return b.handleHabitCheckin(ctx, msg)
	case "habit_history":
		return b.handleHabitHistory(ctx, msg)
	case "habit_remind":
		return b.handleHabitRemind(ctx, msg)
	case "habit_profile":
		return b.handleHabitProfile(ctx, msg)
	case "habit_snooze":
		return b.handleHabitSnooze(ctx, msg)
	case "habit_remove":
		return b.handleHabitRemove(ctx, msg)
	case "todo_add":
		return b.handleTodoAdd(ctx, msg)
	case "todo_list":
		return b.handleTodoList(ctx, msg)
	case "todo_done":
		return b.handleTodoDone(ctx, msg, true)
	case "todo_undo":
		return b.handleTodoDone(ctx, msg, false)
	case "todo_nag":
		return b.handleTodoNag(ctx, msg)
	case "todo_remove":
		return b.handleTodoRemove(ctx, msg)
	case "dnd":
		return b.handleDnd(ctx, msg)
	case "tz":
		return b.handleTimezone(ctx, msg)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}

	text := fmt.Sprintf(
		"👋 Hi, %s!\n<b>I keep your habits and to-dos on schedule and nudge you when they slip.</b>\n\n"+
			"Start with:\n"+
			"• /habit_add name | days | HH:MM — recurring habit\n"+
			"• /todo_add text — one-off to-do\n"+
			"• /help — everything else",
		escape(name),
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"<b>Habits</b>\n" +
		"• /habit_add name | days | HH:MM | zone — e.g. <code>/habit_add read | mon-fri | 21:30</code>\n" +
		"• /habit_list — all habits with their next occurrence\n" +
		"• /habit_edit id | days | HH:MM | zone — leave a part empty to keep it\n" +
		"• /habit_checkin id [note] — confirm it's done\n" +
		"• /habit_history id — recent check-ins\n" +
		"• /habit_remind id on|off — toggle reminders\n" +
		"• /habit_profile id catchup|gentle|normal|aggressive|daily — reminder style\n" +
		"• /habit_snooze id [week|month] — push the next occurrence a day\n" +
		"• /habit_remove id\n" +
		"<b>To-dos</b>\n" +
		"• /todo_add text\n" +
		"• /todo_list [all] — open items, or everything\n" +
		"• /todo_done id · /todo_undo id\n" +
		"• /todo_nag id [off|4h] — escalating reminder, optional first delay\n" +
		"• /todo_remove id\n" +
		"<b>Settings</b>\n" +
		"• /tz zone — e.g. <code>/tz Europe/Warsaw</code>\n" +
		"• /dnd HH:MM HH:MM — quiet hours, or <code>/dnd off</code>"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHabitAdd(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	parts := splitFields(msg.CommandArguments())
	if len(parts) == 0 || parts[0] == "" {
		return b.sendText(msg.Chat.ID, "Usage: /habit_add name | days | HH:MM | zone\nExample: <code>/habit_add stretch | daily | 08:00</code>")
	}

	input := service.HabitInput{Name: parts[0], Remind: true}
	if len(parts) > 1 {
		input.DaysSpec = parts[1]
	}
	if len(parts) > 2 {
		input.DueTime = parts[2]
	}
	if len(parts) > 3 {
		input.TZName = parts[3]
	}
	if input.TZName == "" {
		input.TZName = user.TZName
	}

	habit, err := b.habits.Create(ctx, scopeOf(msg), msg.From.ID, input)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}

	b.log.Info().Uint("habit_id", habit.ID).Int64("user_id", msg.From.ID).Msg("habit created")
	return b.sendText(msg.Chat.ID, fmt.Sprintf(
		"✅ Habit <b>#%d</b> saved: %s\nNext occurrence: %s",
		habit.ID, escape(service.Describe(habit)), formatInstant(habit.NextDueAt, habit.Location()),
	))
}

func (b *Bot) handleHabitList(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	habits, err := b.habits.List(ctx, scopeOf(msg), msg.From.ID)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	if len(habits) == 0 {
		return b.sendText(msg.Chat.ID, "No habits yet. Add one with /habit_add.")
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Habits</b>\n")
	for i := range habits {
		h := &habits[i]
		builder.WriteString(fmt.Sprintf("\n<b>#%d</b> %s\n", h.ID, escape(h.Name)))
		builder.WriteString(fmt.Sprintf("   📅 %s at %s (%s)\n", schedule.FormatDays([]schedule.Weekday(h.Days)), h.DueTime(), escape(h.TZName)))
		builder.WriteString(fmt.Sprintf("   ⏭ next: %s\n", formatInstant(h.NextDueAt, h.Location())))
		if h.RemindEnabled {
			builder.WriteString(fmt.Sprintf("   🔔 %s", h.Profile()))
			if h.RemindLevel > 0 {
				builder.WriteString(fmt.Sprintf(" (level %d)", h.RemindLevel))
			}
			builder.WriteByte('\n')
		} else {
			builder.WriteString("   🔕 reminders off\n")
		}
		if h.LastCheckinAt != nil {
			builder.WriteString(fmt.Sprintf("   ✅ last check-in: %s\n", formatInstant(*h.LastCheckinAt, h.Location())))
		}
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleHabitEdit(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	parts := splitFields(msg.CommandArguments())
	if len(parts) < 2 {
		return b.sendText(msg.Chat.ID, "Usage: /habit_edit id | days | HH:MM | zone (leave a part empty to keep it)")
	}
	habitID, err := parseID(parts[0])
	if err != nil {
		return b.sendText(msg.Chat.ID, "The habit id must be a number.")
	}

	var daysSpec, dueTime, tzName string
	daysSpec = parts[1]
	if len(parts) > 2 {
		dueTime = parts[2]
	}
	if len(parts) > 3 {
		tzName = parts[3]
	}

	habit, err := b.habits.EditSchedule(ctx, msg.From.ID, habitID, daysSpec, dueTime, tzName)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf(
		"✏️ Updated: %s\nNext occurrence: %s",
		escape(service.Describe(habit)), formatInstant(habit.NextDueAt, habit.Location()),
	))
}

func (b *Bot) handleHabitCheckin(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		return b.sendText(msg.Chat.ID, "Usage: /habit_checkin id [note]")
	}
	habitID, err := parseID(args[0])
	if err != nil {
		return b.sendText(msg.Chat.ID, "The habit id must be a number.")
	}
	note := strings.Join(args[1:], " ")

	habit, err := b.habits.CheckIn(ctx, msg.From.ID, habitID, note)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}

	b.log.Info().Uint("habit_id", habit.ID).Int64("user_id", msg.From.ID).Msg("habit check-in")
	return b.sendText(msg.Chat.ID, fmt.Sprintf(
		"✅ <b>%s</b> checked in. Next occurrence: %s",
		escape(habit.Name), formatInstant(habit.NextDueAt, habit.Location()),
	))
}

func (b *Bot) handleHabitHistory(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	habitID, err := parseID(strings.TrimSpace(msg.CommandArguments()))
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /habit_history id")
	}

	habit, err := b.habits.Get(ctx, msg.From.ID, habitID)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	checkins, err := b.habits.History(ctx, msg.From.ID, habitID, 15)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	if len(checkins) == 0 {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("No check-ins for <b>%s</b> yet.", escape(habit.Name)))
	}

	loc := habit.Location()
	var builder strings.Builder
	fmt.Fprintf(&builder, "🗓 <b>%s</b> — recent check-ins\n", escape(habit.Name))
	for _, c := range checkins {
		builder.WriteString("\n• " + formatInstant(c.CheckedInAt, loc))
		if c.Note != "" {
			builder.WriteString(" — " + escape(c.Note))
		}
	}
	return b.sendText(msg.Chat.ID, builder.String())
}

func (b *Bot) handleHabitRemind(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		return b.sendText(msg.Chat.ID, "Usage: /habit_remind id on|off")
	}
	habitID, err := parseID(args[0])
	if err != nil {
		return b.sendText(msg.Chat.ID, "The habit id must be a number.")
	}
	enabled, err := parseOnOff(args[1])
	if err != nil {
		return b.sendText(msg.Chat.ID, "Say on or off: /habit_remind 3 off")
	}

	if err := b.habits.SetReminderEnabled(ctx, msg.From.ID, habitID, enabled); err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	if enabled {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("🔔 Reminders for habit #%d are on.", habitID))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🔕 Reminders for habit #%d are off.", habitID))
}

func (b *Bot) handleHabitProfile(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		return b.sendText(msg.Chat.ID, "Usage: /habit_profile id catchup|gentle|normal|aggressive|daily")
	}
	habitID, err := parseID(args[0])
	if err != nil {
		return b.sendText(msg.Chat.ID, "The habit id must be a number.")
	}

	profile, err := b.habits.SetProfile(ctx, msg.From.ID, habitID, args[1])
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🔔 Habit #%d now reminds in <b>%s</b> style.", habitID, profile))
}

func (b *Bot) handleHabitSnooze(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		return b.sendText(msg.Chat.ID, "Usage: /habit_snooze id [week|month]")
	}
	habitID, err := parseID(args[0])
	if err != nil {
		return b.sendText(msg.Chat.ID, "The habit id must be a number.")
	}
	period := "week"
	if len(args) > 1 {
		period = args[1]
	}

	grant, err := b.habits.Snooze(ctx, msg.From.ID, habitID, period)
	if err != nil {
		var cooldown *schedule.CooldownError
		if errors.As(err, &cooldown) {
			return b.sendText(msg.Chat.ID, fmt.Sprintf(
				"⏳ Already snoozed recently. Next snooze available %s.",
				formatInstant(cooldown.NextAllowedAt, user.Location(time.UTC)),
			))
		}
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf(
		"😴 Snoozed. Reminders resume after %s.",
		formatInstant(grant.SnoozedUntil, user.Location(time.UTC)),
	))
}

func (b *Bot) handleHabitRemove(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	habitID, err := parseID(strings.TrimSpace(msg.CommandArguments()))
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /habit_remove id")
	}

	habit, err := b.habits.Get(ctx, msg.From.ID, habitID)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	if err := b.habits.Delete(ctx, msg.From.ID, habitID); err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	b.log.Info().Uint("habit_id", habitID).Int64("user_id", msg.From.ID).Msg("habit removed")
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 Habit <b>%s</b> removed.", escape(habit.Name)))
}

func (b *Bot) handleTodoAdd(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	todo, err := b.todos.Create(ctx, scopeOf(msg), msg.From.ID, msg.CommandArguments())
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf(
		"📝 To-do <b>#%d</b> added. Mark it with /todo_done %d, or /todo_nag %d to get nagged.",
		todo.ID, todo.ID, todo.ID,
	))
}

func (b *Bot) handleTodoList(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	includeDone := strings.EqualFold(strings.TrimSpace(msg.CommandArguments()), "all")
	todos, err := b.todos.List(ctx, scopeOf(msg), msg.From.ID, includeDone)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	if len(todos) == 0 {
		return b.sendText(msg.Chat.ID, "Nothing on the list. Add something with /todo_add.")
	}

	var builder strings.Builder
	builder.WriteString("🗒 <b>To-dos</b>\n")
	for i := range todos {
		t := &todos[i]
		switch {
		case t.IsDone:
			fmt.Fprintf(&builder, "\n✅ <s>#%d %s</s>", t.ID, escape(t.Content))
		case t.RemindEnabled:
			fmt.Fprintf(&builder, "\n🔔 <b>#%d</b> %s", t.ID, escape(t.Content))
		default:
			fmt.Fprintf(&builder, "\n▫️ <b>#%d</b> %s", t.ID, escape(t.Content))
		}
	}
	return b.sendText(msg.Chat.ID, builder.String())
}

func (b *Bot) handleTodoDone(ctx context.Context, msg *tgbotapi.Message, done bool) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	todoID, err := parseID(strings.TrimSpace(msg.CommandArguments()))
	if err != nil {
		if done {
			return b.sendText(msg.Chat.ID, "Usage: /todo_done id")
		}
		return b.sendText(msg.Chat.ID, "Usage: /todo_undo id")
	}

	if err := b.todos.SetDone(ctx, msg.From.ID, todoID, done); err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	if done {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ To-do #%d done.", todoID))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("↩️ To-do #%d reopened.", todoID))
}

func (b *Bot) handleTodoNag(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		return b.sendText(msg.Chat.ID, "Usage: /todo_nag id [off|4h]")
	}
	todoID, err := parseID(args[0])
	if err != nil {
		return b.sendText(msg.Chat.ID, "The to-do id must be a number.")
	}

	if len(args) > 1 && strings.EqualFold(args[1], "off") {
		if err := b.todos.SetReminder(ctx, msg.From.ID, todoID, false, 0); err != nil {
			return b.replyError(msg.Chat.ID, err)
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("🔕 No more nagging about to-do #%d.", todoID))
	}

	var initial time.Duration
	if len(args) > 1 {
		initial, err = time.ParseDuration(args[1])
		if err != nil {
			return b.sendText(msg.Chat.ID, "Bad delay. Try something like 30m, 4h or 2h30m.")
		}
	}
	if err := b.todos.SetReminder(ctx, msg.From.ID, todoID, true, initial); err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🔔 I'll nag you about to-do #%d until it's done (or I give up).", todoID))
}

func (b *Bot) handleTodoRemove(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	todoID, err := parseID(strings.TrimSpace(msg.CommandArguments()))
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /todo_remove id")
	}
	if err := b.todos.Delete(ctx, msg.From.ID, todoID); err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 To-do #%d removed.", todoID))
}

func (b *Bot) handleDnd(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	args := strings.Fields(msg.CommandArguments())
	switch {
	case len(args) == 0:
		if !user.DndEnabled {
			return b.sendText(msg.Chat.ID, "Quiet hours are off. Set them with /dnd 22:00 07:00.")
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("🌙 Quiet hours: %s–%s. Turn off with /dnd off.", user.DndStart, user.DndEnd))
	case len(args) == 1 && strings.EqualFold(args[0], "off"):
		if err := b.users.SetDnd(ctx, msg.From.ID, false, "00:00", "00:00"); err != nil {
			return b.replyError(msg.Chat.ID, err)
		}
		return b.sendText(msg.Chat.ID, "🔔 Quiet hours are off.")
	case len(args) == 2:
		start, err := schedule.ParseTimeOfDay(args[0])
		if err != nil {
			return b.sendText(msg.Chat.ID, "Bad start time. Use HH:MM, e.g. /dnd 22:00 07:00.")
		}
		end, err := schedule.ParseTimeOfDay(args[1])
		if err != nil {
			return b.sendText(msg.Chat.ID, "Bad end time. Use HH:MM, e.g. /dnd 22:00 07:00.")
		}
		if start == end {
			return b.sendText(msg.Chat.ID, "Start and end match, which means no quiet hours. Use /dnd off instead.")
		}
		if err := b.users.SetDnd(ctx, msg.From.ID, true, start.String(), end.String()); err != nil {
			return b.replyError(msg.Chat.ID, err)
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("🌙 Quiet hours set: %s–%s. Reminders wait until they're over.", start, end))
	default:
		return b.sendText(msg.Chat.ID, "Usage: /dnd 22:00 07:00, or /dnd off")
	}
}

func (b *Bot) handleTimezone(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	zone := strings.TrimSpace(msg.CommandArguments())
	if zone == "" {
		current := user.TZName
		if current == "" {
			current = "the server default"
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Your timezone is %s. Change it with /tz Europe/Warsaw.", escape(current)))
	}
	if _, err := time.LoadLocation(zone); err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("I don't know the zone %q. Use an IANA name like Europe/Warsaw or Asia/Tokyo.", escape(zone)))
	}
	if err := b.users.SetTimezone(ctx, msg.From.ID, zone); err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🌍 Timezone set to %s.", escape(zone)))
}

// handleCallback processes digest confirmation buttons. The payload carries
// the habit id and the local day being confirmed.
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn().Err(err).Msg("callback ack")
	}
	if !strings.HasPrefix(cb.Data, cbCatchupPrefix) {
		return nil
	}

	rest := strings.TrimPrefix(cb.Data, cbCatchupPrefix)
	idRaw, day, ok := strings.Cut(rest, ":")
	if !ok {
		return nil
	}
	habitID, err := parseID(idRaw)
	if err != nil {
		return nil
	}

	habit, err := b.habits.ConfirmMissed(ctx, cb.From.ID, habitID, day)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return b.notifyCallback(cb, "That habit no longer exists.")
		}
		b.log.Warn().Err(err).Uint("habit_id", habitID).Int64("user_id", cb.From.ID).Msg("confirm missed")
		return b.notifyCallback(cb, "Couldn't record that, sorry.")
	}

	b.log.Info().Uint("habit_id", habit.ID).Int64("user_id", cb.From.ID).Str("day", day).Msg("missed habit confirmed")
	return b.notifyCallback(cb, fmt.Sprintf("✅ %s confirmed for %s.", habit.Name, day))
}

func (b *Bot) notifyCallback(cb *tgbotapi.CallbackQuery, text string) error {
	if cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	return b.sendText(cb.Message.Chat.ID, escape(text))
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.users.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

// replyError translates service errors into user-facing messages.
func (b *Bot) replyError(chatID int64, err error) error {
	var validation *service.ValidationError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return b.sendText(chatID, "Not found. Check the id with /habit_list or /todo_list.")
	case errors.As(err, &validation):
		return b.sendText(chatID, fmt.Sprintf("⚠️ %s", escape(validation.Error())))
	default:
		b.log.Error().Err(err).Msg("command failed")
		return b.sendText(chatID, "Something went wrong, try again in a bit.")
	}
}

// splitFields splits "a | b | c" style arguments, preserving empty parts so
// positional edits can keep a field.
func splitFields(args string) []string {
	raw := strings.Split(args, "|")
	out := make([]string, 0, len(raw))
	for _, part := range raw {
		out = append(out, strings.TrimSpace(part))
	}
	if len(out) == 1 && out[0] == "" {
		return nil
	}
	return out
}

func parseID(raw string) (uint, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "#"))
	value, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}

func parseOnOff(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "yes", "true", "1":
		return true, nil
	case "off", "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", raw)
	}
}

func formatInstant(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("Mon 2006-01-02 15:04")
}

func escape(s string) string {
	return html.EscapeString(s)
}
