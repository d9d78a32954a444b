package notify

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Telegram delivers direct messages through the Bot API. In a private chat
// the chat id equals the user id, so "direct message" is a plain send.
// Outbound sends share one rate limiter; Telegram throttles bots around 30
// messages per second globally.
type Telegram struct {
	api     *tgbotapi.BotAPI
	limiter *rate.Limiter
	log     zerolog.Logger
}

func NewTelegram(api *tgbotapi.BotAPI, log zerolog.Logger) *Telegram {
	return &Telegram{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(25), 5),
		log:     log.With().Str("component", "notify").Logger(),
	}
}

func (t *Telegram) SendDirectMessage(ctx context.Context, userID int64, text string) Outcome {
	msg := tgbotapi.NewMessage(userID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	return t.send(ctx, userID, msg)
}

func (t *Telegram) SendDigest(ctx context.Context, userID int64, text string, buttons []Button) Outcome {
	msg := tgbotapi.NewMessage(userID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if len(buttons) > 0 {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
		for _, b := range buttons {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data),
			))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	return t.send(ctx, userID, msg)
}

func (t *Telegram) send(ctx context.Context, userID int64, msg tgbotapi.MessageConfig) Outcome {
	if err := t.limiter.Wait(ctx); err != nil {
		return OutcomeTransient
	}
	if _, err := t.api.Send(msg); err != nil {
		outcome := classify(err)
		t.log.Warn().Err(err).Int64("user_id", userID).Stringer("outcome", outcome).Msg("delivery failed")
		return outcome
	}
	return OutcomeSent
}

// classify maps Bot API errors onto the delivery taxonomy. 403 means the
// user blocked the bot or never started a chat; everything else is assumed
// retryable.
func classify(err error) Outcome {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 403 {
		return OutcomeForbidden
	}
	return OutcomeTransient
}
