package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Himikid/andalus-taraweeh/internal/domain"
)

// Notifier posts a day-processing summary to the operators' channel.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewNotifier(token string, chatID int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Notifier{bot: bot, chatID: chatID}, nil
}

// NotifyDaySummary sends the digest of one processed day.
func (n *Notifier) NotifyDaySummary(ctx context.Context, summary domain.DaySummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var sb strings.Builder
	if summary.Part > 0 {
		sb.WriteString(fmt.Sprintf("Day %d (part %d) processed\n", summary.Day, summary.Part))
	} else {
		sb.WriteString(fmt.Sprintf("Day %d processed\n", summary.Day))
	}
	sb.WriteString(fmt.Sprintf("Markers: %d (high %d, ambiguous %d, inferred %d, manual %d)\n",
		summary.MarkerCount, summary.HighCount, summary.AmbiguousCount, summary.InferredCount, summary.ManualCount))
	if summary.FirstAyah != "" && summary.LastAyah != "" {
		sb.WriteString(fmt.Sprintf("Range: %s -> %s\n", summary.FirstAyah, summary.LastAyah))
	}
	sb.WriteString(fmt.Sprintf("Elapsed: %.1fs", summary.ElapsedSeconds))

	msg := tgbotapi.NewMessage(n.chatID, sb.String())
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send summary: %w", err)
	}
	return nil
}
