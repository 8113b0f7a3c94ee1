package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Vodeneev/linesniper/internal/pkg/models"
)

// Min interval between any two Telegram messages to the same chat to avoid 429 Too Many Requests.
const telegramSendInterval = 2 * time.Second

var ErrNotifierClosed = errors.New("telegram notifier closed")

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts line-movement alerts to one chat from a single background sender.
type TelegramNotifier struct {
	bot      sender
	chatID   int64
	rules    Rules
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	closed bool
	queue  chan string
	done   chan struct{}
}

// NewTelegramNotifier connects to the bot API and starts the sender.
func NewTelegramNotifier(token string, chatID int64, rules Rules, logger *slog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = false

	n := newNotifier(bot, chatID, rules, telegramSendInterval, logger)
	logger.Info("Telegram notifier initialized", "chat_id", chatID, "bot", bot.Self.UserName)
	return n, nil
}

func newNotifier(bot sender, chatID int64, rules Rules, interval time.Duration, logger *slog.Logger) *TelegramNotifier {
	n := &TelegramNotifier{
		bot:      bot,
		chatID:   chatID,
		rules:    rules,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		queue:    make(chan string, 100),
		done:     make(chan struct{}),
	}
	go n.messageSender()
	return n
}

// ObserveCapture queues one alert per capture listing every detected movement.
func (n *TelegramNotifier) ObserveCapture(_ context.Context, c models.Capture) error {
	moves := DetectCapture(c, n.now(), n.rules)
	if len(moves) == 0 {
		return nil
	}
	return n.enqueue(formatMovements(c.Event, moves))
}

// QueueLen returns the number of messages waiting to be sent.
func (n *TelegramNotifier) QueueLen() int {
	return len(n.queue)
}

func (n *TelegramNotifier) enqueue(text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrNotifierClosed
	}
	select {
	case n.queue <- text:
		return nil
	default:
		n.logger.Warn("Telegram queue full, dropping alert", "message_preview", truncateString(text, 50))
		return fmt.Errorf("telegram message queue is full")
	}
}

func (n *TelegramNotifier) messageSender() {
	defer close(n.done)

	var lastSend time.Time
	for text := range n.queue {
		if wait := n.interval - time.Since(lastSend); wait > 0 {
			time.Sleep(wait)
		}

		msg := tgbotapi.NewMessage(n.chatID, text)
		msg.ParseMode = tgbotapi.ModeMarkdownV2
		start := time.Now()
		_, err := n.bot.Send(msg)
		lastSend = time.Now()
		if err != nil {
			n.logger.Error("Telegram send: failed", "error", err, "message_preview", truncateString(text, 50))
			continue
		}
		n.logger.Info("Telegram send: success", "send_duration", time.Since(start), "queue_length", len(n.queue))
	}
}

// Close stops accepting alerts and waits until queued ones are sent.
func (n *TelegramNotifier) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()

	<-n.done
	return nil
}

func formatMovements(e models.Event, moves []Movement) string {
	var b strings.Builder
	b.WriteString("📊 *Line movement*\n\n")
	fmt.Fprintf(&b, "*%s*\n", escapeMarkdown(e.Name))
	if !e.KickoffAt.IsZero() {
		fmt.Fprintf(&b, "🕐 %s", escapeMarkdown(e.KickoffAt.UTC().Format("2006-01-02 15:04 UTC")))
		if e.Sport != "" {
			fmt.Fprintf(&b, " \\| %s", escapeMarkdown(string(e.Sport)))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for _, m := range moves {
		marker := ""
		if m.Watch {
			marker = "👁 "
		}
		line := fmt.Sprintf("%s | %s: %.3f → %.3f (%+.1f pp)", m.MarketType, m.Outcome, m.Previous, m.Current, m.Shift*100)
		fmt.Fprintf(&b, "%s%s\n", marker, escapeMarkdown(line))
	}
	return b.String()
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"(", "\\(",
		")", "\\)",
		"~", "\\~",
		"`", "\\`",
		">", "\\>",
		"#", "\\#",
		"+", "\\+",
		"-", "\\-",
		"=", "\\=",
		"|", "\\|",
		"{", "\\{",
		"}", "\\}",
		".", "\\.",
		"!", "\\!",
	)
	return replacer.Replace(text)
}
