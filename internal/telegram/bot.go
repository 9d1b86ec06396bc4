package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"household-meal-planner/internal/app"
	"household-meal-planner/internal/config"
	"household-meal-planner/internal/metrics"
	"household-meal-planner/internal/planner"
	"household-meal-planner/internal/recipe"
	"household-meal-planner/internal/shopping"
)

const toggleAction = "toggle"

// maxToggleButtons keeps list keyboards well inside Telegram's inline
// keyboard limits. Items past the cap are still listed in the text.
const maxToggleButtons = 40

// sender is the part of tgbotapi.BotAPI the bot talks through.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot serves one household's meal plans and shopping lists over Telegram.
// It never pushes: every reply re-reads the stores.
type Bot struct {
	api    sender
	app    *app.App
	users  map[int64]string
	logger *zap.Logger
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, application *app.App, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("authorized on telegram", zap.String("account", api.Self.UserName))

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	logger.Info("webhook set", zap.String("response", resp.Description))

	return newBot(api, application, cfg.TelegramUsers, logger), nil
}

func newBot(api sender, application *app.App, users map[int64]string, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		api:    api,
		app:    application,
		users:  users,
		logger: logger,
	}
}

// RegisterHandlers registers the webhook handler with the default HTTP mux.
func (b *Bot) RegisterHandlers() {
	http.HandleFunc("/webhook", b.handleWebhook)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		b.logger.Warn("error parsing update", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	go b.handleUpdate(context.Background(), update)
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

// person maps a Telegram user to a household person id.
func (b *Bot) person(user *tgbotapi.User) (string, bool) {
	if user == nil {
		return "", false
	}
	personID, ok := b.users[user.ID]
	if !ok {
		b.logger.Warn("unauthorized access attempt",
			zap.Int64("user_id", user.ID), zap.String("username", user.UserName))
	}
	return personID, ok
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	personID, ok := b.person(msg.From)
	if !ok {
		return
	}
	chatID := msg.Chat.ID

	if !msg.IsCommand() {
		text := strings.TrimSpace(msg.Text)
		if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
			b.handleImport(ctx, chatID, text)
			return
		}
		b.reply(chatID, helpText, nil)
		return
	}

	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "week":
		week, err := parseWeekArg(args)
		if err != nil {
			b.reply(chatID, "❌ Dates look like 2024-03-04.", nil)
			return
		}
		if week.IsZero() {
			week = b.app.Plans.CurrentWeekStart()
		}
		week = planner.WeekStartOf(week)
		b.reply(chatID, formatWeekMarkdown(week, b.app.Plans.GetMeals(ctx, personID, week)), nil)
	case "generate":
		week, err := parseWeekArg(args)
		if err != nil {
			b.reply(chatID, "❌ Dates look like 2024-03-04.", nil)
			return
		}
		list, err := b.app.Lists.Generate(ctx, personID, week)
		if err != nil {
			b.replyError(chatID, "generating list", err)
			return
		}
		b.sendList(chatID, list)
	case "list":
		b.sendList(chatID, b.app.Lists.Get(ctx, personID))
	case "clearchecked":
		if err := b.app.Lists.ClearChecked(ctx, personID); err != nil {
			b.replyError(chatID, "clearing checked items", err)
			return
		}
		b.sendList(chatID, b.app.Lists.Get(ctx, personID))
	case "add":
		if args == "" {
			b.reply(chatID, "Usage: /add 2 cans chickpeas", nil)
			return
		}
		ing := recipe.ParseIngredientLine(args)
		_, err := b.app.Lists.AddCustomItem(ctx, personID, shopping.CustomItem{
			Name:     ing.Item,
			Quantity: ing.Quantity,
			Unit:     ing.Unit,
		})
		if err != nil {
			b.replyError(chatID, "adding item", err)
			return
		}
		b.sendList(chatID, b.app.Lists.Get(ctx, personID))
	case "stats":
		b.handleStats(ctx, chatID)
	default:
		b.reply(chatID, helpText, nil)
	}
}

func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Answer callback to remove spinner
	b.api.Request(tgbotapi.NewCallback(query.ID, ""))

	personID, ok := b.person(query.From)
	if !ok || query.Message == nil {
		return
	}

	action, itemID, found := strings.Cut(query.Data, "|")
	if !found || action != toggleAction {
		return
	}

	if err := b.app.Lists.ToggleItem(ctx, personID, itemID); err != nil {
		b.replyError(query.Message.Chat.ID, "updating item", err)
		return
	}

	list := b.app.Lists.Get(ctx, personID)
	edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, formatListMarkdown(list))
	edit.ParseMode = tgbotapi.ModeMarkdown
	if kb := listKeyboard(list); kb != nil {
		edit.ReplyMarkup = kb
	}
	_, err := b.api.Send(edit)
	if err != nil && edit.ReplyMarkup != nil {
		b.logger.Warn("list edit with keyboard rejected, sending text only", zap.Error(err))
		edit.ReplyMarkup = nil
		_, err = b.api.Send(edit)
	}
	if err != nil {
		b.logger.Warn("failed to edit list message", zap.Error(err))
	}
}

func (b *Bot) handleImport(ctx context.Context, chatID int64, url string) {
	sent, err := b.api.Send(newMarkdownMessage(chatID, "✂️ *Importing recipe...*"))
	if err != nil {
		b.logger.Warn("failed to send initial reply", zap.Error(err))
		return
	}

	var text string
	rec, err := b.app.Clipper.ClipURL(ctx, url)
	if err != nil {
		b.logger.Warn("recipe import failed", zap.String("url", url), zap.Error(err))
		text = fmt.Sprintf("❌ *Error importing recipe:*\n```\n%s\n```", strings.ReplaceAll(err.Error(), "`", "'"))
	} else {
		text = fmt.Sprintf("✅ *Recipe Saved!*\n\n*Title:* %s\n*ID:* `%s`\n*Ingredients:* %d",
			escape(rec.Name), rec.ID, len(rec.Ingredients))
	}
	edit := tgbotapi.NewEditMessageText(chatID, sent.MessageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	b.api.Send(edit)
}

func (b *Bot) handleStats(ctx context.Context, chatID int64) {
	daily, err := b.app.Metrics.GetDailyStats(ctx, 7)
	if err != nil {
		b.replyError(chatID, "fetching stats", err)
		return
	}
	b.reply(chatID, formatStatsMarkdown(daily, metrics.GetSysHealth(b.app.DataPath())), nil)
}

func (b *Bot) sendList(chatID int64, list *shopping.ShoppingListData) {
	b.reply(chatID, formatListMarkdown(list), listKeyboard(list))
}

func (b *Bot) reply(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	msg := newMarkdownMessage(chatID, text)
	if keyboard != nil {
		msg.ReplyMarkup = keyboard
	}
	_, err := b.api.Send(msg)
	if err != nil && keyboard != nil {
		b.logger.Warn("reply with keyboard rejected, sending text only", zap.Int64("chat_id", chatID), zap.Error(err))
		msg.ReplyMarkup = nil
		_, err = b.api.Send(msg)
	}
	if err != nil {
		b.logger.Warn("failed to send reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) replyError(chatID int64, doing string, err error) {
	b.logger.Warn("command failed", zap.String("doing", doing), zap.Error(err))
	b.reply(chatID, fmt.Sprintf("❌ *Error %s:* %s", doing, escape(err.Error())), nil)
}

func newMarkdownMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	return msg
}

func parseWeekArg(arg string) (civil.Date, error) {
	if arg == "" {
		return civil.Date{}, nil
	}
	return civil.ParseDate(arg)
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

const helpText = "🧑‍🍳 *Meal Planner*\n\n" +
	"/week `[yyyy-mm-dd]` - show the week's meals\n" +
	"/generate `[yyyy-mm-dd]` - rebuild the shopping list\n" +
	"/list - show the shopping list\n" +
	"/add `2 cans chickpeas` - add an item\n" +
	"/clearchecked - drop checked items\n" +
	"/stats - usage and health\n\n" +
	"Send a recipe link to import it."

func formatWeekMarkdown(weekStart civil.Date, meals []planner.PlannedMeal) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📅 *Week of %s*\n", weekStart))

	byDay := make(map[civil.Date][]planner.PlannedMeal)
	for _, m := range meals {
		byDay[m.Date] = append(byDay[m.Date], m)
	}
	for _, day := range planner.DatesOfWeek(weekStart) {
		sb.WriteString(fmt.Sprintf("\n*%s*\n", day.In(time.UTC).Weekday()))
		if len(byDay[day]) == 0 {
			sb.WriteString("_nothing planned_\n")
			continue
		}
		for _, m := range byDay[day] {
			sb.WriteString(fmt.Sprintf("• %s: %s\n", m.Slot, escape(m.RecipeName)))
		}
	}
	return sb.String()
}

func formatListMarkdown(list *shopping.ShoppingListData) string {
	if list == nil {
		return "🛒 No shopping list yet. Use /generate."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🛒 *Shopping List* (week of %s)\n", list.WeekStart))
	if len(list.Items) == 0 {
		sb.WriteString("\n_empty_\n")
		return sb.String()
	}

	category := ""
	for i, it := range list.Items {
		if i == 0 || it.Category != category {
			category = it.Category
			sb.WriteString(fmt.Sprintf("\n*%s*\n", escape(category)))
		}
		mark := "⬜"
		if it.Checked {
			mark = "✅"
		}
		line := escape(it.Name)
		if q := app.FormatQuantity(it.Quantity, it.Unit); q != "" {
			line = escape(q) + " " + line
		}
		sb.WriteString(fmt.Sprintf("%s %s\n", mark, line))
	}
	return sb.String()
}

// listKeyboard has one toggle button per item, two per row, for at most
// maxToggleButtons items.
func listKeyboard(list *shopping.ShoppingListData) *tgbotapi.InlineKeyboardMarkup {
	if list == nil || len(list.Items) == 0 {
		return nil
	}
	items := list.Items
	if len(items) > maxToggleButtons {
		items = items[:maxToggleButtons]
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, it := range items {
		label := "⬜ " + it.Name
		if it.Checked {
			label = "✅ " + it.Name
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, toggleAction+"|"+it.ID))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func formatStatsMarkdown(daily []metrics.DailyStats, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent List Generations*\n")
	if len(daily) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range daily {
		sb.WriteString(fmt.Sprintf("• *%s*: %d runs, %d unresolved recipes, avg %dms\n",
			d.Date, d.Runs, d.Unresolved, d.AvgLatencyMS))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %s (Alloc) / %s (Sys)\n", health.Alloc, health.Sys))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	return sb.String()
}
