package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"household-meal-planner/internal/app"
	"household-meal-planner/internal/config"
	"household-meal-planner/internal/planner"
	"household-meal-planner/internal/recipe"
	"household-meal-planner/internal/shopping"
)

// --- Mocks ---
type fakeSender struct {
	mu              sync.Mutex
	sent            []tgbotapi.Chattable
	requests        []tgbotapi.Chattable
	rejectKeyboards bool
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok && f.rejectKeyboards && msg.ReplyMarkup != nil {
		return tgbotapi.Message{}, errors.New("bad request: reply markup is too long")
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) last(t *testing.T) tgbotapi.Chattable {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("Expected a message to be sent")
	}
	return f.sent[len(f.sent)-1]
}

const aliceTelegramID = 42

func newTestBot(t *testing.T) (*Bot, *fakeSender, *app.App) {
	t.Helper()
	cfg := &config.Config{
		DatabasePath:       filepath.Join(t.TempDir(), "bot.db"),
		StoreBackend:       config.BackendMemory,
		ResolveConcurrency: 2,
	}
	a, err := app.New(cfg, nil)
	if err != nil {
		t.Fatalf("Failed to build app: %v", err)
	}
	t.Cleanup(func() { a.Close(context.Background()) })

	api := &fakeSender{}
	return newBot(api, a, map[int64]string{aliceTelegramID: "alice"}, nil), api, a
}

func command(text string, from int64) tgbotapi.Update {
	cmdLen := len(text)
	if i := strings.IndexByte(text, ' '); i >= 0 {
		cmdLen = i
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from},
		Chat:      &tgbotapi.Chat{ID: 100},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}}
}

func seedWeek(t *testing.T, a *app.App) {
	t.Helper()
	ctx := context.Background()
	_, err := a.Recipes.Save(ctx, recipe.Recipe{ID: "r1", Name: "Chicken_Rice", Ingredients: []recipe.Ingredient{
		{Item: "chicken breast", Quantity: 2, Unit: "whole"},
		{Item: "white rice", Quantity: 1.5, Unit: "cups"},
	}})
	if err != nil {
		t.Fatal(err)
	}
	week := a.Plans.CurrentWeekStart()
	err = a.Plans.SetMeal(ctx, "alice", planner.PlannedMeal{
		Date: week, Slot: planner.SlotDinner, RecipeID: "r1", RecipeName: "Chicken_Rice",
	})
	if err != nil {
		t.Fatal(err)
	}
}

// --- Tests ---

func TestUnauthorizedUserIsIgnored(t *testing.T) {
	b, api, _ := newTestBot(t)
	b.handleUpdate(context.Background(), command("/list", 7))
	if len(api.sent) != 0 {
		t.Errorf("Expected no reply, got %d messages", len(api.sent))
	}
}

func TestGenerateAndToggle(t *testing.T) {
	ctx := context.Background()
	b, api, a := newTestBot(t)
	seedWeek(t, a)

	b.handleUpdate(ctx, command("/generate", aliceTelegramID))
	msg, ok := api.last(t).(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("Expected MessageConfig, got %T", api.last(t))
	}
	if !strings.Contains(msg.Text, "⬜ 1.5 cups white rice") {
		t.Errorf("Expected rice line, got:\n%s", msg.Text)
	}
	kb, ok := msg.ReplyMarkup.(*tgbotapi.InlineKeyboardMarkup)
	if !ok || len(kb.InlineKeyboard) != 1 || len(kb.InlineKeyboard[0]) != 2 {
		t.Fatalf("Expected one row of two toggle buttons, got %#v", msg.ReplyMarkup)
	}

	list := a.Lists.Get(ctx, "alice")
	data := *kb.InlineKeyboard[0][0].CallbackData
	if data != "toggle|"+list.Items[0].ID {
		t.Errorf("Unexpected callback data %q", data)
	}

	b.handleUpdate(ctx, tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: aliceTelegramID},
		Message: &tgbotapi.Message{MessageID: 9, Chat: &tgbotapi.Chat{ID: 100}},
		Data:    data,
	}})

	if !a.Lists.Get(ctx, "alice").Items[0].Checked {
		t.Error("Expected item to be checked")
	}
	edit, ok := api.last(t).(tgbotapi.EditMessageTextConfig)
	if !ok {
		t.Fatalf("Expected EditMessageTextConfig, got %T", api.last(t))
	}
	if edit.MessageID != 9 || !strings.Contains(edit.Text, "✅") {
		t.Errorf("Expected refreshed list in message 9, got %+v", edit)
	}
	if len(api.requests) != 1 {
		t.Errorf("Expected callback to be answered, got %d requests", len(api.requests))
	}
}

func TestCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("Week", func(t *testing.T) {
		b, api, a := newTestBot(t)
		seedWeek(t, a)
		b.handleUpdate(ctx, command("/week", aliceTelegramID))
		text := api.last(t).(tgbotapi.MessageConfig).Text
		if !strings.Contains(text, "dinner: Chicken\\_Rice") {
			t.Errorf("Expected escaped dinner entry, got:\n%s", text)
		}
	})

	t.Run("WeekBadDate", func(t *testing.T) {
		b, api, _ := newTestBot(t)
		b.handleUpdate(ctx, command("/week next", aliceTelegramID))
		if text := api.last(t).(tgbotapi.MessageConfig).Text; !strings.Contains(text, "❌") {
			t.Errorf("Expected date error, got %q", text)
		}
	})

	t.Run("AddCreatesList", func(t *testing.T) {
		b, api, a := newTestBot(t)
		b.handleUpdate(ctx, command("/add 2 cans chickpeas", aliceTelegramID))
		list := a.Lists.Get(ctx, "alice")
		if list == nil || len(list.Items) != 1 || list.Items[0].Unit != "cans" {
			t.Fatalf("Expected parsed custom item, got %+v", list)
		}
		if text := api.last(t).(tgbotapi.MessageConfig).Text; !strings.Contains(text, "2 cans chickpeas") {
			t.Errorf("Expected list reply, got:\n%s", text)
		}
	})

	t.Run("ClearChecked", func(t *testing.T) {
		b, _, a := newTestBot(t)
		id, _ := a.Lists.AddCustomItem(ctx, "alice", shopping.CustomItem{Name: "coffee", Checked: true})
		_, _ = a.Lists.AddCustomItem(ctx, "alice", shopping.CustomItem{Name: "tea"})
		b.handleUpdate(ctx, command("/clearchecked", aliceTelegramID))
		list := a.Lists.Get(ctx, "alice")
		if len(list.Items) != 1 || list.Items[0].ID == id {
			t.Errorf("Expected only tea to remain, got %+v", list.Items)
		}
	})

	t.Run("ListWithoutList", func(t *testing.T) {
		b, api, _ := newTestBot(t)
		b.handleUpdate(ctx, command("/list", aliceTelegramID))
		msg := api.last(t).(tgbotapi.MessageConfig)
		if !strings.Contains(msg.Text, "No shopping list yet") || msg.ReplyMarkup != nil {
			t.Errorf("Unexpected reply: %+v", msg)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		b, api, _ := newTestBot(t)
		b.handleUpdate(ctx, command("/stats", aliceTelegramID))
		if text := api.last(t).(tgbotapi.MessageConfig).Text; !strings.Contains(text, "System Health") {
			t.Errorf("Expected health report, got:\n%s", text)
		}
	})

	t.Run("PlainTextGetsHelp", func(t *testing.T) {
		b, api, _ := newTestBot(t)
		b.handleUpdate(ctx, tgbotapi.Update{Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: aliceTelegramID}, Chat: &tgbotapi.Chat{ID: 100}, Text: "hello",
		}})
		if text := api.last(t).(tgbotapi.MessageConfig).Text; text != helpText {
			t.Errorf("Expected help text, got %q", text)
		}
	})
}

func TestImportLink(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><script type="application/ld+json">
			{"@type": "Recipe", "name": "Toast", "recipeIngredient": ["2 slices bread", "1 tbsp butter"]}
		</script></head></html>`))
	}))
	defer ts.Close()

	b, api, a := newTestBot(t)
	b.handleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: aliceTelegramID}, Chat: &tgbotapi.Chat{ID: 100}, Text: ts.URL,
	}})

	edit, ok := api.last(t).(tgbotapi.EditMessageTextConfig)
	if !ok || !strings.Contains(edit.Text, "Recipe Saved") {
		t.Fatalf("Expected success edit, got %#v", api.last(t))
	}
	if n, _ := a.Recipes.Count(context.Background()); n != 1 {
		t.Errorf("Expected imported recipe to be stored, got %d", n)
	}
}

func TestHandleWebhook(t *testing.T) {
	b, _, _ := newTestBot(t)

	rec := httptest.NewRecorder()
	b.handleWebhook(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed update, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	b.handleWebhook(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"update_id": 1}`)))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestFormatListMarkdown(t *testing.T) {
	list := &shopping.ShoppingListData{
		WeekStart:   civil.Date{Year: 2024, Month: time.March, Day: 4},
		GeneratedAt: time.Now(),
		Items: []shopping.ShoppingItem{
			{ID: "item-1", Name: "milk", Quantity: 0.25, Unit: "cup", Category: "Dairy"},
			{ID: "item-2", Name: "eggs", Quantity: 3, Unit: "whole", Category: "Proteins", Checked: true},
			{ID: "custom-1", Name: "salt_flakes", Category: "Pantry"},
		},
	}

	out := formatListMarkdown(list)
	for _, want := range []string{
		"🛒 *Shopping List* (week of 2024-03-04)",
		"*Dairy*\n⬜ 0.25 cup milk",
		"*Proteins*\n✅ 3 whole eggs",
		"⬜ salt\\_flakes",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q:\n%s", want, out)
		}
	}

	kb := listKeyboard(list)
	if kb == nil || len(kb.InlineKeyboard) != 2 || len(kb.InlineKeyboard[1]) != 1 {
		t.Fatalf("Expected 2 rows (2+1 buttons), got %#v", kb)
	}
	if kb.InlineKeyboard[0][1].Text != "✅ eggs" {
		t.Errorf("Unexpected button label %q", kb.InlineKeyboard[0][1].Text)
	}
	if listKeyboard(&shopping.ShoppingListData{}) != nil {
		t.Error("Expected no keyboard for an empty list")
	}
}

func TestListKeyboardLimits(t *testing.T) {
	list := &shopping.ShoppingListData{WeekStart: civil.Date{Year: 2024, Month: time.March, Day: 4}}
	for i := 0; i < maxToggleButtons+15; i++ {
		list.Items = append(list.Items, shopping.ShoppingItem{ID: fmt.Sprintf("custom-%d", i), Name: fmt.Sprintf("item %d", i), Category: "Other"})
	}

	t.Run("CapsButtons", func(t *testing.T) {
		kb := listKeyboard(list)
		buttons := 0
		for _, row := range kb.InlineKeyboard {
			buttons += len(row)
		}
		if buttons != maxToggleButtons {
			t.Errorf("Expected %d buttons, got %d", maxToggleButtons, buttons)
		}
		if !strings.Contains(formatListMarkdown(list), fmt.Sprintf("item %d", maxToggleButtons+14)) {
			t.Error("Expected every item in the text")
		}
	})

	t.Run("RejectedKeyboardFallsBackToText", func(t *testing.T) {
		b, api, _ := newTestBot(t)
		api.rejectKeyboards = true

		b.sendList(7, list)

		msg, ok := api.last(t).(tgbotapi.MessageConfig)
		if !ok {
			t.Fatalf("Expected a text message, got %T", api.last(t))
		}
		if msg.ReplyMarkup != nil || !strings.Contains(msg.Text, "item 0") {
			t.Errorf("Expected the list without a keyboard, got %+v", msg)
		}
	})
}
