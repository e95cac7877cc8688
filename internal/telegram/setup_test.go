package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/taskbot/shadbot/internal/bot/handlers"
)

type fakeRegistrar struct {
	patterns []string
	handlers []bot.HandlerFunc
}

func (f *fakeRegistrar) RegisterHandler(_ bot.HandlerType, pattern string, _ bot.MatchType, h bot.HandlerFunc, _ ...bot.Middleware) string {
	f.patterns = append(f.patterns, pattern)
	f.handlers = append(f.handlers, h)
	return pattern
}

type fakeSetter struct {
	got []models.BotCommand
	err error
}

func (f *fakeSetter) SetMyCommands(_ context.Context, p *bot.SetMyCommandsParams) (bool, error) {
	f.got = p.Commands
	return f.err == nil, f.err
}

func TestApplyMiddlewareOrder(t *testing.T) {
	var order []string
	mw := func(name string) bot.Middleware {
		return func(next bot.HandlerFunc) bot.HandlerFunc {
			return func(ctx context.Context, b *bot.Bot, u *models.Update) {
				order = append(order, name)
				next(ctx, b, u)
			}
		}
	}
	h := applyMiddleware(func(context.Context, *bot.Bot, *models.Update) {
		order = append(order, "handler")
	}, []bot.Middleware{mw("outer"), mw("inner")})

	h(context.Background(), nil, &models.Update{})

	if len(order) != 3 || order[0] != "outer" || order[1] != "inner" || order[2] != "handler" {
		t.Errorf("Unexpected call order: %v", order)
	}
}

func TestRegisterHandlersSkipsNil(t *testing.T) {
	reg := &fakeRegistrar{}
	err := RegisterHandlers(reg, nil, map[string]handlers.RegisteredHandler{
		"/ok":  {Pattern: "ok", Handler: func(context.Context, *bot.Bot, *models.Update) {}},
		"/nil": {Pattern: "nil"},
	})
	if err != nil {
		t.Fatalf("RegisterHandlers failed: %v", err)
	}
	if len(reg.patterns) != 1 || reg.patterns[0] != "ok" {
		t.Errorf("Expected only the non-nil handler, got %v", reg.patterns)
	}
}

func TestNewTelegramBotRequiresToken(t *testing.T) {
	if _, err := NewTelegramBot("", nil); err == nil {
		t.Error("Expected error for empty token")
	}
}

func TestSetCommandMenu(t *testing.T) {
	setter := &fakeSetter{}
	cmds := []models.BotCommand{{Command: "task", Description: "Get a task"}}

	if err := SetCommandMenu(context.Background(), setter, cmds); err != nil {
		t.Fatalf("SetCommandMenu failed: %v", err)
	}
	if len(setter.got) != 1 || setter.got[0].Command != "task" {
		t.Errorf("Unexpected commands: %+v", setter.got)
	}

	setter.err = errors.New("telegram down")
	if err := SetCommandMenu(context.Background(), setter, cmds); err == nil {
		t.Error("Expected error to propagate")
	}
}
