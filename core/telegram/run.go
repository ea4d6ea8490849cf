package telegram

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/businesssandbox/regbot/core/config"
	"github.com/businesssandbox/regbot/core/logger"
	tghelpers "github.com/businesssandbox/regbot/core/telegram/helpers"
	tgsender "github.com/businesssandbox/regbot/core/telegram/sender"
)

const stopTimeout = 10 * time.Second

// Middleware is a named global middleware installed with bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route binds a handler to a telebot endpoint (a command string or tele.OnText and friends).
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions describes the bot RunTelegram assembles.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	// Dispatcher is built from DispatcherOptions when nil.
	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route

	// DisableWebhookCleanup keeps a previously registered webhook in long-polling mode.
	DisableWebhookCleanup bool
	// DisableHelperDispatcher makes helpers send synchronously.
	DisableHelperDispatcher bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime is handed to the lifecycle hooks.
type Runtime struct {
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// RunTelegram serves updates until ctx is done. A cancelled ctx is a clean stop.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return errors.New("telegram: nil config provided")
	}
	r, err := newRunner(ctx, opts)
	if err != nil {
		return err
	}
	return r.run(ctx)
}

type runner struct {
	opts    RunOptions
	bot     *tele.Bot
	rt      Runtime
	helpers bool
}

func newRunner(ctx context.Context, opts RunOptions) (*runner, error) {
	cfg := opts.Config
	poller := BuildPoller(cfg)

	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		URL:     cfg.Telegram.APIURL,
		Token:   cfg.Telegram.Token,
		Poller:  poller,
		Client:  BuildHTTPClient(),
		OnError: logUpdateError,
	})
	if err != nil {
		return nil, errors.New("telegram: bot initialization failed: " + tgsender.SanitizeError(err))
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "tg.mode",
		append(pollerAttrs(poller), slog.Duration("duration", logger.Took(start)))...,
	)

	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	disp := opts.Dispatcher
	if disp == nil {
		disp = tgsender.NewDispatcher(opts.DispatcherOptions)
	}
	return &runner{
		opts:    opts,
		bot:     bot,
		rt:      Runtime{Dispatcher: disp, Registry: reg},
		helpers: !opts.DisableHelperDispatcher,
	}, nil
}

func (r *runner) run(ctx context.Context) error {
	if r.helpers {
		tghelpers.SetDispatcher(r.rt.Dispatcher)
	}
	defer r.release()

	if _, polling := r.bot.Poller.(*tele.LongPoller); polling && !r.opts.DisableWebhookCleanup {
		r.dropWebhook(ctx)
	}
	r.install()

	if hook := r.opts.OnStart; hook != nil {
		if err := hook(ctx, r.rt); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.bot.Start()
	}()
	select {
	case <-ctx.Done():
		r.bot.Stop()
		<-done
	case <-done:
	}

	if hook := r.opts.OnStop; hook != nil {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
		defer cancel()
		if err := hook(stopCtx, r.rt); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// install registers middlewares, routes and the command menu.
func (r *runner) install() {
	for _, mw := range r.opts.Middlewares {
		if mw.Use != nil {
			r.bot.Use(mw.Use)
		}
	}
	for _, route := range r.opts.Routes {
		if route.Endpoint != nil && route.Handler != nil {
			r.bot.Handle(route.Endpoint, route.Handler)
		}
	}
	InitBotCommands(r.bot, r.rt.Registry)
}

// dropWebhook removes a webhook left over from webhook mode; getUpdates fails while one is set.
func (r *runner) dropWebhook(ctx context.Context) {
	err := r.bot.RemoveWebhook(false)
	level := slog.LevelInfo
	attrs := []slog.Attr{slog.String("status", logger.Status(err))}
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("err", tgsender.SanitizeError(err)))
	}
	logger.LogEvent(ctx, logger.TG, level, "tg.delete_webhook", attrs...)
}

// release drains queued sends and detaches the helpers.
func (r *runner) release() {
	r.rt.Dispatcher.Close()
	if r.helpers {
		tghelpers.SetDispatcher(nil)
	}
}

// logUpdateError replaces telebot's default OnError, which prints through the standard logger.
func logUpdateError(err error, c tele.Context) {
	if err == nil {
		return
	}
	ctx := logger.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.Error(ctx, "tg", "tg.update_error",
		slog.String("status", "fail"),
		slog.String("err", tgsender.SanitizeError(err)),
		slog.String("err_code", tgsender.ErrorCode(err)),
	)
}
