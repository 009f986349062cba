package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/Alias1177/ChartPredictor/internal/analyze"
	"github.com/Alias1177/ChartPredictor/internal/app"
	"github.com/Alias1177/ChartPredictor/internal/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	supportedPairs = []string{
		"EUR/USD", "GBP/USD", "USD/JPY", "AUD/USD",
		"USD/CAD", "USD/CHF", "BTC/USD", "ETH/USD",
		"XAU/USD", "EUR/GBP", "EUR/JPY", "GBP/JPY",
	}

	supportedIntervals = []string{
		"1min", "5min", "15min", "30min", "1h", "4h", "1day",
	}
)

// chatState holds the hints a user picked for their next chart
type chatState struct {
	Symbol    string
	Timeframe string
}

type bot struct {
	api     *tgbotapi.BotAPI
	app     *app.App
	logger  zerolog.Logger
	mu      sync.Mutex
	states  map[int64]chatState
	timeout time.Duration
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	config.SetupLogger(cfg)

	if cfg.TelegramBotToken == "" {
		log.Fatal().Msg("TELEGRAM_BOT_TOKEN not set in environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{WithStore: true, WithCache: true})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}
	log.Info().Str("username", api.Self.UserName).Msg("Authorized on Telegram")

	b := &bot{
		api:     api,
		app:     a,
		logger:  log.With().Str("component", "tgbot").Logger(),
		states:  make(map[int64]chatState),
		timeout: cfg.Timeout() + 30*time.Second,
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := api.GetUpdatesChan(updateConfig)

	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Shutting down bot...")
			api.StopReceivingUpdates()
			wg.Wait()
			return
		case update, ok := <-updates:
			if !ok {
				wg.Wait()
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

func (b *bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	}
}

// updateState applies fn to the chat's saved hints under the lock
func (b *bot) updateState(chatID int64, fn func(*chatState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.states[chatID]
	fn(&s)
	b.states[chatID] = s
}

func (b *bot) hints(chatID int64) chatState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.states[chatID]
}

func (b *bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Error().Err(err).Msg("Failed to send Telegram message")
	}
}

func (b *bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	b.send(msg)
}

// handleMessage processes commands, menu buttons and chart uploads
func (b *bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if fileID, ok := chartFileID(message); ok {
		b.analyzeChart(ctx, message, fileID)
		return
	}

	if message.IsCommand() {
		switch message.Command() {
		case "start":
			msg := tgbotapi.NewMessage(chatID, welcomeText)
			msg.ParseMode = tgbotapi.ModeHTML
			msg.ReplyMarkup = mainMenuKeyboard()
			b.send(msg)
		case "help":
			b.reply(chatID, helpText)
		case "history":
			b.sendHistory(ctx, message)
		case "symbol":
			b.setSymbol(chatID, message.CommandArguments())
		case "timeframe":
			b.setTimeframe(chatID, message.CommandArguments())
		default:
			b.reply(chatID, "Unknown command. Send /help to see what I can do.")
		}
		return
	}

	switch message.Text {
	case "Select Symbol":
		b.sendChoiceMenu(chatID, "Choose the symbol shown on your chart:", "pair", supportedPairs, 3)
	case "Select Timeframe":
		b.sendChoiceMenu(chatID, "Choose the chart timeframe:", "interval", supportedIntervals, 4)
	case "History":
		b.sendHistory(ctx, message)
	case "Clear Hints":
		b.mu.Lock()
		delete(b.states, chatID)
		b.mu.Unlock()
		b.reply(chatID, "Symbol and timeframe hints cleared.")
	default:
		b.reply(chatID, "Send me a screenshot of a chart and I will analyze it.")
	}
}

func (b *bot) handleCallback(callback *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Debug().Err(err).Msg("Failed to answer callback")
	}
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID

	kind, value, ok := strings.Cut(callback.Data, ":")
	if !ok {
		return
	}
	switch kind {
	case "pair":
		b.setSymbol(chatID, value)
	case "interval":
		b.setTimeframe(chatID, value)
	}
}

func (b *bot) setSymbol(chatID int64, symbol string) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		b.sendChoiceMenu(chatID, "Choose the symbol shown on your chart:", "pair", supportedPairs, 3)
		return
	}
	b.updateState(chatID, func(s *chatState) { s.Symbol = symbol })
	b.reply(chatID, fmt.Sprintf("Symbol set to <b>%s</b>. Now send a chart.", escape(symbol)))
}

func (b *bot) setTimeframe(chatID int64, timeframe string) {
	timeframe = strings.TrimSpace(timeframe)
	if timeframe == "" {
		b.sendChoiceMenu(chatID, "Choose the chart timeframe:", "interval", supportedIntervals, 4)
		return
	}
	b.updateState(chatID, func(s *chatState) { s.Timeframe = timeframe })
	b.reply(chatID, fmt.Sprintf("Timeframe set to <b>%s</b>. Now send a chart.", escape(timeframe)))
}

// analyzeChart downloads the uploaded image and replies with the reconciled result
func (b *bot) analyzeChart(ctx context.Context, message *tgbotapi.Message, fileID string) {
	chatID := message.Chat.ID
	logger := b.logger.With().Int64("chat_id", chatID).Logger()

	progress, sendErr := b.api.Send(tgbotapi.NewMessage(chatID, "⏳ Analyzing your chart..."))
	if sendErr != nil {
		logger.Error().Err(sendErr).Msg("Failed to send progress message")
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to resolve Telegram file")
		b.reply(chatID, "I could not download that image. Please try again.")
		return
	}
	image, err := b.app.HTTPClient.Fetch(ctx, url, b.app.Config.MaxImageBytes)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to download chart")
		b.reply(chatID, "I could not download that image. Please try again.")
		return
	}

	state := b.hints(chatID)
	hints := parseCaption(message.Caption, state)

	analysis, err := b.app.Service.Analyze(ctx, analyze.Request{
		Image:  image,
		Hints:  hints,
		UserID: telegramUserID(message.From),
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Chart rejected")
		b.reply(chatID, rejectionText(err))
		return
	}

	text := formatAnalysis(analysis)
	if sendErr == nil {
		edit := tgbotapi.NewEditMessageText(chatID, progress.MessageID, text)
		edit.ParseMode = tgbotapi.ModeHTML
		b.send(edit)
		return
	}
	b.reply(chatID, text)
}

func (b *bot) sendHistory(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if !b.app.Service.HistoryEnabled() {
		b.reply(chatID, "History is not available on this bot.")
		return
	}

	analyses, err := b.app.Service.History(ctx, telegramUserID(message.From), 5)
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to load history")
		b.reply(chatID, "Could not load your history. Please try again later.")
		return
	}
	b.reply(chatID, formatHistory(analyses))
}

func (b *bot) sendChoiceMenu(chatID int64, prompt, kind string, choices []string, perRow int) {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i, choice := range choices {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(choice, kind+":"+choice))
		if (i+1)%perRow == 0 || i == len(choices)-1 {
			keyboard = append(keyboard, row)
			row = nil
		}
	}

	msg := tgbotapi.NewMessage(chatID, prompt)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	b.send(msg)
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Select Symbol"),
			tgbotapi.NewKeyboardButton("Select Timeframe"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("History"),
			tgbotapi.NewKeyboardButton("Clear Hints"),
		),
	)
}

// chartFileID returns the file id of an uploaded photo or image document
func chartFileID(message *tgbotapi.Message) (string, bool) {
	if len(message.Photo) > 0 {
		return message.Photo[len(message.Photo)-1].FileID, true
	}
	if message.Document != nil && strings.HasPrefix(message.Document.MimeType, "image/") {
		return message.Document.FileID, true
	}
	return "", false
}

func telegramUserID(user *tgbotapi.User) string {
	if user == nil {
		return ""
	}
	return "tg:" + strconv.FormatInt(user.ID, 10)
}

func rejectionText(err error) string {
	switch {
	case errors.Is(err, analyze.ErrImageTooLarge):
		return "That image is too large. Please send a smaller screenshot."
	case errors.Is(err, analyze.ErrUnsupportedImage), errors.Is(err, analyze.ErrEmptyImage):
		return "That file does not look like a PNG, JPEG, GIF or WebP image."
	default:
		return "Error analyzing the chart. Please try again later."
	}
}
