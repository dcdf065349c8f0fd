package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	app "leaf-doctor/internal/application"
	"leaf-doctor/internal/domain/entity"
	"leaf-doctor/internal/infrastructure/vision"
)

const (
	msgStart = `🍅 Hi! I detect common diseases on tomato leaves.

📸 Send me a photo of a leaf and I will tell you what I see and how to treat it.

📋 Commands:
/check - start a new check
/help - how to use the bot
/cancel - cancel the current operation`

	msgHelp = `ℹ️ How to use the bot:

1️⃣ Send a photo of a single tomato leaf
2️⃣ Wait while the model looks at it
3️⃣ Get a description and prevention tips for every disease found, plus the photo with boxes

💡 Tips:
• Shoot in daylight
• Keep the leaf in focus and fill the frame
• Use a plain background`

	msgAwaitingPhoto   = "📸 Send a photo of the tomato leaf to check."
	msgCancelled       = "❌ Cancelled. Send /check to start again."
	msgSendPhoto       = "📸 Please send a photo of a tomato leaf."
	msgUnknownCommand  = "❓ Unknown command. Use /help."
	msgProcessing      = "⏳ Looking at your leaf..."
	msgBusy            = "⏳ Still working on your previous photo."
	msgNothingDetected = "🔍 Nothing was detected on this photo. Try a closer shot of the leaf."
	msgDetectionFailed = "⚠️ Error in detection. Please try again."
	msgUnsupported     = "⚠️ Only JPEG and PNG images are supported."
	msgTooLarge        = "⚠️ The image is too large."
)

// Bot is the Telegram front end of the diagnosis service.
type Bot struct {
	api       *tgbotapi.BotAPI
	users     *app.UserService
	diagnosis *app.DiagnosisService
	maxBytes  int64
	log       logrus.FieldLogger

	// in-flight photo handlers
	wg sync.WaitGroup
}

// NewBot authorizes with token.
func NewBot(token string, users *app.UserService, diagnosis *app.DiagnosisService, maxBytes int64, log logrus.FieldLogger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return newBot(api, users, diagnosis, maxBytes, log), nil
}

func newBot(api *tgbotapi.BotAPI, users *app.UserService, diagnosis *app.DiagnosisService, maxBytes int64, log logrus.FieldLogger) *Bot {
	log.WithField("account", api.Self.UserName).Info("telegram bot authorized")

	return &Bot{
		api:       api,
		users:     users,
		diagnosis: diagnosis,
		maxBytes:  maxBytes,
		log:       log,
	}
}

// Run processes updates until ctx is cancelled. Photos are diagnosed in the
// background; Run waits for them before returning.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.wg.Wait()
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	user, err := b.users.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		b.log.WithError(err).Error("get user")
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	if fileID, ok := imageFileID(msg); ok {
		if user.Busy() {
			b.sendMessage(msg.Chat.ID, msgBusy)
			return
		}
		// State flips before the next update is read, so a second photo sees Busy.
		if _, err := b.users.StartProcessing(ctx, msg.From.ID, msg.Chat.ID); err != nil {
			b.log.WithError(err).Error("update user state")
			return
		}
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.handlePhoto(ctx, msg, fileID)
		}()
		return
	}

	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	var err error
	switch msg.Command() {
	case "start":
		_, err = b.users.Cancel(ctx, msg.From.ID, msg.Chat.ID)
		b.sendMessage(msg.Chat.ID, msgStart)

	case "help":
		b.sendMessage(msg.Chat.ID, msgHelp)

	case "check":
		_, err = b.users.BeginCheck(ctx, msg.From.ID, msg.Chat.ID)
		b.sendMessage(msg.Chat.ID, msgAwaitingPhoto)

	case "cancel":
		_, err = b.users.Cancel(ctx, msg.From.ID, msg.Chat.ID)
		b.sendMessage(msg.Chat.ID, msgCancelled)

	default:
		b.sendMessage(msg.Chat.ID, msgUnknownCommand)
	}
	if err != nil {
		b.log.WithError(err).WithField("command", msg.Command()).Error("update user state")
	}
}

func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message, fileID string) {
	chatID := msg.Chat.ID
	log := b.log.WithFields(logrus.Fields{"user_id": msg.From.ID, "chat_id": chatID})

	defer func() {
		if _, err := b.users.Cancel(context.WithoutCancel(ctx), msg.From.ID, chatID); err != nil {
			log.WithError(err).Error("update user state")
		}
	}()

	b.sendMessage(chatID, msgProcessing)

	imageData, err := b.downloadFile(ctx, fileID)
	if err != nil {
		log.WithError(err).Warn("download photo")
		if errors.Is(err, errTooLarge) {
			b.sendMessage(chatID, msgTooLarge)
		} else {
			b.sendMessage(chatID, msgDetectionFailed)
		}
		return
	}
	if _, err := vision.SniffImageType(imageData); err != nil {
		b.sendMessage(chatID, msgUnsupported)
		return
	}

	diag, err := b.diagnosis.Diagnose(ctx, imageData)
	if err != nil {
		log.WithError(err).Warn("diagnose photo")
		b.sendMessage(chatID, msgDetectionFailed)
		return
	}
	log.WithField("detections", len(diag.Detections)).Info("photo diagnosed")

	if len(diag.Annotated) > 0 {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "prediction.jpg", Bytes: diag.Annotated})
		photo.Caption = "Model Prediction"
		if _, err := b.api.Send(photo); err != nil {
			log.WithError(err).Error("send annotated photo")
		}
	}

	for _, text := range formatDiagnosis(diag) {
		b.sendMessage(chatID, text)
	}
}

var errTooLarge = errors.New("file is too large")

// downloadFile fetches a file from Telegram storage.
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	if b.maxBytes > 0 && int64(file.FileSize) > b.maxBytes {
		return nil, errTooLarge
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := b.api.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, b.limit()+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if int64(len(data)) > b.limit() {
		return nil, errTooLarge
	}

	return data, nil
}

func (b *Bot) limit() int64 {
	if b.maxBytes > 0 {
		return b.maxBytes
	}
	return 20 << 20
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		b.log.WithError(err).WithField("chat_id", chatID).Error("send message")
	}
}

// imageFileID picks the largest photo size, or an image sent as a document.
func imageFileID(msg *tgbotapi.Message) (string, bool) {
	if len(msg.Photo) > 0 {
		return msg.Photo[len(msg.Photo)-1].FileID, true
	}
	if msg.Document != nil {
		switch msg.Document.MimeType {
		case vision.TypeJPEG, vision.TypePNG:
			return msg.Document.FileID, true
		}
	}
	return "", false
}

// formatDiagnosis renders one message per finding.
func formatDiagnosis(d *entity.Diagnosis) []string {
	if len(d.Findings) == 0 {
		return []string{msgNothingDetected}
	}

	out := make([]string, 0, len(d.Findings))
	for _, f := range d.Findings {
		out = append(out, formatFinding(f))
	}
	return out
}

func formatFinding(f entity.Finding) string {
	return fmt.Sprintf("*%s* (%.0f%%): %s\n\n*Prevention Tips:* %s",
		tgbotapi.EscapeText(tgbotapi.ModeMarkdown, f.Label),
		f.MaxConfidence*100,
		tgbotapi.EscapeText(tgbotapi.ModeMarkdown, f.Description),
		tgbotapi.EscapeText(tgbotapi.ModeMarkdown, f.Remedy),
	)
}
