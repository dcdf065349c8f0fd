package telegram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	app "leaf-doctor/internal/application"
	"leaf-doctor/internal/domain/catalog"
	"leaf-doctor/internal/domain/entity"
	"leaf-doctor/internal/infrastructure/storage"
)

func TestFormatDiagnosis_Empty(t *testing.T) {
	got := formatDiagnosis(&entity.Diagnosis{})
	require.Equal(t, []string{msgNothingDetected}, got)
}

func TestFormatDiagnosis_OneMessagePerFinding(t *testing.T) {
	d := &entity.Diagnosis{
		Detections: []entity.DetectionResult{
			{Label: "Early Blight"}, {Label: "Early Blight"}, {Label: "Healthy"},
		},
		Findings: []entity.Finding{
			{DiseaseInfo: catalog.Lookup("Early Blight"), Known: true, Count: 2, MaxConfidence: 0.914},
			{DiseaseInfo: catalog.Lookup("Healthy"), Known: true, Count: 1, MaxConfidence: 0.5},
		},
	}

	got := formatDiagnosis(d)
	require.Len(t, got, 2)
	require.Contains(t, got[0], "*Early Blight* (91%)")
	require.Contains(t, got[0], catalog.Lookup("Early Blight").Remedy)
	require.Contains(t, got[1], "No action needed.")
}

func TestFormatFinding_EscapesMarkdown(t *testing.T) {
	f := entity.Finding{DiseaseInfo: catalog.Lookup("leaf_spot_*")}
	got := formatFinding(f)
	require.Contains(t, got, `leaf\_spot\_\*`)
	require.Contains(t, got, catalog.FallbackDescription)
}

func TestImageFileID(t *testing.T) {
	id, ok := imageFileID(&tgbotapi.Message{Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}}})
	require.True(t, ok)
	require.Equal(t, "large", id)

	id, ok = imageFileID(&tgbotapi.Message{Document: &tgbotapi.Document{FileID: "doc", MimeType: "image/png"}})
	require.True(t, ok)
	require.Equal(t, "doc", id)

	_, ok = imageFileID(&tgbotapi.Message{Document: &tgbotapi.Document{FileID: "pdf", MimeType: "application/pdf"}})
	require.False(t, ok)

	_, ok = imageFileID(&tgbotapi.Message{Text: "hello"})
	require.False(t, ok)
}

// fakeTelegram answers the Bot API methods the bot uses. getFile blocks until
// release is closed and then fails, so no download is attempted.
type fakeTelegram struct {
	mu       sync.Mutex
	texts    []string
	getFiles int
	release  chan struct{}
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"username":"leafbot"}}`)
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		f.mu.Lock()
		f.texts = append(f.texts, r.FormValue("text"))
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"chat":{"id":10}}}`)
	case strings.HasSuffix(r.URL.Path, "/getFile"):
		f.mu.Lock()
		f.getFiles++
		f.mu.Unlock()
		<-f.release
		_, _ = io.WriteString(w, `{"ok":false,"error_code":400,"description":"file is gone"}`)
	default:
		http.NotFound(w, r)
	}
}

func newTestBot(t *testing.T, tg *fakeTelegram) (*Bot, *app.UserService) {
	t.Helper()

	srv := httptest.NewServer(tg)
	t.Cleanup(srv.Close)

	api, err := tgbotapi.NewBotAPIWithAPIEndpoint("TOKEN", srv.URL+"/bot%s/%s")
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	users := app.NewUserService(storage.NewMemoryUserRepository())
	return newBot(api, users, nil, 0, log), users
}

func photoMessage() *tgbotapi.Message {
	return &tgbotapi.Message{
		From:  &tgbotapi.User{ID: 1},
		Chat:  &tgbotapi.Chat{ID: 10},
		Photo: []tgbotapi.PhotoSize{{FileID: "leaf"}},
	}
}

func TestHandleMessage_SecondPhotoWhileBusy(t *testing.T) {
	tg := &fakeTelegram{release: make(chan struct{})}
	bot, users := newTestBot(t, tg)
	ctx := context.Background()

	bot.handleMessage(ctx, photoMessage())

	user, err := users.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.True(t, user.Busy())

	bot.handleMessage(ctx, photoMessage())

	close(tg.release)
	bot.wg.Wait()

	tg.mu.Lock()
	defer tg.mu.Unlock()
	require.Equal(t, 1, tg.getFiles)
	require.Contains(t, tg.texts, msgBusy)
	require.Contains(t, tg.texts, msgDetectionFailed)

	user, err = users.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)
}
