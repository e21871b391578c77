package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apex-portrait/internal/jobs"
	"apex-portrait/internal/mediagroup"
	"apex-portrait/internal/pipeline"
	"apex-portrait/internal/portrait"
	"apex-portrait/internal/profilestore"
	"apex-portrait/internal/session"
	"apex-portrait/internal/telegram"
)

type sentDoc struct {
	name string
	data []byte
}

type fakeMessenger struct {
	mu      sync.Mutex
	nextID  int
	texts   []string
	screens []string
	edits   int
	answers []string
	docs    []sentDoc
	files   map[string][]byte
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{nextID: 100, files: map[string][]byte{}}
}

func (f *fakeMessenger) SendTyping(int64) {}

func (f *fakeMessenger) SendText(_ int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeMessenger) SendTextWithKeyboard(_ int64, text string, _ telegram.Keyboard) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.screens = append(f.screens, text)
	return f.nextID, nil
}

func (f *fakeMessenger) EditTextWithKeyboard(_ int64, _ int, text string, _ telegram.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits++
	f.screens = append(f.screens, text)
	return nil
}

func (f *fakeMessenger) AnswerCallback(_ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeMessenger) SendDocument(_ int64, filename string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, sentDoc{name: filename, data: data})
	return nil
}

func (f *fakeMessenger) DownloadFile(_ context.Context, fileID string, _ int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[fileID]
	if !ok {
		return nil, errors.New("file not found")
	}
	return data, nil
}

func (f *fakeMessenger) lastScreen() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.screens) == 0 {
		return ""
	}
	return f.screens[len(f.screens)-1]
}

func (f *fakeMessenger) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

type fakeSubmitter struct{}

func (fakeSubmitter) Submit(context.Context, jobs.Request) (jobs.Job, error) {
	return jobs.Job{JobID: "job-9", Status: "pending"}, nil
}

const (
	chatID = int64(10)
	userID = int64(20)
)

var fixedNow = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

type fixture struct {
	h        *Handler
	tg       *fakeMessenger
	store    *profilestore.Store
	own      *profilestore.Store
	sessions *session.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store, err := profilestore.New(profilestore.Options{KV: profilestore.NewMemoryKV(), Now: fixedNow})
	require.NoError(t, err)

	tg := newFakeMessenger()
	sessions := session.NewStore()
	h := New(Options{
		Telegram:  tg,
		Generator: pipeline.New(pipeline.Options{Submitter: fakeSubmitter{}, Now: fixedNow}),
		Store:     store,
		Sessions:  sessions,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return fixture{h: h, tg: tg, store: store, own: store.For("20"), sessions: sessions}
}

func command(text string) telegram.Update {
	cmd := strings.SplitN(text, " ", 2)[0]
	return telegram.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func textMsg(text string) telegram.Update {
	return telegram.Update{Message: &tgbotapi.Message{
		MessageID: 2,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
	}}
}

func press(from int64, data string) telegram.Update {
	return telegram.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: from},
		Message: &tgbotapi.Message{MessageID: 101, Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}}
}

func TestStartWithPresetArgs(t *testing.T) {
	fx := newFixture(t)

	require.NoError(t, fx.h.HandleUpdate(context.Background(), command("/portrait Executive Portrait")))

	st := fx.sessions.Get(chatID, userID)
	assert.Equal(t, "Corporate Website", st.Form.Purpose)
	assert.Equal(t, "Executive Portrait", st.Form.PresetName)
	assert.Equal(t, 101, st.MessageID)
	assert.Contains(t, fx.tg.lastScreen(), "✨ Applied preset: Executive Portrait")
}

func TestFieldSelectionThroughCallbacks(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.h.HandleUpdate(ctx, command("/start")))

	require.NoError(t, fx.h.HandleUpdate(ctx, press(userID, cb(userID, "field", string(portrait.FieldVibe)))))
	st := fx.sessions.Get(chatID, userID)
	assert.Equal(t, session.MenuField, st.Menu)
	assert.Equal(t, portrait.FieldVibe, st.MenuField)

	// Index 6 is "Warm".
	require.NoError(t, fx.h.HandleUpdate(ctx, press(userID, cb(userID, "set", string(portrait.FieldVibe), "6"))))
	st = fx.sessions.Get(chatID, userID)
	assert.Equal(t, "Warm", st.Form.Vibe)
	assert.Equal(t, session.MenuMain, st.Menu)
	assert.Contains(t, fx.tg.lastScreen(), "• Vibe: Warm")
}

func TestCallbackFromOtherUserIsRefused(t *testing.T) {
	fx := newFixture(t)

	require.NoError(t, fx.h.HandleUpdate(context.Background(), press(999, cb(userID, "save"))))
	assert.True(t, fx.sessions.Get(chatID, userID).Form.SaveProfile)
	assert.Equal(t, []string{"This menu belongs to someone else."}, fx.tg.answers)
}

func TestNotesAndSeedEntry(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.h.HandleUpdate(ctx, press(userID, cb(userID, "note"))))
	require.NoError(t, fx.h.HandleUpdate(ctx, textMsg("wearing glasses")))
	require.NoError(t, fx.h.HandleUpdate(ctx, press(userID, cb(userID, "seed"))))
	require.NoError(t, fx.h.HandleUpdate(ctx, textMsg("1234")))

	st := fx.sessions.Get(chatID, userID)
	assert.Equal(t, "wearing glasses", st.Form.CustomNotes)
	assert.Equal(t, "1234", st.Form.Seed)
	assert.False(t, st.AwaitingNotes)
	assert.False(t, st.AwaitingSeed)

	require.NoError(t, fx.h.HandleUpdate(ctx, press(userID, cb(userID, "seed"))))
	require.NoError(t, fx.h.HandleUpdate(ctx, textMsg("-")))
	assert.Empty(t, fx.sessions.Get(chatID, userID).Form.Seed)
}

func TestFreeTextAppliesCatalogValues(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.h.HandleUpdate(ctx, textMsg("Resume, Academic, Outdoor")))
	st := fx.sessions.Get(chatID, userID)
	assert.Equal(t, "Resume", st.Form.Purpose)
	assert.Equal(t, "Academic", st.Form.Attire)
	assert.Equal(t, "Outdoor", st.Form.Background)

	require.NoError(t, fx.h.HandleUpdate(ctx, textMsg("hello there")))
	assert.Contains(t, fx.tg.lastText(), "Use the editor buttons")
}

func TestGenerateValidationFailure(t *testing.T) {
	fx := newFixture(t)

	require.NoError(t, fx.h.HandleUpdate(context.Background(), command("/generate")))
	st := fx.sessions.Get(chatID, userID)
	assert.Equal(t, portrait.MsgMissingPurpose, st.Status)
	assert.False(t, st.Loading)
	assert.Empty(t, fx.own.Names(context.Background()))
}

func TestGenerateSavesAndSubmits(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.h.HandleUpdate(ctx, command("/portrait LinkedIn Professional")))
	require.NoError(t, fx.h.HandleUpdate(ctx, press(userID, cb(userID, "gen"))))

	st := fx.sessions.Get(chatID, userID)
	assert.False(t, st.Loading)
	assert.Equal(t, "job-9", st.JobID)
	assert.Equal(t, profilestore.DefaultKey(fixedNow()), st.SavedFile)
	assert.Equal(t, pipeline.MsgGenerated+" | 💾 Saved to: "+st.SavedFile+" | 🖼️ Job submitted: job-9", st.Status)
	assert.True(t, strings.HasPrefix(fx.tg.lastText(), "📄 Advanced prompt\n\nProfessional portrait for linkedin"))
	assert.Equal(t, []string{st.SavedFile}, fx.own.Names(ctx))
}

func TestGenerateRefusedWhileInFlight(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, ok := fx.sessions.TryBegin(chatID, userID)
	require.True(t, ok)

	require.NoError(t, fx.h.HandleUpdate(ctx, press(userID, cb(userID, "gen"))))
	assert.Equal(t, []string{"⏳ Generation already in progress"}, fx.tg.answers)
	assert.True(t, fx.sessions.Get(chatID, userID).Loading)
}

func TestSaveToggleAndReset(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.h.HandleUpdate(ctx, press(userID, cb(userID, "save"))))
	assert.False(t, fx.sessions.Get(chatID, userID).Form.SaveProfile)

	require.NoError(t, fx.h.HandleUpdate(ctx, press(userID, cb(userID, "reset"))))
	st := fx.sessions.Get(chatID, userID)
	assert.Equal(t, portrait.DefaultForm(), st.Form)
	assert.Equal(t, 101, st.MessageID)
	assert.Equal(t, "🔄 Form reset", st.Status)
}

func savedProfile(t *testing.T, fx fixture, name string) portrait.Profile {
	t.Helper()
	form := portrait.DefaultForm()
	form.Purpose, form.Attire, form.Background, form.Vibe = "Resume", "Academic", "Library/Academic", "Calm"
	form.CustomNotes = "tweed jacket"
	p := portrait.BuildProfile(form, fixedNow())
	_, err := fx.own.Save(context.Background(), p, name)
	require.NoError(t, err)
	return p
}

func TestProfileLoadExportDelete(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	p := savedProfile(t, fx, "prof-a")

	require.NoError(t, fx.h.HandleUpdate(ctx, press(userID, cb(userID, "menu", string(session.MenuProfiles)))))
	require.NoError(t, fx.h.HandleUpdate(ctx, press(userID, cb(userID, "prof", "0"))))
	st := fx.sessions.Get(chatID, userID)
	assert.Equal(t, session.MenuProfile, st.Menu)
	assert.Equal(t, "prof-a", st.MenuProfile)

	require.NoError(t, fx.h.HandleUpdate(ctx, press(userID, cb(userID, "export"))))
	require.Len(t, fx.tg.docs, 1)
	assert.Equal(t, "prof-a.json", fx.tg.docs[0].name)
	want, err := profilestore.MarshalExport(p)
	require.NoError(t, err)
	assert.Equal(t, want, fx.tg.docs[0].data)

	require.NoError(t, fx.h.HandleUpdate(ctx, press(userID, cb(userID, "load"))))
	st = fx.sessions.Get(chatID, userID)
	assert.Equal(t, "Resume", st.Form.Purpose)
	assert.Equal(t, "tweed jacket", st.Form.CustomNotes)
	assert.True(t, st.Form.SaveProfile)

	require.NoError(t, fx.h.HandleUpdate(ctx, press(userID, cb(userID, "prof", "0"))))
	require.NoError(t, fx.h.HandleUpdate(ctx, press(userID, cb(userID, "del"))))
	assert.Empty(t, fx.own.Names(ctx))
	assert.Equal(t, "🗑️ Deleted profile: prof-a", fx.sessions.Get(chatID, userID).Status)
}

func TestImportDocuments(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	form := portrait.DefaultForm()
	form.Purpose, form.Attire, form.Background, form.Vibe = "Other", "Other", "Other", "Warm"
	good, err := json.Marshal(portrait.BuildProfile(form, fixedNow()))
	require.NoError(t, err)
	fx.tg.files["good"] = good
	fx.tg.files["bad"] = []byte("{oops")

	fx.h.HandleMediaGroup(ctx, mediagroup.Group{
		ChatID: chatID,
		UserID: userID,
		Files: []mediagroup.File{
			{ID: "good", Name: "mine.json"},
			{ID: "bad", Name: "broken.json"},
			{ID: "missing", Name: "gone.json"},
		},
	})

	report := fx.tg.texts[0]
	assert.Contains(t, report, "✅ mine")
	assert.Contains(t, report, "❌ broken: invalid JSON file")
	assert.Contains(t, report, "❌ gone: failed to read file")

	assert.Equal(t, []string{"mine"}, fx.own.Names(ctx))
	st := fx.sessions.Get(chatID, userID)
	assert.Equal(t, "Warm", st.Form.Vibe)
	assert.Equal(t, "📥 Profile imported", st.Status)
}

func TestPhotoSetsReferencePhoto(t *testing.T) {
	fx := newFixture(t)

	update := telegram.Update{Message: &tgbotapi.Message{
		MessageID: 3,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Document:  &tgbotapi.Document{FileID: "f", FileName: "me.png", MimeType: "image/png"},
	}}
	require.NoError(t, fx.h.HandleUpdate(context.Background(), update))
	assert.Equal(t, "me.png", fx.sessions.Get(chatID, userID).Form.ReferencePhoto)

	require.NoError(t, fx.h.HandleUpdate(context.Background(), press(userID, cb(userID, "nophoto"))))
	assert.Empty(t, fx.sessions.Get(chatID, userID).Form.ReferencePhoto)
}

func TestProfilesArePrivateToTheirOwner(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	const otherID = int64(30)

	require.NoError(t, fx.h.HandleUpdate(ctx, command("/portrait Academic Profile")))
	require.NoError(t, fx.h.HandleUpdate(ctx, press(userID, cb(userID, "gen"))))
	saved := fx.sessions.Get(chatID, userID).SavedFile
	require.NotEmpty(t, saved)
	assert.Equal(t, []string{saved}, fx.own.Names(ctx))
	assert.Empty(t, fx.store.Names(ctx))

	other := fx.store.For("30")
	assert.Empty(t, fx.h.profileNames(ctx, otherID))

	require.NoError(t, fx.h.HandleUpdate(ctx, press(otherID, cb(otherID, "prof", "0"))))
	st := fx.sessions.Get(chatID, otherID)
	assert.Empty(t, st.MenuProfile)

	require.NoError(t, fx.h.profileAction(ctx, chatID, otherID, "del", saved))
	assert.Equal(t, []string{saved}, fx.own.Names(ctx))
	assert.Empty(t, other.Names(ctx))

	require.NoError(t, fx.h.profileAction(ctx, chatID, otherID, "load", saved))
	assert.Equal(t, "❌ Profile not found: "+saved, fx.sessions.Get(chatID, otherID).Status)
}
