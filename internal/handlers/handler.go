package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"apex-portrait/internal/mediagroup"
	"apex-portrait/internal/pipeline"
	"apex-portrait/internal/portrait"
	"apex-portrait/internal/profilestore"
	"apex-portrait/internal/session"
	"apex-portrait/internal/telegram"
)

const (
	maxImportBytes    = 1 << 20
	maxParallelImport = 4
)

// Messenger is the part of the Telegram client the handlers use.
type Messenger interface {
	SendTyping(chatID int64)
	SendText(chatID int64, text string) error
	SendTextWithKeyboard(chatID int64, text string, kb telegram.Keyboard) (int, error)
	EditTextWithKeyboard(chatID int64, messageID int, text string, kb telegram.Keyboard) error
	AnswerCallback(callbackID, text string) error
	SendDocument(chatID int64, filename string, data []byte, caption string) error
	DownloadFile(ctx context.Context, fileID string, maxBytes int64) ([]byte, error)
}

type Options struct {
	Telegram  Messenger
	Generator *pipeline.Generator
	// Store is the base store; each Telegram user gets its own namespace under it.
	Store     *profilestore.Store
	Presets   *portrait.PresetBook
	Sessions  *session.Store
	Logger    *slog.Logger
}

type Handler struct {
	tg         Messenger
	gen        *pipeline.Generator
	store      *profilestore.Store
	presets    *portrait.PresetBook
	sessions   *session.Store
	logger     *slog.Logger
	aggregator *mediagroup.Aggregator
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	presets := opts.Presets
	if presets == nil {
		presets = portrait.DefaultPresetBook()
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewStore()
	}

	return &Handler{
		tg:       opts.Telegram,
		gen:      opts.Generator,
		store:    opts.Store,
		presets:  presets,
		sessions: sessions,
		logger:   logger,
	}
}

// storeFor returns userID's own profile store, or nil when storage is off.
func (h *Handler) storeFor(userID int64) *profilestore.Store {
	if h.store == nil {
		return nil
	}
	return h.store.For(strconv.FormatInt(userID, 10))
}

func (h *Handler) SetMediaGroupAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, userID, msg)
	}

	if len(msg.Photo) > 0 {
		return h.handlePhoto(ctx, chatID, userID, msg)
	}

	if msg.Document != nil {
		return h.handleDocument(ctx, chatID, userID, msg)
	}

	if msg.Text != "" {
		return h.handleText(ctx, chatID, userID, msg.Text)
	}

	return nil
}

func (h *Handler) HandleMediaGroup(ctx context.Context, group mediagroup.Group) {
	if err := h.importDocuments(ctx, group.ChatID, group.UserID, group.Files); err != nil {
		h.logger.Error("media group import failed", "err", err)
	}
}

func (h *Handler) handleCommand(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start", "portrait":
		return h.startWizard(ctx, chatID, userID, msg.CommandArguments())
	case "help":
		return h.tg.SendText(chatID, helpText)
	case "presets":
		return h.openMenu(ctx, chatID, userID, session.MenuPresets)
	case "profiles":
		return h.openMenu(ctx, chatID, userID, session.MenuProfiles)
	case "generate":
		return h.generate(ctx, chatID, userID, "")
	case "clear":
		h.sessions.Reset(chatID, userID)
		h.sessions.Update(chatID, userID, func(st *session.Session) { st.Status = "🧹 Form cleared" })
		return h.renderWizard(ctx, chatID, userID, 0, false)
	case "cancel":
		h.sessions.Update(chatID, userID, func(st *session.Session) {
			st.AwaitingNotes = false
			st.AwaitingSeed = false
			st.Menu = session.MenuMain
		})
		return h.tg.SendText(chatID, "✅ Cancelled.")
	default:
		return h.tg.SendText(chatID, "❌ Unknown command. Use /help.")
	}
}

const helpText = "🎨 APEX Portrait Generator\n\n" +
	"/start or /portrait [preset or values] – open the editor\n" +
	"   e.g. /portrait LinkedIn, Business Formal, Outdoor, Warm\n" +
	"/presets – choose a preset\n" +
	"/profiles – saved profiles\n" +
	"/generate – generate from the current form\n" +
	"/clear – reset the form\n" +
	"/cancel – stop entering notes or a seed\n\n" +
	"Send a photo to set the reference photo. Send exported .json files to import profiles."

func (h *Handler) handleText(ctx context.Context, chatID, userID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	st := h.sessions.Get(chatID, userID)
	switch {
	case st.AwaitingNotes:
		h.sessions.Update(chatID, userID, func(st *session.Session) {
			st.Form.CustomNotes = text
			st.AwaitingNotes = false
			st.Status = "📝 Notes updated"
		})
	case st.AwaitingSeed:
		seed := normalizeSeed(text)
		h.sessions.Update(chatID, userID, func(st *session.Session) {
			st.Form.Seed = seed
			st.AwaitingSeed = false
			st.Status = "🎲 Seed updated"
		})
	case looksLikeFormInput(text, h.presets):
		h.sessions.Update(chatID, userID, func(st *session.Session) {
			before := st.Form.PresetName
			st.Form = portrait.ParseArgs(text, st.Form, h.presets)
			st.Status = "✏️ Form updated"
			if st.Form.PresetName != "" && st.Form.PresetName != before {
				st.Status = portrait.AppliedPresetStatus(st.Form.PresetName)
			}
		})
	default:
		return h.tg.SendText(chatID, "ℹ️ Use the editor buttons, or press 📝 Notes before sending free text. /help")
	}

	return h.renderWizard(ctx, chatID, userID, 0, false)
}

func (h *Handler) handlePhoto(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	photo := msg.Photo[len(msg.Photo)-1]
	name := "telegram_photo_" + photo.FileUniqueID + ".jpg"
	return h.setReferencePhoto(ctx, chatID, userID, name)
}

func (h *Handler) handleDocument(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	doc := msg.Document

	switch {
	case isJSONDocument(doc.FileName, doc.MimeType):
		if msg.MediaGroupID != "" && h.aggregator != nil {
			h.aggregator.Add(mediagroup.Item{
				ChatID:       chatID,
				UserID:       userID,
				Username:     msg.From.UserName,
				MediaGroupID: msg.MediaGroupID,
				Caption:      msg.Caption,
				FileID:       doc.FileID,
				FileName:     doc.FileName,
			})
			return nil
		}
		return h.importDocuments(ctx, chatID, userID, []mediagroup.File{{ID: doc.FileID, Name: doc.FileName}})
	case isImageDocument(doc.FileName, doc.MimeType):
		return h.setReferencePhoto(ctx, chatID, userID, doc.FileName)
	default:
		return h.tg.SendText(chatID, "❌ Unsupported file. Send an image or an exported .json profile.")
	}
}

func (h *Handler) setReferencePhoto(ctx context.Context, chatID, userID int64, name string) error {
	h.sessions.Update(chatID, userID, func(st *session.Session) {
		st.Form.ReferencePhoto = name
		st.Status = "📷 Reference photo set: " + path.Base(name)
	})
	return h.renderWizard(ctx, chatID, userID, 0, false)
}

type importResult struct {
	name    string
	profile portrait.Profile
	err     error
}

// importDocuments downloads and parses the files in parallel. Each parsed
// profile is saved under its file name; the last one is loaded into the form.
func (h *Handler) importDocuments(ctx context.Context, chatID, userID int64, files []mediagroup.File) error {
	if len(files) == 0 {
		return nil
	}
	h.tg.SendTyping(chatID)

	results := make([]importResult, len(files))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxParallelImport)
	for i, f := range files {
		i, f := i, f
		eg.Go(func() error {
			results[i].name = importName(f.Name, i)
			data, err := h.tg.DownloadFile(egCtx, f.ID, maxImportBytes)
			if err != nil {
				results[i].err = fmt.Errorf("%w: %v", profilestore.ErrRead, err)
				return nil
			}
			results[i].profile, results[i].err = profilestore.Parse(data)
			return nil
		})
	}
	_ = eg.Wait()

	store := h.storeFor(userID)
	var lines []string
	var loaded *portrait.Profile
	for i := range results {
		r := results[i]
		if r.err != nil {
			h.logger.Warn("profile import failed", "file", r.name, "err", r.err)
			lines = append(lines, "❌ "+r.name+": "+importErrorText(r.err))
			continue
		}

		line := "✅ " + r.name
		if store != nil {
			if _, err := store.Save(ctx, r.profile, r.name); err != nil {
				h.logger.Error("imported profile save failed", "file", r.name, "err", err)
				line += " (⚠️ not saved)"
			}
		}
		lines = append(lines, line)
		loaded = &results[i].profile
	}

	if loaded != nil {
		p := *loaded
		h.sessions.Update(chatID, userID, func(st *session.Session) {
			st.Form = st.Form.WithProfile(p)
			st.Status = "📥 Profile imported"
		})
	}

	if err := h.tg.SendText(chatID, "📥 Import\n"+strings.Join(lines, "\n")); err != nil {
		return err
	}
	if loaded == nil {
		return nil
	}
	return h.renderWizard(ctx, chatID, userID, 0, false)
}
