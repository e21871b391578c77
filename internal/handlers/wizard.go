package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"apex-portrait/internal/pipeline"
	"apex-portrait/internal/portrait"
	"apex-portrait/internal/profilestore"
	"apex-portrait/internal/session"
)

const (
	callbackPrefix   = "ap"
	maxProfileButton = 20
)

func (h *Handler) startWizard(ctx context.Context, chatID, userID int64, args string) error {
	st := h.sessions.Update(chatID, userID, func(st *session.Session) {
		st.Form = portrait.ParseArgs(args, st.Form, h.presets)
		st.Menu = session.MenuMain
		st.AwaitingNotes = false
		st.AwaitingSeed = false
		if st.Form.PresetName != "" && strings.TrimSpace(args) != "" {
			st.Status = portrait.AppliedPresetStatus(st.Form.PresetName)
		}
	})

	msgID, err := h.tg.SendTextWithKeyboard(chatID, wizardText(st), h.wizardKeyboard(ctx, userID, st))
	if err != nil {
		return err
	}
	h.sessions.Update(chatID, userID, func(st *session.Session) { st.MessageID = msgID })
	return nil
}

func (h *Handler) openMenu(ctx context.Context, chatID, userID int64, menu session.Menu) error {
	h.sessions.Update(chatID, userID, func(st *session.Session) { st.Menu = menu })
	return h.renderWizard(ctx, chatID, userID, 0, false)
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil || q.From == nil {
		return nil
	}

	ownerID, action, args, ok := parseCallback(q.Data)
	if !ok {
		return nil
	}
	if ownerID != q.From.ID {
		_ = h.tg.AnswerCallback(q.ID, "This menu belongs to someone else.")
		return nil
	}

	chatID := q.Message.Chat.ID
	msgID := q.Message.MessageID

	switch action {
	case "gen":
		h.sessions.Update(chatID, ownerID, func(st *session.Session) { st.MessageID = msgID })
		return h.generate(ctx, chatID, ownerID, q.ID)
	case "reset":
		h.sessions.Reset(chatID, ownerID)
		h.sessions.Update(chatID, ownerID, func(st *session.Session) {
			st.MessageID = msgID
			st.Status = "🔄 Form reset"
		})
		_ = h.tg.AnswerCallback(q.ID, "")
		return h.renderWizard(ctx, chatID, ownerID, msgID, true)
	}

	var names []string
	if action == "prof" {
		names = h.profileNames(ctx, ownerID)
	}
	answer := ""

	updated := h.sessions.Update(chatID, ownerID, func(st *session.Session) {
		st.MessageID = msgID

		switch action {
		case "menu":
			if len(args) >= 1 {
				st.Menu = session.Menu(args[0])
			}
		case "field":
			if len(args) >= 1 {
				st.Menu = session.MenuField
				st.MenuField = portrait.Field(args[0])
			}
		case "set":
			if len(args) >= 2 {
				field := portrait.Field(args[0])
				if opt, ok := optionAt(field, args[1]); ok {
					st.Form = st.Form.Set(field, opt.Value)
					st.Status = fmt.Sprintf("%s: %s", field.Title(), opt.Value)
				}
			}
			st.Menu = session.MenuMain
		case "preset":
			if p, ok := h.presetAt(args); ok {
				st.Form, _ = h.presets.Apply(st.Form, p.Name)
				st.Status = portrait.AppliedPresetStatus(p.Name)
				answer = st.Status
			}
			st.Menu = session.MenuMain
		case "note":
			st.AwaitingNotes = true
			st.AwaitingSeed = false
			st.Menu = session.MenuMain
		case "seed":
			st.AwaitingSeed = true
			st.AwaitingNotes = false
			st.Menu = session.MenuMain
		case "save":
			st.Form.SaveProfile = !st.Form.SaveProfile
		case "nophoto":
			st.Form.ReferencePhoto = ""
		case "prof":
			if name, ok := nameAt(names, args); ok {
				st.Menu = session.MenuProfile
				st.MenuProfile = name
			}
		case "close":
			st.AwaitingNotes = false
			st.AwaitingSeed = false
			st.Menu = session.MenuMain
		}
	})

	switch action {
	case "note":
		_ = h.tg.AnswerCallback(q.ID, "Send your notes (/cancel to stop).")
		_ = h.tg.SendText(chatID, "📝 Send additional notes for the portrait (/cancel to stop).")
	case "seed":
		_ = h.tg.AnswerCallback(q.ID, "Send a seed (/cancel to stop).")
		_ = h.tg.SendText(chatID, "🎲 Send a seed number or text. Send - to clear it.")
	case "prompt":
		_ = h.tg.AnswerCallback(q.ID, "")
		if v := updated.Form.Validate(); !v.IsValid {
			_ = h.tg.SendText(chatID, v.Message)
		} else {
			_ = h.tg.SendText(chatID, "📄 Advanced prompt\n\n"+portrait.GenerateAdvancedPrompt(updated.Form))
		}
	case "load", "export", "del":
		_ = h.tg.AnswerCallback(q.ID, "")
		if err := h.profileAction(ctx, chatID, ownerID, action, updated.MenuProfile); err != nil {
			return err
		}
	default:
		_ = h.tg.AnswerCallback(q.ID, answer)
	}

	return h.renderWizard(ctx, chatID, ownerID, msgID, true)
}

func (h *Handler) profileAction(ctx context.Context, chatID, userID int64, action, name string) error {
	store := h.storeFor(userID)
	if store == nil || name == "" {
		return nil
	}

	switch action {
	case "load":
		p, ok := store.Load(ctx, name)
		h.sessions.Update(chatID, userID, func(st *session.Session) {
			st.Menu = session.MenuMain
			if !ok {
				st.Status = "❌ Profile not found: " + name
				return
			}
			st.Form = st.Form.WithProfile(p)
			st.Status = "📂 Loaded profile: " + name
		})
	case "export":
		p, ok := store.Load(ctx, name)
		if !ok {
			return h.tg.SendText(chatID, "❌ Profile not found: "+name)
		}
		data, err := profilestore.MarshalExport(p)
		if err != nil {
			h.logger.Error("profile export failed", "name", name, "err", err)
			return h.tg.SendText(chatID, "❌ Export failed.")
		}
		return h.tg.SendDocument(chatID, profilestore.ExportFilename(name), data, "📤 "+name)
	case "del":
		deleted := store.Delete(ctx, name)
		h.sessions.Update(chatID, userID, func(st *session.Session) {
			st.Menu = session.MenuProfiles
			st.MenuProfile = ""
			if deleted {
				st.Status = "🗑️ Deleted profile: " + name
			} else {
				st.Status = "⚠️ Could not delete profile: " + name
			}
		})
	}
	return nil
}

// generate runs the pipeline for the session's form. A run already in flight
// for the same user is refused, not queued.
func (h *Handler) generate(ctx context.Context, chatID, userID int64, callbackID string) error {
	if h.gen == nil {
		return h.tg.SendText(chatID, "❌ Generation is not configured.")
	}

	st, ok := h.sessions.TryBegin(chatID, userID)
	if !ok {
		if callbackID != "" {
			return h.tg.AnswerCallback(callbackID, "⏳ Generation already in progress")
		}
		return h.tg.SendText(chatID, "⏳ Generation already in progress")
	}
	if callbackID != "" {
		_ = h.tg.AnswerCallback(callbackID, "Generating…")
	}
	h.tg.SendTyping(chatID)

	out := h.run(ctx, chatID, userID, st.Form)

	h.sessions.Update(chatID, userID, func(st *session.Session) {
		st.Status = out.Status()
		st.Prompt = out.Prompt
		st.SavedFile = out.Save.Key
		st.JobID = out.Submit.JobID
		st.Menu = session.MenuMain
		st.AwaitingNotes = false
		st.AwaitingSeed = false
	})

	if out.Generated() {
		if err := h.tg.SendText(chatID, "📄 Advanced prompt\n\n"+out.Prompt); err != nil {
			return err
		}
	}
	return h.renderWizard(ctx, chatID, userID, st.MessageID, true)
}

func (h *Handler) run(ctx context.Context, chatID, userID int64, form portrait.FormData) pipeline.Outcome {
	defer h.sessions.End(chatID, userID)

	gen := h.gen
	if store := h.storeFor(userID); store != nil {
		gen = gen.WithSaver(store)
	}
	return gen.Generate(ctx, form)
}

func (h *Handler) renderWizard(ctx context.Context, chatID, userID int64, messageID int, edit bool) error {
	st := h.sessions.Get(chatID, userID)
	if messageID == 0 {
		messageID = st.MessageID
	}

	text := wizardText(st)
	kb := h.wizardKeyboard(ctx, userID, st)

	if edit && messageID != 0 {
		if err := h.tg.EditTextWithKeyboard(chatID, messageID, text, kb); err == nil {
			return nil
		}
	}

	msgID, err := h.tg.SendTextWithKeyboard(chatID, text, kb)
	if err != nil {
		return err
	}
	h.sessions.Update(chatID, userID, func(st *session.Session) { st.MessageID = msgID })
	return nil
}

func (h *Handler) profileNames(ctx context.Context, userID int64) []string {
	store := h.storeFor(userID)
	if store == nil {
		return nil
	}
	return store.Names(ctx)
}

func (h *Handler) presetAt(args []string) (portrait.Preset, bool) {
	if len(args) < 1 {
		return portrait.Preset{}, false
	}
	idx, err := strconv.Atoi(args[0])
	list := h.presets.List()
	if err != nil || idx < 0 || idx >= len(list) {
		return portrait.Preset{}, false
	}
	return list[idx], true
}

func optionAt(field portrait.Field, raw string) (portrait.Option, bool) {
	idx, err := strconv.Atoi(raw)
	opts := portrait.OptionsFor(field)
	if err != nil || idx < 0 || idx >= len(opts) {
		return portrait.Option{}, false
	}
	return opts[idx], true
}

func nameAt(names []string, args []string) (string, bool) {
	if len(args) < 1 {
		return "", false
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil || idx < 0 || idx >= len(names) {
		return "", false
	}
	return names[idx], true
}

func wizardText(st session.Session) string {
	f := st.Form

	var b strings.Builder
	b.WriteString("🎨 APEX Portrait Generator\n\n")
	b.WriteString("Basic info\n")
	for _, field := range portrait.Fields() {
		if field == portrait.FieldLighting {
			b.WriteString("\nAdvanced\n")
		}
		b.WriteString(fmt.Sprintf("• %s: %s\n", field.Title(), orDash(f.Get(field))))
	}
	b.WriteString(fmt.Sprintf("• Seed: %s\n", orText(f.Seed, "random")))
	b.WriteString(fmt.Sprintf("• Reference photo: %s\n", orText(f.ReferencePhoto, "(none)")))
	if strings.TrimSpace(f.CustomNotes) != "" {
		b.WriteString("• Notes: " + truncateLine(f.CustomNotes, 120) + "\n")
	}
	if f.PresetName != "" {
		b.WriteString("• Preset: " + f.PresetName + "\n")
	}
	b.WriteString(fmt.Sprintf("\n💾 Save profile: %s\n", onOff(f.SaveProfile)))

	if st.Menu == session.MenuProfile && st.MenuProfile != "" {
		b.WriteString("\n📂 Selected profile: " + st.MenuProfile + "\n")
	}

	switch {
	case st.Loading:
		b.WriteString("\n⏳ Generating…\n")
	case st.AwaitingNotes:
		b.WriteString("\n📝 Send your notes now (/cancel to stop).\n")
	case st.AwaitingSeed:
		b.WriteString("\n🎲 Send a seed now (/cancel to stop).\n")
	}

	if st.Status != "" {
		b.WriteString("\n" + st.Status + "\n")
	}

	return strings.TrimSpace(b.String())
}

func (h *Handler) wizardKeyboard(ctx context.Context, ownerID int64, st session.Session) tgbotapi.InlineKeyboardMarkup {
	switch st.Menu {
	case session.MenuField:
		return fieldKeyboard(ownerID, st.MenuField, st.Form.Get(st.MenuField))
	case session.MenuPresets:
		return presetsKeyboard(ownerID, h.presets.List(), st.Form.PresetName)
	case session.MenuProfiles:
		return profilesKeyboard(ownerID, h.profileNames(ctx, ownerID))
	case session.MenuProfile:
		return profileKeyboard(ownerID)
	default:
		return mainKeyboard(ownerID, st.Form)
	}
}

func mainKeyboard(ownerID int64, f portrait.FormData) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, field := range portrait.Fields() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(fieldButtonLabel(field, f.Get(field)), cb(ownerID, "field", string(field))))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	photoRow := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("📝 Notes", cb(ownerID, "note")),
		tgbotapi.NewInlineKeyboardButtonData("🎲 Seed", cb(ownerID, "seed")),
	}
	if f.ReferencePhoto != "" {
		photoRow = append(photoRow, tgbotapi.NewInlineKeyboardButtonData("🚫 Photo", cb(ownerID, "nophoto")))
	}

	rows = append(rows,
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("✨ Presets", cb(ownerID, "menu", string(session.MenuPresets))),
			tgbotapi.NewInlineKeyboardButtonData("📂 Profiles", cb(ownerID, "menu", string(session.MenuProfiles))),
		},
		photoRow,
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("💾 Save: "+onOff(f.SaveProfile), cb(ownerID, "save")),
			tgbotapi.NewInlineKeyboardButtonData("📄 Prompt", cb(ownerID, "prompt")),
		},
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("🚀 Generate", cb(ownerID, "gen")),
		},
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("🔄 Reset", cb(ownerID, "reset")),
			tgbotapi.NewInlineKeyboardButtonData("Close", cb(ownerID, "close")),
		},
	)

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func fieldKeyboard(ownerID int64, field portrait.Field, current string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton

	for i, opt := range portrait.OptionsFor(field) {
		label := opt.Label
		if opt.Value == current {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "set", string(field), strconv.Itoa(i))))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, backRow(ownerID, session.MenuMain))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func presetsKeyboard(ownerID int64, presets []portrait.Preset, current string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, p := range presets {
		label := p.Name
		if p.Name == current {
			label = "✅ " + label
		}
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "preset", strconv.Itoa(i))),
		})
	}
	rows = append(rows, backRow(ownerID, session.MenuMain))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func profilesKeyboard(ownerID int64, names []string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, name := range names {
		if i >= maxProfileButton {
			break
		}
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("📄 "+truncateLine(name, 40), cb(ownerID, "prof", strconv.Itoa(i))),
		})
	}
	rows = append(rows, backRow(ownerID, session.MenuMain))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func profileKeyboard(ownerID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("📂 Load", cb(ownerID, "load")),
			tgbotapi.NewInlineKeyboardButtonData("📤 Export", cb(ownerID, "export")),
		},
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("🗑️ Delete", cb(ownerID, "del")),
			tgbotapi.NewInlineKeyboardButtonData("⬅ Back", cb(ownerID, "menu", string(session.MenuProfiles))),
		},
	)
}

func backRow(ownerID int64, menu session.Menu) []tgbotapi.InlineKeyboardButton {
	return []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅ Back", cb(ownerID, "menu", string(menu))),
	}
}

func fieldButtonLabel(field portrait.Field, value string) string {
	if value == "" {
		return field.Title() + ": —"
	}
	for _, o := range portrait.OptionsFor(field) {
		if o.Value == value && o.Icon != "" {
			return o.Icon + " " + truncateLine(value, 24)
		}
	}
	return field.Title() + ": " + truncateLine(value, 24)
}

func cb(ownerID int64, parts ...string) string {
	return fmt.Sprintf("%s:%d:%s", callbackPrefix, ownerID, strings.Join(parts, ":"))
}

func parseCallback(data string) (ownerID int64, action string, args []string, ok bool) {
	data = strings.TrimSpace(data)
	if !strings.HasPrefix(data, callbackPrefix+":") {
		return 0, "", nil, false
	}
	parts := strings.Split(data, ":")
	if len(parts) < 3 {
		return 0, "", nil, false
	}
	ownerID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, "", nil, false
	}
	return ownerID, parts[2], parts[3:], true
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

func orDash(s string) string {
	return orText(s, "—")
}

func orText(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func truncateLine(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}
