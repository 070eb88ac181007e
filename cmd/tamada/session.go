package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/okunev/tamada/pkg/tamada"
	"github.com/okunev/tamada/pkg/tamada/internalerr"
	"github.com/okunev/tamada/pkg/tamada/stage"
)

// Button labels shown to the user. Input matching is exact, the way the
// original keyboard worked.
const (
	btnAbout      = "Расскажи, что ты умеешь!"
	btnStart      = "Перейти к использованию"
	btnHelp       = "Мне нужна помощь"
	btnHome       = "На главную"
	btnSelect     = "Выбери тост"
	btnGenerate   = "Сгенерируй тост"
	btnRandom     = "Рандомный тост"
	btnByTags     = "Тост по тегам"
	btnLike       = "👍"
	btnDislike    = "👎"
	btnChangeTags = "Изменить теги"
)

const (
	msgStart = "Привет! Я тамада-бот: храню коллекцию тостов и умею сочинять новые.\n" +
		"Могу подобрать готовый тост или сгенерировать свой, случайный или на заданную тему."
	msgHelp = "Нажмите «Выбери тост», чтобы получить тост из коллекции, или\n" +
		"«Сгенерируй тост», чтобы я сочинил новый. В обоих режимах можно\n" +
		"попросить случайный тост или тост по тегам, а потом оценить его\n" +
		"кнопками " + btnLike + " и " + btnDislike + "."
	msgMainMenu      = "Выбрать тост или сгенерировать его?"
	msgCategoryMenu  = "Вам нужен произвольный тост или тост по тегам?"
	msgGimmeTags     = "Пришлите мне теги или описание тоста, например, тост-притча или тост на день рождения брата"
	msgTagNotFound   = "По заданным тегам не найдено ни одного тоста ☹️"
	msgExhausted     = "Тосты закончились! Вы видели всё, что у меня есть 🥂"
	msgCannotMake    = "Не получилось сочинить новый тост, попробуйте другие теги"
	msgNotUnderstood = "Я всего лишь тамада и умею только присылать тосты.\nЕсли что-то пошло не так, нажмите «Мне нужна помощь»."
)

// Session drives one chat's dialogue over a line-based transport.
type Session struct {
	eng    *tamada.Engine
	chatID int64
	out    io.Writer
}

// NewSession creates a session for one chat.
func NewSession(eng *tamada.Engine, chatID int64, out io.Writer) *Session {
	return &Session{eng: eng, chatID: chatID, out: out}
}

func (s *Session) reply(text string, buttons ...string) {
	fmt.Fprintln(s.out, text)
	if len(buttons) > 0 {
		fmt.Fprintf(s.out, "[%s]\n", strings.Join(buttons, " | "))
	}
	fmt.Fprintln(s.out)
}

// Handle processes one line of user input.
func (s *Session) Handle(ctx context.Context, input string) error {
	input = strings.TrimSpace(input)

	switch input {
	case "/start":
		return s.start(ctx)
	case "/help", btnAbout, btnHelp:
		return s.mainMenu(ctx, true)
	case "/menu", btnStart, btnHome:
		return s.mainMenu(ctx, false)
	case btnSelect:
		return s.categoryMenu(ctx, stage.SelectMenu)
	case btnGenerate:
		return s.categoryMenu(ctx, stage.GenerateMenu)
	case "/select_random_toast":
		return s.serve(ctx, stage.SelectRandom, nil)
	case "/generate_random_toast":
		return s.serve(ctx, stage.GenerateRandom, nil)
	case "/select_keywords_toast":
		return s.gimmeTags(ctx, stage.SelectTagPrompt)
	case "/generate_keywords_toast":
		return s.gimmeTags(ctx, stage.GenerateTagPrompt)
	case btnByTags, btnChangeTags:
		return s.tagPrompt(ctx)
	case btnRandom, btnLike, btnDislike:
		return s.nextToast(ctx, input)
	default:
		return s.freeText(ctx, input)
	}
}

func (s *Session) start(ctx context.Context) error {
	if err := s.eng.RecordStage(ctx, s.chatID, stage.Start); err != nil {
		return err
	}
	s.reply(msgStart, btnAbout, btnStart)
	return nil
}

func (s *Session) mainMenu(ctx context.Context, help bool) error {
	if err := s.eng.RecordStage(ctx, s.chatID, stage.MainMenu); err != nil {
		return err
	}
	msg := msgMainMenu
	if help {
		msg = msgHelp
	}
	s.reply(msg, btnSelect, btnGenerate)
	return nil
}

func (s *Session) categoryMenu(ctx context.Context, menu stage.Stage) error {
	if err := s.eng.RecordStage(ctx, s.chatID, menu); err != nil {
		return err
	}
	s.reply(msgCategoryMenu, btnRandom, btnByTags, btnHome)
	return nil
}

// tagPrompt handles both "toast by tags" from a category menu and
// "change tags" after a tag-scoped toast: the chat's current flow
// decides which prompt stage it lands on.
func (s *Session) tagPrompt(ctx context.Context) error {
	last, err := s.eng.LastStage(ctx, s.chatID)
	if err != nil {
		if errors.Is(err, internalerr.ErrNotFound) {
			return s.mainMenu(ctx, true)
		}
		return err
	}
	prompt, ok := last.TagPrompt()
	if !ok {
		return s.mainMenu(ctx, true)
	}
	return s.gimmeTags(ctx, prompt)
}

func (s *Session) gimmeTags(ctx context.Context, prompt stage.Stage) error {
	if err := s.eng.RecordStage(ctx, s.chatID, prompt); err != nil {
		return err
	}
	s.reply(msgGimmeTags)
	return nil
}

// nextToast handles the buttons shared by every toast view: a reaction
// or a request for another random toast.
func (s *Session) nextToast(ctx context.Context, input string) error {
	if input == btnLike || input == btnDislike {
		err := s.eng.React(ctx, s.chatID, input == btnLike)
		if err != nil && !errors.Is(err, internalerr.ErrNotFound) {
			return err
		}
	}

	resp, err := s.eng.RespondToReaction(ctx, s.chatID)
	if err != nil {
		return s.serveFailure(err, false)
	}
	if err := s.eng.RecordStage(ctx, s.chatID, resp.Stage); err != nil {
		return err
	}
	s.replyToast(resp.Text, resp.TagScoped)
	return nil
}

// freeText is meaningful only right after a tag prompt; anything else
// gets the "I'm just a toastmaster" shrug.
func (s *Session) freeText(ctx context.Context, input string) error {
	last, err := s.eng.LastStage(ctx, s.chatID)
	if err != nil && !errors.Is(err, internalerr.ErrNotFound) {
		return err
	}

	serveStage, ok := last.AfterTagEntry()
	if err != nil || !ok {
		s.reply(msgNotUnderstood, btnHelp, btnHome)
		return nil
	}

	tags, err := s.eng.TagsFromMessage(ctx, s.chatID, input)
	if err != nil {
		if errors.Is(err, internalerr.ErrInvalidInput) {
			s.reply(msgTagNotFound, btnChangeTags, btnHome)
			return nil
		}
		return err
	}
	return s.serve(ctx, serveStage, tags)
}

// serve records the stage and sends one toast for it.
func (s *Session) serve(ctx context.Context, st stage.Stage, tags []string) error {
	if err := s.eng.RecordStage(ctx, s.chatID, st); err != nil {
		return err
	}

	var text string
	var err error
	if st.IsSelect() {
		text, err = s.eng.Select(ctx, s.chatID, tags)
	} else {
		text, err = s.eng.Generate(ctx, s.chatID, tags)
	}
	if err != nil {
		return s.serveFailure(err, st.IsTagScoped())
	}

	s.replyToast(text, st.IsTagScoped())
	return nil
}

func (s *Session) serveFailure(err error, tagScoped bool) error {
	switch {
	case tamada.IsNoMatch(err):
		if tagScoped {
			s.reply(msgTagNotFound, btnChangeTags, btnHome)
		} else {
			s.reply(msgExhausted, btnHome)
		}
		return nil
	case tamada.IsDegenerate(err):
		s.reply(msgCannotMake, btnChangeTags, btnHome)
		return nil
	case errors.Is(err, internalerr.ErrNotFound):
		s.reply(msgNotUnderstood, btnHelp, btnHome)
		return nil
	}
	return err
}

func (s *Session) replyToast(text string, tagScoped bool) {
	buttons := []string{btnLike, btnDislike, btnHome}
	if tagScoped {
		buttons = append(buttons, btnChangeTags)
	}
	s.reply(text, buttons...)
}
