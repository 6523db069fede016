// Package conversation owns the dialogue session with an NPC: its history,
// the pending input line and the text or speech mode turns are taken in.
//
// All methods except HandleUtterance must be called from the frame
// goroutine. Background turns hand their results back through an inbox
// that Update applies, so history order follows processing order.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	log "log/slog"

	"github.com/atotto/clipboard"
	"github.com/google/uuid"

	"venture/internal/input"
	"venture/internal/observe"
	"venture/internal/proximity"
	"venture/internal/speech"
	"venture/internal/world"
	"venture/pkg/inference"
	"venture/pkg/voice"
)

type Speaker string

const (
	Player Speaker = "Player"
	Npc    Speaker = "Npc"
	System Speaker = "System"
)

type Entry struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

const (
	NoticeInterrupted         = "NPC speech interrupted"
	NoticePreviousInterrupted = "Previous response interrupted"
)

func Greeting(npc proximity.Role) string {
	return fmt.Sprintf("Hello! I'm the %s. How can I help you today?", npc)
}

// Inference produces NPC replies.
type Inference interface {
	GetResponse(ctx context.Context, prompt string) (inference.Response, error)
	Complete(ctx context.Context, prompt string) (string, error)
}

// Speech is the voice side of a conversation.
type Speech interface {
	StartListening(handler speech.UtteranceHandler) error
	StopListening()
	InterruptSpeech()
	IsListening() bool
	IsSpeaking() bool
	TextToSpeech(ctx context.Context, text string) error
	SetVoice(id voice.ID, speed, pitch float64) voice.Profile
	AdjustVoiceForEmotion(tag string) bool
}

type Options struct {
	Clipboard     func() (string, error) // clipboard.ReadAll
	WrapWidth     int                    // 80 columns
	SettleDelay   time.Duration          // 100ms
	SpeechOnStart bool
	Metrics       *observe.Metrics
}

type persona struct {
	voice        voice.ID
	speed, pitch float64
	emotion      string
}

var personas = map[proximity.Role]persona{
	proximity.HR:  {voice.Nova, 1.0, 1.0, "friendly"},
	proximity.CEO: {voice.Onyx, 0.9, 0.9, "authoritative"},
}

type result struct {
	session uuid.UUID
	entry   Entry
	emotion string
}

// turn identifies the session background work belongs to.
type turn struct {
	id  uuid.UUID
	ctx context.Context
}

type Conversation struct {
	inf    Inference
	speech Speech
	opts   Options

	active      bool
	inputActive bool
	speechMode  bool
	npc         proximity.Role
	playerPos   world.Vec3
	history     []Entry
	input       string
	emotion     string
	session     uuid.UUID
	cancel      context.CancelFunc

	inbox chan result
	wg    sync.WaitGroup

	mu  sync.Mutex
	cur *turn
}

func New(inf Inference, sp Speech, opts Options) *Conversation {
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.ReadAll
	}
	if opts.WrapWidth <= 0 {
		opts.WrapWidth = 80
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 100 * time.Millisecond
	}
	return &Conversation{
		inf:    inf,
		speech: sp,
		opts:   opts,
		inbox:  make(chan result, 64),
	}
}

func (c *Conversation) Active() bool          { return c.active }
func (c *Conversation) InputActive() bool     { return c.inputActive }
func (c *Conversation) SpeechMode() bool      { return c.speechMode }
func (c *Conversation) NPC() proximity.Role   { return c.npc }
func (c *Conversation) Input() string         { return c.input }
func (c *Conversation) Emotion() string       { return c.emotion }
func (c *Conversation) Session() uuid.UUID    { return c.session }
func (c *Conversation) PlayerPos() world.Vec3 { return c.playerPos }

// History returns a copy of the session history.
func (c *Conversation) History() []Entry {
	return append([]Entry(nil), c.history...)
}

// StartConversation opens a session with npc. It does nothing while a
// session is active. In speech mode it blocks until the greeting has been
// spoken or ctx is done.
func (c *Conversation) StartConversation(ctx context.Context, npc proximity.Role, pos world.Vec3) {
	if c.active {
		return
	}

	sctx, cancel := context.WithCancel(context.Background())
	c.active, c.inputActive = true, true
	c.npc, c.playerPos = npc, pos
	c.input = ""
	c.session, c.cancel = uuid.New(), cancel
	c.setTurn(&turn{id: c.session, ctx: sctx})

	if p, ok := personas[npc]; ok {
		c.speech.SetVoice(p.voice, p.speed, p.pitch)
		c.emotion = p.emotion
	}

	greeting := Greeting(npc)
	c.history = append(c.history, Entry{Npc, greeting})
	c.opts.Metrics.SessionOpened(ctx, string(npc))
	log.Info("Conversation started", "npc", npc, "session", c.session)

	if c.opts.SpeechOnStart {
		c.setSpeechMode(true)
	}
	if c.speechMode {
		if err := c.speech.TextToSpeech(ctx, greeting); err != nil {
			log.Warn("Failed to speak greeting", "err", err)
		}
	}
}

// HandleInput applies one input event to the active session.
func (c *Conversation) HandleInput(e input.Event) {
	if !c.active {
		return
	}

	if e.Kind == input.MouseDown {
		if e.Button == input.ButtonLeft {
			c.inputActive = true
		}
		return
	}

	switch {
	case e.Is(input.KeyEnter):
		c.SendMessage()
	case e.Is(input.KeyBackspace):
		if r := []rune(c.input); len(r) > 0 {
			c.input = string(r[:len(r)-1])
		}
	case e.Is(input.KeyEscape):
		c.end()
	case e.With("v", input.ModCtrl):
		text, err := c.opts.Clipboard()
		if err != nil {
			log.Debug("Clipboard unavailable", "err", err)
			return
		}
		c.input += text
	case e.With("t", input.ModShift):
		c.setSpeechMode(!c.speechMode)
	case e.Is(input.KeySpace) && c.speech.IsSpeaking():
		c.speech.InterruptSpeech()
		c.history = append(c.history, Entry{System, NoticeInterrupted})
		c.input = ""
	default:
		if s, ok := e.Printable(); ok && c.inputActive {
			c.input += s
		}
	}
}

func (c *Conversation) setSpeechMode(on bool) {
	if on == c.speechMode {
		return
	}
	if on {
		if err := c.speech.StartListening(c.HandleUtterance); err != nil {
			log.Warn("Speech mode unavailable", "err", err)
			return
		}
		c.speechMode = true
		log.Info("Speech mode on", "session", c.session)
		return
	}

	c.speech.StopListening()
	c.speech.InterruptSpeech()
	c.speechMode = false
	log.Info("Speech mode off", "session", c.session)
}

// SendMessage commits the pending input as a player turn. The NPC reply is
// produced in the background and appears after a later Update.
func (c *Conversation) SendMessage() {
	text := strings.TrimSpace(c.input)
	if text == "" || !c.active {
		return
	}

	c.history = append(c.history, Entry{Player, text})
	c.input = ""
	t := c.currentTurn()

	if !c.speechMode {
		c.spawn(func() {
			reply, err := c.inf.Complete(t.ctx, text)
			if t.ctx.Err() != nil {
				return
			}
			if err != nil {
				log.Warn("Inference failed", "session", t.id, "err", err)
				reply = inference.FallbackText
			}
			c.post(t, Entry{Npc, reply}, "")
		})
		return
	}

	settle := c.speech.IsSpeaking()
	if settle {
		c.speech.InterruptSpeech()
		c.history = append(c.history, Entry{System, NoticePreviousInterrupted})
	}
	c.spawn(func() {
		if settle {
			select {
			case <-time.After(c.opts.SettleDelay):
			case <-t.ctx.Done():
				return
			}
		}
		c.speakTurn(t, text)
	})
}

// HandleUtterance answers recognized speech. It is called from the speech
// drain task and returns after the reply has been spoken.
func (c *Conversation) HandleUtterance(ctx context.Context, text string) {
	t := c.currentTurn()
	if t == nil {
		return
	}

	tctx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	bound := &turn{id: t.id, ctx: tctx}
	c.post(bound, Entry{Player, text}, "")
	c.speakTurn(bound, text)
}

func (c *Conversation) speakTurn(t *turn, text string) {
	resp, err := c.inf.GetResponse(t.ctx, text)
	if t.ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Warn("Inference failed", "session", t.id, "err", err)
		c.post(t, Entry{Npc, inference.FallbackText}, "")
		return
	}

	if resp.Emotion != "" {
		c.speech.AdjustVoiceForEmotion(resp.Emotion)
	}
	c.post(t, Entry{Npc, resp.Text}, resp.Emotion)

	if err := c.speech.TextToSpeech(t.ctx, resp.Text); err != nil {
		log.Warn("Failed to speak response", "session", t.id, "err", err)
	}
}

func (c *Conversation) spawn(f func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		f()
	}()
}

func (c *Conversation) post(t *turn, e Entry, emotion string) {
	select {
	case c.inbox <- result{session: t.id, entry: e, emotion: emotion}:
	case <-t.ctx.Done():
	}
}

// Update applies results of background turns. Results from a session that
// has since ended are dropped. Speech mode is switched off when the speech
// driver stopped listening on its own.
func (c *Conversation) Update() {
	if c.speechMode && !c.speech.IsListening() {
		log.Warn("Speech input stopped, leaving speech mode", "session", c.session)
		c.speechMode = false
	}
	for {
		select {
		case r := <-c.inbox:
			if !c.active || r.session != c.session {
				log.Debug("Dropping stale result", "session", r.session)
				continue
			}
			c.history = append(c.history, r.entry)
			if r.emotion != "" {
				c.emotion = r.emotion
			}
		default:
			return
		}
	}
}

// Sync waits for background turns started by SendMessage and applies
// their results.
func (c *Conversation) Sync() {
	c.wg.Wait()
	c.Update()
}

// Close ends the active session without waiting for background turns.
func (c *Conversation) Close() {
	if c.active {
		c.end()
	}
}

func (c *Conversation) end() {
	log.Info("Conversation ended", "npc", c.npc, "session", c.session)
	c.opts.Metrics.SessionClosed(context.Background(), string(c.npc))

	c.active, c.inputActive = false, false
	c.input = ""
	c.npc = ""
	if c.speechMode {
		c.speech.StopListening()
		c.speech.InterruptSpeech()
		c.speechMode = false
	}
	c.history = nil
	c.emotion = ""

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.setTurn(nil)
}

func (c *Conversation) setTurn(t *turn) {
	c.mu.Lock()
	c.cur = t
	c.mu.Unlock()
}

func (c *Conversation) currentTurn() *turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}
