// Package pacer replays agent response segments into the conversation
// store with simulated typing cadence.
//
// Per text segment: insert a typing placeholder, wait a length-derived
// delay, swap the placeholder for the final message. Per image
// directive: insert a pending image message, request generation from
// the boundary, resolve or fail it in place. Consecutive text segments
// are separated by a short randomized pause so long responses arrive
// as natural message chunks rather than one continuous type-out.
//
// A Pacer permits at most one in-flight run; the delivering flag
// doubles as the engine's re-entrancy guard for user sends.
package pacer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skullsystem/messenger/chatengine/boundary"
	"github.com/skullsystem/messenger/chatengine/codec"
	"github.com/skullsystem/messenger/chatengine/config"
	"github.com/skullsystem/messenger/chatengine/conversation"
	"github.com/skullsystem/messenger/chatengine/notify"
	"github.com/skullsystem/messenger/chatengine/observability"
	"github.com/skullsystem/messenger/chatengine/segment"
)

// ErrDeliveryInProgress is returned when a run is requested while one
// is already in flight.
var ErrDeliveryInProgress = errors.New("delivery already in progress")

// Logger is the minimal logging interface the pacer needs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Params configures a Pacer.
type Params struct {
	Store    *conversation.Store
	Queue    *notify.Queue
	Provider boundary.Provider // nil means the boundary is unavailable
	Config   *config.EngineConfig
	Logger   Logger

	// NotifyLabel prefixes notifications raised for unseen deliveries.
	NotifyLabel string
	// SpeakerName appears in thread-summary status lines.
	SpeakerName string
	// TypingText is the transient typing-indicator message text.
	TypingText string
	// SendingImageText is the notification text for an in-flight image.
	SendingImageText string
	// ImageFailureText replaces an image message when generation fails.
	ImageFailureText string

	// OnStatus receives thread-summary status line updates. Optional.
	OnStatus func(string)
	// OnStateChange observes the delivering flag. Optional.
	OnStateChange func(delivering bool)
}

// Pacer turns a segment sequence into timed store mutations.
type Pacer struct {
	store    *conversation.Store
	queue    *notify.Queue
	provider boundary.Provider
	cfg      *config.EngineConfig
	logger   Logger

	notifyLabel   string
	speakerName   string
	typingText    string
	sendingText   string
	imageErrText  string
	onStatus      func(string)
	onStateChange func(delivering bool)

	delivering atomic.Bool

	// sleep is swappable for tests.
	sleep func(time.Duration)

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates a Pacer.
func New(p Params) *Pacer {
	cfg := p.Config
	if cfg == nil {
		cfg = config.DefaultEngineConfig()
	}
	return &Pacer{
		store:         p.Store,
		queue:         p.Queue,
		provider:      p.Provider,
		cfg:           cfg,
		logger:        p.Logger,
		notifyLabel:   p.NotifyLabel,
		speakerName:   p.SpeakerName,
		typingText:    p.TypingText,
		sendingText:   p.SendingImageText,
		imageErrText:  p.ImageFailureText,
		onStatus:      p.OnStatus,
		onStateChange: p.OnStateChange,
		sleep:         time.Sleep,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Delivering reports whether a run is in flight.
func (p *Pacer) Delivering() bool {
	return p.delivering.Load()
}

// TypingDelay computes the simulated typing duration for a text of the
// given length: per-character rate clamped to the configured bounds.
func (p *Pacer) TypingDelay(chars int) time.Duration {
	d := time.Duration(chars) * p.cfg.TypingDelayPerChar()
	if d < p.cfg.MinTypingDelay() {
		d = p.cfg.MinTypingDelay()
	}
	if d > p.cfg.MaxTypingDelay() {
		d = p.cfg.MaxTypingDelay()
	}
	return d
}

func (p *Pacer) interSegmentPause() time.Duration {
	jitter := p.cfg.SegmentPauseJitter()
	if jitter <= 0 {
		return p.cfg.SegmentPauseBase()
	}
	p.rngMu.Lock()
	r := time.Duration(p.rng.Int63n(int64(jitter)))
	p.rngMu.Unlock()
	return p.cfg.SegmentPauseBase() + r
}

// Deliver replays segments onto the agent thread, strictly in order,
// blocking the calling goroutine through every timed wait. Exactly one
// run may be in flight; a second call returns ErrDeliveryInProgress.
//
// Context cancellation stops between segments; any typing placeholder
// already inserted is removed first.
func (p *Pacer) Deliver(ctx context.Context, segs []segment.Segment) error {
	if !p.delivering.CompareAndSwap(false, true) {
		return ErrDeliveryInProgress
	}
	p.stateChanged(true)
	defer func() {
		p.delivering.Store(false)
		p.stateChanged(false)
	}()

	for i, seg := range segs {
		if err := ctx.Err(); err != nil {
			p.store.ClearPending(conversation.AgentThread, conversation.SenderAgent)
			return err
		}

		switch seg.Kind {
		case segment.KindText:
			if strings.TrimSpace(seg.Content) == "" {
				continue
			}
			if err := p.deliverText(ctx, seg.Content); err != nil {
				return err
			}
		case segment.KindImageDirective:
			p.deliverImage(ctx, seg.Content)
		default:
			if p.logger != nil {
				p.logger.Warn("unknown_segment_kind", "kind", string(seg.Kind))
			}
		}

		if seg.Kind == segment.KindText && i < len(segs)-1 &&
			segs[i+1].Kind == segment.KindText && strings.TrimSpace(segs[i+1].Content) != "" {
			p.sleep(p.interSegmentPause())
		}
	}
	return nil
}

// deliverText types out one text segment: placeholder, wait, final
// message, unseen-side notification.
func (p *Pacer) deliverText(ctx context.Context, content string) error {
	placeholder := conversation.Message{
		ID:        conversation.NewMessageID(),
		Sender:    conversation.SenderAgent,
		Text:      p.typingText,
		Timestamp: codec.Now(),
		IsPending: true,
		IsSeen:    true, // the typing indicator never counts as unread
	}
	if err := p.store.Append(conversation.AgentThread, placeholder); err != nil {
		return err
	}
	p.status(p.typingText)

	p.sleep(p.TypingDelay(len(content)))

	if err := p.store.RemoveMessage(conversation.AgentThread, placeholder.ID); err != nil {
		if p.logger != nil {
			p.logger.Warn("typing_placeholder_missing", "message_id", placeholder.ID)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	seen := p.store.IsFocused(conversation.AgentThread)
	msg := conversation.Message{
		ID:        conversation.NewMessageID(),
		Sender:    conversation.SenderAgent,
		Text:      content,
		Timestamp: codec.Now(),
		IsSeen:    seen,
	}
	if err := p.store.Append(conversation.AgentThread, msg); err != nil {
		return err
	}
	if !seen {
		p.queue.Enqueue(content, p.notifyLabel, conversation.AgentThread, "")
	}

	texts, _ := p.store.AgentTally(conversation.AgentThread)
	p.status(fmt.Sprintf("%d messages from %s", texts, p.speakerName))
	return nil
}

// deliverImage handles one image directive. Generation failures
// resolve the pending message into an error in place and never abort
// the remaining segments.
func (p *Pacer) deliverImage(ctx context.Context, prompt string) {
	seen := p.store.IsFocused(conversation.AgentThread)

	if p.provider == nil {
		errMsg := conversation.Message{
			ID:        conversation.NewMessageID(),
			Sender:    conversation.SenderAgent,
			Text:      p.imageErrText,
			Timestamp: codec.Now(),
			IsError:   true,
			IsSeen:    seen,
		}
		if err := p.store.Append(conversation.AgentThread, errMsg); err != nil {
			return
		}
		if !seen {
			p.queue.Enqueue(p.imageErrText, p.notifyLabel, conversation.AgentThread, "")
		}
		return
	}

	pending := conversation.Message{
		ID:        conversation.NewMessageID(),
		Sender:    conversation.SenderAgent,
		Timestamp: codec.Now(),
		IsPending: true,
		IsSeen:    seen,
	}
	if err := p.store.Append(conversation.AgentThread, pending); err != nil {
		return
	}
	if !seen {
		p.queue.Enqueue(p.sendingText, p.notifyLabel, conversation.AgentThread, "")
	}
	p.status(p.speakerName + " is sending an image...")

	start := time.Now()
	data, err := p.provider.GenerateImage(ctx, prompt)
	callStatus := "success"
	if err != nil {
		callStatus = "error"
	}
	observability.RecordBoundaryCall("generate_image", callStatus, int(time.Since(start).Milliseconds()))
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("image_generation_failed", "error", err.Error())
		}
		failed := conversation.Message{
			Sender:    conversation.SenderAgent,
			Text:      p.imageErrText,
			Timestamp: pending.Timestamp, // preserve the original instant
			IsError:   true,
			IsSeen:    seen,
		}
		if rerr := p.store.ReplacePending(conversation.AgentThread, pending.ID, failed); rerr != nil && p.logger != nil {
			p.logger.Warn("image_placeholder_missing", "message_id", pending.ID)
		}
		return
	}

	resolved := conversation.Message{
		Sender:    conversation.SenderAgent,
		ImageRef:  "data:image/png;base64," + base64.StdEncoding.EncodeToString(data),
		Timestamp: pending.Timestamp,
		IsSeen:    seen,
	}
	if rerr := p.store.ReplacePending(conversation.AgentThread, pending.ID, resolved); rerr != nil && p.logger != nil {
		p.logger.Warn("image_placeholder_missing", "message_id", pending.ID)
	}

	texts, images := p.store.AgentTally(conversation.AgentThread)
	p.status(fmt.Sprintf("%d messages, %d image(s)", texts, images))
}

func (p *Pacer) status(s string) {
	if p.onStatus != nil {
		p.onStatus(s)
	}
}

func (p *Pacer) stateChanged(delivering bool) {
	if p.onStateChange != nil {
		p.onStateChange(delivering)
	}
}

// SetSleep replaces the wait primitive. Test hook.
func (p *Pacer) SetSleep(fn func(time.Duration)) {
	p.sleep = fn
}
