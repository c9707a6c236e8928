package actor

import (
	"context"
	"math/rand"
	"time"

	"github.com/openpoker/cardroom"
	"github.com/openpoker/cardroom/engine"
)

type ActionProbability struct {
	Action engine.ActionType
	Weight float64
}

var actionProbabilities = []ActionProbability{
	{Action: engine.ActionCheck, Weight: 0.1},
	{Action: engine.ActionCall, Weight: 0.3},
	{Action: engine.ActionFold, Weight: 0.15},
	{Action: engine.ActionAllIn, Weight: 0.05},
	{Action: engine.ActionRaise, Weight: 0.3},
	{Action: engine.ActionBet, Weight: 0.1},
}

// Bot is a rule-driven decision source with a weighted-random policy. It is
// strategy-opaque to the driver and always answers within the time limit.
type Bot struct {
	name        string
	isHumanized bool
	maxDelay    time.Duration
	rng         *rand.Rand
}

type BotOpt func(*Bot)

func NewBot(name string, opts ...BotOpt) *Bot {
	b := &Bot{
		name:     name,
		maxDelay: 2 * time.Second,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Humanized adds a random thinking delay before each decision.
func Humanized(enabled bool) BotOpt {
	return func(b *Bot) {
		b.isHumanized = enabled
	}
}

// WithSeed makes the bot's policy deterministic.
func WithSeed(seed int64) BotOpt {
	return func(b *Bot) {
		b.rng = rand.New(rand.NewSource(seed))
	}
}

func (b *Bot) Name() string {
	return b.name
}

func (b *Bot) IsHuman() bool {
	return false
}

func (b *Bot) Notify(ev cardroom.Event) {}

func (b *Bot) RequestAction(ctx context.Context, snapshot *cardroom.GameSnapshot, valid engine.ValidActions, timeLimit time.Duration) (engine.Action, error) {
	if b.isHumanized {
		delay := time.Duration(b.rng.Int63n(int64(b.maxDelay)))
		if delay >= timeLimit {
			delay = timeLimit / 2
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return engine.Action{}, ctx.Err()
		}
	}

	return b.decide(valid), nil
}

func (b *Bot) decide(valid engine.ValidActions) engine.Action {
	allowed := make([]engine.ActionType, 0, 6)
	if valid.CanCheck {
		allowed = append(allowed, engine.ActionCheck)
	}
	if valid.CanCall {
		allowed = append(allowed, engine.ActionCall)
	}
	if valid.CanFold {
		allowed = append(allowed, engine.ActionFold)
	}
	if valid.CanBet {
		allowed = append(allowed, engine.ActionBet)
	}
	if valid.CanRaise {
		allowed = append(allowed, engine.ActionRaise)
	}
	if valid.CanAllIn {
		allowed = append(allowed, engine.ActionAllIn)
	}
	if len(allowed) == 0 {
		return cardroom.DefaultAction(valid)
	}

	choice := allowed[0]
	if len(allowed) > 1 {
		choice = b.pick(allowed)
	}

	switch choice {
	case engine.ActionBet:
		return engine.Action{Type: engine.ActionBet, Chips: b.wager(valid.MinBet, valid.MaxBet)}
	case engine.ActionRaise:
		return engine.Action{Type: engine.ActionRaise, Chips: b.wager(valid.MinRaiseTo, valid.MaxRaiseTo)}
	default:
		return engine.Action{Type: choice}
	}
}

// pick selects among allowed actions with the configured weights.
func (b *Bot) pick(allowed []engine.ActionType) engine.ActionType {
	total := 0.0
	weights := make([]float64, len(allowed))
	for i, action := range allowed {
		for _, p := range actionProbabilities {
			if p.Action == action {
				weights[i] = p.Weight
				total += p.Weight
				break
			}
		}
	}
	if total <= 0 {
		return allowed[0]
	}

	roll := b.rng.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if roll < acc {
			return allowed[i]
		}
	}
	return allowed[len(allowed)-1]
}

// wager biases toward the minimum legal size.
func (b *Bot) wager(min, max int64) int64 {
	if max <= min {
		return min
	}
	span := max - min
	amount := min + b.rng.Int63n(span+1)/2
	if amount > max {
		amount = max
	}
	return amount
}
