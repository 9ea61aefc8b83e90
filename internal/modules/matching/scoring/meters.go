package scoring

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type meterDef struct {
	name   string
	low    string
	medium string
	high   string
}

var meterDefs = []meterDef{
	{"vibe_collision", "Polite strangers", "Noticeable tension", "Immediate lore"},
	{"shared_brain_cell", "Separate operating systems", "Occasional overlap", "One brain, two bodies"},
	{"awkward_silence", "Painfully long", "Manageable discomfort", "Comfortably quiet"},
	{"chaos_escalation", "Fully supervised", "Mild mischief", "Bad idea speedrun"},
	{"texting_energy", "Read at 2pm", "Steady replies", "Typing... always"},
	{"social_battery", "Drains on contact", "Needs a recharge", "Infinite outlet"},
	{"inside_joke_speed", "Weeks away", "A few hangouts", "Instant bit"},
	{"personality_sync", "Different wavelengths", "Occasional resonance", "Same frequency"},
}

const metersPerSummary = 4

// MeterProvider is the default ScoringProvider: values are pseudo-random but
// stable for a (user, candidate) pair within one calendar day, so repeated
// pool fetches show consistent readings. Summaries are cached until the day
// rolls over.
type MeterProvider struct {
	cache *cache.Cache
	now   func() time.Time
}

func NewMeterProvider() *MeterProvider {
	return &MeterProvider{
		cache: cache.New(time.Hour, 15*time.Minute),
		now:   time.Now,
	}
}

func (p *MeterProvider) Summary(_ context.Context, userID, candidateID uuid.UUID) (Summary, error) {
	day := p.now().UTC().Format("2006-01-02")
	key := fmt.Sprintf("%s|%s|%s", userID, candidateID, day)

	if raw, found := p.cache.Get(key); found {
		if summary, ok := raw.(Summary); ok {
			return summary, nil
		}
	}

	summary := computeSummary(userID, candidateID, day)
	p.cache.Set(key, summary, cache.DefaultExpiration)

	return summary, nil
}

func computeSummary(userID, candidateID uuid.UUID, day string) Summary {
	seed := pairSeed(userID, candidateID, day)

	summary := make(Summary, metersPerSummary)
	offset := int(seed % uint64(len(meterDefs)))

	for i := 0; i < metersPerSummary; i++ {
		def := meterDefs[(offset+i*2)%len(meterDefs)]

		seed = seed*6364136223846793005 + 1442695040888963407
		value := int(seed % 101)

		summary[def.name] = Meter{Value: value, Label: label(def, value)}
	}

	return summary
}

func label(def meterDef, value int) string {
	switch {
	case value < 33:
		return def.low
	case value < 67:
		return def.medium
	default:
		return def.high
	}
}

func pairSeed(userID, candidateID uuid.UUID, day string) uint64 {
	h := fnv.New64a()
	h.Write(userID[:])
	h.Write(candidateID[:])
	h.Write([]byte(day))
	return h.Sum64()
}

var _ Provider = (*MeterProvider)(nil)
