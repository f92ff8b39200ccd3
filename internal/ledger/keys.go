package ledger

import "github.com/terra-clan/quest-ledger/internal/models"

// Instance tier
const (
	keyPlatform   = "platform"
	keyQuestCount = "quest_cnt"
	keyQuests     = "quests"
	keyQuestIndex = "quest_idx"
	keyBadgeCount = "badge_cnt"
	keyBadges     = "badges"
	keyEventSeq   = "evt_seq"
)

// Persistent tier
const (
	keyCompletions    = "completns"
	keyUserCompletion = "user_done"
	keyUserBadges     = "user_bdg"
	keyPayouts        = "payouts"
)

// completionKey joins a quest and user; symbols never contain ':'
func completionKey(user models.Principal, questID models.Symbol) string {
	return string(questID) + ":" + string(user)
}

func loadPlatform(env *Env) (models.PlatformConfig, error) {
	cfg, ok, err := load[models.PlatformConfig](env.instance, keyPlatform)
	if err != nil {
		return cfg, err
	}
	if !ok {
		return cfg, ErrUninitialized
	}
	return cfg, nil
}

func loadQuests(env *Env) (map[models.Symbol]models.Quest, error) {
	quests, _, err := load[map[models.Symbol]models.Quest](env.instance, keyQuests)
	if quests == nil {
		quests = make(map[models.Symbol]models.Quest)
	}
	return quests, err
}

func loadBadges(env *Env) (map[models.Symbol]models.Badge, error) {
	badges, _, err := load[map[models.Symbol]models.Badge](env.instance, keyBadges)
	if badges == nil {
		badges = make(map[models.Symbol]models.Badge)
	}
	return badges, err
}

func loadCompletions(env *Env) (map[string]models.CompletionRecord, error) {
	completions, _, err := load[map[string]models.CompletionRecord](env.persistent, keyCompletions)
	if completions == nil {
		completions = make(map[string]models.CompletionRecord)
	}
	return completions, err
}

func loadIndex(v *tierView, key string) (map[models.Principal][]models.Symbol, error) {
	index, _, err := load[map[models.Principal][]models.Symbol](v, key)
	if index == nil {
		index = make(map[models.Principal][]models.Symbol)
	}
	return index, err
}

func loadCounter(v *tierView, key string) (int64, error) {
	n, _, err := load[int64](v, key)
	return n, err
}
