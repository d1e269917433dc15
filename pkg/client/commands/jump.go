package commands

import (
	"strings"

	"github.com/aeolun/loungechat/pkg/protocol"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// BestChannelMatch picks the channel a /jump query refers to. Exact
// (case-insensitive) names win, then a prefix match ignoring the leading
// '#', then the closest fuzzy match with earlier channels breaking ties.
func BestChannelMatch(channels []*protocol.Channel, query string) *protocol.Channel {
	query = strings.TrimSpace(query)
	if query == "" || len(channels) == 0 {
		return nil
	}

	for _, ch := range channels {
		if strings.EqualFold(ch.Name, query) {
			return ch
		}
	}

	bare := strings.ToLower(strings.TrimLeft(query, "#"))
	if bare != "" {
		for _, ch := range channels {
			if strings.HasPrefix(strings.ToLower(strings.TrimLeft(ch.Name, "#")), bare) {
				return ch
			}
		}
	}

	names := make([]string, len(channels))
	for i, ch := range channels {
		names[i] = ch.Name
	}
	ranks := fuzzy.RankFindNormalizedFold(query, names)
	if len(ranks) == 0 {
		return nil
	}
	best := ranks[0]
	for _, rank := range ranks[1:] {
		if rank.Distance < best.Distance ||
			(rank.Distance == best.Distance && rank.OriginalIndex < best.OriginalIndex) {
			best = rank
		}
	}
	if best.OriginalIndex < 0 || best.OriginalIndex >= len(channels) {
		return nil
	}
	return channels[best.OriginalIndex]
}
